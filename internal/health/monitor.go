package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/suse/upscout/pkg/logging"
)

// DefaultMonitorInterval is the polling interval of a Monitor.
const DefaultMonitorInterval = 2 * time.Minute

// Status is the health status of a monitored endpoint.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusChecking  Status = "checking"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// ServiceHealth is the latest known state of one monitored endpoint.
type ServiceHealth struct {
	Name                string    `json:"name"`
	URL                 string    `json:"url"`
	Status              Status    `json:"status"`
	LastResult          *Result   `json:"lastResult,omitempty"`
	LastChecked         time.Time `json:"lastChecked,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
}

// StatusChangeFunc is called after an endpoint changes status.
type StatusChangeFunc func(name string, oldStatus, newStatus Status, result Result)

// Monitor periodically checks a named set of endpoints and keeps the latest
// ServiceHealth for each of them.
type Monitor struct {
	checker  *Checker
	interval time.Duration

	mu        sync.RWMutex
	endpoints map[string]*ServiceHealth
	onChange  StatusChangeFunc

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor for endpoints (name -> base URL). A zero
// interval uses DefaultMonitorInterval.
func NewMonitor(checker *Checker, interval time.Duration, endpoints map[string]string) *Monitor {
	if checker == nil {
		checker = NewChecker()
	}
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	m := &Monitor{
		checker:   checker,
		interval:  interval,
		endpoints: make(map[string]*ServiceHealth),
	}
	m.SetEndpoints(endpoints)
	return m
}

// SetStatusChangeCallback registers fn for status transitions.
func (m *Monitor) SetStatusChangeCallback(fn StatusChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// SetEndpoints replaces the monitored set. Endpoints whose URL did not change
// keep their history.
func (m *Monitor) SetEndpoints(endpoints map[string]string) {
	m.setEndpoints(endpoints, nil)
}

// Reload replaces the monitored set like SetEndpoints, but checks added or
// changed endpoints first and installs them with their result, so Healthy
// never sees them as unknown.
func (m *Monitor) Reload(ctx context.Context, endpoints map[string]string) []ServiceHealth {
	m.mu.RLock()
	pending := make(map[string]string)
	for name, url := range endpoints {
		if existing, ok := m.endpoints[name]; !ok || existing.URL != url {
			pending[name] = url
		}
	}
	m.mu.RUnlock()

	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[string]Result, len(pending))
	)
	for name, url := range pending {
		g.Go(func() error {
			result := m.checker.Check(ctx, url)
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	m.setEndpoints(endpoints, results)
	return m.Snapshot()
}

// setEndpoints swaps in the new set. Entries without history take their
// first result from checked when present.
func (m *Monitor) setEndpoints(endpoints map[string]string, checked map[string]Result) {
	type transition struct {
		name, url string
		result    Result
	}
	var transitions []transition

	m.mu.Lock()
	next := make(map[string]*ServiceHealth, len(endpoints))
	for name, url := range endpoints {
		if existing, ok := m.endpoints[name]; ok && existing.URL == url {
			next[name] = existing
			continue
		}
		entry := &ServiceHealth{Name: name, URL: url, Status: StatusUnknown}
		if result, ok := checked[name]; ok {
			entry.Status = statusFor(result)
			entry.LastResult = &result
			entry.LastChecked = result.CheckedAt
			if !result.Healthy {
				entry.ConsecutiveFailures = 1
			}
			transitions = append(transitions, transition{name, url, result})
		}
		next[name] = entry
	}
	m.endpoints = next
	callback := m.onChange
	m.mu.Unlock()

	for _, t := range transitions {
		m.announce(t.name, t.url, StatusUnknown, statusFor(t.result), t.result, callback)
	}
}

// Interval returns the polling interval.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Start runs a first round immediately and then one round per interval until
// Stop is called or ctx is cancelled. Calling Start on a running monitor is a
// no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx, m.done)
	logging.Info("Health", "Health monitor started with interval %s", m.interval)
}

// Stop halts polling and waits for an in-flight round to finish.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logging.Info("Health", "Health monitor stopped")
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.RefreshAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RefreshAll(ctx)
		}
	}
}

// Refresh checks a single endpoint now.
func (m *Monitor) Refresh(ctx context.Context, name string) (ServiceHealth, error) {
	m.mu.Lock()
	entry, ok := m.endpoints[name]
	if !ok {
		m.mu.Unlock()
		return ServiceHealth{}, fmt.Errorf("unknown endpoint %q", name)
	}
	url := entry.URL
	entry.Status = StatusChecking
	m.mu.Unlock()

	result := m.checker.Check(ctx, url)
	return m.record(name, url, result), nil
}

// RefreshAll checks every endpoint concurrently and returns the new snapshot.
func (m *Monitor) RefreshAll(ctx context.Context) []ServiceHealth {
	m.mu.RLock()
	names := make([]string, 0, len(m.endpoints))
	for name := range m.endpoints {
		names = append(names, name)
	}
	m.mu.RUnlock()

	m.refresh(ctx, names)
	return m.Snapshot()
}

func (m *Monitor) refresh(ctx context.Context, names []string) {
	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			if _, err := m.Refresh(ctx, name); err != nil {
				// Removed by SetEndpoints while the round was running.
				logging.Debug("Health", "Skipping %s: %v", name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Monitor) record(name, url string, result Result) ServiceHealth {
	m.mu.Lock()
	entry, ok := m.endpoints[name]
	if !ok || entry.URL != url {
		m.mu.Unlock()
		return ServiceHealth{Name: name, URL: url, Status: statusFor(result), LastResult: &result, LastChecked: result.CheckedAt}
	}

	oldStatus := entry.LastStatus()
	newStatus := statusFor(result)
	entry.Status = newStatus
	entry.LastResult = &result
	entry.LastChecked = result.CheckedAt
	if result.Healthy {
		entry.ConsecutiveFailures = 0
	} else {
		entry.ConsecutiveFailures++
	}
	snapshot := entry.clone()
	callback := m.onChange
	m.mu.Unlock()

	if oldStatus != newStatus {
		m.announce(name, url, oldStatus, newStatus, result, callback)
	}
	return snapshot
}

func (m *Monitor) announce(name, url string, oldStatus, newStatus Status, result Result, callback StatusChangeFunc) {
	if newStatus == StatusHealthy {
		logging.Info("Health", "%s (%s) is healthy", name, url)
	} else {
		logging.Warn("Health", "%s (%s) is unhealthy: %s", name, url, result.Error)
	}
	if callback != nil {
		callback(name, oldStatus, newStatus, result)
	}
}

// LastStatus returns the status of the last completed check, ignoring an
// in-flight StatusChecking.
func (s *ServiceHealth) LastStatus() Status {
	if s.LastResult == nil {
		return StatusUnknown
	}
	return statusFor(*s.LastResult)
}

func (s *ServiceHealth) clone() ServiceHealth {
	c := *s
	if s.LastResult != nil {
		r := *s.LastResult
		c.LastResult = &r
	}
	return c
}

// Snapshot returns a copy of all endpoint states sorted by name.
func (m *Monitor) Snapshot() []ServiceHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ServiceHealth, 0, len(m.endpoints))
	for _, entry := range m.endpoints {
		out = append(out, entry.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Healthy reports whether every endpoint passed its last check. A monitor
// with no endpoints is healthy.
func (m *Monitor) Healthy() bool {
	for _, s := range m.Snapshot() {
		if s.LastStatus() != StatusHealthy {
			return false
		}
	}
	return true
}

func statusFor(r Result) Status {
	if r.Healthy {
		return StatusHealthy
	}
	return StatusUnhealthy
}
