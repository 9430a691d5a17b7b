package discovery

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suse/upscout/internal/mcpprobe"
	"github.com/suse/upscout/internal/rancher"
	"github.com/suse/upscout/internal/security"
	"github.com/suse/upscout/pkg/logging"
)

var (
	// ErrScanInProgress is returned when a scan is started while another
	// one is running.
	ErrScanInProgress = errors.New("a discovery scan is already in progress")

	// ErrNoClusters is returned when a scan is started without clusters.
	ErrNoClusters = errors.New("no clusters to scan")
)

// ClusterResolver looks clusters up by name.
type ClusterResolver interface {
	GetClusterByName(ctx context.Context, name string) (rancher.Cluster, error)
}

// ResolverFunc adapts a function to ClusterResolver.
type ResolverFunc func(ctx context.Context, name string) (rancher.Cluster, error)

// GetClusterByName calls f.
func (f ResolverFunc) GetClusterByName(ctx context.Context, name string) (rancher.Cluster, error) {
	return f(ctx, name)
}

// Discoverer finds healthy proxy endpoints in one cluster. *Prober
// implements it.
type Discoverer interface {
	Discover(ctx context.Context, clusterID string) ([]DetectedService, error)
}

// MCPProber performs the optional MCP handshake against an instance.
type MCPProber interface {
	Probe(ctx context.Context, baseURL string) (mcpprobe.Info, error)
}

// Annotator produces security findings for an instance.
type Annotator interface {
	Annotate(target security.Target) []security.Finding
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithMCPProber enables the MCP handshake for every discovered instance.
func WithMCPProber(p MCPProber) ScannerOption {
	return func(s *Scanner) {
		s.mcp = p
	}
}

// WithAnnotator attaches security findings to every discovered instance.
func WithAnnotator(a Annotator) ScannerOption {
	return func(s *Scanner) {
		s.annotator = a
	}
}

// Scanner scans clusters one after the other and keeps the results of the
// last scan so failed clusters can be retried.
type Scanner struct {
	resolver   ClusterResolver
	discoverer Discoverer
	mcp        MCPProber
	annotator  Annotator
	now        func() time.Time

	mu         sync.RWMutex
	scanning   bool
	scanID     string
	startedAt  time.Time
	finishedAt time.Time
	results    []ClusterScanResult
	progress   Progress
}

// NewScanner creates a Scanner.
func NewScanner(resolver ClusterResolver, discoverer Discoverer, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		resolver:   resolver,
		discoverer: discoverer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan discovers proxy instances in the named clusters, sequentially. A
// failing cluster is recorded and the scan continues. When ctx is cancelled
// the clusters scanned so far are kept and ctx's error is returned.
func (s *Scanner) Scan(ctx context.Context, clusterNames []string, onProgress ProgressFunc) ([]ClusterScanResult, error) {
	if len(clusterNames) == 0 {
		return nil, ErrNoClusters
	}
	if err := s.begin(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.scanID = uuid.NewString()
	s.startedAt = s.now()
	s.mu.Unlock()

	logging.Info("Scanner", "Starting discovery across %d clusters", len(clusterNames))
	results, err := s.run(ctx, clusterNames, onProgress)

	s.mu.Lock()
	s.results = results
	s.finishedAt = s.now()
	s.scanning = false
	s.mu.Unlock()

	return copyResults(results), err
}

// RetryFailed scans again only the clusters that failed in the last scan
// and replaces their results. It is a no-op when nothing failed.
func (s *Scanner) RetryFailed(ctx context.Context, onProgress ProgressFunc) ([]ClusterScanResult, error) {
	failed := s.FailedClusters()
	if len(failed) == 0 {
		logging.Debug("Scanner", "No failed clusters to retry")
		return nil, nil
	}
	if err := s.begin(); err != nil {
		return nil, err
	}

	logging.Info("Scanner", "Retrying %d failed clusters", len(failed))
	retried, err := s.run(ctx, failed, onProgress)

	s.mu.Lock()
	byName := make(map[string]ClusterScanResult, len(retried))
	for _, r := range retried {
		byName[r.ClusterName] = r
	}
	for i, r := range s.results {
		if updated, ok := byName[r.ClusterName]; ok {
			s.results[i] = updated
		}
	}
	s.finishedAt = s.now()
	s.scanning = false
	s.mu.Unlock()

	return copyResults(retried), err
}

func (s *Scanner) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return ErrScanInProgress
	}
	s.scanning = true
	return nil
}

func (s *Scanner) run(ctx context.Context, names []string, onProgress ProgressFunc) ([]ClusterScanResult, error) {
	total := len(names)
	results := make([]ClusterScanResult, 0, total)
	start := s.now()
	found := 0
	var eta time.Duration

	emit := func(p Progress) {
		s.mu.Lock()
		s.progress = p
		s.mu.Unlock()
		if onProgress != nil {
			onProgress(p)
		}
	}

	for i, name := range names {
		if ctx.Err() != nil {
			logging.Warn("Scanner", "Scan cancelled after %d of %d clusters", i, total)
			break
		}

		emit(Progress{
			TotalClusters:          total,
			ScannedClusters:        i,
			RemainingClusters:      total - i,
			FoundInstances:         found,
			CurrentCluster:         name,
			EstimatedTimeRemaining: eta,
		})

		result := s.scanCluster(ctx, name)
		results = append(results, result)
		found += len(result.Instances)

		done := i + 1
		eta = estimateRemaining(s.now().Sub(start), done, total-done)
		emit(Progress{
			TotalClusters:          total,
			ScannedClusters:        done,
			RemainingClusters:      total - done,
			FoundInstances:         found,
			CurrentCluster:         name,
			EstimatedTimeRemaining: eta,
		})
	}

	emit(Progress{
		TotalClusters:     total,
		ScannedClusters:   len(results),
		RemainingClusters: total - len(results),
		FoundInstances:    found,
	})

	failed := 0
	for _, r := range results {
		if r.Status == ScanFailed {
			failed++
		}
	}
	logging.Info("Scanner", "Scanned %d clusters: %d instances found, %d clusters failed", len(results), found, failed)

	return results, ctx.Err()
}

func (s *Scanner) scanCluster(ctx context.Context, name string) ClusterScanResult {
	start := s.now()
	result := ClusterScanResult{
		ClusterID:   name,
		ClusterName: name,
		Status:      ScanScanning,
	}
	fail := func(err error) ClusterScanResult {
		logging.Warn("Scanner", "Cluster %s failed: %v", name, err)
		result.Status = ScanFailed
		result.Error = err.Error()
		result.ScanDuration = s.now().Sub(start)
		return result
	}

	cluster, err := s.resolver.GetClusterByName(ctx, name)
	if err != nil {
		return fail(err)
	}
	if cluster.ID != "" {
		result.ClusterID = cluster.ID
	}
	result.DisplayName = cluster.DisplayNameOrName()

	services, err := s.discoverer.Discover(ctx, result.ClusterID)
	if err != nil {
		return fail(err)
	}

	result.Instances = s.toInstances(ctx, result, services)
	result.Status = ScanCompleted
	result.ScanDuration = s.now().Sub(start)
	logging.Debug("Scanner", "Cluster %s: %d instances in %s", name, len(result.Instances), result.ScanDuration)
	return result
}

func (s *Scanner) toInstances(ctx context.Context, cluster ClusterScanResult, services []DetectedService) []ServiceInstance {
	seen := make(map[string]bool, len(services))
	instances := make([]ServiceInstance, 0, len(services))
	for _, svc := range services {
		if seen[svc.URL] {
			continue
		}
		seen[svc.URL] = true

		inst := ServiceInstance{
			DetectedService: svc,
			ClusterID:       cluster.ClusterID,
			ClusterName:     cluster.ClusterName,
			DisplayName:     cluster.DisplayName,
			Status:          StatusAvailable,
			LastChecked:     s.now(),
		}
		if svc.Health != nil {
			inst.LastChecked = svc.Health.CheckedAt
			inst.ResponseTime = svc.Health.ResponseTime
		}

		if s.mcp != nil {
			info, err := s.mcp.Probe(ctx, svc.URL)
			if err != nil {
				logging.Warn("Scanner", "MCP probe of %s failed: %v", svc.URL, err)
				inst.ErrorMessage = err.Error()
			} else {
				inst.MCP = &info
			}
		}
		if s.annotator != nil {
			inst.Findings = s.annotator.Annotate(inst.Target())
		}
		instances = append(instances, inst)
	}
	markPrimary(instances)
	return instances
}

// estimateRemaining extrapolates the average time per finished cluster,
// rounded up to whole seconds.
func estimateRemaining(elapsed time.Duration, done, remaining int) time.Duration {
	if done == 0 || remaining <= 0 {
		return 0
	}
	avg := elapsed.Seconds() / float64(done)
	return time.Duration(math.Ceil(avg*float64(remaining))) * time.Second
}

// Target converts the instance for the security rules.
func (i ServiceInstance) Target() security.Target {
	t := security.Target{
		ClusterID:       i.ClusterID,
		Name:            i.Name,
		Namespace:       i.Namespace,
		URL:             i.URL,
		Source:          string(i.Source),
		Type:            i.Type,
		LoadBalancerIPs: i.LoadBalancerIPs,
		ExternalIPs:     i.ExternalIPs,
		PublicEndpoint:  i.PublicEndpoint,
		HostIP:          i.HostIP,
	}
	if i.MCP != nil {
		t.MCPProbed = true
		t.MCPOpen = !i.MCP.AuthRequired
	}
	return t
}

// Scanning reports whether a scan is running.
func (s *Scanner) Scanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// Progress returns the latest progress update.
func (s *Scanner) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// CompletionPercentage is the rounded share of scanned clusters in the
// current or last run.
func (s *Scanner) CompletionPercentage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.progress.TotalClusters == 0 {
		return 0
	}
	return int(math.Round(float64(s.progress.ScannedClusters) / float64(s.progress.TotalClusters) * 100))
}

// Results returns the per-cluster results of the last scan.
func (s *Scanner) Results() []ClusterScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyResults(s.results)
}

// Instances returns every instance found in the last scan, de-duplicated
// by cluster and URL.
func (s *Scanner) Instances() []ServiceInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collectInstances(s.results)
}

// FailedClusters returns the names of the clusters that failed in the last
// scan.
func (s *Scanner) FailedClusters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return failedNames(s.results)
}

func collectInstances(results []ClusterScanResult) []ServiceInstance {
	type key struct{ cluster, url string }
	seen := make(map[key]bool)
	var out []ServiceInstance
	for _, r := range results {
		for _, inst := range r.Instances {
			k := key{inst.ClusterID, inst.URL}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, inst)
		}
	}
	return out
}

func failedNames(results []ClusterScanResult) []string {
	var out []string
	for _, r := range results {
		if r.Status == ScanFailed {
			out = append(out, r.ClusterName)
		}
	}
	return out
}

func copyResults(in []ClusterScanResult) []ClusterScanResult {
	if in == nil {
		return nil
	}
	out := make([]ClusterScanResult, len(in))
	copy(out, in)
	return out
}
