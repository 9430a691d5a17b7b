package discovery

import (
	"errors"
	"fmt"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/suse/upscout/internal/config"
)

const (
	reportKind = "scans"
	// LastReport is the name the most recent scan is stored under.
	LastReport = "last"
)

// Report is a persisted scan.
type Report struct {
	ID             string              `json:"id"`
	StartedAt      time.Time           `json:"startedAt"`
	FinishedAt     time.Time           `json:"finishedAt"`
	Results        []ClusterScanResult `json:"results"`
	Instances      []ServiceInstance   `json:"instances"`
	FailedClusters []string            `json:"failedClusters,omitempty"`
}

// ReportStore persists reports. *config.Storage implements it.
type ReportStore interface {
	Save(kind, name string, data []byte) error
	Load(kind, name string) ([]byte, error)
}

// ErrNoReport is returned when no scan has been saved yet.
var ErrNoReport = errors.New("no previous scan found")

// Report returns the last scan as a Report.
func (s *Scanner) Report() Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Report{
		ID:             s.scanID,
		StartedAt:      s.startedAt,
		FinishedAt:     s.finishedAt,
		Results:        copyResults(s.results),
		Instances:      collectInstances(s.results),
		FailedClusters: failedNames(s.results),
	}
}

// Restore loads a saved report as the last scan, so RetryFailed works
// across processes.
func (s *Scanner) Restore(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return ErrScanInProgress
	}
	s.scanID = r.ID
	s.startedAt = r.StartedAt
	s.finishedAt = r.FinishedAt
	s.results = copyResults(r.Results)
	s.progress = Progress{
		TotalClusters:   len(r.Results),
		ScannedClusters: len(r.Results),
		FoundInstances:  len(collectInstances(r.Results)),
	}
	return nil
}

// SaveReport writes r under name.
func SaveReport(store ReportStore, name string, r Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal scan report: %w", err)
	}
	if err := store.Save(reportKind, name, data); err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}
	return nil
}

// LoadReport reads the report stored under name.
func LoadReport(store ReportStore, name string) (Report, error) {
	data, err := store.Load(reportKind, name)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return Report{}, ErrNoReport
		}
		return Report{}, fmt.Errorf("failed to load scan report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("failed to parse scan report: %w", err)
	}
	return r, nil
}
