package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"

	"github.com/suse/upscout/internal/discovery"
)

// ScanProgress shows a spinner with the scan progress and ETA. A quiet
// ScanProgress prints nothing.
type ScanProgress struct {
	s     *spinner.Spinner
	quiet bool
}

// NewScanProgress creates a spinner writing to out.
func NewScanProgress(out io.Writer, quiet bool) *ScanProgress {
	p := &ScanProgress{quiet: quiet}
	if !quiet {
		p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	}
	return p
}

// Start shows the spinner with msg.
func (p *ScanProgress) Start(msg string) {
	if p.quiet {
		return
	}
	p.s.Suffix = " " + msg
	p.s.Start()
}

// Update is a discovery.ProgressFunc.
func (p *ScanProgress) Update(pr discovery.Progress) {
	if p.quiet {
		return
	}
	p.s.Lock()
	p.s.Suffix = " " + ProgressMessage(pr)
	p.s.Unlock()
}

// Stop removes the spinner and prints final, if any.
func (p *ScanProgress) Stop(final string) {
	if p.quiet {
		return
	}
	if final != "" {
		p.s.FinalMSG = final + "\n"
	}
	p.s.Stop()
}

// ProgressMessage renders a progress update, e.g.
// "Scanning prod (2/5, 1 instance found, ~12s left)".
func ProgressMessage(pr discovery.Progress) string {
	instances := "instances"
	if pr.FoundInstances == 1 {
		instances = "instance"
	}
	msg := fmt.Sprintf("(%d/%d, %d %s found", pr.ScannedClusters, pr.TotalClusters, pr.FoundInstances, instances)
	if pr.EstimatedTimeRemaining > 0 {
		msg += fmt.Sprintf(", ~%s left", pr.EstimatedTimeRemaining.Round(time.Second))
	}
	msg += ")"

	if pr.CurrentCluster == "" || pr.RemainingClusters == 0 {
		return "Scan finished " + msg
	}
	return "Scanning " + pr.CurrentCluster + " " + msg
}
