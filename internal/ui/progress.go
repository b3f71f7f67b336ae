package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"teleferry/internal/transfer"
)

// ProgressUI renders transfer progress events on the terminal, one bar
// per phase.
type ProgressUI struct {
	bar   *progressbar.ProgressBar
	phase transfer.Phase
	name  string
}

// NewProgressUI creates a new progress UI for the named transfer.
func NewProgressUI(name string) *ProgressUI {
	return &ProgressUI{name: name}
}

// Run consumes events until the channel closes.
func (p *ProgressUI) Run(events <-chan transfer.ProgressEvent) {
	for ev := range events {
		p.update(ev)
	}
	p.finish()
}

// update advances the current bar, starting a fresh one whenever the
// pipeline moves to the next phase.
func (p *ProgressUI) update(ev transfer.ProgressEvent) {
	if ev.Phase != p.phase {
		p.finish()
		p.phase = ev.Phase
		p.bar = p.newBar(ev)
	}
	if p.bar == nil {
		return
	}
	_ = p.bar.Set64(ev.Bytes)
}

func (p *ProgressUI) newBar(ev transfer.ProgressEvent) *progressbar.ProgressBar {
	description := fmt.Sprintf("%s %s", describe(ev.Phase), p.name)
	total := ev.Total
	if total == transfer.SizeUnknown {
		total = -1 // progressbar renders a spinner for unknown totals
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
}

func (p *ProgressUI) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(os.Stderr)
	p.bar = nil
}

func describe(phase transfer.Phase) string {
	switch phase {
	case transfer.PhaseDownloading:
		return "Staging"
	case transfer.PhaseUploading:
		return "Uploading"
	case transfer.PhaseFinalizing:
		return "Finalizing"
	default:
		return "Transferring"
	}
}
