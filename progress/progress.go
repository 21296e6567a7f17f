package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/griffgriff5000/Spotlight-on-Outlook/stats"
)

// Spinner shows live scan progress. The total item count is unknown until
// the scan ends, so a spinner with running counters stands in for a bar.
type Spinner struct {
	spinner *pterm.SpinnerPrinter
	scanned int
	matched int
	mu      sync.Mutex
	enabled bool
}

// New creates a spinner when logLevel is "info"; any other level keeps the
// terminal quiet and leaves reporting to the structured log.
func New(logLevel string) *Spinner {
	enabled := logLevel == "info"

	s := &Spinner{enabled: enabled}
	if enabled {
		sp, _ := pterm.DefaultSpinner.Start("Scanning...")
		s.spinner = sp
	}
	return s
}

// Update advances the counters for one event.
func (s *Spinner) Update(evt stats.Event) {
	if !s.enabled || s.spinner == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeScanned:
		s.scanned++
		s.spinner.UpdateText(fmt.Sprintf("Scanning %s (%d scanned, %d matched)", evt.Folder, s.scanned, s.matched))
	case stats.EventTypeMatched:
		s.matched++
	case stats.EventTypeFolderScanned:
		pterm.Info.Printf("Scanned folder %s\n", evt.Folder)
	case stats.EventTypeFolderSkipped:
		pterm.Warning.Printf("Skipped folder %s: %v\n", evt.Folder, evt.Err)
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the spinner.
func (s *Spinner) Stop() {
	if !s.enabled || s.spinner == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.spinner.Stop()
}

// Reporter pairs the spinner with a stats collector and prints the final
// summary once the stream closes.
type Reporter struct {
	spinner   *Spinner
	collector *stats.Collector
	logger    *slog.Logger
	started   time.Time
}

// NewReporter subscribes one consumer that drives the spinner and the
// summary collector off the same stream. The runner hands each event to a
// single subscriber, so the two must share.
func NewReporter(stream stats.EventStream, spinner *Spinner, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		spinner:   spinner,
		collector: stats.NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
	stream.SubscribeStats("progress", reporter.consume)
	return reporter
}

func (pr *Reporter) consume(ctx context.Context, events <-chan stats.Event) error {
	for {
		select {
		case <-ctx.Done():
			pr.spinner.Stop()
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				pr.finish()
				return nil
			}
			pr.spinner.Update(evt)
			pr.collector.Apply(evt)
		}
	}
}

func (pr *Reporter) finish() {
	pr.spinner.Stop()
	summary := pr.collector.Snapshot()
	duration := time.Since(pr.started)

	pterm.Println()
	pterm.DefaultSection.Println("Scan Summary")
	pterm.Info.Printf("Duration: %v\n", duration)
	pterm.Info.Printf("Folders scanned: %d (skipped %d)\n", summary.FoldersScanned, summary.FoldersSkipped)
	pterm.Info.Printf("Items scanned: %d\n", summary.Scanned)
	pterm.Info.Printf("Emails matched: %d\n", summary.Matched)
	pterm.Info.Printf("Attachments saved: %d\n", summary.Saved)
	pterm.Info.Printf("Errors: %d\n", summary.Errors)
	if summary.LastError != nil {
		pterm.Error.Printf("Last error: %v\n", summary.LastError)
	}
}

// Summary exposes the collected totals.
func (pr *Reporter) Summary() stats.Summary {
	return pr.collector.Snapshot()
}
