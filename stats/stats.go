package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Stage string

const (
	StageTraverse Stage = "traverse"
	StageFilter   Stage = "filter"
	StagePersist  Stage = "persist"
)

type EventType string

const (
	EventTypeFolderScanned EventType = "folder_scanned"
	EventTypeFolderSkipped EventType = "folder_skipped"
	EventTypeScanned       EventType = "scanned"
	EventTypeMatched       EventType = "matched"
	EventTypeRejected      EventType = "rejected"
	EventTypeSaved         EventType = "saved"
	EventTypeError         EventType = "error"
)

type Event struct {
	Stage  Stage
	Type   EventType
	Folder string
	ItemID string
	Err    error
	Detail string
}

type Summary struct {
	FoldersScanned int
	FoldersSkipped int
	Scanned        int
	Matched        int
	Rejected       int
	Saved          int
	Errors         int
	LastError      error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"foldersScanned", s.FoldersScanned,
		"foldersSkipped", s.FoldersSkipped,
		"scanned", s.Scanned,
		"matched", s.Matched,
		"rejected", s.Rejected,
		"saved", s.Saved,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.Apply(evt)
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// Apply folds one event into the summary.
func (c *Collector) Apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeFolderScanned:
		c.summary.FoldersScanned++
	case EventTypeFolderSkipped:
		c.summary.FoldersSkipped++
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeMatched:
		c.summary.Matched++
	case EventTypeRejected:
		c.summary.Rejected++
	case EventTypeSaved:
		c.summary.Saved++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

type EventStream interface {
	SubscribeStats(name string, fn func(context.Context, <-chan Event) error)
}

type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(stream EventStream, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		collector: NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
	stream.SubscribeStats("stats-reporter", reporter.consume)
	return reporter
}

func (r *Reporter) consume(ctx context.Context, events <-chan Event) error {
	r.collector.Run(ctx, events)
	summary := r.collector.Snapshot()
	attrs := append(summary.LogAttrs(), "duration", time.Since(r.started))
	if ctx.Err() != nil {
		if r.logger != nil {
			r.logger.Debug("stats collection stopped", append(attrs, "err", ctx.Err())...)
		}
		return ctx.Err()
	}
	if r.logger != nil {
		r.logger.Info("scan summary", attrs...)
	}
	return nil
}

func (r *Reporter) Summary() Summary {
	return r.collector.Snapshot()
}
