// Package driver polls every configured feed once per interval.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/event_server"
	"github.com/paolobietolini/atac-realtime/journal"
	"github.com/paolobietolini/atac-realtime/metrics"
	"github.com/paolobietolini/atac-realtime/notifiers"
	"github.com/paolobietolini/atac-realtime/pipelines"
	"github.com/paolobietolini/atac-realtime/sinks"
	"github.com/paolobietolini/atac-realtime/sources"
	"github.com/paolobietolini/atac-realtime/state_stores"
	"github.com/reugn/go-streams/extension"
)

type Driver struct {
	interval  time.Duration
	pipelines []pipelines.Pipeline

	metrics  *metrics.Collector
	journal  journal.Journal
	notifier notifiers.Notifier
	events   *event_server.EventServer
	now      func() time.Time
	newRunID func() string

	stop     chan struct{}
	stopOnce sync.Once
}

type Option func(*Driver)

func WithMetrics(c *metrics.Collector) Option {
	return func(d *Driver) { d.metrics = c }
}

func WithJournal(j journal.Journal) Option {
	return func(d *Driver) {
		if j != nil {
			d.journal = j
		}
	}
}

func WithNotifier(n notifiers.Notifier) Option {
	return func(d *Driver) {
		if n != nil {
			d.notifier = n
		}
	}
}

func WithEventServer(es *event_server.EventServer) Option {
	return func(d *Driver) { d.events = es }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New builds one pipeline per configured feed.
func New(cfg *config.Config, store sinks.PartitionStore, cursors state_stores.StateStore, opts ...Option) (*Driver, error) {
	fetcher := sources.NewHTTPFetcher(cfg.FetchTimeout)
	ps := make([]pipelines.Pipeline, 0, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		p, err := pipelines.NewPipeline(feed, cfg.AlertLanguage, fetcher, store, cursors)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", feed.Kind, err)
		}
		ps = append(ps, p)
	}
	return NewDriver(cfg.PollInterval, ps, opts...), nil
}

func NewDriver(interval time.Duration, ps []pipelines.Pipeline, opts ...Option) *Driver {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	d := &Driver{
		interval:  interval,
		pipelines: ps,
		journal:   journal.NopJournal{},
		notifier:  notifiers.NopNotifier{},
		now:       time.Now,
		newRunID:  func() string { return uuid.New().String() },
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run ticks immediately and then once per interval until ctx is done or Stop
// is called. A tick in progress runs to completion.
func (d *Driver) Run(ctx context.Context) error {
	d.RunOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.stop:
			return nil
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// RunOnce runs every pipeline concurrently and returns their outcomes in
// feed kind order.
func (d *Driver) RunOnce(ctx context.Context) []pipelines.Outcome {
	runID, now := d.newRunID(), d.now()
	if d.metrics != nil {
		d.metrics.ObserveTick()
	}
	slog.Debug("tick", "run_id", runID, "feeds", len(d.pipelines))

	in := make(chan any, len(d.pipelines))
	for _, p := range d.pipelines {
		in <- p
	}
	close(in)

	out := make(chan any)
	extension.NewChanSource(in).
		Via(newCycleFlow(ctx, runID, now)).
		To(extension.NewChanSink(out))

	outcomes := make([]pipelines.Outcome, 0, len(d.pipelines))
	for element := range out {
		outcome, ok := element.(pipelines.Outcome)
		if !ok {
			continue
		}
		d.handle(ctx, outcome)
		outcomes = append(outcomes, outcome)
	}

	slices.SortFunc(outcomes, func(a, b pipelines.Outcome) int {
		return slices.Index(config.FeedKinds, a.Kind) - slices.Index(config.FeedKinds, b.Kind)
	})
	return outcomes
}

func (d *Driver) handle(ctx context.Context, o pipelines.Outcome) {
	switch {
	case o.Err != nil:
		slog.Error("ingest cycle failed",
			"feed_kind", o.Kind,
			"run_id", o.RunID,
			"stage", o.Stage,
			"feed_timestamp", o.FeedTimestamp,
			"error", o.Err,
		)
	case o.Skipped:
		slog.Info("feed unchanged, skipped",
			"feed_kind", o.Kind,
			"run_id", o.RunID,
			"feed_timestamp", o.FeedTimestamp,
		)
	default:
		slog.Info("ingest cycle complete",
			"feed_kind", o.Kind,
			"run_id", o.RunID,
			"feed_timestamp", o.FeedTimestamp,
			"records", o.Records,
			"key", o.Key,
			"duration", o.Duration,
		)
	}

	if d.metrics != nil {
		d.metrics.ObserveOutcome(o)
	}
	if err := d.journal.Record(ctx, o); err != nil {
		slog.Warn("failed to journal ingest run", "feed_kind", o.Kind, "run_id", o.RunID, "error", err)
	}
	if d.events != nil {
		d.events.Publish(o)
	}
	if update, ok := notifiers.UpdateFromOutcome(o); ok {
		if err := d.notifier.Notify(ctx, update); err != nil {
			slog.Warn("failed to publish partition update", "feed_kind", o.Kind, "key", o.Key, "error", err)
		}
	}
}
