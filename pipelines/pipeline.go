package pipelines

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/feeds"
	"github.com/paolobietolini/atac-realtime/processors"
	"github.com/paolobietolini/atac-realtime/records"
	"github.com/paolobietolini/atac-realtime/sinks"
	"github.com/paolobietolini/atac-realtime/sources"
	"github.com/paolobietolini/atac-realtime/state_stores"
)

// Pipeline runs fetch, decode, flatten and write for one feed kind.
type Pipeline interface {
	Kind() config.FeedKind
	Run(ctx context.Context, runID string, now time.Time) Outcome
}

type pipeline[T records.Record] struct {
	feed    config.FeedConfig
	fetcher sources.Fetcher
	flatten func(*feeds.Snapshot) []T
	writer  *sinks.PartitionWriter[T]
	cursors state_stores.StateStore
}

// NewPipeline builds the pipeline for feed.Kind. cursors may be nil.
func NewPipeline(
	feed config.FeedConfig,
	alertLanguage string,
	fetcher sources.Fetcher,
	store sinks.PartitionStore,
	cursors state_stores.StateStore,
) (Pipeline, error) {
	switch feed.Kind {
	case config.FeedKindVehiclePositions:
		return newPipeline(feed, fetcher, store, cursors, processors.FlattenVehiclePositions), nil
	case config.FeedKindTripUpdates:
		return newPipeline(feed, fetcher, store, cursors, processors.FlattenTripUpdates), nil
	case config.FeedKindAlerts:
		return newPipeline(feed, fetcher, store, cursors, func(s *feeds.Snapshot) []records.AlertRecord {
			return processors.FlattenAlerts(s, alertLanguage)
		}), nil
	default:
		return nil, fmt.Errorf("unknown feed kind %q", feed.Kind)
	}
}

func newPipeline[T records.Record](
	feed config.FeedConfig,
	fetcher sources.Fetcher,
	store sinks.PartitionStore,
	cursors state_stores.StateStore,
	flatten func(*feeds.Snapshot) []T,
) *pipeline[T] {
	return &pipeline[T]{
		feed:    feed,
		fetcher: fetcher,
		flatten: flatten,
		writer:  sinks.NewPartitionWriter[T](store, feed.Kind),
		cursors: cursors,
	}
}

func (p *pipeline[T]) Kind() config.FeedKind {
	return p.feed.Kind
}

// Run never panics out; the partition date is the UTC date of now.
func (p *pipeline[T]) Run(ctx context.Context, runID string, now time.Time) (out Outcome) {
	out = Outcome{RunID: runID, Kind: p.feed.Kind, Start: now}
	began := time.Now()
	stage := StageFetch
	defer func() {
		if r := recover(); r != nil {
			out.Stage = stage
			out.Err = fmt.Errorf("%s: panic: %v", stage, r)
		}
		out.Duration = time.Since(began)
	}()

	data, err := p.fetcher.Fetch(ctx, p.feed.URL)
	if err != nil {
		out.Stage, out.Err = StageFetch, err
		return out
	}
	slog.Debug("fetched feed", "feed_kind", p.feed.Kind, "run_id", runID, "bytes", len(data))

	stage = StageDecode
	snapshot, err := feeds.Decode(data, p.feed.Kind)
	if err != nil {
		out.Stage, out.Err = StageDecode, err
		return out
	}
	out.FeedTimestamp = snapshot.Timestamp

	if p.feed.SkipUnchanged && p.unchanged(ctx, snapshot) {
		out.Skipped = true
		return out
	}

	rows := p.flatten(snapshot)
	out.Records = len(rows)

	stage = StageWrite
	if err := p.writer.Append(ctx, now, rows); err != nil {
		out.Stage, out.Err = StageWrite, err
		return out
	}
	if len(rows) > 0 {
		out.Key = sinks.PartitionKey(p.feed.Kind, now)
	}
	p.saveCursor(ctx, snapshot)
	return out
}

func (p *pipeline[T]) unchanged(ctx context.Context, snapshot *feeds.Snapshot) bool {
	if p.cursors == nil {
		return false
	}
	last, found, err := state_stores.LastHeader(ctx, p.cursors, p.feed.Kind)
	if err != nil {
		slog.Warn("feed cursor unavailable", "feed_kind", p.feed.Kind, "error", err)
		return false
	}
	return found && last.GetTimestamp() == snapshot.Timestamp
}

func (p *pipeline[T]) saveCursor(ctx context.Context, snapshot *feeds.Snapshot) {
	if p.cursors == nil || snapshot.Header == nil {
		return
	}
	if err := state_stores.SaveHeader(ctx, p.cursors, p.feed.Kind, snapshot.Header); err != nil {
		slog.Warn("failed to save feed cursor", "feed_kind", p.feed.Kind, "error", err)
	}
}
