package notifiers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/pipelines"
)

// PartitionUpdate announces rows appended to a partition.
type PartitionUpdate struct {
	RunID         string          `json:"run_id"`
	FeedKind      config.FeedKind `json:"feed_kind"`
	Date          string          `json:"date"`
	Key           string          `json:"key"`
	Records       int             `json:"records"`
	FeedTimestamp uint64          `json:"feed_timestamp"`
}

func (u PartitionUpdate) Marshal() ([]byte, error) {
	return json.Marshal(u)
}

// UpdateFromOutcome returns false when the outcome wrote nothing.
func UpdateFromOutcome(o pipelines.Outcome) (PartitionUpdate, bool) {
	if o.Err != nil || o.Skipped || o.Records == 0 || o.Key == "" {
		return PartitionUpdate{}, false
	}
	return PartitionUpdate{
		RunID:         o.RunID,
		FeedKind:      o.Kind,
		Date:          o.Start.UTC().Format("2006-01-02"),
		Key:           o.Key,
		Records:       o.Records,
		FeedTimestamp: o.FeedTimestamp,
	}, true
}

type Notifier interface {
	Notify(ctx context.Context, update PartitionUpdate) error
	Close() error
}

func NewNotifier(cfg config.NotifierConfig) (Notifier, error) {
	switch cfg.Type {
	case config.NotifierTypeNone, "":
		return NopNotifier{}, nil
	case config.NotifierTypeLog:
		return NewLogNotifier(slog.Default()), nil
	case config.NotifierTypeRedis:
		return NewRedisNotifier(cfg.Redis), nil
	case config.NotifierTypeNATS:
		return NewNATSNotifier(cfg.NATS)
	default:
		return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
	}
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, PartitionUpdate) error { return nil }
func (NopNotifier) Close() error                                  { return nil }
