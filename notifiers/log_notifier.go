package notifiers

import (
	"context"
	"log/slog"
)

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, update PartitionUpdate) error {
	n.logger.InfoContext(ctx, "partition updated",
		"run_id", update.RunID,
		"feed_kind", update.FeedKind,
		"key", update.Key,
		"records", update.Records,
		"feed_timestamp", update.FeedTimestamp,
	)
	return nil
}

func (n *LogNotifier) Close() error { return nil }
