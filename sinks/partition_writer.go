package sinks

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/records"
	"github.com/parquet-go/parquet-go"
)

// PartitionWriter appends rows of one feed kind to daily partitions.
// It assumes it is the only writer of its partitions.
type PartitionWriter[T records.Record] struct {
	store PartitionStore
	kind  config.FeedKind
}

func NewPartitionWriter[T records.Record](store PartitionStore, kind config.FeedKind) *PartitionWriter[T] {
	return &PartitionWriter[T]{store: store, kind: kind}
}

func (w *PartitionWriter[T]) Kind() config.FeedKind {
	return w.kind
}

func (w *PartitionWriter[T]) Location(date time.Time) string {
	return w.store.Location(PartitionKey(w.kind, date))
}

// Append merges rows after the existing content of the partition for date
// and replaces it. An empty rows slice leaves storage untouched.
func (w *PartitionWriter[T]) Append(ctx context.Context, date time.Time, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	key := PartitionKey(w.kind, date)
	if err := w.append(ctx, key, rows); err != nil {
		return &WriteError{Kind: w.kind, Key: key, Err: err}
	}
	return nil
}

func (w *PartitionWriter[T]) append(ctx context.Context, key string, rows []T) error {
	existing, ok, err := w.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load partition: %w", err)
	}

	merged := rows
	if ok {
		current, err := ReadRows[T](existing)
		if err != nil {
			return fmt.Errorf("failed to decode existing partition: %w", err)
		}
		merged = make([]T, 0, len(current)+len(rows))
		merged = append(merged, current...)
		merged = append(merged, rows...)
	}

	var buf bytes.Buffer
	if err := parquet.Write(&buf, merged, parquet.Compression(&parquet.Snappy)); err != nil {
		return fmt.Errorf("failed to encode partition: %w", err)
	}
	return w.store.Replace(ctx, key, buf.Bytes())
}

// ReadRows decodes a partition file.
func ReadRows[T records.Record](data []byte) ([]T, error) {
	return parquet.Read[T](bytes.NewReader(data), int64(len(data)))
}
