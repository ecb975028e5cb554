package sinks

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/paolobietolini/atac-realtime/config"
)

// PartitionStore holds whole partition files addressed by key.
type PartitionStore interface {
	// Load returns the partition content, or ok=false when it does not exist.
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Replace swaps the partition content in one step: readers see either
	// the old or the new bytes, never a mix.
	Replace(ctx context.Context, key string, data []byte) error
	// Location is a human readable address for key.
	Location(key string) string
}

// WriteError reports a partition append that did not persist. The partition
// keeps its previous content.
type WriteError struct {
	Kind config.FeedKind
	Key  string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s partition %s: %v", e.Kind, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// PartitionKey is "<feed_kind>/<YYYY-MM-DD>.parquet" for the UTC date of t.
func PartitionKey(kind config.FeedKind, t time.Time) string {
	return path.Join(string(kind), t.UTC().Format(time.DateOnly)+".parquet")
}

func NewPartitionStore(ctx context.Context, cfg config.Config) (PartitionStore, error) {
	switch cfg.Storage.Type {
	case config.StorageTypeFileSystem, "":
		return NewFileSystemStore(cfg.OutputDirectory), nil
	case config.StorageTypeBucket:
		return NewBucketStore(ctx, cfg.Storage.Bucket)
	}
	return nil, fmt.Errorf("invalid storage type: %s", cfg.Storage.Type)
}
