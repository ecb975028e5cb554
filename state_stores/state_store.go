package state_stores

import (
	"context"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/paolobietolini/atac-realtime/config"
	"google.golang.org/protobuf/proto"
)

type StateStore interface {
	Get(ctx context.Context, key string, new func() proto.Message) (proto.Message, bool, error)
	Set(ctx context.Context, key string, msg proto.Message, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func NewStateStore(cfg config.StateStoreConfig) StateStore {
	if cfg.Type == config.RedisStateStoreType {
		return NewRedisStateStore(cfg.Redis)
	}
	return NewInMemoryStateStore(cfg.InMemory)
}

func CursorKey(kind config.FeedKind) string {
	return "atac:cursor:" + string(kind)
}

// LastHeader returns the header of the last snapshot written for kind.
func LastHeader(ctx context.Context, store StateStore, kind config.FeedKind) (*gtfs.FeedHeader, bool, error) {
	msg, found, err := store.Get(ctx, CursorKey(kind), func() proto.Message { return &gtfs.FeedHeader{} })
	if err != nil || !found {
		return nil, false, err
	}
	header, ok := msg.(*gtfs.FeedHeader)
	if !ok {
		return nil, false, nil
	}
	return header, true, nil
}

func SaveHeader(ctx context.Context, store StateStore, kind config.FeedKind, header *gtfs.FeedHeader) error {
	return store.Set(ctx, CursorKey(kind), header, 0)
}
