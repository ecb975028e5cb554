package state_stores

import (
	"context"
	"errors"
	"time"

	"github.com/paolobietolini/atac-realtime/config"
	"github.com/redis/go-redis/v9"
	"google.golang.org/protobuf/proto"
)

type RedisStateStore struct {
	ttl    time.Duration
	client *redis.Client
}

func NewRedisStateStore(config config.RedisStateStoreConfig) *RedisStateStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisStateStore{
		ttl:    config.Expiry,
		client: client,
	}
}

func (s *RedisStateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStateStore) Get(ctx context.Context, key string, new func() proto.Message) (proto.Message, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return new(), false, nil
	}
	if err != nil {
		return new(), false, err
	}
	msg := new()
	if err := proto.Unmarshal(data, msg); err != nil {
		return new(), false, err
	}
	return msg, true, nil
}

// Set stores msg; a zero ttl falls back to the configured expiry, and a zero
// expiry keeps the key forever.
func (s *RedisStateStore) Set(ctx context.Context, key string, msg proto.Message, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.ttl
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *RedisStateStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
