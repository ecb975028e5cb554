package notifiers

import (
	"context"

	"github.com/paolobietolini/atac-realtime/config"
	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes updates on a pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(cfg config.RedisNotifierConfig) *RedisNotifier {
	return &RedisNotifier{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		channel: cfg.Channel,
	}
}

func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

func (n *RedisNotifier) Notify(ctx context.Context, update PartitionUpdate) error {
	data, err := update.Marshal()
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, data).Err()
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
