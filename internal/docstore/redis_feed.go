package docstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChangeChannel is the pub/sub channel used when none is configured.
const DefaultChangeChannel = "screentime:documents"

// RedisFeed is a ChangeFeed backed by Redis pub/sub.
type RedisFeed struct {
	client  *redis.Client
	channel string
}

// NewRedisFeed connects to the Redis server at url (redis://...). It returns an
// error when the server cannot be reached.
func NewRedisFeed(ctx context.Context, url string) (*RedisFeed, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisFeed{client: client, channel: DefaultChangeChannel}, nil
}

func (f *RedisFeed) Publish(ctx context.Context, path string) error {
	return f.client.Publish(ctx, f.channel, path).Err()
}

func (f *RedisFeed) Listen(ctx context.Context, fn func(path string)) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				slog.Warn("Redis change feed closed", "channel", f.channel)
				return
			}
			fn(msg.Payload)
		}
	}
}

// Close closes the Redis client.
func (f *RedisFeed) Close() error {
	return f.client.Close()
}
