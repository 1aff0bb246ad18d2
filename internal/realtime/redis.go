package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const channelPrefix = "feed:"

// RedisFeed carries events between server instances over Redis pub/sub.
// Predicates run on the subscriber side.
type RedisFeed struct {
	client  *goredis.Client
	bufSize int
}

// NewRedisFeed connects to Redis and verifies the connection
func NewRedisFeed(cfg Config) (*RedisFeed, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}
	return NewRedisFeedWithClient(client, cfg.BufferSize), nil
}

// NewRedisFeedWithClient wraps an existing client
func NewRedisFeedWithClient(client *goredis.Client, bufSize int) *RedisFeed {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &RedisFeed{client: client, bufSize: bufSize}
}

// Publish serializes ev and publishes it on the table channel
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := f.client.Publish(ctx, channelPrefix+ev.Table, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", channelPrefix+ev.Table, err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning so
// that events published afterwards are not missed.
func (f *RedisFeed) Subscribe(ctx context.Context, table string, match Predicate) (<-chan Event, func(), error) {
	ps := f.client.Subscribe(ctx, channelPrefix+table)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to '%s': %w", channelPrefix+table, err)
	}

	out := make(chan Event, f.bufSize)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				if match != nil && !match(ev) {
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	return out, cancel, nil
}

// Close closes the underlying client
func (f *RedisFeed) Close() error {
	if err := f.client.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}
