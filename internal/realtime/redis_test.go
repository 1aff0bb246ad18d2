package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisFeed(t *testing.T, bufSize int) (*RedisFeed, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	f := NewRedisFeedWithClient(client, bufSize)
	t.Cleanup(func() { _ = f.Close() })
	return f, client
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestRedisFeedDeliversMatchingEvents(t *testing.T) {
	f, client := newRedisFeed(t, 16)
	ctx := context.Background()

	onlyInserts := func(ev Event) bool { return ev.Type == EventInsert }
	ch, cancel, err := f.Subscribe(ctx, TableContacts, onlyInserts)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, f.Publish(ctx, mustEvent(t, TableContacts, EventDelete, map[string]string{"id": "1"}, nil)))
	require.NoError(t, f.Publish(ctx, mustEvent(t, TableNotifications, EventInsert, nil, map[string]string{"id": "n"})))
	require.NoError(t, client.Publish(ctx, channelPrefix+TableContacts, "not json").Err())
	require.NoError(t, f.Publish(ctx, mustEvent(t, TableContacts, EventInsert, nil, map[string]string{"id": "2"})))

	ev := receive(t, ch)
	assert.Equal(t, TableContacts, ev.Table)
	assert.Equal(t, EventInsert, ev.Type)
	var row map[string]string
	require.NoError(t, ev.DecodeNew(&row))
	assert.Equal(t, "2", row["id"])

	// Pub/sub delivers in order, so a trailing marker proves nothing else got through.
	require.NoError(t, f.Publish(ctx, mustEvent(t, TableContacts, EventInsert, nil, map[string]string{"id": "3"})))
	require.NoError(t, receive(t, ch).DecodeNew(&row))
	assert.Equal(t, "3", row["id"])
}

func TestRedisFeedFansOutToSubscribers(t *testing.T) {
	f, _ := newRedisFeed(t, 16)
	ctx := context.Background()

	first, cancelFirst, err := f.Subscribe(ctx, TableNotifications, nil)
	require.NoError(t, err)
	defer cancelFirst()
	second, cancelSecond, err := f.Subscribe(ctx, TableNotifications, nil)
	require.NoError(t, err)
	defer cancelSecond()

	require.NoError(t, f.Publish(ctx, mustEvent(t, TableNotifications, EventInsert, nil, map[string]string{"id": "n"})))
	assert.Equal(t, EventInsert, receive(t, first).Type)
	assert.Equal(t, EventInsert, receive(t, second).Type)
}

func TestRedisFeedCancelClosesChannel(t *testing.T) {
	f, _ := newRedisFeed(t, 4)
	ctx := context.Background()

	ch, cancel, err := f.Subscribe(ctx, TableContacts, nil)
	require.NoError(t, err)

	cancel()
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.NoError(t, f.Publish(ctx, mustEvent(t, TableContacts, EventInsert, nil, map[string]string{})))
}

func TestRedisFeedContextCancel(t *testing.T) {
	f, _ := newRedisFeed(t, 4)
	ctx, cancelCtx := context.WithCancel(context.Background())

	ch, cancel, err := f.Subscribe(ctx, TableContacts, nil)
	require.NoError(t, err)
	cancelCtx()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after context cancel")
	}
	cancel()
}

func TestNewFeedSelectsRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	f, err := NewFeed(Config{RedisAddr: mr.Addr(), BufferSize: 8})
	require.NoError(t, err)
	defer f.Close()
	_, ok := f.(*RedisFeed)
	assert.True(t, ok)

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisFeed(Config{RedisAddr: addr})
	assert.Error(t, err)
}
