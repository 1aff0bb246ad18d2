package contacts

import (
	"context"
	"sync"
	"testing"
	"time"

	"obrolan/server/internal/models"
	"obrolan/server/internal/realtime"
	"obrolan/server/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deferredSpawn records background work instead of running it
type deferredSpawn struct {
	mu    sync.Mutex
	tasks []func()
}

func (d *deferredSpawn) spawn(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, f)
}

func (d *deferredSpawn) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

func newEvent(t *testing.T, typ realtime.EventType, old, new any) realtime.Event {
	t.Helper()
	ev, err := realtime.NewEvent(realtime.TableContacts, typ, old, new)
	require.NoError(t, err)
	return ev
}

func TestTouchesUser(t *testing.T) {
	match := TouchesUser("bob")
	edge := models.Contact{ID: "e1", RequesterID: "alice", TargetID: "bob", Status: models.ContactPending}
	other := models.Contact{ID: "e2", RequesterID: "alice", TargetID: "carol", Status: models.ContactPending}

	assert.True(t, match(newEvent(t, realtime.EventInsert, nil, edge)))
	assert.True(t, match(newEvent(t, realtime.EventDelete, edge, nil)))
	assert.False(t, match(newEvent(t, realtime.EventInsert, nil, other)))

	moved := other
	moved.TargetID = "bob"
	assert.True(t, match(newEvent(t, realtime.EventUpdate, other, moved)))
}

func TestReconcilerSplicesAcceptBeforeRefetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

	edge, err := f.m.SendContactRequest(ctx, alice, bob)
	require.NoError(t, err)

	deferred := &deferredSpawn{}
	r := f.m.NewReconciler(f.feed, bob, ReconcilerCallbacks{})
	r.spawn = deferred.spawn
	require.NoError(t, r.Refresh(ctx))
	require.Len(t, r.View().IncomingRequests, 1)

	changes, err := f.db.UpdateContacts(ctx, store.ContactFilter{ID: edge.ID}, store.ContactPatch{Status: models.ContactAccepted})
	require.NoError(t, err)
	require.Len(t, changes, 1)

	r.Apply(ctx, newEvent(t, realtime.EventUpdate, changes[0].Old, changes[0].New))

	view := r.View()
	assert.Empty(t, view.IncomingRequests)
	require.Len(t, view.Friends, 1)
	assert.Equal(t, alice, view.Friends[0].Profile.ID)
	assert.Equal(t, models.RelationFriends, view.Friends[0].Status)
	assert.Equal(t, 1, deferred.count())

	// A replayed event does not duplicate the friend.
	r.Apply(ctx, newEvent(t, realtime.EventUpdate, changes[0].Old, changes[0].New))
	assert.Len(t, r.View().Friends, 1)
}

func TestReconcilerSplicesAcceptForRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

	edge, err := f.m.SendContactRequest(ctx, alice, bob)
	require.NoError(t, err)

	r := f.m.NewReconciler(f.feed, alice, ReconcilerCallbacks{})
	r.spawn = (&deferredSpawn{}).spawn
	require.NoError(t, r.Refresh(ctx))
	assert.Empty(t, r.View().IncomingRequests)

	accepted := *edge
	accepted.Status = models.ContactAccepted
	r.Apply(ctx, newEvent(t, realtime.EventUpdate, *edge, accepted))

	view := r.View()
	require.Len(t, view.Friends, 1)
	assert.Equal(t, bob, view.Friends[0].Profile.ID)
}

func TestReconcilerLogsUpdateWithoutOldRow(t *testing.T) {
	f := newFixture(t)
	f.log.SetLevel(logrus.DebugLevel)
	hook := test.NewLocal(f.log)
	ctx := context.Background()
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

	edge, err := f.m.SendContactRequest(ctx, alice, bob)
	require.NoError(t, err)

	deferred := &deferredSpawn{}
	r := f.m.NewReconciler(f.feed, alice, ReconcilerCallbacks{})
	r.spawn = deferred.spawn
	require.NoError(t, r.Refresh(ctx))
	hook.Reset()

	accepted := *edge
	accepted.Status = models.ContactAccepted
	r.Apply(ctx, newEvent(t, realtime.EventUpdate, nil, accepted))

	assert.Empty(t, r.View().Friends)
	assert.Equal(t, 1, deferred.count(), "a refetch is still scheduled")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, edge.ID, entry.Data["edge"])
	assert.Contains(t, entry.Message, "without old row")
}

func TestReconcilerRemovesDeletedEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "Alice"), f.user(t, "Bob"), f.user(t, "Carol")

	friendship, err := f.m.SendContactRequest(ctx, alice, bob)
	require.NoError(t, err)
	_, err = f.m.AcceptContactRequest(ctx, bob, friendship.ID)
	require.NoError(t, err)
	request, err := f.m.SendContactRequest(ctx, carol, bob)
	require.NoError(t, err)

	r := f.m.NewReconciler(f.feed, bob, ReconcilerCallbacks{})
	r.spawn = (&deferredSpawn{}).spawn
	require.NoError(t, r.Refresh(ctx))
	require.Len(t, r.View().Friends, 1)
	require.Len(t, r.View().IncomingRequests, 1)

	r.Apply(ctx, newEvent(t, realtime.EventDelete, *friendship, nil))
	assert.Empty(t, r.View().Friends)
	assert.Len(t, r.View().IncomingRequests, 1)

	r.Apply(ctx, newEvent(t, realtime.EventDelete, *request, nil))
	assert.Empty(t, r.View().IncomingRequests)
}

func TestReconcilerAnnouncesIncomingRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

	var announced []models.ContactWithProfile
	r := f.m.NewReconciler(f.feed, bob, ReconcilerCallbacks{
		OnIncomingRequest: func(e models.ContactWithProfile) { announced = append(announced, e) },
	})
	r.spawn = func(fn func()) { fn() }

	edge, err := f.m.SendContactRequest(ctx, alice, bob)
	require.NoError(t, err)
	r.Apply(ctx, newEvent(t, realtime.EventInsert, nil, *edge))

	require.Len(t, announced, 1)
	assert.Equal(t, alice, announced[0].Profile.ID)
	assert.Equal(t, models.RelationPendingReceived, announced[0].Status)
	assert.Len(t, r.View().IncomingRequests, 1)

	// The requester's own insert is not announced to them.
	var mine int
	ra := f.m.NewReconciler(f.feed, alice, ReconcilerCallbacks{
		OnIncomingRequest: func(models.ContactWithProfile) { mine++ },
	})
	ra.spawn = func(fn func()) { fn() }
	ra.Apply(ctx, newEvent(t, realtime.EventInsert, nil, *edge))
	assert.Zero(t, mine)
}

func TestReconcilerDropsStaleRefetch(t *testing.T) {
	f := newFixture(t)
	r := f.m.NewReconciler(f.feed, "viewer", ReconcilerCallbacks{})

	newer := models.RelationshipView{
		Friends:          []models.ContactWithProfile{{RelationshipID: "newer"}},
		IncomingRequests: []models.ContactWithProfile{},
	}
	older := models.RelationshipView{
		Friends:          []models.ContactWithProfile{{RelationshipID: "older"}},
		IncomingRequests: []models.ContactWithProfile{},
	}

	assert.True(t, r.install(2, newer))
	assert.False(t, r.install(1, older))
	require.Len(t, r.View().Friends, 1)
	assert.Equal(t, "newer", r.View().Friends[0].RelationshipID)

	assert.True(t, r.install(3, older))
	assert.Equal(t, "older", r.View().Friends[0].RelationshipID)
}

func TestReconcilerRefreshReplacesOptimisticState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

	r := f.m.NewReconciler(f.feed, bob, ReconcilerCallbacks{})
	r.patch(func(v *models.RelationshipView) {
		v.Friends = append(v.Friends, models.ContactWithProfile{RelationshipID: "phantom"})
	})
	require.Len(t, r.View().Friends, 1)

	_, err := f.m.SendContactRequest(ctx, alice, bob)
	require.NoError(t, err)
	require.NoError(t, r.Refresh(ctx))

	view := r.View()
	assert.Empty(t, view.Friends)
	assert.Len(t, view.IncomingRequests, 1)
}

func TestReconcilerRunFollowsFeed(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "Alice"), f.user(t, "Bob")

	incoming := make(chan models.ContactWithProfile, 1)
	r := f.m.NewReconciler(f.feed, bob, ReconcilerCallbacks{
		OnIncomingRequest: func(e models.ContactWithProfile) { incoming <- e },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return f.feed.SubscriberCount(realtime.TableContacts) == 1
	}, 2*time.Second, 10*time.Millisecond)

	edge, err := f.m.SendContactRequest(context.Background(), alice, bob)
	require.NoError(t, err)

	select {
	case e := <-incoming:
		assert.Equal(t, edge.ID, e.RelationshipID)
	case <-time.After(2 * time.Second):
		t.Fatal("incoming request was not announced")
	}

	_, err = f.m.AcceptContactRequest(context.Background(), bob, edge.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v := r.View()
		return len(v.Friends) == 1 && len(v.IncomingRequests) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}
