package memory

import (
	"context"
	"testing"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertContactRejectsSecondEdgeForPair(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := &models.Contact{RequesterID: "a", TargetID: "b", Status: models.ContactPending}
	require.NoError(t, s.InsertContact(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	reverse := &models.Contact{RequesterID: "b", TargetID: "a", Status: models.ContactPending}
	assert.ErrorIs(t, s.InsertContact(ctx, reverse), store.ErrConflict)

	rows, err := s.ListContacts(ctx, store.ContactFilter{Pair: [2]string{"b", "a"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].ID)
}

func TestListContactsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, target := range []string{"b", "c", "d"} {
		require.NoError(t, s.InsertContact(ctx, &models.Contact{RequesterID: "a", TargetID: target, Status: models.ContactPending}))
	}
	require.NoError(t, s.InsertContact(ctx, &models.Contact{RequesterID: "x", TargetID: "y", Status: models.ContactPending}))

	rows, err := s.ListContacts(ctx, store.ContactFilter{Participant: "a"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "d", rows[0].TargetID)
	assert.Equal(t, "b", rows[2].TargetID)
}

func TestUpdateContactsReturnsOldAndNew(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := &models.Contact{RequesterID: "b", TargetID: "a", Status: models.ContactPending}
	require.NoError(t, s.InsertContact(ctx, c))

	changes, err := s.UpdateContacts(ctx,
		store.ContactFilter{ID: c.ID},
		store.ContactPatch{RequesterID: "a", TargetID: "b", Status: models.ContactBlocked})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "b", changes[0].Old.RequesterID)
	assert.Equal(t, models.ContactPending, changes[0].Old.Status)
	assert.Equal(t, "a", changes[0].New.RequesterID)
	assert.Equal(t, models.ContactBlocked, changes[0].New.Status)

	none, err := s.UpdateContacts(ctx, store.ContactFilter{ID: c.ID, Status: models.ContactPending}, store.ContactPatch{Status: models.ContactAccepted})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateContactsConflictLeavesRowsUntouched(t *testing.T) {
	s := New()
	ctx := context.Background()

	ab := &models.Contact{RequesterID: "a", TargetID: "b", Status: models.ContactPending}
	ac := &models.Contact{RequesterID: "a", TargetID: "c", Status: models.ContactPending}
	require.NoError(t, s.InsertContact(ctx, ab))
	require.NoError(t, s.InsertContact(ctx, ac))

	// Both rows would land on the (a, c) pair.
	_, err := s.UpdateContacts(ctx,
		store.ContactFilter{RequesterID: "a"},
		store.ContactPatch{TargetID: "c", Status: models.ContactBlocked})
	assert.ErrorIs(t, err, store.ErrConflict)

	rows, err := s.ListContacts(ctx, store.ContactFilter{RequesterID: "a"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, models.ContactPending, r.Status, r.ID)
	}
	byPair, err := s.ListContacts(ctx, store.ContactFilter{Pair: [2]string{"b", "a"}})
	require.NoError(t, err)
	require.Len(t, byPair, 1)
	assert.Equal(t, ab.ID, byPair[0].ID)

	// The pair index still frees and claims keys normally afterwards.
	_, err = s.UpdateContacts(ctx, store.ContactFilter{ID: ab.ID}, store.ContactPatch{TargetID: "d"})
	require.NoError(t, err)
	assert.NoError(t, s.InsertContact(ctx, &models.Contact{RequesterID: "b", TargetID: "a", Status: models.ContactPending}))
	assert.ErrorIs(t, s.InsertContact(ctx, &models.Contact{RequesterID: "d", TargetID: "a", Status: models.ContactPending}), store.ErrConflict)
}

func TestDeleteContactsFreesPair(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := &models.Contact{RequesterID: "a", TargetID: "b", Status: models.ContactBlocked}
	require.NoError(t, s.InsertContact(ctx, c))

	deleted, err := s.DeleteContacts(ctx, store.ContactFilter{ID: c.ID, RequesterID: "b"})
	require.NoError(t, err)
	assert.Empty(t, deleted)

	deleted, err = s.DeleteContacts(ctx, store.ContactFilter{ID: c.ID, RequesterID: "a", Status: models.ContactBlocked})
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	assert.NoError(t, s.InsertContact(ctx, &models.Contact{RequesterID: "b", TargetID: "a", Status: models.ContactPending}))
}

func TestSearchProfiles(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, p := range []models.Profile{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Alicia", Email: "al@example.com"},
		{Name: "Bob", Email: "bob@ALICORN.io"},
		{Name: "Carol", Email: "carol@example.com"},
	} {
		p := p
		require.NoError(t, s.CreateProfile(ctx, &p))
	}
	me, err := s.GetProfileByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)

	res, err := s.SearchProfiles(ctx, "ALI", me.ID, 20)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Alicia", res[0].Name)
	assert.Equal(t, "Bob", res[1].Name)

	res, err = s.SearchProfiles(ctx, "example", "", 2)
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestCreateRoomDedupesMembers(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := &models.Room{Name: "g", Kind: models.RoomGroup, CreatedBy: "a"}
	require.NoError(t, s.CreateRoom(ctx, r, []string{"a", "b", "a", "c"}))

	ids, err := s.ListMemberIDs(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	assert.ErrorIs(t, s.CreateRoom(ctx, &models.Room{ID: r.ID}, nil), store.ErrConflict)

	_, err = s.ListMemberIDs(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
