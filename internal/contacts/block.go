package contacts

import (
	"context"
	"errors"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"
)

// BlockIdentity makes viewer the blocker of target. An existing edge is
// rewritten in place, direction included, so the pair never holds two edges.
func (m *Manager) BlockIdentity(ctx context.Context, viewerID, targetID string) (*models.Contact, error) {
	if err := validatePair(viewerID, targetID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		existing, err := m.findEdge(ctx, viewerID, targetID)
		if err != nil {
			return nil, persistenceError("find edge", err)
		}

		if existing != nil {
			changes, err := m.contacts.UpdateContacts(ctx,
				store.ContactFilter{ID: existing.ID},
				store.ContactPatch{RequesterID: viewerID, TargetID: targetID, Status: models.ContactBlocked},
			)
			if err != nil {
				return nil, persistenceError("block edge", err)
			}
			if len(changes) == 0 {
				// Deleted concurrently; insert instead.
				continue
			}
			return &changes[0].New, nil
		}

		edge := &models.Contact{
			RequesterID: viewerID,
			TargetID:    targetID,
			Status:      models.ContactBlocked,
		}
		err = m.contacts.InsertContact(ctx, edge)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, persistenceError("insert blocked edge", err)
		}
		return edge, nil
	}
	return nil, persistenceError("block", errors.New("edge changed on every attempt"))
}

// UnblockIdentity removes the block viewer placed on target. Any other state,
// including being the blocked party, yields ErrNotFoundOrForbidden.
func (m *Manager) UnblockIdentity(ctx context.Context, viewerID, targetID string) error {
	if err := validatePair(viewerID, targetID); err != nil {
		return err
	}

	deleted, err := m.contacts.DeleteContacts(ctx, store.ContactFilter{
		Pair:        [2]string{viewerID, targetID},
		RequesterID: viewerID,
		Status:      models.ContactBlocked,
	})
	if err != nil {
		return persistenceError("unblock", err)
	}
	if len(deleted) == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// BlockInRoom blocks the other participant of a 1:1 room
func (m *Manager) BlockInRoom(ctx context.Context, viewerID, roomID string) (*models.Contact, error) {
	other, err := m.otherParticipant(ctx, viewerID, roomID)
	if err != nil {
		return nil, err
	}
	return m.BlockIdentity(ctx, viewerID, other)
}

// UnblockInRoom unblocks the other participant of a 1:1 room
func (m *Manager) UnblockInRoom(ctx context.Context, viewerID, roomID string) error {
	other, err := m.otherParticipant(ctx, viewerID, roomID)
	if err != nil {
		return err
	}
	return m.UnblockIdentity(ctx, viewerID, other)
}

// otherParticipant returns the single member of roomID that is not viewer.
// The viewer must be a member and the room must have exactly two members.
func (m *Manager) otherParticipant(ctx context.Context, viewerID, roomID string) (string, error) {
	if viewerID == "" {
		return "", ErrUnauthorized
	}
	if roomID == "" {
		return "", ErrValidation
	}

	memberIDs, err := m.rooms.ListMemberIDs(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotFoundOrForbidden
	}
	if err != nil {
		return "", persistenceError("list room members", err)
	}

	var others []string
	isMember := false
	for _, id := range memberIDs {
		if id == viewerID {
			isMember = true
			continue
		}
		others = append(others, id)
	}
	// Outsiders learn nothing about the room, not even its size.
	if !isMember {
		return "", ErrNotFoundOrForbidden
	}
	if len(others) != 1 {
		return "", ErrValidation
	}
	return others[0], nil
}
