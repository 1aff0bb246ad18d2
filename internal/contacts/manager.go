// Package contacts owns the lifecycle of the directed contact edge between
// two users (pending, accepted, blocked), the views derived from it, and the
// realtime reconciliation of a client's local copy of those views.
//
// Every operation takes the acting user explicitly. Read paths degrade to
// empty results; write paths return one of the sentinel errors in errors.go.
package contacts

import (
	"context"
	"errors"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"

	"github.com/sirupsen/logrus"
)

// maxWriteAttempts bounds how often a write re-reads the pair after losing a
// race against a concurrent mutation of the same edge.
const maxWriteAttempts = 3

// ProfileReader is the read side of the profile store
type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]models.Profile, error)
}

// NotificationSink receives best-effort notification records
type NotificationSink interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// RoomMembers resolves room membership for room-scoped block calls
type RoomMembers interface {
	ListMemberIDs(ctx context.Context, roomID string) ([]string, error)
}

// Manager implements the contact-edge state machine
type Manager struct {
	contacts      store.Contacts
	profiles      ProfileReader
	notifications NotificationSink
	rooms         RoomMembers
	log           logrus.FieldLogger
}

// NewManager creates a Manager
func NewManager(contacts store.Contacts, profiles ProfileReader, notifications NotificationSink, rooms RoomMembers, log logrus.FieldLogger) *Manager {
	return &Manager{
		contacts:      contacts,
		profiles:      profiles,
		notifications: notifications,
		rooms:         rooms,
		log:           log,
	}
}

// GetRelationshipView returns the viewer's friends and incoming requests.
// Outgoing pending requests and blocked edges appear in neither list. A store
// failure yields empty lists.
func (m *Manager) GetRelationshipView(ctx context.Context, viewerID string) models.RelationshipView {
	if viewerID == "" {
		return models.EmptyRelationshipView()
	}
	view, err := m.relationshipView(ctx, viewerID)
	if err != nil {
		m.log.WithField("viewer", viewerID).WithError(err).Warn("relationship view degraded to empty")
		return models.EmptyRelationshipView()
	}
	return view
}

func (m *Manager) relationshipView(ctx context.Context, viewerID string) (models.RelationshipView, error) {
	view := models.EmptyRelationshipView()

	edges, err := m.contacts.ListContacts(ctx, store.ContactFilter{Participant: viewerID})
	if err != nil {
		return view, err
	}

	for i := range edges {
		edge := &edges[i]
		tag := relationTag(edge, viewerID)
		if tag != models.RelationFriends && tag != models.RelationPendingReceived {
			continue
		}
		entry, ok := m.entryFor(ctx, edge, viewerID)
		if !ok {
			continue
		}
		if tag == models.RelationFriends {
			view.Friends = append(view.Friends, entry)
		} else {
			view.IncomingRequests = append(view.IncomingRequests, entry)
		}
	}
	return view, nil
}

// entryFor resolves the counterpart profile of edge. A failed lookup is a
// data inconsistency: the edge is skipped, not reported.
func (m *Manager) entryFor(ctx context.Context, edge *models.Contact, viewerID string) (models.ContactWithProfile, bool) {
	profile, err := m.profiles.GetProfile(ctx, edge.Counterpart(viewerID))
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"edge":   edge.ID,
			"viewer": viewerID,
		}).WithError(err).Debug("skipping edge with unresolvable counterpart")
		return models.ContactWithProfile{}, false
	}
	createdAt := edge.CreatedAt
	return models.ContactWithProfile{
		RelationshipID: edge.ID,
		Status:         relationTag(edge, viewerID),
		Profile:        profile.ToResponse(),
		CreatedAt:      &createdAt,
	}, true
}

// relationTag classifies edge from the viewer's side. Blocked edges read as
// none so that block state is never revealed.
func relationTag(edge *models.Contact, viewerID string) models.RelationTag {
	switch edge.Status {
	case models.ContactAccepted:
		return models.RelationFriends
	case models.ContactPending:
		if edge.RequesterID == viewerID {
			return models.RelationPendingSent
		}
		return models.RelationPendingReceived
	default:
		return models.RelationNone
	}
}

// findEdge returns the edge between a and b in either direction, or nil
func (m *Manager) findEdge(ctx context.Context, a, b string) (*models.Contact, error) {
	edges, err := m.contacts.ListContacts(ctx, store.ContactFilter{Pair: [2]string{a, b}})
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}
	return &edges[0], nil
}

func validatePair(viewerID, targetID string) error {
	if viewerID == "" {
		return ErrUnauthorized
	}
	if targetID == "" || targetID == viewerID {
		return ErrValidation
	}
	return nil
}

// SendContactRequest creates a pending edge from viewer to target. If target
// already asked viewer, the request is accepted instead. Any other existing
// edge fails with ErrRelationshipExists.
func (m *Manager) SendContactRequest(ctx context.Context, viewerID, targetID string) (*models.Contact, error) {
	if err := validatePair(viewerID, targetID); err != nil {
		return nil, err
	}
	if _, err := m.profiles.GetProfile(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrValidation
		}
		return nil, persistenceError("look up target", err)
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		existing, err := m.findEdge(ctx, viewerID, targetID)
		if err != nil {
			return nil, persistenceError("find edge", err)
		}

		if existing != nil {
			if existing.Status != models.ContactPending || existing.TargetID != viewerID {
				return nil, ErrRelationshipExists
			}
			accepted, err := m.AcceptContactRequest(ctx, viewerID, existing.ID)
			if errors.Is(err, ErrNotFoundOrForbidden) {
				// The edge changed under us; decide again.
				continue
			}
			return accepted, err
		}

		edge := &models.Contact{
			RequesterID: viewerID,
			TargetID:    targetID,
			Status:      models.ContactPending,
		}
		err = m.contacts.InsertContact(ctx, edge)
		if errors.Is(err, store.ErrConflict) {
			// The other side inserted first; decide again.
			continue
		}
		if err != nil {
			return nil, persistenceError("insert edge", err)
		}

		m.notifyRequest(ctx, edge)
		return edge, nil
	}
	return nil, ErrRelationshipExists
}

// notifyRequest records a notification for the request target. Failure never
// rolls back the edge.
func (m *Manager) notifyRequest(ctx context.Context, edge *models.Contact) {
	if m.notifications == nil {
		return
	}
	n := &models.Notification{
		UserID:      edge.TargetID,
		ActorID:     edge.RequesterID,
		Type:        models.NotificationContactRequest,
		ReferenceID: edge.ID,
	}
	if err := m.notifications.InsertNotification(ctx, n); err != nil {
		m.log.WithFields(logrus.Fields{
			"edge":   edge.ID,
			"target": edge.TargetID,
		}).WithError(err).Warn("failed to create contact request notification")
	}
}

// AcceptContactRequest turns a pending edge into a friendship. Only the
// target of the pending edge may accept it.
func (m *Manager) AcceptContactRequest(ctx context.Context, viewerID, edgeID string) (*models.Contact, error) {
	if viewerID == "" {
		return nil, ErrUnauthorized
	}
	if edgeID == "" {
		return nil, ErrValidation
	}

	changes, err := m.contacts.UpdateContacts(ctx,
		store.ContactFilter{ID: edgeID, TargetID: viewerID, Status: models.ContactPending},
		store.ContactPatch{Status: models.ContactAccepted},
	)
	if err != nil {
		return nil, persistenceError("accept edge", err)
	}
	if len(changes) == 0 {
		return nil, ErrNotFoundOrForbidden
	}
	return &changes[0].New, nil
}

// DeclineContactRequest deletes a pending or accepted edge the viewer is part
// of: declining an incoming request, withdrawing an outgoing one, or
// unfriending. Blocked edges are only removed through UnblockIdentity.
func (m *Manager) DeclineContactRequest(ctx context.Context, viewerID, edgeID string) error {
	if viewerID == "" {
		return ErrUnauthorized
	}
	if edgeID == "" {
		return ErrValidation
	}

	edges, err := m.contacts.ListContacts(ctx, store.ContactFilter{ID: edgeID, Participant: viewerID})
	if err != nil {
		return persistenceError("find edge", err)
	}
	if len(edges) == 0 || edges[0].Status == models.ContactBlocked {
		return ErrNotFoundOrForbidden
	}

	deleted, err := m.contacts.DeleteContacts(ctx, store.ContactFilter{
		ID:          edgeID,
		Participant: viewerID,
		Status:      edges[0].Status,
	})
	if err != nil {
		return persistenceError("delete edge", err)
	}
	if len(deleted) == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// Relation returns the edge between a and b, or nil when there is none
func (m *Manager) Relation(ctx context.Context, a, b string) (*models.Contact, error) {
	edge, err := m.findEdge(ctx, a, b)
	if err != nil {
		return nil, persistenceError("find edge", err)
	}
	return edge, nil
}

// CanMessage reports whether a may send direct messages to b. A block in
// either direction forbids it.
func (m *Manager) CanMessage(ctx context.Context, a, b string) (bool, error) {
	edge, err := m.Relation(ctx, a, b)
	if err != nil {
		return false, err
	}
	return edge == nil || edge.Status != models.ContactBlocked, nil
}

// FriendIDs returns the ids of everyone userID has an accepted edge with
func (m *Manager) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	edges, err := m.contacts.ListContacts(ctx, store.ContactFilter{Participant: userID, Status: models.ContactAccepted})
	if err != nil {
		return nil, persistenceError("list friends", err)
	}
	ids := make([]string, 0, len(edges))
	for i := range edges {
		ids = append(ids, edges[i].Counterpart(userID))
	}
	return ids, nil
}
