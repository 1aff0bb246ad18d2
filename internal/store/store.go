// Package store declares the persistence contracts shared by the Postgres
// and in-memory backends.
package store

import (
	"context"
	"errors"

	"obrolan/server/internal/models"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("store: conflict")
)

// ContactFilter selects contact rows. Zero fields do not constrain.
// Participant matches rows where the user is either end; Pair matches the
// edge between two users in either direction.
type ContactFilter struct {
	ID          string
	RequesterID string
	TargetID    string
	Status      models.ContactStatus
	Participant string
	Pair        [2]string
}

// HasPair reports whether the filter constrains an unordered pair
func (f ContactFilter) HasPair() bool {
	return f.Pair[0] != "" && f.Pair[1] != ""
}

// Match reports whether c satisfies the filter
func (f ContactFilter) Match(c *models.Contact) bool {
	if f.ID != "" && c.ID != f.ID {
		return false
	}
	if f.RequesterID != "" && c.RequesterID != f.RequesterID {
		return false
	}
	if f.TargetID != "" && c.TargetID != f.TargetID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Participant != "" && !c.Involves(f.Participant) {
		return false
	}
	if f.HasPair() {
		a, b := f.Pair[0], f.Pair[1]
		if !(c.RequesterID == a && c.TargetID == b) && !(c.RequesterID == b && c.TargetID == a) {
			return false
		}
	}
	return true
}

// ContactPatch lists the columns an update rewrites. Zero fields are kept.
type ContactPatch struct {
	RequesterID string
	TargetID    string
	Status      models.ContactStatus
}

// ContactChange pairs a row before and after an update
type ContactChange struct {
	Old models.Contact
	New models.Contact
}

// Contacts is row CRUD on the contacts table
type Contacts interface {
	// ListContacts returns matching edges newest first.
	ListContacts(ctx context.Context, f ContactFilter) ([]models.Contact, error)
	// InsertContact fills ID and CreatedAt. A second edge for the same
	// unordered pair fails with ErrConflict.
	InsertContact(ctx context.Context, c *models.Contact) error
	UpdateContacts(ctx context.Context, f ContactFilter, p ContactPatch) ([]ContactChange, error)
	DeleteContacts(ctx context.Context, f ContactFilter) ([]models.Contact, error)
}

// Profiles is the identity/profile table
type Profiles interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UniqueIDExists(ctx context.Context, uniqueID string) (bool, error)
	// SearchProfiles matches name or email case-insensitively.
	SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) error
	UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error)
	SetOnline(ctx context.Context, id string, online bool) error
}

// Notifications is the notifications table
type Notifications interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int64, error)
}

// Rooms covers rooms, room_members and messages
type Rooms interface {
	// CreateRoom inserts the room and all members in one unit.
	CreateRoom(ctx context.Context, r *models.Room, memberIDs []string) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context, userID string, limit, offset int) ([]models.Room, error)
	ListMemberIDs(ctx context.Context, roomID string) ([]string, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	InsertMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, roomID string, limit, offset int) ([]models.Message, error)
}
