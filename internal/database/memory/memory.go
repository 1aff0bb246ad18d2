// Package memory is an in-process implementation of the store contracts,
// used when DATABASE_MODE=memory and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"

	"github.com/google/uuid"
)

type contactRow struct {
	models.Contact
	seq uint64
}

// Store keeps every table in maps guarded by one mutex
type Store struct {
	mu            sync.RWMutex
	seq           uint64
	profiles      map[string]*models.Profile
	contacts      map[string]*contactRow
	pairs         map[[2]string]string
	notifications []*models.Notification
	rooms         map[string]*models.Room
	members       map[string][]models.RoomMember
	messages      map[string][]models.Message
}

var (
	_ store.Contacts      = (*Store)(nil)
	_ store.Profiles      = (*Store)(nil)
	_ store.Notifications = (*Store)(nil)
	_ store.Rooms         = (*Store)(nil)
)

// New creates an empty Store
func New() *Store {
	return &Store{
		profiles: make(map[string]*models.Profile),
		contacts: make(map[string]*contactRow),
		pairs:    make(map[[2]string]string),
		rooms:    make(map[string]*models.Room),
		members:  make(map[string][]models.RoomMember),
		messages: make(map[string][]models.Message),
	}
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

// ---- contacts ----

func (s *Store) ListContacts(_ context.Context, f store.ContactFilter) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.matchContacts(f)
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]models.Contact, len(rows))
	for i, r := range rows {
		out[i] = r.Contact
	}
	return out, nil
}

func (s *Store) matchContacts(f store.ContactFilter) []*contactRow {
	var rows []*contactRow
	for _, r := range s.contacts {
		if f.Match(&r.Contact) {
			rows = append(rows, r)
		}
	}
	return rows
}

func (s *Store) InsertContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(c.RequesterID, c.TargetID)
	if _, ok := s.pairs[key]; ok {
		return store.ErrConflict
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := s.contacts[c.ID]; ok {
		return store.ErrConflict
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.contacts[c.ID] = &contactRow{Contact: *c, seq: s.next()}
	s.pairs[key] = c.ID
	return nil
}

// UpdateContacts patches every matching row or none of them. Pair keys are
// checked against the final state before any row is touched.
func (s *Store) UpdateContacts(_ context.Context, f store.ContactFilter, p store.ContactPatch) ([]store.ContactChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.matchContacts(f)
	owners := make(map[[2]string]string, len(s.pairs))
	for key, id := range s.pairs {
		owners[key] = id
	}
	for _, r := range rows {
		delete(owners, pairKey(r.RequesterID, r.TargetID))
	}

	patched := make([]models.Contact, len(rows))
	for i, r := range rows {
		c := r.Contact
		if p.RequesterID != "" {
			c.RequesterID = p.RequesterID
		}
		if p.TargetID != "" {
			c.TargetID = p.TargetID
		}
		if p.Status != "" {
			c.Status = p.Status
		}
		key := pairKey(c.RequesterID, c.TargetID)
		if _, taken := owners[key]; taken {
			return nil, store.ErrConflict
		}
		owners[key] = c.ID
		patched[i] = c
	}

	var changes []store.ContactChange
	for i, r := range rows {
		changes = append(changes, store.ContactChange{Old: r.Contact, New: patched[i]})
		r.Contact = patched[i]
	}
	s.pairs = owners
	return changes, nil
}

func (s *Store) DeleteContacts(_ context.Context, f store.ContactFilter) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []models.Contact
	for _, r := range s.matchContacts(f) {
		delete(s.contacts, r.ID)
		delete(s.pairs, pairKey(r.RequesterID, r.TargetID))
		deleted = append(deleted, r.Contact)
	}
	return deleted, nil
}

// ---- profiles ----

func (s *Store) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UniqueIDExists(_ context.Context, uniqueID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.UniqueID == uniqueID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SearchProfiles(_ context.Context, query, excludeID string, limit int) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []models.Profile
	for _, p := range s.profiles {
		if p.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Email), q) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.profiles {
		if strings.EqualFold(existing.Email, p.Email) || (p.UniqueID != "" && existing.UniqueID == p.UniqueID) {
			return store.ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := s.profiles[p.ID]; ok {
		return store.ErrConflict
	}
	now := time.Now()
	if p.Status == "" {
		p.Status = models.PresenceOffline
	}
	p.CreatedAt, p.UpdatedAt, p.LastSeen = now, now, now
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Avatar != nil {
		avatar := *u.Avatar
		p.Avatar = &avatar
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (s *Store) SetOnline(_ context.Context, id string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return store.ErrNotFound
	}
	p.IsOnline = online
	p.LastSeen = time.Now()
	return nil
}

// ---- notifications ----

func (s *Store) InsertNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	s.notifications = append(s.notifications, &cp)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID {
			continue
		}
		out = append(out, *n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkNotificationsRead(_ context.Context, userID string, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for _, note := range s.notifications {
		if note.UserID != userID || note.Read {
			continue
		}
		if len(ids) > 0 && !want[note.ID] {
			continue
		}
		note.Read = true
		n++
	}
	return n, nil
}

// ---- rooms ----

func (s *Store) CreateRoom(_ context.Context, r *models.Room, memberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, ok := s.rooms[r.ID]; ok {
		return store.ErrConflict
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	s.rooms[r.ID] = &cp

	seen := make(map[string]bool, len(memberIDs))
	members := make([]models.RoomMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, models.RoomMember{RoomID: r.ID, UserID: id, JoinedAt: now})
	}
	s.members[r.ID] = members
	return nil
}

func (s *Store) GetRoom(_ context.Context, id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRooms(_ context.Context, userID string, limit, offset int) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Room
	for id, members := range s.members {
		for _, m := range members {
			if m.UserID == userID {
				out = append(out, *s.rooms[id])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return page(out, limit, offset), nil
}

func (s *Store) ListMemberIDs(_ context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.rooms[roomID]; !ok {
		return nil, store.ErrNotFound
	}
	ids := make([]string, 0, len(s.members[roomID]))
	for _, m := range s.members[roomID] {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (s *Store) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members[roomID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) InsertMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[m.RoomID]
	if !ok {
		return store.ErrNotFound
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now()
	room.UpdatedAt = m.CreatedAt
	s.messages[m.RoomID] = append(s.messages[m.RoomID], *m)
	return nil
}

func (s *Store) ListMessages(_ context.Context, roomID string, limit, offset int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.messages[roomID]
	out := make([]models.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
