// Package rooms manages chat rooms: groups, deterministic 1:1 rooms, each
// user's vault, membership and room messages.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"
	"obrolan/server/internal/utils"

	"github.com/sirupsen/logrus"
)

// ErrNotFound covers both a missing room and a room the viewer is not in.
var (
	ErrValidation  = errors.New("rooms: invalid input")
	ErrNotFound    = errors.New("rooms: room not found")
	ErrBlocked     = errors.New("rooms: messaging blocked between participants")
	ErrPersistence = errors.New("rooms: persistence failure")
)

const (
	MaxGroupName     = 100
	MaxMessageLength = 4000
	DefaultPageSize  = 50
	MaxPageSize      = 200
)

// ProfileReader resolves member profiles
type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

// Relations answers whether two users may exchange direct messages
type Relations interface {
	CanMessage(ctx context.Context, a, b string) (bool, error)
}

// Service implements room operations
type Service struct {
	rooms     store.Rooms
	profiles  ProfileReader
	relations Relations
	log       logrus.FieldLogger
}

// NewService creates a Service
func NewService(rooms store.Rooms, profiles ProfileReader, relations Relations, log logrus.FieldLogger) *Service {
	return &Service{rooms: rooms, profiles: profiles, relations: relations, log: log}
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// CreateGroup creates a group room holding the creator and memberIDs. The
// room and all memberships are written together.
func (s *Service) CreateGroup(ctx context.Context, creatorID, name string, icon *string, memberIDs []string) (*models.RoomWithMembers, error) {
	name = strings.TrimSpace(name)
	if creatorID == "" || name == "" || len([]rune(name)) > MaxGroupName {
		return nil, ErrValidation
	}

	ids := []string{creatorID}
	seen := map[string]bool{creatorID: true}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, ErrValidation
	}

	members, err := s.resolveMembers(ctx, ids)
	if err != nil {
		return nil, err
	}

	room := &models.Room{Name: name, Icon: icon, Kind: models.RoomGroup, CreatedBy: creatorID}
	if err := s.rooms.CreateRoom(ctx, room, ids); err != nil {
		return nil, persistence("create group", err)
	}

	s.log.WithFields(logrus.Fields{
		"room":    room.ID,
		"creator": creatorID,
		"members": len(ids),
	}).Info("group created")
	return &models.RoomWithMembers{Room: *room, Members: members}, nil
}

// resolveMembers loads every profile in ids. An unknown id is a validation
// error.
func (s *Service) resolveMembers(ctx context.Context, ids []string) ([]models.ProfileResponse, error) {
	members := make([]models.ProfileResponse, 0, len(ids))
	for _, id := range ids {
		p, err := s.profiles.GetProfile(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrValidation
		}
		if err != nil {
			return nil, persistence("load member", err)
		}
		members = append(members, p.ToResponse())
	}
	return members, nil
}

// DirectRoom returns the 1:1 room of a and b, creating it on first use. Its
// id is derived from the pair, so both sides always land in the same room.
func (s *Service) DirectRoom(ctx context.Context, a, b string) (*models.Room, error) {
	if a == "" || b == "" || a == b {
		return nil, ErrValidation
	}
	if _, err := s.resolveMembers(ctx, []string{b}); err != nil {
		return nil, err
	}
	return s.ensureRoom(ctx, &models.Room{
		ID:        utils.DirectRoomID(a, b),
		Kind:      models.RoomDirect,
		CreatedBy: a,
	}, []string{a, b})
}

// VaultRoom returns userID's private notes room, creating it on first use
func (s *Service) VaultRoom(ctx context.Context, userID string) (*models.Room, error) {
	if userID == "" {
		return nil, ErrValidation
	}
	return s.ensureRoom(ctx, &models.Room{
		ID:        utils.VaultRoomID(userID),
		Name:      "Vault",
		Kind:      models.RoomVault,
		CreatedBy: userID,
	}, []string{userID})
}

func (s *Service) ensureRoom(ctx context.Context, room *models.Room, memberIDs []string) (*models.Room, error) {
	existing, err := s.rooms.GetRoom(ctx, room.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, persistence("get room", err)
	}

	err = s.rooms.CreateRoom(ctx, room, memberIDs)
	if errors.Is(err, store.ErrConflict) {
		// Created concurrently by the other participant.
		existing, err = s.rooms.GetRoom(ctx, room.ID)
		if err != nil {
			return nil, persistence("get room", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, persistence("create room", err)
	}
	return room, nil
}

// ListRooms returns the rooms userID belongs to, most recently active first
func (s *Service) ListRooms(ctx context.Context, userID string, limit, offset int) ([]models.Room, error) {
	if userID == "" {
		return nil, ErrValidation
	}
	rooms, err := s.rooms.ListRooms(ctx, userID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, persistence("list rooms", err)
	}
	return rooms, nil
}

// requireMember returns the member ids of roomID after checking that viewer
// is one of them.
func (s *Service) requireMember(ctx context.Context, viewerID, roomID string) ([]string, error) {
	if viewerID == "" || roomID == "" {
		return nil, ErrValidation
	}
	ids, err := s.rooms.ListMemberIDs(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistence("list members", err)
	}
	for _, id := range ids {
		if id == viewerID {
			return ids, nil
		}
	}
	return nil, ErrNotFound
}

// Room returns roomID with its member profiles
func (s *Service) Room(ctx context.Context, viewerID, roomID string) (*models.RoomWithMembers, error) {
	ids, err := s.requireMember(ctx, viewerID, roomID)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, persistence("get room", err)
	}

	members := make([]models.ProfileResponse, 0, len(ids))
	for _, id := range ids {
		p, err := s.profiles.GetProfile(ctx, id)
		if err != nil {
			s.log.WithField("room", roomID).WithError(err).Debug("skipping unresolvable member")
			continue
		}
		members = append(members, p.ToResponse())
	}
	return &models.RoomWithMembers{Room: *room, Members: members}, nil
}

// Recipients returns the members of roomID other than senderID
func (s *Service) Recipients(ctx context.Context, roomID, senderID string) ([]string, error) {
	ids, err := s.rooms.ListMemberIDs(ctx, roomID)
	if err != nil {
		return nil, persistence("list members", err)
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != senderID {
			out = append(out, id)
		}
	}
	return out, nil
}

// SendMessage posts content into roomID. The sender must be a member; in a
// direct room a block in either direction refuses the message.
func (s *Service) SendMessage(ctx context.Context, senderID, roomID, content, msgType string) (*models.MessageWithSender, error) {
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > MaxMessageLength {
		return nil, ErrValidation
	}
	if msgType == "" {
		msgType = models.MessageText
	}
	if !validMessageType(msgType) {
		return nil, ErrValidation
	}

	ids, err := s.requireMember(ctx, senderID, roomID)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, persistence("get room", err)
	}
	if room.Kind == models.RoomDirect {
		for _, other := range ids {
			if other == senderID {
				continue
			}
			ok, err := s.relations.CanMessage(ctx, senderID, other)
			if err != nil {
				return nil, persistence("check relation", err)
			}
			if !ok {
				return nil, ErrBlocked
			}
		}
	}

	sender, err := s.profiles.GetProfile(ctx, senderID)
	if err != nil {
		return nil, persistence("load sender", err)
	}

	msg := &models.Message{RoomID: roomID, SenderID: senderID, Content: content, Type: msgType}
	if err := s.rooms.InsertMessage(ctx, msg); err != nil {
		return nil, persistence("insert message", err)
	}
	return &models.MessageWithSender{Message: *msg, Sender: sender.ToResponse()}, nil
}

// ListMessages returns a page of roomID's messages, newest first
func (s *Service) ListMessages(ctx context.Context, viewerID, roomID string, limit, offset int) ([]models.Message, error) {
	if _, err := s.requireMember(ctx, viewerID, roomID); err != nil {
		return nil, err
	}
	msgs, err := s.rooms.ListMessages(ctx, roomID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, persistence("list messages", err)
	}
	return msgs, nil
}

func validMessageType(t string) bool {
	switch t {
	case models.MessageText, models.MessageImage, models.MessageFile:
		return true
	}
	return false
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPageSize)
}
