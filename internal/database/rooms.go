package database

import (
	"context"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"

	"github.com/jackc/pgx/v5"
)

const roomColumns = "r.id, r.name, r.icon, r.kind, r.created_by, r.created_at, r.updated_at"

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	if err := row.Scan(&r.ID, &r.Name, &r.Icon, &r.Kind, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRoom inserts the room and its members in one transaction. An empty
// r.ID lets the database pick one.
func (s *Store) CreateRoom(ctx context.Context, r *models.Room, memberIDs []string) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO rooms (id, name, icon, kind, created_by)
			VALUES (COALESCE($1, gen_random_uuid()::text), $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, nullable(r.ID), r.Name, r.Icon, r.Kind, r.CreatedBy).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO room_members (room_id, user_id)
			SELECT $1, m FROM UNNEST($2::text[]) AS m
			ON CONFLICT DO NOTHING
		`, r.ID, memberIDs)
		return err
	})
	return mapError(err)
}

func (s *Store) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	r, err := scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.id = $1`, id))
	return r, mapError(err)
}

func (s *Store) ListRooms(ctx context.Context, userID string, limit, offset int) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+`
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY r.updated_at DESC
		LIMIT NULLIF($2, 0) OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, mapError(err)
		}
		rooms = append(rooms, *r)
	}
	return rooms, mapError(rows.Err())
}

func (s *Store) ListMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM rooms WHERE id = $1)", roomID).Scan(&exists); err != nil {
		return nil, mapError(err)
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.pool.Query(ctx, "SELECT user_id FROM room_members WHERE room_id = $1 ORDER BY joined_at, user_id", roomID)
	if err != nil {
		return nil, mapError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err)
	}
	return ids, nil
}

func (s *Store) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)", roomID, userID).Scan(&ok)
	return ok, mapError(err)
}

// InsertMessage stores m and bumps the room's updated_at
func (s *Store) InsertMessage(ctx context.Context, m *models.Message) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "UPDATE rooms SET updated_at = NOW() WHERE id = $1", m.RoomID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return tx.QueryRow(ctx, `
			INSERT INTO messages (room_id, sender_id, content, type)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, m.RoomID, m.SenderID, m.Content, m.Type).Scan(&m.ID, &m.CreatedAt)
	})
	return mapError(err)
}

func (s *Store) ListMessages(ctx context.Context, roomID string, limit, offset int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, sender_id, content, type, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($2, 0) OFFSET $3
	`, roomID, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Type, &m.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		messages = append(messages, m)
	}
	return messages, mapError(rows.Err())
}
