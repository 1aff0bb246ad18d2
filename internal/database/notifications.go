package database

import (
	"context"

	"obrolan/server/internal/models"
)

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, actor_id, type, reference_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, read, created_at
	`, n.UserID, n.ActorID, n.Type, n.ReferenceID).Scan(&n.ID, &n.Read, &n.CreatedAt)
	return mapError(err)
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, actor_id, type, reference_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($2, 0)
	`, userID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	notes := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ActorID, &n.Type, &n.ReferenceID, &n.Read, &n.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		notes = append(notes, n)
	}
	return notes, mapError(rows.Err())
}

// MarkNotificationsRead marks ids read, or every unread notification of
// userID when ids is empty.
func (s *Store) MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int64, error) {
	query := "UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read"
	args := []any{userID}
	if len(ids) > 0 {
		query += " AND id = ANY($2)"
		args = append(args, ids)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}
