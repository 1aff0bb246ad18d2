package database

import (
	"context"
	"strings"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"

	"github.com/jackc/pgx/v5"
)

const profileColumns = "id, unique_id, email, name, password_hash, avatar, status, is_online, last_seen, created_at, updated_at"

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.UniqueID, &p.Email, &p.Name, &p.Password,
		&p.Avatar, &p.Status, &p.IsOnline, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	return p, mapError(err)
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE LOWER(email) = LOWER($1)`, email))
	return p, mapError(err)
}

func (s *Store) UniqueIDExists(ctx context.Context, uniqueID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM profiles WHERE unique_id = $1)", uniqueID).Scan(&exists)
	return exists, mapError(err)
}

// escapeLike quotes the ILIKE metacharacters in s
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) SearchProfiles(ctx context.Context, query, excludeID string, limit int) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id <> $2 AND (name ILIKE $1 OR email ILIKE $1)
		ORDER BY name, id
		LIMIT NULLIF($3, 0)
	`, "%"+escapeLike(query)+"%", excludeID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, mapError(err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, mapError(rows.Err())
}

func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	if p.Status == "" {
		p.Status = models.PresenceOffline
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (unique_id, email, name, password_hash, avatar, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_online, last_seen, created_at, updated_at
	`, p.UniqueID, p.Email, p.Name, p.Password, p.Avatar, p.Status).
		Scan(&p.ID, &p.IsOnline, &p.LastSeen, &p.CreatedAt, &p.UpdatedAt)
	return mapError(err)
}

func (s *Store) UpdateProfile(ctx context.Context, id string, u models.ProfileUpdate) (*models.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx, `
		UPDATE profiles
		SET name = COALESCE($2, name),
		    status = COALESCE($3, status),
		    avatar = COALESCE($4, avatar),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns, id, u.Name, u.Status, u.Avatar))
	return p, mapError(err)
}

func (s *Store) SetOnline(ctx context.Context, id string, online bool) error {
	tag, err := s.pool.Exec(ctx, "UPDATE profiles SET is_online = $2, last_seen = NOW() WHERE id = $1", id, online)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
