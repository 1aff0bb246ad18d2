package database

import (
	"context"
	"fmt"
	"strings"

	"obrolan/server/internal/models"
	"obrolan/server/internal/store"

	"github.com/jackc/pgx/v5"
)

const contactColumns = "id, requester_id, target_id, status, created_at"

// contactWhere renders f as a WHERE clause whose placeholders continue after
// the ones already in args.
func contactWhere(f store.ContactFilter, args []any) (string, []any) {
	var conds []string
	next := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	if f.ID != "" {
		conds = append(conds, fmt.Sprintf("id = $%d", next(f.ID)))
	}
	if f.RequesterID != "" {
		conds = append(conds, fmt.Sprintf("requester_id = $%d", next(f.RequesterID)))
	}
	if f.TargetID != "" {
		conds = append(conds, fmt.Sprintf("target_id = $%d", next(f.TargetID)))
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", next(string(f.Status))))
	}
	if f.Participant != "" {
		n := next(f.Participant)
		conds = append(conds, fmt.Sprintf("(requester_id = $%d OR target_id = $%d)", n, n))
	}
	if f.HasPair() {
		a, b := next(f.Pair[0]), next(f.Pair[1])
		conds = append(conds, fmt.Sprintf(
			"((requester_id = $%d AND target_id = $%d) OR (requester_id = $%d AND target_id = $%d))", a, b, b, a))
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

func scanContact(row pgx.Row, c *models.Contact) error {
	var status string
	if err := row.Scan(&c.ID, &c.RequesterID, &c.TargetID, &status, &c.CreatedAt); err != nil {
		return err
	}
	c.Status = models.ContactStatus(status)
	return nil
}

func collectContacts(rows pgx.Rows) ([]models.Contact, error) {
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := scanContact(rows, &c); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *Store) ListContacts(ctx context.Context, f store.ContactFilter) ([]models.Contact, error) {
	where, args := contactWhere(f, nil)
	rows, err := s.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC
	`, args...)
	if err != nil {
		return nil, mapError(err)
	}
	contacts, err := collectContacts(rows)
	return contacts, mapError(err)
}

func (s *Store) InsertContact(ctx context.Context, c *models.Contact) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (requester_id, target_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.RequesterID, c.TargetID, string(c.Status)).Scan(&c.ID, &c.CreatedAt)
	return mapError(err)
}

// UpdateContacts locks the matching rows, rewrites them and returns both
// images of every row.
func (s *Store) UpdateContacts(ctx context.Context, f store.ContactFilter, p store.ContactPatch) ([]store.ContactChange, error) {
	args := []any{nullable(p.RequesterID), nullable(p.TargetID), nullable(string(p.Status))}
	where, args := contactWhere(f, args)

	var changes []store.ContactChange
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE contacts c
			SET requester_id = COALESCE($1, c.requester_id),
			    target_id    = COALESCE($2, c.target_id),
			    status       = COALESCE($3, c.status)
			FROM (
				SELECT `+contactColumns+`
				FROM contacts
				WHERE `+where+`
				FOR UPDATE
			) o
			WHERE c.id = o.id
			RETURNING o.id, o.requester_id, o.target_id, o.status, o.created_at,
			          c.id, c.requester_id, c.target_id, c.status, c.created_at
		`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ch store.ContactChange
			var oldStatus, newStatus string
			if err := rows.Scan(
				&ch.Old.ID, &ch.Old.RequesterID, &ch.Old.TargetID, &oldStatus, &ch.Old.CreatedAt,
				&ch.New.ID, &ch.New.RequesterID, &ch.New.TargetID, &newStatus, &ch.New.CreatedAt,
			); err != nil {
				return err
			}
			ch.Old.Status = models.ContactStatus(oldStatus)
			ch.New.Status = models.ContactStatus(newStatus)
			changes = append(changes, ch)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapError(err)
	}
	return changes, nil
}

func (s *Store) DeleteContacts(ctx context.Context, f store.ContactFilter) ([]models.Contact, error) {
	where, args := contactWhere(f, nil)
	rows, err := s.pool.Query(ctx, `
		DELETE FROM contacts
		WHERE `+where+`
		RETURNING `+contactColumns, args...)
	if err != nil {
		return nil, mapError(err)
	}
	contacts, err := collectContacts(rows)
	return contacts, mapError(err)
}
