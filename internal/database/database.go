// Package database is the Postgres implementation of the store contracts,
// built on a pgx connection pool.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"obrolan/server/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

// Connect opens a pool against databaseURL and verifies it with a ping
func Connect(ctx context.Context, databaseURL string, log logrus.FieldLogger) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"host":     config.ConnConfig.Host,
		"database": config.ConnConfig.Database,
	}).Info("database connected")
	return pool, nil
}

// Store implements every store contract on one pool
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ store.Contacts      = (*Store)(nil)
	_ store.Profiles      = (*Store)(nil)
	_ store.Notifications = (*Store)(nil)
	_ store.Rooms         = (*Store)(nil)
)

// New wraps pool
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// mapError translates driver errors into store sentinels
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// nullable turns an empty string into SQL NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
