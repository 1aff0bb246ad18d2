package contacts

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"obrolan/server/internal/database/memory"
	"obrolan/server/internal/models"
	"obrolan/server/internal/realtime"
	"obrolan/server/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

type fixture struct {
	db   *memory.Store
	feed *realtime.LocalFeed
	m    *Manager
	log  *logrus.Logger
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	feed := realtime.NewLocalFeed(64)
	t.Cleanup(func() { _ = feed.Close() })
	log := quietLogger()
	m := NewManager(store.NewPublishingContacts(db, feed, log), db, db, db, log)
	return &fixture{db: db, feed: feed, m: m, log: log}
}

func (f *fixture) user(t *testing.T, name string) string {
	t.Helper()
	p := &models.Profile{
		Name:  name,
		Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
	}
	require.NoError(t, f.db.CreateProfile(context.Background(), p))
	return p.ID
}

func (f *fixture) edges(t *testing.T, a, b string) []models.Contact {
	t.Helper()
	rows, err := f.db.ListContacts(context.Background(), store.ContactFilter{Pair: [2]string{a, b}})
	require.NoError(t, err)
	return rows
}

func ids(list []models.ContactWithProfile) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Profile.ID)
	}
	return out
}

// failingContacts fails every read
type failingContacts struct {
	store.Contacts
}

func (failingContacts) ListContacts(context.Context, store.ContactFilter) ([]models.Contact, error) {
	return nil, errStoreDown
}

// failingNotifications rejects every insert
type failingNotifications struct{}

func (failingNotifications) InsertNotification(context.Context, *models.Notification) error {
	return errStoreDown
}
