package store

import (
	"context"

	"obrolan/server/internal/models"
	"obrolan/server/internal/realtime"

	"github.com/sirupsen/logrus"
)

// PublishingContacts emits a change event for every successful mutation of
// the wrapped store. Publish failures are logged; the write stands.
type PublishingContacts struct {
	Contacts
	feed realtime.Feed
	log  logrus.FieldLogger
}

// NewPublishingContacts wraps inner so that mutations reach feed
func NewPublishingContacts(inner Contacts, feed realtime.Feed, log logrus.FieldLogger) *PublishingContacts {
	return &PublishingContacts{Contacts: inner, feed: feed, log: log}
}

func (p *PublishingContacts) InsertContact(ctx context.Context, c *models.Contact) error {
	if err := p.Contacts.InsertContact(ctx, c); err != nil {
		return err
	}
	publish(ctx, p.feed, p.log, realtime.TableContacts, realtime.EventInsert, nil, *c)
	return nil
}

func (p *PublishingContacts) UpdateContacts(ctx context.Context, f ContactFilter, patch ContactPatch) ([]ContactChange, error) {
	changes, err := p.Contacts.UpdateContacts(ctx, f, patch)
	if err != nil {
		return nil, err
	}
	for _, ch := range changes {
		publish(ctx, p.feed, p.log, realtime.TableContacts, realtime.EventUpdate, ch.Old, ch.New)
	}
	return changes, nil
}

func (p *PublishingContacts) DeleteContacts(ctx context.Context, f ContactFilter) ([]models.Contact, error) {
	deleted, err := p.Contacts.DeleteContacts(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, c := range deleted {
		publish(ctx, p.feed, p.log, realtime.TableContacts, realtime.EventDelete, c, nil)
	}
	return deleted, nil
}

// PublishingNotifications emits an insert event for each new notification
type PublishingNotifications struct {
	Notifications
	feed realtime.Feed
	log  logrus.FieldLogger
}

// NewPublishingNotifications wraps inner so that inserts reach feed
func NewPublishingNotifications(inner Notifications, feed realtime.Feed, log logrus.FieldLogger) *PublishingNotifications {
	return &PublishingNotifications{Notifications: inner, feed: feed, log: log}
}

func (p *PublishingNotifications) InsertNotification(ctx context.Context, n *models.Notification) error {
	if err := p.Notifications.InsertNotification(ctx, n); err != nil {
		return err
	}
	publish(ctx, p.feed, p.log, realtime.TableNotifications, realtime.EventInsert, nil, *n)
	return nil
}

func publish(ctx context.Context, feed realtime.Feed, log logrus.FieldLogger, table string, typ realtime.EventType, old, new any) {
	ev, err := realtime.NewEvent(table, typ, old, new)
	if err == nil {
		err = feed.Publish(ctx, ev)
	}
	if err != nil {
		log.WithFields(logrus.Fields{
			"table": table,
			"event": typ,
		}).WithError(err).Warn("failed to publish change event")
	}
}
