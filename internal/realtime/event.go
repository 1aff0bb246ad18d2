// Package realtime is the row-level change feed. Stores publish an Event for
// every successful mutation; subscribers receive the events of one table that
// pass their predicate.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the kind of row mutation
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Tables published on the feed
const (
	TableContacts      = "contacts"
	TableNotifications = "notifications"
)

// Event is one row mutation. Old is empty for inserts, New is empty for deletes.
type Event struct {
	Table string          `json:"table"`
	Type  EventType       `json:"type"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
	At    time.Time       `json:"at"`
}

// NewEvent encodes the old and new rows. Pass nil for a missing side.
func NewEvent(table string, typ EventType, old, new any) (Event, error) {
	ev := Event{Table: table, Type: typ, At: time.Now()}
	if old != nil {
		data, err := json.Marshal(old)
		if err != nil {
			return Event{}, fmt.Errorf("encode old row: %w", err)
		}
		ev.Old = data
	}
	if new != nil {
		data, err := json.Marshal(new)
		if err != nil {
			return Event{}, fmt.Errorf("encode new row: %w", err)
		}
		ev.New = data
	}
	return ev, nil
}

// DecodeOld unmarshals the old row into v
func (e Event) DecodeOld(v any) error {
	if len(e.Old) == 0 {
		return fmt.Errorf("%s event on %s has no old row", e.Type, e.Table)
	}
	return json.Unmarshal(e.Old, v)
}

// DecodeNew unmarshals the new row into v
func (e Event) DecodeNew(v any) error {
	if len(e.New) == 0 {
		return fmt.Errorf("%s event on %s has no new row", e.Type, e.Table)
	}
	return json.Unmarshal(e.New, v)
}

// Predicate filters events for a subscriber. A nil predicate accepts all.
type Predicate func(Event) bool

// Feed publishes and subscribes to change events.
type Feed interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe delivers matching events of table until cancel is called or
	// ctx is done; the channel is closed afterwards.
	Subscribe(ctx context.Context, table string, match Predicate) (<-chan Event, func(), error)
	Close() error
}

// Config selects and tunes the feed backend
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BufferSize    int
}

// NewFeed returns a Redis-backed feed if RedisAddr is set, otherwise an
// in-process one.
func NewFeed(cfg Config) (Feed, error) {
	if cfg.RedisAddr != "" {
		return NewRedisFeed(cfg)
	}
	return NewLocalFeed(cfg.BufferSize), nil
}
