package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"obrolan/server/internal/contacts"
	"obrolan/server/internal/models"
	"obrolan/server/internal/realtime"

	"github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// Client represents a WebSocket client connection
type Client struct {
	ID       string // User ID
	UniqueID string // User's unique ID (#WORD-123)
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	search    *contacts.SearchSession
	log       logrus.FieldLogger
}

// NewClient creates a new WebSocket client
func NewClient(userID, uniqueID string, conn *websocket.Conn, hub *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:       userID,
		UniqueID: uniqueID,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan []byte, sendBufferSize),
		ctx:      ctx,
		cancel:   cancel,
		log:      hub.log.WithField("user", userID),
	}
	if hub.svc.Contacts != nil {
		c.search = hub.svc.Contacts.NewSearchSession(userID)
	}
	return c
}

// shutdown stops the client's subscriptions and closes Send. The hub calls
// it with its lock held.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.search != nil {
			c.search.Close()
		}
		close(c.Send)
	})
}

// NotificationFor matches notification inserts addressed to userID
func NotificationFor(userID string) realtime.Predicate {
	return func(ev realtime.Event) bool {
		if ev.Type != realtime.EventInsert {
			return false
		}
		var n models.Notification
		return ev.DecodeNew(&n) == nil && n.UserID == userID
	}
}

// follow pushes relationship changes and notifications until the client
// shuts down.
func (c *Client) follow() {
	svc := c.Hub.svc
	if svc.Contacts == nil || svc.Feed == nil {
		return
	}

	reconciler := svc.Contacts.NewReconciler(svc.Feed, c.ID, contacts.ReconcilerCallbacks{
		OnIncomingRequest: func(entry models.ContactWithProfile) {
			c.push(EventContactRequestReceived, entry)
		},
		OnViewChanged: func(view models.RelationshipView) {
			c.push(EventContactsUpdated, view)
		},
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := reconciler.Run(c.ctx); err != nil && c.ctx.Err() == nil {
			c.log.WithError(err).Warn("contact reconciler stopped")
		}
	}()
	go func() {
		defer wg.Done()
		c.followNotifications(svc.Feed)
	}()
	wg.Wait()
}

func (c *Client) followNotifications(feed realtime.Feed) {
	events, cancel, err := feed.Subscribe(c.ctx, realtime.TableNotifications, NotificationFor(c.ID))
	if err != nil {
		c.log.WithError(err).Warn("notification subscription failed")
		return
	}
	defer cancel()

	for ev := range events {
		var n models.Notification
		if err := ev.DecodeNew(&n); err != nil {
			c.log.WithError(err).Warn("undecodable notification event")
			continue
		}
		c.push(EventNotification, n)
	}
}

// ReadPump handles incoming messages from the client
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket read error")
			}
			break
		}

		var incoming IncomingMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.log.WithError(err).Debug("failed to parse message")
			c.push(EventError, ErrorPayload{Code: "bad_message", Message: "message is not valid JSON"})
			continue
		}

		c.handleIncomingMessage(incoming)
	}
}

// WritePump handles outgoing messages to the client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Debug("websocket write error")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleIncomingMessage processes different types of incoming messages
func (c *Client) handleIncomingMessage(msg IncomingMessage) {
	switch msg.Type {
	case EventTypingStart, EventTypingStop:
		roomID, _ := msg.Payload["roomId"].(string)
		c.handleTyping(msg.Type, roomID)
	case EventContactSearch:
		query, _ := msg.Payload["query"].(string)
		go c.handleSearch(query)
	default:
		c.push(EventError, ErrorPayload{Code: "unknown_event", Message: "unknown event type " + string(msg.Type)})
	}
}

// handleTyping relays a typing indicator to the other members of roomID
func (c *Client) handleTyping(typ EventType, roomID string) {
	if roomID == "" || c.Hub.svc.Rooms == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()

	members, err := c.Hub.svc.Rooms.ListMemberIDs(ctx, roomID)
	if err != nil {
		c.log.WithField("room", roomID).WithError(err).Debug("typing for unknown room")
		return
	}

	member := false
	others := make([]string, 0, len(members))
	for _, id := range members {
		if id == c.ID {
			member = true
			continue
		}
		others = append(others, id)
	}
	if !member {
		return
	}
	c.Hub.BroadcastToUsers(others, NewMessage(typ, TypingPayload{UserID: c.ID, RoomID: roomID}))
}

// handleSearch runs a contact search. A result superseded by a newer query
// is not sent.
func (c *Client) handleSearch(query string) {
	if c.search == nil {
		return
	}
	results, ok := c.search.Search(c.ctx, query)
	if !ok {
		return
	}
	c.push(EventContactSearchResult, SearchResultPayload{Query: strings.TrimSpace(query), Results: results})
}

// push queues an event for this client
func (c *Client) push(typ EventType, payload interface{}) {
	if err := c.SendMessage(NewMessage(typ, payload)); err != nil {
		c.log.WithError(err).Error("failed to marshal event")
	}
}

// SendMessage sends a message to the client
func (c *Client) SendMessage(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.Hub.deliver(c, data)
	return nil
}
