package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"obrolan/server/internal/contacts"
	"obrolan/server/internal/database/memory"
	"obrolan/server/internal/middleware"
	"obrolan/server/internal/realtime"
	"obrolan/server/internal/rooms"
	"obrolan/server/internal/storage"
	"obrolan/server/internal/store"
	"obrolan/server/internal/translate"
	"obrolan/server/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type testEnv struct {
	app *fiber.App
	db  *memory.Store
}

type session struct {
	ID      string
	cookies []*http.Cookie
}

// newEnv wires the handlers to in-memory services. Handlers share package
// state, so tests using it must not run in parallel.
func newEnv(t *testing.T, translator *translate.Client) *testEnv {
	t.Helper()
	utils.SetJWTSecret("handler-test-secret")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db := memory.New()
	feed := realtime.NewLocalFeed(16)
	t.Cleanup(func() { _ = feed.Close() })

	notificationRows := store.NewPublishingNotifications(db, feed, logger)
	mgr := contacts.NewManager(store.NewPublishingContacts(db, feed, logger), db, notificationRows, db, logger)
	if translator == nil {
		translator = translate.New("", "", "")
	}
	Init(Deps{
		Profiles:      db,
		Notifications: notificationRows,
		Contacts:      mgr,
		Rooms:         rooms.NewService(db, db, mgr, logger),
		Blobs:         storage.NewLocal(t.TempDir(), "http://files.test"),
		Translator:    translator,
		Log:           logger,
	})
	WSHub = nil

	app := fiber.New()
	auth := middleware.AuthMiddleware
	api := app.Group("/api/v1")

	api.Post("/auth/register", Register)
	api.Post("/auth/login", Login)
	api.Post("/auth/refresh", RefreshToken)
	api.Post("/auth/logout", auth, Logout)
	api.Get("/auth/me", auth, GetMe)

	api.Put("/users/me", auth, UpdateProfile)
	api.Get("/users/:userId", auth, GetProfile)

	api.Get("/contacts", auth, GetRelationships)
	api.Get("/contacts/search", auth, SearchContacts)
	api.Post("/contacts/requests", auth, SendContactRequest)
	api.Post("/contacts/requests/:id/accept", auth, AcceptContactRequest)
	api.Post("/contacts/blocks", auth, BlockUser)
	api.Delete("/contacts/blocks/:userId", auth, UnblockUser)
	api.Delete("/contacts/:id", auth, DeclineContactRequest)

	api.Get("/notifications", auth, GetNotifications)
	api.Put("/notifications/read", auth, MarkNotificationsRead)

	api.Get("/rooms", auth, GetRooms)
	api.Post("/rooms/groups", auth, CreateGroup)
	api.Post("/rooms/direct", auth, DirectRoom)
	api.Get("/rooms/vault", auth, VaultRoom)
	api.Get("/rooms/:roomId", auth, GetRoom)
	api.Get("/rooms/:roomId/messages", auth, GetMessages)
	api.Post("/rooms/:roomId/messages", auth, SendMessage)
	api.Post("/rooms/:roomId/block", auth, BlockInRoom)
	api.Delete("/rooms/:roomId/block", auth, UnblockInRoom)

	api.Post("/translate", auth, Translate)
	api.Post("/upload/file", auth, UploadFile)
	api.Post("/upload/avatar", auth, UploadAvatar)
	app.Get("/uploads/:type/:filename", GetFile)

	return &testEnv{app: app, db: db}
}

func (e *testEnv) send(t *testing.T, req *http.Request, s *session) (*http.Response, envelope) {
	t.Helper()
	if s != nil {
		for _, c := range s.cookies {
			req.AddCookie(c)
		}
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

// do sends a JSON request. body may be nil.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, s *session) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, env := e.send(t, req, s)
	return resp.StatusCode, env
}

// signup registers name and returns its authenticated session
func (e *testEnv) signup(t *testing.T, name string) *session {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(
		`{"email":"`+strings.ToLower(name)+`@example.com","password":"password123","name":"`+name+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, env := e.send(t, req, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Error)

	var profile struct {
		ID string `json:"id"`
	}
	decode(t, env, &profile)
	return &session{ID: profile.ID, cookies: resp.Cookies()}
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
}

func cookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
