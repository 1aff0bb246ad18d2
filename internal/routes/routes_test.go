package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRoutes(t *testing.T) {
	app := fiber.New()
	SetupRoutes(app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	protected := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/contacts"},
		{http.MethodPost, "/api/v1/contacts/requests"},
		{http.MethodPost, "/api/v1/contacts/requests/abc/accept"},
		{http.MethodDelete, "/api/v1/contacts/abc"},
		{http.MethodPost, "/api/v1/contacts/blocks"},
		{http.MethodGet, "/api/v1/rooms"},
		{http.MethodPost, "/api/v1/rooms/abc/block"},
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodPost, "/api/v1/translate"},
		{http.MethodGet, "/api/v1/ws"},
	}
	for _, r := range protected {
		resp, err := app.Test(httptest.NewRequest(r.method, r.path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "%s %s", r.method, r.path)
	}
}
