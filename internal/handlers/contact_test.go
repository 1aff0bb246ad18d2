package handlers

import (
	"net/http"
	"testing"

	"obrolan/server/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relationships(t *testing.T, env *testEnv, s *session) models.RelationshipView {
	t.Helper()
	status, body := env.do(t, http.MethodGet, "/api/v1/contacts", nil, s)
	require.Equal(t, fiber.StatusOK, status)
	var view models.RelationshipView
	decode(t, body, &view)
	return view
}

func TestContactRequestAcceptFlow(t *testing.T) {
	env := newEnv(t, nil)
	alice, bob := env.signup(t, "Alice"), env.signup(t, "Bob")

	status, body := env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": bob.ID}, alice)
	require.Equal(t, fiber.StatusCreated, status, body.Error)
	var edge models.Contact
	decode(t, body, &edge)
	assert.Equal(t, models.ContactPending, edge.Status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": bob.ID}, alice)
	assert.Equal(t, fiber.StatusConflict, status)

	view := relationships(t, env, bob)
	require.Len(t, view.IncomingRequests, 1)
	assert.Equal(t, edge.ID, view.IncomingRequests[0].RelationshipID)
	assert.Equal(t, alice.ID, view.IncomingRequests[0].Profile.ID)
	assert.Equal(t, models.RelationPendingReceived, view.IncomingRequests[0].Status)

	// Only the target may accept.
	status, _ = env.do(t, http.MethodPost, "/api/v1/contacts/requests/"+edge.ID+"/accept", nil, alice)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/contacts/requests/"+edge.ID+"/accept", nil, bob)
	require.Equal(t, fiber.StatusOK, status, body.Error)
	decode(t, body, &edge)
	assert.Equal(t, models.ContactAccepted, edge.Status)

	for _, s := range []*session{alice, bob} {
		view := relationships(t, env, s)
		require.Len(t, view.Friends, 1)
		assert.Empty(t, view.IncomingRequests)
		assert.Equal(t, models.RelationFriends, view.Friends[0].Status)
	}
}

func TestContactRequestValidation(t *testing.T) {
	env := newEnv(t, nil)
	alice := env.signup(t, "Alice")

	status, _ := env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": alice.ID}, alice)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{}, alice)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": "missing"}, alice)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestReverseRequestAcceptsImplicitly(t *testing.T) {
	env := newEnv(t, nil)
	alice, bob := env.signup(t, "Alice"), env.signup(t, "Bob")

	status, _ := env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": bob.ID}, alice)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": alice.ID}, bob)
	require.Equal(t, fiber.StatusCreated, status)
	var edge models.Contact
	decode(t, body, &edge)
	assert.Equal(t, models.ContactAccepted, edge.Status)
	assert.Equal(t, alice.ID, edge.RequesterID)
}

func TestDeclineRemovesRequest(t *testing.T) {
	env := newEnv(t, nil)
	alice, bob, carol := env.signup(t, "Alice"), env.signup(t, "Bob"), env.signup(t, "Carol")

	_, body := env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": bob.ID}, alice)
	var edge models.Contact
	decode(t, body, &edge)

	status, _ := env.do(t, http.MethodDelete, "/api/v1/contacts/"+edge.ID, nil, carol)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = env.do(t, http.MethodDelete, "/api/v1/contacts/"+edge.ID, nil, bob)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Success)
	assert.Empty(t, relationships(t, env, bob).IncomingRequests)

	// The pair is back to no relation, so a new request is allowed.
	status, _ = env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": bob.ID}, alice)
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestBlockAndUnblock(t *testing.T) {
	env := newEnv(t, nil)
	alice, bob := env.signup(t, "Alice"), env.signup(t, "Bob")

	status, body := env.do(t, http.MethodPost, "/api/v1/contacts/blocks", map[string]string{"targetId": bob.ID}, alice)
	require.Equal(t, fiber.StatusOK, status, body.Error)
	var edge models.Contact
	decode(t, body, &edge)
	assert.Equal(t, models.ContactBlocked, edge.Status)
	assert.Equal(t, alice.ID, edge.RequesterID)

	status, _ = env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": alice.ID}, bob)
	assert.Equal(t, fiber.StatusConflict, status)

	// Blocked edges are not removable through decline.
	status, _ = env.do(t, http.MethodDelete, "/api/v1/contacts/"+edge.ID, nil, bob)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/contacts/blocks/"+alice.ID, nil, bob)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/contacts/blocks/"+bob.ID, nil, alice)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": alice.ID}, bob)
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestSearchContactsTagsRelation(t *testing.T) {
	env := newEnv(t, nil)
	alice, bob := env.signup(t, "Alice"), env.signup(t, "Bob")

	status, body := env.do(t, http.MethodGet, "/api/v1/contacts/search?q=b", nil, alice)
	require.Equal(t, fiber.StatusOK, status)
	var results []models.ContactWithProfile
	decode(t, body, &results)
	assert.Empty(t, results)

	env.do(t, http.MethodPost, "/api/v1/contacts/requests", map[string]string{"targetId": bob.ID}, alice)

	status, body = env.do(t, http.MethodGet, "/api/v1/contacts/search?q=bob", nil, alice)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, body, &results)
	require.Len(t, results, 1)
	assert.Equal(t, bob.ID, results[0].Profile.ID)
	assert.Equal(t, models.RelationPendingSent, results[0].Status)

	// The viewer never appears in their own results.
	status, body = env.do(t, http.MethodGet, "/api/v1/contacts/search?q=example.com", nil, alice)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, body, &results)
	require.Len(t, results, 1)
	assert.Equal(t, bob.ID, results[0].Profile.ID)
}
