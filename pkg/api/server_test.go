package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjlangley/social-golf-spa/pkg/apierrors"
	"github.com/sjlangley/social-golf-spa/pkg/auth"
	"github.com/sjlangley/social-golf-spa/pkg/docstore"
	"github.com/sjlangley/social-golf-spa/pkg/middleware"
	"github.com/sjlangley/social-golf-spa/pkg/observability"
	"github.com/sjlangley/social-golf-spa/pkg/rbac"
	"github.com/sjlangley/social-golf-spa/pkg/users"
)

// tokenVerifier maps fixed bearer tokens to identities.
type tokenVerifier map[string]*auth.Identity

func (v tokenVerifier) Verify(_ context.Context, rawToken string) (*auth.Identity, error) {
	identity, ok := v[rawToken]
	if !ok {
		return nil, apierrors.Unauthorized("invalid token", nil)
	}
	clone := *identity
	return &clone, nil
}

type listResponse struct {
	Users      []*users.User `json:"users"`
	NextCursor string        `json:"next_cursor"`
}

func testServer(t *testing.T) (*Server, docstore.Store) {
	t.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	seed := []struct {
		id    string
		roles []interface{}
	}{
		{"alice", []interface{}{"reader"}},
		{"bob", []interface{}{"writer"}},
		{"carol", nil},
	}
	for i, u := range seed {
		data := map[string]interface{}{
			"userid": u.id,
			"email":  fmt.Sprintf("%s@example.com", u.id),
			"name":   fmt.Sprintf("User %d", i),
		}
		if u.roles != nil {
			data["roles"] = u.roles
		}
		require.NoError(t, store.Set(ctx, users.Collection, u.id, data))
	}

	verifier := tokenVerifier{
		"alice-token": {UserID: "alice", Email: "alice@example.com"},
		"bob-token":   {UserID: "bob", Email: "bob@example.com"},
		"carol-token": {UserID: "carol", Email: "carol@example.com"},
	}

	svc := users.NewService(store, logger, nil, 16, 0)
	engine := rbac.NewEngine(rbac.DefaultConfig(), logger)

	server := NewServer(Options{
		Users:       svc,
		Engine:      engine,
		Auth:        middleware.NewAuth(verifier, svc, logger, nil),
		Logger:      logger,
		CORSOrigins: []string{"https://golf.example.com"},
	})
	return server, store
}

func get(t *testing.T, server *Server, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	return rr
}

func TestListUsersRequiresAuth(t *testing.T) {
	server, _ := testServer(t)

	rr := get(t, server, "/api/v1/users", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "authorization header missing")

	rr = get(t, server, "/api/v1/users", "unknown-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListUsersRequiresScope(t *testing.T) {
	server, _ := testServer(t)

	// carol has no roles, so no role implies users:read.
	rr := get(t, server, "/api/v1/users", "carol-token")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "users:read")
}

func TestListUsers(t *testing.T) {
	server, _ := testServer(t)

	rr := get(t, server, "/api/v1/users", "alice-token")
	require.Equal(t, http.StatusOK, rr.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Users, 3)
	assert.Equal(t, "alice", body.Users[0].UserID)
	assert.Empty(t, body.NextCursor)
}

func TestListUsersPagination(t *testing.T) {
	server, store := testServer(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("extra-%d", i)
		require.NoError(t, store.Set(ctx, users.Collection, id, map[string]interface{}{
			"userid": id,
			"email":  id + "@example.com",
		}))
	}

	var got []string
	cursor := ""
	pages := 0
	for {
		path := "/api/v1/users?limit=3"
		if cursor != "" {
			path += "&next_cursor=" + cursor
		}
		rr := get(t, server, path, "alice-token")
		require.Equal(t, http.StatusOK, rr.Code)

		var body listResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		for _, u := range body.Users {
			got = append(got, u.UserID)
		}
		pages++
		if body.NextCursor == "" {
			break
		}
		cursor = body.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"alice", "bob", "carol", "extra-0", "extra-1", "extra-2", "extra-3"}, got)
}

func TestListUsersSorting(t *testing.T) {
	server, _ := testServer(t)

	rr := get(t, server, "/api/v1/users?sort_by=name&sort_direction=desc", "alice-token")
	require.Equal(t, http.StatusOK, rr.Code)

	var body listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Users, 3)
	assert.Equal(t, "carol", body.Users[0].UserID)
}

func TestListUsersValidation(t *testing.T) {
	server, _ := testServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"limit too large", "/api/v1/users?limit=101"},
		{"negative limit", "/api/v1/users?limit=-1"},
		{"limit not a number", "/api/v1/users?limit=abc"},
		{"unknown sort field", "/api/v1/users?sort_by=handicap"},
		{"bad sort direction", "/api/v1/users?sort_direction=sideways"},
		{"malformed cursor", "/api/v1/users?next_cursor=%21%21%21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, server, tt.path, "alice-token")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestCurrentUser(t *testing.T) {
	server, _ := testServer(t)

	rr := get(t, server, "/api/v1/users/current", "bob-token")
	require.Equal(t, http.StatusOK, rr.Code)

	var identity auth.Identity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &identity))
	assert.Equal(t, "bob", identity.UserID)
	assert.Equal(t, []string{"writer"}, identity.Roles, "stored roles come back enriched")

	rr = get(t, server, "/api/v1/users/current", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = get(t, server, "/api/v1/users/current", "carol-token")
	assert.Equal(t, http.StatusForbidden, rr.Code, "identity echo requires the read scope")
}

func TestCORSPreflightSkipsAuth(t *testing.T) {
	server, _ := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users", nil)
	req.Header.Set("Origin", "https://golf.example.com")
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://golf.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownPathReturnsJSONNotFound(t *testing.T) {
	server, _ := testServer(t)

	rr := get(t, server, "/api/v1/rounds", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"detail":"not found"}`, rr.Body.String())
}

func TestBypassAuthServer(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	store := docstore.NewMemoryStore()
	svc := users.NewService(store, logger, nil, 16, 0)

	server := NewServer(Options{
		Users:  svc,
		Engine: rbac.NewEngine(rbac.DefaultConfig(), logger),
		Auth:   middleware.NewBypassAuth(middleware.BypassIdentity(), logger),
		Logger: logger,
	})

	rr := get(t, server, "/api/v1/users", "")
	assert.Equal(t, http.StatusOK, rr.Code, "admin bypass identity can list users")

	rr = get(t, server, "/api/v1/users/current", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var identity auth.Identity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &identity))
	assert.Equal(t, "local-dev", identity.UserID)
}
