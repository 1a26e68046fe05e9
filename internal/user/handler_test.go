package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/api"
)

func newTestRouter(store Store) *chi.Mux {
	r := chi.NewRouter()
	NewHandler(store, zap.NewNop()).Register(r)
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func strPtr(s string) *string { return &s }

func createPayload(id int) api.UserPayload {
	return api.UserPayload{
		Command:  api.CommandCreate,
		ID:       id,
		Username: strPtr("alice"),
		Email:    strPtr("alice@example.com"),
		Password: strPtr("secret"),
	}
}

func TestHandler_CreateAndGet(t *testing.T) {
	r := newTestRouter(NewMemoryStore())

	rec := doRequest(t, r, http.MethodPost, "/user", createPayload(1))
	require.Equal(t, http.StatusOK, rec.Code)
	var created api.UserPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, 1, created.ID)
	require.Equal(t, "alice", *created.Username)
	// The response carries the hash, never the plaintext.
	require.Equal(t, HashPassword("secret"), *created.Password)

	rec = doRequest(t, r, http.MethodGet, "/user/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodPost, "/user", createPayload(1))
	require.Equal(t, http.StatusConflict, rec.Code)
	var status api.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "User already exists", status.Status)
}

func TestHandler_GetUnknownUser(t *testing.T) {
	r := newTestRouter(NewMemoryStore())
	rec := doRequest(t, r, http.MethodGet, "/user/7", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var status api.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "User not found", status.Status)
}

func TestHandler_CreateValidation(t *testing.T) {
	r := newTestRouter(NewMemoryStore())

	missingEmail := createPayload(1)
	missingEmail.Email = nil
	rec := doRequest(t, r, http.MethodPost, "/user", missingEmail)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	emptyPassword := createPayload(1)
	emptyPassword.Password = strPtr("")
	rec = doRequest(t, r, http.MethodPost, "/user", emptyPassword)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	unknownCommand := createPayload(1)
	unknownCommand.Command = "register"
	rec = doRequest(t, r, http.MethodPost, "/user", unknownCommand)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_PartialUpdate(t *testing.T) {
	r := newTestRouter(NewMemoryStore())
	doRequest(t, r, http.MethodPost, "/user", createPayload(1))

	rec := doRequest(t, r, http.MethodPost, "/user", api.UserPayload{
		Command: api.CommandUpdate,
		ID:      1,
		Email:   strPtr("alice@shop.example"),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var got api.UserPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "alice@shop.example", *got.Email)
	require.Equal(t, "alice", *got.Username)

	// Present-but-empty fields are rejected.
	rec = doRequest(t, r, http.MethodPost, "/user", api.UserPayload{
		Command:  api.CommandUpdate,
		ID:       1,
		Username: strPtr(""),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, r, http.MethodPost, "/user", api.UserPayload{
		Command: api.CommandUpdate,
		ID:      9,
		Email:   strPtr("ghost@example.com"),
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_DeleteRequiresMatchingFields(t *testing.T) {
	r := newTestRouter(NewMemoryStore())
	doRequest(t, r, http.MethodPost, "/user", createPayload(1))

	wrongPassword := createPayload(1)
	wrongPassword.Command = api.CommandDelete
	wrongPassword.Password = strPtr("guess")
	rec := doRequest(t, r, http.MethodPost, "/user", wrongPassword)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	match := createPayload(1)
	match.Command = api.CommandDelete
	rec = doRequest(t, r, http.MethodPost, "/user", match)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodGet, "/user/1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemoryStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, User{ID: 1, Username: "alice", Email: "a@example.com", PasswordHash: HashPassword("x")}))

	ok, err := s.Exists(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Exists(ctx, 2)
	require.NoError(t, err)
	require.False(t, ok)
}
