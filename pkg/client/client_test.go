package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers like the auth API for one student account.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	const token = "student-token"
	exp := time.Now().Add(time.Hour).Unix()

	write := func(w http.ResponseWriter, status int, data any, msg string, fields []FieldError) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":     status < 300,
			"status_code": status,
			"data":        data,
			"message":     msg,
			"errors":      fields,
		})
	}
	user := map[string]any{"id": "p-1", "email": "amina@um5-edu.ma", "role": "student", "display_name": "Amina"}
	auth := map[string]any{"user": user, "role": "student", "token": token, "expires_at": exp}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth" {
			write(w, http.StatusNotFound, nil, "not found", nil)
			return
		}
		switch action := r.URL.Query().Get("action"); {
		case r.Method == http.MethodPost && action == "register":
			var body Registration
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.University == "" {
				write(w, http.StatusUnprocessableEntity, nil, "validation failed",
					[]FieldError{{Field: "university", Message: "university is required"}})
				return
			}
			write(w, http.StatusCreated, auth, "", nil)
		case r.Method == http.MethodPost && action == "login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "Str0ng!Pass" {
				write(w, http.StatusUnauthorized, nil, "invalid credentials", nil)
				return
			}
			write(w, http.StatusOK, auth, "", nil)
		case r.Method == http.MethodGet && action == "me":
			if r.Header.Get("Authorization") != "Bearer "+token {
				write(w, http.StatusUnauthorized, nil, "unauthorized", nil)
				return
			}
			write(w, http.StatusOK, map[string]any{"user": user, "role": "student"}, "", nil)
		default:
			write(w, http.StatusBadRequest, nil, "unknown action", nil)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RegisterStoresSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c, err := New(fakeAPI(t).URL, store)
	require.NoError(t, err)

	p, err := c.Register(ctx, Registration{
		Name: "Amina", Email: "amina@um5-edu.ma", Phone: "0612345678",
		Password: "Str0ng!Pass", Role: "student", University: "UM5",
	})
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.ID)

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "student-token", sess.Token)
	assert.Equal(t, "student", sess.Role)
	assert.Equal(t, "amina@um5-edu.ma", sess.Identifier)
	assert.False(t, sess.ExpiresAt.IsZero())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "student", me.Role)
}

func TestClient_ValidationError(t *testing.T) {
	c, err := New(fakeAPI(t).URL, nil)
	require.NoError(t, err)

	_, err = c.Register(context.Background(), Registration{Email: "amina@um5-edu.ma", Role: "student"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "university", apiErr.Fields[0].Field)
}

func TestClient_LoginFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c, err := New(fakeAPI(t).URL, store)
	require.NoError(t, err)

	_, err = c.Login(ctx, "amina@um5-edu.ma", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClient_MeWithoutSession(t *testing.T) {
	c, err := New(fakeAPI(t).URL, nil)
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Logout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c, err := New(fakeAPI(t).URL, store)
	require.NoError(t, err)

	_, err = c.Login(ctx, "amina@um5-edu.ma", "Str0ng!Pass")
	require.NoError(t, err)
	require.NoError(t, c.Logout(ctx))

	_, err = c.Session(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
