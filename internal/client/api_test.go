package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIServer(t *testing.T, handler http.HandlerFunc) *API {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAPI(srv.URL + "/")
}

func TestAPI_Login(t *testing.T) {
	var got credentials
	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"token":"tok","userId":"u1","username":"alice"}`))
	})

	s, err := api.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "tok", UserID: "u1", Username: "alice"}, s)
	assert.Equal(t, credentials{Username: "alice", Password: "pw"}, got)
}

func TestAPI_SignUpSurfacesServerMessage(t *testing.T) {
	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/signup", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Username already exists"}`))
	})

	_, err := api.SignUp(context.Background(), "alice", "pw")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Username already exists", apiErr.Message)
}

func TestAPI_ErrorWithoutBody(t *testing.T) {
	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := api.Login(context.Background(), "a", "b")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestAPI_MintGuest(t *testing.T) {
	api := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/guest", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"userId":"c0ffee","username":"Guest-ffee","isGuest":true}`))
	})

	g, err := api.MintGuest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", g.UserID)
	assert.Equal(t, "Guest-ffee", g.Username)
	assert.True(t, g.IsGuest)
}

func TestAPI_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	api := NewAPI(srv.URL)
	srv.Close()

	_, err := api.Login(context.Background(), "a", "b")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
