package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"realtime_chat/internal/models"
)

// APIError is a non-2xx response. Message is the server's "error" field,
// suitable for showing to the user as-is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// API talks to the chat server's REST endpoints.
type API struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUp registers a new user and returns its session.
func (a *API) SignUp(ctx context.Context, username, password string) (Session, error) {
	var s Session
	err := a.do(ctx, http.MethodPost, "/api/signup", credentials{username, password}, &s)
	return s, err
}

// Login exchanges credentials for a session.
func (a *API) Login(ctx context.Context, username, password string) (Session, error) {
	var s Session
	err := a.do(ctx, http.MethodPost, "/api/login", credentials{username, password}, &s)
	return s, err
}

// MintGuest asks the server for a guest identity. An empty username lets
// the server pick the display name.
func (a *API) MintGuest(ctx context.Context, username string) (models.Identity, error) {
	var g models.Identity
	err := a.do(ctx, http.MethodPost, "/api/guest", map[string]string{"username": username}, &g)
	return g, err
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}
