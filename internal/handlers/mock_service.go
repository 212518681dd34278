package handlers

import (
	"context"
	"net/http"
	"time"

	"realtime_chat/internal/models"
	"realtime_chat/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	session   service.Session
	signUpErr error
	loginErr  error
	parseID   string
	parseErr  error

	lastSignUpUsername string
	lastSignUpPassword string
	lastLoginUsername  string
	lastLoginPassword  string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (service.Session, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	if m.signUpErr != nil {
		return service.Session{}, m.signUpErr
	}
	return m.session, nil
}
func (m *mockAuth) Login(ctx context.Context, username, password string) (service.Session, error) {
	m.lastLoginUsername = username
	m.lastLoginPassword = password
	if m.loginErr != nil {
		return service.Session{}, m.loginErr
	}
	return m.session, nil
}
func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockChat struct {
	history    []models.Message
	historyErr error
	lastBefore time.Time
	lastLimit  int

	posted []string
}

func (m *mockChat) History(ctx context.Context, before time.Time, limit int) ([]models.Message, error) {
	m.lastBefore = before
	m.lastLimit = limit
	return m.history, m.historyErr
}
func (m *mockChat) Post(ctx context.Context, from models.Identity, text string) (models.Message, error) {
	m.posted = append(m.posted, text)
	return models.Message{ID: "m", UserID: from.UserID, Username: from.Username, Text: text}, nil
}

type mockGuests struct {
	minted   models.Identity
	mintErr  error
	lastName string
}

func (m *mockGuests) Mint(ctx context.Context, username string) (models.Identity, error) {
	m.lastName = username
	return m.minted, m.mintErr
}
func (m *mockGuests) Resolve(ctx context.Context, userID, username string) (models.Identity, error) {
	return models.Identity{UserID: userID, Username: username, IsGuest: true}, nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, nil)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
