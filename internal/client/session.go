package client

import (
	"fmt"
	"strings"
	"sync"

	"realtime_chat/internal/models"

	"github.com/google/uuid"
)

// Persisted keys.
const (
	keyToken     = "token"
	keyUserID    = "userId"
	keyUsername  = "username"
	keyGuestID   = "guestId"
	keyGuestName = "guestName"
)

var allKeys = []string{keyToken, keyUserID, keyUsername, keyGuestID, keyGuestName}

// State is where the session manager stands.
type State int

const (
	Loading State = iota
	Unauthenticated
	Guest
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Guest:
		return "guest"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Route is the navigation decision returned by SessionManager.Route.
type Route int

const (
	RouteStay Route = iota
	RouteChat
	RouteAuth
)

// Session is what signup and login return.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Handshake is the identity a chat connection presents to the server.
type Handshake struct {
	Token    string
	Guest    bool
	UserID   string
	Username string
}

// SessionManager tracks who the local user is and persists it across runs.
// A failed store write leaves the state unchanged.
type SessionManager struct {
	store KeyValueStore

	mu       sync.RWMutex
	state    State
	token    string
	identity models.Identity
}

func NewSessionManager(store KeyValueStore) *SessionManager {
	return &SessionManager{store: store, state: Loading}
}

// GuestName is the default display name of a locally generated guest.
func GuestName(id string) string {
	if len(id) > 4 {
		id = id[:4]
	}
	return "Guest-" + id
}

// Restore reads the persisted session. Any storage failure ends in
// Unauthenticated.
func (m *SessionManager) Restore() State {
	token, userID, username, err := m.readUser()
	if err == nil && token != "" && userID != "" && username != "" {
		m.set(Authenticated, token, models.Identity{UserID: userID, Username: username})
		return Authenticated
	}
	if err == nil {
		guestID, ok, gerr := m.store.Get(keyGuestID)
		if gerr == nil && ok && guestID != "" {
			name, _, nerr := m.store.Get(keyGuestName)
			if nerr == nil {
				if name == "" {
					name = GuestName(guestID)
				}
				m.set(Guest, "", models.Identity{UserID: guestID, Username: name, IsGuest: true})
				return Guest
			}
		}
	}
	m.set(Unauthenticated, "", models.Identity{})
	return Unauthenticated
}

func (m *SessionManager) readUser() (token, userID, username string, err error) {
	if token, _, err = m.store.Get(keyToken); err != nil {
		return
	}
	if userID, _, err = m.store.Get(keyUserID); err != nil {
		return
	}
	username, _, err = m.store.Get(keyUsername)
	return
}

// SignIn stores a registered session and forgets any guest identity.
func (m *SessionManager) SignIn(s Session) error {
	for _, kv := range [][2]string{{keyToken, s.Token}, {keyUserID, s.UserID}, {keyUsername, s.Username}} {
		if err := m.store.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
	}
	if err := m.store.Remove(keyGuestID, keyGuestName); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	m.set(Authenticated, s.Token, models.Identity{UserID: s.UserID, Username: s.Username})
	return nil
}

// ContinueAsGuest generates a guest identity locally.
func (m *SessionManager) ContinueAsGuest() error {
	id := uuid.NewString()
	return m.AdoptGuest(models.Identity{UserID: id, Username: GuestName(id), IsGuest: true})
}

// AdoptGuest stores a guest identity minted by the server.
func (m *SessionManager) AdoptGuest(g models.Identity) error {
	if strings.TrimSpace(g.UserID) == "" {
		return fmt.Errorf("continue as guest: empty guest id")
	}
	if g.Username == "" {
		g.Username = GuestName(g.UserID)
	}
	g.IsGuest = true
	if err := m.store.Set(keyGuestID, g.UserID); err != nil {
		return fmt.Errorf("continue as guest: %w", err)
	}
	if err := m.store.Set(keyGuestName, g.Username); err != nil {
		return fmt.Errorf("continue as guest: %w", err)
	}
	m.set(Guest, "", g)
	return nil
}

// SignOut forgets every persisted key.
func (m *SessionManager) SignOut() error {
	if err := m.store.Remove(allKeys...); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	m.set(Unauthenticated, "", models.Identity{})
	return nil
}

// Route decides where the UI should be given whether it currently shows
// the auth view.
func (m *SessionManager) Route(inAuthGroup bool) Route {
	switch m.State() {
	case Loading:
		return RouteStay
	case Guest, Authenticated:
		if inAuthGroup {
			return RouteChat
		}
	case Unauthenticated:
		if !inAuthGroup {
			return RouteAuth
		}
	}
	return RouteStay
}

func (m *SessionManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Identity is the current user, zero when unauthenticated.
func (m *SessionManager) Identity() models.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// Handshake builds the identity presented when connecting to the chat.
func (m *SessionManager) Handshake() Handshake {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == Guest {
		return Handshake{Guest: true, UserID: m.identity.UserID, Username: m.identity.Username}
	}
	return Handshake{Token: m.token}
}

func (m *SessionManager) set(state State, token string, id models.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.token = token
	m.identity = id
}
