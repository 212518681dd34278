package service

import (
	"context"
	"time"

	"realtime_chat/internal/models"
	"realtime_chat/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (Session, error)
	Login(ctx context.Context, username, password string) (Session, error)
	ParseToken(accessToken string) (string, error)
}

// Chat reads history and posts new messages.
type Chat interface {
	// History returns up to limit messages older than before, oldest first.
	History(ctx context.Context, before time.Time, limit int) ([]models.Message, error)
	Post(ctx context.Context, from models.Identity, text string) (models.Message, error)
}

// Guests mints and resolves guest identities according to the configured policy.
type Guests interface {
	Mint(ctx context.Context, username string) (models.Identity, error)
	Resolve(ctx context.Context, userID, username string) (models.Identity, error)
}

// Options carries the policy knobs taken from configuration.
type Options struct {
	SigningKey  string
	TokenTTL    time.Duration // zero issues tokens without expiry
	GuestPolicy string        // GuestPolicyTrust | GuestPolicyMinted
	GuestTTL    time.Duration
}

type Service struct {
	Authorization
	Chat
	Guests
}

func NewService(repos *repository.Repository, opts Options) *Service {
	return &Service{
		Authorization: NewAuthService(repos.Auth, opts.SigningKey, opts.TokenTTL),
		Chat:          NewChatService(repos.Messages, repos.Auth),
		Guests:        NewGuestService(repos.Guests, opts.GuestPolicy, opts.GuestTTL),
	}
}

// Credentials is what a realtime client presents when connecting.
type Credentials struct {
	Token    string
	IsGuest  bool
	UserID   string
	Username string
}

// Authenticate resolves the identity of a connecting client. Guests go
// through the guest policy; everyone else must present a valid token.
// Rejections are reported as ErrAuthentication; a failing guest registry
// surfaces as *PersistenceError.
func (s *Service) Authenticate(ctx context.Context, c Credentials) (models.Identity, error) {
	if c.IsGuest {
		return s.Guests.Resolve(ctx, c.UserID, c.Username)
	}
	if c.Token == "" {
		return models.Identity{}, ErrAuthentication
	}
	userID, err := s.ParseToken(c.Token)
	if err != nil {
		return models.Identity{}, ErrAuthentication
	}
	return models.Identity{UserID: userID}, nil
}
