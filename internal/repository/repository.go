package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"realtime_chat/internal/models"
)

// ErrUsernameTaken is returned by Authorization.Create when the store's
// unique index on username rejects the insert.
var ErrUsernameTaken = errors.New("username already taken")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (string, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type MessageRepo interface {
	// Append persists m, assigning ID and Timestamp when empty, and returns the stored row.
	Append(ctx context.Context, m models.Message) (models.Message, error)
	// Recent returns up to limit messages strictly older than before (zero means now),
	// newest first, with registered authors' usernames resolved.
	Recent(ctx context.Context, before time.Time, limit int) ([]models.Message, error)
}

type GuestRegistry interface {
	Register(ctx context.Context, guest models.Identity, ttl time.Duration) error
	// Lookup returns (nil, nil) when the guest id is unknown or expired.
	Lookup(ctx context.Context, id string) (*models.Identity, error)
}

type Repository struct {
	Auth     Authorization
	Messages MessageRepo
	Guests   GuestRegistry
}

// NewRepository wires the SQLite-backed stores. guests may be nil when no
// registry is configured.
func NewRepository(db *sql.DB, guests GuestRegistry) *Repository {
	return &Repository{
		Auth:     NewUserSQLite(db),
		Messages: NewMessageSQLite(db),
		Guests:   guests,
	}
}
