package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realtime_chat/internal/models"

	"github.com/redis/go-redis/v9"
)

const guestKeyPrefix = "guest:"

// GuestRedis keeps server-minted guest identities in Redis, keyed by guest id,
// with the display name as value.
type GuestRedis struct {
	client *redis.Client
}

func NewGuestRedis(client *redis.Client) *GuestRedis {
	return &GuestRedis{client: client}
}

var _ GuestRegistry = (*GuestRedis)(nil)

func guestKey(id string) string {
	return guestKeyPrefix + id
}

// Register stores the guest. A zero ttl keeps the key until Redis evicts it.
func (r *GuestRedis) Register(ctx context.Context, guest models.Identity, ttl time.Duration) error {
	if guest.UserID == "" {
		return errors.New("register guest: empty id")
	}
	if err := r.client.Set(ctx, guestKey(guest.UserID), guest.Username, ttl).Err(); err != nil {
		return fmt.Errorf("register guest %q: %w", guest.UserID, err)
	}
	return nil
}

// Lookup returns the registered guest or (nil, nil) when the id is unknown.
func (r *GuestRedis) Lookup(ctx context.Context, id string) (*models.Identity, error) {
	name, err := r.client.Get(ctx, guestKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup guest %q: %w", id, err)
	}
	return &models.Identity{UserID: id, Username: name, IsGuest: true}, nil
}
