package service

import (
	"context"
	"strings"
	"time"

	"realtime_chat/internal/models"
	"realtime_chat/internal/repository"

	"github.com/rs/xid"
)

// Guest policies.
const (
	// GuestPolicyTrust accepts any self-declared guest id and name.
	GuestPolicyTrust = "trust"
	// GuestPolicyMinted only accepts guest ids minted by this server and
	// still present in the guest registry.
	GuestPolicyMinted = "minted"
)

const defaultGuestTTL = 24 * time.Hour

type GuestService struct {
	registry repository.GuestRegistry
	policy   string
	ttl      time.Duration
}

func NewGuestService(registry repository.GuestRegistry, policy string, ttl time.Duration) *GuestService {
	if policy != GuestPolicyMinted {
		policy = GuestPolicyTrust
	}
	if ttl <= 0 {
		ttl = defaultGuestTTL
	}
	return &GuestService{registry: registry, policy: policy, ttl: ttl}
}

// GuestName is the display name given to a guest that did not choose one.
func GuestName(id string) string {
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "Guest-" + suffix
}

// Mint creates a server-side guest identity and records it in the registry
// when one is configured.
func (s *GuestService) Mint(ctx context.Context, username string) (models.Identity, error) {
	id := xid.New().String()
	name := strings.TrimSpace(username)
	if name == "" {
		name = GuestName(id)
	}
	guest := models.Identity{UserID: id, Username: name, IsGuest: true}
	if s.registry != nil {
		if err := s.registry.Register(ctx, guest, s.ttl); err != nil {
			return models.Identity{}, persistence("register guest", err)
		}
	}
	return guest, nil
}

// Resolve validates a guest presented at handshake.
func (s *GuestService) Resolve(ctx context.Context, userID, username string) (models.Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Identity{}, ErrAuthentication
	}

	if s.policy == GuestPolicyTrust {
		name := strings.TrimSpace(username)
		if name == "" {
			return models.Identity{}, ErrAuthentication
		}
		return models.Identity{UserID: userID, Username: name, IsGuest: true}, nil
	}

	if s.registry == nil {
		return models.Identity{}, ErrAuthentication
	}
	guest, err := s.registry.Lookup(ctx, userID)
	if err != nil {
		return models.Identity{}, persistence("lookup guest", err)
	}
	if guest == nil {
		return models.Identity{}, ErrAuthentication
	}
	return *guest, nil
}
