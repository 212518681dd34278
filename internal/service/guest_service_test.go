package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"realtime_chat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memGuests struct {
	guests    map[string]models.Identity
	lastTTL   time.Duration
	lookupErr error
}

func (m *memGuests) Register(ctx context.Context, g models.Identity, ttl time.Duration) error {
	if m.guests == nil {
		m.guests = map[string]models.Identity{}
	}
	m.guests[g.UserID] = g
	m.lastTTL = ttl
	return nil
}

func (m *memGuests) Lookup(ctx context.Context, id string) (*models.Identity, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	g, ok := m.guests[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func TestGuestName(t *testing.T) {
	assert.Equal(t, "Guest-ab12", GuestName("cq3v1qk2f8s0ab12"))
	assert.Equal(t, "Guest-xy", GuestName("xy"))
}

func TestGuestService_Trust(t *testing.T) {
	svc := NewGuestService(nil, GuestPolicyTrust, 0)
	ctx := context.Background()

	g, err := svc.Resolve(ctx, "g1", "zed")
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: "g1", Username: "zed", IsGuest: true}, g)

	// two connections claiming the same id are indistinguishable
	other, err := svc.Resolve(ctx, "g1", "zed")
	require.NoError(t, err)
	assert.Equal(t, g, other)

	_, err = svc.Resolve(ctx, "", "zed")
	assert.ErrorIs(t, err, ErrAuthentication)
	_, err = svc.Resolve(ctx, "g1", "  ")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestGuestService_UnknownPolicyFallsBackToTrust(t *testing.T) {
	svc := NewGuestService(nil, "bogus", 0)
	_, err := svc.Resolve(context.Background(), "g1", "zed")
	assert.NoError(t, err)
}

func TestGuestService_Minted(t *testing.T) {
	reg := &memGuests{}
	svc := NewGuestService(reg, GuestPolicyMinted, time.Hour)
	ctx := context.Background()

	g, err := svc.Mint(ctx, "")
	require.NoError(t, err)
	assert.True(t, g.IsGuest)
	assert.Equal(t, GuestName(g.UserID), g.Username)
	assert.Equal(t, time.Hour, reg.lastTTL)

	named, err := svc.Mint(ctx, "  zed ")
	require.NoError(t, err)
	assert.Equal(t, "zed", named.Username)
	assert.NotEqual(t, g.UserID, named.UserID)

	// registry name wins over the supplied one
	got, err := svc.Resolve(ctx, g.UserID, "impostor")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	_, err = svc.Resolve(ctx, "never-minted", "zed")
	assert.ErrorIs(t, err, ErrAuthentication)

	reg.lookupErr = errors.New("redis down")
	_, err = svc.Resolve(ctx, g.UserID, "")
	var perr *PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestGuestService_MintedWithoutRegistryRejects(t *testing.T) {
	svc := NewGuestService(nil, GuestPolicyMinted, 0)
	g, err := svc.Mint(context.Background(), "")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), g.UserID, g.Username)
	assert.ErrorIs(t, err, ErrAuthentication)
}
