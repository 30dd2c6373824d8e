package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/angelmondragon/poslite-backend/pkg/redis"
	"github.com/google/uuid"
)

type revocationStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type revocationKeyer interface {
	RevokedTokenKey(jti string) string
}

// RevocationChecker exposes the read-only surface needed by middleware.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, accessID string) (bool, error)
}

// Revoker records signed-out access token ids until the token would have
// expired anyway.
type Revoker struct {
	store revocationStore
	keyer revocationKeyer
}

// NewRevoker constructs a revocation list backed by the key/value client.
func NewRevoker(client *redisclient.Client) (*Revoker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Revoker{store: client, keyer: client}, nil
}

// Revoke marks accessID as unusable until expiresAt. Tokens that are already
// expired need no entry.
func (r *Revoker) Revoke(ctx context.Context, accessID string, expiresAt, now time.Time) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, r.keyer.RevokedTokenKey(accessID), "1", ttl)
}

// IsRevoked reports whether accessID was signed out.
func (r *Revoker) IsRevoked(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := r.store.Get(ctx, r.keyer.RevokedTokenKey(accessID)); err != nil {
		if errors.Is(err, redisclient.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID produces a stable identifier used as the JWT jti.
func NewAccessID() string {
	return uuid.NewString()
}
