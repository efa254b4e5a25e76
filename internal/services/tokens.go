package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked-token:"

// TokenStore tracks revoked bearer tokens in Redis so that logout takes
// effect before the token's natural expiry. Keys carry a TTL equal to the
// token's remaining lifetime, so the denylist cleans itself up.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Revoke denylists a token until ttl elapses. A non-positive ttl means the
// token is already expired and there is nothing to store.
func (s *TokenStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedKey(token), "1", ttl).Err()
}

// IsRevoked reports whether a token has been denylisted.
func (s *TokenStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Tokens are hashed before use as keys so raw credentials never land in
// Redis.
func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedKeyPrefix + hex.EncodeToString(sum[:])
}
