package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const nonceTTL = 10 * time.Minute

// NonceStore issues single-use login nonces keyed by wallet address.
type NonceStore struct {
	redis *redis.Client
}

func NewNonceStore(rdb *redis.Client) *NonceStore {
	return &NonceStore{redis: rdb}
}

func (s *NonceStore) Issue(ctx context.Context, address string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(buf)

	key := nonceKey(address)
	if err := s.redis.Set(ctx, key, nonce, nonceTTL).Err(); err != nil {
		return "", err
	}
	return nonce, nil
}

// Consume returns the issued nonce and deletes it, so each nonce signs in
// at most once.
func (s *NonceStore) Consume(ctx context.Context, address string) (string, error) {
	val, err := s.redis.GetDel(ctx, nonceKey(address)).Result()
	if err != nil {
		return "", ErrNonceExpired
	}
	return val, nil
}

func nonceKey(address string) string {
	return "login_nonce:" + strings.ToLower(address)
}
