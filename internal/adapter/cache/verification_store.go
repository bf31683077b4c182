package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manziosee/IST-auth-system/internal/repository"
)

const verificationKeyPrefix = "verify:"

// RedisVerificationStore implements VerificationTokenStore backed by Redis.
// Tokens expire via the key TTL, so no sweeper is needed.
type RedisVerificationStore struct {
	client redis.UniversalClient
}

var _ repository.VerificationTokenStore = (*RedisVerificationStore)(nil)

// NewRedisVerificationStore constructs a Redis-backed verification token store.
func NewRedisVerificationStore(client redis.UniversalClient) *RedisVerificationStore {
	return &RedisVerificationStore{client: client}
}

// Save stores the token with TTL, mapping it to the user it verifies.
func (s *RedisVerificationStore) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	key := verificationKeyPrefix + token
	if err := s.client.Set(ctx, key, strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("persist verification token: %w", err)
	}
	return nil
}

// Consume atomically resolves and removes the token. An unknown or expired
// token yields a zero user id and no error.
func (s *RedisVerificationStore) Consume(ctx context.Context, token string) (int64, error) {
	key := verificationKeyPrefix + token
	value, err := s.client.GetDel(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("consume verification token: %w", err)
	}
	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode verification token payload: %w", err)
	}
	return userID, nil
}
