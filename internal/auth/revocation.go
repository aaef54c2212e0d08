package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "revoked:"

// RevocationList records logged-out tokens until they would have expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationList keeps one key per revoked token ID with a matching TTL.
type RedisRevocationList struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisRevocationList(rdb *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{rdb: rdb, now: time.Now}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	return l.rdb.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err()
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := l.rdb.Get(ctx, revokedPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NoopRevocationList is used when Redis is not configured; logout then only
// discards the token client-side.
type NoopRevocationList struct{}

func (NoopRevocationList) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopRevocationList) IsRevoked(context.Context, string) (bool, error) { return false, nil }
