package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "ims:revoked:jti:"

// RedisList is a Redis-backed revocation list: SET-with-TTL on
// revoke, key existence on check. Useful when several
// imsd replicas sit behind one load balancer and a logout on one must
// be visible to all.
type RedisList struct {
	client *redis.Client
}

// NewRedisList constructs a RedisList over an existing client.
func NewRedisList(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

func (l *RedisList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	return l.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

func (l *RedisList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ List = (*RedisList)(nil)
