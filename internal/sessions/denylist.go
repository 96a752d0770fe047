package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked access-token ids (jti) until they would have expired.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisDenylist keeps revoked ids under "denylist:jti:<jti>".
type RedisDenylist struct {
	client *redis.Client
}

func NewRedisDenylist(c *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: c}
}

func (d *RedisDenylist) key(jti string) string { return "denylist:jti:" + jti }

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.key(jti), "1", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NoopDenylist is used when Redis is not configured: nothing is ever revoked.
type NoopDenylist struct{}

func (NoopDenylist) Revoke(context.Context, string, time.Duration) error { return nil }

func (NoopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }
