// Package cache keeps authenticated principals in redis so the auth
// middleware can skip the users table on hot paths.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const DefaultPrincipalTTL = 10 * time.Minute

// RedisPrincipalCache is best effort: redis failures are logged and read as misses.
type RedisPrincipalCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPrincipalCache(client *redis.Client, ttl time.Duration) *RedisPrincipalCache {
	if ttl <= 0 {
		ttl = DefaultPrincipalTTL
	}
	return &RedisPrincipalCache{client: client, ttl: ttl}
}

// Connect dials addr and pings it once.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func principalKey(userID uint) string {
	return fmt.Sprintf("principal:%d", userID)
}

func (c *RedisPrincipalCache) Get(ctx context.Context, userID uint) (*security.Principal, bool) {
	raw, err := c.client.Get(ctx, principalKey(userID)).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			logger.Warn("Principal cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	var p security.Principal
	if err := json.Unmarshal(raw, &p); err != nil || p.UserID != userID {
		logger.Warn("Discarding malformed cached principal", "user_id", userID)
		return nil, false
	}
	return &p, true
}

func (c *RedisPrincipalCache) Set(ctx context.Context, p *security.Principal) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, principalKey(p.UserID), raw, c.ttl).Err(); err != nil {
		logger.Warn("Principal cache write failed", "user_id", p.UserID, "error", err)
	}
}

func (c *RedisPrincipalCache) Delete(ctx context.Context, userID uint) {
	if err := c.client.Del(ctx, principalKey(userID)).Err(); err != nil {
		logger.Warn("Principal cache delete failed", "user_id", userID, "error", err)
	}
}
