package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/support-desk/internal/domain"
)

const roleKeyPrefix = "support-desk:actor:"

// cachedActor is the serialized cache entry.
type cachedActor struct {
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"display_name"`
}

// RoleCache keeps short-lived actor identity entries in Redis so the auth
// middleware does not hit the directory on every request. Entries expire on
// TTL; writes on profile changes overwrite in place.
type RoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoleCache builds a cache over the given client. A nil client yields a
// cache whose lookups always miss.
func NewRoleCache(client *redis.Client, ttl time.Duration) *RoleCache {
	return &RoleCache{client: client, ttl: ttl}
}

// Get returns the cached actor identity for userID, if present.
func (c *RoleCache) Get(ctx context.Context, userID string) (domain.Actor, bool) {
	if c == nil || c.client == nil {
		return domain.Actor{}, false
	}
	raw, err := c.client.Get(ctx, roleKeyPrefix+userID).Bytes()
	if err != nil {
		return domain.Actor{}, false
	}
	var entry cachedActor
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.Actor{}, false
	}
	return domain.Actor{ID: userID, Role: entry.Role, DisplayName: entry.DisplayName}, true
}

// Put stores the actor identity with the configured TTL. Failures are
// ignored; the cache is an optimization, not a source of truth.
func (c *RoleCache) Put(ctx context.Context, actor domain.Actor) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(cachedActor{Role: actor.Role, DisplayName: actor.DisplayName})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, roleKeyPrefix+actor.ID, raw, c.ttl).Err()
}

// Invalidate drops the entry for userID.
func (c *RoleCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, roleKeyPrefix+userID).Err()
}
