package anubis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/user"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/cache"
)

const principalKeyPrefix = "anubis:principal:"

// principalCache keeps verified principals keyed by token hash. Concurrent
// requests carrying the same token share one introspection call. A nil
// principalCache disables caching.
type principalCache struct {
	store *cache.Store
}

func newPrincipalCache(ttl time.Duration, maxEntries int) *principalCache {
	if ttl < 0 {
		return nil
	}
	return &principalCache{
		store: cache.NewStore(ttl, cache.WithMaxEntries(maxEntries)),
	}
}

func (c *principalCache) Resolve(ctx context.Context, token string, load func(context.Context) (user.Principal, error)) (user.Principal, error) {
	if c == nil {
		return load(ctx)
	}

	return cache.Load(ctx, c.store, principalKeyPrefix+hashToken(token), load)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
