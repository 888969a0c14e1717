package directory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ims/internal/domain"
)

// CachingDirectory wraps a Directory with an in-process personnel
// cache refreshed at most every interval, coalescing concurrent misses
// via golang.org/x/sync/singleflight so a thundering herd of dashboard
// refreshes produces one backend query.
type CachingDirectory struct {
	backend  Directory
	interval time.Duration
	group    singleflight.Group

	mu        sync.RWMutex
	personnel []domain.Ranger
	fetchedAt time.Time
}

// NewCaching wraps backend with a personnel cache refreshed at most
// once per interval.
func NewCaching(backend Directory, interval time.Duration) *CachingDirectory {
	return &CachingDirectory{backend: backend, interval: interval}
}

// LookupUser always goes straight to the backend: only the bulk
// personnel listing is cached, since individual lookups are keyed by
// arbitrary search terms and gain little from caching.
func (c *CachingDirectory) LookupUser(ctx context.Context, searchTerm string) (domain.User, bool, error) {
	return c.backend.LookupUser(ctx, searchTerm)
}

// Personnel returns the cached roster, refreshing it at most once per
// interval. Concurrent callers during a refresh share the single
// in-flight backend call.
func (c *CachingDirectory) Personnel(ctx context.Context) ([]domain.Ranger, error) {
	c.mu.RLock()
	fresh := time.Since(c.fetchedAt) < c.interval && !c.fetchedAt.IsZero()
	cached := c.personnel
	c.mu.RUnlock()
	if fresh {
		return cached, nil
	}

	v, err, _ := c.group.Do("personnel", func() (any, error) {
		fresh, err := c.backend.Personnel(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.personnel = fresh
		c.fetchedAt = time.Now()
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Ranger), nil
}

// VerifyPassword delegates to the backend; verification is never
// cached.
func (c *CachingDirectory) VerifyPassword(ctx context.Context, user domain.User, plaintext string) (bool, error) {
	return c.backend.VerifyPassword(ctx, user, plaintext)
}

var _ Directory = (*CachingDirectory)(nil)
