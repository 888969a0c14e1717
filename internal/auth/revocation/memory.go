package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryList is an in-process revocation list. Entries past their
// expiry are treated as not-revoked and lazily swept on IsRevoked.
type MemoryList struct {
	mu      sync.Mutex
	expires map[string]time.Time
	clock   func() time.Time
}

// NewMemoryList constructs an empty MemoryList.
func NewMemoryList() *MemoryList {
	return &MemoryList{expires: make(map[string]time.Time), clock: time.Now}
}

func (l *MemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expires[jti] = l.clock().Add(ttl)
	return nil
}

func (l *MemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.expires[jti]
	if !ok {
		return false, nil
	}
	if l.clock().After(expiry) {
		delete(l.expires, jti)
		return false, nil
	}
	return true, nil
}

var _ List = (*MemoryList)(nil)
