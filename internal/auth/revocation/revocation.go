// Package revocation tracks revoked bearer-token JTIs, letting a
// logout invalidate an access token immediately rather than waiting out
// its remaining lifetime.
package revocation

import (
	"context"
	"time"
)

// List revokes and checks token JTIs. Implementations expire entries
// once the TTL passed to Revoke elapses (logout passes the configured
// token lifetime), so the set doesn't grow unbounded.
type List interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
