package auth

import (
	"context"

	"ims/internal/auth/revocation"
)

// RevocationChecker adapts a revocation.List to pkg/middleware's
// TokenRevocationChecker interface, so internal/api can wire any
// revocation.List (memory, Postgres or Redis) into the HTTP
// middleware chain without pkg/middleware importing internal/auth.
type RevocationChecker struct {
	list revocation.List
}

// NewRevocationChecker wraps list.
func NewRevocationChecker(list revocation.List) *RevocationChecker {
	return &RevocationChecker{list: list}
}

// IsTokenRevoked implements pkg/middleware.TokenRevocationChecker.
func (c *RevocationChecker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return c.list.IsRevoked(ctx, jti)
}
