// Package directory defines the external personnel directory contract:
// user lookup, personnel listing, and password verification. The core
// never reaches into a personnel backend directly —
// internal/directory/yamlfile and internal/directory/sqlfile are the
// two reference backends; internal/auth consumes this package only
// through the Directory interface.
package directory

import (
	"context"

	"ims/internal/domain"
)

//go:generate mockgen -destination=../api/mocks/directory.go -package=mocks ims/internal/directory Directory

// Directory is the pluggable personnel backend contract.
type Directory interface {
	// LookupUser resolves a search term (short name or email) to a
	// User, or (zero value, false) if none matches.
	LookupUser(ctx context.Context, searchTerm string) (domain.User, bool, error)
	// Personnel returns the full ranger roster for the personnel/
	// endpoint.
	Personnel(ctx context.Context) ([]domain.Ranger, error)
	// VerifyPassword compares plaintext against user's stored hash.
	VerifyPassword(ctx context.Context, user domain.User, plaintext string) (bool, error)
}
