package auth

import dErrors "ims/pkg/domainerrors"

// ErrNotAuthenticated is returned when a capability check requires an
// identity but the request is anonymous.
func ErrNotAuthenticated() error {
	return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
}

// ErrNotAuthorized is returned when the identity is known but lacks the
// required capability.
func ErrNotAuthorized(capability string) error {
	return dErrors.Newf(dErrors.CodeForbidden, "missing required capability: %s", capability)
}

// ErrInvalidCredentials is returned by the login path on a bad
// username/password pair.
func ErrInvalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}
