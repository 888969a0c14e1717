// Package sentinel defines infrastructure-level sentinel errors returned
// by stores and directory backends. Service code wraps these into
// domainerrors.Error once it knows enough to pick a client-facing code
// and message; the sentinels themselves carry no HTTP opinion.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
