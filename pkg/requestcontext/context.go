// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// This package defines context keys and getter/setter functions for values
// that are typically set by middleware but consumed by services. By
// keeping this package free of net/http dependencies, services can import
// only what they need without pulling in HTTP-related code.
//
// Usage in services (read values):
//
//	handle := requestcontext.UserHandle(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithUserHandle(ctx, handle)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	userHandleKey  struct{}
	userGroupsKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyUserHandle  = userHandleKey{}
	ContextKeyUserGroups  = userGroupsKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Auth context
// -----------------------------------------------------------------------------

// UserHandle retrieves the authenticated user's short name from the
// context. Returns "" for an anonymous request.
func UserHandle(ctx context.Context) string {
	if h, ok := ctx.Value(ContextKeyUserHandle).(string); ok {
		return h
	}
	return ""
}

// WithUserHandle injects the authenticated user's short name.
func WithUserHandle(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, ContextKeyUserHandle, handle)
}

// UserGroups retrieves the authenticated user's group memberships, used
// for position:<group> ACL matching.
func UserGroups(ctx context.Context) []string {
	if g, ok := ctx.Value(ContextKeyUserGroups).([]string); ok {
		return g
	}
	return nil
}

// WithUserGroups injects the authenticated user's group memberships.
func WithUserGroups(ctx context.Context, groups []string) context.Context {
	return context.WithValue(ctx, ContextKeyUserGroups, groups)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers,
// CLI, and tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed time into the context. Every suspension point
// within one request reads the same "now", which is what lets the
// new-incident timestamp policy default consistently regardless of how
// long the handler takes to run.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
