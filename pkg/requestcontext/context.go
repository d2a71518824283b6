// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	accountabilityID := requestcontext.AccountabilityID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithAccountabilityID(ctx, accountabilityID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "veil/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	accountabilityIDKey struct{}
	personaIDKey        struct{}
	moderatorIDKey      struct{}
	requestIDKey        struct{}
	requestTimeKey      struct{}
	clientIPKey         struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyAccountabilityID = accountabilityIDKey{}
	ContextKeyPersonaID        = personaIDKey{}
	ContextKeyModeratorID      = moderatorIDKey{}
	ContextKeyRequestID        = requestIDKey{}
	ContextKeyRequestTime      = requestTimeKey{}
	ContextKeyClientIP         = clientIPKey{}
)

// AccountabilityID retrieves the authenticated accountability profile ID.
// Returns the zero value (nil UUID) if not set.
func AccountabilityID(ctx context.Context) id.AccountabilityID {
	if v, ok := ctx.Value(ContextKeyAccountabilityID).(id.AccountabilityID); ok {
		return v
	}
	return id.AccountabilityID{}
}

// WithAccountabilityID injects an accountability profile ID into the context.
// The ID lives only in the context and the session token, never in a response body.
func WithAccountabilityID(ctx context.Context, v id.AccountabilityID) context.Context {
	return context.WithValue(ctx, ContextKeyAccountabilityID, v)
}

// PersonaID retrieves the active persona ID from the context.
func PersonaID(ctx context.Context) id.PersonaID {
	if v, ok := ctx.Value(ContextKeyPersonaID).(id.PersonaID); ok {
		return v
	}
	return id.PersonaID{}
}

// WithPersonaID injects a persona ID into the context.
func WithPersonaID(ctx context.Context, v id.PersonaID) context.Context {
	return context.WithValue(ctx, ContextKeyPersonaID, v)
}

// ModeratorID retrieves the privileged actor ID from the context.
func ModeratorID(ctx context.Context) id.ModeratorID {
	if v, ok := ctx.Value(ContextKeyModeratorID).(id.ModeratorID); ok {
		return v
	}
	return id.ModeratorID{}
}

// WithModeratorID injects a moderator ID into the context.
func WithModeratorID(ctx context.Context, v id.ModeratorID) context.Context {
	return context.WithValue(ctx, ContextKeyModeratorID, v)
}

// RequestID retrieves the correlation ID for the current request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// ClientIP retrieves the client IP captured at the boundary.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return v
	}
	return ""
}

// WithClientIP injects the client IP into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextKeyClientIP, ip)
}

// Now returns the request time if one was injected, else the wall clock.
// Services take their timestamps from here so tests can pin time.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return v
	}
	return time.Now()
}

// WithTime pins the request time in the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
