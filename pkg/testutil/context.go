package testutil

import (
	"context"
	"net/http"

	"github.com/acganger/ganger-platform-sub002/internal/platform/middleware"
)

// WithAuth adds authenticated-user claims to the request context. This
// simulates what the auth middleware does for a request that carried a
// valid bearer token.
func WithAuth(req *http.Request, claims middleware.JWTClaims) *http.Request {
	return req.WithContext(middleware.WithAuthenticatedUser(req.Context(), claims))
}

// WithClient adds network metadata to the request context, as the client
// metadata middleware would.
func WithClient(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(middleware.WithClientMetadata(req.Context(), clientIP, userAgent))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
