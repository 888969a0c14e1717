package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"
	"ims/pkg/requestcontext"
)

// JWTValidator validates a bearer token and returns the claims it
// carries. internal/auth/jwttoken implements this against
// golang-jwt/jwt/v5.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker reports whether a token's JTI has been
// revoked, for deployments that track revocation (e.g. after a ranger's
// access is pulled mid-session).
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims is the identity carried by a validated IMS access token.
type JWTClaims struct {
	Handle string
	Groups []string
	JTI    string
}

// RequireAuth returns middleware that rejects requests without a valid
// bearer token and, on success, injects the ranger's handle and group
// memberships into the request context via pkg/requestcontext.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token", "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token", "error", err, "request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti", "request_id", requestID)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
					return
				}
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation", "error", err, "request_id", requestID)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked", "jti", claims.JTI, "request_id", requestID)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
					return
				}
			}

			ctx = requestcontext.WithUserHandle(ctx, claims.Handle)
			ctx = requestcontext.WithUserGroups(ctx, claims.Groups)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
