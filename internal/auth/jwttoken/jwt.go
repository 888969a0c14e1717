// Package jwttoken issues and validates the IMS bearer tokens:
// golang-jwt/jwt/v5 HS256 claims carrying an opaque JTI for revocation.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "ims/pkg/domainerrors"
	"ims/pkg/middleware"
)

// Claims is the payload of an IMS access token: the ranger's handle and
// group memberships, plus the registered claims (exp, iat, jti).
type Claims struct {
	Handle string   `json:"handle"`
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// Service issues and validates access tokens signed with an HMAC key.
// The signing key is opaque key material provisioned by the operator;
// rotation happens by redeploying with a new key.
type Service struct {
	signingKey []byte
	issuer     string
}

// New constructs a Service. signingKey must be non-empty.
func New(signingKey string, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a token for handle/groups with the given lifetime.
func (s *Service) Issue(handle string, groups []string, lifetime time.Duration) (string, string, error) {
	jti := uuid.NewString()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Handle: handle,
		Groups: groups,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	return signed, jti, nil
}

// ValidateToken parses and validates tokenString, returning the claims
// rendered as middleware.JWTClaims so internal/api can wire this
// Service directly into pkg/middleware.RequireAuth.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return &middleware.JWTClaims{Handle: claims.Handle, Groups: claims.Groups, JTI: claims.ID}, nil
}

var _ middleware.JWTValidator = (*Service)(nil)
