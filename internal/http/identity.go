package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/skillswap/internal/application"
)

// IdentityVerifier resolves a bearer token issued by the identity provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (application.Principal, error)
}

// ErrInvalidIdentity is returned for tokens that fail verification.
var ErrInvalidIdentity = errors.New("http: invalid identity token")

type identityClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier accepts HS256 tokens signed with a shared secret. The subject
// becomes the principal's user id and the name claim its display name.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewJWTVerifier returns a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the verifier evaluating expiry against now.
func (v *JWTVerifier) WithClock(now func() time.Time) *JWTVerifier {
	clone := *v
	clone.now = now
	return &clone
}

// Verify implements IdentityVerifier.
func (v *JWTVerifier) Verify(_ context.Context, token string) (application.Principal, error) {
	if v == nil || len(v.secret) == 0 {
		return application.Principal{}, fmt.Errorf("%w: verifier not configured", ErrInvalidIdentity)
	}

	claims := &identityClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return application.Principal{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return application.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidIdentity)
	}
	return application.Principal{UserID: subject, DisplayName: strings.TrimSpace(claims.Name)}, nil
}

// Issue signs a token for principal valid for ttl. A non-positive ttl issues
// a token without expiry. It backs local tooling and tests; production tokens
// come from the identity provider.
func (v *JWTVerifier) Issue(principal application.Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := identityClaims{
		Name: principal.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  principal.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
