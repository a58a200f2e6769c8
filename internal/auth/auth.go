// Package auth issues and verifies the HMAC-signed bearer tokens that gate
// the decision, administration and audit surfaces.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scopes are disjoint: holding one never implies another.
const (
	ScopeDecide    = "access:decide"
	ScopeAdmin     = "registry:admin"
	ScopeAuditRead = "audit:read"
)

var AllScopes = []string{ScopeDecide, ScopeAdmin, ScopeAuditRead}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrMissingToken = errors.New("missing bearer token")
	ErrMissingScope = errors.New("token lacks required scope")
	ErrUnknownScope = errors.New("unknown scope")
)

type Claims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

func (c *Claims) HasScope(scope string) bool {
	return c != nil && slices.Contains(c.Scopes, scope)
}

// Authority signs tokens with HS256 and checks issuer and expiry on verify.
type Authority struct {
	signingKey []byte
	issuer     string
}

func NewAuthority(signingKey, issuer string) *Authority {
	return &Authority{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue returns a signed token for subject carrying scopes. ttl <= 0 issues
// a token without expiry, for terminals provisioned once.
func (a *Authority) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	if len(scopes) == 0 {
		return "", fmt.Errorf("%w: at least one scope is required", ErrUnknownScope)
	}
	for _, s := range scopes {
		if !slices.Contains(AllScopes, s) {
			return "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
		}
	}

	now := time.Now()
	claims := Claims{
		Scopes: slices.Clone(scopes),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   a.issuer,
			ID:       uuid.NewString(),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Authority) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return a.signingKey, nil
	}, jwt.WithIssuer(a.issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authorize verifies an Authorization header value and checks scope.
func (a *Authority) Authorize(header, scope string) (*Claims, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, ErrMissingToken
	}
	claims, err := a.Verify(token)
	if err != nil {
		return nil, err
	}
	if !claims.HasScope(scope) {
		return claims, fmt.Errorf("%w: %s", ErrMissingScope, scope)
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" value.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the verified claims stored by the transport, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}
