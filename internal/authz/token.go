// internal/authz/token.go

// Package authz resolves the caller's role from a bearer token and checks it
// against an RBAC policy of route patterns.
package authz

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role")
	ErrInvalidToken    = errors.New("invalid token")
)

const (
	RoleAnonymous = "anonymous"
	RoleMember    = "member"
	RoleLibrarian = "librarian"
)

// Claims carries the caller's role alongside the registered JWT claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Config configures token verification. An empty Secret disables authorization.
type Config struct {
	Secret      string
	Issuer      string
	DefaultRole string
}

// Sign issues an HS256 token for subject with the given role.
func (a *Authorizer) Sign(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Role extracts the caller's role from the Authorization header. Requests
// without a bearer token get the default role.
func (a *Authorizer) Role(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return a.cfg.DefaultRole, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", fmt.Errorf("%w: expected bearer scheme", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.cfg.Secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if a.cfg.Issuer != "" && !claims.VerifyIssuer(a.cfg.Issuer, true) {
		return "", fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	if claims.Role == "" {
		return a.cfg.DefaultRole, nil
	}
	return claims.Role, nil
}
