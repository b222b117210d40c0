// Package auth guards the HTTP surfaces with HS256 bearer tokens.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrForbidden    = errors.New("auth: role not allowed")
)

// Role grants access to a class of routes.
type Role string

const (
	// RoleViewer may read values and compute prices.
	RoleViewer Role = "viewer"
	// RoleOperator may also push values and trigger derivation.
	RoleOperator Role = "operator"
)

// Allows reports whether r covers required.
func (r Role) Allows(required Role) bool {
	switch required {
	case RoleViewer:
		return r == RoleViewer || r == RoleOperator
	case RoleOperator:
		return r == RoleOperator
	}
	return false
}

// Claims are the token claims this service reads.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and returns its claims.
// Expiry is enforced by the parser when the token carries exp.
func ParseToken(token string, secret []byte) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleViewer && claims.Role != RoleOperator {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

// IssueToken signs claims with secret. tariffctl uses it to mint feeder tokens.
func IssueToken(claims Claims, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("auth: empty secret")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
