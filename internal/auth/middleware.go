package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"energy-tariffs/internal/logging"
)

type claimsKey struct{}

// ClaimsFromContext returns the claims of an authenticated request.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Middleware rejects requests without a valid bearer token. Paths listed
// as operator paths additionally need RoleOperator.
type Middleware struct {
	secret        []byte
	operatorPaths map[string]bool
	logger        *zap.Logger
}

// NewMiddleware creates a Middleware.
func NewMiddleware(secret []byte, operatorPaths []string, logger *zap.Logger) *Middleware {
	paths := make(map[string]bool, len(operatorPaths))
	for _, p := range operatorPaths {
		paths[p] = true
	}
	return &Middleware{secret: secret, operatorPaths: paths, logger: logging.OrNop(logger)}
}

// Wrap guards next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := ParseToken(bearer(r), m.secret)
		if err != nil {
			m.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
			deny(w, http.StatusUnauthorized, err)
			return
		}

		required := RoleViewer
		if m.operatorPaths[r.URL.Path] {
			required = RoleOperator
		}
		if !claims.Role.Allows(required) {
			deny(w, http.StatusForbidden, ErrForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func deny(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if errors.Is(err, ErrInvalidToken) {
		msg = ErrInvalidToken.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"ERROR": msg})
}
