// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pipewatch/internal/logging"
)

// SessionCookieName is the cookie carrying the dashboard JWT.
const SessionCookieName = "pipewatch_token"

type contextKey string

const claimsContextKey contextKey = "pipewatch_claims"

// ClaimsFromContext returns the authenticated claims attached by
// Middleware, or nil when the request is unauthenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

// Middleware validates requests for the protected API surface. The
// token is read from the session cookie or a bearer Authorization
// header; its session must still exist in the store, so logout
// revokes access immediately.
type Middleware struct {
	jwt      *JWTManager
	sessions SessionStore
	disabled bool
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(jwt *JWTManager, sessions SessionStore) *Middleware {
	return &Middleware{jwt: jwt, sessions: sessions}
}

// NewDisabledMiddleware returns a middleware whose RequireAuth passes
// every request through. Used for AUTH_MODE=none deployments.
func NewDisabledMiddleware() *Middleware {
	return &Middleware{disabled: true}
}

// RequireAuth rejects requests without a valid token and live session,
// and attaches the token claims to the request context otherwise.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	if m.disabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			unauthorized(w, "authentication required")
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Debug().Err(err).Msg("Token validation failed")
			unauthorized(w, "invalid or expired token")
			return
		}

		if claims.SessionID != "" {
			if _, err := m.sessions.Get(r.Context(), claims.SessionID); err != nil {
				if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
					unauthorized(w, "session no longer valid")
					return
				}
				logging.Error().Err(err).Msg("Session lookup failed")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
