// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/pipewatch/internal/config"
)

// memorySessionStore is an in-memory SessionStore for middleware tests.
type memorySessionStore struct {
	sessions map[string]*Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]*Session)}
}

func (m *memorySessionStore) Create(_ context.Context, s *Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.IsExpired() {
		return nil, ErrSessionExpired
	}
	return s, nil
}

func (m *memorySessionStore) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memorySessionStore) Close() error { return nil }

func middlewareFixture(t *testing.T) (*Middleware, *JWTManager, *memorySessionStore) {
	t.Helper()
	jwtManager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      strings.Repeat("s", 32),
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager() error: %v", err)
	}
	store := newMemorySessionStore()
	return NewMiddleware(jwtManager, store), jwtManager, store
}

func protectedHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Error("claims missing from authenticated request context")
		} else if claims.Username != wantUser {
			t.Errorf("claims.Username = %q, want %q", claims.Username, wantUser)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthWithCookie(t *testing.T) {
	mw, jwtManager, store := middlewareFixture(t)

	session := NewSession("octocat", "admin", time.Hour)
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	token, err := jwtManager.GenerateToken("octocat", "admin", session.ID)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()

	mw.RequireAuth(protectedHandler(t, "octocat")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAuthWithBearerHeader(t *testing.T) {
	mw, jwtManager, store := middlewareFixture(t)

	session := NewSession("octocat", "viewer", time.Hour)
	_ = store.Create(context.Background(), session)
	token, _ := jwtManager.GenerateToken("octocat", "viewer", session.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.RequireAuth(protectedHandler(t, "octocat")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	mw, _, _ := middlewareFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()

	mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler called for unauthenticated request")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	mw := NewDisabledMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()

	called := false
	mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if ClaimsFromContext(r.Context()) != nil {
			t.Error("disabled middleware must not attach claims")
		}
	})).ServeHTTP(rec, req)

	if !called {
		t.Error("handler was not called with auth disabled")
	}
}

func TestRequireAuthRejectsRevokedSession(t *testing.T) {
	mw, jwtManager, store := middlewareFixture(t)

	session := NewSession("octocat", "admin", time.Hour)
	_ = store.Create(context.Background(), session)
	token, _ := jwtManager.GenerateToken("octocat", "admin", session.ID)

	// Logout.
	_ = store.Delete(context.Background(), session.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()

	mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler called for revoked session")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerifyAdminCredentials(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	tests := []struct {
		name       string
		configUser string
		configPass string
		user       string
		pass       string
		want       bool
	}{
		{"bcrypt match", "admin", hash, "admin", "hunter2hunter2", true},
		{"bcrypt wrong password", "admin", hash, "admin", "wrong", false},
		{"wrong username", "admin", hash, "root", "hunter2hunter2", false},
		{"plaintext match", "admin", "secretpass", "admin", "secretpass", true},
		{"plaintext mismatch", "admin", "secretpass", "admin", "other", false},
		{"unconfigured", "", "", "admin", "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyAdminCredentials(tt.configUser, tt.configPass, tt.user, tt.pass)
			if got != tt.want {
				t.Errorf("VerifyAdminCredentials() = %v, want %v", got, tt.want)
			}
		})
	}
}
