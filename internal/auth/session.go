// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session is the server-side state of one logged-in dashboard user.
// The GitHub access token never leaves the server; clients hold only
// the JWT referencing this session.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatarUrl,omitempty"`

	// GitHubToken is the OAuth access token for users who logged in
	// via GitHub. Empty for local admin sessions.
	GitHubToken string `json:"githubToken,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewSession creates a session for a user with the given lifetime.
func NewSession(username, role string, lifetime time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionStore persists sessions. Implemented by BadgerSessionStore
// for production and by in-memory fakes in tests.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// SessionManager extends SessionStore with the single-use OAuth state
// nonces used during the GitHub login flow.
type SessionManager interface {
	SessionStore
	SaveState(ctx context.Context, state string) error
	ConsumeState(ctx context.Context, state string) (bool, error)
}
