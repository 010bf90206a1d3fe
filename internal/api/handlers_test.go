// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pipewatch/internal/auth"
	"github.com/tomtom215/pipewatch/internal/broadcast"
	"github.com/tomtom215/pipewatch/internal/config"
	"github.com/tomtom215/pipewatch/internal/models"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// fakeStore is an in-memory DeliveryStore.
type fakeStore struct {
	mu      sync.Mutex
	records []models.WebhookRecord
	nextID  int64
	saveErr error
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (s *fakeStore) SaveDelivery(_ context.Context, event string, payload json.RawMessage) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return 0, time.Time{}, s.saveErr
	}
	id := s.nextID
	s.nextID++
	now := time.Now().UTC()
	s.records = append(s.records, models.WebhookRecord{
		ID: id, Event: event, Payload: payload, ReceivedAt: now,
	})
	return id, now, nil
}

func (s *fakeStore) RecentDeliveries(_ context.Context, limit int) ([]models.WebhookRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.WebhookRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *fakeStore) Ping(_ context.Context) error {
	return s.pingErr
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// fakeGitHub implements github.ClientInterface for handler tests.
type fakeGitHub struct {
	runs     *models.WorkflowRunList
	jobs     *models.WorkflowJobList
	logs     string
	user     *models.GitHubUser
	token    string
	err      error
	lastPage int
}

func (g *fakeGitHub) Ping(context.Context) error { return g.err }

func (g *fakeGitHub) ListWorkflowRuns(_ context.Context, page, _ int) (*models.WorkflowRunList, error) {
	g.lastPage = page
	if g.err != nil {
		return nil, g.err
	}
	return g.runs, nil
}

func (g *fakeGitHub) ListRunJobs(context.Context, int64) (*models.WorkflowJobList, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.jobs, nil
}

func (g *fakeGitHub) GetJobLogs(context.Context, int64) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.logs, nil
}

func (g *fakeGitHub) GetAuthenticatedUser(context.Context, string) (*models.GitHubUser, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.user, nil
}

func (g *fakeGitHub) ExchangeCode(context.Context, string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if g.token == "" {
		return "", errors.New("no token configured")
	}
	return g.token, nil
}

// memorySessions implements auth.SessionManager.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session
	states   map[string]struct{}
}

func newMemorySessions() *memorySessions {
	return &memorySessions{
		sessions: map[string]*auth.Session{},
		states:   map[string]struct{}{},
	}
}

func (m *memorySessions) Create(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memorySessions) Get(_ context.Context, id string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return s, nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memorySessions) SaveState(_ context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = struct{}{}
	return nil
}

func (m *memorySessions) ConsumeState(_ context.Context, state string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[state]
	delete(m.states, state)
	return ok, nil
}

func (m *memorySessions) Close() error { return nil }

// fixture bundles the handler with its fakes.
type fixture struct {
	handler     *Handler
	store       *fakeStore
	broadcaster *broadcast.Broadcaster
	github      *fakeGitHub
	sessions    *memorySessions
	jwt         *auth.JWTManager
	config      *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Environment = "development"
	cfg.Security.JWTSecret = "test-secret-test-secret-test-secret!"
	cfg.Security.SessionTimeout = time.Hour
	cfg.Security.AdminUsername = "admin"
	cfg.Security.AdminPassword = "hunter2"
	cfg.Stream.HeartbeatInterval = 30 * time.Second
	cfg.API.DefaultPageSize = 20
	cfg.API.MaxPageSize = 100

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	f := &fixture{
		store:       newFakeStore(),
		broadcaster: broadcast.NewBroadcaster(broadcast.DefaultBufferSize),
		github:      &fakeGitHub{},
		sessions:    newMemorySessions(),
		jwt:         jwtManager,
		config:      cfg,
	}
	t.Cleanup(f.broadcaster.Close)

	f.handler = NewHandler(f.store, f.broadcaster, f.github, cfg, jwtManager, f.sessions)
	return f
}

// router builds the full route tree around the fixture's handler.
func (f *fixture) router() *Router {
	return NewRouter(f.handler, auth.NewMiddleware(f.jwt, f.sessions), &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		RateLimitDisabled:  true,
	})
}
