// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func testStore(t *testing.T) *BadgerSessionStore {
	t.Helper()
	store, err := NewBadgerSessionStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerSessionStore() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := NewSession("octocat", "admin", time.Hour)
	session.GitHubToken = "gho_abc123"

	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Username != "octocat" || got.Role != "admin" {
		t.Errorf("session = %+v", got)
	}
	if got.GitHubToken != "gho_abc123" {
		t.Errorf("GitHubToken = %q", got.GitHubToken)
	}
}

func TestGetMissingSession(t *testing.T) {
	store := testStore(t)

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) = %v, want ErrSessionNotFound", err)
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := NewSession("octocat", "viewer", 50*time.Millisecond)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	_, err := store.Get(ctx, session.ID)
	if !errors.Is(err, ErrSessionExpired) && !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(expired) = %v, want expired or not found", err)
	}
}

func TestDeleteSession(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := NewSession("octocat", "viewer", time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(deleted) = %v, want ErrSessionNotFound", err)
	}

	// Deleting again is not an error.
	if err := store.Delete(ctx, session.ID); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestOAuthStateConsumedOnce(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SaveState(ctx, "nonce-1"); err != nil {
		t.Fatalf("SaveState() error: %v", err)
	}

	ok, err := store.ConsumeState(ctx, "nonce-1")
	if err != nil {
		t.Fatalf("ConsumeState() error: %v", err)
	}
	if !ok {
		t.Fatal("first ConsumeState() = false, want true")
	}

	ok, err = store.ConsumeState(ctx, "nonce-1")
	if err != nil {
		t.Fatalf("second ConsumeState() error: %v", err)
	}
	if ok {
		t.Error("second ConsumeState() = true, want false")
	}
}

func TestConsumeUnknownState(t *testing.T) {
	store := testStore(t)

	ok, err := store.ConsumeState(context.Background(), "never-saved")
	if err != nil {
		t.Fatalf("ConsumeState() error: %v", err)
	}
	if ok {
		t.Error("ConsumeState(unknown) = true, want false")
	}
}
