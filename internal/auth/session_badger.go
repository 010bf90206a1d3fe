// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/pipewatch/internal/logging"
)

// Key prefixes for BadgerDB storage.
const (
	sessionKeyPrefix = "session:"
	stateKeyPrefix   = "oauth_state:"
)

// stateTTL bounds how long an OAuth login handshake may take.
const stateTTL = 10 * time.Minute

// BadgerSessionStore implements SessionStore on BadgerDB, so sessions
// survive process restarts. It also tracks OAuth state nonces with a
// TTL.
type BadgerSessionStore struct {
	db *badger.DB
}

// NewBadgerSessionStore opens (or creates) a Badger database at path.
func NewBadgerSessionStore(path string) (*BadgerSessionStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store at %s: %w", path, err)
	}
	logging.Info().Str("path", path).Msg("Session store opened")
	return &BadgerSessionStore{db: db}, nil
}

// Create stores a new session with a TTL matching its expiry, so
// Badger reclaims stale sessions without a sweeper.
func (s *BadgerSessionStore) Create(_ context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(sessionKeyPrefix+session.ID), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// Get retrieves a session by ID. Expired sessions return
// ErrSessionExpired.
func (s *BadgerSessionStore) Get(_ context.Context, id string) (*Session, error) {
	var session Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Delete removes a session by ID. Deleting a missing session is not
// an error.
func (s *BadgerSessionStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKeyPrefix + id))
	})
}

// SaveState records an OAuth state nonce for later verification.
func (s *BadgerSessionStore) SaveState(_ context.Context, state string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(stateKeyPrefix+state), []byte{1}).WithTTL(stateTTL)
		return txn.SetEntry(entry)
	})
}

// ConsumeState verifies and removes an OAuth state nonce. Returns
// false when the state is unknown or already used.
func (s *BadgerSessionStore) ConsumeState(_ context.Context, state string) (bool, error) {
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(stateKeyPrefix + state)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return found, nil
}

// Close releases the underlying database.
func (s *BadgerSessionStore) Close() error {
	return s.db.Close()
}
