// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package broadcast implements the in-process event relay between
// webhook ingestion and streaming clients. A Broadcaster fans each
// published envelope out to every active subscription; subscriptions
// are independent, so a slow or closed subscriber never affects the
// others.
package broadcast

import (
	"context"
	"sync"

	"github.com/tomtom215/pipewatch/internal/logging"
	"github.com/tomtom215/pipewatch/internal/metrics"
	"github.com/tomtom215/pipewatch/internal/models"
)

// DefaultBufferSize is the per-subscription channel capacity used when
// NewBroadcaster is given a non-positive size.
const DefaultBufferSize = 64

// Broadcaster relays webhook envelopes to an arbitrary number of
// subscribers. All methods are safe for concurrent use.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	bufSize int
	closed  bool
}

// Subscription is one subscriber's endpoint. Events are received from
// Events(); Close releases the subscription and is safe to call more
// than once.
type Subscription struct {
	b  *Broadcaster
	ch chan models.WebhookEnvelope
}

// NewBroadcaster returns a Broadcaster whose subscriptions buffer up
// to bufSize pending envelopes each.
func NewBroadcaster(bufSize int) *Broadcaster {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Broadcaster{
		subs:    make(map[*Subscription]struct{}),
		bufSize: bufSize,
	}
}

// Subscribe registers a new subscriber and returns its endpoint. A
// subscription created after Close returns a closed endpoint that
// yields no events.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		b:  b,
		ch: make(chan models.WebhookEnvelope, b.bufSize),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	metrics.SetStreamSubscribers(n)
	logging.Debug().Int("listeners", n).Msg("Stream subscriber registered")
	return sub
}

// Publish delivers the envelope to every active subscription. When a
// subscription's buffer is full, its oldest pending envelope is
// dropped to make room, so subscribers always converge on recent
// events. Publishing with no subscribers logs a warning and is
// otherwise a no-op.
func (b *Broadcaster) Publish(env models.WebhookEnvelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	metrics.StreamEventsPublished.Inc()

	if len(b.subs) == 0 {
		logging.Warn().
			Str("event", env.Event).
			Int64("record_id", env.RecordID).
			Msg("Webhook event published with no stream subscribers")
		return
	}

	for sub := range b.subs {
		select {
		case sub.ch <- env:
		default:
			// Buffer full: evict the oldest pending envelope, then
			// retry once. The second send can only fail if the
			// subscriber drained the channel in between, in which
			// case it succeeds on the race anyway or the envelope is
			// counted dropped.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- env:
			default:
			}
			metrics.StreamEventsDropped.Inc()
			logging.Warn().
				Str("event", env.Event).
				Int64("record_id", env.RecordID).
				Msg("Dropped oldest buffered event for slow stream subscriber")
		}
	}
}

// ListenerCount returns the number of active subscriptions.
func (b *Broadcaster) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close shuts the broadcaster down: every subscription's channel is
// closed and further Publish and Subscribe calls become no-ops. Safe
// to call more than once.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
	metrics.SetStreamSubscribers(0)
	logging.Info().Msg("Broadcaster closed")
}

// Run blocks until ctx is cancelled, then closes the broadcaster. It
// exists so the broadcaster can participate in the supervision tree.
func (b *Broadcaster) Run(ctx context.Context) error {
	<-ctx.Done()
	b.Close()
	return ctx.Err()
}

// Events returns the channel envelopes are delivered on. The channel
// is closed when the subscription or the broadcaster is closed.
func (s *Subscription) Events() <-chan models.WebhookEnvelope {
	return s.ch
}

// Close deregisters the subscription and closes its channel. It is
// idempotent: closing an already-closed subscription, or one whose
// broadcaster has shut down, does nothing.
func (s *Subscription) Close() {
	b := s.b

	b.mu.Lock()
	if _, ok := b.subs[s]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, s)
	close(s.ch)
	n := len(b.subs)
	b.mu.Unlock()

	metrics.SetStreamSubscribers(n)
	logging.Debug().Int("listeners", n).Msg("Stream subscriber deregistered")
}
