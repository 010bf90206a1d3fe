// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pipewatch/internal/models"
)

func init() {
	// Publish paths log on every drop; keep test output quiet.
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func testEnvelope(id int64) models.WebhookEnvelope {
	return models.WebhookEnvelope{
		Event:     "push",
		Payload:   json.RawMessage(`{"x":1}`),
		RecordID:  id,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFanOutToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(8)
	defer b.Close()

	subA := b.Subscribe()
	subB := b.Subscribe()

	if got := b.ListenerCount(); got != 2 {
		t.Fatalf("ListenerCount() = %d, want 2", got)
	}

	want := testEnvelope(7)
	b.Publish(want)

	for name, sub := range map[string]*Subscription{"A": subA, "B": subB} {
		select {
		case got := <-sub.Events():
			if got.RecordID != want.RecordID || got.Event != want.Event {
				t.Errorf("subscriber %s received %+v, want %+v", name, got, want)
			}
			if !got.Timestamp.Equal(want.Timestamp) {
				t.Errorf("subscriber %s timestamp = %s, want %s", name, got.Timestamp, want.Timestamp)
			}
		case <-time.After(time.Second):
			t.Errorf("subscriber %s received nothing", name)
		}
	}
}

func TestNoDeliveryAfterSubscriptionClose(t *testing.T) {
	b := NewBroadcaster(8)
	defer b.Close()

	subA := b.Subscribe()
	subB := b.Subscribe()

	subA.Close()
	if got := b.ListenerCount(); got != 1 {
		t.Fatalf("ListenerCount() after close = %d, want 1", got)
	}

	b.Publish(testEnvelope(1))

	// The closed subscription's channel yields only the closed signal.
	select {
	case env, ok := <-subA.Events():
		if ok {
			t.Errorf("closed subscription received envelope %+v", env)
		}
	case <-time.After(time.Second):
		t.Error("closed subscription channel was not closed")
	}

	select {
	case env := <-subB.Events():
		if env.RecordID != 1 {
			t.Errorf("remaining subscriber got RecordID %d, want 1", env.RecordID)
		}
	case <-time.After(time.Second):
		t.Error("remaining subscriber received nothing")
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := NewBroadcaster(8)
	defer b.Close()

	sub := b.Subscribe()
	sub.Close()
	sub.Close()
	sub.Close()

	if got := b.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() = %d, want 0", got)
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := NewBroadcaster(8)
	defer b.Close()

	// Must not panic or block.
	b.Publish(testEnvelope(1))

	if got := b.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() = %d, want 0", got)
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	b := NewBroadcaster(4)
	defer b.Close()

	sub := b.Subscribe()

	// Publish past the buffer without draining. The oldest envelopes
	// are evicted so the most recent four remain.
	for i := int64(1); i <= 6; i++ {
		b.Publish(testEnvelope(i))
	}

	var got []int64
	for i := 0; i < 4; i++ {
		select {
		case env := <-sub.Events():
			got = append(got, env.RecordID)
		case <-time.After(time.Second):
			t.Fatalf("received only %d envelopes, want 4", i)
		}
	}

	want := []int64{3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("received %v, want %v", got, want)
		}
	}

	// No further envelopes pending.
	select {
	case env := <-sub.Events():
		t.Errorf("unexpected extra envelope %+v", env)
	default:
	}
}

func TestSlowSubscriberDoesNotAffectOthers(t *testing.T) {
	b := NewBroadcaster(2)
	defer b.Close()

	slow := b.Subscribe()
	fast := b.Subscribe()
	_ = slow // never drained

	for i := int64(1); i <= 10; i++ {
		b.Publish(testEnvelope(i))
		select {
		case env := <-fast.Events():
			if env.RecordID != i {
				t.Fatalf("fast subscriber got RecordID %d, want %d", env.RecordID, i)
			}
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber starved at envelope %d", i)
		}
	}
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster(8)
	sub := b.Subscribe()

	b.Close()
	b.Close() // idempotent

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("subscription received envelope after broadcaster close")
		}
	case <-time.After(time.Second):
		t.Error("subscription channel not closed by broadcaster close")
	}

	// Publish and Subscribe after Close are inert.
	b.Publish(testEnvelope(1))
	late := b.Subscribe()
	if _, ok := <-late.Events(); ok {
		t.Error("subscription created after close should be closed")
	}
	if got := b.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() after close = %d, want 0", got)
	}

	// Closing subscriptions after broadcaster shutdown must not panic.
	sub.Close()
	late.Close()
}

func TestRunClosesOnContextCancel(t *testing.T) {
	b := NewBroadcaster(8)
	sub := b.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("subscription still open after Run returned")
	}
}

func TestConcurrentSubscribePublishClose(t *testing.T) {
	b := NewBroadcaster(16)
	defer b.Close()

	var wg sync.WaitGroup

	// Publishers.
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < 100; i++ {
				b.Publish(testEnvelope(base*1000 + i))
			}
		}(int64(p))
	}

	// Churning subscribers.
	for s := 0; s < 8; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sub := b.Subscribe()
				// Drain a little, then leave.
				select {
				case <-sub.Events():
				default:
				}
				sub.Close()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent churn did not finish; likely deadlock")
	}

	if got := b.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() after churn = %d, want 0", got)
	}
}

// Benchmark tests
func BenchmarkPublishNoListeners(b *testing.B) {
	br := NewBroadcaster(16)
	defer br.Close()

	env := testEnvelope(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		br.Publish(env)
	}
}

func BenchmarkPublishFanOut(b *testing.B) {
	br := NewBroadcaster(1024)
	defer br.Close()

	// Listeners that drain as fast as they can so the publish path is
	// measured, not the drop path.
	done := make(chan struct{})
	for s := 0; s < 8; s++ {
		sub := br.Subscribe()
		go func(sub *Subscription) {
			for {
				select {
				case <-sub.Events():
				case <-done:
					return
				}
			}
		}(sub)
	}

	env := testEnvelope(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		br.Publish(env)
	}
	b.StopTimer()
	close(done)
}
