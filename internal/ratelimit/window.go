// Package ratelimit provides the client-side admission gates: a
// sliding-window counter shared by all requests of one client, plus
// named token buckets for per-endpoint-family limits.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"asterdex/internal/clock"
)

// Window is a sliding-window admission gate. It records the timestamp
// of each admitted request and refuses new requests while the trailing
// window already holds the maximum. Entries older than the window are
// pruned lazily on each check.
type Window struct {
	mu         sync.Mutex
	maxReqs    int
	window     time.Duration
	timestamps []time.Time
	clock      clock.Clock
}

// NewWindow creates a gate allowing maxRequests per trailing window.
func NewWindow(maxRequests int, window time.Duration) *Window {
	return NewWindowWithClock(maxRequests, window, clock.Real{})
}

// NewWindowWithClock creates a gate on an injectable clock.
func NewWindowWithClock(maxRequests int, window time.Duration, c clock.Clock) *Window {
	return &Window{
		maxReqs: maxRequests,
		window:  window,
		clock:   c,
	}
}

// prune discards entries older than the window. Caller holds mu.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

// CanMakeRequest reports whether a request would be admitted now.
// It does not record anything.
func (w *Window) CanMakeRequest() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.clock.Now())
	return len(w.timestamps) < w.maxReqs
}

// RecordRequest records an admitted request at the current time.
func (w *Window) RecordRequest() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.clock.Now()
	w.prune(now)
	w.timestamps = append(w.timestamps, now)
}

// TimeUntilReset returns how long until the oldest recorded entry falls
// out of the window; zero when a request would be admitted immediately.
func (w *Window) TimeUntilReset() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.clock.Now()
	w.prune(now)
	if len(w.timestamps) < w.maxReqs {
		return 0
	}
	return w.timestamps[0].Add(w.window).Sub(now)
}

// WaitUntilReady blocks the caller until a request would be admitted or
// the context is cancelled. It does not record the request.
func (w *Window) WaitUntilReady(ctx context.Context) error {
	for {
		wait := w.TimeUntilReset()
		if wait <= 0 {
			return nil
		}

		ready := make(chan struct{})
		timer := w.clock.AfterFunc(wait, func() { close(ready) })
		select {
		case <-ready:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Reset clears all recorded entries.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timestamps = w.timestamps[:0]
}

// Len returns the number of entries currently inside the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.clock.Now())
	return len(w.timestamps)
}
