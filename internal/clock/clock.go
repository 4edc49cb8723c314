// Package clock abstracts time so timer-driven code (heartbeats,
// reconnect backoff, rate-limit windows) can run against a fake in tests.
package clock

import (
	"sync"
	"time"
)

// Timer is a single-shot timer that fires a callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the timer was stopped
	// before firing.
	Stop() bool
}

// Clock supplies the current time and single-shot timers.
type Clock interface {
	Now() time.Time
	// AfterFunc fires fn after d elapses.
	AfterFunc(d time.Duration, fn func()) Timer
	Sleep(d time.Duration)
}

// Real is a Clock backed by the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func (Real) Sleep(d time.Duration) { time.Sleep(d) }

// Fake is a manually advanced Clock for deterministic tests.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *Fake
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewFake creates a Fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Sleep on a fake clock advances time immediately.
func (f *Fake) Sleep(d time.Duration) { f.Advance(d) }

// Advance moves the clock forward, firing any timers whose deadline is
// reached. Callbacks run synchronously on the advancing goroutine.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	var due []*fakeTimer
	remaining := f.timers[:0]
	for _, t := range f.timers {
		if !t.stopped && !t.fired && !t.at.After(now) {
			t.fired = true
			due = append(due, t)
			continue
		}
		if !t.stopped && !t.fired {
			remaining = append(remaining, t)
		}
	}
	f.timers = remaining
	f.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}
