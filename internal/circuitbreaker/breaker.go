// Package circuitbreaker provides a fail-fast gate consulted before
// the HTTP transport: repeated exchange failures open the breaker and
// short-circuit calls without network I/O until a probe succeeds.
package circuitbreaker

import (
	"sync"
	"time"

	"asterdex/internal/clock"
)

// State is the breaker position.
type State int32

const (
	// StateClosed passes all calls through.
	StateClosed State = iota
	// StateOpen rejects all calls until the open timeout elapses.
	StateOpen
	// StateHalfOpen passes probe calls through to test recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config tunes the breaker thresholds.
type Config struct {
	// FailThreshold is the consecutive-failure count that opens the breaker.
	FailThreshold int `json:"fail_threshold"`
	// SuccessThreshold is the half-open success count that closes it again.
	SuccessThreshold int `json:"success_threshold"`
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration `json:"timeout"`
}

// Breaker is a three-state circuit breaker. Safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	config    Config
	clock     clock.Clock
}

// New creates a breaker in the closed state.
func New(config Config) *Breaker {
	return NewWithClock(config, clock.Real{})
}

// NewWithClock creates a breaker on an injectable clock.
func NewWithClock(config Config, c clock.Clock) *Breaker {
	return &Breaker{config: config, clock: c}
}

// Allow reports whether a call may proceed. An open breaker flips to
// half-open once the open timeout has elapsed, admitting a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.clock.Now().Sub(b.openedAt) >= b.config.Timeout {
			b.state = StateHalfOpen
			b.successes = 0
			return true
		}
		return false
	}
	return false
}

// Record feeds a call outcome back into the breaker.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.FailThreshold {
			b.state = StateOpen
			b.openedAt = b.clock.Now()
		}
	case StateHalfOpen:
		if !success {
			b.state = StateOpen
			b.openedAt = b.clock.Now()
			b.successes = 0
			return
		}
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	case StateOpen:
		// Outcome of a call admitted before the breaker opened; ignore.
	}
}

// State returns the current breaker position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
