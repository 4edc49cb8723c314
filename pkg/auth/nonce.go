package auth

import (
	"sync/atomic"

	"asterdex/internal/clock"
)

// nonceSource issues strictly increasing microsecond nonces. The wall
// clock alone can repeat within a tick, so the last issued value gates
// every read: two calls in the same microsecond still differ.
type nonceSource struct {
	clock clock.Clock
	last  atomic.Int64
}

func newNonceSource(c clock.Clock) *nonceSource {
	return &nonceSource{clock: c}
}

// Next returns the next nonce: max(now in microseconds, previous+1).
// Safe for concurrent use.
func (n *nonceSource) Next() int64 {
	for {
		now := n.clock.Now().UnixMicro()
		last := n.last.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if n.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
