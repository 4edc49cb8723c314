package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Buckets holds named token-bucket limiters layered under the sliding
// window for per-endpoint-family limits (general requests vs orders).
// Buckets are created on demand with the default limit.
type Buckets struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	requests int
	period   time.Duration
}

// NewBuckets creates a bucket set defaulting each bucket to requests
// per period.
func NewBuckets(requests int, period time.Duration) *Buckets {
	return &Buckets{
		limiters: make(map[string]*rate.Limiter),
		requests: requests,
		period:   period,
	}
}

func (b *Buckets) get(name string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.limiters[name]; ok {
		return l
	}
	rps := float64(b.requests) / b.period.Seconds()
	l := rate.NewLimiter(rate.Limit(rps), b.requests)
	b.limiters[name] = l
	return l
}

// Allow reports whether the named bucket permits a request immediately.
func (b *Buckets) Allow(name string) bool {
	return b.get(name).Allow()
}

// AllowN reports whether the named bucket permits a request of the
// given weight immediately.
func (b *Buckets) AllowN(name string, weight int) bool {
	return b.get(name).AllowN(time.Now(), weight)
}

// Wait blocks until the named bucket permits a request or the context
// is cancelled.
func (b *Buckets) Wait(ctx context.Context, name string) error {
	return b.get(name).Wait(ctx)
}

// SetLimit overrides the limit for one bucket, creating it if needed.
func (b *Buckets) SetLimit(name string, requests int, period time.Duration) {
	rps := float64(requests) / period.Seconds()
	b.get(name).SetLimit(rate.Limit(rps))
	b.get(name).SetBurst(requests)
}
