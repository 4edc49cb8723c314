package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asterdex/internal/clock"
)

func TestWindow_AllowsUpToMax(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(1700000000000))
	w := NewWindowWithClock(5, time.Second, fake)

	for i := 0; i < 5; i++ {
		assert.True(t, w.CanMakeRequest(), "request %d should be admitted", i+1)
		w.RecordRequest()
	}

	assert.False(t, w.CanMakeRequest())
}

func TestWindow_ResetsAfterWindowElapses(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(1700000000000))
	w := NewWindowWithClock(5, time.Second, fake)

	for i := 0; i < 5; i++ {
		w.RecordRequest()
	}
	assert.False(t, w.CanMakeRequest())

	fake.Advance(1001 * time.Millisecond)
	assert.True(t, w.CanMakeRequest())
	assert.Equal(t, 0, w.Len())
}

func TestWindow_TimeUntilReset(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(1700000000000))
	w := NewWindowWithClock(2, time.Second, fake)

	assert.Equal(t, time.Duration(0), w.TimeUntilReset())

	w.RecordRequest()
	fake.Advance(200 * time.Millisecond)
	w.RecordRequest()

	// Full: reset when the oldest entry (200ms ago) expires.
	assert.Equal(t, 800*time.Millisecond, w.TimeUntilReset())

	fake.Advance(300 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, w.TimeUntilReset())
}

func TestWindow_LazyPruning(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(1700000000000))
	w := NewWindowWithClock(3, time.Second, fake)

	w.RecordRequest()
	fake.Advance(600 * time.Millisecond)
	w.RecordRequest()
	w.RecordRequest()
	assert.False(t, w.CanMakeRequest())

	// Only the first entry has aged out.
	fake.Advance(500 * time.Millisecond)
	assert.True(t, w.CanMakeRequest())
	assert.Equal(t, 2, w.Len())
}

func TestWindow_Reset(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(1700000000000))
	w := NewWindowWithClock(2, time.Second, fake)

	w.RecordRequest()
	w.RecordRequest()
	assert.False(t, w.CanMakeRequest())

	w.Reset()
	assert.True(t, w.CanMakeRequest())
}

func TestWindow_WaitUntilReady(t *testing.T) {
	fake := clock.NewFake(time.UnixMilli(1700000000000))
	w := NewWindowWithClock(2, time.Second, fake)

	w.RecordRequest()
	w.RecordRequest()

	done := make(chan error, 1)
	go func() {
		done <- w.WaitUntilReady(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("returned before the window reset")
	case <-time.After(20 * time.Millisecond): // let the caller reach its wait
	}

	fake.Advance(1001 * time.Millisecond)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("did not unblock after the window reset")
	}
	assert.True(t, w.CanMakeRequest())
}

func TestWindow_WaitUntilReady_ContextCancellation(t *testing.T) {
	w := NewWindow(1, time.Minute)
	w.RecordRequest()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.WaitUntilReady(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWindow_Concurrent(t *testing.T) {
	w := NewWindow(100, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.RecordRequest()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, w.Len())
	assert.False(t, w.CanMakeRequest())
}

func TestBuckets_IndependentLimits(t *testing.T) {
	b := NewBuckets(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, b.Allow("requests"), "requests bucket call %d", i+1)
	}
	assert.False(t, b.Allow("requests"))

	assert.True(t, b.Allow("orders"), "orders bucket is independent")
}

func TestBuckets_Wait(t *testing.T) {
	b := NewBuckets(5, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Wait(context.Background(), "requests"))
	}
}

func TestBuckets_WeightedAllow(t *testing.T) {
	b := NewBuckets(10, time.Second)

	assert.True(t, b.AllowN("requests", 8))
	assert.False(t, b.AllowN("requests", 5))
	assert.True(t, b.AllowN("requests", 2))
}
