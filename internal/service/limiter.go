package service

// limiter.go bounds how many catalog ingestions run at once.
//
// Every ingestion parses a whole catalog in memory before it is swapped in,
// so uploads and reloads share a small semaphore. A caller that cannot get
// a slot within maxWait fails with ErrTooManyIngests. WaitForDrain lets
// shutdown wait for in-flight ingestions.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyIngests is returned when every ingestion slot stays busy for
// longer than the limiter's wait time.
var ErrTooManyIngests = errors.New("too many ingests in progress, please try again later")

// DefaultMaxConcurrentIngests is used when the configured limit is not positive.
const DefaultMaxConcurrentIngests = 2

// DefaultMaxWaitTime is how long Acquire waits for a slot by default.
const DefaultMaxWaitTime = 10 * time.Second

// IngestLimiter is a counting semaphore for ingestion runs.
type IngestLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewIngestLimiter allows maxConcurrent ingestions at once; Acquire gives up
// after maxWait.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &IngestLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to the limiter's wait time. The caller
// must Release the slot when done.
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.track(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyIngests
	}
}

// TryAcquire takes a slot if one is free right now.
func (l *IngestLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.track(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *IngestLimiter) Release() {
	l.track(-1)
	<-l.slots
}

func (l *IngestLimiter) track(delta int) {
	l.mu.Lock()
	l.active += delta
	l.mu.Unlock()
}

// ActiveCount returns the number of running ingestions.
func (l *IngestLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *IngestLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no ingestion is running or ctx is done.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a point-in-time view of an IngestLimiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports the limiter's current state.
func (l *IngestLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
