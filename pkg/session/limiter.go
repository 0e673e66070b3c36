// Package session bounds how many automation sessions may be in use at once.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Slot is the right to use one automation session until it is released.
type Slot struct {
	id       int
	released atomic.Bool
}

// ID identifies the session this slot leases, in the range [0, Size).
func (s *Slot) ID() int { return s.id }

// Limiter is a counting semaphore over a fixed number of session slots.
// Waiters are served in arrival order.
type Limiter struct {
	size int
	sem  *semaphore.Weighted

	mu   sync.Mutex
	free []int

	inUse atomic.Int64
	peak  atomic.Int64

	// OnChange, if set, is called with the number of held slots after every
	// acquire and release.
	OnChange func(inUse int)
}

// NewLimiter creates a limiter with n slots. n below 1 is treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	free := make([]int, n)
	for i := range free {
		free[i] = n - 1 - i
	}
	return &Limiter{
		size: n,
		sem:  semaphore.NewWeighted(int64(n)),
		free: free,
	}
}

// Acquire blocks until a slot is available or ctx is done.
// The returned slot must be passed to Release exactly once.
func (l *Limiter) Acquire(ctx context.Context) (*Slot, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire session slot: %w", err)
	}

	l.mu.Lock()
	id := l.free[len(l.free)-1]
	l.free = l.free[:len(l.free)-1]
	l.mu.Unlock()

	n := l.inUse.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	l.notify(n)

	return &Slot{id: id}, nil
}

// Release returns the slot to the pool. Releasing the same slot twice is a no-op.
func (l *Limiter) Release(s *Slot) {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}

	l.mu.Lock()
	l.free = append(l.free, s.id)
	l.mu.Unlock()

	n := l.inUse.Add(-1)
	l.sem.Release(1)
	l.notify(n)
}

// Do runs fn while holding a slot. The slot is released on every return path,
// including a panic in fn.
func (l *Limiter) Do(ctx context.Context, fn func(*Slot) error) error {
	slot, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer l.Release(slot)
	return fn(slot)
}

// Size returns the fixed capacity.
func (l *Limiter) Size() int { return l.size }

// InUse returns the number of slots currently held.
func (l *Limiter) InUse() int { return int(l.inUse.Load()) }

// Peak returns the highest number of slots held at the same time.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }

func (l *Limiter) notify(n int64) {
	if l.OnChange != nil {
		l.OnChange(int(n))
	}
}
