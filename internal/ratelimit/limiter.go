// Package ratelimit enforces the upstream quota: a hard ceiling on outbound
// calls within any rolling time window, shared by every fetcher in the process.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// defaultSafetyMargin pads each computed wait so admissions never land
// exactly on the window edge.
const defaultSafetyMargin = 2 * time.Second

// Limiter admits callers in strict arrival order. Waiters park in a FIFO
// ticket queue; the head waiter sleeps with the mutex released, so reads of
// the limiter state stay prompt while a caller is parked on the window.
type Limiter struct {
	mu           sync.Mutex
	admitted     []time.Time
	queue        []chan struct{}
	max          int
	window       time.Duration
	safetyMargin time.Duration
}

// New creates a limiter allowing at most max admissions per rolling window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:          max,
		window:       window,
		safetyMargin: defaultSafetyMargin,
	}
}

// WithSafetyMargin overrides the wait padding and returns the limiter.
func (l *Limiter) WithSafetyMargin(margin time.Duration) *Limiter {
	l.safetyMargin = margin
	return l
}

// Acquire blocks until an admission is safe, then records it. Callers are
// admitted in arrival order; a caller cancelled while queued or while waiting
// on the window returns its context error without consuming a slot.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.prune(time.Now())
		if len(l.admitted) < l.max {
			l.admitted = append(l.admitted, time.Now())
			l.mu.Unlock()
			return nil
		}
	}
	turn := make(chan struct{})
	l.queue = append(l.queue, turn)
	head := len(l.queue) == 1
	l.mu.Unlock()

	if !head {
		select {
		case <-turn:
		case <-ctx.Done():
			l.abandon(turn)
			return ctx.Err()
		}
	}
	return l.admitAsHead(ctx, turn)
}

// admitAsHead loops until the window has room: it inspects state under the
// mutex but sleeps outside it, then re-validates after waking. On admission
// the head dequeues itself, which promotes the next queued caller.
func (l *Limiter) admitAsHead(ctx context.Context, turn chan struct{}) error {
	for {
		if err := ctx.Err(); err != nil {
			l.abandon(turn)
			return err
		}

		l.mu.Lock()
		now := time.Now()
		l.prune(now)
		if len(l.admitted) < l.max {
			l.admitted = append(l.admitted, now)
			l.dequeue(turn)
			l.mu.Unlock()
			return nil
		}
		wait := l.admitted[0].Add(l.window).Sub(now) + l.safetyMargin
		occupied := len(l.admitted)
		l.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"wait_ms":  wait.Milliseconds(),
			"admitted": occupied,
			"capacity": l.max,
		}).Debug("Rate limit reached, waiting for slot")

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			l.abandon(turn)
			return ctx.Err()
		}
	}
}

// abandon drops a caller out of the queue without an admission.
func (l *Limiter) abandon(turn chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dequeue(turn)
}

// dequeue removes turn from the queue. A removal at the front wakes the new
// head. Callers must hold the mutex; each ticket channel is closed at most
// once because only a front removal closes its successor.
func (l *Limiter) dequeue(turn chan struct{}) {
	for i, ch := range l.queue {
		if ch == turn {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			if i == 0 && len(l.queue) > 0 {
				close(l.queue[0])
			}
			return
		}
	}
}

// Occupancy returns the number of admissions in the current window and the
// configured capacity.
func (l *Limiter) Occupancy() (admitted, capacity int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return len(l.admitted), l.max
}

// Window returns the rolling window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// prune drops admission timestamps that have aged out of the window.
// Callers must hold the mutex.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.admitted) && l.admitted[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.admitted = append(l.admitted[:0], l.admitted[i:]...)
	}
}
