// Package loop provides the single-threaded event loop every handler,
// throttle and decay callback runs on.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is returned by Call when the loop is no longer running.
var ErrStopped = errors.New("event loop stopped")

// Timer is a scheduled callback. Stop reports whether the call was
// prevented; once Stop returns, the callback never runs again.
type Timer interface {
	Stop() bool
}

// Loop runs callbacks one at a time, never concurrently with each other.
type Loop interface {
	// Post schedules fn for a future loop turn.
	Post(fn func())

	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer

	// Every runs fn on the loop every d until stopped.
	Every(d time.Duration, fn func()) Timer

	// Now returns the loop's notion of the current time.
	Now() time.Time
}

// EventLoop is a Loop backed by a goroutine and wall-clock timers.
type EventLoop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake  chan struct{}
	done  chan struct{}
}

// New creates an event loop. Callbacks posted before Run are kept until
// the loop starts.
func New() *EventLoop {
	return &EventLoop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.queue = nil
		l.stopped = true
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		l.mu.Lock()
		tasks := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range tasks {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}

		if len(tasks) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Done is closed once Run has returned.
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}

// Post implements Loop. Callbacks posted after Run has returned are
// dropped.
func (l *EventLoop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Queued returns the number of callbacks waiting to run.
func (l *EventLoop) Queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Call runs fn on the loop and waits for it to return.
func (l *EventLoop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Now implements Loop.
func (l *EventLoop) Now() time.Time {
	return time.Now()
}

// AfterFunc implements Loop. The wall-clock timer only posts; the stop
// check and fn both run on the loop goroutine.
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &wallTimer{}
	t.mu.Lock()
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	t.mu.Unlock()
	return t
}

// Every implements Loop.
func (l *EventLoop) Every(d time.Duration, fn func()) Timer {
	t := &wallTimer{}
	var tick func()
	tick = func() {
		l.Post(func() {
			if t.stopped.Load() {
				return
			}
			fn()
			if !t.stopped.Load() {
				t.mu.Lock()
				t.timer = time.AfterFunc(d, tick)
				t.mu.Unlock()
			}
		})
	}
	t.mu.Lock()
	t.timer = time.AfterFunc(d, tick)
	t.mu.Unlock()
	return t
}

type wallTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *wallTimer) Stop() bool {
	if !t.stopped.CompareAndSwap(false, true) {
		return false
	}
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
	return true
}
