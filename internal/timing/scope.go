// Package timing centralises the rate limiting and idle decay applied to
// transient signals before they reach the reactive channel.
//
// A Scope belongs to exactly one listener handle. Every timer it arms is
// keyed by signal, and Close cancels all of them, so no callback armed by
// a scope can run after the scope is closed.
package timing

import (
	"time"

	"github.com/zalo/manapotion/internal/loop"
)

// Scope owns throttles, decay timers and polling intervals. It must only
// be used from the loop it was created with.
type Scope struct {
	loop      loop.Loop
	throttles map[string]*throttle
	decays    map[string]loop.Timer
	intervals map[string]loop.Timer
	closed    bool
}

type throttle struct {
	timer   loop.Timer
	pending func()
}

// NewScope creates a scope scheduling on l.
func NewScope(l loop.Loop) *Scope {
	return &Scope{
		loop:      l,
		throttles: make(map[string]*throttle),
		decays:    make(map[string]loop.Timer),
		intervals: make(map[string]loop.Timer),
	}
}

// Throttle coalesces calls for key into at most one invocation per
// interval. The first call of a quiet period arms a timer; calls arriving
// before it fires replace the pending fn, so the most recent one runs at
// the interval boundary. A non-positive interval runs fn immediately.
func (s *Scope) Throttle(key string, interval time.Duration, fn func()) {
	if s.closed {
		return
	}
	if interval <= 0 {
		fn()
		return
	}

	t, ok := s.throttles[key]
	if !ok {
		t = &throttle{}
		s.throttles[key] = t
	}
	t.pending = fn
	if t.timer != nil {
		return
	}
	t.timer = s.loop.AfterFunc(interval, func() {
		run := t.pending
		t.pending = nil
		t.timer = nil
		if run != nil {
			run()
		}
	})
}

// Decay restarts the single-shot idle timer for key. reset runs only if
// no further Decay call for key arrives within timeout. A non-positive
// timeout disables decay and cancels any armed timer.
func (s *Scope) Decay(key string, timeout time.Duration, reset func()) {
	if s.closed {
		return
	}
	if old, ok := s.decays[key]; ok {
		old.Stop()
		delete(s.decays, key)
	}
	if timeout <= 0 {
		return
	}

	var timer loop.Timer
	timer = s.loop.AfterFunc(timeout, func() {
		if s.decays[key] == timer {
			delete(s.decays, key)
		}
		reset()
	})
	s.decays[key] = timer
}

// Every polls fn for key, replacing any interval already registered
// under the same key.
func (s *Scope) Every(key string, period time.Duration, fn func()) {
	if s.closed || period <= 0 {
		return
	}
	if old, ok := s.intervals[key]; ok {
		old.Stop()
	}
	s.intervals[key] = s.loop.Every(period, fn)
}

// Throttling reports whether a trailing call for key is pending.
func (s *Scope) Throttling(key string) bool {
	t, ok := s.throttles[key]
	return ok && t.timer != nil
}

// Decaying reports whether an idle timer for key is armed.
func (s *Scope) Decaying(key string) bool {
	_, ok := s.decays[key]
	return ok
}

// Close stops every timer the scope owns. Further calls are ignored.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true

	for key, t := range s.throttles {
		if t.timer != nil {
			t.timer.Stop()
		}
		t.pending = nil
		delete(s.throttles, key)
	}
	for key, timer := range s.decays {
		timer.Stop()
		delete(s.decays, key)
	}
	for key, timer := range s.intervals {
		timer.Stop()
		delete(s.intervals, key)
	}
}

// Closed reports whether Close has run.
func (s *Scope) Closed() bool {
	return s.closed
}
