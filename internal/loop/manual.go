package loop

import (
	"sort"
	"time"
)

// Manual is a Loop driven by virtual time. Nothing runs until Flush or
// Advance is called, which makes timer behaviour deterministic.
type Manual struct {
	now    time.Time
	seq    uint64
	tasks  []func()
	timers []*manualTimer
}

// NewManual returns a manual loop whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	m       *Manual
	when    time.Time
	seq     uint64
	period  time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.m.remove(t)
	return true
}

// Post implements Loop.
func (m *Manual) Post(fn func()) {
	m.tasks = append(m.tasks, fn)
}

// Now implements Loop.
func (m *Manual) Now() time.Time {
	return m.now
}

// AfterFunc implements Loop.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.schedule(d, 0, fn)
}

// Every implements Loop.
func (m *Manual) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		d = time.Millisecond
	}
	return m.schedule(d, d, fn)
}

func (m *Manual) schedule(d, period time.Duration, fn func()) *manualTimer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, when: m.now.Add(d), seq: m.seq, period: period, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) remove(t *manualTimer) {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Pending returns the number of armed timers.
func (m *Manual) Pending() int {
	return len(m.timers)
}

// Flush runs posted callbacks, including callbacks they post.
func (m *Manual) Flush() {
	for len(m.tasks) > 0 {
		fn := m.tasks[0]
		m.tasks = m.tasks[1:]
		fn()
	}
}

// Advance moves the clock forward by d, firing due timers in deadline
// order. Timers due at the same instant fire in scheduling order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	m.Flush()
	for {
		t := m.next(target)
		if t == nil {
			break
		}
		m.now = t.when
		if t.period > 0 {
			m.seq++
			t.when = t.when.Add(t.period)
			t.seq = m.seq
		} else {
			t.stopped = true
			m.remove(t)
		}
		t.fn()
		m.Flush()
	}
	m.now = target
}

func (m *Manual) next(target time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		a, b := m.timers[i], m.timers[j]
		if a.when.Equal(b.when) {
			return a.seq < b.seq
		}
		return a.when.Before(b.when)
	})
	if t := m.timers[0]; !t.when.After(target) {
		return t
	}
	return nil
}
