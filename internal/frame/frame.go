// Package frame runs main-loop effects: callbacks invoked once per frame
// on the event loop, ordered by stage and optionally throttled.
package frame

import (
	"sort"
	"time"

	"github.com/zalo/manapotion/internal/loop"
)

// Stages order effects within a frame. Lower stages run first.
const (
	StageEarly   = -1
	StageDefault = 0
	StageLate    = 1
)

// DefaultRate is the frame rate used when New is given zero.
const DefaultRate = 60

// Frame describes one tick.
type Frame struct {
	Time    time.Time
	Delta   time.Duration // since the previous frame
	Elapsed time.Duration // since the loop started
}

// EffectOptions tunes one effect.
type EffectOptions struct {
	// Throttle skips frames until at least this long has passed since
	// the effect last ran. Zero runs it every frame.
	Throttle time.Duration
	Stage    int
}

type effect struct {
	id      int
	fn      func(Frame)
	opts    EffectOptions
	lastRun time.Time
	ran     bool
	removed bool
}

// Loop is a frame ticker. It runs only while it has effects. All methods
// must be called from the event loop it was created with.
type Loop struct {
	loop     loop.Loop
	interval time.Duration

	ticker  loop.Timer
	effects []*effect
	nextID  int
	start   time.Time
	last    time.Time
}

// New creates a frame loop ticking rate times per second on l.
func New(l loop.Loop, rate int) *Loop {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Loop{loop: l, interval: time.Second / time.Duration(rate)}
}

// Interval returns the time between frames.
func (f *Loop) Interval() time.Duration {
	return f.interval
}

// Running reports whether the ticker is armed.
func (f *Loop) Running() bool {
	return f.ticker != nil
}

// Add registers an effect and starts the ticker if it was idle. The
// returned function removes the effect; the ticker stops with the last
// one.
func (f *Loop) Add(fn func(Frame), opts EffectOptions) (remove func()) {
	e := &effect{id: f.nextID, fn: fn, opts: opts}
	f.nextID++
	f.effects = append(f.effects, e)
	sort.SliceStable(f.effects, func(i, j int) bool {
		return f.effects[i].opts.Stage < f.effects[j].opts.Stage
	})

	if f.ticker == nil {
		f.start = f.loop.Now()
		f.last = f.start
		f.ticker = f.loop.Every(f.interval, f.tick)
	}

	return func() {
		if e.removed {
			return
		}
		e.removed = true
		for i, other := range f.effects {
			if other == e {
				f.effects = append(f.effects[:i:i], f.effects[i+1:]...)
				break
			}
		}
		if len(f.effects) == 0 && f.ticker != nil {
			f.ticker.Stop()
			f.ticker = nil
		}
	}
}

// Stop removes every effect and stops the ticker.
func (f *Loop) Stop() {
	for _, e := range f.effects {
		e.removed = true
	}
	f.effects = nil
	if f.ticker != nil {
		f.ticker.Stop()
		f.ticker = nil
	}
}

func (f *Loop) tick() {
	now := f.loop.Now()
	fr := Frame{Time: now, Delta: now.Sub(f.last), Elapsed: now.Sub(f.start)}
	f.last = now

	for _, e := range append([]*effect(nil), f.effects...) {
		if e.removed {
			continue
		}
		if e.opts.Throttle > 0 && e.ran && now.Sub(e.lastRun) < e.opts.Throttle {
			continue
		}
		e.ran = true
		e.lastRun = now
		e.fn(fr)
	}
}
