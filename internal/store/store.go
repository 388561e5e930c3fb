// Package store holds the dual-channel input state of one page.
//
// Every signal has a live value, written synchronously by event handlers,
// and a reactive value, written at a bounded rate and observed through
// Subscribe. Held keys are tracked once, indexed both by physical code
// and by logical key.
package store

import (
	"sort"
	"sync"
)

// Change describes a reactive update delivered to subscribers.
type Change struct {
	Signal   Signal
	Reactive State
}

// Store is the state container shared by every listener of a page.
type Store struct {
	mu       sync.RWMutex
	live     State
	reactive State
	byCode   map[string]KeyState
	byKey    map[string]KeyState
	custom   map[string]any

	subMu  sync.Mutex
	subs   map[int]func(Change)
	order  []int
	nextID int
}

// New returns a store holding neutral defaults on both channels.
func New() *Store {
	return &Store{
		live:     Neutral(),
		reactive: Neutral(),
		byCode:   make(map[string]KeyState),
		byKey:    make(map[string]KeyState),
		custom:   make(map[string]any),
		subs:     make(map[int]func(Change)),
	}
}

// Live returns a copy of the live channel.
func (s *Store) Live() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// Reactive returns a copy of the reactive channel.
func (s *Store) Reactive() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reactive
}

// Snapshot returns both channels read under one lock.
func (s *Store) Snapshot() (live, reactive State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live, s.reactive
}

// GetLive reads a signal from the live channel.
func GetLive[T comparable](s *Store, k Key[T]) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return k.get(&s.live)
}

// GetReactive reads a signal from the reactive channel.
func GetReactive[T comparable](s *Store, k Key[T]) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return k.get(&s.reactive)
}

// SetLive writes a signal to the live channel. Subscribers are not
// notified; the live channel is polled.
func SetLive[T comparable](s *Store, k Key[T], v T) {
	s.mu.Lock()
	k.set(&s.live, v)
	s.mu.Unlock()
}

// SetReactive writes a signal to the reactive channel and notifies
// subscribers if the value changed.
func SetReactive[T comparable](s *Store, k Key[T], v T) {
	s.mu.Lock()
	changed := k.get(&s.reactive) != v
	k.set(&s.reactive, v)
	snap := s.reactive
	s.mu.Unlock()

	if changed {
		s.notify(Change{Signal: k.Signal, Reactive: snap})
	}
}

// Set writes a signal to both channels in one step. It is used for
// discrete signals and for decay resets, so a reader never sees one
// channel updated without the other.
func Set[T comparable](s *Store, k Key[T], v T) {
	s.mu.Lock()
	changed := k.get(&s.reactive) != v
	k.set(&s.live, v)
	k.set(&s.reactive, v)
	snap := s.reactive
	s.mu.Unlock()

	if changed {
		s.notify(Change{Signal: k.Signal, Reactive: snap})
	}
}

// UpdateLive applies fn to the live channel. Several signals written in
// one fn become visible together.
func (s *Store) UpdateLive(fn func(*State)) {
	s.mu.Lock()
	fn(&s.live)
	s.mu.Unlock()
}

// UpdateReactive applies fn to the reactive channel and notifies
// subscribers under sig if the channel changed.
func (s *Store) UpdateReactive(sig Signal, fn func(*State)) {
	s.mu.Lock()
	before := s.reactive
	fn(&s.reactive)
	snap := s.reactive
	s.mu.Unlock()

	if snap != before {
		s.notify(Change{Signal: sig, Reactive: snap})
	}
}

// Update applies fn to both channels in one step.
func (s *Store) Update(sig Signal, fn func(*State)) {
	s.mu.Lock()
	before := s.reactive
	fn(&s.live)
	fn(&s.reactive)
	snap := s.reactive
	s.mu.Unlock()

	if snap != before {
		s.notify(Change{Signal: sig, Reactive: snap})
	}
}

// SetKeyDown records a held key. It is a no-op returning false when the
// code or the key is already held, which filters native key repeat.
func (s *Store) SetKeyDown(ks KeyState) bool {
	s.mu.Lock()
	_, codeHeld := s.byCode[ks.Code]
	_, keyHeld := s.byKey[ks.Key]
	if codeHeld || keyHeld {
		s.mu.Unlock()
		return false
	}
	s.byCode[ks.Code] = ks
	s.byKey[ks.Key] = ks
	snap := s.reactive
	s.mu.Unlock()

	s.notify(Change{Signal: SignalKeys, Reactive: snap})
	return true
}

// SetKeyUp releases the key held under code or key. Entries paired with
// either identity are removed together. It reports whether anything was
// held; a release without a matching press is a no-op.
func (s *Store) SetKeyUp(code, key string) bool {
	s.mu.Lock()
	removed := false
	if ks, ok := s.byCode[code]; ok {
		delete(s.byCode, ks.Code)
		delete(s.byKey, ks.Key)
		removed = true
	}
	if ks, ok := s.byKey[key]; ok {
		delete(s.byCode, ks.Code)
		delete(s.byKey, ks.Key)
		removed = true
	}
	snap := s.reactive
	s.mu.Unlock()

	if removed {
		s.notify(Change{Signal: SignalKeys, Reactive: snap})
	}
	return removed
}

// KeyByCode looks up a held key by physical code, e.g. "KeyW".
func (s *Store) KeyByCode(code string) (KeyState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ks, ok := s.byCode[code]
	return ks, ok
}

// KeyByKey looks up a held key by logical key, e.g. "w".
func (s *Store) KeyByKey(key string) (KeyState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ks, ok := s.byKey[key]
	return ks, ok
}

// Keys returns the held keys ordered by code.
func (s *Store) Keys() []KeyState {
	s.mu.RLock()
	keys := make([]KeyState, 0, len(s.byCode))
	for _, ks := range s.byCode {
		keys = append(keys, ks)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].Code < keys[j].Code })
	return keys
}

// ClearInputs releases every held key and mouse button. Pages call it on
// blur, since releases that happen while unfocused are never delivered.
func (s *Store) ClearInputs() {
	s.mu.Lock()
	hadKeys := len(s.byCode) > 0 || len(s.byKey) > 0
	held := s.reactive.Pointer.Buttons
	s.byCode = make(map[string]KeyState)
	s.byKey = make(map[string]KeyState)
	s.live.Pointer.Buttons = Buttons{}
	s.reactive.Pointer.Buttons = Buttons{}
	snap := s.reactive
	s.mu.Unlock()

	for _, b := range []struct {
		down bool
		sig  Signal
	}{
		{held.Left, SignalLeftButton},
		{held.Middle, SignalMiddleButton},
		{held.Right, SignalRightButton},
	} {
		if b.down {
			s.notify(Change{Signal: b.sig, Reactive: snap})
		}
	}
	if hadKeys {
		s.notify(Change{Signal: SignalKeys, Reactive: snap})
	}
}

// SetCustom stores an application-defined value and notifies subscribers.
func (s *Store) SetCustom(name string, v any) {
	s.mu.Lock()
	s.custom[name] = v
	snap := s.reactive
	s.mu.Unlock()

	s.notify(Change{Signal: SignalCustom + Signal("."+name), Reactive: snap})
}

// Custom returns a value stored with SetCustom.
func (s *Store) Custom(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.custom[name]
	return v, ok
}

// Subscribe registers fn for reactive changes. Subscribers run in
// registration order on the goroutine that made the change. The returned
// function removes the subscription and may be called more than once.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			for i, other := range s.order {
				if other == id {
					s.order = append(s.order[:i:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
