// Package listener composes capture, store and timing into named
// listeners that can be mounted and torn down as a unit.
//
// A listener writes the live channel synchronously, calls its direct
// callback, and only then schedules the throttled reactive update and the
// idle decay. All of that happens on the Env's loop.
package listener

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zalo/manapotion/internal/capture"
	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/loop"
	"github.com/zalo/manapotion/internal/store"
	"github.com/zalo/manapotion/internal/timing"
)

// ErrAlreadyMounted is returned when Mount is called on a mounted handle.
var ErrAlreadyMounted = errors.New("listener already mounted")

// Env is what every listener needs to run.
type Env struct {
	Host  host.Host
	Loop  loop.Loop
	Store *store.Store
}

// Disposer tears down a mounted listener. Only the first call has an
// effect.
type Disposer func()

// Listener installs the bindings and timers of one signal family.
type Listener interface {
	Name() string
	Install(b *Binder) error
}

// Binder is handed to Install. Everything a listener registers through it
// is owned by the handle and removed on unmount.
type Binder struct {
	Env
	Scope *timing.Scope
	owned []func()
}

// Capture mounts a capture and takes ownership of its disposer.
func (b *Binder) Capture(kind capture.Kind, fn func(capture.Reading), opts capture.Options) {
	b.Own(capture.Mount(b.Host, b.Loop, kind, fn, opts))
}

// Own registers a cleanup function. Cleanups run in reverse order.
func (b *Binder) Own(fn func()) {
	b.owned = append(b.owned, fn)
}

// State is a handle's lifecycle state.
type State int

const (
	Unmounted State = iota
	Mounting
	Mounted
	Unmounting
)

func (s State) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Mounting:
		return "mounting"
	case Mounted:
		return "mounted"
	case Unmounting:
		return "unmounting"
	}
	return "unknown"
}

// Handle is one mountable listener instance.
type Handle struct {
	ID string

	env      Env
	listener Listener
	state    State
	binder   *Binder
}

// NewHandle prepares l for mounting in env.
func NewHandle(env Env, l Listener) *Handle {
	return &Handle{
		ID:       uuid.New().String(),
		env:      env,
		listener: l,
	}
}

// State returns the lifecycle state.
func (h *Handle) State() State {
	return h.state
}

// Name returns the listener's name.
func (h *Handle) Name() string {
	return h.listener.Name()
}

// Mount installs the listener. It fails with ErrAlreadyMounted unless the
// handle is unmounted, and rolls back anything installed if the listener
// rejects its configuration.
func (h *Handle) Mount() (Disposer, error) {
	if h.state != Unmounted {
		return nil, fmt.Errorf("%s: %w", h.listener.Name(), ErrAlreadyMounted)
	}
	h.state = Mounting

	b := &Binder{Env: h.env, Scope: timing.NewScope(h.env.Loop)}
	if err := h.listener.Install(b); err != nil {
		teardown(b)
		h.state = Unmounted
		return nil, fmt.Errorf("%s: %w", h.listener.Name(), err)
	}
	h.binder = b
	h.state = Mounted

	var once sync.Once
	return func() { once.Do(h.unmount) }, nil
}

func (h *Handle) unmount() {
	h.state = Unmounting
	teardown(h.binder)
	h.binder = nil
	h.state = Unmounted
}

// teardown cancels timers before removing bindings, so no timer callback
// can observe a half-removed listener.
func teardown(b *Binder) {
	b.Scope.Close()
	for i := len(b.owned) - 1; i >= 0; i-- {
		b.owned[i]()
	}
	b.owned = nil
}

// Mount creates a handle for l and mounts it.
func Mount(env Env, l Listener) (Disposer, error) {
	return NewHandle(env, l).Mount()
}
