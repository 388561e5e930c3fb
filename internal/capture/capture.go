// Package capture binds native platform events and normalises them into
// Readings, one signal family at a time.
//
// Normalisation:
//   - pointer Y is measured from the bottom edge: y = innerHeight - clientY
//   - pointer movement Y is negated
//   - wheel deltaY is reported unchanged
//   - orientation is portrait when innerHeight >= innerWidth
//   - device type is mobile when the primary pointer is coarse
//   - buttons 0, 1 and 2 map to left, middle and right; others are dropped
package capture

import (
	"sync"
	"time"

	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/loop"
	"github.com/zalo/manapotion/internal/store"
)

// Kind is a signal family.
type Kind int

const (
	PointerMove Kind = iota
	PointerButton
	Wheel
	Keyboard
	Resize
	Orientation
	DeviceType
	CanHover
	Visibility
	Focus
	Fullscreen
	PointerLock
)

var kindNames = [...]string{
	PointerMove:   "pointer-move",
	PointerButton: "pointer-button",
	Wheel:         "wheel",
	Keyboard:      "keyboard",
	Resize:        "resize",
	Orientation:   "orientation",
	DeviceType:    "device-type",
	CanHover:      "can-hover",
	Visibility:    "visibility",
	Focus:         "focus",
	Fullscreen:    "fullscreen",
	PointerLock:   "pointer-lock",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// DefaultPollInterval is used by polled kinds when Options leaves it zero.
const DefaultPollInterval = 500 * time.Millisecond

// Reading is one normalised observation. Only the fields belonging to
// Kind are meaningful.
type Reading struct {
	Kind Kind

	Position store.Vec2
	Movement store.Vec2
	DeltaY   float64

	Button  store.Button
	Pressed bool
	Key     store.KeyState

	Size     store.Size
	Portrait bool
	Mobile   bool

	// Active carries the flag of boolean families: visible, focused,
	// fullscreen, pointer locked, hover capable.
	Active bool
}

// Landscape is the complement of Portrait.
func (r Reading) Landscape() bool { return !r.Portrait }

// Desktop is the complement of Mobile.
func (r Reading) Desktop() bool { return !r.Mobile }

// Options tunes a capture.
type Options struct {
	// PollInterval applies to DeviceType and CanHover, which have no
	// reliable change event.
	PollInterval time.Duration
}

// Disposer removes what a Mount installed. Calling it again does nothing.
type Disposer func()

func noop() {}

func once(fns ...func()) Disposer {
	var o sync.Once
	return func() {
		o.Do(func() {
			for i := len(fns) - 1; i >= 0; i-- {
				fns[i]()
			}
		})
	}
}

// required lists the capability a kind depends on, if any.
func required(k Kind) (host.Feature, bool) {
	switch k {
	case Fullscreen:
		return host.FeatureFullscreen, true
	case PointerLock:
		return host.FeaturePointerLock, true
	case DeviceType, CanHover:
		return host.FeatureMatchMedia, true
	}
	return "", false
}

// Supported reports whether kind can be observed on h.
func Supported(h host.Host, kind Kind) bool {
	if f, ok := required(kind); ok {
		return h.Supports(f)
	}
	return true
}

// Mount binds the native listeners needed to observe kind and calls fn
// with each normalised Reading. When the platform cannot observe kind
// the returned Disposer is a no-op and fn is never called.
func Mount(h host.Host, l loop.Loop, kind Kind, fn func(Reading), opts Options) Disposer {
	if !Supported(h, kind) {
		return noop
	}

	switch kind {
	case PointerMove:
		return once(h.AddEventListener(host.Window, host.EventMouseMove, func(e host.Event) {
			fn(pointerMove(h, e))
		}))

	case PointerButton:
		handle := func(pressed bool) func(host.Event) {
			return func(e host.Event) {
				b, ok := button(e.Button)
				if !ok {
					return
				}
				fn(Reading{Kind: PointerButton, Button: b, Pressed: pressed})
			}
		}
		return once(
			h.AddEventListener(host.Window, host.EventMouseDown, handle(true)),
			h.AddEventListener(host.Window, host.EventMouseUp, handle(false)),
		)

	case Wheel:
		return once(h.AddEventListener(host.Window, host.EventWheel, func(e host.Event) {
			fn(Reading{Kind: Wheel, DeltaY: e.DeltaY})
		}))

	case Keyboard:
		handle := func(pressed bool) func(host.Event) {
			return func(e host.Event) {
				fn(Reading{Kind: Keyboard, Pressed: pressed, Key: keyState(e)})
			}
		}
		return once(
			h.AddEventListener(host.Window, host.EventKeyDown, handle(true)),
			h.AddEventListener(host.Window, host.EventKeyUp, handle(false)),
		)

	case Resize, Orientation, Visibility, Fullscreen, PointerLock:
		target, typ := changeEvent(kind)
		return once(h.AddEventListener(target, typ, func(host.Event) {
			r, _ := Current(h, kind)
			fn(r)
		}))

	case Focus:
		return once(
			h.AddEventListener(host.Window, host.EventFocus, func(host.Event) {
				fn(Reading{Kind: Focus, Active: true})
			}),
			h.AddEventListener(host.Window, host.EventBlur, func(host.Event) {
				fn(Reading{Kind: Focus, Active: false})
			}),
		)

	case DeviceType, CanHover:
		every := opts.PollInterval
		if every <= 0 {
			every = DefaultPollInterval
		}
		timer := l.Every(every, func() {
			r, _ := Current(h, kind)
			fn(r)
		})
		return once(func() { timer.Stop() })
	}

	return noop
}

func changeEvent(kind Kind) (host.Target, string) {
	switch kind {
	case Visibility:
		return host.Document, host.EventVisibilityChange
	case Fullscreen:
		return host.Document, host.EventFullscreenChange
	case PointerLock:
		return host.Document, host.EventPointerLockChange
	default:
		return host.Window, host.EventResize
	}
}

// Current reads the present value of a state-like kind, for the initial
// sync a listener performs at mount. Event-only kinds (pointer, wheel,
// keyboard) and unsupported kinds report false.
func Current(h host.Host, kind Kind) (Reading, bool) {
	if !Supported(h, kind) {
		return Reading{Kind: kind}, false
	}

	switch kind {
	case Resize:
		w, hgt := h.InnerSize()
		return Reading{Kind: Resize, Size: store.Size{Width: w, Height: hgt}}, true
	case Orientation:
		w, hgt := h.InnerSize()
		return Reading{Kind: Orientation, Portrait: hgt >= w}, true
	case DeviceType:
		return Reading{Kind: DeviceType, Mobile: h.MatchMedia(host.QueryCoarsePointer)}, true
	case CanHover:
		return Reading{Kind: CanHover, Active: h.MatchMedia(host.QueryHover)}, true
	case Visibility:
		return Reading{Kind: Visibility, Active: !h.Hidden()}, true
	case Focus:
		return Reading{Kind: Focus, Active: h.HasFocus()}, true
	case Fullscreen:
		return Reading{Kind: Fullscreen, Active: h.FullscreenElement()}, true
	case PointerLock:
		return Reading{Kind: PointerLock, Active: h.PointerLockElement()}, true
	}
	return Reading{Kind: kind}, false
}

func pointerMove(h host.Host, e host.Event) Reading {
	_, height := h.InnerSize()
	return Reading{
		Kind:     PointerMove,
		Position: store.Vec2{X: e.ClientX, Y: height - e.ClientY},
		Movement: store.Vec2{X: e.MovementX, Y: -e.MovementY},
	}
}

func button(code int) (store.Button, bool) {
	switch code {
	case 0:
		return store.ButtonLeft, true
	case 1:
		return store.ButtonMiddle, true
	case 2:
		return store.ButtonRight, true
	}
	return 0, false
}

func keyState(e host.Event) store.KeyState {
	return store.KeyState{
		Code:  e.Code,
		Key:   e.Key,
		Ctrl:  e.CtrlKey,
		Shift: e.ShiftKey,
		Alt:   e.AltKey,
		Meta:  e.MetaKey,
	}
}
