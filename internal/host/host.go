// Package host describes the browser platform the input core listens to.
//
// A Host binds native event listeners and answers synchronous queries
// about the page. Actions performs the imperative requests a page may
// deny. Page implements both for a browser that relays its events over
// the network; jshost implements them directly over syscall/js.
package host

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported means the platform lacks the requested capability.
	ErrUnsupported = errors.New("capability not supported")

	// ErrRejected means the platform refused the request, e.g. because
	// it did not originate from a user gesture.
	ErrRejected = errors.New("request rejected by platform")
)

// Target is the object a native listener is bound to.
type Target string

const (
	Window   Target = "window"
	Document Target = "document"
)

// Native event names.
const (
	EventMouseMove         = "mousemove"
	EventMouseDown         = "mousedown"
	EventMouseUp           = "mouseup"
	EventWheel             = "wheel"
	EventKeyDown           = "keydown"
	EventKeyUp             = "keyup"
	EventResize            = "resize"
	EventVisibilityChange  = "visibilitychange"
	EventFocus             = "focus"
	EventBlur              = "blur"
	EventFullscreenChange  = "fullscreenchange"
	EventPointerLockChange = "pointerlockchange"
	EventMediaChange       = "mediachange"
)

// DefaultTarget returns the target a native event is dispatched on.
func DefaultTarget(typ string) Target {
	switch typ {
	case EventVisibilityChange, EventFullscreenChange, EventPointerLockChange:
		return Document
	default:
		return Window
	}
}

// Feature is an optional platform capability.
type Feature string

const (
	FeatureFullscreen      Feature = "fullscreen"
	FeaturePointerLock     Feature = "pointerLock"
	FeatureOrientationLock Feature = "orientationLock"
	FeatureKeyboardLock    Feature = "keyboardLock"
	FeatureMatchMedia      Feature = "matchMedia"
)

// Media queries evaluated by the device heuristics.
const (
	QueryHover         = "(hover: hover)"
	QueryCoarsePointer = "(pointer: coarse)"
)

// Orientation is a screen orientation lock target.
type Orientation string

const (
	OrientationAny                Orientation = "any"
	OrientationNatural            Orientation = "natural"
	OrientationLandscape          Orientation = "landscape"
	OrientationPortrait           Orientation = "portrait"
	OrientationPortraitPrimary    Orientation = "portrait-primary"
	OrientationPortraitSecondary  Orientation = "portrait-secondary"
	OrientationLandscapePrimary   Orientation = "landscape-primary"
	OrientationLandscapeSecondary Orientation = "landscape-secondary"
)

// Valid reports whether o is a lock type the platform understands.
func (o Orientation) Valid() bool {
	switch o {
	case OrientationAny, OrientationNatural, OrientationLandscape, OrientationPortrait,
		OrientationPortraitPrimary, OrientationPortraitSecondary,
		OrientationLandscapePrimary, OrientationLandscapeSecondary:
		return true
	}
	return false
}

// Host is the event and query side of the platform.
type Host interface {
	// AddEventListener binds fn to a native event. The returned function
	// unbinds it and may be called more than once.
	AddEventListener(target Target, typ string, fn func(Event)) (remove func())

	InnerSize() (width, height float64)
	MatchMedia(query string) bool
	Hidden() bool
	HasFocus() bool
	FullscreenElement() bool
	PointerLockElement() bool

	Supports(f Feature) bool
}

// Actions is the imperative side of the platform. Every method either
// succeeds or returns an error wrapping ErrUnsupported or ErrRejected;
// none of them changes tracked state, which follows the resulting change
// events instead.
type Actions interface {
	RequestFullscreen(ctx context.Context) error
	ExitFullscreen(ctx context.Context) error
	RequestPointerLock(ctx context.Context) error
	ExitPointerLock(ctx context.Context) error
	LockOrientation(ctx context.Context, o Orientation) error
	UnlockOrientation(ctx context.Context) error
	LockKeys(ctx context.Context, codes []string) error
	UnlockKeys(ctx context.Context) error
}

// Event is a native event record. Fields not relevant to Type are zero.
// Change events carry the page property that changed, so a relayed page
// can be mirrored without further queries.
type Event struct {
	Type   string `json:"type"`
	Target Target `json:"target,omitempty"`

	ClientX   float64 `json:"clientX,omitempty"`
	ClientY   float64 `json:"clientY,omitempty"`
	MovementX float64 `json:"movementX,omitempty"`
	MovementY float64 `json:"movementY,omitempty"`
	Button    int     `json:"button,omitempty"`

	DeltaX    float64 `json:"deltaX,omitempty"`
	DeltaY    float64 `json:"deltaY,omitempty"`
	DeltaMode int     `json:"deltaMode,omitempty"`

	Code     string `json:"code,omitempty"`
	Key      string `json:"key,omitempty"`
	CtrlKey  bool   `json:"ctrlKey,omitempty"`
	ShiftKey bool   `json:"shiftKey,omitempty"`
	AltKey   bool   `json:"altKey,omitempty"`
	MetaKey  bool   `json:"metaKey,omitempty"`
	Repeat   bool   `json:"repeat,omitempty"`

	InnerWidth    float64         `json:"innerWidth,omitempty"`
	InnerHeight   float64         `json:"innerHeight,omitempty"`
	Hidden        *bool           `json:"hidden,omitempty"`
	Fullscreen    *bool           `json:"fullscreen,omitempty"`
	PointerLocked *bool           `json:"pointerLocked,omitempty"`
	Media         map[string]bool `json:"media,omitempty"`
}
