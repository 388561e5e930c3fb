package listener

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zalo/manapotion/internal/store"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid listener config")

// Disabled turns a reset delay off, or makes a throttle propagate
// immediately. A zero duration selects the default instead.
const Disabled time.Duration = -1

// Defaults.
const (
	DefaultMouseMovementResetDelay = 30 * time.Millisecond
	DefaultMouseScrollResetDelay   = 500 * time.Millisecond
	DefaultThrottleDelay           = 100 * time.Millisecond
	DefaultPollInterval            = 500 * time.Millisecond
)

// resolve maps a configured duration to what the timing scope expects:
// zero means default, Disabled means off.
func resolve(d, def time.Duration) time.Duration {
	switch {
	case d == Disabled:
		return 0
	case d == 0:
		return def
	default:
		return d
	}
}

func checkDuration(name string, d time.Duration) error {
	if d < 0 && d != Disabled {
		return fmt.Errorf("%s is %v: %w", name, d, ErrInvalidConfig)
	}
	return nil
}

// Family is a bit set of signal families.
type Family uint32

const (
	FamilyMouseMove Family = 1 << iota
	FamilyMouseScroll
	FamilyMouseButtons
	FamilyKeyboard
	FamilyResize
	FamilyScreenOrientation
	FamilyDeviceType
	FamilyCanHover
	FamilyPageVisibility
	FamilyPageFocus
	FamilyPointerLock
	FamilyFullscreen

	AllFamilies Family = 1<<iota - 1
)

// Has reports whether f includes every family in other.
func (f Family) Has(other Family) bool {
	return f&other == other
}

// Config enumerates every option of the composite listener. The zero
// value is valid: all families tracked with default timings and no
// callbacks.
type Config struct {
	// Families selects what to mount. Zero means AllFamilies.
	Families Family

	MouseMovementResetDelay time.Duration
	MouseMoveThrottleDelay  time.Duration
	OnMouseMove             func(MouseMoveEvent)
	OnReactiveMouseMove     func(MouseMoveEvent)

	MouseScrollResetDelay    time.Duration
	MouseScrollThrottleDelay time.Duration
	OnScroll                 func(ScrollEvent)
	OnReactiveScroll         func(ScrollEvent)

	OnLeftMouseDown   func()
	OnMiddleMouseDown func()
	OnRightMouseDown  func()
	OnLeftMouseUp     func()
	OnMiddleMouseUp   func()
	OnRightMouseUp    func()

	OnKeyDown func(store.KeyState)
	OnKeyUp   func(code, key string)

	ResizeThrottleDelay time.Duration
	OnResize            func(store.Size)
	OnReactiveResize    func(store.Size)

	OnScreenOrientationChange func(OrientationEvent)

	DeviceTypeInterval time.Duration
	OnDeviceTypeChange func(DeviceTypeEvent)

	CanHoverInterval time.Duration
	OnCanHoverChange func(bool)

	OnPageVisibilityChange func(bool)

	// KeepInputsOnBlur disables clearing held keys and buttons on blur.
	KeepInputsOnBlur  bool
	OnPageFocusChange func(bool)
	OnPageFocus       func()
	OnPageBlur        func()

	OnPointerLockChange func(bool)
	OnFullscreenChange  func(bool)
}

// Validate rejects negative durations other than Disabled.
func (c Config) Validate() error {
	checks := []struct {
		name string
		d    time.Duration
	}{
		{"mouseMovementResetDelay", c.MouseMovementResetDelay},
		{"mouseMoveThrottleDelay", c.MouseMoveThrottleDelay},
		{"mouseScrollResetDelay", c.MouseScrollResetDelay},
		{"mouseScrollThrottleDelay", c.MouseScrollThrottleDelay},
		{"resizeThrottleDelay", c.ResizeThrottleDelay},
		{"deviceTypeInterval", c.DeviceTypeInterval},
		{"canHoverInterval", c.CanHoverInterval},
	}
	for _, ch := range checks {
		if err := checkDuration(ch.name, ch.d); err != nil {
			return err
		}
	}
	if c.Families&^AllFamilies != 0 {
		return fmt.Errorf("unknown families %#x: %w", uint32(c.Families&^AllFamilies), ErrInvalidConfig)
	}
	return nil
}

// Timing holds the timing options in the form they take in JSON and YAML
// documents: integer milliseconds, absent for the default, 0 to disable.
// Unknown keys are ignored.
type Timing struct {
	MouseMovementResetDelay  *int `json:"mouseMovementResetDelay,omitempty" yaml:"mouseMovementResetDelay,omitempty"`
	MouseMoveThrottleDelay   *int `json:"mouseMoveThrottleDelay,omitempty" yaml:"mouseMoveThrottleDelay,omitempty"`
	MouseScrollResetDelay    *int `json:"mouseScrollResetDelay,omitempty" yaml:"mouseScrollResetDelay,omitempty"`
	MouseScrollThrottleDelay *int `json:"mouseScrollThrottleDelay,omitempty" yaml:"mouseScrollThrottleDelay,omitempty"`
	ResizeThrottleDelay      *int `json:"resizeThrottleDelay,omitempty" yaml:"resizeThrottleDelay,omitempty"`
	DeviceTypeInterval       *int `json:"deviceTypeInterval,omitempty" yaml:"deviceTypeInterval,omitempty"`
	CanHoverInterval         *int `json:"canHoverInterval,omitempty" yaml:"canHoverInterval,omitempty"`
}

// ParseTiming decodes a JSON timing document.
func ParseTiming(data []byte) (Timing, error) {
	var t Timing
	if err := json.Unmarshal(data, &t); err != nil {
		return Timing{}, fmt.Errorf("parse timing: %w", err)
	}
	return t, nil
}

// Merge returns t with every option set in other taking precedence.
func (t Timing) Merge(other Timing) Timing {
	pick := func(a, b *int) *int {
		if b != nil {
			return b
		}
		return a
	}
	return Timing{
		MouseMovementResetDelay:  pick(t.MouseMovementResetDelay, other.MouseMovementResetDelay),
		MouseMoveThrottleDelay:   pick(t.MouseMoveThrottleDelay, other.MouseMoveThrottleDelay),
		MouseScrollResetDelay:    pick(t.MouseScrollResetDelay, other.MouseScrollResetDelay),
		MouseScrollThrottleDelay: pick(t.MouseScrollThrottleDelay, other.MouseScrollThrottleDelay),
		ResizeThrottleDelay:      pick(t.ResizeThrottleDelay, other.ResizeThrottleDelay),
		DeviceTypeInterval:       pick(t.DeviceTypeInterval, other.DeviceTypeInterval),
		CanHoverInterval:         pick(t.CanHoverInterval, other.CanHoverInterval),
	}
}

// Apply copies the options present in t onto c.
func (t Timing) Apply(c *Config) {
	set := func(dst *time.Duration, ms *int) {
		switch {
		case ms == nil:
		case *ms == 0:
			*dst = Disabled
		default:
			*dst = time.Duration(*ms) * time.Millisecond
		}
	}
	set(&c.MouseMovementResetDelay, t.MouseMovementResetDelay)
	set(&c.MouseMoveThrottleDelay, t.MouseMoveThrottleDelay)
	set(&c.MouseScrollResetDelay, t.MouseScrollResetDelay)
	set(&c.MouseScrollThrottleDelay, t.MouseScrollThrottleDelay)
	set(&c.ResizeThrottleDelay, t.ResizeThrottleDelay)
	set(&c.DeviceTypeInterval, t.DeviceTypeInterval)
	set(&c.CanHoverInterval, t.CanHoverInterval)
}
