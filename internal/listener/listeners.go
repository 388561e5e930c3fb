package listener

import (
	"time"

	"github.com/zalo/manapotion/internal/capture"
	"github.com/zalo/manapotion/internal/store"
)

// MouseMoveEvent is passed to pointer movement callbacks. Position is
// measured from the bottom-left corner of the viewport.
type MouseMoveEvent struct {
	Position store.Vec2
	Movement store.Vec2
}

// ScrollEvent is passed to wheel callbacks.
type ScrollEvent struct {
	DeltaY float64
}

// OrientationEvent is passed to orientation callbacks.
type OrientationEvent struct {
	Portrait  bool
	Landscape bool
}

// DeviceTypeEvent is passed to device type callbacks.
type DeviceTypeEvent struct {
	Desktop bool
	Mobile  bool
}

func call[T any](fn func(T), v T) {
	if fn != nil {
		fn(v)
	}
}

func fire(fn func()) {
	if fn != nil {
		fn()
	}
}

// MouseMove tracks pointer position and movement. Movement decays to zero
// once the pointer stops.
type MouseMove struct {
	ResetDelay     time.Duration
	ThrottleDelay  time.Duration
	OnMove         func(MouseMoveEvent)
	OnReactiveMove func(MouseMoveEvent)
}

func (MouseMove) Name() string { return "mouse-move" }

func (m MouseMove) Install(b *Binder) error {
	if err := checkDuration("mouseMovementResetDelay", m.ResetDelay); err != nil {
		return err
	}
	if err := checkDuration("mouseMoveThrottleDelay", m.ThrottleDelay); err != nil {
		return err
	}
	reset := resolve(m.ResetDelay, DefaultMouseMovementResetDelay)
	interval := resolve(m.ThrottleDelay, DefaultThrottleDelay)
	s := b.Store
	key := string(store.SignalPointerMovement)

	decay := func() {
		b.Scope.Decay(key, reset, func() {
			s.Update(store.SignalPointerMovement, func(st *store.State) {
				st.Pointer.Movement = store.Vec2{}
			})
			ev := MouseMoveEvent{Position: store.GetLive(s, store.PointerPosition)}
			call(m.OnMove, ev)
			call(m.OnReactiveMove, ev)
		})
	}

	b.Capture(capture.PointerMove, func(r capture.Reading) {
		ev := MouseMoveEvent{Position: r.Position, Movement: r.Movement}
		s.UpdateLive(func(st *store.State) {
			st.Pointer.Position = ev.Position
			st.Pointer.Movement = ev.Movement
		})
		call(m.OnMove, ev)

		b.Scope.Throttle(key, interval, func() {
			s.UpdateReactive(store.SignalPointerMovement, func(st *store.State) {
				st.Pointer.Position = ev.Position
				st.Pointer.Movement = ev.Movement
			})
			call(m.OnReactiveMove, ev)
			// A trailing update landing after the reset must decay again.
			if !b.Scope.Decaying(key) {
				decay()
			}
		})
		decay()
	}, capture.Options{})
	return nil
}

// MouseScroll tracks the vertical wheel delta, which decays to zero once
// scrolling stops.
type MouseScroll struct {
	ResetDelay       time.Duration
	ThrottleDelay    time.Duration
	OnScroll         func(ScrollEvent)
	OnReactiveScroll func(ScrollEvent)
}

func (MouseScroll) Name() string { return "mouse-scroll" }

func (m MouseScroll) Install(b *Binder) error {
	if err := checkDuration("mouseScrollResetDelay", m.ResetDelay); err != nil {
		return err
	}
	if err := checkDuration("mouseScrollThrottleDelay", m.ThrottleDelay); err != nil {
		return err
	}
	reset := resolve(m.ResetDelay, DefaultMouseScrollResetDelay)
	interval := resolve(m.ThrottleDelay, DefaultThrottleDelay)
	s := b.Store
	key := string(store.SignalWheelY)

	decay := func() {
		b.Scope.Decay(key, reset, func() {
			store.Set(s, store.WheelY, 0)
			call(m.OnScroll, ScrollEvent{})
			call(m.OnReactiveScroll, ScrollEvent{})
		})
	}

	b.Capture(capture.Wheel, func(r capture.Reading) {
		ev := ScrollEvent{DeltaY: r.DeltaY}
		store.SetLive(s, store.WheelY, ev.DeltaY)
		call(m.OnScroll, ev)

		b.Scope.Throttle(key, interval, func() {
			store.SetReactive(s, store.WheelY, ev.DeltaY)
			call(m.OnReactiveScroll, ev)
			if !b.Scope.Decaying(key) {
				decay()
			}
		})
		decay()
	}, capture.Options{})
	return nil
}

// MouseButtons tracks the left, middle and right buttons. Button state is
// discrete and reaches both channels at once.
type MouseButtons struct {
	OnLeftDown   func()
	OnMiddleDown func()
	OnRightDown  func()
	OnLeftUp     func()
	OnMiddleUp   func()
	OnRightUp    func()
}

func (MouseButtons) Name() string { return "mouse-buttons" }

func (m MouseButtons) Install(b *Binder) error {
	down := map[store.Button]func(){
		store.ButtonLeft:   m.OnLeftDown,
		store.ButtonMiddle: m.OnMiddleDown,
		store.ButtonRight:  m.OnRightDown,
	}
	up := map[store.Button]func(){
		store.ButtonLeft:   m.OnLeftUp,
		store.ButtonMiddle: m.OnMiddleUp,
		store.ButtonRight:  m.OnRightUp,
	}

	b.Capture(capture.PointerButton, func(r capture.Reading) {
		k, ok := store.ButtonKey(r.Button)
		if !ok {
			return
		}
		store.Set(b.Store, k, r.Pressed)
		if r.Pressed {
			fire(down[r.Button])
		} else {
			fire(up[r.Button])
		}
	}, capture.Options{})
	return nil
}

// Keyboard tracks held keys. Repeated key downs and releases of keys that
// were never seen pressed are dropped without a callback.
type Keyboard struct {
	OnKeyDown func(store.KeyState)
	OnKeyUp   func(code, key string)
}

func (Keyboard) Name() string { return "keyboard" }

func (k Keyboard) Install(b *Binder) error {
	b.Capture(capture.Keyboard, func(r capture.Reading) {
		if r.Pressed {
			if b.Store.SetKeyDown(r.Key) {
				call(k.OnKeyDown, r.Key)
			}
			return
		}
		if b.Store.SetKeyUp(r.Key.Code, r.Key.Key) && k.OnKeyUp != nil {
			k.OnKeyUp(r.Key.Code, r.Key.Key)
		}
	}, capture.Options{})
	return nil
}

// Resize tracks the viewport size. The current size is stored and
// reported at mount.
type Resize struct {
	ThrottleDelay    time.Duration
	OnResize         func(store.Size)
	OnReactiveResize func(store.Size)
}

func (Resize) Name() string { return "resize" }

func (r Resize) Install(b *Binder) error {
	if err := checkDuration("resizeThrottleDelay", r.ThrottleDelay); err != nil {
		return err
	}
	interval := resolve(r.ThrottleDelay, DefaultThrottleDelay)
	s := b.Store

	if cur, ok := capture.Current(b.Host, capture.Resize); ok {
		store.Set(s, store.ViewportSize, cur.Size)
		call(r.OnResize, cur.Size)
		call(r.OnReactiveResize, cur.Size)
	}

	b.Capture(capture.Resize, func(rd capture.Reading) {
		size := rd.Size
		store.SetLive(s, store.ViewportSize, size)
		call(r.OnResize, size)
		b.Scope.Throttle(string(store.SignalSize), interval, func() {
			store.SetReactive(s, store.ViewportSize, size)
			call(r.OnReactiveResize, size)
		})
	}, capture.Options{})
	return nil
}

// ScreenOrientation derives portrait or landscape from the viewport
// aspect ratio.
type ScreenOrientation struct {
	OnChange func(OrientationEvent)
}

func (ScreenOrientation) Name() string { return "screen-orientation" }

func (o ScreenOrientation) Install(b *Binder) error {
	s := b.Store
	apply := func(r capture.Reading, force bool) {
		if !force && store.GetLive(s, store.Portrait) == r.Portrait && store.GetLive(s, store.Landscape) == r.Landscape() {
			return
		}
		s.Update(store.SignalPortrait, func(st *store.State) {
			st.Browser.Portrait = r.Portrait
			st.Browser.Landscape = r.Landscape()
		})
		call(o.OnChange, OrientationEvent{Portrait: r.Portrait, Landscape: r.Landscape()})
	}

	if cur, ok := capture.Current(b.Host, capture.Orientation); ok {
		apply(cur, true)
	}
	b.Capture(capture.Orientation, func(r capture.Reading) { apply(r, false) }, capture.Options{})
	return nil
}

// DeviceType polls the coarse pointer heuristic.
type DeviceType struct {
	Interval time.Duration
	OnChange func(DeviceTypeEvent)
}

func (DeviceType) Name() string { return "device-type" }

func (d DeviceType) Install(b *Binder) error {
	if err := checkDuration("deviceTypeInterval", d.Interval); err != nil {
		return err
	}
	s := b.Store
	apply := func(r capture.Reading, force bool) {
		if !force && store.GetLive(s, store.Mobile) == r.Mobile && store.GetLive(s, store.Desktop) == r.Desktop() {
			return
		}
		s.Update(store.SignalMobile, func(st *store.State) {
			st.Browser.Mobile = r.Mobile
			st.Browser.Desktop = r.Desktop()
		})
		call(d.OnChange, DeviceTypeEvent{Desktop: r.Desktop(), Mobile: r.Mobile})
	}

	cur, ok := capture.Current(b.Host, capture.DeviceType)
	if !ok {
		return nil
	}
	apply(cur, true)
	if d.Interval == Disabled {
		return nil
	}
	b.Capture(capture.DeviceType, func(r capture.Reading) { apply(r, false) },
		capture.Options{PollInterval: resolve(d.Interval, DefaultPollInterval)})
	return nil
}

// CanHover polls whether the primary pointer can hover.
type CanHover struct {
	Interval time.Duration
	OnChange func(bool)
}

func (CanHover) Name() string { return "can-hover" }

func (c CanHover) Install(b *Binder) error {
	if err := checkDuration("canHoverInterval", c.Interval); err != nil {
		return err
	}
	if c.Interval == Disabled {
		syncFlag(b, capture.CanHover, store.CanHover, c.OnChange)
		return nil
	}
	installFlag(b, capture.CanHover, store.CanHover, c.OnChange,
		capture.Options{PollInterval: resolve(c.Interval, DefaultPollInterval)})
	return nil
}

// PageVisibility tracks whether the document is visible.
type PageVisibility struct {
	OnChange func(bool)
}

func (PageVisibility) Name() string { return "page-visibility" }

func (p PageVisibility) Install(b *Binder) error {
	installFlag(b, capture.Visibility, store.PageVisible, p.OnChange, capture.Options{})
	return nil
}

// PointerLock tracks whether the pointer is locked to the page.
type PointerLock struct {
	OnChange func(bool)
}

func (PointerLock) Name() string { return "pointer-lock" }

func (p PointerLock) Install(b *Binder) error {
	installFlag(b, capture.PointerLock, store.PointerLocked, p.OnChange, capture.Options{})
	return nil
}

// Fullscreen tracks whether the document is fullscreen.
type Fullscreen struct {
	OnChange func(bool)
}

func (Fullscreen) Name() string { return "fullscreen" }

func (f Fullscreen) Install(b *Binder) error {
	installFlag(b, capture.Fullscreen, store.Fullscreen, f.OnChange, capture.Options{})
	return nil
}

// PageFocus tracks window focus. Losing focus clears held keys and mouse
// buttons unless KeepInputs is set, since their releases will not be
// delivered while unfocused.
type PageFocus struct {
	KeepInputs bool
	OnChange   func(bool)
	OnFocus    func()
	OnBlur     func()
}

func (PageFocus) Name() string { return "page-focus" }

func (p PageFocus) Install(b *Binder) error {
	s := b.Store
	syncFlag(b, capture.Focus, store.PageFocused, p.OnChange)

	b.Capture(capture.Focus, func(r capture.Reading) {
		if !r.Active && !p.KeepInputs {
			s.ClearInputs()
		}
		if store.GetLive(s, store.PageFocused) == r.Active {
			return
		}
		store.Set(s, store.PageFocused, r.Active)
		call(p.OnChange, r.Active)
		if r.Active {
			fire(p.OnFocus)
		} else {
			fire(p.OnBlur)
		}
	}, capture.Options{})
	return nil
}

// syncFlag stores the current value of a boolean family and reports it.
func syncFlag(b *Binder, kind capture.Kind, key store.Key[bool], onChange func(bool)) bool {
	cur, ok := capture.Current(b.Host, kind)
	if !ok {
		return false
	}
	store.Set(b.Store, key, cur.Active)
	call(onChange, cur.Active)
	return true
}

// installFlag syncs a boolean family at mount and then follows its
// changes. Readings that repeat the stored value are ignored.
func installFlag(b *Binder, kind capture.Kind, key store.Key[bool], onChange func(bool), opts capture.Options) {
	if !syncFlag(b, kind, key, onChange) {
		return
	}
	b.Capture(kind, func(r capture.Reading) {
		if store.GetLive(b.Store, key) == r.Active {
			return
		}
		store.Set(b.Store, key, r.Active)
		call(onChange, r.Active)
	}, opts)
}
