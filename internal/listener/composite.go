package listener

import "fmt"

// Composite mounts the listeners selected by a Config under one handle.
type Composite struct {
	cfg Config
}

// Listeners returns the aggregate listener for cfg. Families without a
// callback are still tracked in the store.
func Listeners(cfg Config) *Composite {
	return &Composite{cfg: cfg}
}

func (*Composite) Name() string { return "listeners" }

// Parts returns the listeners cfg selects, in mount order.
func (c *Composite) Parts() []Listener {
	cfg := c.cfg
	families := cfg.Families
	if families == 0 {
		families = AllFamilies
	}

	all := []struct {
		family Family
		l      Listener
	}{
		{FamilyMouseMove, MouseMove{
			ResetDelay:     cfg.MouseMovementResetDelay,
			ThrottleDelay:  cfg.MouseMoveThrottleDelay,
			OnMove:         cfg.OnMouseMove,
			OnReactiveMove: cfg.OnReactiveMouseMove,
		}},
		{FamilyMouseScroll, MouseScroll{
			ResetDelay:       cfg.MouseScrollResetDelay,
			ThrottleDelay:    cfg.MouseScrollThrottleDelay,
			OnScroll:         cfg.OnScroll,
			OnReactiveScroll: cfg.OnReactiveScroll,
		}},
		{FamilyMouseButtons, MouseButtons{
			OnLeftDown:   cfg.OnLeftMouseDown,
			OnMiddleDown: cfg.OnMiddleMouseDown,
			OnRightDown:  cfg.OnRightMouseDown,
			OnLeftUp:     cfg.OnLeftMouseUp,
			OnMiddleUp:   cfg.OnMiddleMouseUp,
			OnRightUp:    cfg.OnRightMouseUp,
		}},
		{FamilyKeyboard, Keyboard{OnKeyDown: cfg.OnKeyDown, OnKeyUp: cfg.OnKeyUp}},
		{FamilyResize, Resize{
			ThrottleDelay:    cfg.ResizeThrottleDelay,
			OnResize:         cfg.OnResize,
			OnReactiveResize: cfg.OnReactiveResize,
		}},
		{FamilyScreenOrientation, ScreenOrientation{OnChange: cfg.OnScreenOrientationChange}},
		{FamilyDeviceType, DeviceType{Interval: cfg.DeviceTypeInterval, OnChange: cfg.OnDeviceTypeChange}},
		{FamilyCanHover, CanHover{Interval: cfg.CanHoverInterval, OnChange: cfg.OnCanHoverChange}},
		{FamilyPageVisibility, PageVisibility{OnChange: cfg.OnPageVisibilityChange}},
		{FamilyPageFocus, PageFocus{
			KeepInputs: cfg.KeepInputsOnBlur,
			OnChange:   cfg.OnPageFocusChange,
			OnFocus:    cfg.OnPageFocus,
			OnBlur:     cfg.OnPageBlur,
		}},
		{FamilyPointerLock, PointerLock{OnChange: cfg.OnPointerLockChange}},
		{FamilyFullscreen, Fullscreen{OnChange: cfg.OnFullscreenChange}},
	}

	parts := make([]Listener, 0, len(all))
	for _, p := range all {
		if families.Has(p.family) {
			parts = append(parts, p.l)
		}
	}
	return parts
}

// Install validates the configuration once and installs every selected
// listener into the same binder, so one disposer removes them all.
func (c *Composite) Install(b *Binder) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	for _, l := range c.Parts() {
		if err := l.Install(b); err != nil {
			return fmt.Errorf("%s: %w", l.Name(), err)
		}
	}
	return nil
}
