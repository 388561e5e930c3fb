package store

// Signal names one tracked quantity.
type Signal string

const (
	SignalPointerPosition Signal = "mouse.position"
	SignalPointerMovement Signal = "mouse.movement"
	SignalWheelY          Signal = "mouse.wheel.y"
	SignalLeftButton      Signal = "mouse.buttons.left"
	SignalMiddleButton    Signal = "mouse.buttons.middle"
	SignalRightButton     Signal = "mouse.buttons.right"
	SignalPointerLocked   Signal = "mouse.locked"
	SignalSize            Signal = "browser.size"
	SignalFullscreen      Signal = "browser.isFullscreen"
	SignalPageVisible     Signal = "browser.isPageVisible"
	SignalPageFocused     Signal = "browser.isPageFocused"
	SignalCanHover        Signal = "browser.canHover"
	SignalPortrait        Signal = "browser.isPortrait"
	SignalLandscape       Signal = "browser.isLandscape"
	SignalDesktop         Signal = "browser.isDesktop"
	SignalMobile          Signal = "browser.isMobile"
	SignalKeys            Signal = "keyboard.keys"
	SignalCustom          Signal = "custom"
)

// Key is a typed accessor for one signal of a State.
type Key[T comparable] struct {
	Signal Signal
	get    func(*State) T
	set    func(*State, T)
}

// Get reads the signal from st.
func (k Key[T]) Get(st State) T {
	return k.get(&st)
}

var (
	PointerPosition = Key[Vec2]{SignalPointerPosition,
		func(s *State) Vec2 { return s.Pointer.Position },
		func(s *State, v Vec2) { s.Pointer.Position = v }}
	PointerMovement = Key[Vec2]{SignalPointerMovement,
		func(s *State) Vec2 { return s.Pointer.Movement },
		func(s *State, v Vec2) { s.Pointer.Movement = v }}
	WheelY = Key[float64]{SignalWheelY,
		func(s *State) float64 { return s.Pointer.WheelY },
		func(s *State, v float64) { s.Pointer.WheelY = v }}
	LeftButton = Key[bool]{SignalLeftButton,
		func(s *State) bool { return s.Pointer.Buttons.Left },
		func(s *State, v bool) { s.Pointer.Buttons.Left = v }}
	MiddleButton = Key[bool]{SignalMiddleButton,
		func(s *State) bool { return s.Pointer.Buttons.Middle },
		func(s *State, v bool) { s.Pointer.Buttons.Middle = v }}
	RightButton = Key[bool]{SignalRightButton,
		func(s *State) bool { return s.Pointer.Buttons.Right },
		func(s *State, v bool) { s.Pointer.Buttons.Right = v }}
	PointerLocked = Key[bool]{SignalPointerLocked,
		func(s *State) bool { return s.Pointer.Locked },
		func(s *State, v bool) { s.Pointer.Locked = v }}
	ViewportSize = Key[Size]{SignalSize,
		func(s *State) Size { return s.Browser.Size },
		func(s *State, v Size) { s.Browser.Size = v }}
	Fullscreen = Key[bool]{SignalFullscreen,
		func(s *State) bool { return s.Browser.Fullscreen },
		func(s *State, v bool) { s.Browser.Fullscreen = v }}
	PageVisible = Key[bool]{SignalPageVisible,
		func(s *State) bool { return s.Browser.PageVisible },
		func(s *State, v bool) { s.Browser.PageVisible = v }}
	PageFocused = Key[bool]{SignalPageFocused,
		func(s *State) bool { return s.Browser.PageFocused },
		func(s *State, v bool) { s.Browser.PageFocused = v }}
	CanHover = Key[bool]{SignalCanHover,
		func(s *State) bool { return s.Browser.CanHover },
		func(s *State, v bool) { s.Browser.CanHover = v }}
	Portrait = Key[bool]{SignalPortrait,
		func(s *State) bool { return s.Browser.Portrait },
		func(s *State, v bool) { s.Browser.Portrait = v }}
	Landscape = Key[bool]{SignalLandscape,
		func(s *State) bool { return s.Browser.Landscape },
		func(s *State, v bool) { s.Browser.Landscape = v }}
	Desktop = Key[bool]{SignalDesktop,
		func(s *State) bool { return s.Browser.Desktop },
		func(s *State, v bool) { s.Browser.Desktop = v }}
	Mobile = Key[bool]{SignalMobile,
		func(s *State) bool { return s.Browser.Mobile },
		func(s *State, v bool) { s.Browser.Mobile = v }}
)

// ButtonKey returns the signal key tracking b.
func ButtonKey(b Button) (Key[bool], bool) {
	switch b {
	case ButtonLeft:
		return LeftButton, true
	case ButtonMiddle:
		return MiddleButton, true
	case ButtonRight:
		return RightButton, true
	}
	return Key[bool]{}, false
}
