package store

// Vec2 is a pair of coordinates in CSS pixels.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a viewport size in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Button identifies a mouse button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "unknown"
	}
}

// Buttons holds the held state of each mouse button.
type Buttons struct {
	Left   bool `json:"left"`
	Middle bool `json:"middle"`
	Right  bool `json:"right"`
}

// Pointer is the mouse part of a snapshot. Y grows upward from the
// bottom edge of the viewport.
type Pointer struct {
	Position Vec2    `json:"position"`
	Movement Vec2    `json:"movement"`
	WheelY   float64 `json:"wheelY"`
	Buttons  Buttons `json:"buttons"`
	Locked   bool    `json:"locked"`
}

// Browser is the page and device part of a snapshot.
type Browser struct {
	Size        Size `json:"size"`
	Fullscreen  bool `json:"isFullscreen"`
	PageVisible bool `json:"isPageVisible"`
	PageFocused bool `json:"isPageFocused"`
	CanHover    bool `json:"canHover"`
	Portrait    bool `json:"isPortrait"`
	Landscape   bool `json:"isLandscape"`
	Desktop     bool `json:"isDesktop"`
	Mobile      bool `json:"isMobile"`
}

// State is one channel's view of every tracked signal.
type State struct {
	Pointer Pointer `json:"mouse"`
	Browser Browser `json:"browser"`
}

// Neutral returns the state a page starts with before any event.
func Neutral() State {
	return State{
		Browser: Browser{
			PageVisible: true,
			PageFocused: true,
		},
	}
}

// KeyState is one currently held key.
type KeyState struct {
	Code  string `json:"code"`
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
}
