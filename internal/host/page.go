package host

import (
	"context"
	"fmt"
	"sync"
)

// Action names sent to a relayed page.
const (
	ActionRequestFullscreen  = "requestFullscreen"
	ActionExitFullscreen     = "exitFullscreen"
	ActionRequestPointerLock = "requestPointerLock"
	ActionExitPointerLock    = "exitPointerLock"
	ActionLockOrientation    = "lockOrientation"
	ActionUnlockOrientation  = "unlockOrientation"
	ActionLockKeys           = "lockKeys"
	ActionUnlockKeys         = "unlockKeys"
)

// Action is an imperative request forwarded to a relayed page.
type Action struct {
	Name        string      `json:"name"`
	Orientation Orientation `json:"orientation,omitempty"`
	Codes       []string    `json:"codes,omitempty"`
}

// Requester delivers an Action to the page and waits for its outcome.
type Requester interface {
	Request(ctx context.Context, a Action) error
}

// PageInfo is the page state reported when a relay connects.
type PageInfo struct {
	Features      []Feature       `json:"features"`
	InnerWidth    float64         `json:"innerWidth"`
	InnerHeight   float64         `json:"innerHeight"`
	Hidden        bool            `json:"hidden"`
	Focused       bool            `json:"focused"`
	Fullscreen    bool            `json:"fullscreen"`
	PointerLocked bool            `json:"pointerLocked"`
	Media         map[string]bool `json:"media"`
}

// Page mirrors a browser page whose native events arrive from elsewhere.
// Apply updates the mirror and then dispatches the event to the bound
// listeners, so a listener querying the page sees the new values.
//
// Apply and AddEventListener must be called from the page's event loop.
type Page struct {
	mu            sync.RWMutex
	features      map[Feature]bool
	width, height float64
	hidden        bool
	focused       bool
	fullscreen    bool
	pointerLocked bool
	media         map[string]bool

	listeners map[Target]map[string][]*binding
	requester Requester
}

type binding struct {
	fn      func(Event)
	removed bool
}

// NewPage creates a visible, focused page without optional features.
func NewPage(r Requester) *Page {
	return &Page{
		features:  make(map[Feature]bool),
		focused:   true,
		media:     make(map[string]bool),
		listeners: make(map[Target]map[string][]*binding),
		requester: r,
	}
}

// Sync replaces the mirrored page state.
func (p *Page) Sync(info PageInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.features = make(map[Feature]bool, len(info.Features))
	for _, f := range info.Features {
		p.features[f] = true
	}
	p.width, p.height = info.InnerWidth, info.InnerHeight
	p.hidden = info.Hidden
	p.focused = info.Focused
	p.fullscreen = info.Fullscreen
	p.pointerLocked = info.PointerLocked
	p.media = make(map[string]bool, len(info.Media))
	for q, v := range info.Media {
		p.media[q] = v
	}
}

// Apply mirrors the state carried by ev and dispatches it.
func (p *Page) Apply(ev Event) {
	p.mu.Lock()
	switch ev.Type {
	case EventResize:
		p.width, p.height = ev.InnerWidth, ev.InnerHeight
	case EventVisibilityChange:
		if ev.Hidden != nil {
			p.hidden = *ev.Hidden
		}
	case EventFocus:
		p.focused = true
	case EventBlur:
		p.focused = false
	case EventFullscreenChange:
		if ev.Fullscreen != nil {
			p.fullscreen = *ev.Fullscreen
		}
	case EventPointerLockChange:
		if ev.PointerLocked != nil {
			p.pointerLocked = *ev.PointerLocked
		}
	}
	for q, v := range ev.Media {
		p.media[q] = v
	}
	p.mu.Unlock()

	target := ev.Target
	if target == "" {
		target = DefaultTarget(ev.Type)
	}
	p.Dispatch(target, ev)
}

// Dispatch delivers ev to the listeners bound to target in binding order.
// Listeners removed during dispatch are skipped.
func (p *Page) Dispatch(target Target, ev Event) {
	bs := append([]*binding(nil), p.listeners[target][ev.Type]...)
	for _, b := range bs {
		if !b.removed {
			b.fn(ev)
		}
	}
}

// Listeners returns the number of listeners bound to target and typ.
func (p *Page) Listeners(target Target, typ string) int {
	return len(p.listeners[target][typ])
}

// AddEventListener implements Host.
func (p *Page) AddEventListener(target Target, typ string, fn func(Event)) func() {
	b := &binding{fn: fn}
	byType, ok := p.listeners[target]
	if !ok {
		byType = make(map[string][]*binding)
		p.listeners[target] = byType
	}
	byType[typ] = append(byType[typ], b)

	return func() {
		if b.removed {
			return
		}
		b.removed = true
		bs := p.listeners[target][typ]
		for i, other := range bs {
			if other == b {
				p.listeners[target][typ] = append(bs[:i:i], bs[i+1:]...)
				break
			}
		}
	}
}

// InnerSize implements Host.
func (p *Page) InnerSize() (float64, float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.width, p.height
}

// MatchMedia implements Host. Queries the page never reported are false.
func (p *Page) MatchMedia(query string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.media[query]
}

// Hidden implements Host.
func (p *Page) Hidden() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hidden
}

// HasFocus implements Host.
func (p *Page) HasFocus() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.focused
}

// FullscreenElement implements Host.
func (p *Page) FullscreenElement() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fullscreen
}

// PointerLockElement implements Host.
func (p *Page) PointerLockElement() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pointerLocked
}

// Supports implements Host.
func (p *Page) Supports(f Feature) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.features[f]
}

func (p *Page) request(ctx context.Context, f Feature, a Action) error {
	if !p.Supports(f) || p.requester == nil {
		return fmt.Errorf("%s: %w", a.Name, ErrUnsupported)
	}
	return p.requester.Request(ctx, a)
}

// RequestFullscreen implements Actions.
func (p *Page) RequestFullscreen(ctx context.Context) error {
	return p.request(ctx, FeatureFullscreen, Action{Name: ActionRequestFullscreen})
}

// ExitFullscreen implements Actions.
func (p *Page) ExitFullscreen(ctx context.Context) error {
	return p.request(ctx, FeatureFullscreen, Action{Name: ActionExitFullscreen})
}

// RequestPointerLock implements Actions.
func (p *Page) RequestPointerLock(ctx context.Context) error {
	return p.request(ctx, FeaturePointerLock, Action{Name: ActionRequestPointerLock})
}

// ExitPointerLock implements Actions.
func (p *Page) ExitPointerLock(ctx context.Context) error {
	return p.request(ctx, FeaturePointerLock, Action{Name: ActionExitPointerLock})
}

// LockOrientation implements Actions.
func (p *Page) LockOrientation(ctx context.Context, o Orientation) error {
	return p.request(ctx, FeatureOrientationLock, Action{Name: ActionLockOrientation, Orientation: o})
}

// UnlockOrientation implements Actions.
func (p *Page) UnlockOrientation(ctx context.Context) error {
	return p.request(ctx, FeatureOrientationLock, Action{Name: ActionUnlockOrientation})
}

// LockKeys implements Actions.
func (p *Page) LockKeys(ctx context.Context, codes []string) error {
	return p.request(ctx, FeatureKeyboardLock, Action{Name: ActionLockKeys, Codes: codes})
}

// UnlockKeys implements Actions.
func (p *Page) UnlockKeys(ctx context.Context) error {
	return p.request(ctx, FeatureKeyboardLock, Action{Name: ActionUnlockKeys})
}

var (
	_ Host    = (*Page)(nil)
	_ Actions = (*Page)(nil)
)
