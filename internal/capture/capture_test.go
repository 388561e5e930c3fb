package capture

import (
	"testing"
	"time"

	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/loop"
	"github.com/zalo/manapotion/internal/store"
)

func newPage(features ...host.Feature) (*host.Page, *loop.Manual) {
	p := host.NewPage(nil)
	p.Sync(host.PageInfo{
		Features:    features,
		InnerWidth:  1000,
		InnerHeight: 600,
		Focused:     true,
		Media:       map[string]bool{host.QueryHover: true},
	})
	return p, loop.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func collect(p *host.Page, l loop.Loop, k Kind, opts Options) (*[]Reading, Disposer) {
	var got []Reading
	d := Mount(p, l, k, func(r Reading) { got = append(got, r) }, opts)
	return &got, d
}

func TestPointerMoveNormalisation(t *testing.T) {
	p, l := newPage()
	got, dispose := collect(p, l, PointerMove, Options{})
	defer dispose()

	p.Apply(host.Event{Type: host.EventMouseMove, ClientX: 120, ClientY: 100, MovementX: 5, MovementY: 3})

	if len(*got) != 1 {
		t.Fatalf("readings = %d, want 1", len(*got))
	}
	r := (*got)[0]
	if r.Position != (store.Vec2{X: 120, Y: 500}) {
		t.Errorf("position = %+v, want {120 500}", r.Position)
	}
	if r.Movement != (store.Vec2{X: 5, Y: -3}) {
		t.Errorf("movement = %+v, want {5 -3}", r.Movement)
	}
}

func TestButtonMapping(t *testing.T) {
	tests := []struct {
		code int
		want store.Button
		ok   bool
	}{
		{0, store.ButtonLeft, true},
		{1, store.ButtonMiddle, true},
		{2, store.ButtonRight, true},
		{3, 0, false},
		{4, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		p, l := newPage()
		got, dispose := collect(p, l, PointerButton, Options{})
		p.Apply(host.Event{Type: host.EventMouseDown, Button: tt.code})
		p.Apply(host.Event{Type: host.EventMouseUp, Button: tt.code})
		dispose()

		if !tt.ok {
			if len(*got) != 0 {
				t.Errorf("button %d: readings %+v, want none", tt.code, *got)
			}
			continue
		}
		if len(*got) != 2 {
			t.Fatalf("button %d: readings = %d, want 2", tt.code, len(*got))
		}
		if (*got)[0].Button != tt.want || !(*got)[0].Pressed || (*got)[1].Pressed {
			t.Errorf("button %d: readings %+v", tt.code, *got)
		}
	}
}

func TestWheelSignPreserved(t *testing.T) {
	p, l := newPage()
	got, dispose := collect(p, l, Wheel, Options{})
	defer dispose()

	p.Apply(host.Event{Type: host.EventWheel, DeltaY: -120})
	if len(*got) != 1 || (*got)[0].DeltaY != -120 {
		t.Errorf("readings = %+v", *got)
	}
}

func TestKeyboard(t *testing.T) {
	p, l := newPage()
	got, dispose := collect(p, l, Keyboard, Options{})
	defer dispose()

	p.Apply(host.Event{Type: host.EventKeyDown, Code: "KeyW", Key: "W", ShiftKey: true})
	p.Apply(host.Event{Type: host.EventKeyUp, Code: "KeyW", Key: "W"})

	if len(*got) != 2 {
		t.Fatalf("readings = %d", len(*got))
	}
	down := (*got)[0]
	if !down.Pressed || down.Key.Code != "KeyW" || down.Key.Key != "W" || !down.Key.Shift {
		t.Errorf("down = %+v", down)
	}
	if (*got)[1].Pressed {
		t.Error("key up reported as pressed")
	}
}

func TestOrientationRatio(t *testing.T) {
	tests := []struct {
		w, h     float64
		portrait bool
	}{
		{1000, 600, false},
		{600, 1000, true},
		{700, 700, true},
	}
	for _, tt := range tests {
		p, l := newPage()
		got, dispose := collect(p, l, Orientation, Options{})
		p.Apply(host.Event{Type: host.EventResize, InnerWidth: tt.w, InnerHeight: tt.h})
		dispose()

		if len(*got) != 1 {
			t.Fatalf("%vx%v: readings = %d", tt.w, tt.h, len(*got))
		}
		r := (*got)[0]
		if r.Portrait != tt.portrait || r.Landscape() == tt.portrait {
			t.Errorf("%vx%v: portrait=%v landscape=%v", tt.w, tt.h, r.Portrait, r.Landscape())
		}
	}
}

func TestDeviceTypePolled(t *testing.T) {
	p, l := newPage(host.FeatureMatchMedia)
	got, dispose := collect(p, l, DeviceType, Options{PollInterval: 100 * time.Millisecond})

	l.Advance(100 * time.Millisecond)
	p.Apply(host.Event{Type: host.EventMediaChange, Media: map[string]bool{host.QueryCoarsePointer: true}})
	l.Advance(100 * time.Millisecond)

	if len(*got) != 2 {
		t.Fatalf("readings = %d, want 2", len(*got))
	}
	if (*got)[0].Mobile || !(*got)[0].Desktop() {
		t.Errorf("first reading should be desktop: %+v", (*got)[0])
	}
	if !(*got)[1].Mobile || (*got)[1].Desktop() {
		t.Errorf("second reading should be mobile: %+v", (*got)[1])
	}

	dispose()
	l.Advance(time.Second)
	if len(*got) != 2 {
		t.Error("poll continued after dispose")
	}
}

func TestUnsupportedIsNoop(t *testing.T) {
	p, l := newPage()
	for _, k := range []Kind{Fullscreen, PointerLock, DeviceType, CanHover} {
		got, dispose := collect(p, l, k, Options{})
		yes := true
		p.Apply(host.Event{Type: host.EventFullscreenChange, Fullscreen: &yes})
		p.Apply(host.Event{Type: host.EventPointerLockChange, PointerLocked: &yes})
		l.Advance(time.Second)
		dispose()
		dispose()

		if len(*got) != 0 {
			t.Errorf("%v: unsupported kind produced readings", k)
		}
		if _, ok := Current(p, k); ok {
			t.Errorf("%v: Current should report unsupported", k)
		}
	}
	if l.Pending() != 0 {
		t.Errorf("pending timers = %d", l.Pending())
	}
}

func TestFullscreenChange(t *testing.T) {
	p, l := newPage(host.FeatureFullscreen)
	got, dispose := collect(p, l, Fullscreen, Options{})
	defer dispose()

	yes, no := true, false
	p.Apply(host.Event{Type: host.EventFullscreenChange, Fullscreen: &yes})
	p.Apply(host.Event{Type: host.EventFullscreenChange, Fullscreen: &no})

	if len(*got) != 2 || !(*got)[0].Active || (*got)[1].Active {
		t.Errorf("readings = %+v", *got)
	}
}

func TestDisposeRemovesBindings(t *testing.T) {
	p, l := newPage()
	_, dispose := collect(p, l, Keyboard, Options{})
	if p.Listeners(host.Window, host.EventKeyDown) != 1 || p.Listeners(host.Window, host.EventKeyUp) != 1 {
		t.Fatal("keyboard should bind keydown and keyup")
	}
	dispose()
	dispose()
	if p.Listeners(host.Window, host.EventKeyDown) != 0 || p.Listeners(host.Window, host.EventKeyUp) != 0 {
		t.Error("bindings left after dispose")
	}
}

func TestCurrent(t *testing.T) {
	p, _ := newPage(host.FeatureMatchMedia)

	r, ok := Current(p, Resize)
	if !ok || r.Size != (store.Size{Width: 1000, Height: 600}) {
		t.Errorf("resize = %+v, %v", r, ok)
	}
	r, ok = Current(p, CanHover)
	if !ok || !r.Active {
		t.Errorf("can hover = %+v, %v", r, ok)
	}
	r, ok = Current(p, Visibility)
	if !ok || !r.Active {
		t.Errorf("visibility = %+v, %v", r, ok)
	}
	if _, ok := Current(p, PointerMove); ok {
		t.Error("pointer move has no current value")
	}
}
