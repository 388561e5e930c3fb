package host

import (
	"context"
	"errors"
	"testing"
)

type recordingRequester struct {
	got []Action
	err error
}

func (r *recordingRequester) Request(_ context.Context, a Action) error {
	r.got = append(r.got, a)
	return r.err
}

func TestApplyMirrorsBeforeDispatch(t *testing.T) {
	p := NewPage(nil)
	var seen float64
	p.AddEventListener(Window, EventResize, func(Event) {
		seen, _ = p.InnerSize()
	})

	p.Apply(Event{Type: EventResize, InnerWidth: 800, InnerHeight: 600})
	if seen != 800 {
		t.Errorf("listener saw width %v, want 800", seen)
	}
}

func TestApplyChangeEvents(t *testing.T) {
	p := NewPage(nil)
	yes := true

	p.Apply(Event{Type: EventVisibilityChange, Hidden: &yes})
	p.Apply(Event{Type: EventFullscreenChange, Fullscreen: &yes})
	p.Apply(Event{Type: EventPointerLockChange, PointerLocked: &yes})
	p.Apply(Event{Type: EventBlur})
	p.Apply(Event{Type: EventMediaChange, Media: map[string]bool{QueryHover: true}})

	if !p.Hidden() || !p.FullscreenElement() || !p.PointerLockElement() {
		t.Error("change events not mirrored")
	}
	if p.HasFocus() {
		t.Error("blur not mirrored")
	}
	if !p.MatchMedia(QueryHover) {
		t.Error("media change not mirrored")
	}
}

func TestDispatchUsesDefaultTarget(t *testing.T) {
	p := NewPage(nil)
	hits := 0
	p.AddEventListener(Document, EventFullscreenChange, func(Event) { hits++ })
	p.AddEventListener(Window, EventFullscreenChange, func(Event) { t.Error("window listener hit") })

	p.Apply(Event{Type: EventFullscreenChange})
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestRemoveListener(t *testing.T) {
	p := NewPage(nil)
	hits := 0
	var removeB func()
	p.AddEventListener(Window, EventWheel, func(Event) {
		hits++
		removeB()
	})
	removeB = p.AddEventListener(Window, EventWheel, func(Event) { hits += 10 })

	p.Apply(Event{Type: EventWheel})
	if hits != 1 {
		t.Errorf("hits = %d, want 1 (second listener removed mid-dispatch)", hits)
	}
	removeB()
	if n := p.Listeners(Window, EventWheel); n != 1 {
		t.Errorf("listeners = %d, want 1", n)
	}
}

func TestActionsRequireFeature(t *testing.T) {
	r := &recordingRequester{}
	p := NewPage(r)
	ctx := context.Background()

	if err := p.RequestFullscreen(ctx); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
	if len(r.got) != 0 {
		t.Error("unsupported request reached the page")
	}

	p.Sync(PageInfo{Features: []Feature{FeatureFullscreen, FeatureOrientationLock}, Focused: true})
	if err := p.RequestFullscreen(ctx); err != nil {
		t.Fatalf("RequestFullscreen: %v", err)
	}
	if err := p.LockOrientation(ctx, OrientationLandscape); err != nil {
		t.Fatalf("LockOrientation: %v", err)
	}
	if len(r.got) != 2 || r.got[1].Orientation != OrientationLandscape {
		t.Errorf("requests = %+v", r.got)
	}
}

func TestActionsWithoutRequester(t *testing.T) {
	p := NewPage(nil)
	p.Sync(PageInfo{Features: []Feature{FeaturePointerLock}})
	if err := p.RequestPointerLock(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestOrientationValid(t *testing.T) {
	if !OrientationPortrait.Valid() || !OrientationLandscapeSecondary.Valid() {
		t.Error("standard orientations should be valid")
	}
	if Orientation("sideways").Valid() {
		t.Error("unknown orientation should be invalid")
	}
}
