package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/protocol"
	"github.com/zalo/manapotion/internal/store"
)

type sent struct {
	t protocol.MessageType
	v any
}

type recordSink struct {
	ch chan sent
}

func newSink() *recordSink {
	return &recordSink{ch: make(chan sent, 1024)}
}

func (r *recordSink) Send(t protocol.MessageType, v any) error {
	select {
	case r.ch <- sent{t, v}:
	default:
	}
	return nil
}

func (r *recordSink) wait(t *testing.T, typ protocol.MessageType, match func(any) bool) any {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case m := <-r.ch:
			if m.t == typ && (match == nil || match(m.v)) {
				return m.v
			}
		case <-timeout:
			t.Fatalf("no %s message", typ)
			return nil
		}
	}
}

func zero() *int {
	v := 0
	return &v
}

func hello(features ...host.Feature) protocol.Hello {
	h := protocol.Hello{PageInfo: host.PageInfo{
		Features:    features,
		InnerWidth:  640,
		InnerHeight: 480,
		Focused:     true,
	}}
	// propagate reactive updates immediately
	h.Timing.MouseMoveThrottleDelay = zero()
	h.Timing.ResizeThrottleDelay = zero()
	return h
}

func startSession(t *testing.T, h protocol.Hello) (*Session, *recordSink) {
	t.Helper()
	sink := newSink()
	s := NewSession(sink, Config{ActionTimeout: time.Second})
	if err := s.Start(context.Background(), h); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s, sink
}

func TestDispatchPublishesState(t *testing.T) {
	s, sink := startSession(t, hello())

	s.Dispatch(host.Event{Type: host.EventKeyDown, Code: "KeyW", Key: "w"})
	v := sink.wait(t, protocol.MsgState, func(v any) bool {
		return v.(protocol.State).Signal == store.SignalKeys
	})
	st := v.(protocol.State)
	if len(st.Keys) != 1 || st.Keys[0].Code != "KeyW" {
		t.Errorf("keys = %+v", st.Keys)
	}

	s.Dispatch(host.Event{Type: host.EventMouseMove, ClientX: 40, ClientY: 80, MovementX: 2})
	v = sink.wait(t, protocol.MsgState, func(v any) bool {
		return v.(protocol.State).Signal == store.SignalPointerMovement
	})
	if pos := v.(protocol.State).Reactive.Pointer.Position; pos != (store.Vec2{X: 40, Y: 400}) {
		t.Errorf("position = %+v", pos)
	}

	var live store.State
	if err := s.Do(context.Background(), func() { live = s.Store().Live() }); err != nil {
		t.Fatal(err)
	}
	if live.Browser.Size != (store.Size{Width: 640, Height: 480}) {
		t.Errorf("size = %+v", live.Browser.Size)
	}
}

func TestStartTwice(t *testing.T) {
	s, _ := startSession(t, hello())
	if err := s.Start(context.Background(), hello()); err == nil {
		t.Error("second start should fail")
	}
}

func TestStartRejectsInvalidTiming(t *testing.T) {
	h := hello()
	neg := -4
	h.Timing.MouseScrollResetDelay = &neg
	s := NewSession(newSink(), Config{})
	if err := s.Start(context.Background(), h); err == nil {
		t.Error("negative timing should be rejected")
	}
	s.Close()
}

func TestActionRoundTrip(t *testing.T) {
	s, sink := startSession(t, hello(host.FeatureFullscreen))

	tests := []struct {
		name   string
		result protocol.ActionResult
		want   error
	}{
		{"granted", protocol.ActionResult{OK: true}, nil},
		{"denied", protocol.ActionResult{Reason: protocol.ReasonRejected}, host.ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				done <- s.Act(context.Background(), host.Action{Name: host.ActionRequestFullscreen})
			}()

			req := sink.wait(t, protocol.MsgAction, nil).(protocol.ActionRequest)
			if req.Name != host.ActionRequestFullscreen {
				t.Fatalf("action = %+v", req)
			}
			res := tt.result
			res.ID = req.ID
			if !s.Resolve(res) {
				t.Fatal("no pending request for result")
			}

			err := <-done
			if tt.want == nil && err != nil {
				t.Errorf("err = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if store.GetLive(s.Store(), store.Fullscreen) {
				t.Error("action changed isFullscreen without a change event")
			}
		})
	}

	if s.Resolve(protocol.ActionResult{ID: "stale"}) {
		t.Error("stale result should not resolve anything")
	}
}

func TestActUnsupportedAndUnknown(t *testing.T) {
	s, _ := startSession(t, hello())
	if err := s.Act(context.Background(), host.Action{Name: host.ActionRequestPointerLock}); !errors.Is(err, host.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
	if err := s.Act(context.Background(), host.Action{Name: "dance"}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("err = %v, want ErrUnknownAction", err)
	}
}

func TestCloseFailsPendingAction(t *testing.T) {
	s, sink := startSession(t, hello(host.FeatureKeyboardLock))

	done := make(chan error, 1)
	go func() {
		done <- s.Act(context.Background(), host.Action{Name: host.ActionLockKeys, Codes: []string{"Escape"}})
	}()
	sink.wait(t, protocol.MsgAction, nil)

	s.Close()
	s.Close()
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if err := s.Request(context.Background(), host.Action{Name: host.ActionUnlockKeys}); !errors.Is(err, ErrClosed) {
		t.Errorf("request after close = %v", err)
	}
}

func TestStreamLive(t *testing.T) {
	h := hello()
	h.StreamLive = true
	s, sink := startSession(t, h)

	s.Dispatch(host.Event{Type: host.EventMouseMove, ClientX: 5, ClientY: 5})
	sink.wait(t, protocol.MsgLive, func(v any) bool {
		return v.(protocol.Live).Live.Pointer.Position == store.Vec2{X: 5, Y: 475}
	})
	if !s.Snapshot().StreamLive {
		t.Error("snapshot should report live streaming")
	}
}

func TestManager(t *testing.T) {
	m := NewManager(2, Config{})
	a, err := m.CreateSession(newSink())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateSession(newSink()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateSession(newSink()); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("err = %v, want ErrTooManySessions", err)
	}

	got, err := m.GetSession(a.ID)
	if err != nil || got != a {
		t.Errorf("GetSession = %v, %v", got, err)
	}
	if list := m.ListSessions(); len(list) != 2 {
		t.Errorf("list = %v", list)
	}

	if err := m.CloseSession(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.CloseSession(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := m.GetSession("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	m.CloseAll()
	if m.Count() != 0 {
		t.Errorf("count = %d", m.Count())
	}
}

func TestDispatchOutsideLifetimeIsDropped(t *testing.T) {
	s := NewSession(newSink(), Config{})
	if s.Dispatch(host.Event{Type: host.EventKeyDown, Code: "KeyA", Key: "a"}) {
		t.Error("event queued before start")
	}

	if err := s.Start(context.Background(), hello()); err != nil {
		t.Fatal(err)
	}
	if !s.Dispatch(host.Event{Type: host.EventKeyUp, Code: "KeyA", Key: "a"}) {
		t.Error("event dropped while running")
	}

	s.Close()
	for i := 0; i < 1000; i++ {
		if s.Dispatch(host.Event{Type: host.EventMouseMove, ClientX: float64(i)}) {
			t.Fatal("event queued after close")
		}
	}
	if n := s.loop.Queued(); n != 0 {
		t.Errorf("closed session kept %d callbacks", n)
	}
}
