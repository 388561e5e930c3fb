//go:build js && wasm

// Package jshost implements the host contract directly in the browser
// over syscall/js.
package jshost

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/loop"
)

// Host binds to the global window and document.
type Host struct {
	window   js.Value
	document js.Value
	post     func(func())
}

// New returns a Host for the current page. Native handlers are posted to
// l, so listeners run on the same loop as their timers.
func New(l loop.Loop) *Host {
	return &Host{
		window:   js.Global().Get("window"),
		document: js.Global().Get("document"),
		post:     l.Post,
	}
}

func (h *Host) target(t host.Target) js.Value {
	if t == host.Document {
		return h.document
	}
	return h.window
}

// AddEventListener implements host.Host. The js.Func is released when
// the listener is removed.
func (h *Host) AddEventListener(t host.Target, typ string, fn func(host.Event)) func() {
	this := h.target(t)
	jsf := js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		ev := host.Event{Type: typ, Target: t}
		if len(args) > 0 {
			ev = h.convert(typ, t, args[0])
		}
		h.post(func() { fn(ev) })
		return nil
	})
	this.Call("addEventListener", typ, jsf)

	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		this.Call("removeEventListener", typ, jsf)
		jsf.Release()
	}
}

func (h *Host) convert(typ string, t host.Target, e js.Value) host.Event {
	ev := host.Event{Type: typ, Target: t}
	switch typ {
	case host.EventMouseMove, host.EventMouseDown, host.EventMouseUp:
		ev.ClientX = e.Get("clientX").Float()
		ev.ClientY = e.Get("clientY").Float()
		ev.MovementX = floatOr(e.Get("movementX"))
		ev.MovementY = floatOr(e.Get("movementY"))
		ev.Button = e.Get("button").Int()
	case host.EventWheel:
		ev.DeltaX = e.Get("deltaX").Float()
		ev.DeltaY = e.Get("deltaY").Float()
		ev.DeltaMode = e.Get("deltaMode").Int()
	case host.EventKeyDown, host.EventKeyUp:
		ev.Code = e.Get("code").String()
		ev.Key = e.Get("key").String()
		ev.CtrlKey = e.Get("ctrlKey").Bool()
		ev.ShiftKey = e.Get("shiftKey").Bool()
		ev.AltKey = e.Get("altKey").Bool()
		ev.MetaKey = e.Get("metaKey").Bool()
		ev.Repeat = e.Get("repeat").Bool()
	}
	return ev
}

func floatOr(v js.Value) float64 {
	if v.IsUndefined() || v.IsNull() {
		return 0
	}
	return v.Float()
}

// InnerSize implements host.Host.
func (h *Host) InnerSize() (float64, float64) {
	return h.window.Get("innerWidth").Float(), h.window.Get("innerHeight").Float()
}

// MatchMedia implements host.Host.
func (h *Host) MatchMedia(query string) bool {
	mm := h.window.Get("matchMedia")
	if mm.IsUndefined() {
		return false
	}
	return h.window.Call("matchMedia", query).Get("matches").Bool()
}

// Hidden implements host.Host.
func (h *Host) Hidden() bool {
	return h.document.Get("hidden").Bool()
}

// HasFocus implements host.Host.
func (h *Host) HasFocus() bool {
	return h.document.Call("hasFocus").Bool()
}

// FullscreenElement implements host.Host.
func (h *Host) FullscreenElement() bool {
	el := h.document.Get("fullscreenElement")
	return !el.IsUndefined() && !el.IsNull()
}

// PointerLockElement implements host.Host.
func (h *Host) PointerLockElement() bool {
	el := h.document.Get("pointerLockElement")
	return !el.IsUndefined() && !el.IsNull()
}

// Supports implements host.Host.
func (h *Host) Supports(f host.Feature) bool {
	switch f {
	case host.FeatureFullscreen:
		return !h.document.Get("documentElement").Get("requestFullscreen").IsUndefined()
	case host.FeaturePointerLock:
		return !h.document.Get("documentElement").Get("requestPointerLock").IsUndefined()
	case host.FeatureOrientationLock:
		o := h.window.Get("screen").Get("orientation")
		return !o.IsUndefined() && !o.Get("lock").IsUndefined()
	case host.FeatureKeyboardLock:
		kb := h.window.Get("navigator").Get("keyboard")
		return !kb.IsUndefined() && !kb.Get("lock").IsUndefined()
	case host.FeatureMatchMedia:
		return !h.window.Get("matchMedia").IsUndefined()
	}
	return false
}

// await blocks until the promise settles. It must not be called from a
// JS callback, or the promise can never resolve.
func await(ctx context.Context, promise js.Value) error {
	if promise.IsUndefined() || promise.IsNull() || promise.Get("then").IsUndefined() {
		return nil
	}
	done := make(chan error, 1)
	onOK := js.FuncOf(func(js.Value, []js.Value) interface{} {
		done <- nil
		return nil
	})
	onErr := js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		msg := "unknown"
		if len(args) > 0 && !args[0].IsUndefined() {
			msg = args[0].Call("toString").String()
		}
		done <- fmt.Errorf("%s: %w", msg, host.ErrRejected)
		return nil
	})
	defer onOK.Release()
	defer onErr.Release()

	promise.Call("then", onOK, onErr)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) call(ctx context.Context, f host.Feature, recv js.Value, method string, args ...interface{}) error {
	if !h.Supports(f) || recv.IsUndefined() || recv.Get(method).IsUndefined() {
		return fmt.Errorf("%s: %w", method, host.ErrUnsupported)
	}
	return await(ctx, recv.Call(method, args...))
}

// RequestFullscreen implements host.Actions.
func (h *Host) RequestFullscreen(ctx context.Context) error {
	return h.call(ctx, host.FeatureFullscreen, h.document.Get("documentElement"), "requestFullscreen")
}

// ExitFullscreen implements host.Actions.
func (h *Host) ExitFullscreen(ctx context.Context) error {
	return h.call(ctx, host.FeatureFullscreen, h.document, "exitFullscreen")
}

// RequestPointerLock implements host.Actions.
func (h *Host) RequestPointerLock(ctx context.Context) error {
	return h.call(ctx, host.FeaturePointerLock, h.document.Get("documentElement"), "requestPointerLock")
}

// ExitPointerLock implements host.Actions.
func (h *Host) ExitPointerLock(ctx context.Context) error {
	return h.call(ctx, host.FeaturePointerLock, h.document, "exitPointerLock")
}

// LockOrientation implements host.Actions.
func (h *Host) LockOrientation(ctx context.Context, o host.Orientation) error {
	return h.call(ctx, host.FeatureOrientationLock, h.window.Get("screen").Get("orientation"), "lock", string(o))
}

// UnlockOrientation implements host.Actions.
func (h *Host) UnlockOrientation(ctx context.Context) error {
	return h.call(ctx, host.FeatureOrientationLock, h.window.Get("screen").Get("orientation"), "unlock")
}

// LockKeys implements host.Actions. An empty list locks every key.
func (h *Host) LockKeys(ctx context.Context, codes []string) error {
	kb := h.window.Get("navigator").Get("keyboard")
	if len(codes) == 0 {
		return h.call(ctx, host.FeatureKeyboardLock, kb, "lock")
	}
	arr := make([]interface{}, len(codes))
	for i, c := range codes {
		arr[i] = c
	}
	return h.call(ctx, host.FeatureKeyboardLock, kb, "lock", js.ValueOf(arr))
}

// UnlockKeys implements host.Actions.
func (h *Host) UnlockKeys(ctx context.Context) error {
	return h.call(ctx, host.FeatureKeyboardLock, h.window.Get("navigator").Get("keyboard"), "unlock")
}

var (
	_ host.Host    = (*Host)(nil)
	_ host.Actions = (*Host)(nil)
)
