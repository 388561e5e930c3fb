//go:build js && wasm

// Command manapotion-wasm runs the listeners inside the page itself and
// reports every reactive change to window.manapotion.onChange. The page
// actions are exposed on window.manapotion and return promises.
package main

import (
	"context"
	"encoding/json"
	"log"
	"syscall/js"

	"github.com/zalo/manapotion/internal/browser"
	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/host/jshost"
	"github.com/zalo/manapotion/internal/listener"
	"github.com/zalo/manapotion/internal/loop"
	"github.com/zalo/manapotion/internal/store"
)

func main() {
	l := loop.New()
	s := store.New()
	h := jshost.New(l)
	b := browser.New(h, s)

	var cfg listener.Config
	if t := js.Global().Get("manapotionTiming"); t.Truthy() {
		timing, err := listener.ParseTiming([]byte(js.Global().Get("JSON").Call("stringify", t).String()))
		if err != nil {
			log.Printf("Ignoring timing: %v", err)
		}
		timing.Apply(&cfg)
	}

	api := js.Global().Get("Object").New()
	js.Global().Set("manapotion", api)

	s.Subscribe(func(c store.Change) {
		cb := api.Get("onChange")
		if cb.Type() != js.TypeFunction {
			return
		}
		data, err := json.Marshal(c.Reactive)
		if err != nil {
			log.Printf("Failed to encode %s: %v", c.Signal, err)
			return
		}
		cb.Invoke(string(c.Signal), string(data))
	})

	api.Set("live", js.FuncOf(func(js.Value, []js.Value) any {
		data, _ := json.Marshal(s.Live())
		return string(data)
	}))

	actions := map[string]func(args []js.Value) func(context.Context) error{
		"enterFullscreen":   noArgs(b.EnterFullscreen),
		"exitFullscreen":    noArgs(b.ExitFullscreen),
		"toggleFullscreen":  noArgs(b.ToggleFullscreen),
		"lockPointer":       noArgs(b.LockPointer),
		"unlockPointer":     noArgs(b.UnlockPointer),
		"togglePointerLock": noArgs(b.TogglePointerLock),
		"unlockOrientation": noArgs(b.UnlockOrientation),
		"unlockKeys":        noArgs(b.UnlockKeys),
		"lockOrientation": func(args []js.Value) func(context.Context) error {
			var o host.Orientation
			if len(args) > 0 && args[0].Type() == js.TypeString {
				o = host.Orientation(args[0].String())
			}
			return func(ctx context.Context) error { return b.LockOrientation(ctx, o) }
		},
		"lockKeys": func(args []js.Value) func(context.Context) error {
			codes := keyCodes(args)
			return func(ctx context.Context) error { return b.LockKeys(ctx, codes...) }
		},
	}
	for name, action := range actions {
		action := action
		api.Set(name, js.FuncOf(func(_ js.Value, args []js.Value) any {
			return promise(action(args))
		}))
	}

	l.Post(func() {
		dispose, err := listener.Mount(listener.Env{Host: h, Loop: l, Store: s}, listener.Listeners(cfg))
		if err != nil {
			log.Printf("Failed to mount listeners: %v", err)
			return
		}
		api.Set("dispose", js.FuncOf(func(js.Value, []js.Value) any {
			l.Post(dispose)
			return nil
		}))
	})

	if err := l.Run(context.Background()); err != nil {
		log.Fatalf("Event loop stopped: %v", err)
	}
}

func noArgs(fn func(context.Context) error) func([]js.Value) func(context.Context) error {
	return func([]js.Value) func(context.Context) error { return fn }
}

// keyCodes accepts codes as separate arguments or as one array.
func keyCodes(args []js.Value) []string {
	var codes []string
	for _, a := range args {
		switch {
		case a.Type() == js.TypeString:
			codes = append(codes, a.String())
		case js.Global().Get("Array").Call("isArray", a).Bool():
			for i := 0; i < a.Length(); i++ {
				codes = append(codes, a.Index(i).String())
			}
		}
	}
	return codes
}

// promise runs fn on its own goroutine and settles a JS promise with the
// result. Actions wait on browser promises, which cannot resolve while a
// JS callback is blocked.
func promise(fn func(context.Context) error) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(_ js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			if err := fn(context.Background()); err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke()
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}
