//go:build js && wasm

package main

import (
	"context"
	"errors"
	"strings"
	"syscall/js"
	"testing"
	"time"
)

func TestKeyCodes(t *testing.T) {
	got := keyCodes([]js.Value{
		js.ValueOf("KeyW"),
		js.ValueOf([]any{"Escape", "KeyA"}),
		js.ValueOf(3),
	})
	want := []string{"KeyW", "Escape", "KeyA"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("codes = %v, want %v", got, want)
	}
}

func settle(t *testing.T, p js.Value) (ok bool, reason string) {
	t.Helper()
	type result struct {
		ok     bool
		reason string
	}
	done := make(chan result, 1)
	onOK := js.FuncOf(func(js.Value, []js.Value) any {
		done <- result{ok: true}
		return nil
	})
	onErr := js.FuncOf(func(_ js.Value, args []js.Value) any {
		done <- result{reason: args[0].Get("message").String()}
		return nil
	})
	defer onOK.Release()
	defer onErr.Release()
	p.Call("then", onOK, onErr)

	select {
	case r := <-done:
		return r.ok, r.reason
	case <-time.After(2 * time.Second):
		t.Fatal("promise never settled")
		return false, ""
	}
}

func TestPromiseSettlesWithActionResult(t *testing.T) {
	ok, _ := settle(t, promise(func(context.Context) error { return nil }))
	if !ok {
		t.Error("successful action rejected")
	}

	ok, reason := settle(t, promise(func(context.Context) error {
		return errors.New("request fullscreen: denied")
	}))
	if ok || reason != "request fullscreen: denied" {
		t.Errorf("failed action settled ok=%v reason=%q", ok, reason)
	}
}
