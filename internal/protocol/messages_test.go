package protocol

import (
	"errors"
	"testing"

	"github.com/zalo/manapotion/internal/host"
)

func TestHelloDecoding(t *testing.T) {
	raw := []byte(`{"type":"hello","payload":{
		"features":["fullscreen","matchMedia"],
		"innerWidth":1280,"innerHeight":720,
		"focused":true,
		"media":{"(hover: hover)":true},
		"streamLive":true,
		"timing":{"mouseMoveThrottleDelay":16,"unknownOption":3}
	}}`)

	msg, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != MsgHello {
		t.Fatalf("type = %q", msg.Type)
	}
	var hello Hello
	if err := msg.Into(&hello); err != nil {
		t.Fatal(err)
	}
	if hello.InnerWidth != 1280 || hello.InnerHeight != 720 || !hello.Focused {
		t.Errorf("page info = %+v", hello.PageInfo)
	}
	if len(hello.Features) != 2 || hello.Features[1] != host.FeatureMatchMedia {
		t.Errorf("features = %v", hello.Features)
	}
	if !hello.StreamLive {
		t.Error("streamLive not decoded")
	}
	if hello.Timing.MouseMoveThrottleDelay == nil || *hello.Timing.MouseMoveThrottleDelay != 16 {
		t.Errorf("timing = %+v", hello.Timing)
	}
}

func TestActionRequestIsFlat(t *testing.T) {
	data, err := Encode(MsgAction, ActionRequest{
		ID:     "a1",
		Action: host.Action{Name: host.ActionLockKeys, Codes: []string{"KeyW", "Escape"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := msg.Into(&fields); err != nil {
		t.Fatal(err)
	}
	if fields["id"] != "a1" || fields["name"] != host.ActionLockKeys {
		t.Errorf("payload = %v", fields)
	}
}

func TestDecodeRejectsMissingType(t *testing.T) {
	if _, err := Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Error("expected an error for a message without type")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected an error for invalid json")
	}
	if err := (Message{Type: MsgEvent}).Into(&struct{}{}); err == nil {
		t.Error("expected an error for an empty payload")
	}
}

func TestActionResultErr(t *testing.T) {
	tests := []struct {
		res  ActionResult
		want error
	}{
		{ActionResult{OK: true}, nil},
		{ActionResult{Reason: ReasonUnsupported}, host.ErrUnsupported},
		{ActionResult{Reason: ReasonRejected, Error: "NotAllowedError"}, host.ErrRejected},
		{ActionResult{}, host.ErrRejected},
	}
	for _, tt := range tests {
		err := tt.res.Err()
		if tt.want == nil {
			if err != nil {
				t.Errorf("%+v: err = %v", tt.res, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("%+v: err = %v, want %v", tt.res, err, tt.want)
		}
	}
}
