package frame

import (
	"testing"
	"time"

	"github.com/zalo/manapotion/internal/loop"
)

func TestStagesAndDelta(t *testing.T) {
	l := loop.NewManual(time.Unix(0, 0))
	f := New(l, 10)

	var order []string
	var frames []Frame
	f.Add(func(Frame) { order = append(order, "late") }, EffectOptions{Stage: StageLate})
	f.Add(func(fr Frame) {
		order = append(order, "default")
		frames = append(frames, fr)
	}, EffectOptions{})
	f.Add(func(Frame) { order = append(order, "early") }, EffectOptions{Stage: StageEarly})

	l.Advance(200 * time.Millisecond)

	want := []string{"early", "default", "late", "early", "default", "late"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if frames[1].Delta != 100*time.Millisecond || frames[1].Elapsed != 200*time.Millisecond {
		t.Errorf("second frame = %+v", frames[1])
	}
}

func TestThrottledEffect(t *testing.T) {
	l := loop.NewManual(time.Unix(0, 0))
	f := New(l, 100)

	every, throttled := 0, 0
	f.Add(func(Frame) { every++ }, EffectOptions{})
	f.Add(func(Frame) { throttled++ }, EffectOptions{Throttle: 50 * time.Millisecond})

	l.Advance(100 * time.Millisecond)

	if every != 10 {
		t.Errorf("every-frame effect ran %d times, want 10", every)
	}
	// at 10ms, 60ms
	if throttled != 2 {
		t.Errorf("throttled effect ran %d times, want 2", throttled)
	}
}

func TestTickerFollowsEffects(t *testing.T) {
	l := loop.NewManual(time.Unix(0, 0))
	f := New(l, 0)
	if f.Interval() != time.Second/DefaultRate {
		t.Errorf("interval = %v", f.Interval())
	}

	removeA := f.Add(func(Frame) {}, EffectOptions{})
	removeB := f.Add(func(Frame) {}, EffectOptions{})
	if !f.Running() || l.Pending() != 1 {
		t.Fatalf("running=%v pending=%d", f.Running(), l.Pending())
	}
	removeA()
	removeA()
	if !f.Running() {
		t.Error("ticker stopped with an effect left")
	}
	removeB()
	if f.Running() || l.Pending() != 0 {
		t.Errorf("ticker still armed: running=%v pending=%d", f.Running(), l.Pending())
	}
}

func TestRemoveDuringTick(t *testing.T) {
	l := loop.NewManual(time.Unix(0, 0))
	f := New(l, 10)

	ran := 0
	var removeSecond func()
	f.Add(func(Frame) { removeSecond() }, EffectOptions{})
	removeSecond = f.Add(func(Frame) { ran++ }, EffectOptions{})

	l.Advance(300 * time.Millisecond)
	if ran != 0 {
		t.Errorf("removed effect ran %d times", ran)
	}
}
