package loop

import (
	"context"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualAdvanceOrder(t *testing.T) {
	m := NewManual(epoch)
	var got []string

	m.AfterFunc(30*time.Millisecond, func() { got = append(got, "b") })
	m.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	m.AfterFunc(30*time.Millisecond, func() { got = append(got, "c") })

	m.Advance(20 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("after 20ms got %v, want [a]", got)
	}

	m.Advance(10 * time.Millisecond)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if !m.Now().Equal(epoch.Add(30 * time.Millisecond)) {
		t.Errorf("clock = %v", m.Now())
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual(epoch)
	fired := false
	timer := m.AfterFunc(10*time.Millisecond, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("first Stop should report true")
	}
	if timer.Stop() {
		t.Error("second Stop should report false")
	}
	m.Advance(time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if m.Pending() != 0 {
		t.Errorf("pending = %d, want 0", m.Pending())
	}
}

func TestManualStopFromSiblingTimer(t *testing.T) {
	m := NewManual(epoch)
	fired := false
	var second Timer
	m.AfterFunc(10*time.Millisecond, func() { second.Stop() })
	second = m.AfterFunc(10*time.Millisecond, func() { fired = true })

	m.Advance(10 * time.Millisecond)
	if fired {
		t.Error("timer stopped by an earlier callback at the same instant still fired")
	}
}

func TestManualEvery(t *testing.T) {
	m := NewManual(epoch)
	n := 0
	timer := m.Every(100*time.Millisecond, func() { n++ })

	m.Advance(350 * time.Millisecond)
	if n != 3 {
		t.Fatalf("ticks = %d, want 3", n)
	}
	timer.Stop()
	m.Advance(time.Second)
	if n != 3 {
		t.Errorf("ticks after stop = %d, want 3", n)
	}
}

func TestManualPostRunsOnFlush(t *testing.T) {
	m := NewManual(epoch)
	var got []int
	m.Post(func() {
		got = append(got, 1)
		m.Post(func() { got = append(got, 2) })
	})
	if len(got) != 0 {
		t.Fatal("Post ran synchronously")
	}
	m.Flush()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v, want [1 2]", got)
	}
}

func TestEventLoopCall(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var order []int
	l.Post(func() { order = append(order, 1) })
	if err := l.Call(ctx, func() { order = append(order, 2) }); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
}

func TestEventLoopAfterFuncStop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	fired := make(chan struct{}, 1)
	var timer Timer
	if err := l.Call(ctx, func() {
		timer = l.AfterFunc(5*time.Millisecond, func() { fired <- struct{}{} })
		timer.Stop()
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestEventLoopCallAfterStop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()
	<-l.Done()

	if err := l.Call(context.Background(), func() {}); err != ErrStopped {
		t.Errorf("Call after stop = %v, want ErrStopped", err)
	}
}

func TestEventLoopDropsPostsAfterStop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()
	<-l.Done()

	ran := false
	for i := 0; i < 1000; i++ {
		l.Post(func() { ran = true })
	}

	if n := l.Queued(); n != 0 {
		t.Errorf("stopped loop kept %d callbacks", n)
	}
	if ran {
		t.Error("callback ran after stop")
	}
}
