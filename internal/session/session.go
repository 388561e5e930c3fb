package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zalo/manapotion/internal/browser"
	"github.com/zalo/manapotion/internal/frame"
	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/listener"
	"github.com/zalo/manapotion/internal/loop"
	"github.com/zalo/manapotion/internal/protocol"
	"github.com/zalo/manapotion/internal/store"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")

	// ErrUnknownAction is returned by Act for an unrecognised action name.
	ErrUnknownAction = errors.New("unknown action")
)

// Sink delivers server messages to the page. Send must not block.
type Sink interface {
	Send(t protocol.MessageType, v any) error
}

// Config tunes a session.
type Config struct {
	// Timing is the server-wide listener timing; a page's hello may
	// override individual options.
	Timing listener.Timing

	// FrameRate drives the live snapshot stream.
	FrameRate int

	// LiveInterval throttles live snapshots. Zero sends one per frame.
	LiveInterval time.Duration

	// ActionTimeout bounds how long an action waits for the page.
	ActionTimeout time.Duration
}

// Session tracks the input state of one relayed browser page. Native
// events arrive through Dispatch and are applied on the session's own
// event loop, where the listeners, throttles and decay timers run.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	cfg     Config
	sink    Sink
	loop    *loop.EventLoop
	page    *host.Page
	store   *store.Store
	browser *browser.Controller
	frames  *frame.Loop

	mu         sync.Mutex
	pending    map[string]chan protocol.ActionResult
	started    bool
	closed     bool
	streamLive bool
	cancel     context.CancelFunc
	dispose    listener.Disposer
	unsub      func()
}

// NewSession creates an idle session sending to sink.
func NewSession(sink Sink, cfg Config) *Session {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = frame.DefaultRate
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 5 * time.Second
	}

	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		cfg:       cfg,
		sink:      sink,
		loop:      loop.New(),
		store:     store.New(),
		pending:   make(map[string]chan protocol.ActionResult),
	}
	s.page = host.NewPage(s)
	s.browser = browser.New(s.page, s.store)
	s.frames = frame.New(s.loop, cfg.FrameRate)
	return s
}

// Store returns the session's state container.
func (s *Session) Store() *store.Store {
	return s.store
}

// Browser returns the action controller of the page.
func (s *Session) Browser() *browser.Controller {
	return s.browser
}

// Start mirrors the page described by hello, starts the event loop and
// mounts the listeners. Reactive changes are forwarded to the sink as
// state messages.
func (s *Session) Start(ctx context.Context, hello protocol.Hello) error {
	var cfg listener.Config
	s.cfg.Timing.Merge(hello.Timing).Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("start session %s: %w", s.ID, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session %s: %w", s.ID, listener.ErrAlreadyMounted)
	}
	s.started = true
	s.streamLive = hello.StreamLive
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.page.Sync(hello.PageInfo)
	go func() {
		if err := s.loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Session %s loop stopped: %v", s.ID, err)
		}
	}()

	var mountErr error
	err := s.loop.Call(ctx, func() {
		s.unsub = s.store.Subscribe(s.publish)
		s.dispose, mountErr = listener.Mount(listener.Env{Host: s.page, Loop: s.loop, Store: s.store}, listener.Listeners(cfg))
		if mountErr == nil && hello.StreamLive {
			s.frames.Add(s.publishLive, frame.EffectOptions{Throttle: s.cfg.LiveInterval, Stage: frame.StageLate})
		}
	})
	if err == nil {
		err = mountErr
	}
	if err != nil {
		s.Close()
		return fmt.Errorf("start session %s: %w", s.ID, err)
	}

	log.Printf("Session %s started (%vx%v, %d features, live=%v)",
		s.ID, hello.InnerWidth, hello.InnerHeight, len(hello.Features), hello.StreamLive)
	return nil
}

func (s *Session) publish(c store.Change) {
	err := s.sink.Send(protocol.MsgState, protocol.State{
		Signal:   c.Signal,
		Reactive: c.Reactive,
		Keys:     s.store.Keys(),
	})
	if err != nil {
		log.Printf("Session %s: failed to send state: %v", s.ID, err)
	}
}

func (s *Session) publishLive(f frame.Frame) {
	err := s.sink.Send(protocol.MsgLive, protocol.Live{
		Elapsed: f.Elapsed.Milliseconds(),
		Live:    s.store.Live(),
	})
	if err != nil {
		log.Printf("Session %s: failed to send live state: %v", s.ID, err)
	}
}

// Dispatch queues a native event for the page. Events arriving before
// Start or after Close are dropped; it reports whether ev was queued.
func (s *Session) Dispatch(ev host.Event) bool {
	s.mu.Lock()
	live := s.started && !s.closed
	s.mu.Unlock()
	if !live {
		return false
	}
	s.loop.Post(func() { s.page.Apply(ev) })
	return true
}

// Do runs fn on the session's event loop and waits for it.
func (s *Session) Do(ctx context.Context, fn func()) error {
	return s.loop.Call(ctx, fn)
}

// Request implements host.Requester: it sends the action to the page and
// waits for the matching action_result.
func (s *Session) Request(ctx context.Context, a host.Action) error {
	id := uuid.New().String()
	ch := make(chan protocol.ActionResult, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.pending[id] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.sink.Send(protocol.MsgAction, protocol.ActionRequest{ID: id, Action: a}); err != nil {
		return fmt.Errorf("send %s: %w", a.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ActionTimeout)
	defer cancel()

	select {
	case res, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		return res.Err()
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", a.Name, ctx.Err())
	}
}

// Resolve delivers an action_result. It reports whether a request was
// waiting for it.
func (s *Session) Resolve(res protocol.ActionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.pending[res.ID]
	if !ok {
		return false
	}
	delete(s.pending, res.ID)
	ch <- res
	return true
}

// Act performs a named action through the browser controller. Toggle
// names are accepted in addition to the host action names.
func (s *Session) Act(ctx context.Context, a host.Action) error {
	b := s.browser
	switch a.Name {
	case host.ActionRequestFullscreen:
		return b.EnterFullscreen(ctx)
	case host.ActionExitFullscreen:
		return b.ExitFullscreen(ctx)
	case ActionToggleFullscreen:
		return b.ToggleFullscreen(ctx)
	case host.ActionRequestPointerLock:
		return b.LockPointer(ctx)
	case host.ActionExitPointerLock:
		return b.UnlockPointer(ctx)
	case ActionTogglePointerLock:
		return b.TogglePointerLock(ctx)
	case host.ActionLockOrientation:
		return b.LockOrientation(ctx, a.Orientation)
	case host.ActionUnlockOrientation:
		return b.UnlockOrientation(ctx)
	case host.ActionLockKeys:
		return b.LockKeys(ctx, a.Codes...)
	case host.ActionUnlockKeys:
		return b.UnlockKeys(ctx)
	}
	return fmt.Errorf("%q: %w", a.Name, ErrUnknownAction)
}

// Toggle action names accepted by Act.
const (
	ActionToggleFullscreen  = "toggleFullscreen"
	ActionTogglePointerLock = "togglePointerLock"
)

// Status is a point-in-time view of a session.
type Status struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	StreamLive bool             `json:"stream_live"`
	Live       store.State      `json:"live"`
	Reactive   store.State      `json:"reactive"`
	Keys       []store.KeyState `json:"keys"`
}

// Snapshot returns the session status.
func (s *Session) Snapshot() Status {
	live, reactive := s.store.Snapshot()
	s.mu.Lock()
	streamLive := s.streamLive
	s.mu.Unlock()
	return Status{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		StreamLive: streamLive,
		Live:       live,
		Reactive:   reactive,
		Keys:       s.store.Keys(),
	}
}

// Close unmounts the listeners, stops the event loop and fails pending
// actions. It may be called more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	err := s.loop.Call(ctx, func() {
		s.frames.Stop()
		if s.dispose != nil {
			s.dispose()
		}
		if s.unsub != nil {
			s.unsub()
		}
	})
	if err != nil {
		log.Printf("Session %s: teardown did not complete: %v", s.ID, err)
	}
	cancel()
	log.Printf("Session %s closed", s.ID)
}
