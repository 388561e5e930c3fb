// Package browser exposes the imperative page actions: fullscreen,
// pointer lock, orientation lock and keyboard lock.
//
// A request never changes tracked state itself. When the platform grants
// it, the resulting change event updates the store through the mounted
// listeners; when it refuses, the error is logged and returned and the
// state keeps its previous value.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/store"
)

// ErrInvalidOrientation is returned for an unknown orientation lock type.
var ErrInvalidOrientation = errors.New("invalid orientation")

// Controller issues actions against one page.
type Controller struct {
	actions host.Actions
	store   *store.Store
}

// New creates a controller. The store is read by the toggle helpers.
func New(a host.Actions, s *store.Store) *Controller {
	return &Controller{actions: a, store: s}
}

func (c *Controller) do(name string, fn func() error) error {
	if err := fn(); err != nil {
		log.Printf("Browser action %s failed: %v", name, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// EnterFullscreen requests fullscreen for the document.
func (c *Controller) EnterFullscreen(ctx context.Context) error {
	return c.do("enter fullscreen", func() error { return c.actions.RequestFullscreen(ctx) })
}

// ExitFullscreen leaves fullscreen.
func (c *Controller) ExitFullscreen(ctx context.Context) error {
	return c.do("exit fullscreen", func() error { return c.actions.ExitFullscreen(ctx) })
}

// ToggleFullscreen enters or exits fullscreen depending on the live state.
func (c *Controller) ToggleFullscreen(ctx context.Context) error {
	if store.GetLive(c.store, store.Fullscreen) {
		return c.ExitFullscreen(ctx)
	}
	return c.EnterFullscreen(ctx)
}

// LockPointer requests pointer lock.
func (c *Controller) LockPointer(ctx context.Context) error {
	return c.do("lock pointer", func() error { return c.actions.RequestPointerLock(ctx) })
}

// UnlockPointer releases pointer lock.
func (c *Controller) UnlockPointer(ctx context.Context) error {
	return c.do("unlock pointer", func() error { return c.actions.ExitPointerLock(ctx) })
}

// TogglePointerLock locks or unlocks the pointer depending on the live
// state.
func (c *Controller) TogglePointerLock(ctx context.Context) error {
	if store.GetLive(c.store, store.PointerLocked) {
		return c.UnlockPointer(ctx)
	}
	return c.LockPointer(ctx)
}

// LockOrientation locks the screen to o.
func (c *Controller) LockOrientation(ctx context.Context, o host.Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("lock orientation %q: %w", o, ErrInvalidOrientation)
	}
	return c.do("lock orientation", func() error { return c.actions.LockOrientation(ctx, o) })
}

// UnlockOrientation releases the orientation lock.
func (c *Controller) UnlockOrientation(ctx context.Context) error {
	return c.do("unlock orientation", func() error { return c.actions.UnlockOrientation(ctx) })
}

// LockKeys captures the given key codes so the browser does not act on
// them, e.g. Escape while fullscreen. No codes means every key.
func (c *Controller) LockKeys(ctx context.Context, codes ...string) error {
	return c.do("lock keys", func() error { return c.actions.LockKeys(ctx, codes) })
}

// UnlockKeys releases the keyboard lock.
func (c *Controller) UnlockKeys(ctx context.Context) error {
	return c.do("unlock keys", func() error { return c.actions.UnlockKeys(ctx) })
}
