package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/registry"
	"github.com/wippyai/ar-placement/runtime"
	"github.com/wippyai/ar-placement/session"
)

const scriptStepTimeout = 10 * time.Second

// runScript plays a fixed scenario: start a session, place the first two
// catalog objects, lose the session to the platform, then exit.
func runScript(ctx context.Context, a *app) error {
	first, ok := a.catalog.At(0)
	if !ok {
		return fmt.Errorf("catalog is empty")
	}
	second, ok := a.catalog.At(1)
	if !ok {
		second = first
	}

	a.log.Info("scenario: start session")
	if err := a.rt.StartSession(ctx); err != nil {
		return err
	}
	if err := a.await(ctx, "session active", func(s runtime.Snapshot) bool { return s.State == session.Active }); err != nil {
		return err
	}

	for _, id := range []catalog.ID{first, second} {
		if err := a.place(ctx, id); err != nil {
			return err
		}
	}

	a.log.Info("scenario: platform ends session")
	a.background()
	if err := a.await(ctx, "session inactive", func(s runtime.Snapshot) bool { return s.State == session.Inactive }); err != nil {
		return err
	}

	a.log.Info("scenario: exit")
	if err := a.rt.Exit(ctx); err != nil {
		return err
	}
	return a.await(ctx, "objects released", func(s runtime.Snapshot) bool { return len(s.Objects) == 0 })
}

func (a *app) place(ctx context.Context, id catalog.ID) error {
	a.log.Info("scenario: place", zap.String("id", string(id)))
	if err := a.rt.PlaceByID(ctx, id); err != nil {
		return err
	}
	err := a.await(ctx, "object ready", func(s runtime.Snapshot) bool {
		for _, o := range s.Objects {
			if o.ID == id {
				return o.State == registry.Ready
			}
		}
		return false
	})
	if err != nil {
		return err
	}

	a.setHits(true)
	if err := a.await(ctx, "cursor visible", func(s runtime.Snapshot) bool { return s.Cursor }); err != nil {
		return err
	}
	a.tap()
	return a.await(ctx, "object placed", func(s runtime.Snapshot) bool {
		for _, o := range s.Objects {
			if o.ID == id {
				return o.Placed
			}
		}
		return false
	})
}

// await polls runtime snapshots until cond holds.
func (a *app) await(ctx context.Context, what string, cond func(runtime.Snapshot) bool) error {
	ctx, cancel := context.WithTimeout(ctx, scriptStepTimeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		snap, err := a.rt.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", what, err)
		}
		if cond(snap) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", what, ctx.Err())
		case <-ticker.C:
		}
	}
}
