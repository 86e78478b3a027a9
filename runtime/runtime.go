package runtime

import (
	"context"
	stderrors "errors"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/errors"
	"github.com/wippyai/ar-placement/event"
	"github.com/wippyai/ar-placement/loop"
	"github.com/wippyai/ar-placement/placement"
	"github.com/wippyai/ar-placement/registry"
	"github.com/wippyai/ar-placement/session"
	"github.com/wippyai/ar-placement/xr"
)

type options struct {
	loop         *loop.Loop
	reticle      xr.Visual
	observers    []Observer
	optional     []xr.Feature
	maxPlaced    int
	releaseOnEnd bool
}

// Option configures a Runtime.
type Option func(*options)

// WithLoop runs the runtime on l instead of a private loop.
func WithLoop(l *loop.Loop) Option {
	return func(o *options) { o.loop = l }
}

// WithMaxPlaced caps simultaneously placed objects; 0 means unlimited.
func WithMaxPlaced(n int) Option {
	return func(o *options) { o.maxPlaced = n }
}

// WithReleaseOnEnd frees every loaded object when a session ends.
func WithReleaseOnEnd(v bool) Option {
	return func(o *options) { o.releaseOnEnd = v }
}

// WithOptionalFeatures requests features sessions may run without.
func WithOptionalFeatures(fs ...xr.Feature) Option {
	return func(o *options) { o.optional = append(o.optional, fs...) }
}

// WithReticle shows v at the cursor while a surface is hit.
func WithReticle(v xr.Visual) Option {
	return func(o *options) { o.reticle = v }
}

// WithObserver registers o before the runtime starts.
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observers = append(opts.observers, o) }
}

type Runtime struct {
	loop      *loop.Loop
	catalog   *catalog.Catalog
	state     *session.RuntimeState
	bus       *event.Bus
	session   *session.Controller
	registry  *registry.Registry
	placement *placement.Controller
	observers []Observer
	closed    atomic.Bool
}

// New wires the session, registry and placement controllers around p.
func New(p xr.Platform, cat *catalog.Catalog, opts ...Option) *Runtime {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.loop == nil {
		o.loop = loop.New()
	}

	r := &Runtime{
		loop:      o.loop,
		catalog:   cat,
		state:     &session.RuntimeState{},
		bus:       event.NewBus(),
		observers: o.observers,
	}

	var placementOpts []placement.Option
	if o.maxPlaced > 0 {
		placementOpts = append(placementOpts, placement.WithMaxPlaced(o.maxPlaced))
	}
	if o.reticle != nil {
		placementOpts = append(placementOpts, placement.WithReticle(o.reticle))
	}

	r.session = session.NewController(r.loop, p, r.state, r.bus, session.WithOptionalFeatures(o.optional...))
	r.registry = registry.New(r.loop, p, cat)
	r.placement = placement.New(r.state, r.registry, r.bus, placementOpts...)
	r.session.OnFrame(r.placement.Update)

	r.bus.Subscribe(event.SessionStateChanged, func(e event.Event) {
		st, ok := session.ParseState(e.State)
		if !ok {
			return
		}
		r.notify(func(o Observer) { o.OnSessionStateChanged(st) })
	})
	r.bus.Subscribe(event.Error, func(e event.Event) {
		r.notify(func(o Observer) { o.OnError(e.Err) })
	})
	if o.releaseOnEnd {
		r.bus.Subscribe(event.SessionEnded, func(event.Event) {
			r.registry.ReleaseAll()
		})
	}

	r.registry.Subscribe(registry.ObserverFunc(r.registryEvent))
	r.placement.OnPlaced(func(b *registry.Bundle) {
		pose := b.Pose()
		r.notify(func(o Observer) { o.OnPlaced(b.ID(), pose) })
	})

	return r
}

// Loop returns the loop the runtime runs on.
func (r *Runtime) Loop() *loop.Loop {
	return r.loop
}

// Catalog returns the object table.
func (r *Runtime) Catalog() *catalog.Catalog {
	return r.catalog
}

// Run processes posted work until ctx is done or the runtime is closed.
func (r *Runtime) Run(ctx context.Context) error {
	err := r.loop.Run(ctx)
	if stderrors.Is(err, loop.ErrClosed) {
		return nil
	}
	return err
}

// Subscribe registers o for notifications.
func (r *Runtime) Subscribe(o Observer) error {
	return r.post(func() { r.observers = append(r.observers, o) })
}

// StartSession requests a new AR session. AlreadyActive and negotiation
// failures are delivered through OnError.
func (r *Runtime) StartSession(ctx context.Context) error {
	return r.post(func() {
		if err := r.session.Request(ctx); err != nil {
			r.reportError(err)
		}
	})
}

// EndSession ends the Active session. It does nothing otherwise.
func (r *Runtime) EndSession(ctx context.Context) error {
	return r.post(func() {
		if err := r.session.End(ctx); err != nil && !stderrors.Is(err, errors.ErrNotActive) {
			r.reportError(err)
		}
	})
}

// PlaceByID makes id the placement target and starts loading its visual and
// sound. Unknown ids fail immediately.
func (r *Runtime) PlaceByID(ctx context.Context, id catalog.ID) error {
	policy, err := r.catalog.Lookup(id)
	if err != nil {
		return err
	}
	return r.post(func() {
		prev := r.placement.Active()
		r.placement.SetActive(id)
		if prev != id {
			r.notify(func(o Observer) { o.OnActiveChanged(id, policy) })
		}

		if _, err := r.registry.Load(ctx, id); err != nil {
			r.reportError(err)
			return
		}
		if err := r.registry.LoadSound(ctx, id); err != nil {
			r.reportError(err)
		}
	})
}

// Select forwards a select gesture from the UI.
func (r *Runtime) Select() error {
	return r.post(func() { r.placement.OnSelect() })
}

// Release frees one object. Unknown ids are ignored.
func (r *Runtime) Release(id catalog.ID) error {
	return r.post(func() { r.registry.Release(id) })
}

// Exit ends the session, if any, and frees every loaded object.
func (r *Runtime) Exit(ctx context.Context) error {
	return r.post(func() {
		if r.state.State == session.Active {
			if err := r.session.End(ctx); err != nil {
				r.reportError(err)
			}
		}
		r.registry.ReleaseAll()
		r.placement.SetActive("")
	})
}

// Close ends any session, frees every object and stops the loop. It waits
// for the loop to run the cleanup, so Run must be active or ctx must expire.
func (r *Runtime) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	_, err := loop.Call(ctx, r.loop, func() struct{} {
		r.session.Close(ctx)
		if err := r.registry.Close(); err != nil {
			Logger().Warn("registry close", zap.Error(err))
		}
		return struct{}{}
	})
	r.loop.Close()
	if err != nil && !stderrors.Is(err, loop.ErrClosed) {
		return err
	}
	return nil
}

func (r *Runtime) post(fn func()) error {
	if r.closed.Load() || !r.loop.Post(fn) {
		return errors.Closed(errors.PhaseSession, "runtime")
	}
	return nil
}

func (r *Runtime) registryEvent(e registry.Event) {
	switch e.Type {
	case registry.EventProgress, registry.EventReady:
		r.notify(func(o Observer) { o.OnLoadProgress(e.ID, e.Progress) })
	case registry.EventFailed, registry.EventSoundFailed:
		r.notify(func(o Observer) { o.OnAssetError(e.ID, e.Err) })
	}
}

func (r *Runtime) reportError(err error) {
	Logger().Warn("operation failed", zap.Error(err))
	r.notify(func(o Observer) { o.OnError(err) })
}

func (r *Runtime) notify(fn func(Observer)) {
	for _, o := range r.observers {
		fn(o)
	}
}

// Snapshot is a read-only view of runtime state.
type Snapshot struct {
	Active     catalog.ID
	Playing    catalog.ID
	Placed     []catalog.ID
	Objects    []ObjectInfo
	SessionID  uuid.UUID
	Generation uint64
	State      session.State
	Cursor     bool
}

// ObjectInfo summarizes one loaded object.
type ObjectInfo struct {
	ID         catalog.ID
	Progress   float64
	State      registry.LoadState
	SoundState registry.LoadState
	Placed     bool
}

// Snapshot captures the current state on the loop.
func (r *Runtime) Snapshot(ctx context.Context) (Snapshot, error) {
	return loop.Call(ctx, r.loop, r.snapshot)
}

func (r *Runtime) snapshot() Snapshot {
	s := Snapshot{
		Active:     r.placement.Active(),
		Playing:    r.placement.Playing(),
		Placed:     r.placement.Placed(),
		SessionID:  r.state.ID,
		Generation: r.state.Generation,
		State:      r.state.State,
		Cursor:     r.placement.Cursor().Visible(),
	}
	r.registry.Each(func(b *registry.Bundle) {
		s.Objects = append(s.Objects, ObjectInfo{
			ID:         b.ID(),
			Progress:   b.Progress(),
			State:      b.State(),
			SoundState: b.SoundState(),
			Placed:     b.Placed(),
		})
	})
	return s
}
