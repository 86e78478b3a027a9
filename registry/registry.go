package registry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/errors"
	"github.com/wippyai/ar-placement/loop"
	"github.com/wippyai/ar-placement/resource"
	"github.com/wippyai/ar-placement/xr"
)

var tracer = otel.Tracer("github.com/wippyai/ar-placement/registry")

// EventType enumerates registry notifications.
type EventType uint8

const (
	EventProgress EventType = iota
	EventReady
	EventFailed
	EventSoundReady
	EventSoundFailed
	EventReleased
)

// Event is a registry notification. Bundle is nil for EventReleased.
type Event struct {
	Bundle   *Bundle
	Err      error
	ID       catalog.ID
	Progress float64
	Type     EventType
}

// Observer receives registry notifications on the loop.
type Observer interface {
	OnRegistryEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnRegistryEvent(e Event) { f(e) }

// Registry owns every Bundle and the platform handles behind them.
type Registry struct {
	loop      *loop.Loop
	loader    xr.AssetLoader
	catalog   *catalog.Catalog
	table     *resource.Table
	entries   map[catalog.ID]*Bundle
	observers []Observer
	order     []catalog.ID
	seq       uint64
}

// New creates an empty registry loading through loader.
func New(l *loop.Loop, loader xr.AssetLoader, cat *catalog.Catalog) *Registry {
	r := &Registry{
		loop:    l,
		loader:  loader,
		catalog: cat,
		table:   resource.NewTable(),
		entries: make(map[catalog.ID]*Bundle),
	}
	r.table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventCreated {
			Logger().Debug("handle acquired", zap.Stringer("kind", e.Kind), zap.String("id", e.Owner), zap.Uint32("handle", uint32(e.Handle)))
		} else {
			Logger().Debug("handle released", zap.Stringer("kind", e.Kind), zap.String("id", e.Owner), zap.Uint32("handle", uint32(e.Handle)))
		}
	}))
	return r
}

// Table exposes the handle table for accounting.
func (r *Registry) Table() *resource.Table {
	return r.table
}

// Subscribe adds an observer.
func (r *Registry) Subscribe(o Observer) {
	r.observers = append(r.observers, o)
}

// Get returns the bundle for id.
func (r *Registry) Get(id catalog.ID) (*Bundle, bool) {
	b, ok := r.entries[id]
	return b, ok
}

// Each calls fn for every bundle in creation order.
func (r *Registry) Each(fn func(*Bundle)) {
	for _, id := range r.order {
		fn(r.entries[id])
	}
}

// Len returns the number of bundles.
func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) nextSeq() uint64 {
	r.seq++
	return r.seq
}

func (r *Registry) entry(id catalog.ID, policy catalog.Policy) *Bundle {
	b, ok := r.entries[id]
	if !ok {
		b = &Bundle{id: id, policy: policy}
		r.entries[id] = b
		r.order = append(r.order, id)
	}
	return b
}

// Load starts loading the visual for id, or returns the bundle already
// Loading or Ready. Unknown ids fail with errors.ErrUnknownID.
func (r *Registry) Load(ctx context.Context, id catalog.ID) (*Bundle, error) {
	policy, err := r.catalog.Lookup(id)
	if err != nil {
		return nil, err
	}

	b := r.entry(id, policy)
	if b.state == Loading || b.state == Ready {
		return b, nil
	}

	b.policy = policy
	b.state = Loading
	b.err = nil
	b.progress = 0
	b.seq = r.nextSeq()
	seq := b.seq
	path := r.catalog.Resolve(policy.Model)

	Logger().Debug("loading visual", zap.String("id", string(id)), zap.String("path", path))

	loop.Go(r.loop, ctx, func(ctx context.Context) (*xr.VisualAsset, error) {
		ctx, span := tracer.Start(ctx, "registry.load_visual", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(attribute.String("object.id", string(id)), attribute.String("asset.path", path))

		asset, err := r.loader.LoadVisual(ctx, path, func(loaded, total int64) {
			r.loop.Post(func() { r.progressed(id, seq, loaded, total) })
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load failed")
		}
		return asset, err
	}, func(asset *xr.VisualAsset, err error) {
		r.loaded(id, seq, asset, err)
	}, releaseAsset)

	return b, nil
}

func (r *Registry) progressed(id catalog.ID, seq uint64, loaded, total int64) {
	b, ok := r.entries[id]
	if !ok || b.seq != seq || b.state != Loading {
		return
	}
	if total <= 0 {
		return
	}
	f := float64(loaded) / float64(total)
	if f > 1 {
		f = 1
	}
	if f < b.progress {
		return
	}
	b.progress = f
	r.notify(Event{Type: EventProgress, ID: id, Bundle: b, Progress: f})
}

func (r *Registry) loaded(id catalog.ID, seq uint64, asset *xr.VisualAsset, err error) {
	b, ok := r.entries[id]
	if !ok || b.seq != seq || b.state != Loading {
		Logger().Debug("discarding stale visual load", zap.String("id", string(id)))
		releaseAsset(asset)
		return
	}

	if err == nil && (asset == nil || asset.Visual == nil) {
		err = errors.InvalidInput(errors.PhaseLoad, "decoder returned no visual")
	}
	if err != nil {
		b.state = Failed
		b.err = errors.AssetLoadFailed(string(id), err)
		Logger().Warn("visual load failed", zap.String("id", string(id)), zap.Error(err))
		r.notify(Event{Type: EventFailed, ID: id, Bundle: b, Err: b.err})
		return
	}

	b.visual = asset.Visual
	b.visualHandle = r.table.Insert(resource.KindVisual, string(id), asset.Visual)
	b.visual.SetScale(b.policy.Scale)
	b.visual.SetVisible(false)
	b.clips = asset.Clips
	b.startClips()
	b.state = Ready
	b.progress = 1

	Logger().Info("visual ready", zap.String("id", string(id)), zap.Int("clips", len(b.clips)))
	r.notify(Event{Type: EventReady, ID: id, Bundle: b, Progress: 1})
}

// LoadSound starts loading the sound for id. Objects without a sound and
// sounds already Loading or Ready are left alone.
func (r *Registry) LoadSound(ctx context.Context, id catalog.ID) error {
	policy, err := r.catalog.Lookup(id)
	if err != nil {
		return err
	}
	if !policy.HasSound() {
		return nil
	}

	b := r.entry(id, policy)
	if b.soundState == Loading || b.soundState == Ready {
		return nil
	}
	b.soundState = Loading
	b.soundErr = nil
	b.soundSeq = r.nextSeq()
	seq := b.soundSeq
	path := r.catalog.Resolve(policy.Sound)

	loop.Go(r.loop, ctx, func(ctx context.Context) (xr.Sound, error) {
		ctx, span := tracer.Start(ctx, "registry.load_sound", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(attribute.String("object.id", string(id)), attribute.String("asset.path", path))

		s, err := r.loader.LoadAudio(ctx, path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load failed")
		}
		return s, err
	}, func(s xr.Sound, err error) {
		r.soundLoaded(id, seq, s, err)
	}, releaseSound)

	return nil
}

func (r *Registry) soundLoaded(id catalog.ID, seq uint64, s xr.Sound, err error) {
	b, ok := r.entries[id]
	if !ok || b.soundSeq != seq || b.soundState != Loading {
		Logger().Debug("discarding stale sound load", zap.String("id", string(id)))
		releaseSound(s)
		return
	}
	if err == nil && s == nil {
		err = errors.InvalidInput(errors.PhaseSound, "decoder returned no sound")
	}
	if err != nil {
		b.soundState = Failed
		b.soundErr = errors.SoundLoadFailed(string(id), err)
		Logger().Warn("sound load failed", zap.String("id", string(id)), zap.Error(err))
		r.notify(Event{Type: EventSoundFailed, ID: id, Bundle: b, Err: b.soundErr})
		return
	}

	b.sound = s
	b.soundHandle = r.table.Insert(resource.KindSound, string(id), s)
	b.soundState = Ready
	r.notify(Event{Type: EventSoundReady, ID: id, Bundle: b})
}

// Release unplaces the bundle for id and frees its handles. It reports
// whether the id was known.
func (r *Registry) Release(id catalog.ID) bool {
	b, ok := r.entries[id]
	if !ok {
		return false
	}

	b.Unplace()
	r.table.RemoveOwner(string(id))
	b.visual, b.sound, b.clips = nil, nil, nil
	b.visualHandle, b.soundHandle = 0, 0
	b.state, b.soundState = NotLoaded, NotLoaded
	b.seq, b.soundSeq = 0, 0

	delete(r.entries, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	Logger().Debug("bundle released", zap.String("id", string(id)))
	r.notify(Event{Type: EventReleased, ID: id})
	return true
}

// ReleaseAll releases every bundle.
func (r *Registry) ReleaseAll() {
	ids := append([]catalog.ID(nil), r.order...)
	for _, id := range ids {
		r.Release(id)
	}
}

// Close releases every bundle and rejects further handles.
func (r *Registry) Close() error {
	r.ReleaseAll()
	return r.table.Close()
}

func (r *Registry) notify(e Event) {
	for _, o := range r.observers {
		o.OnRegistryEvent(e)
	}
}

func releaseAsset(a *xr.VisualAsset) {
	if a != nil && a.Visual != nil {
		a.Visual.Release()
	}
}

func releaseSound(s xr.Sound) {
	if s != nil {
		s.Release()
	}
}
