package runtime

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/errors"
	"github.com/wippyai/ar-placement/registry"
	"github.com/wippyai/ar-placement/session"
	"github.com/wippyai/ar-placement/sim"
	"github.com/wippyai/ar-placement/xr"
)

const waitFor = 2 * time.Second

type recorder struct {
	BaseObserver
	mu        sync.Mutex
	states    []session.State
	progress  map[catalog.ID][]float64
	assetErrs map[catalog.ID]error
	active    []catalog.Policy
	placed    map[catalog.ID]xr.Pose
	errs      []error
}

func newRecorder() *recorder {
	return &recorder{
		progress:  make(map[catalog.ID][]float64),
		assetErrs: make(map[catalog.ID]error),
		placed:    make(map[catalog.ID]xr.Pose),
	}
}

func (r *recorder) OnSessionStateChanged(s session.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) OnLoadProgress(id catalog.ID, f float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[id] = append(r.progress[id], f)
}

func (r *recorder) OnAssetError(id catalog.ID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assetErrs[id] = err
}

func (r *recorder) OnActiveChanged(_ catalog.ID, p catalog.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = append(r.active, p)
}

func (r *recorder) OnPlaced(id catalog.ID, pose xr.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed[id] = pose
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) snapshot() *recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := &recorder{
		states:    slices.Clone(r.states),
		active:    slices.Clone(r.active),
		errs:      slices.Clone(r.errs),
		progress:  make(map[catalog.ID][]float64),
		assetErrs: make(map[catalog.ID]error),
		placed:    make(map[catalog.ID]xr.Pose),
	}
	for k, v := range r.progress {
		out.progress[k] = slices.Clone(v)
	}
	for k, v := range r.assetErrs {
		out.assetErrs[k] = v
	}
	for k, v := range r.placed {
		out.placed[k] = v
	}
	return out
}

type fixture struct {
	t        *testing.T
	rt       *Runtime
	platform *sim.Platform
	rec      *recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cat, err := catalog.New("models",
		catalog.Policy{ID: "chair1", Model: "chair1.glb", Sound: "chair1.mp3", Description: "An oak chair.", Animation: catalog.AnimationOnPlace},
		catalog.Policy{ID: "chair2", Model: "chair2.glb", Description: "A folding chair."},
	)
	require.NoError(t, err)

	p := sim.NewPlatform()
	p.AddModel("models/chair1.glb", "unfold")
	p.AddModel("models/chair2.glb")
	p.AddSound("models/chair1.mp3")

	rec := newRecorder()
	rt := New(p, cat, append([]Option{WithObserver(rec)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rt.Run(ctx)
	}()
	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), waitFor)
		defer closeCancel()
		_ = rt.Close(closeCtx)
		cancel()
		<-done
	})

	return &fixture{t: t, rt: rt, platform: p, rec: rec}
}

func (f *fixture) snap() Snapshot {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	s, err := f.rt.Snapshot(ctx)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) eventually(cond func(Snapshot) bool) {
	f.t.Helper()
	require.Eventually(f.t, func() bool { return cond(f.snap()) }, waitFor, time.Millisecond)
}

func (f *fixture) start() *sim.Session {
	f.t.Helper()
	require.NoError(f.t, f.rt.StartSession(context.Background()))
	f.eventually(func(s Snapshot) bool { return s.State == session.Active })
	return f.platform.Session()
}

// aim steps frames until the cursor sits on pose.
func (f *fixture) aim(s *sim.Session, pose xr.Pose) {
	f.t.Helper()
	s.SetHits(pose)
	f.eventually(func(snap Snapshot) bool {
		s.Step(16 * time.Millisecond)
		return snap.Cursor
	})
	s.Step(16 * time.Millisecond)
}

func (f *fixture) loaded(id catalog.ID) {
	f.t.Helper()
	f.eventually(func(s Snapshot) bool {
		for _, o := range s.Objects {
			if o.ID == id {
				return o.State == registry.Ready
			}
		}
		return false
	})
}

func TestPlaceFlow(t *testing.T) {
	f := newFixture(t)
	s := f.start()

	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair1"))
	f.loaded("chair1")
	at := xr.Translation(0.2, -1.4, -1.1)
	f.aim(s, at)

	require.NoError(t, f.rt.Select())
	f.eventually(func(s Snapshot) bool { return len(s.Placed) == 1 })

	snap := f.snap()
	assert.Equal(t, catalog.ID("chair1"), snap.Active)
	assert.Equal(t, []catalog.ID{"chair1"}, snap.Placed)
	assert.NotEqual(t, uuid.Nil, snap.SessionID)

	rec := f.rec.snapshot()
	assert.Equal(t, []session.State{session.Requesting, session.Active}, rec.states)
	require.Len(t, rec.active, 1)
	assert.Equal(t, "An oak chair.", rec.active[0].Description)
	assert.Equal(t, at, rec.placed["chair1"])
	progress := rec.progress["chair1"]
	require.NotEmpty(t, progress)
	assert.Equal(t, 1.0, progress[len(progress)-1])
	assert.Empty(t, rec.errs)

	v := f.platform.Visuals("models/chair1.glb")[0]
	assert.True(t, v.Visible())
	assert.True(t, s.Graph().Contains(v))
	f.eventually(func(s Snapshot) bool { return s.Playing == "chair1" })
}

func TestPlaceByID_UnknownID(t *testing.T) {
	f := newFixture(t)

	err := f.rt.PlaceByID(context.Background(), "chair9")
	assert.ErrorIs(t, err, errors.ErrUnknownID)

	snap := f.snap()
	assert.Empty(t, snap.Objects)
	assert.Equal(t, catalog.ID(""), snap.Active)
}

func TestPlaceByID_SameIDNotifiesOnce(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair2"))
	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair2"))
	f.loaded("chair2")

	assert.Len(t, f.rec.snapshot().active, 1)
	assert.Len(t, f.platform.Visuals("models/chair2.glb"), 1)
}

func TestStartSession_AlreadyActive(t *testing.T) {
	f := newFixture(t)
	f.start()

	require.NoError(t, f.rt.StartSession(context.Background()))
	require.Eventually(t, func() bool { return len(f.rec.snapshot().errs) == 1 }, waitFor, time.Millisecond)
	assert.ErrorIs(t, f.rec.snapshot().errs[0], errors.ErrAlreadyActive)
	assert.Equal(t, session.Active, f.snap().State)
}

func TestStartSession_Rejected(t *testing.T) {
	f := newFixture(t)
	f.platform.Unsupport(xr.FeatureHitTest)

	require.NoError(t, f.rt.StartSession(context.Background()))
	require.Eventually(t, func() bool { return len(f.rec.snapshot().errs) == 1 }, waitFor, time.Millisecond)

	assert.ErrorIs(t, f.rec.snapshot().errs[0], errors.ErrSessionNegotiationFailed)
	assert.Equal(t, session.Inactive, f.snap().State)
}

func TestAssetError(t *testing.T) {
	f := newFixture(t)
	f.platform.FailModel("models/chair2.glb", stderrors.New("truncated"))

	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair2"))
	require.Eventually(t, func() bool { return f.rec.snapshot().assetErrs["chair2"] != nil }, waitFor, time.Millisecond)

	assert.ErrorIs(t, f.rec.snapshot().assetErrs["chair2"], errors.ErrAssetLoadFailed)
	assert.Empty(t, f.rec.snapshot().errs, "asset errors are reported per object")
}

func TestEndSession_KeepsLoadedObjects(t *testing.T) {
	f := newFixture(t)
	s := f.start()
	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair2"))
	f.loaded("chair2")
	f.aim(s, xr.Identity())
	require.NoError(t, f.rt.Select())
	f.eventually(func(s Snapshot) bool { return len(s.Placed) == 1 })

	require.NoError(t, f.rt.EndSession(context.Background()))
	f.eventually(func(s Snapshot) bool { return s.State == session.Inactive })

	snap := f.snap()
	require.Len(t, snap.Objects, 1)
	assert.Equal(t, registry.Ready, snap.Objects[0].State)
	assert.False(t, snap.Objects[0].Placed)
	assert.Empty(t, snap.Placed)
	assert.False(t, snap.Cursor)
	assert.Equal(t, catalog.ID("chair2"), snap.Active)
	assert.Equal(t, 0, s.Graph().Len())
	assert.True(t, s.Ended())

	rec := f.rec.snapshot()
	assert.Equal(t, []session.State{session.Requesting, session.Active, session.Ending, session.Inactive}, rec.states)
}

func TestEndSession_ReleaseOnEnd(t *testing.T) {
	f := newFixture(t, WithReleaseOnEnd(true))
	s := f.start()
	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair1"))
	f.loaded("chair1")

	s.Background()
	f.eventually(func(s Snapshot) bool { return s.State == session.Inactive })

	assert.Empty(t, f.snap().Objects)
	visuals, sounds := f.platform.Live()
	assert.Equal(t, 0, visuals)
	assert.Equal(t, 0, sounds)
}

func TestEndSession_NotActive(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.rt.EndSession(context.Background()))
	assert.Equal(t, session.Inactive, f.snap().State)
	assert.Empty(t, f.rec.snapshot().errs)
}

func TestExit(t *testing.T) {
	f := newFixture(t)
	f.start()
	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair1"))
	f.loaded("chair1")

	require.NoError(t, f.rt.Exit(context.Background()))
	f.eventually(func(s Snapshot) bool { return s.State == session.Inactive && len(s.Objects) == 0 })

	assert.Equal(t, catalog.ID(""), f.snap().Active)
	visuals, _ := f.platform.Live()
	assert.Equal(t, 0, visuals)
}

func TestMaxPlaced(t *testing.T) {
	f := newFixture(t, WithMaxPlaced(1))
	s := f.start()
	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair1"))
	f.loaded("chair1")
	f.aim(s, xr.Identity())
	require.NoError(t, f.rt.Select())
	f.eventually(func(s Snapshot) bool { return len(s.Placed) == 1 })

	require.NoError(t, f.rt.PlaceByID(context.Background(), "chair2"))
	f.loaded("chair2")
	require.NoError(t, f.rt.Select())
	f.eventually(func(s Snapshot) bool { return slices.Equal(s.Placed, []catalog.ID{"chair2"}) })

	assert.Equal(t, 1, s.Graph().VisibleCount())
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	s := f.start()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, f.rt.Close(ctx))
	require.NoError(t, f.rt.Close(ctx))

	assert.True(t, s.Ended())
	err := f.rt.StartSession(context.Background())
	assert.ErrorIs(t, err, errors.New(errors.PhaseSession, errors.KindClosed).Build())
}

func TestSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	f := newFixture(t)
	f.start()

	require.Eventually(t, func() bool {
		return logs.FilterLoggerName("session").FilterMessage("session started").Len() == 1
	}, waitFor, time.Millisecond)
}
