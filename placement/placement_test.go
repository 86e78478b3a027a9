package placement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/event"
	"github.com/wippyai/ar-placement/loop"
	"github.com/wippyai/ar-placement/registry"
	"github.com/wippyai/ar-placement/session"
	"github.com/wippyai/ar-placement/sim"
	"github.com/wippyai/ar-placement/xr"
)

type harness struct {
	t        *testing.T
	loop     *loop.Loop
	platform *sim.Platform
	state    *session.RuntimeState
	bus      *event.Bus
	sess     *session.Controller
	reg      *registry.Registry
	pc       *Controller
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	cat, err := catalog.New("",
		catalog.Policy{ID: "chair", Model: "chair.glb", Sound: "chair.mp3", Animation: catalog.AnimationOnPlace},
		catalog.Policy{ID: "radio", Model: "radio.glb", Sound: "radio.mp3", SoundLoop: true},
		catalog.Policy{ID: "fan", Model: "fan.glb", Animation: catalog.AnimationLoop},
	)
	require.NoError(t, err)

	p := sim.NewPlatform()
	p.AddModel("chair.glb", "unfold")
	p.AddModel("radio.glb")
	p.AddModel("fan.glb", "spin")
	p.AddSound("chair.mp3")
	p.AddSound("radio.mp3")

	h := &harness{
		t:        t,
		loop:     loop.New(),
		platform: p,
		state:    &session.RuntimeState{},
		bus:      event.NewBus(),
	}
	h.sess = session.NewController(h.loop, p, h.state, h.bus)
	h.reg = registry.New(h.loop, p, cat)
	h.pc = New(h.state, h.reg, h.bus, opts...)
	h.sess.OnFrame(h.pc.Update)
	t.Cleanup(h.loop.Close)
	return h
}

func (h *harness) runUntil(cond func() bool) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(h.t, h.loop.RunUntil(ctx, cond))
}

// ready starts a session whose hit-test source is available.
func (h *harness) ready() *sim.Session {
	h.t.Helper()
	require.NoError(h.t, h.sess.Request(context.Background()))
	h.runUntil(func() bool { return h.state.State == session.Active })
	s := h.platform.Session()
	s.Step(16 * time.Millisecond)
	h.runUntil(func() bool { return h.state.HitTest != nil && h.state.Space != nil })
	return s
}

func (h *harness) frame(s *sim.Session) {
	h.t.Helper()
	require.True(h.t, s.Step(16*time.Millisecond))
	h.loop.Drain()
}

func (h *harness) tap(s *sim.Session) {
	s.Tap()
	h.loop.Drain()
}

func (h *harness) load(id catalog.ID) *registry.Bundle {
	h.t.Helper()
	b, err := h.reg.Load(context.Background(), id)
	require.NoError(h.t, err)
	require.NoError(h.t, h.reg.LoadSound(context.Background(), id))
	h.runUntil(func() bool {
		if b.State() != registry.Ready {
			return false
		}
		return !b.Policy().HasSound() || b.SoundState() == registry.Ready
	})
	return b
}

func TestCursor(t *testing.T) {
	var c Cursor

	_, ok := c.Pose()
	assert.False(t, ok)

	first, second := xr.Translation(1, 0, -1), xr.Translation(2, 0, -1)
	assert.True(t, c.Update([]xr.Pose{first, second}))
	pose, ok := c.Pose()
	require.True(t, ok)
	assert.Equal(t, first, pose, "only the first result is used")

	assert.False(t, c.Update(nil))
	assert.False(t, c.Visible())
	_, ok = c.Pose()
	assert.False(t, ok, "stale pose is not readable")

	c.Update([]xr.Pose{second})
	c.Hide()
	assert.False(t, c.Visible())
}

func TestSelect_EmptyFrames(t *testing.T) {
	h := newHarness(t)
	h.load("chair")
	h.pc.SetActive("chair")
	s := h.ready()

	for i := 0; i < 5; i++ {
		h.frame(s)
		assert.False(t, h.pc.Cursor().Visible())
	}
	h.tap(s)

	assert.Empty(t, h.pc.Placed())
	assert.Equal(t, 0, s.Graph().Len())
}

func TestSelect_BeforeReady(t *testing.T) {
	h := newHarness(t)
	release := h.platform.Hold("chair.glb")
	b, err := h.reg.Load(context.Background(), "chair")
	require.NoError(t, err)
	h.pc.SetActive("chair")

	s := h.ready()
	s.SetHits(xr.Translation(0, 0, -1))
	h.frame(s)
	require.True(t, h.pc.Cursor().Visible())

	h.tap(s)
	assert.False(t, b.Placed())
	assert.Equal(t, 0, s.Graph().Len())

	release()
	h.runUntil(func() bool { return b.State() == registry.Ready })
	h.frame(s)
	h.tap(s)
	assert.True(t, b.Placed())
	assert.Equal(t, 1, s.Graph().Len())
}

func TestSelect_Places(t *testing.T) {
	h := newHarness(t)
	b := h.load("chair")
	h.pc.SetActive("chair")
	var placed []catalog.ID
	h.pc.OnPlaced(func(b *registry.Bundle) { placed = append(placed, b.ID()) })

	s := h.ready()
	at := xr.Translation(0.5, 0, -1.5)
	s.SetHits(at)
	h.frame(s)
	h.tap(s)

	v := h.platform.Visuals("chair.glb")[0]
	assert.True(t, b.Placed())
	assert.True(t, v.Visible())
	assert.Equal(t, at, v.Pose())
	assert.True(t, s.Graph().Contains(v))
	assert.True(t, v.Clips[0].Playing())
	assert.Equal(t, []string{"chair.mp3"}, h.platform.PlayingSounds())
	assert.Equal(t, []catalog.ID{"chair"}, placed)
}

func TestSelect_RepeatedMovesObject(t *testing.T) {
	h := newHarness(t)
	h.load("chair")
	h.pc.SetActive("chair")
	s := h.ready()
	v := h.platform.Visuals("chair.glb")[0]

	s.SetHits(xr.Translation(1, 0, -1))
	h.frame(s)
	h.tap(s)

	second := xr.Translation(-1, 0, -2)
	s.SetHits(second)
	h.frame(s)
	h.tap(s)

	assert.Equal(t, second, v.Pose())
	assert.Equal(t, 1, s.Graph().Len())
	assert.Equal(t, 1, s.Graph().VisibleCount())
	assert.Equal(t, []catalog.ID{"chair"}, h.pc.Placed())
	assert.Equal(t, 2, v.Clips[0].Plays(), "on-place clips restart")
	assert.Len(t, h.platform.PlayingSounds(), 1)
}

func TestSelect_Inactive(t *testing.T) {
	h := newHarness(t)
	h.load("chair")
	h.pc.SetActive("chair")
	h.pc.Cursor().Update([]xr.Pose{xr.Identity()})

	assert.False(t, h.pc.OnSelect())
	assert.Empty(t, h.pc.Placed())
}

func TestSelect_NoActiveObject(t *testing.T) {
	h := newHarness(t)
	h.load("chair")
	s := h.ready()
	s.SetHits(xr.Identity())
	h.frame(s)

	assert.False(t, h.pc.OnSelect())
}

func TestAudio_SwitchStopsPrevious(t *testing.T) {
	h := newHarness(t)
	h.load("chair")
	h.load("radio")
	s := h.ready()
	s.SetHits(xr.Identity())
	h.frame(s)

	h.pc.SetActive("chair")
	h.tap(s)
	assert.Equal(t, []string{"chair.mp3"}, h.platform.PlayingSounds())

	h.pc.SetActive("radio")
	assert.Empty(t, h.platform.PlayingSounds(), "switching target stops the other sound")

	s.SetHits(xr.Translation(1, 0, -1))
	h.frame(s)
	h.tap(s)
	assert.Equal(t, []string{"radio.mp3"}, h.platform.PlayingSounds())
	assert.Equal(t, catalog.ID("radio"), h.pc.Playing())
	assert.True(t, h.platform.Sounds("radio.mp3")[0].Looping())
	assert.Equal(t, 1, h.platform.Sounds("chair.mp3")[0].Plays())
}

func TestAudio_LateSoundStarts(t *testing.T) {
	h := newHarness(t)
	release := h.platform.Hold("chair.mp3")
	b, err := h.reg.Load(context.Background(), "chair")
	require.NoError(t, err)
	require.NoError(t, h.reg.LoadSound(context.Background(), "chair"))
	h.runUntil(func() bool { return b.State() == registry.Ready })
	h.pc.SetActive("chair")

	s := h.ready()
	s.SetHits(xr.Identity())
	h.frame(s)
	h.tap(s)
	require.True(t, b.Placed())
	assert.Empty(t, h.platform.PlayingSounds())

	release()
	h.runUntil(func() bool { return b.SoundState() == registry.Ready })
	assert.Equal(t, []string{"chair.mp3"}, h.platform.PlayingSounds())
}

func TestSessionEnd_ClearsPlacement(t *testing.T) {
	h := newHarness(t)
	b := h.load("chair")
	h.pc.SetActive("chair")
	s := h.ready()
	s.SetHits(xr.Identity())
	h.frame(s)
	h.tap(s)
	v := h.platform.Visuals("chair.glb")[0]

	s.Background()
	h.runUntil(func() bool { return h.state.State == session.Inactive })

	assert.False(t, b.Placed())
	assert.False(t, v.Visible())
	assert.Equal(t, 0, s.Graph().Len())
	assert.Empty(t, h.platform.PlayingSounds())
	assert.Empty(t, h.pc.Placed())
	assert.False(t, h.pc.Cursor().Visible())
	assert.False(t, v.Released(), "asset data survives the session")
	assert.Equal(t, registry.Ready, b.State())
	assert.Equal(t, catalog.ID("chair"), h.pc.Active())
}

func TestLateLoad_AfterSessionEnd(t *testing.T) {
	h := newHarness(t)
	release := h.platform.Hold("fan.glb")
	s := h.ready()

	b, err := h.reg.Load(context.Background(), "fan")
	require.NoError(t, err)
	h.pc.SetActive("fan")

	require.NoError(t, h.sess.End(context.Background()))
	h.runUntil(func() bool { return h.state.State == session.Inactive })

	release()
	h.runUntil(func() bool { return b.State() == registry.Ready })

	assert.False(t, b.Placed())
	assert.False(t, b.Attached())
	assert.Equal(t, 0, s.Graph().Len())
	assert.False(t, h.platform.Visuals("fan.glb")[0].Visible())
	assert.False(t, h.pc.OnSelect())
}

func TestMaxPlaced(t *testing.T) {
	h := newHarness(t, WithMaxPlaced(1))
	chair := h.load("chair")
	radio := h.load("radio")
	s := h.ready()
	s.SetHits(xr.Identity())
	h.frame(s)

	h.pc.SetActive("chair")
	h.tap(s)
	h.pc.SetActive("radio")
	h.tap(s)

	assert.False(t, chair.Placed())
	assert.True(t, radio.Placed())
	assert.Equal(t, []catalog.ID{"radio"}, h.pc.Placed())
	assert.Equal(t, 1, s.Graph().Len())
}

func TestUnlimitedPlacement(t *testing.T) {
	h := newHarness(t)
	h.load("chair")
	h.load("radio")
	s := h.ready()
	s.SetHits(xr.Identity())
	h.frame(s)

	h.pc.SetActive("chair")
	h.tap(s)
	h.pc.SetActive("radio")
	h.tap(s)

	assert.Equal(t, []catalog.ID{"chair", "radio"}, h.pc.Placed())
	assert.Equal(t, 2, s.Graph().VisibleCount())
}

func TestRelease_UntracksPlaced(t *testing.T) {
	h := newHarness(t)
	h.load("chair")
	h.pc.SetActive("chair")
	s := h.ready()
	s.SetHits(xr.Identity())
	h.frame(s)
	h.tap(s)

	require.True(t, h.reg.Release("chair"))
	assert.Empty(t, h.pc.Placed())
	assert.Equal(t, catalog.ID(""), h.pc.Playing())
	assert.Equal(t, 0, s.Graph().Len())
}

func TestReticle(t *testing.T) {
	reticle := &sim.Visual{Path: "reticle"}
	h := newHarness(t, WithReticle(reticle))
	s := h.ready()
	assert.True(t, s.Graph().Contains(reticle))

	h.frame(s)
	assert.False(t, reticle.Visible())

	at := xr.Translation(0, -1, -1)
	s.SetHits(at)
	h.frame(s)
	assert.True(t, reticle.Visible())
	assert.Equal(t, at, reticle.Pose())

	s.Background()
	h.runUntil(func() bool { return h.state.State == session.Inactive })
	assert.False(t, reticle.Visible())
	assert.False(t, s.Graph().Contains(reticle))
}

func TestUpdate_AdvancesClips(t *testing.T) {
	h := newHarness(t)
	h.load("fan")
	s := h.ready()
	clip := h.platform.Visuals("fan.glb")[0].Clips[0]
	before := clip.Advanced()

	h.frame(s)
	h.frame(s)

	assert.Equal(t, before+32*time.Millisecond, clip.Advanced())
}
