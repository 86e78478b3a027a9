// Package placement turns hit-test results and select gestures into placed
// objects.
//
// The Controller keeps a Cursor updated from every frame and, on select,
// moves the active bundle to the cursor pose. It also arbitrates audio so
// that at most one bundle's sound plays at a time.
package placement

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/event"
	"github.com/wippyai/ar-placement/registry"
	"github.com/wippyai/ar-placement/session"
	"github.com/wippyai/ar-placement/xr"
)

// Option configures a Controller.
type Option func(*Controller)

// WithMaxPlaced caps how many objects stay placed at once. Placing beyond
// the cap unplaces the object placed longest ago. Zero means no cap.
func WithMaxPlaced(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxPlaced = n
		}
	}
}

// WithReticle mirrors the cursor on v. The reticle is attached to each
// session's scene and shown only while the cursor is visible.
func WithReticle(v xr.Visual) Option {
	return func(c *Controller) {
		c.reticle = v
	}
}

// Controller places the active bundle at the cursor.
// All methods must be called on the loop.
type Controller struct {
	state     *session.RuntimeState
	registry  *registry.Registry
	reticle   xr.Visual
	reticleIn xr.Scene
	onPlaced  []func(*registry.Bundle)
	placed    []catalog.ID
	playing   catalog.ID
	cursor    Cursor
	maxPlaced int
}

// New creates a controller and subscribes it to select and session events
// on bus and to sound completions on reg.
func New(st *session.RuntimeState, reg *registry.Registry, bus *event.Bus, opts ...Option) *Controller {
	c := &Controller{
		state:    st,
		registry: reg,
	}
	for _, opt := range opts {
		opt(c)
	}

	bus.Subscribe(event.Select, func(event.Event) { c.OnSelect() })
	bus.Subscribe(event.SessionStarted, func(event.Event) { c.sessionStarted() })
	bus.Subscribe(event.SessionEnded, func(event.Event) { c.sessionEnded() })
	reg.Subscribe(registry.ObserverFunc(c.registryEvent))

	return c
}

// Cursor returns the tracking cursor.
func (c *Controller) Cursor() *Cursor {
	return &c.cursor
}

// Active returns the id select will place.
func (c *Controller) Active() catalog.ID {
	return c.state.Active
}

// Placed returns the placed ids, oldest first.
func (c *Controller) Placed() []catalog.ID {
	return slices.Clone(c.placed)
}

// Playing returns the id whose sound is playing, if any.
func (c *Controller) Playing() catalog.ID {
	return c.playing
}

// OnPlaced registers fn to run after every successful placement.
func (c *Controller) OnPlaced(fn func(*registry.Bundle)) {
	c.onPlaced = append(c.onPlaced, fn)
}

// SetActive makes id the placement target. A different bundle's sound is
// stopped.
func (c *Controller) SetActive(id catalog.ID) {
	if c.playing != "" && c.playing != id {
		c.stopSound()
	}
	if c.state.Active != id {
		Logger().Debug("active object changed", zap.String("from", string(c.state.Active)), zap.String("to", string(id)))
	}
	c.state.Active = id
}

// Update runs once per frame: it refreshes the cursor and reticle and
// advances every loaded bundle's clips.
func (c *Controller) Update(fi session.FrameInfo) {
	visible := c.cursor.Update(fi.Hits)
	if c.reticle != nil {
		if visible {
			c.reticle.SetPose(c.cursor.pose)
		}
		c.reticle.SetVisible(visible)
	}

	if fi.Delta > 0 {
		c.registry.Each(func(b *registry.Bundle) {
			if b.State() == registry.Ready {
				b.Advance(fi.Delta)
			}
		})
	}
}

// OnSelect places the active bundle at the cursor. It reports whether
// anything was placed; an ignored select is not an error.
func (c *Controller) OnSelect() bool {
	pose, ok := c.cursor.Pose()
	if !ok {
		Logger().Debug("select ignored", zap.String("reason", "no surface"))
		return false
	}
	st := c.state
	if st.State != session.Active || st.Scene == nil {
		Logger().Debug("select ignored", zap.String("reason", "session not active"))
		return false
	}
	if st.Active == "" {
		Logger().Debug("select ignored", zap.String("reason", "no active object"))
		return false
	}
	b, ok := c.registry.Get(st.Active)
	if !ok || b.State() != registry.Ready {
		Logger().Debug("select ignored", zap.String("reason", "object not ready"), zap.String("id", string(st.Active)))
		return false
	}

	b.Place(st.Scene, pose)
	c.track(b.ID())
	c.startSound(b)

	Logger().Info("object placed", zap.String("id", string(b.ID())), zap.Stringer("pose", pose))
	for _, fn := range c.onPlaced {
		fn(b)
	}
	return true
}

// ClearActive hides the cursor and unplaces every placed bundle. Loaded
// data is kept.
func (c *Controller) ClearActive() {
	c.cursor.Hide()
	if c.reticle != nil {
		c.reticle.SetVisible(false)
	}
	c.stopSound()
	for _, id := range c.placed {
		if b, ok := c.registry.Get(id); ok {
			b.Unplace()
		}
	}
	c.placed = nil
}

func (c *Controller) track(id catalog.ID) {
	c.untrack(id)
	c.placed = append(c.placed, id)
	for c.maxPlaced > 0 && len(c.placed) > c.maxPlaced {
		oldest := c.placed[0]
		c.placed = c.placed[1:]
		if c.playing == oldest {
			c.stopSound()
		}
		if b, ok := c.registry.Get(oldest); ok {
			b.Unplace()
		}
		Logger().Debug("placement cap reached", zap.String("unplaced", string(oldest)), zap.Int("max", c.maxPlaced))
	}
}

func (c *Controller) untrack(id catalog.ID) {
	if i := slices.Index(c.placed, id); i >= 0 {
		c.placed = slices.Delete(c.placed, i, i+1)
	}
}

// startSound stops whatever plays, then starts b's sound if it is loaded.
func (c *Controller) startSound(b *registry.Bundle) {
	c.stopSound()
	if b.PlaySound() {
		c.playing = b.ID()
	}
}

func (c *Controller) stopSound() {
	if c.playing == "" {
		return
	}
	if b, ok := c.registry.Get(c.playing); ok {
		b.StopSound()
	}
	c.playing = ""
}

func (c *Controller) registryEvent(e registry.Event) {
	switch e.Type {
	case registry.EventSoundReady:
		b := e.Bundle
		if c.state.State == session.Active && c.state.Active == b.ID() && b.Placed() {
			c.startSound(b)
		}
	case registry.EventReleased:
		c.untrack(e.ID)
		if c.playing == e.ID {
			c.playing = ""
		}
	}
}

func (c *Controller) sessionStarted() {
	if c.reticle == nil || c.state.Scene == nil {
		return
	}
	c.reticle.SetVisible(false)
	c.state.Scene.Attach(c.reticle)
	c.reticleIn = c.state.Scene
}

func (c *Controller) sessionEnded() {
	c.ClearActive()
	if c.reticleIn != nil {
		c.reticleIn.Detach(c.reticle)
		c.reticleIn = nil
	}
}
