package sim

import (
	"sync"
	"time"

	"github.com/wippyai/ar-placement/xr"
)

// Scene records attached visuals and render calls.
type Scene struct {
	attached map[*Visual]bool
	renders  int
	mu       sync.Mutex
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{attached: make(map[*Visual]bool)}
}

// Attach implements xr.Scene.
func (s *Scene) Attach(v xr.Visual) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sv, ok := v.(*Visual); ok {
		s.attached[sv] = true
	}
}

// Detach implements xr.Scene.
func (s *Scene) Detach(v xr.Visual) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sv, ok := v.(*Visual); ok {
		delete(s.attached, sv)
	}
}

// Render implements xr.Scene.
func (s *Scene) Render(xr.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders++
}

// Contains reports whether v is attached.
func (s *Scene) Contains(v *Visual) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached[v]
}

// Len returns the number of attached visuals.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attached)
}

// VisibleCount returns how many attached visuals are visible.
func (s *Scene) VisibleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for v := range s.attached {
		if v.Visible() {
			n++
		}
	}
	return n
}

// Renders returns how many frames were rendered.
func (s *Scene) Renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

// Visual is a decoded model node.
type Visual struct {
	Path     string
	Clips    []*Clip
	pose     xr.Pose
	poseSets int
	scale    float64
	mu       sync.Mutex
	visible  bool
	released bool
}

// SetPose implements xr.Visual.
func (v *Visual) SetPose(p xr.Pose) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pose = p
	v.poseSets++
}

// Pose returns the last pose set.
func (v *Visual) Pose() xr.Pose {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pose
}

// PoseSets returns how many times SetPose was called.
func (v *Visual) PoseSets() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.poseSets
}

// SetScale implements xr.Visual.
func (v *Visual) SetScale(s float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scale = s
}

// Scale returns the uniform scale.
func (v *Visual) Scale() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scale
}

// SetVisible implements xr.Visual.
func (v *Visual) SetVisible(b bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible = b
}

// Visible implements xr.Visual.
func (v *Visual) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// Release implements xr.Releaser.
func (v *Visual) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.released = true
	v.visible = false
}

// Released reports whether Release was called.
func (v *Visual) Released() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released
}

// Clip is an animation clip.
type Clip struct {
	name     string
	advanced time.Duration
	plays    int
	mu       sync.Mutex
	playing  bool
	loop     bool
}

// Name implements xr.AnimationClip.
func (c *Clip) Name() string { return c.name }

// Play implements xr.AnimationClip.
func (c *Clip) Play(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = true
	c.loop = loop
	c.plays++
}

// Pause implements xr.AnimationClip.
func (c *Clip) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
}

// Stop implements xr.AnimationClip.
func (c *Clip) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	c.advanced = 0
}

// Advance implements xr.AnimationClip.
func (c *Clip) Advance(dt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		c.advanced += dt
	}
}

// Playing reports whether the clip is running.
func (c *Clip) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Looping reports whether the clip was last started looping.
func (c *Clip) Looping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

// Plays returns how many times Play was called.
func (c *Clip) Plays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

// Advanced returns playback time accumulated since the last Stop.
func (c *Clip) Advanced() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanced
}

// Sound is a decoded audio buffer.
type Sound struct {
	Path     string
	plays    int
	mu       sync.Mutex
	playing  bool
	loop     bool
	released bool
}

// Play implements xr.Sound.
func (s *Sound) Play(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.playing = true
	s.loop = loop
	s.plays++
}

// Stop implements xr.Sound.
func (s *Sound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

// Playing implements xr.Sound.
func (s *Sound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Looping reports whether the sound was last started looping.
func (s *Sound) Looping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// Plays returns how many times Play was called.
func (s *Sound) Plays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

// Release implements xr.Releaser.
func (s *Sound) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.playing = false
}

// Released reports whether Release was called.
func (s *Sound) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
