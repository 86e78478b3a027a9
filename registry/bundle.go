package registry

import (
	"time"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/resource"
	"github.com/wippyai/ar-placement/xr"
)

// LoadState tracks an asynchronous asset load.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Bundle is one loadable object.
type Bundle struct {
	visual       xr.Visual
	sound        xr.Sound
	scene        xr.Scene
	err          error
	soundErr     error
	id           catalog.ID
	clips        []xr.AnimationClip
	policy       catalog.Policy
	pose         xr.Pose
	progress     float64
	seq          uint64
	soundSeq     uint64
	visualHandle resource.Handle
	soundHandle  resource.Handle
	state        LoadState
	soundState   LoadState
	placed       bool
}

func (b *Bundle) ID() catalog.ID            { return b.id }
func (b *Bundle) Policy() catalog.Policy    { return b.policy }
func (b *Bundle) State() LoadState          { return b.state }
func (b *Bundle) SoundState() LoadState     { return b.soundState }
func (b *Bundle) Err() error                { return b.err }
func (b *Bundle) SoundErr() error           { return b.soundErr }
func (b *Bundle) Visual() xr.Visual         { return b.visual }
func (b *Bundle) Sound() xr.Sound           { return b.sound }
func (b *Bundle) Clips() []xr.AnimationClip { return b.clips }
func (b *Bundle) Progress() float64         { return b.progress }

// Placed reports whether the object currently sits in the scene.
func (b *Bundle) Placed() bool { return b.placed }

// Pose returns the pose committed by the last placement.
func (b *Bundle) Pose() xr.Pose { return b.pose }

// Attached reports whether the visual is part of a scene.
func (b *Bundle) Attached() bool { return b.scene != nil }

// Place commits pose to the visual, attaching it to scene if needed, and
// starts on-place clips from the beginning. The bundle must be Ready.
func (b *Bundle) Place(scene xr.Scene, pose xr.Pose) {
	if b.visual == nil {
		return
	}
	if b.scene != scene {
		if b.scene != nil {
			b.scene.Detach(b.visual)
		}
		scene.Attach(b.visual)
		b.scene = scene
	}
	b.pose = pose
	b.visual.SetPose(pose)
	b.visual.SetVisible(true)
	b.placed = true

	if b.policy.Animation == catalog.AnimationOnPlace {
		for _, c := range b.clips {
			c.Stop()
			c.Play(false)
		}
	}
}

// Unplace hides the visual, detaches it from its scene and stops its sound
// and on-place clips. Loaded data is kept.
func (b *Bundle) Unplace() {
	if b.visual != nil {
		b.visual.SetVisible(false)
		if b.scene != nil {
			b.scene.Detach(b.visual)
		}
	}
	b.scene = nil
	b.placed = false
	b.StopSound()

	if b.policy.Animation == catalog.AnimationOnPlace {
		for _, c := range b.clips {
			c.Stop()
		}
	}
}

// PlaySound restarts the bundle's sound. It reports false when no sound is
// loaded yet.
func (b *Bundle) PlaySound() bool {
	if b.sound == nil {
		return false
	}
	b.sound.Stop()
	b.sound.Play(b.policy.SoundLoop)
	return true
}

// StopSound stops the bundle's sound if it is loaded.
func (b *Bundle) StopSound() {
	if b.sound != nil {
		b.sound.Stop()
	}
}

// Advance moves every clip forward by dt.
func (b *Bundle) Advance(dt time.Duration) {
	for _, c := range b.clips {
		c.Advance(dt)
	}
}

func (b *Bundle) startClips() {
	for _, c := range b.clips {
		switch b.policy.Animation {
		case catalog.AnimationLoop:
			c.Play(true)
		default:
			c.Stop()
		}
	}
}
