package xr

import (
	"context"
	"time"
)

// Feature names a session capability requested at negotiation time.
type Feature string

const (
	FeatureHitTest         Feature = "hit-test"
	FeatureDOMOverlay      Feature = "dom-overlay"
	FeatureLightEstimation Feature = "light-estimation"
)

// SpaceKind selects a reference space.
type SpaceKind string

const (
	// SpaceViewer tracks the device; hit-test rays are cast from it.
	SpaceViewer SpaceKind = "viewer"
	// SpaceLocal is the world-anchored space poses are reported in.
	SpaceLocal SpaceKind = "local"
)

// Platform negotiates immersive sessions and decodes assets.
type Platform interface {
	AssetLoader

	// NegotiateSession requests an immersive AR session. Every required
	// feature must be granted or the request is rejected.
	NegotiateSession(ctx context.Context, required, optional []Feature) (Session, error)
}

// ProgressFunc receives byte counts while an asset downloads. total may be
// zero when the size is unknown.
type ProgressFunc func(loaded, total int64)

// AssetLoader decodes visual and audio assets.
type AssetLoader interface {
	LoadVisual(ctx context.Context, path string, progress ProgressFunc) (*VisualAsset, error)
	LoadAudio(ctx context.Context, path string) (Sound, error)
}

// VisualAsset is a decoded model and the animation clips it carries.
type VisualAsset struct {
	Visual Visual
	Clips  []AnimationClip
}

// Session is a negotiated immersive session.
type Session interface {
	RequestReferenceSpace(ctx context.Context, kind SpaceKind) (ReferenceSpace, error)
	RequestHitTestSource(ctx context.Context, space ReferenceSpace) (HitTestSource, error)

	// SetFrameCallback installs the per-display-frame callback; nil clears it.
	SetFrameCallback(fn FrameFunc)

	// OnEnd registers fn to run once when the session ends for any reason.
	OnEnd(fn func())

	// OnSelect registers fn to run on each primary select gesture.
	OnSelect(fn func())

	// Scene returns the scene graph rendered over the camera feed.
	Scene() Scene

	// End asks the platform to terminate the session. The OnEnd callback
	// fires once termination completes.
	End(ctx context.Context) error
}

// ReferenceSpace is an opaque coordinate system handle.
type ReferenceSpace interface {
	Kind() SpaceKind
}

// HitTestSource casts rays against detected surfaces every frame.
type HitTestSource interface {
	Cancel()
}

// FrameFunc is invoked once per display frame.
type FrameFunc func(Frame)

// Frame is a single tracked display frame.
type Frame interface {
	// Time is the frame timestamp relative to session start.
	Time() time.Duration

	// HitTestResults returns poses in space, ordered by platform ranking.
	// The slice is empty when nothing was hit.
	HitTestResults(src HitTestSource, space ReferenceSpace) []Pose
}

// Releaser frees platform memory held by a handle.
type Releaser interface {
	Release()
}

// Visual is a renderable node.
type Visual interface {
	Releaser
	SetPose(Pose)
	SetScale(float64)
	SetVisible(bool)
	Visible() bool
}

// AnimationClip drives one animation of a visual.
type AnimationClip interface {
	Name() string
	Play(loop bool)
	Pause()
	Stop()
	Advance(dt time.Duration)
}

// Sound is a decoded audio buffer bound to the output sink.
type Sound interface {
	Releaser
	Play(loop bool)
	Stop()
	Playing() bool
}

// Scene is the render graph of an active session.
type Scene interface {
	Attach(Visual)
	Detach(Visual)
	Render(Frame)
}
