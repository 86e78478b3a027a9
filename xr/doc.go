// Package xr declares the platform collaborators the placement controller
// consumes: session negotiation, reference spaces, hit-test sources, frames,
// and the rendering/audio handles produced by asset decoders.
//
// Nothing in this package implements tracking or rendering. A host binds the
// interfaces to a real platform; package sim provides an in-memory binding
// used by tests and the arsim command.
//
// # Callbacks
//
// Callbacks registered on a Session (frame, end, select) may be invoked from
// any goroutine. Consumers are expected to hop back onto their own execution
// context before touching state:
//
//	sess.SetFrameCallback(func(f xr.Frame) {
//	    l.Post(func() { onFrame(f) })
//	})
//
// Passing nil to SetFrameCallback stops frame delivery. Implementations must
// not invoke a cleared callback after SetFrameCallback(nil) returns.
//
// # Poses
//
// Pose holds a 4x4 column-major transform, the layout platforms report for
// hit-test results. Only the translation is used for placement today.
package xr
