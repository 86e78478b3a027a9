package placement

import "github.com/wippyai/ar-placement/xr"

// Cursor is the placement target derived from the latest hit-test.
//
// It is visible only after a frame whose query produced at least one
// result. The last pose is retained while invisible but cannot be read.
type Cursor struct {
	pose    xr.Pose
	visible bool
}

// Update applies one frame's hit-test results. Only the first result is
// used. It reports whether the cursor is visible afterwards.
func (c *Cursor) Update(hits []xr.Pose) bool {
	if len(hits) == 0 {
		c.visible = false
		return false
	}
	c.pose = hits[0]
	c.visible = true
	return true
}

// Visible reports whether the last frame hit a surface.
func (c *Cursor) Visible() bool {
	return c.visible
}

// Pose returns the cursor pose, or false while the cursor is hidden.
func (c *Cursor) Pose() (xr.Pose, bool) {
	if !c.visible {
		return xr.Pose{}, false
	}
	return c.pose, true
}

// Hide makes the cursor invisible.
func (c *Cursor) Hide() {
	c.visible = false
}
