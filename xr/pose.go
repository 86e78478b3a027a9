package xr

import "fmt"

// Vec3 is a point or direction in meters.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// Pose is a rigid transform stored as a column-major 4x4 matrix.
type Pose struct {
	Matrix [16]float64
}

// Identity returns the identity pose.
func Identity() Pose {
	return Pose{Matrix: [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Translation returns a pose positioned at (x, y, z) with no rotation.
func Translation(x, y, z float64) Pose {
	p := Identity()
	p.Matrix[12] = x
	p.Matrix[13] = y
	p.Matrix[14] = z
	return p
}

// PoseFromArray builds a pose from a column-major slice of 16 values.
func PoseFromArray(m []float64) (Pose, error) {
	if len(m) != 16 {
		return Pose{}, fmt.Errorf("pose matrix needs 16 values, got %d", len(m))
	}
	var p Pose
	copy(p.Matrix[:], m)
	return p, nil
}

// Position extracts the translation component.
func (p Pose) Position() Vec3 {
	return Vec3{X: p.Matrix[12], Y: p.Matrix[13], Z: p.Matrix[14]}
}

func (p Pose) String() string {
	return p.Position().String()
}
