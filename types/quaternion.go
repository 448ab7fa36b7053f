package types

import "github.com/go-gl/mathgl/mgl32"

// Quat is a rotation quaternion backed by mgl32.
type Quat mgl32.Quat

// Create identity quaternion.
func QuatIdent() Quat {
	return Quat(mgl32.QuatIdent())
}

// Create a quaternion from an axis vector and an angle in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	return Quat(mgl32.QuatRotate(angle, mgl32.Vec3(axis.Normalize())))
}

// Rotates a vector by the rotation this quaternion represents.
func (q Quat) Rotate(v Vec3) Vec3 {
	return Vec3(mgl32.Quat(q).Rotate(mgl32.Vec3(v)))
}

// Normalizes the quaternion, returning its versor (unit quaternion). A zero
// quaternion normalizes to the identity rotation.
func (q Quat) Normalize() Quat {
	return Quat(mgl32.Quat(q).Normalize())
}

// Returns true if this is the zero quaternion (typically an unset field).
func (q Quat) IsZero() bool {
	return q.W == 0 && q.V == mgl32.Vec3{}
}
