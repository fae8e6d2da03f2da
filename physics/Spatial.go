package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Distance returns the Euclidean distance between two world positions
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// RotateWorldToBody rotates a world-frame vector into the body frame
// of an agent with the given roll, pitch, and yaw. The rotation is the
// inverse of the body's world orientation R = Rz(yaw)Ry(pitch)Rx(roll).
func RotateWorldToBody(v r3.Vec, roll, pitch, yaw float64) r3.Vec {
	sr, cr := math.Sin(roll), math.Cos(roll)
	sp, cp := math.Sin(pitch), math.Cos(pitch)
	sy, cy := math.Sin(yaw), math.Cos(yaw)

	// Rows of R^T, i.e. columns of Rz(yaw)Ry(pitch)Rx(roll)
	r00, r10, r20 := cy*cp, sy*cp, -sp
	r01, r11, r21 := cy*sp*sr-sy*cr, sy*sp*sr+cy*cr, cp*sr
	r02, r12, r22 := cy*sp*cr+sy*sr, sy*sp*cr-cy*sr, cp*cr

	return r3.Vec{
		X: r00*v.X + r10*v.Y + r20*v.Z,
		Y: r01*v.X + r11*v.Y + r21*v.Z,
		Z: r02*v.X + r12*v.Y + r22*v.Z,
	}
}

// RotateBodyToWorld rotates a body-frame vector into the world frame
// of an agent with the given roll, pitch, and yaw
func RotateBodyToWorld(v r3.Vec, roll, pitch, yaw float64) r3.Vec {
	sr, cr := math.Sin(roll), math.Cos(roll)
	sp, cp := math.Sin(pitch), math.Cos(pitch)
	sy, cy := math.Sin(yaw), math.Cos(yaw)

	return r3.Vec{
		X: cy*cp*v.X + (cy*sp*sr-sy*cr)*v.Y + (cy*sp*cr+sy*sr)*v.Z,
		Y: sy*cp*v.X + (sy*sp*sr+cy*cr)*v.Y + (sy*sp*cr-cy*sr)*v.Z,
		Z: -sp*v.X + cp*sr*v.Y + cp*cr*v.Z,
	}
}
