package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Isometry is a rigid transform: a rotation followed by a translation.
type Isometry struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

func Identity() Isometry {
	return Isometry{Rotation: mgl64.QuatIdent()}
}

// Translation returns an isometry that only translates.
func Translation(x, y, z float64) Isometry {
	return Isometry{Translation: mgl64.Vec3{x, y, z}, Rotation: mgl64.QuatIdent()}
}

// Mul composes a and b; the result applies b first, then a.
func (a Isometry) Mul(b Isometry) Isometry {
	return Isometry{
		Translation: a.Translation.Add(a.Rotation.Rotate(b.Translation)),
		Rotation:    a.Rotation.Mul(b.Rotation).Normalize(),
	}
}

func (a Isometry) Inverse() Isometry {
	inv := a.Rotation.Inverse()
	return Isometry{
		Translation: inv.Rotate(a.Translation.Mul(-1)),
		Rotation:    inv,
	}
}

func (a Isometry) TransformPoint(p mgl64.Vec3) mgl64.Vec3 {
	return a.Translation.Add(a.Rotation.Rotate(p))
}

// ApproxEqual reports whether the translations are within eps of each
// other and the rotations differ by at most eps. q and -q are the same
// rotation.
func (a Isometry) ApproxEqual(b Isometry, eps float64) bool {
	if !Near(a.Translation, b.Translation, eps) {
		return false
	}
	return 1-math.Abs(a.Rotation.Dot(b.Rotation)) <= eps
}

// Near reports whether a and b are within eps in euclidean distance.
func Near(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() <= eps
}
