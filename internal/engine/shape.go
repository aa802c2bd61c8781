package engine

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapeCube
	// ShapePlane is infinite with normal +Y, usually used as world margin.
	ShapePlane
	ShapeCapsule
	// ShapeTriMesh is concave: colliders built from it carry no mass.
	ShapeTriMesh
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeCube:
		return "cube"
	case ShapePlane:
		return "plane"
	case ShapeCapsule:
		return "capsule"
	case ShapeTriMesh:
		return "trimesh"
	}
	return fmt.Sprintf("shape(%d)", int(k))
}

func ParseShapeKind(s string) (ShapeKind, error) {
	switch s {
	case "sphere":
		return ShapeSphere, nil
	case "cube", "box":
		return ShapeCube, nil
	case "plane":
		return ShapePlane, nil
	case "capsule":
		return ShapeCapsule, nil
	case "trimesh", "mesh":
		return ShapeTriMesh, nil
	}
	return 0, fmt.Errorf("unknown shape kind %q", s)
}

// ShapeDesc describes shape geometry. Only the fields of Kind are read.
type ShapeDesc struct {
	Kind        ShapeKind
	Radius      float64    // sphere, capsule
	HalfExtents mgl64.Vec3 // cube
	HalfHeight  float64    // capsule
	Vertices    []mgl64.Vec3
	Indices     [][3]int // trimesh triangles
}

func Sphere(radius float64) ShapeDesc {
	return ShapeDesc{Kind: ShapeSphere, Radius: radius}
}

func Cube(hx, hy, hz float64) ShapeDesc {
	return ShapeDesc{Kind: ShapeCube, HalfExtents: mgl64.Vec3{hx, hy, hz}}
}

func Plane() ShapeDesc {
	return ShapeDesc{Kind: ShapePlane}
}

func Capsule(halfHeight, radius float64) ShapeDesc {
	return ShapeDesc{Kind: ShapeCapsule, HalfHeight: halfHeight, Radius: radius}
}

func TriMesh(vertices []mgl64.Vec3, indices [][3]int) ShapeDesc {
	return ShapeDesc{Kind: ShapeTriMesh, Vertices: vertices, Indices: indices}
}

// Validate reports descriptors no engine can build geometry from.
func (d ShapeDesc) Validate() error {
	switch d.Kind {
	case ShapeSphere:
		if d.Radius <= 0 {
			return fmt.Errorf("sphere radius must be positive, got %g", d.Radius)
		}
	case ShapeCube:
		for i, h := range d.HalfExtents {
			if h <= 0 {
				return fmt.Errorf("cube half extent %d must be positive, got %g", i, h)
			}
		}
	case ShapePlane:
	case ShapeCapsule:
		if d.Radius <= 0 || d.HalfHeight < 0 {
			return fmt.Errorf("capsule needs radius > 0 and half height >= 0, got %g/%g", d.Radius, d.HalfHeight)
		}
	case ShapeTriMesh:
		if len(d.Indices) == 0 {
			return fmt.Errorf("trimesh has no triangles")
		}
		for _, tri := range d.Indices {
			for _, i := range tri {
				if i < 0 || i >= len(d.Vertices) {
					return fmt.Errorf("trimesh index %d out of range (%d vertices)", i, len(d.Vertices))
				}
			}
		}
	default:
		return fmt.Errorf("unknown shape kind %d", int(d.Kind))
	}
	return nil
}
