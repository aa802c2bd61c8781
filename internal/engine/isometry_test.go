package engine

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestIsometry_InverseRoundTrip(t *testing.T) {
	iso := Isometry{
		Translation: mgl64.Vec3{1, 2, 3},
		Rotation:    mgl64.QuatRotate(math.Pi/3, mgl64.Vec3{0, 1, 0}),
	}
	got := iso.Inverse().Mul(iso)
	if !got.ApproxEqual(Identity(), 1e-9) {
		t.Fatalf("inverse(iso)*iso = %+v, want identity", got)
	}
	got = iso.Mul(iso.Inverse())
	if !got.ApproxEqual(Identity(), 1e-9) {
		t.Fatalf("iso*inverse(iso) = %+v, want identity", got)
	}
}

func TestIsometry_TransformPoint(t *testing.T) {
	iso := Isometry{
		Translation: mgl64.Vec3{0, 0, 5},
		Rotation:    mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}),
	}
	p := iso.TransformPoint(mgl64.Vec3{1, 0, 0})
	if !Near(p, mgl64.Vec3{0, 1, 5}, 1e-9) {
		t.Fatalf("TransformPoint = %v, want [0 1 5]", p)
	}
}

func TestShapeDesc_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    ShapeDesc
		wantErr bool
	}{
		{"sphere", Sphere(1), false},
		{"zero sphere", Sphere(0), true},
		{"cube", Cube(1, 2, 3), false},
		{"flat cube", Cube(1, 0, 1), true},
		{"plane", Plane(), false},
		{"capsule", Capsule(1, 0.5), false},
		{"mesh", TriMesh([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][3]int{{0, 1, 2}}), false},
		{"mesh bad index", TriMesh([]mgl64.Vec3{{0, 0, 0}}, [][3]int{{0, 1, 2}}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseBodyMode(t *testing.T) {
	for _, m := range []BodyMode{BodyDisabled, BodyStatic, BodyDynamic, BodyKinematic} {
		got, err := ParseBodyMode(m.String())
		if err != nil || got != m {
			t.Fatalf("ParseBodyMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseBodyMode("floating"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
