package data

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"github.com/l1jgo/phys/internal/physics"
	"gopkg.in/yaml.v3"
)

// ShapeEntry describes one named shape. Which fields apply depends on Kind.
type ShapeEntry struct {
	Name        string       `yaml:"name"`
	Kind        string       `yaml:"kind"` // sphere, cube, plane, capsule, trimesh
	Radius      float64      `yaml:"radius"`
	HalfExtents [3]float64   `yaml:"half_extents"`
	HalfHeight  float64      `yaml:"half_height"`
	Vertices    [][3]float64 `yaml:"vertices"`
	Indices     [][3]int     `yaml:"indices"`
}

// Placement is a position plus an XYZ rotation in degrees.
type Placement struct {
	Position [3]float64 `yaml:"position"`
	Rotation [3]float64 `yaml:"rotation"`
}

func (p Placement) Isometry() engine.Isometry {
	q := mgl64.AnglesToQuat(
		mgl64.DegToRad(p.Rotation[0]),
		mgl64.DegToRad(p.Rotation[1]),
		mgl64.DegToRad(p.Rotation[2]),
		mgl64.XYZ,
	)
	return engine.Isometry{Translation: mgl64.Vec3(p.Position), Rotation: q.Normalize()}
}

type BodyEntry struct {
	Placement `yaml:",inline"`

	Name       string     `yaml:"name"`
	Mode       string     `yaml:"mode"` // dynamic when empty
	Mass       float64    `yaml:"mass"`
	Shape      string     `yaml:"shape"`
	Velocity   [3]float64 `yaml:"velocity"`
	Friction   float64    `yaml:"friction"`
	Bounciness float64    `yaml:"bounciness"`
	Entity     uint64     `yaml:"entity"`
}

type AreaEntry struct {
	Placement `yaml:",inline"`

	Name   string `yaml:"name"`
	Shape  string `yaml:"shape"`
	Entity uint64 `yaml:"entity"`
}

// JointEntry binds up to two bodies, in order, at a world space frame.
type JointEntry struct {
	Placement `yaml:",inline"`

	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"` // fixed or ball
	Bodies []string `yaml:"bodies"`
}

// Scene is a scene file: the objects to create at startup.
type Scene struct {
	Shapes []ShapeEntry `yaml:"shapes"`
	Bodies []BodyEntry  `yaml:"bodies"`
	Areas  []AreaEntry  `yaml:"areas"`
	Joints []JointEntry `yaml:"joints"`
}

// LoadScene reads and checks a YAML scene file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return &s, nil
}

func (s *Scene) validate() error {
	names := make(map[string]string)
	claim := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%s %q: name already used by a %s", kind, name, prev)
		}
		names[name] = kind
		return nil
	}
	for _, e := range s.Shapes {
		if err := claim("shape", e.Name); err != nil {
			return err
		}
		desc, err := e.desc()
		if err != nil {
			return fmt.Errorf("shape %q: %w", e.Name, err)
		}
		if err := desc.Validate(); err != nil {
			return fmt.Errorf("shape %q: %w", e.Name, err)
		}
	}
	shapeRef := func(kind, name, shape string) error {
		if shape != "" && names[shape] != "shape" {
			return fmt.Errorf("%s %q: unknown shape %q", kind, name, shape)
		}
		return nil
	}
	for _, e := range s.Bodies {
		if err := claim("body", e.Name); err != nil {
			return err
		}
		if _, err := engine.ParseBodyMode(e.Mode); err != nil {
			return fmt.Errorf("body %q: %w", e.Name, err)
		}
		if err := shapeRef("body", e.Name, e.Shape); err != nil {
			return err
		}
	}
	for _, e := range s.Areas {
		if err := claim("area", e.Name); err != nil {
			return err
		}
		if err := shapeRef("area", e.Name, e.Shape); err != nil {
			return err
		}
	}
	for _, e := range s.Joints {
		if err := claim("joint", e.Name); err != nil {
			return err
		}
		if _, err := parseConstraintKind(e.Kind); err != nil {
			return fmt.Errorf("joint %q: %w", e.Name, err)
		}
		if len(e.Bodies) > 2 {
			return fmt.Errorf("joint %q: binds %d bodies, at most 2", e.Name, len(e.Bodies))
		}
		for _, b := range e.Bodies {
			if names[b] != "body" {
				return fmt.Errorf("joint %q: unknown body %q", e.Name, b)
			}
		}
	}
	return nil
}

func (e ShapeEntry) desc() (engine.ShapeDesc, error) {
	kind, err := engine.ParseShapeKind(e.Kind)
	if err != nil {
		return engine.ShapeDesc{}, err
	}
	switch kind {
	case engine.ShapeSphere:
		return engine.Sphere(e.Radius), nil
	case engine.ShapeCube:
		return engine.Cube(e.HalfExtents[0], e.HalfExtents[1], e.HalfExtents[2]), nil
	case engine.ShapePlane:
		return engine.Plane(), nil
	case engine.ShapeCapsule:
		return engine.Capsule(e.HalfHeight, e.Radius), nil
	}
	vertices := make([]mgl64.Vec3, len(e.Vertices))
	for i, v := range e.Vertices {
		vertices[i] = mgl64.Vec3(v)
	}
	return engine.TriMesh(vertices, e.Indices), nil
}

func parseConstraintKind(s string) (engine.ConstraintKind, error) {
	switch s {
	case "fixed", "":
		return engine.ConstraintFixed, nil
	case "ball":
		return engine.ConstraintBall, nil
	}
	return 0, fmt.Errorf("unknown joint kind %q", s)
}

// Handles are the handles of a built scene, by object name. The scene owns
// one count of each; Release gives them all up.
type Handles struct {
	Shapes map[string]*objects.Handle[objects.ShapeTag]
	Bodies map[string]*objects.Handle[objects.RigidBodyTag]
	Areas  map[string]*objects.Handle[objects.AreaTag]
	Joints map[string]*objects.Handle[objects.JointTag]
}

func newHandles() *Handles {
	return &Handles{
		Shapes: make(map[string]*objects.Handle[objects.ShapeTag]),
		Bodies: make(map[string]*objects.Handle[objects.RigidBodyTag]),
		Areas:  make(map[string]*objects.Handle[objects.AreaTag]),
		Joints: make(map[string]*objects.Handle[objects.JointTag]),
	}
}

func (h *Handles) Count() int {
	return len(h.Shapes) + len(h.Bodies) + len(h.Areas) + len(h.Joints)
}

// Release releases every handle. The objects go away at the next collection
// point.
func (h *Handles) Release() {
	for _, x := range h.Joints {
		x.Release()
	}
	for _, x := range h.Bodies {
		x.Release()
	}
	for _, x := range h.Areas {
		x.Release()
	}
	for _, x := range h.Shapes {
		x.Release()
	}
}

// Build creates the scene's objects. On error everything created so far is
// released.
func (s *Scene) Build(p *physics.Servers) (*Handles, error) {
	h := newHandles()
	if err := s.build(p, h); err != nil {
		h.Release()
		return nil, err
	}
	return h, nil
}

func (s *Scene) build(p *physics.Servers, h *Handles) error {
	for _, e := range s.Shapes {
		desc, err := e.desc()
		if err != nil {
			return fmt.Errorf("shape %q: %w", e.Name, err)
		}
		sh, err := p.Shapes.CreateShape(desc)
		if err != nil {
			return fmt.Errorf("shape %q: %w", e.Name, err)
		}
		h.Shapes[e.Name] = sh
	}

	for _, e := range s.Bodies {
		mode, err := engine.ParseBodyMode(e.Mode)
		if err != nil {
			return fmt.Errorf("body %q: %w", e.Name, err)
		}
		b := p.Bodies.CreateBody(physics.BodyDesc{
			Mode:     mode,
			Mass:     e.Mass,
			Material: engine.Material{Friction: e.Friction, Bounciness: e.Bounciness},
		})
		h.Bodies[e.Name] = b
		tag := b.Get()
		if err := p.Bodies.SetTransform(tag, e.Isometry()); err != nil {
			return fmt.Errorf("body %q: %w", e.Name, err)
		}
		if err := p.Bodies.SetLinearVelocity(tag, mgl64.Vec3(e.Velocity)); err != nil {
			return fmt.Errorf("body %q: %w", e.Name, err)
		}
		if e.Entity != 0 {
			if err := p.Bodies.SetEntity(tag, objects.Entity(e.Entity)); err != nil {
				return fmt.Errorf("body %q: %w", e.Name, err)
			}
		}
		if e.Shape != "" {
			if err := p.Bodies.SetShape(tag, h.Shapes[e.Shape].Get()); err != nil {
				return fmt.Errorf("body %q: %w", e.Name, err)
			}
		}
	}

	for _, e := range s.Areas {
		a := p.Areas.CreateArea(e.Isometry())
		h.Areas[e.Name] = a
		if e.Entity != 0 {
			if err := p.Areas.SetEntity(a.Get(), objects.Entity(e.Entity)); err != nil {
				return fmt.Errorf("area %q: %w", e.Name, err)
			}
		}
		if e.Shape != "" {
			if err := p.Areas.SetShape(a.Get(), h.Shapes[e.Shape].Get()); err != nil {
				return fmt.Errorf("area %q: %w", e.Name, err)
			}
		}
	}

	for _, e := range s.Joints {
		kind, err := parseConstraintKind(e.Kind)
		if err != nil {
			return fmt.Errorf("joint %q: %w", e.Name, err)
		}
		j := p.Joints.CreateJoint(physics.JointDesc{Kind: kind}, e.Isometry())
		h.Joints[e.Name] = j
		for _, name := range e.Bodies {
			if err := p.Joints.InsertRigidBody(j.Get(), h.Bodies[name].Get()); err != nil {
				return fmt.Errorf("joint %q body %q: %w", e.Name, name, err)
			}
		}
	}
	return nil
}
