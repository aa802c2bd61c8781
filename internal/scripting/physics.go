package scripting

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"github.com/l1jgo/phys/internal/physics"
	lua "github.com/yuin/gopher-lua"
)

// scriptObject is one handle owned by the script. Exactly one field is set.
type scriptObject struct {
	body  *objects.Handle[objects.RigidBodyTag]
	area  *objects.Handle[objects.AreaTag]
	shape *objects.Handle[objects.ShapeTag]
	joint *objects.Handle[objects.JointTag]
}

func (o *scriptObject) kind() objects.Kind {
	switch {
	case o.body != nil:
		return objects.KindRigidBody
	case o.area != nil:
		return objects.KindArea
	case o.shape != nil:
		return objects.KindShape
	}
	return objects.KindJoint
}

func (o *scriptObject) release() {
	switch {
	case o.body != nil:
		o.body.Release()
	case o.area != nil:
		o.area.Release()
	case o.shape != nil:
		o.shape.Release()
	case o.joint != nil:
		o.joint.Release()
	}
}

func (e *Engine) add(o *scriptObject) int {
	e.nextID++
	e.objects[e.nextID] = o
	return e.nextID
}

func (e *Engine) release(id int) bool {
	o, ok := e.objects[id]
	if !ok {
		return false
	}
	delete(e.objects, id)
	for name, nid := range e.names {
		if nid == id {
			delete(e.names, name)
		}
	}
	o.release()
	return true
}

// Expose hands the script a clone of h under name; physics.find(name)
// returns its id. h must be a handle to a body, area, shape or joint.
func (e *Engine) Expose(name string, h any) error {
	var o scriptObject
	switch h := h.(type) {
	case *objects.Handle[objects.RigidBodyTag]:
		o.body = h.Clone()
	case *objects.Handle[objects.AreaTag]:
		o.area = h.Clone()
	case *objects.Handle[objects.ShapeTag]:
		o.shape = h.Clone()
	case *objects.Handle[objects.JointTag]:
		o.joint = h.Clone()
	default:
		return fmt.Errorf("expose %q: unsupported handle %T", name, h)
	}
	if old, ok := e.names[name]; ok {
		e.release(old)
	}
	e.names[name] = e.add(&o)
	return nil
}

func (e *Engine) registerPhysics() {
	mod := e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"create_shape":  e.luaCreateShape,
		"update_shape":  e.luaUpdateShape,
		"create_body":   e.luaCreateBody,
		"create_area":   e.luaCreateArea,
		"set_shape":     e.luaSetShape,
		"set_entity":    e.luaSetEntity,
		"set_position":  e.luaSetPosition,
		"position":      e.luaPosition,
		"apply_force":   e.luaApplyForce,
		"apply_impulse": e.luaApplyImpulse,
		"set_velocity":  e.luaSetVelocity,
		"velocity":      e.luaVelocity,
		"create_joint":  e.luaCreateJoint,
		"insert_body":   e.luaInsertBody,
		"remove_body":   e.luaRemoveBody,
		"joint_state":   e.luaJointState,
		"overlaps":      e.luaOverlaps,
		"find":          e.luaFind,
		"release":       e.luaRelease,
	})
	e.vm.SetGlobal("physics", mod)
}

// --- Lua helpers ---

// fail pushes the Lua (nil, message) error convention.
func fail(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func succeed(L *lua.LState) int {
	L.Push(lua.LTrue)
	return 1
}

func pushVec(L *lua.LState, v mgl64.Vec3) int {
	L.Push(lua.LNumber(v.X()))
	L.Push(lua.LNumber(v.Y()))
	L.Push(lua.LNumber(v.Z()))
	return 3
}

// checkVec reads three numbers starting at argument n.
func checkVec(L *lua.LState, n int) mgl64.Vec3 {
	return mgl64.Vec3{float64(L.CheckNumber(n)), float64(L.CheckNumber(n + 1)), float64(L.CheckNumber(n + 2))}
}

// lNum reads a number field from a Lua table.
func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lTriple reads a {a, b, c} array from a Lua value.
func lTriple(v lua.LValue) [3]float64 {
	var out [3]float64
	t, ok := v.(*lua.LTable)
	if !ok {
		return out
	}
	for i := range out {
		out[i] = float64(lua.LVAsNumber(t.RawGetInt(i + 1)))
	}
	return out
}

func (e *Engine) lookup(L *lua.LState, n int) (*scriptObject, error) {
	id := L.CheckInt(n)
	o, ok := e.objects[id]
	if !ok {
		return nil, fmt.Errorf("unknown object %d", id)
	}
	return o, nil
}

func (e *Engine) checkKind(L *lua.LState, n int, kinds ...objects.Kind) (*scriptObject, error) {
	o, err := e.lookup(L, n)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if o.kind() == k {
			return o, nil
		}
	}
	return nil, fmt.Errorf("object %d is a %s", L.CheckInt(n), o.kind())
}

// --- shapes ---

// shapeDesc builds a descriptor from a kind name and a parameter table.
// Mesh indices are 1-based on the Lua side.
func shapeDesc(kind string, params *lua.LTable) (engine.ShapeDesc, error) {
	k, err := engine.ParseShapeKind(kind)
	if err != nil {
		return engine.ShapeDesc{}, err
	}
	switch k {
	case engine.ShapeSphere:
		return engine.Sphere(lNum(params, "radius")), nil
	case engine.ShapeCube:
		h := lTriple(params.RawGetString("half_extents"))
		return engine.Cube(h[0], h[1], h[2]), nil
	case engine.ShapePlane:
		return engine.Plane(), nil
	case engine.ShapeCapsule:
		return engine.Capsule(lNum(params, "half_height"), lNum(params, "radius")), nil
	}

	var vertices []mgl64.Vec3
	if vt, ok := params.RawGetString("vertices").(*lua.LTable); ok {
		vt.ForEach(func(_, v lua.LValue) {
			vertices = append(vertices, mgl64.Vec3(lTriple(v)))
		})
	}
	var indices [][3]int
	if it, ok := params.RawGetString("indices").(*lua.LTable); ok {
		it.ForEach(func(_, v lua.LValue) {
			tri := lTriple(v)
			indices = append(indices, [3]int{int(tri[0]) - 1, int(tri[1]) - 1, int(tri[2]) - 1})
		})
	}
	return engine.TriMesh(vertices, indices), nil
}

// create_shape(kind, params) -> id | nil, err
func (e *Engine) luaCreateShape(L *lua.LState) int {
	desc, err := shapeDesc(L.CheckString(1), L.OptTable(2, L.NewTable()))
	if err != nil {
		return fail(L, err)
	}
	h, err := e.phys.Shapes.CreateShape(desc)
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LNumber(e.add(&scriptObject{shape: h})))
	return 1
}

// update_shape(shape, kind, params) -> rebuilt | nil, err
func (e *Engine) luaUpdateShape(L *lua.LState) int {
	o, err := e.checkKind(L, 1, objects.KindShape)
	if err != nil {
		return fail(L, err)
	}
	desc, err := shapeDesc(L.CheckString(2), L.OptTable(3, L.NewTable()))
	if err != nil {
		return fail(L, err)
	}
	n, err := e.phys.Shapes.UpdateShape(o.shape.Get(), desc)
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LNumber(n))
	return 1
}

// --- bodies and areas ---

// create_body({mode=, mass=, friction=, bounciness=}) -> id | nil, err
func (e *Engine) luaCreateBody(L *lua.LState) int {
	t := L.OptTable(1, L.NewTable())
	mode, err := engine.ParseBodyMode(lua.LVAsString(t.RawGetString("mode")))
	if err != nil {
		return fail(L, err)
	}
	mass := 1.0
	if v, ok := t.RawGetString("mass").(lua.LNumber); ok {
		mass = float64(v)
	}
	h := e.phys.Bodies.CreateBody(physics.BodyDesc{
		Mode:     mode,
		Mass:     mass,
		Material: engine.Material{Friction: lNum(t, "friction"), Bounciness: lNum(t, "bounciness")},
	})
	L.Push(lua.LNumber(e.add(&scriptObject{body: h})))
	return 1
}

// create_area(x, y, z) -> id
func (e *Engine) luaCreateArea(L *lua.LState) int {
	p := checkVec(L, 1)
	h := e.phys.Areas.CreateArea(engine.Translation(p.X(), p.Y(), p.Z()))
	L.Push(lua.LNumber(e.add(&scriptObject{area: h})))
	return 1
}

// set_shape(body_or_area, shape|nil) -> true | nil, err
func (e *Engine) luaSetShape(L *lua.LState) int {
	o, err := e.checkKind(L, 1, objects.KindRigidBody, objects.KindArea)
	if err != nil {
		return fail(L, err)
	}
	var shape objects.ShapeTag
	if L.Get(2) != lua.LNil {
		so, err := e.checkKind(L, 2, objects.KindShape)
		if err != nil {
			return fail(L, err)
		}
		shape = so.shape.Get()
	}
	if o.body != nil {
		err = e.phys.Bodies.SetShape(o.body.Get(), shape)
	} else {
		err = e.phys.Areas.SetShape(o.area.Get(), shape)
	}
	if err != nil {
		return fail(L, err)
	}
	return succeed(L)
}

// set_entity(body_or_area, entity) -> true | nil, err
func (e *Engine) luaSetEntity(L *lua.LState) int {
	o, err := e.checkKind(L, 1, objects.KindRigidBody, objects.KindArea)
	if err != nil {
		return fail(L, err)
	}
	ent := objects.Entity(L.CheckInt64(2))
	if o.body != nil {
		err = e.phys.Bodies.SetEntity(o.body.Get(), ent)
	} else {
		err = e.phys.Areas.SetEntity(o.area.Get(), ent)
	}
	if err != nil {
		return fail(L, err)
	}
	return succeed(L)
}

// set_position(body_or_area, x, y, z) -> true | nil, err
func (e *Engine) luaSetPosition(L *lua.LState) int {
	o, err := e.checkKind(L, 1, objects.KindRigidBody, objects.KindArea)
	if err != nil {
		return fail(L, err)
	}
	p := checkVec(L, 2)
	if o.body != nil {
		iso, terr := e.phys.Bodies.Transform(o.body.Get())
		if terr != nil {
			return fail(L, terr)
		}
		iso.Translation = p
		err = e.phys.Bodies.SetTransform(o.body.Get(), iso)
	} else {
		iso, terr := e.phys.Areas.Transform(o.area.Get())
		if terr != nil {
			return fail(L, terr)
		}
		iso.Translation = p
		err = e.phys.Areas.SetTransform(o.area.Get(), iso)
	}
	if err != nil {
		return fail(L, err)
	}
	return succeed(L)
}

// position(body_or_area) -> x, y, z | nil, err
func (e *Engine) luaPosition(L *lua.LState) int {
	o, err := e.checkKind(L, 1, objects.KindRigidBody, objects.KindArea)
	if err != nil {
		return fail(L, err)
	}
	var iso engine.Isometry
	if o.body != nil {
		iso, err = e.phys.Bodies.Transform(o.body.Get())
	} else {
		iso, err = e.phys.Areas.Transform(o.area.Get())
	}
	if err != nil {
		return fail(L, err)
	}
	return pushVec(L, iso.Translation)
}

// bodyOp runs a rigid body operation taking a vector argument.
func (e *Engine) bodyOp(L *lua.LState, op func(objects.RigidBodyTag, mgl64.Vec3) error) int {
	o, err := e.checkKind(L, 1, objects.KindRigidBody)
	if err != nil {
		return fail(L, err)
	}
	if err := op(o.body.Get(), checkVec(L, 2)); err != nil {
		return fail(L, err)
	}
	return succeed(L)
}

// apply_force(body, x, y, z) -> true | nil, err
func (e *Engine) luaApplyForce(L *lua.LState) int {
	return e.bodyOp(L, e.phys.Bodies.ApplyForce)
}

// apply_impulse(body, x, y, z) -> true | nil, err
func (e *Engine) luaApplyImpulse(L *lua.LState) int {
	return e.bodyOp(L, e.phys.Bodies.ApplyImpulse)
}

// set_velocity(body, x, y, z) -> true | nil, err
func (e *Engine) luaSetVelocity(L *lua.LState) int {
	return e.bodyOp(L, e.phys.Bodies.SetLinearVelocity)
}

// velocity(body) -> x, y, z | nil, err
func (e *Engine) luaVelocity(L *lua.LState) int {
	o, err := e.checkKind(L, 1, objects.KindRigidBody)
	if err != nil {
		return fail(L, err)
	}
	v, err := e.phys.Bodies.LinearVelocity(o.body.Get())
	if err != nil {
		return fail(L, err)
	}
	return pushVec(L, v)
}

// overlaps(area) -> {{kind=, other=, entity=}, ...} | nil, err
func (e *Engine) luaOverlaps(L *lua.LState) int {
	o, err := e.checkKind(L, 1, objects.KindArea)
	if err != nil {
		return fail(L, err)
	}
	events, err := e.phys.Areas.OverlapEvents(o.area.Get())
	if err != nil {
		return fail(L, err)
	}
	out := L.NewTable()
	for _, ev := range events {
		t := L.NewTable()
		t.RawSetString("kind", lua.LString(ev.Kind.String()))
		t.RawSetString("other", lua.LString(ev.Other.Kind.String()))
		t.RawSetString("entity", lua.LNumber(ev.Other.Entity))
		out.Append(t)
	}
	L.Push(out)
	return 1
}

// --- joints ---

// create_joint(kind, x, y, z) -> id | nil, err
func (e *Engine) luaCreateJoint(L *lua.LState) int {
	var kind engine.ConstraintKind
	switch s := L.CheckString(1); s {
	case "fixed":
		kind = engine.ConstraintFixed
	case "ball":
		kind = engine.ConstraintBall
	default:
		return fail(L, fmt.Errorf("unknown joint kind %q", s))
	}
	p := checkVec(L, 2)
	h := e.phys.Joints.CreateJoint(physics.JointDesc{Kind: kind}, engine.Translation(p.X(), p.Y(), p.Z()))
	L.Push(lua.LNumber(e.add(&scriptObject{joint: h})))
	return 1
}

func (e *Engine) jointBodyOp(L *lua.LState, op func(objects.JointTag, objects.RigidBodyTag) error) int {
	j, err := e.checkKind(L, 1, objects.KindJoint)
	if err != nil {
		return fail(L, err)
	}
	b, err := e.checkKind(L, 2, objects.KindRigidBody)
	if err != nil {
		return fail(L, err)
	}
	if err := op(j.joint.Get(), b.body.Get()); err != nil {
		return fail(L, err)
	}
	return succeed(L)
}

// insert_body(joint, body) -> true | nil, err
func (e *Engine) luaInsertBody(L *lua.LState) int {
	return e.jointBodyOp(L, e.phys.Joints.InsertRigidBody)
}

// remove_body(joint, body) -> true | nil, err
func (e *Engine) luaRemoveBody(L *lua.LState) int {
	return e.jointBodyOp(L, e.phys.Joints.RemoveRigidBody)
}

// joint_state(joint) -> "unbound" | "half_bound" | "bound" | nil, err
func (e *Engine) luaJointState(L *lua.LState) int {
	j, err := e.checkKind(L, 1, objects.KindJoint)
	if err != nil {
		return fail(L, err)
	}
	st, err := e.phys.Joints.State(j.joint.Get())
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LString(st.String()))
	return 1
}

// --- ownership ---

// find(name) -> id | nil
func (e *Engine) luaFind(L *lua.LState) int {
	id, found := e.names[L.CheckString(1)]
	if !found {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

// release(id) -> bool
func (e *Engine) luaRelease(L *lua.LState) int {
	L.Push(lua.LBool(e.release(L.CheckInt(1))))
	return 1
}
