package euler

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/phys/internal/engine"
)

// body is a single rigid body. Inertia is approximated by a solid sphere of
// unit radius, so angular response scales with mass alone.
type body struct {
	pos    engine.Isometry
	mode   engine.BodyMode
	mass   float64
	linVel mgl64.Vec3
	angVel mgl64.Vec3
	force  mgl64.Vec3
	torque mgl64.Vec3
	active bool
	idle   float64
}

func newBody(desc engine.RigidBodyDesc) *body {
	return &body{
		pos:    engine.Identity(),
		mode:   desc.Mode,
		mass:   desc.Mass,
		active: true,
	}
}

func (b *body) invMass() float64 {
	if b.mode != engine.BodyDynamic || b.mass <= 0 {
		return 0
	}
	return 1 / b.mass
}

func (b *body) invInertia() float64 {
	if b.mode != engine.BodyDynamic || b.mass <= 0 {
		return 0
	}
	return 1 / (0.4 * b.mass)
}

func (b *body) Position() engine.Isometry { return b.pos }

func (b *body) SetPosition(iso engine.Isometry) {
	b.pos = iso
	b.Activate()
}

func (b *body) Mode() engine.BodyMode { return b.mode }

func (b *body) SetMode(mode engine.BodyMode) {
	b.mode = mode
	if mode == engine.BodyStatic || mode == engine.BodyDisabled {
		b.linVel, b.angVel = mgl64.Vec3{}, mgl64.Vec3{}
	}
	b.Activate()
}

func (b *body) Mass() float64 { return b.mass }

func (b *body) LinearVelocity() mgl64.Vec3 { return b.linVel }

func (b *body) SetLinearVelocity(v mgl64.Vec3) {
	b.linVel = v
	b.Activate()
}

func (b *body) AngularVelocity() mgl64.Vec3 { return b.angVel }

func (b *body) SetAngularVelocity(w mgl64.Vec3) {
	b.angVel = w
	b.Activate()
}

func (b *body) VelocityAt(point mgl64.Vec3) mgl64.Vec3 {
	r := point.Sub(b.pos.Translation)
	return b.linVel.Add(b.angVel.Cross(r))
}

func (b *body) ApplyForce(force mgl64.Vec3, mode engine.ForceMode, wake bool) {
	if b.mode != engine.BodyDynamic {
		return
	}
	if mode == engine.ForceImpulse {
		b.linVel = b.linVel.Add(force.Mul(b.invMass()))
	} else {
		b.force = b.force.Add(force)
	}
	if wake {
		b.Activate()
	}
}

func (b *body) ApplyTorque(torque mgl64.Vec3, mode engine.ForceMode, wake bool) {
	if b.mode != engine.BodyDynamic {
		return
	}
	if mode == engine.ForceImpulse {
		b.angVel = b.angVel.Add(torque.Mul(b.invInertia()))
	} else {
		b.torque = b.torque.Add(torque)
	}
	if wake {
		b.Activate()
	}
}

func (b *body) ApplyForceAtPoint(force, point mgl64.Vec3, mode engine.ForceMode, wake bool) {
	r := point.Sub(b.pos.Translation)
	b.ApplyForce(force, mode, wake)
	b.ApplyTorque(r.Cross(force), mode, wake)
}

func (b *body) ApplyForceAtLocalPoint(force, point mgl64.Vec3, mode engine.ForceMode, wake bool) {
	b.ApplyForceAtPoint(force, b.pos.TransformPoint(point), mode, wake)
}

func (b *body) ClearForces() {
	b.force, b.torque = mgl64.Vec3{}, mgl64.Vec3{}
}

func (b *body) Activate() {
	b.active = true
	b.idle = 0
}

func (b *body) IsActive() bool { return b.active }

// integrate advances the body by dt. Static and disabled bodies never move.
func (b *body) integrate(dt float64, gravity mgl64.Vec3) {
	switch b.mode {
	case engine.BodyDynamic:
		if !b.active {
			return
		}
		acc := b.force.Mul(b.invMass())
		if b.mass > 0 {
			acc = acc.Add(gravity)
		}
		b.linVel = b.linVel.Add(acc.Mul(dt))
		b.angVel = b.angVel.Add(b.torque.Mul(b.invInertia() * dt))
	case engine.BodyKinematic:
	default:
		return
	}

	b.pos.Translation = b.pos.Translation.Add(b.linVel.Mul(dt))
	if b.angVel.Len() > 0 {
		spin := mgl64.Quat{W: 0, V: b.angVel}.Mul(b.pos.Rotation).Scale(0.5 * dt)
		b.pos.Rotation = b.pos.Rotation.Add(spin).Normalize()
	}
	b.ClearForces()
}

// settle puts a dynamic body to sleep once it has stayed slow for sleepTime.
func (b *body) settle(dt, threshold, sleepTime float64) {
	if b.mode != engine.BodyDynamic || !b.active || sleepTime <= 0 {
		return
	}
	if b.linVel.Len()+b.angVel.Len() > threshold {
		b.idle = 0
		return
	}
	b.idle += dt
	if b.idle >= sleepTime {
		b.active = false
		b.linVel, b.angVel = mgl64.Vec3{}, mgl64.Vec3{}
	}
}
