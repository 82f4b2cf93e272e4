package physics

import "github.com/go-gl/mathgl/mgl64"

var _ Engine = (*NullEngine)(nil)

// NullEngine keeps bodies but never moves them. Ray casts and contacts are
// always empty. It is the engine used when no physics backend is configured.
type NullEngine struct {
	bodies map[*nullBody]struct{}
	joints map[*nullJoint]struct{}
	steps  int
}

func NewNullEngine() *NullEngine {
	return &NullEngine{
		bodies: make(map[*nullBody]struct{}),
		joints: make(map[*nullJoint]struct{}),
	}
}

func (e *NullEngine) AddBody(spec BodySpec) (Body, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	b := &nullBody{spec: spec, tm: spec.Transform}
	e.bodies[b] = struct{}{}
	return b, nil
}

func (e *NullEngine) RemoveBody(b Body) {
	nb, ok := b.(*nullBody)
	if !ok {
		return
	}
	delete(e.bodies, nb)
	for j := range e.joints {
		if j.spec.Parent == b || j.spec.Child == b {
			delete(e.joints, j)
		}
	}
}

func (e *NullEngine) AddJoint(spec JointSpec) (Joint, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	j := &nullJoint{spec: spec}
	e.joints[j] = struct{}{}
	return j, nil
}

func (e *NullEngine) RemoveJoint(j Joint) {
	if nj, ok := j.(*nullJoint); ok {
		delete(e.joints, nj)
	}
}

// Joints returns the number of joints currently held.
func (e *NullEngine) Joints() int { return len(e.joints) }

func (e *NullEngine) Step(float64) { e.steps++ }

// Steps returns how many times Step was called.
func (e *NullEngine) Steps() int { return e.steps }

// Bodies returns the number of bodies currently held.
func (e *NullEngine) Bodies() int { return len(e.bodies) }

func (e *NullEngine) Contacts() []Contact { return nil }

func (e *NullEngine) RayCast(mgl64.Vec3, mgl64.Vec3, bool, ...Body) []RayCastHit { return nil }

func (e *NullEngine) SetGravity(float64) {}

func (e *NullEngine) SetCollisionEnabled(Body, Body, bool) {}

func (e *NullEngine) SetMaterials(*MaterialDB) {}

func (e *NullEngine) Close() error {
	clear(e.bodies)
	clear(e.joints)
	return nil
}

type nullBody struct {
	spec BodySpec
	tm   mgl64.Mat4
	vel  mgl64.Vec3
}

func (b *nullBody) Owner() any                 { return b.spec.Owner }
func (b *nullBody) Kind() BodyKind             { return b.spec.Kind }
func (b *nullBody) Material() string           { return b.spec.Material }
func (b *nullBody) Transform() mgl64.Mat4      { return b.tm }
func (b *nullBody) SetTransform(tm mgl64.Mat4) { b.tm = tm }
func (b *nullBody) Velocity() mgl64.Vec3       { return b.vel }
func (b *nullBody) SetVelocity(v mgl64.Vec3)   { b.vel = v }
func (b *nullBody) AddForce(mgl64.Vec3)        {}

type nullJoint struct {
	spec JointSpec
}

func (j *nullJoint) Owner() any        { return j.spec.Owner }
func (j *nullJoint) Kind() JointKind   { return j.spec.Kind }
func (j *nullJoint) Position() float64 { return 0 }
func (j *nullJoint) Force() float64    { return 0 }
