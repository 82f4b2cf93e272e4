// Package chipmunk is a physics.Engine over the Chipmunk2D port. Simulation
// runs in the XY plane; Z coordinates of transforms are carried through
// untouched and gravity pulls along -Y.
package chipmunk

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/zeusync/worldsim/internal/core/physics"
)

const collisionTypeBody cp.CollisionType = 1

var _ physics.Engine = (*Engine)(nil)

// Engine wraps a cp.Space. Not safe for concurrent use.
type Engine struct {
	space     *cp.Space
	materials *physics.MaterialDB
	version   uint64
	gravity   float64
	dt        float64

	bodies   map[*cp.Body]*body
	joints   map[*joint]struct{}
	disabled map[[2]*cp.Body]struct{}
	contacts []physics.Contact
}

// New creates an engine with the given gravity and solver iterations.
func New(gravity float64, iterations uint) *Engine {
	e := &Engine{
		space:     cp.NewSpace(),
		materials: physics.NewMaterialDB(),
		bodies:    make(map[*cp.Body]*body),
		joints:    make(map[*joint]struct{}),
		disabled:  make(map[[2]*cp.Body]struct{}),
	}
	if iterations > 0 {
		e.space.Iterations = iterations
	}
	e.SetGravity(gravity)

	e.version = e.materials.Version()

	handler := e.space.NewCollisionHandler(collisionTypeBody, collisionTypeBody)
	handler.PreSolveFunc = func(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
		return e.preSolve(arb)
	}
	handler.PostSolveFunc = func(arb *cp.Arbiter, _ *cp.Space, _ interface{}) {
		e.postSolve(arb)
	}
	return e
}

func (e *Engine) AddBody(spec physics.BodySpec) (physics.Body, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Material == "" {
		spec.Material = physics.MaterialDefault
	}

	parts := spec.ShapeParts()

	var cb *cp.Body
	switch spec.Kind {
	case physics.Static:
		cb = cp.NewStaticBody()
	case physics.Kinematic:
		cb = cp.NewKinematicBody()
	default:
		cb = cp.NewBody(spec.Mass, moment(spec.Mass, parts))
	}

	shapes := make([]*cp.Shape, 0, len(parts))
	for _, p := range parts {
		shape := newShape(cb, p)
		shape.SetCollisionType(collisionTypeBody)
		shapes = append(shapes, shape)
	}

	b := &body{engine: e, spec: spec, cp: cb, shapes: shapes}
	cb.UserData = b
	for _, shape := range shapes {
		shape.UserData = b
	}
	b.SetTransform(spec.Transform)
	b.applySurface(e.materials)

	if spec.Kind == physics.Dynamic {
		cb.SetVelocityUpdateFunc(func(cb *cp.Body, gravity cp.Vector, damping, dt float64) {
			if g, ok := e.materials.GravitationalAcceleration(b.spec.Material); ok {
				gravity = cp.Vector{X: 0, Y: g}
			}
			cp.BodyUpdateVelocity(cb, gravity, damping, dt)
		})
	}

	e.space.AddBody(cb)
	for _, shape := range shapes {
		e.space.AddShape(shape)
	}
	e.bodies[cb] = b
	return b, nil
}

func partBB(p physics.Part) cp.BB {
	hw, hh := p.Size.X()/2, p.Size.Y()/2
	return cp.BB{L: p.Offset.X() - hw, B: p.Offset.Y() - hh, R: p.Offset.X() + hw, T: p.Offset.Y() + hh}
}

func newShape(cb *cp.Body, p physics.Part) *cp.Shape {
	if p.Shape == physics.Sphere {
		return cp.NewCircle(cb, p.Radius, cp.Vector{X: p.Offset.X(), Y: p.Offset.Y()})
	}
	return cp.NewBox2(cb, partBB(p), 0)
}

// moment splits mass among parts by area and sums their moments.
func moment(mass float64, parts []physics.Part) float64 {
	var area float64
	for _, p := range parts {
		area += p.Area()
	}
	var m float64
	for _, p := range parts {
		pm := mass * p.Area() / area
		if p.Shape == physics.Sphere {
			m += cp.MomentForCircle(pm, 0, p.Radius, cp.Vector{X: p.Offset.X(), Y: p.Offset.Y()})
		} else {
			m += cp.MomentForBox2(pm, partBB(p))
		}
	}
	return m
}

func (e *Engine) RemoveBody(pb physics.Body) {
	b, ok := pb.(*body)
	if !ok || b.engine != e {
		return
	}
	if _, ok = e.bodies[b.cp]; !ok {
		return
	}
	for j := range e.joints {
		if j.attached(b) {
			e.removeJoint(j)
		}
	}
	b.removeFrom(e.space)
	delete(e.bodies, b.cp)
	for k := range e.disabled {
		if k[0] == b.cp || k[1] == b.cp {
			delete(e.disabled, k)
		}
	}
}

func (e *Engine) Step(dt float64) {
	e.contacts = e.contacts[:0]
	e.dt = dt
	e.refreshSurfaces()
	e.space.Step(dt)
	for _, b := range e.bodies {
		b.force = mgl64.Vec3{}
	}
}

func (e *Engine) Contacts() []physics.Contact {
	return e.contacts
}

func (e *Engine) RayCast(start, end mgl64.Vec3, onlyClosest bool, ignored ...physics.Body) []physics.RayCastHit {
	skip := make(map[*body]struct{}, len(ignored))
	for _, ib := range ignored {
		if b, ok := ib.(*body); ok {
			skip[b] = struct{}{}
		}
	}

	var hits []physics.RayCastHit
	from := cp.Vector{X: start.X(), Y: start.Y()}
	to := cp.Vector{X: end.X(), Y: end.Y()}
	e.space.SegmentQuery(from, to, 0, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, point, normal cp.Vector, alpha float64, _ interface{}) {
		b, ok := shape.UserData.(*body)
		if !ok {
			return
		}
		if _, ignore := skip[b]; ignore {
			return
		}
		hit := physics.RayCastHit{
			Object:   b.spec.Owner,
			Distance: alpha,
			Position: mgl64.Vec3{point.X, point.Y, start.Z() + alpha*(end.Z()-start.Z())},
			Normal:   mgl64.Vec3{normal.X, normal.Y, 0},
		}
		if onlyClosest {
			if len(hits) == 0 {
				hits = append(hits, hit)
			} else if alpha < hits[0].Distance {
				hits[0] = hit
			}
			return
		}
		hits = append(hits, hit)
	}, nil)
	return hits
}

func (e *Engine) SetGravity(g float64) {
	e.gravity = g
	e.space.SetGravity(cp.Vector{X: 0, Y: g})
}

func (e *Engine) SetCollisionEnabled(a, b physics.Body, enabled bool) {
	ba, okA := a.(*body)
	bb, okB := b.(*body)
	if !okA || !okB {
		return
	}
	if enabled {
		delete(e.disabled, [2]*cp.Body{ba.cp, bb.cp})
		delete(e.disabled, [2]*cp.Body{bb.cp, ba.cp})
		return
	}
	e.disabled[[2]*cp.Body{ba.cp, bb.cp}] = struct{}{}
	e.disabled[[2]*cp.Body{bb.cp, ba.cp}] = struct{}{}
}

func (e *Engine) SetMaterials(db *physics.MaterialDB) {
	if db == nil {
		return
	}
	e.materials = db
	e.version = db.Version()
	for _, b := range e.bodies {
		b.applySurface(db)
	}
}

// refreshSurfaces pushes material changes made since the last step to the
// shapes.
func (e *Engine) refreshSurfaces() {
	if v := e.materials.Version(); v != e.version {
		e.version = v
		for _, b := range e.bodies {
			b.applySurface(e.materials)
		}
	}
}

func (e *Engine) Close() error {
	for j := range e.joints {
		e.removeJoint(j)
	}
	for _, b := range e.bodies {
		b.removeFrom(e.space)
	}
	clear(e.bodies)
	clear(e.disabled)
	e.contacts = nil
	return nil
}

func (e *Engine) preSolve(arb *cp.Arbiter) bool {
	ca, cb := arb.Bodies()
	if _, off := e.disabled[[2]*cp.Body{ca, cb}]; off {
		return false
	}
	ba, okA := ca.UserData.(*body)
	bb, okB := cb.UserData.(*body)
	if !okA || !okB {
		return true
	}
	return e.materials.Pair(ba.spec.Material, bb.spec.Material).Collisions
}

func (e *Engine) postSolve(arb *cp.Arbiter) {
	ca, cb := arb.Bodies()
	ba, okA := ca.UserData.(*body)
	bb, okB := cb.UserData.(*body)
	if !okA || !okB {
		return
	}
	impulse := arb.TotalImpulse()
	var force mgl64.Vec3
	if e.dt > 0 {
		force = mgl64.Vec3{impulse.X / e.dt, impulse.Y / e.dt, 0}
	}
	set := arb.ContactPointSet()
	for i := 0; i < set.Count; i++ {
		p := set.Points[i].PointA
		world := mgl64.Vec3{p.X, p.Y, ba.z}
		e.contacts = append(e.contacts,
			physics.Contact{
				Object:   ba.spec.Owner,
				Collide:  bb.spec.Owner,
				Position: ba.toLocal(world),
				WorldPos: world,
				Force:    force,
			},
			physics.Contact{
				Object:   bb.spec.Owner,
				Collide:  ba.spec.Owner,
				Position: bb.toLocal(world),
				WorldPos: world,
				Force:    force.Mul(-1),
			},
		)
	}
}

// body implements physics.Body.
type body struct {
	engine *Engine
	spec   physics.BodySpec
	cp     *cp.Body
	shapes []*cp.Shape
	z      float64
	force  mgl64.Vec3
}

func (b *body) Owner() any             { return b.spec.Owner }
func (b *body) Kind() physics.BodyKind { return b.spec.Kind }
func (b *body) Material() string       { return b.spec.Material }

func (b *body) Transform() mgl64.Mat4 {
	p := b.cp.Position()
	return mgl64.Translate3D(p.X, p.Y, b.z).Mul4(mgl64.HomogRotate3DZ(b.cp.Angle()))
}

func (b *body) SetTransform(tm mgl64.Mat4) {
	t := tm.Col(3)
	b.z = t.Z()
	b.cp.SetPosition(cp.Vector{X: t.X(), Y: t.Y()})
	b.cp.SetAngle(math.Atan2(tm.At(1, 0), tm.At(0, 0)))
}

func (b *body) Velocity() mgl64.Vec3 {
	v := b.cp.Velocity()
	return mgl64.Vec3{v.X, v.Y, 0}
}

func (b *body) SetVelocity(v mgl64.Vec3) {
	b.cp.SetVelocity(v.X(), v.Y())
}

func (b *body) AddForce(f mgl64.Vec3) {
	b.force = b.force.Add(f)
	b.cp.ApplyForceAtWorldPoint(cp.Vector{X: f.X(), Y: f.Y()}, b.cp.Position())
}

// AppliedForce is the force accumulated since the last step.
func (b *body) AppliedForce() mgl64.Vec3 { return b.force }

// applySurface sets the contact coefficients of the shapes from the body
// material. The solver multiplies the values of the two shapes in contact.
func (b *body) applySurface(db *physics.MaterialDB) {
	friction, elasticity := db.Surface(b.spec.Material)
	for _, shape := range b.shapes {
		shape.SetFriction(friction)
		shape.SetElasticity(elasticity)
	}
}

func (b *body) removeFrom(space *cp.Space) {
	for _, shape := range b.shapes {
		space.RemoveShape(shape)
	}
	space.RemoveBody(b.cp)
}

func (b *body) toLocal(world mgl64.Vec3) mgl64.Vec3 {
	inv := b.Transform().Inv()
	return mgl64.TransformCoordinate(world, inv)
}
