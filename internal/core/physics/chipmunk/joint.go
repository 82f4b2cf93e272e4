package chipmunk

import (
	"errors"
	"math"

	"github.com/jakecoffman/cp"

	"github.com/zeusync/worldsim/internal/core/physics"
)

// unboundedTravel is the groove half length of sliders without limits.
const unboundedTravel = 1e6

// joint implements physics.Joint as one or more cp constraints between the
// parent body, or the static body of the space, and the child.
type joint struct {
	engine        *Engine
	spec          physics.JointSpec
	parent, child *body
	a, b          *cp.Body
	constraints   []*cp.Constraint

	angle0  float64
	anchorA cp.Vector // anchor in the frame of a
	anchorB cp.Vector // anchor in the frame of b
	axisA   cp.Vector // slider direction in the frame of a
}

func (e *Engine) AddJoint(spec physics.JointSpec) (physics.Joint, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	child, ok := e.own(spec.Child)
	if !ok {
		return nil, errors.Join(physics.ErrInvalidJoint, errors.New("child body not in this engine"))
	}
	j := &joint{engine: e, spec: spec, child: child, a: e.space.StaticBody, b: child.cp}
	if spec.Parent != nil {
		parent, ok := e.own(spec.Parent)
		if !ok {
			return nil, errors.Join(physics.ErrInvalidJoint, errors.New("parent body not in this engine"))
		}
		j.parent, j.a = parent, parent.cp
	}

	pivot := cp.Vector{X: spec.Anchor.X(), Y: spec.Anchor.Y()}
	j.angle0 = j.b.Angle() - j.a.Angle()
	j.anchorA = j.a.WorldToLocal(pivot)
	j.anchorB = j.b.WorldToLocal(pivot)

	lock := func() *cp.Constraint { return cp.NewRotaryLimitJoint(j.a, j.b, j.angle0, j.angle0) }
	switch spec.Kind {
	case physics.FixedJoint:
		j.constraints = []*cp.Constraint{cp.NewPivotJoint2(j.a, j.b, j.anchorA, j.anchorB), lock()}
	case physics.HingeJoint:
		j.constraints = []*cp.Constraint{cp.NewPivotJoint2(j.a, j.b, j.anchorA, j.anchorB)}
		if spec.Limits {
			j.constraints = append(j.constraints, cp.NewRotaryLimitJoint(j.a, j.b, j.angle0+spec.Lower, j.angle0+spec.Upper))
		}
	case physics.SliderJoint:
		axis := cp.Vector{X: spec.Axis.X(), Y: spec.Axis.Y()}.Normalize()
		j.axisA = j.a.WorldToLocal(pivot.Add(axis)).Sub(j.anchorA)
		lower, upper := -unboundedTravel, unboundedTravel
		if spec.Limits {
			lower, upper = spec.Lower, spec.Upper
		}
		grooveA := j.anchorA.Add(j.axisA.Mult(lower))
		grooveB := j.anchorA.Add(j.axisA.Mult(upper))
		j.constraints = []*cp.Constraint{cp.NewGrooveJoint(j.a, j.b, grooveA, grooveB, j.anchorB), lock()}
	}

	for _, c := range j.constraints {
		c.SetCollideBodies(false)
		e.space.AddConstraint(c)
	}
	e.joints[j] = struct{}{}
	return j, nil
}

func (e *Engine) RemoveJoint(pj physics.Joint) {
	j, ok := pj.(*joint)
	if !ok || j.engine != e {
		return
	}
	if _, ok = e.joints[j]; ok {
		e.removeJoint(j)
	}
}

func (e *Engine) removeJoint(j *joint) {
	for _, c := range j.constraints {
		if e.space.ContainsConstraint(c) {
			e.space.RemoveConstraint(c)
		}
	}
	delete(e.joints, j)
}

// own returns the body behind pb when it lives in this engine.
func (e *Engine) own(pb physics.Body) (*body, bool) {
	b, ok := pb.(*body)
	if !ok || b.engine != e {
		return nil, false
	}
	_, ok = e.bodies[b.cp]
	return b, ok
}

func (j *joint) Owner() any              { return j.spec.Owner }
func (j *joint) Kind() physics.JointKind { return j.spec.Kind }

func (j *joint) attached(b *body) bool { return j.parent == b || j.child == b }

func (j *joint) Position() float64 {
	if j.spec.Kind != physics.SliderJoint {
		return j.b.Angle() - j.a.Angle() - j.angle0
	}
	wa := j.a.LocalToWorld(j.anchorA)
	dir := j.a.LocalToWorld(j.anchorA.Add(j.axisA)).Sub(wa)
	return j.b.LocalToWorld(j.anchorB).Sub(wa).Dot(dir)
}

func (j *joint) Force() float64 {
	if j.engine.dt <= 0 {
		return 0
	}
	var impulse float64
	for _, c := range j.constraints {
		impulse += math.Abs(c.Class.GetImpulse())
	}
	return impulse / j.engine.dt
}
