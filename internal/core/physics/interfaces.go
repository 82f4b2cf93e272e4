package physics

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrUnknownMaterial = errors.New("unknown material")
	ErrInvalidBody     = errors.New("invalid body spec")
	ErrInvalidJoint    = errors.New("invalid joint spec")
)

// BodyKind selects how the engine integrates a body.
type BodyKind uint8

const (
	Dynamic BodyKind = iota
	Static
	Kinematic
)

func (k BodyKind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	default:
		return "unknown"
	}
}

// ShapeKind is the collision shape of a body.
type ShapeKind uint8

const (
	Box ShapeKind = iota
	Sphere
	// Compound bodies are the union of their Parts.
	Compound
)

// Part is one shape of a compound body, placed at Offset in the body frame.
type Part struct {
	Shape  ShapeKind
	Size   mgl64.Vec3
	Radius float64
	Offset mgl64.Vec3
}

func (p Part) validate() error {
	switch p.Shape {
	case Box:
		if p.Size.X() <= 0 || p.Size.Y() <= 0 || p.Size.Z() <= 0 {
			return errors.Join(ErrInvalidBody, errors.New("box sides must be positive"))
		}
	case Sphere:
		if p.Radius <= 0 {
			return errors.Join(ErrInvalidBody, errors.New("sphere radius must be positive"))
		}
	default:
		return errors.Join(ErrInvalidBody, errors.New("unknown shape"))
	}
	return nil
}

// Area is the area of the part section in the XY plane.
func (p Part) Area() float64 {
	if p.Shape == Sphere {
		return math.Pi * p.Radius * p.Radius
	}
	return p.Size.X() * p.Size.Y()
}

// BodySpec describes a body to add to an engine. Owner is opaque to the
// engine and is handed back in contacts and ray-cast hits.
type BodySpec struct {
	Kind      BodyKind
	Shape     ShapeKind
	Size      mgl64.Vec3 // box side lengths
	Radius    float64    // sphere radius
	Parts     []Part     // compound parts
	Mass      float64
	Transform mgl64.Mat4
	Material  string
	Owner     any
}

// Validate checks the spec is usable by an engine.
func (s BodySpec) Validate() error {
	parts := s.ShapeParts()
	if len(parts) == 0 {
		return errors.Join(ErrInvalidBody, errors.New("compound body without parts"))
	}
	for _, p := range parts {
		if err := p.validate(); err != nil {
			return err
		}
	}
	if s.Kind == Dynamic && s.Mass <= 0 {
		return errors.Join(ErrInvalidBody, errors.New("dynamic bodies need a positive mass"))
	}
	return nil
}

// ShapeParts returns the parts of a compound body, or the single shape of a
// box or sphere as a part centered on the body.
func (s BodySpec) ShapeParts() []Part {
	if s.Shape == Compound {
		return s.Parts
	}
	return []Part{{Shape: s.Shape, Size: s.Size, Radius: s.Radius}}
}

// Body is a handle to a body living inside an engine.
type Body interface {
	Owner() any
	Kind() BodyKind
	Material() string

	Transform() mgl64.Mat4
	SetTransform(tm mgl64.Mat4)

	Velocity() mgl64.Vec3
	SetVelocity(v mgl64.Vec3)

	// AddForce accumulates a force applied at the body center during the
	// next step.
	AddForce(f mgl64.Vec3)
}

// JointKind selects the motion a joint leaves between its two bodies.
type JointKind uint8

const (
	// FixedJoint glues the child to the parent.
	FixedJoint JointKind = iota
	// HingeJoint lets the child rotate around the anchor.
	HingeJoint
	// SliderJoint lets the child translate along the axis without rotating.
	SliderJoint
)

func (k JointKind) String() string {
	switch k {
	case FixedJoint:
		return "fixed"
	case HingeJoint:
		return "hinge"
	case SliderJoint:
		return "slider"
	default:
		return "unknown"
	}
}

// JointSpec describes a joint to add to an engine. A nil Parent attaches
// the child to the static world. Anchor and Axis are in world coordinates
// as of creation. With Limits set, Lower and Upper bound the hinge angle
// or the slider travel, both measured from the creation pose.
type JointSpec struct {
	Kind   JointKind
	Parent Body
	Child  Body
	Anchor mgl64.Vec3
	Axis   mgl64.Vec3
	Limits bool
	Lower  float64
	Upper  float64
	Owner  any
}

// Validate checks the spec is usable by an engine.
func (s JointSpec) Validate() error {
	switch {
	case s.Child == nil:
		return errors.Join(ErrInvalidJoint, errors.New("joint without child body"))
	case s.Parent == s.Child:
		return errors.Join(ErrInvalidJoint, errors.New("joint between a body and itself"))
	case s.Kind > SliderJoint:
		return errors.Join(ErrInvalidJoint, errors.New("unknown joint kind"))
	case s.Limits && s.Lower > s.Upper:
		return errors.Join(ErrInvalidJoint, errors.New("lower limit above upper limit"))
	case s.Kind == SliderJoint && s.Axis.Vec2().Len() == 0:
		return errors.Join(ErrInvalidJoint, errors.New("slider axis must not be zero"))
	}
	if s.Child.Kind() != Dynamic && (s.Parent == nil || s.Parent.Kind() != Dynamic) {
		return errors.Join(ErrInvalidJoint, errors.New("joint needs a dynamic body"))
	}
	return nil
}

// Joint is a handle to a joint living inside an engine.
type Joint interface {
	Owner() any
	Kind() JointKind

	// Position is the hinge angle or the slider travel from the creation
	// pose. Fixed joints report their angular drift.
	Position() float64
	// Force is the magnitude of the constraint force of the last step.
	Force() float64
}

// Contact is one contact point between two bodies after a step.
type Contact struct {
	Object   any
	Collide  any
	Position mgl64.Vec3 // in the frame of Object
	WorldPos mgl64.Vec3
	Force    mgl64.Vec3
}

// RayCastHit is one body intersected by a ray. Distance is normalized along
// the ray: 0 is the start point and 1 the end point.
type RayCastHit struct {
	Object   any
	Distance float64
	Position mgl64.Vec3
	Normal   mgl64.Vec3
}

// Engine is the physics collaborator stepped by the world. Implementations
// are only used from the simulation goroutine.
type Engine interface {
	AddBody(spec BodySpec) (Body, error)
	RemoveBody(b Body)

	Step(dt float64)

	// Contacts returns the contacts produced by the last Step.
	Contacts() []Contact
	RayCast(start, end mgl64.Vec3, onlyClosest bool, ignored ...Body) []RayCastHit

	SetGravity(g float64)
	SetCollisionEnabled(a, b Body, enabled bool)
	SetMaterials(db *MaterialDB)

	// AddJoint constrains two bodies of the engine. Removing either body
	// removes the joint too.
	AddJoint(spec JointSpec) (Joint, error)
	RemoveJoint(j Joint)

	Close() error
}
