package objects

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/physics"
	"github.com/zeusync/worldsim/internal/core/world"
)

// JointShared is the shared block of joints. Points are in world
// coordinates as of the last step.
type JointShared struct {
	world.EntityShared
	Kind      physics.JointKind `json:"kind"`
	Anchor    mgl64.Vec3        `json:"anchor"`
	ParentEnd mgl64.Vec3        `json:"parent_end"`
	ChildEnd  mgl64.Vec3        `json:"child_end"`
	Position  float64           `json:"position"`
	Force     float64           `json:"force"`
}

// JointOptions configure a joint at creation.
type JointOptions struct {
	Axis   mgl64.Vec3
	Limits bool
	Lower  float64
	Upper  float64
}

type JointOption func(*JointOptions)

// WithAxis sets the slider direction in world coordinates.
func WithAxis(axis mgl64.Vec3) JointOption {
	return func(o *JointOptions) { o.Axis = axis }
}

// WithLimits bounds the hinge angle or the slider travel.
func WithLimits(lower, upper float64) JointOption {
	return func(o *JointOptions) { o.Limits, o.Lower, o.Upper = true, lower, upper }
}

// Joint constrains a child body to a parent body, or to the static world
// when the parent is nil. The World deletes it before either body.
type Joint struct {
	*world.WEntity
	read   func() *JointShared
	modify func(fn func(s *JointShared))

	kind          physics.JointKind
	opts          JointOptions
	parent, child world.BodyHolder
	anchor        mgl64.Vec3
	local         mgl64.Vec3 // anchor in the child frame
	joint         physics.Joint
}

var JointKind = world.Kind[*Joint, JointShared]{
	Name: "joint",
	Renderer: func(*Joint) world.Renderer[JointShared] {
		return world.RendererFunc[JointShared](func(s *JointShared, ctx *world.RenderContext) {
			if !ctx.DrawJoints {
				return
			}
			ctx.Draw.Add(world.DrawCommand{Kind: world.DrawLine, From: s.Anchor, To: s.ParentEnd, Color: s.Color})
			ctx.Draw.Add(world.DrawCommand{Kind: world.DrawLine, From: s.Anchor, To: s.ChildEnd, Color: s.Color})
			ctx.Draw.Add(world.DrawCommand{Kind: world.DrawMarker, Transform: mgl64.Translate3D(s.Anchor.X(), s.Anchor.Y(), s.Anchor.Z()), Color: s.Color, Text: s.Kind.String()})
		})
	},
}

// NewJoint creates a joint of the given kind anchored at a world point.
// parent may be nil.
func NewJoint(w *world.World, name string, kind physics.JointKind, parent, child world.BodyHolder, anchor mgl64.Vec3, opts ...JointOption) (*Joint, error) {
	var o JointOptions
	for _, opt := range opts {
		opt(&o)
	}
	if child == nil {
		return nil, fmt.Errorf("joint %q: %w", name, world.ErrNoBody)
	}
	for _, b := range [2]world.BodyHolder{parent, child} {
		if b != nil && !w.Contains(b) {
			return nil, fmt.Errorf("joint %q: body %q: %w", name, b.Base().Name(), world.ErrEntityDestroyed)
		}
	}
	return world.CreateEntity(w, JointKind, func(c world.Construction[JointShared]) (*Joint, error) {
		base, err := world.NewWEntity(c, name)
		if err != nil {
			return nil, err
		}
		sw := c.Shared()
		sw.Modify(func(s *JointShared) {
			s.Kind = kind
			s.Anchor = anchor
		})
		return &Joint{
			WEntity: base,
			read:    sw.Get,
			modify:  sw.Modify,
			kind:    kind,
			opts:    o,
			parent:  parent,
			child:   child,
			anchor:  anchor,
		}, nil
	})
}

// NewFixedJoint glues child to parent at their current relative pose.
func NewFixedJoint(w *world.World, name string, parent, child world.BodyHolder) (*Joint, error) {
	return NewJoint(w, name, physics.FixedJoint, parent, child, bodyPosition(child))
}

// NewHinge lets child rotate around anchor.
func NewHinge(w *world.World, name string, parent, child world.BodyHolder, anchor mgl64.Vec3, opts ...JointOption) (*Joint, error) {
	return NewJoint(w, name, physics.HingeJoint, parent, child, anchor, opts...)
}

// NewSlider lets child translate along axis through its current position.
func NewSlider(w *world.World, name string, parent, child world.BodyHolder, axis mgl64.Vec3, opts ...JointOption) (*Joint, error) {
	opts = append([]JointOption{WithAxis(axis)}, opts...)
	return NewJoint(w, name, physics.SliderJoint, parent, child, bodyPosition(child), opts...)
}

func bodyPosition(b world.BodyHolder) mgl64.Vec3 {
	if b == nil || b.PhysicsBody() == nil {
		return mgl64.Vec3{}
	}
	return b.PhysicsBody().Transform().Col(3).Vec3()
}

func (j *Joint) PostCreate() error {
	child := j.child.PhysicsBody()
	if child == nil {
		return fmt.Errorf("joint %q: child %q: %w", j.Name(), j.child.Base().Name(), world.ErrNoBody)
	}
	var parent physics.Body
	if j.parent != nil {
		if parent = j.parent.PhysicsBody(); parent == nil {
			return fmt.Errorf("joint %q: parent %q: %w", j.Name(), j.parent.Base().Name(), world.ErrNoBody)
		}
	}
	pj, err := j.World().Engine().AddJoint(physics.JointSpec{
		Kind:   j.kind,
		Parent: parent,
		Child:  child,
		Anchor: j.anchor,
		Axis:   j.opts.Axis,
		Limits: j.opts.Limits,
		Lower:  j.opts.Lower,
		Upper:  j.opts.Upper,
		Owner:  j.Self(),
	})
	if err != nil {
		return fmt.Errorf("joint %q: %w", j.Name(), err)
	}
	j.joint = pj
	j.local = mgl64.TransformCoordinate(j.anchor, child.Transform().Inv())
	j.refresh()
	return nil
}

func (j *Joint) Destroy() {
	if j.joint == nil {
		return
	}
	j.World().Engine().RemoveJoint(j.joint)
	j.joint = nil
}

// PostUpdate publishes the joint geometry and state of the last step.
func (j *Joint) PostUpdate() {
	if j.joint != nil {
		j.refresh()
	}
}

func (j *Joint) refresh() {
	ctm := j.child.PhysicsBody().Transform()
	anchor := mgl64.TransformCoordinate(j.local, ctm)
	parentEnd := j.anchor
	if j.parent != nil {
		parentEnd = j.parent.PhysicsBody().Transform().Col(3).Vec3()
	}
	position, force := j.joint.Position(), j.joint.Force()
	j.modify(func(s *JointShared) {
		s.Anchor = anchor
		s.ParentEnd = parentEnd
		s.ChildEnd = ctm.Col(3).Vec3()
		s.Position = position
		s.Force = force
	})
}

// JointBodies reports the bodies the World must delete the joint with.
func (j *Joint) JointBodies() (parent, child world.Entity) {
	return j.parent, j.child
}

func (j *Joint) JointKind() physics.JointKind { return j.kind }
func (j *Joint) Parent() world.BodyHolder     { return j.parent }
func (j *Joint) Child() world.BodyHolder      { return j.child }

// Anchor is the anchor point in world coordinates as of the last step.
func (j *Joint) Anchor() mgl64.Vec3 { return j.read().Anchor }

// Position is the hinge angle or the slider travel from the creation pose.
func (j *Joint) Position() float64 { return j.read().Position }

// Force is the magnitude of the constraint force of the last step.
func (j *Joint) Force() float64 { return j.read().Force }
