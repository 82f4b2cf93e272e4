package objects

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/physics"
	"github.com/zeusync/worldsim/internal/core/world"
)

// BodyShared is the shared block of physical objects. Parts is never
// modified in place once set.
type BodyShared struct {
	ObjectShared
	Shape    physics.ShapeKind `json:"shape"`
	Size     mgl64.Vec3        `json:"size"`
	Radius   float64           `json:"radius"`
	Parts    []physics.Part    `json:"parts,omitempty"`
	Material string            `json:"material"`
	// Force is the force applied during the last step.
	Force mgl64.Vec3 `json:"force"`
}

func (s *BodyShared) Body() *BodyShared { return s }

func defaultBodyShared() BodyShared {
	return BodyShared{ObjectShared: defaultObjectShared(), Material: physics.MaterialDefault}
}

type bodyBlock[T any] interface {
	objectBlock[T]
	Body() *BodyShared
}

// BodyOptions configure a physical object at creation.
type BodyOptions struct {
	Kind      physics.BodyKind
	Mass      float64
	Material  string
	Transform mgl64.Mat4
}

type BodyOption func(*BodyOptions)

func defaultBodyOptions() BodyOptions {
	return BodyOptions{
		Kind:      physics.Dynamic,
		Mass:      1,
		Material:  physics.MaterialDefault,
		Transform: mgl64.Ident4(),
	}
}

// Static makes the body immovable.
func Static() BodyOption {
	return func(o *BodyOptions) { o.Kind = physics.Static }
}

// Kinematic makes the body move only through its velocity.
func Kinematic() BodyOption {
	return func(o *BodyOptions) { o.Kind = physics.Kinematic }
}

func WithMass(mass float64) BodyOption {
	return func(o *BodyOptions) { o.Mass = mass }
}

func WithMaterial(material string) BodyOption {
	return func(o *BodyOptions) { o.Material = material }
}

// At sets the initial transform.
func At(tm mgl64.Mat4) BodyOption {
	return func(o *BodyOptions) { o.Transform = tm }
}

// PhyObject is a WObject backed by a physics body. The body is added to the
// engine once the entity is registered and removed when it is deleted.
type PhyObject struct {
	*WObject

	readBody   func() *BodyShared
	modifyBody func(fn func(s *BodyShared))

	kind  physics.BodyKind
	mass  float64
	body  physics.Body
	force mgl64.Vec3
}

func newPhyObject[T any, PT bodyBlock[T]](c world.Construction[T], name string, o BodyOptions) (*PhyObject, error) {
	obj, err := newWObject[T, PT](c, name, o.Transform)
	if err != nil {
		return nil, err
	}
	w := c.Shared()
	p := &PhyObject{
		WObject:  obj,
		readBody: func() *BodyShared { return PT(w.Get()).Body() },
		modifyBody: func(fn func(s *BodyShared)) {
			w.Modify(func(t *T) { fn(PT(t).Body()) })
		},
		kind: o.Kind,
		mass: o.Mass,
	}
	p.modifyBody(func(s *BodyShared) { s.Material = o.Material })
	obj.matrixChanged = p.moveBody
	return p, nil
}

func (p *PhyObject) PostCreate() error {
	s := p.readBody()
	if !p.World().Materials().Has(s.Material) {
		return fmt.Errorf("body %q: %w: %q", p.Name(), physics.ErrUnknownMaterial, s.Material)
	}
	b, err := p.World().Engine().AddBody(physics.BodySpec{
		Kind:      p.kind,
		Shape:     s.Shape,
		Size:      s.Size,
		Radius:    s.Radius,
		Parts:     s.Parts,
		Mass:      p.mass,
		Transform: s.Transform,
		Material:  s.Material,
		Owner:     p.Self(),
	})
	if err != nil {
		return fmt.Errorf("body %q: %w", p.Name(), err)
	}
	p.body = b
	return nil
}

func (p *PhyObject) Destroy() {
	if p.body == nil {
		return
	}
	p.World().Engine().RemoveBody(p.body)
	p.body = nil
}

// PostUpdate copies the transform computed by the engine into the shared
// block together with the forces applied during the step. Static bodies
// never move and are skipped.
func (p *PhyObject) PostUpdate() {
	if p.body == nil || p.kind == physics.Static {
		return
	}
	force := p.force
	p.force = mgl64.Vec3{}
	tm := p.body.Transform()
	p.modifyBody(func(s *BodyShared) {
		s.Transform = tm
		s.Force = force
	})
}

func (p *PhyObject) PhysicsBody() physics.Body  { return p.body }
func (p *PhyObject) BodyKind() physics.BodyKind { return p.kind }
func (p *PhyObject) Mass() float64              { return p.mass }
func (p *PhyObject) Material() string           { return p.readBody().Material }

func (p *PhyObject) Velocity() mgl64.Vec3 {
	if p.body == nil {
		return mgl64.Vec3{}
	}
	return p.body.Velocity()
}

func (p *PhyObject) SetVelocity(v mgl64.Vec3) {
	if p.body != nil {
		p.body.SetVelocity(v)
	}
}

// AddForce applies f at the body center during the next step.
func (p *PhyObject) AddForce(f mgl64.Vec3) {
	if p.body == nil {
		return
	}
	p.force = p.force.Add(f)
	p.body.AddForce(f)
}

// AppliedForce is the force applied during the last step.
func (p *PhyObject) AppliedForce() mgl64.Vec3 { return p.readBody().Force }

func (p *PhyObject) moveBody(tm mgl64.Mat4) {
	if p.body != nil {
		p.body.SetTransform(tm)
	}
}

func renderBody(kind world.DrawKind, size func(s *BodyShared) mgl64.Vec3) func(s *BodyShared, ctx *world.RenderContext) {
	return func(s *BodyShared, ctx *world.RenderContext) {
		renderObject(&s.ObjectShared, s.Transform, ctx, func(tm mgl64.Mat4) {
			ctx.Draw.Add(shapeCommand(kind, &s.ObjectShared, tm, size(s)))
		})
		if s.Flags&Visible != 0 {
			renderForce(s.Transform, s.Force, &s.ObjectShared, ctx)
		}
	}
}

// Box is a physical box.
type Box struct {
	*PhyObject
}

var BoxKind = world.Kind[*Box, BodyShared]{
	Name:   "box",
	Shared: defaultBodyShared,
	Renderer: func(*Box) world.Renderer[BodyShared] {
		return world.RendererFunc[BodyShared](renderBody(world.DrawBox, func(s *BodyShared) mgl64.Vec3 { return s.Size }))
	},
}

// NewBox creates a box with the given side lengths.
func NewBox(w *world.World, name string, size mgl64.Vec3, opts ...BodyOption) (*Box, error) {
	o := defaultBodyOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return world.CreateEntity(w, BoxKind, func(c world.Construction[BodyShared]) (*Box, error) {
		c.Shared().Modify(func(s *BodyShared) {
			s.Shape = physics.Box
			s.Size = size
		})
		p, err := newPhyObject(c, name, o)
		if err != nil {
			return nil, err
		}
		return &Box{PhyObject: p}, nil
	})
}

func (b *Box) Size() mgl64.Vec3 { return b.readBody().Size }

// Sphere is a physical sphere.
type Sphere struct {
	*PhyObject
}

var SphereKind = world.Kind[*Sphere, BodyShared]{
	Name:   "sphere",
	Shared: defaultBodyShared,
	Renderer: func(*Sphere) world.Renderer[BodyShared] {
		return world.RendererFunc[BodyShared](renderBody(world.DrawSphere, func(s *BodyShared) mgl64.Vec3 {
			d := s.Radius * 2
			return mgl64.Vec3{d, d, d}
		}))
	},
}

// NewSphere creates a sphere with the given radius.
func NewSphere(w *world.World, name string, radius float64, opts ...BodyOption) (*Sphere, error) {
	o := defaultBodyOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return world.CreateEntity(w, SphereKind, func(c world.Construction[BodyShared]) (*Sphere, error) {
		c.Shared().Modify(func(s *BodyShared) {
			s.Shape = physics.Sphere
			s.Radius = radius
		})
		p, err := newPhyObject(c, name, o)
		if err != nil {
			return nil, err
		}
		return &Sphere{PhyObject: p}, nil
	})
}

func (s *Sphere) Radius() float64 { return s.readBody().Radius }
