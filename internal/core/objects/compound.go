package objects

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/observability/log"
	"github.com/zeusync/worldsim/internal/core/physics"
	"github.com/zeusync/worldsim/internal/core/world"
)

var (
	ErrEmptyComponents   = errors.New("compound without components")
	ErrForeignComponents = errors.New("components list belongs to another world")
	ErrComponentsUsed    = errors.New("components list already used")
)

// Component is one shape of a compound body. Components are shadow
// entities: the world neither updates nor renders them.
type Component struct {
	*WObject
	part physics.Part
	mass float64
}

var ComponentKind = world.Kind[*Component, ObjectShared]{
	Name:   "compound_component",
	Shared: defaultObjectShared,
}

// Part returns the shape of the component in the compound frame.
func (c *Component) Part() physics.Part { return c.part }
func (c *Component) Mass() float64      { return c.mass }

// ComponentsList collects the components of a compound body before the
// compound is built. While it watches a component, any ownership change
// of the component is fatal.
type ComponentsList struct {
	world      *world.World
	components []*Component
	creating   bool
	used       bool
}

func NewComponentsList(w *world.World) *ComponentsList {
	return &ComponentsList{world: w}
}

// AddBox adds a box of the given sides centered at offset.
func (l *ComponentsList) AddBox(name string, size, offset mgl64.Vec3, mass float64) (*Component, error) {
	return l.add(name, physics.Part{Shape: physics.Box, Size: size, Offset: offset}, mass)
}

// AddSphere adds a sphere centered at offset.
func (l *ComponentsList) AddSphere(name string, radius float64, offset mgl64.Vec3, mass float64) (*Component, error) {
	return l.add(name, physics.Part{Shape: physics.Sphere, Radius: radius, Offset: offset}, mass)
}

func (l *ComponentsList) add(name string, part physics.Part, mass float64) (*Component, error) {
	if l.used {
		return nil, ErrComponentsUsed
	}
	c, err := world.CreateEntity(l.world, ComponentKind, func(c world.Construction[ObjectShared]) (*Component, error) {
		obj, err := newWObject(c, name, mgl64.Translate3D(part.Offset.X(), part.Offset.Y(), part.Offset.Z()))
		if err != nil {
			return nil, err
		}
		return &Component{WObject: obj, part: part, mass: mass}, nil
	}, world.WithoutWorldLists())
	if err != nil {
		return nil, err
	}
	c.RegisterOwnershipChangesListener(l)
	l.components = append(l.components, c)
	return c, nil
}

func (l *ComponentsList) Len() int                 { return len(l.components) }
func (l *ComponentsList) Components() []*Component { return l.components }

// Close deletes the components not handed to a compound.
func (l *ComponentsList) Close() {
	l.creating = true
	defer func() { l.creating = false }()
	for _, c := range l.components {
		l.world.DeleteEntity(c)
	}
	l.components = nil
}

// release hands the components to a compound.
func (l *ComponentsList) release(fn func(c *Component)) {
	l.creating = true
	defer func() { l.creating = false }()
	for _, c := range l.components {
		fn(c)
	}
	l.components = nil
	l.used = true
}

func (l *ComponentsList) violation(what string, entity world.Entity) {
	if l.creating {
		return
	}
	l.world.Fatal("compound component "+what+" while in a components list",
		log.String("component", entity.Base().Name()))
}

func (l *ComponentsList) OwnerChanged(entity, _ world.Entity) { l.violation("changed owner", entity) }
func (l *ComponentsList) EntityDestroyed(entity world.Entity) { l.violation("was destroyed", entity) }

func (l *ComponentsList) ListenerChanged(entity world.Entity, _ world.ChangesListener) {
	l.violation("changed listener", entity)
}

func (l *ComponentsList) OwnedChangedOwner(world.Entity, world.Entity, world.Entity, bool) {}
func (l *ComponentsList) OwnedAdded(world.Entity, world.Entity)                            {}

// Compound is a rigid body made of the shapes of its components. The
// compound owns its components and deletes them with itself; any other
// ownership change of a component is fatal.
type Compound struct {
	*PhyObject
	list       *ComponentsList
	components []*Component
	skipChecks bool
}

var CompoundKind = world.Kind[*Compound, BodyShared]{
	Name:   "compound",
	Shared: defaultBodyShared,
	Renderer: func(*Compound) world.Renderer[BodyShared] {
		return world.RendererFunc[BodyShared](func(s *BodyShared, ctx *world.RenderContext) {
			renderObject(&s.ObjectShared, s.Transform, ctx, func(tm mgl64.Mat4) {
				for _, p := range s.Parts {
					ptm := tm.Mul4(mgl64.Translate3D(p.Offset.X(), p.Offset.Y(), p.Offset.Z()))
					if p.Shape == physics.Sphere {
						d := p.Radius * 2
						ctx.Draw.Add(shapeCommand(world.DrawSphere, &s.ObjectShared, ptm, mgl64.Vec3{d, d, d}))
					} else {
						ctx.Draw.Add(shapeCommand(world.DrawBox, &s.ObjectShared, ptm, p.Size))
					}
				}
			})
			if s.Flags&Visible != 0 {
				renderForce(s.Transform, s.Force, &s.ObjectShared, ctx)
			}
		})
	},
}

// NewCompound builds a compound from the components in list. The mass of
// the compound is the sum of the component masses unless WithMass is given.
// The list is left empty and cannot be reused.
func NewCompound(w *world.World, name string, list *ComponentsList, opts ...BodyOption) (*Compound, error) {
	if list.world != w {
		return nil, ErrForeignComponents
	}
	if list.used {
		return nil, ErrComponentsUsed
	}
	if list.Len() == 0 {
		return nil, ErrEmptyComponents
	}

	o := defaultBodyOptions()
	o.Mass = 0
	parts := make([]physics.Part, 0, list.Len())
	for _, c := range list.components {
		parts = append(parts, c.part)
		o.Mass += c.mass
	}
	for _, opt := range opts {
		opt(&o)
	}

	return world.CreateEntity(w, CompoundKind, func(c world.Construction[BodyShared]) (*Compound, error) {
		c.Shared().Modify(func(s *BodyShared) {
			s.Shape = physics.Compound
			s.Parts = parts
		})
		p, err := newPhyObject(c, name, o)
		if err != nil {
			return nil, err
		}
		return &Compound{PhyObject: p, list: list}, nil
	})
}

// PostCreate adds the body and takes ownership of the components.
func (c *Compound) PostCreate() error {
	if err := c.PhyObject.PostCreate(); err != nil {
		return err
	}
	c.list.release(func(comp *Component) {
		if err := comp.SetOwner(c, true); err != nil {
			c.World().Fatal("cannot attach compound component", log.String("component", comp.Name()), log.Error(err))
			return
		}
		comp.RegisterOwnershipChangesListener(c)
		c.components = append(c.components, comp)
	})
	c.list = nil
	return nil
}

func (c *Compound) Destroy() {
	c.skipChecks = true
	for _, comp := range c.components {
		comp.RegisterOwnershipChangesListener(nil)
	}
	c.PhyObject.Destroy()
}

func (c *Compound) Components() []*Component { return c.components }

func (c *Compound) violation(what string, entity world.Entity) {
	if c.skipChecks {
		return
	}
	c.World().Fatal(fmt.Sprintf("component of compound %q %s", c.Name(), what),
		log.String("component", entity.Base().Name()))
}

func (c *Compound) OwnerChanged(entity, _ world.Entity) { c.violation("changed owner", entity) }
func (c *Compound) EntityDestroyed(entity world.Entity) { c.violation("was destroyed", entity) }

func (c *Compound) ListenerChanged(entity world.Entity, _ world.ChangesListener) {
	c.violation("changed listener", entity)
}

func (c *Compound) OwnedChangedOwner(world.Entity, world.Entity, world.Entity, bool) {}
func (c *Compound) OwnedAdded(world.Entity, world.Entity)                            {}
