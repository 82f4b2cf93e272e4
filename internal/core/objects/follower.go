package objects

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/world"
)

// FollowerShared is the shared block of owner followers.
type FollowerShared struct {
	ObjectShared
	Displacement mgl64.Mat4 `json:"displacement"`
}

func (s *FollowerShared) Follower() *FollowerShared { return s }

// Final is the transform renderers use: the displacement applied in the
// frame of the followed object.
func (s *FollowerShared) Final() mgl64.Mat4 {
	return s.Transform.Mul4(s.Displacement)
}

type followerBlock[T any] interface {
	objectBlock[T]
	Follower() *FollowerShared
}

// OwnerFollower is a purely graphical object copying the transform of its
// owner after every step.
type OwnerFollower struct {
	*WObject
	modifyFollower func(fn func(s *FollowerShared))
	readFollower   func() *FollowerShared
}

func newOwnerFollower[T any, PT followerBlock[T]](c world.Construction[T], name string, disp, tm mgl64.Mat4) (*OwnerFollower, error) {
	obj, err := newWObject[T, PT](c, name, tm)
	if err != nil {
		return nil, err
	}
	w := c.Shared()
	f := &OwnerFollower{
		WObject:      obj,
		readFollower: func() *FollowerShared { return PT(w.Get()).Follower() },
		modifyFollower: func(fn func(s *FollowerShared)) {
			w.Modify(func(t *T) { fn(PT(t).Follower()) })
		},
	}
	f.SetDisplacement(disp)
	return f, nil
}

var FollowerKind = world.Kind[*OwnerFollower, FollowerShared]{
	Name:   "owner_follower",
	Shared: func() FollowerShared { return FollowerShared{ObjectShared: defaultObjectShared(), Displacement: mgl64.Ident4()} },
	Renderer: func(*OwnerFollower) world.Renderer[FollowerShared] {
		return world.RendererFunc[FollowerShared](func(s *FollowerShared, ctx *world.RenderContext) {
			renderObject(&s.ObjectShared, s.Final(), ctx, nil)
		})
	},
}

// NewOwnerFollower creates a follower with the given displacement from its
// owner. Set its owner with SetOwner.
func NewOwnerFollower(w *world.World, name string, disp mgl64.Mat4) (*OwnerFollower, error) {
	return world.CreateEntity(w, FollowerKind, func(c world.Construction[FollowerShared]) (*OwnerFollower, error) {
		return newOwnerFollower(c, name, disp, mgl64.Ident4())
	})
}

func (f *OwnerFollower) Displacement() mgl64.Mat4 { return f.readFollower().Displacement }

func (f *OwnerFollower) SetDisplacement(disp mgl64.Mat4) {
	f.modifyFollower(func(s *FollowerShared) { s.Displacement = disp })
}

func (f *OwnerFollower) PostUpdate() {
	if owner := f.Owner(); owner != nil {
		if tm, ok := matrixOf(owner); ok {
			f.SetMatrix(tm)
		}
	}
}

// MarkerShape is the figure drawn by a Marker.
type MarkerShape uint8

const (
	CircleMarker MarkerShape = iota
	ArrowMarker
)

// MarkerShared is the shared block of markers.
type MarkerShared struct {
	FollowerShared
	Shape  MarkerShape `json:"shape"`
	Radius float64     `json:"radius"`
	Length float64     `json:"length"`
	Width  float64     `json:"width"`
}

// Marker is an owner follower drawing a planar circle or arrow, used to
// highlight objects in views.
type Marker struct {
	*OwnerFollower
	read   func() *MarkerShared
	modify func(fn func(s *MarkerShared))
}

var MarkerKind = world.Kind[*Marker, MarkerShared]{
	Name: "marker",
	Shared: func() MarkerShared {
		return MarkerShared{FollowerShared: FollowerShared{ObjectShared: defaultObjectShared(), Displacement: mgl64.Ident4()}}
	},
	Renderer: func(*Marker) world.Renderer[MarkerShared] {
		return world.RendererFunc[MarkerShared](func(s *MarkerShared, ctx *world.RenderContext) {
			renderObject(&s.ObjectShared, s.Final(), ctx, func(tm mgl64.Mat4) {
				size := mgl64.Vec3{s.Radius * 2, s.Radius * 2, 0}
				if s.Shape == ArrowMarker {
					size = mgl64.Vec3{s.Length, s.Width, 0}
				}
				ctx.Draw.Add(shapeCommand(world.DrawMarker, &s.ObjectShared, tm, size))
			})
		})
	},
}

// NewCircleMarker creates a planar circle of the given radius.
func NewCircleMarker(w *world.World, name string, radius float64, disp mgl64.Mat4) (*Marker, error) {
	return newMarker(w, name, disp, func(s *MarkerShared) {
		s.Shape = CircleMarker
		s.Radius = radius
	})
}

// NewArrowMarker creates a planar arrow pointing along the local X axis.
func NewArrowMarker(w *world.World, name string, length, width float64, disp mgl64.Mat4) (*Marker, error) {
	return newMarker(w, name, disp, func(s *MarkerShared) {
		s.Shape = ArrowMarker
		s.Length = length
		s.Width = width
	})
}

func newMarker(w *world.World, name string, disp mgl64.Mat4, init func(s *MarkerShared)) (*Marker, error) {
	return world.CreateEntity(w, MarkerKind, func(c world.Construction[MarkerShared]) (*Marker, error) {
		f, err := newOwnerFollower(c, name, disp, mgl64.Ident4())
		if err != nil {
			return nil, err
		}
		sw := c.Shared()
		sw.Modify(init)
		return &Marker{
			OwnerFollower: f,
			read:          sw.Get,
			modify:        sw.Modify,
		}, nil
	})
}

func (m *Marker) Shape() MarkerShape { return m.read().Shape }
func (m *Marker) Radius() float64    { return m.read().Radius }

func (m *Marker) SetRadius(r float64) {
	m.modify(func(s *MarkerShared) { s.Radius = r })
}
