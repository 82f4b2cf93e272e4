// Package objects holds the concrete entity types built on the world
// package: positioned objects, owner followers, markers, physical bodies,
// compound bodies, joints, ray sensors and motors.
package objects

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/world"
)

// Flags select how an object is drawn.
type Flags uint8

const (
	Visible Flags = 1 << iota
	DrawLocalReferenceFrame
	DrawLabel
)

// ObjectShared is embedded by the shared block of every positioned object.
type ObjectShared struct {
	world.EntityShared
	Transform  mgl64.Mat4  `json:"transform"`
	Flags      Flags       `json:"flags"`
	Label      string      `json:"label,omitempty"`
	LabelPos   mgl64.Vec3  `json:"label_pos"`
	LabelColor color.NRGBA `json:"label_color"`
}

func (s *ObjectShared) Object() *ObjectShared { return s }

func defaultObjectShared() ObjectShared {
	return ObjectShared{
		Transform:  mgl64.Ident4(),
		Flags:      Visible,
		LabelColor: color.NRGBA{A: 255},
	}
}

type objectBlock[T any] interface {
	world.SharedBlock[T]
	Object() *ObjectShared
}

// WObject is an entity with a transform, a label and draw flags.
type WObject struct {
	*world.WEntity

	read   func() *ObjectShared
	modify func(fn func(s *ObjectShared))

	// matrixChanged runs after every transform change made through the
	// setters. Bodies use it to move their physics body.
	matrixChanged func(tm mgl64.Mat4)
}

func newWObject[T any, PT objectBlock[T]](c world.Construction[T], name string, tm mgl64.Mat4) (*WObject, error) {
	base, err := world.NewWEntity(c, name)
	if err != nil {
		return nil, err
	}
	w := c.Shared()
	o := &WObject{
		WEntity: base,
		read:    func() *ObjectShared { return PT(w.Get()).Object() },
		modify: func(fn func(s *ObjectShared)) {
			w.Modify(func(t *T) { fn(PT(t).Object()) })
		},
	}
	o.modify(func(s *ObjectShared) { s.Transform = tm })
	return o, nil
}

// ObjectKind is the kind of plain WObjects.
var ObjectKind = world.Kind[*WObject, ObjectShared]{
	Name:   "wobject",
	Shared: defaultObjectShared,
	Renderer: func(*WObject) world.Renderer[ObjectShared] {
		return world.RendererFunc[ObjectShared](func(s *ObjectShared, ctx *world.RenderContext) {
			renderObject(s, s.Transform, ctx, nil)
		})
	},
}

// NewWObject creates a plain object at tm.
func NewWObject(w *world.World, name string, tm mgl64.Mat4) (*WObject, error) {
	return world.CreateEntity(w, ObjectKind, func(c world.Construction[ObjectShared]) (*WObject, error) {
		return newWObject(c, name, tm)
	})
}

func (o *WObject) Matrix() mgl64.Mat4 { return o.read().Transform }

func (o *WObject) Position() mgl64.Vec3 { return o.read().Transform.Col(3).Vec3() }

func (o *WObject) SetMatrix(tm mgl64.Mat4) {
	o.modify(func(s *ObjectShared) { s.Transform = tm })
	if o.matrixChanged != nil {
		o.matrixChanged(tm)
	}
}

func (o *WObject) SetPosition(pos mgl64.Vec3) {
	tm := o.Matrix()
	tm.SetCol(3, pos.Vec4(1))
	o.SetMatrix(tm)
}

// setMatrixQuiet updates the transform without running matrixChanged.
func (o *WObject) setMatrixQuiet(tm mgl64.Mat4) {
	o.modify(func(s *ObjectShared) { s.Transform = tm })
}

func (o *WObject) IsInvisible() bool { return o.read().Flags&Visible == 0 }

func (o *WObject) SetInvisible(invisible bool) {
	o.setFlag(Visible, !invisible)
}

func (o *WObject) LocalAxesDrawn() bool { return o.read().Flags&DrawLocalReferenceFrame != 0 }

func (o *WObject) SetLocalAxesDrawn(drawn bool) {
	o.setFlag(DrawLocalReferenceFrame, drawn)
}

func (o *WObject) LabelShown() bool { return o.read().Flags&DrawLabel != 0 }

func (o *WObject) SetLabelShown(shown bool) {
	o.setFlag(DrawLabel, shown)
}

func (o *WObject) setFlag(f Flags, on bool) {
	o.modify(func(s *ObjectShared) {
		if on {
			s.Flags |= f
		} else {
			s.Flags &^= f
		}
	})
}

func (o *WObject) Label() string                 { return o.read().Label }
func (o *WObject) LabelPosition() mgl64.Vec3     { return o.read().LabelPos }
func (o *WObject) LabelColor() color.NRGBA       { return o.read().LabelColor }
func (o *WObject) SetLabel(label string)         { o.modify(func(s *ObjectShared) { s.Label = label }) }
func (o *WObject) SetLabelPosition(p mgl64.Vec3) { o.modify(func(s *ObjectShared) { s.LabelPos = p }) }
func (o *WObject) SetLabelColor(c color.NRGBA)   { o.modify(func(s *ObjectShared) { s.LabelColor = c }) }

// matrixOf returns the transform of e when it is a positioned object. The
// physics body is preferred so followers see the transform of the current
// step whatever the update order.
func matrixOf(e world.Entity) (mgl64.Mat4, bool) {
	type matrixer interface{ Matrix() mgl64.Mat4 }
	if h, ok := e.(world.BodyHolder); ok && h.PhysicsBody() != nil {
		return h.PhysicsBody().Transform(), true
	}
	if m, ok := e.(matrixer); ok {
		return m.Matrix(), true
	}
	return mgl64.Mat4{}, false
}
