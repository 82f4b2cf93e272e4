package objects

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/world"
)

// renderObject emits the commands shared by every positioned object: the
// shape, the local axes and the label. Invisible objects draw nothing.
func renderObject(s *ObjectShared, tm mgl64.Mat4, ctx *world.RenderContext, shape func(tm mgl64.Mat4)) {
	if s.Flags&Visible == 0 {
		return
	}
	if ctx.DrawObjects && shape != nil {
		shape(tm)
	}
	if s.Flags&DrawLocalReferenceFrame != 0 || ctx.DrawAxes {
		ctx.Draw.Add(world.DrawCommand{Kind: world.DrawAxes, Transform: tm, Color: s.Color})
	}
	if s.Label != "" && (s.Flags&DrawLabel != 0 || ctx.DrawLabels) {
		ctx.Draw.Add(world.DrawCommand{
			Kind:      world.DrawLabel,
			Transform: tm.Mul4(mgl64.Translate3D(s.LabelPos.X(), s.LabelPos.Y(), s.LabelPos.Z())),
			Color:     s.LabelColor,
			Text:      s.Label,
		})
	}
}

func shapeCommand(kind world.DrawKind, s *ObjectShared, tm mgl64.Mat4, size mgl64.Vec3) world.DrawCommand {
	return world.DrawCommand{
		Kind:      kind,
		Transform: tm,
		Size:      size,
		Color:     s.Color,
		Texture:   s.Texture,
		Text:      s.Label,
	}
}

func renderForce(tm mgl64.Mat4, force mgl64.Vec3, s *ObjectShared, ctx *world.RenderContext) {
	if !ctx.DrawForces || force.Len() == 0 {
		return
	}
	from := tm.Col(3).Vec3()
	ctx.Draw.Add(world.DrawCommand{Kind: world.DrawLine, From: from, To: from.Add(force), Color: s.Color})
}
