package objects

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/world"
)

// RayShared is the shared block of ray sensors. Start and End are in world
// coordinates as of the last step.
type RayShared struct {
	ObjectShared
	Start    mgl64.Vec3 `json:"start"`
	End      mgl64.Vec3 `json:"end"`
	Hit      bool       `json:"hit"`
	Distance float64    `json:"distance"`
}

// RaySensor casts a ray fixed in the frame of its owner after every step.
// The owner is never reported as hit.
type RaySensor struct {
	*WObject
	read   func() *RayShared
	modify func(fn func(s *RayShared))

	localStart, localEnd mgl64.Vec3
	hit                  world.RayCastHit
}

var RaySensorKind = world.Kind[*RaySensor, RayShared]{
	Name:   "ray_sensor",
	Shared: func() RayShared { return RayShared{ObjectShared: defaultObjectShared(), Distance: 1} },
	Renderer: func(*RaySensor) world.Renderer[RayShared] {
		return world.RendererFunc[RayShared](func(s *RayShared, ctx *world.RenderContext) {
			if s.Flags&Visible == 0 || !ctx.DrawObjects {
				return
			}
			to := s.Start.Add(s.End.Sub(s.Start).Mul(s.Distance))
			ctx.Draw.Add(world.DrawCommand{Kind: world.DrawLine, From: s.Start, To: to, Color: s.Color})
		})
	},
}

// NewRaySensor creates a sensor casting from start to end, both in the
// frame of the owner. Attach it with SetOwner.
func NewRaySensor(w *world.World, name string, start, end mgl64.Vec3) (*RaySensor, error) {
	return world.CreateEntity(w, RaySensorKind, func(c world.Construction[RayShared]) (*RaySensor, error) {
		obj, err := newWObject(c, name, mgl64.Ident4())
		if err != nil {
			return nil, err
		}
		sw := c.Shared()
		return &RaySensor{
			WObject:    obj,
			read:       sw.Get,
			modify:     sw.Modify,
			localStart: start,
			localEnd:   end,
		}, nil
	})
}

func (r *RaySensor) PostUpdate() {
	tm := mgl64.Ident4()
	var ignored []world.Entity
	if owner := r.Owner(); owner != nil {
		if otm, ok := matrixOf(owner); ok {
			tm = otm
		}
		ignored = append(ignored, owner)
	}
	start := mgl64.TransformCoordinate(r.localStart, tm)
	end := mgl64.TransformCoordinate(r.localEnd, tm)

	hits := r.World().RayCast(start, end, true, ignored...)
	r.hit = world.RayCastHit{Distance: 1, Position: end}
	if len(hits) > 0 {
		r.hit = hits[0]
	}
	r.modify(func(s *RayShared) {
		s.Transform = tm
		s.Start = start
		s.End = end
		s.Hit = len(hits) > 0
		s.Distance = r.hit.Distance
	})
}

// Hit returns the closest hit of the last step. ok is false when nothing
// was hit.
func (r *RaySensor) Hit() (hit world.RayCastHit, ok bool) {
	return r.hit, r.read().Hit
}

// Distance is the normalized distance of the closest hit, 1 when nothing
// was hit.
func (r *RaySensor) Distance() float64 { return r.read().Distance }
