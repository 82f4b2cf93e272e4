package objects

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldsim/internal/core/physics"
	"github.com/zeusync/worldsim/internal/core/world"
)

func TestBox_Falls(t *testing.T) {
	w := newPhysicsWorld(t, -9.8)
	box, err := NewBox(w, "box", mgl64.Vec3{1, 1, 1}, At(mgl64.Translate3D(0, 10, 0)))
	require.NoError(t, err)
	ground, err := NewBox(w, "ground", mgl64.Vec3{100, 1, 1}, Static(), At(mgl64.Translate3D(0, -20, 0)))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		w.Advance()
	}
	assert.Less(t, box.Position().Y(), 10.0)
	assert.Less(t, box.Velocity().Y(), 0.0)
	assert.Equal(t, mgl64.Vec3{0, -20, 0}, ground.Position())
	assert.Equal(t, physics.Static, ground.BodyKind())
	assert.Equal(t, mgl64.Vec3{100, 1, 1}, ground.Size())
}

func TestPhyObject_BodyLifecycle(t *testing.T) {
	engine := physics.NewNullEngine()
	w := newWorld(world.WithEngine(engine))

	s, err := NewSphere(w, "ball", 0.5, WithMass(2))
	require.NoError(t, err)
	require.NotNil(t, s.PhysicsBody())
	assert.Equal(t, 1, engine.Bodies())
	assert.Equal(t, 2.0, s.Mass())
	assert.Equal(t, 0.5, s.Radius())
	assert.Equal(t, physics.MaterialDefault, s.Material())
	assert.Same(t, s, s.PhysicsBody().Owner())

	tm := mgl64.Translate3D(1, 2, 3)
	s.SetMatrix(tm)
	assert.Equal(t, tm, s.PhysicsBody().Transform())

	s.SetVelocity(mgl64.Vec3{1, 0, 0})
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, s.Velocity())

	w.DeleteEntity(s)
	assert.Equal(t, 0, engine.Bodies())
	assert.Nil(t, s.PhysicsBody())
	assert.Equal(t, mgl64.Vec3{}, s.Velocity())
}

func TestPhyObject_CreationErrors(t *testing.T) {
	engine := physics.NewNullEngine()
	w := newWorld(world.WithEngine(engine))

	_, err := NewBox(w, "box", mgl64.Vec3{1, 1, 1}, WithMaterial("unobtainium"))
	require.ErrorIs(t, err, physics.ErrUnknownMaterial)

	_, err = NewSphere(w, "ball", 0)
	require.ErrorIs(t, err, physics.ErrInvalidBody)

	_, err = NewBox(w, "massless", mgl64.Vec3{1, 1, 1}, WithMass(0))
	require.ErrorIs(t, err, physics.ErrInvalidBody)

	assert.Empty(t, w.Entities())
	assert.Equal(t, 0, engine.Bodies())
}

func TestPhyObject_Material(t *testing.T) {
	w := newWorld()
	require.True(t, w.Materials().CreateMaterial("rubber"))

	b, err := NewBox(w, "box", mgl64.Vec3{1, 1, 1}, WithMaterial("rubber"), Kinematic())
	require.NoError(t, err)
	assert.Equal(t, "rubber", b.Material())
	assert.Equal(t, "rubber", b.PhysicsBody().Material())
	assert.Equal(t, physics.Kinematic, b.PhysicsBody().Kind())
}

func TestPhyObject_Forces(t *testing.T) {
	w := newPhysicsWorld(t, 0)
	b, err := NewBox(w, "box", mgl64.Vec3{1, 1, 1})
	require.NoError(t, err)

	b.AddForce(mgl64.Vec3{10, 0, 0})
	w.Advance()
	assert.Equal(t, mgl64.Vec3{10, 0, 0}, b.AppliedForce())
	assert.Greater(t, b.Velocity().X(), 0.0)

	w.Advance()
	assert.Equal(t, mgl64.Vec3{}, b.AppliedForce())
	assert.Greater(t, b.Position().X(), 0.0)
}

func TestBodyRenderers(t *testing.T) {
	s := defaultBodyShared()
	s.Size = mgl64.Vec3{1, 2, 3}
	s.Radius = 2
	s.Force = mgl64.Vec3{1, 0, 0}

	ctx := world.NewRenderContext()
	BoxKind.Renderer(nil).Render(&s, ctx)
	require.Equal(t, []world.DrawKind{world.DrawBox}, kinds(ctx.Draw.Commands))
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, ctx.Draw.Commands[0].Size)

	ctx = world.NewRenderContext()
	ctx.DrawForces = true
	SphereKind.Renderer(nil).Render(&s, ctx)
	require.Equal(t, []world.DrawKind{world.DrawSphere, world.DrawLine}, kinds(ctx.Draw.Commands))
	assert.Equal(t, mgl64.Vec3{4, 4, 4}, ctx.Draw.Commands[0].Size)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, ctx.Draw.Commands[1].To)
}
