package objects

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldsim/internal/core/physics"
	"github.com/zeusync/worldsim/internal/core/world"
)

func buildCompound(t *testing.T, w *world.World) (*Compound, []*Component) {
	t.Helper()
	list := NewComponentsList(w)
	a, err := list.AddBox("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, 1)
	require.NoError(t, err)
	b, err := list.AddSphere("b", 0.5, mgl64.Vec3{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, list.Len())

	c, err := NewCompound(w, "compound", list)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Len())
	return c, []*Component{a, b}
}

func TestCompound_Build(t *testing.T) {
	engine := physics.NewNullEngine()
	w := newWorld(world.WithEngine(engine))
	c, comps := buildCompound(t, w)

	assert.Equal(t, 3.0, c.Mass())
	assert.Equal(t, comps, c.Components())
	assert.Equal(t, 1, engine.Bodies())

	owned := c.Owned()
	require.Len(t, owned, 2)
	for i, o := range owned {
		assert.Same(t, comps[i], o.Entity)
		assert.True(t, o.Destroy)
		assert.Same(t, c, comps[i].Listener())
	}

	assert.Equal(t, []world.Entity{c}, w.Entities())
	assert.Len(t, w.ShadowEntities(), 2)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, comps[1].Position())
	assert.Equal(t, physics.Sphere, comps[1].Part().Shape)
	assert.Equal(t, 2.0, comps[1].Mass())
}

func TestCompound_DeleteCascades(t *testing.T) {
	engine := physics.NewNullEngine()
	w := newWorld(world.WithEngine(engine))
	c, comps := buildCompound(t, w)

	w.DeleteEntity(c)
	for _, comp := range comps {
		assert.False(t, w.Contains(comp))
	}
	assert.Empty(t, w.ShadowEntities())
	assert.Equal(t, 0, engine.Bodies())
}

func TestCompound_Errors(t *testing.T) {
	w := newWorld()

	_, err := NewCompound(w, "empty", NewComponentsList(w))
	require.ErrorIs(t, err, ErrEmptyComponents)

	other := newWorld()
	foreign := NewComponentsList(other)
	_, err = foreign.AddBox("x", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, 1)
	require.NoError(t, err)
	_, err = NewCompound(w, "foreign", foreign)
	require.ErrorIs(t, err, ErrForeignComponents)

	list := NewComponentsList(w)
	_, err = list.AddBox("y", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, 1)
	require.NoError(t, err)
	_, err = NewCompound(w, "first", list)
	require.NoError(t, err)
	_, err = NewCompound(w, "second", list)
	require.ErrorIs(t, err, ErrComponentsUsed)
	_, err = list.AddBox("z", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, 1)
	require.ErrorIs(t, err, ErrComponentsUsed)
}

func TestCompound_MassOverride(t *testing.T) {
	w := newWorld()
	list := NewComponentsList(w)
	_, err := list.AddBox("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, 1)
	require.NoError(t, err)

	c, err := NewCompound(w, "compound", list, WithMass(10), Static())
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.Mass())
	assert.Equal(t, physics.Static, c.BodyKind())
}

func TestCompound_ComponentViolationsAreFatal(t *testing.T) {
	tests := []struct {
		name string
		fn   func(w *world.World, c *Compound, comp *Component)
	}{
		{"owner change", func(w *world.World, _ *Compound, comp *Component) {
			other, err := NewWObject(w, "other", mgl64.Ident4())
			require.NoError(t, err)
			_ = comp.SetOwner(other, false)
		}},
		{"destroyed", func(w *world.World, _ *Compound, comp *Component) {
			w.DeleteEntity(comp)
		}},
		{"listener change", func(_ *world.World, _ *Compound, comp *Component) {
			comp.RegisterOwnershipChangesListener(nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld()
			c, comps := buildCompound(t, w)
			fe := requireFatal(t, func() { tt.fn(w, c, comps[0]) })
			assert.Contains(t, fe.Msg, `compound "compound"`)
		})
	}
}

func TestComponentsList_ViolationsAreFatal(t *testing.T) {
	w := newWorld()
	list := NewComponentsList(w)
	comp, err := list.AddBox("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, 1)
	require.NoError(t, err)
	owner, err := NewWObject(w, "owner", mgl64.Ident4())
	require.NoError(t, err)

	fe := requireFatal(t, func() { _ = comp.SetOwner(owner, true) })
	assert.Contains(t, fe.Msg, "components list")
}

func TestComponentsList_Close(t *testing.T) {
	w := newWorld()
	list := NewComponentsList(w)
	a, err := list.AddBox("a", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, 1)
	require.NoError(t, err)
	assert.Same(t, list, a.Listener())
	assert.True(t, w.Contains(a))
	assert.Empty(t, w.Entities())

	list.Close()
	assert.False(t, w.Contains(a))
	assert.Equal(t, 0, list.Len())
}

func TestCompound_Renderer(t *testing.T) {
	s := defaultBodyShared()
	s.Shape = physics.Compound
	s.Parts = []physics.Part{
		{Shape: physics.Box, Size: mgl64.Vec3{1, 1, 1}},
		{Shape: physics.Sphere, Radius: 0.5, Offset: mgl64.Vec3{2, 0, 0}},
	}
	ctx := world.NewRenderContext()
	CompoundKind.Renderer(nil).Render(&s, ctx)

	require.Equal(t, []world.DrawKind{world.DrawBox, world.DrawSphere}, kinds(ctx.Draw.Commands))
	assert.Equal(t, mgl64.Vec3{2, 0, 0}, ctx.Draw.Commands[1].Transform.Col(3).Vec3())
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, ctx.Draw.Commands[1].Size)
}
