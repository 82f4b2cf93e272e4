package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialDB_InitialMaterials(t *testing.T) {
	db := NewMaterialDB()
	assert.True(t, db.Has(MaterialDefault))
	assert.True(t, db.Has(MaterialNonCollidable))
	assert.Len(t, db.Materials(), 2)
}

func TestMaterialDB_CreateMaterial(t *testing.T) {
	db := NewMaterialDB()
	assert.True(t, db.CreateMaterial("rubber"))
	assert.False(t, db.CreateMaterial("rubber"))
	assert.False(t, db.CreateMaterial(MaterialDefault))
	assert.True(t, db.Has("rubber"))
}

func TestMaterialDB_PairsAreUnordered(t *testing.T) {
	db := NewMaterialDB()
	db.CreateMaterial("ice")
	db.CreateMaterial("steel")

	require.NoError(t, db.SetFrictions("ice", "steel", 0.1, 0.05))
	require.NoError(t, db.SetElasticity("steel", "ice", 0.2))

	p := db.Pair("steel", "ice")
	assert.Equal(t, 0.1, p.StaticFriction)
	assert.Equal(t, 0.05, p.DynamicFriction)
	assert.Equal(t, 0.2, p.Elasticity)
	assert.Equal(t, DefaultPairProperties.Softness, p.Softness)
	assert.Equal(t, p, db.Pair("ice", "steel"))
}

func TestMaterialDB_UnknownMaterial(t *testing.T) {
	db := NewMaterialDB()
	tests := []struct {
		name string
		call func() error
	}{
		{"frictions", func() error { return db.SetFrictions("nope", MaterialDefault, 1, 1) }},
		{"elasticity", func() error { return db.SetElasticity(MaterialDefault, "nope", 1) }},
		{"softness", func() error { return db.SetSoftness("nope", "nope", 1) }},
		{"collision", func() error { return db.EnableCollision("nope", MaterialDefault, false) }},
		{"properties", func() error { return db.SetProperties("nope", MaterialDefault, PairProperties{}) }},
		{"gravity", func() error { return db.SetGravitationalAcceleration("nope", 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), ErrUnknownMaterial)
		})
	}
}

func TestMaterialDB_Collisions(t *testing.T) {
	db := NewMaterialDB()
	db.CreateMaterial("ghost")

	assert.True(t, db.Pair(MaterialDefault, "ghost").Collisions)
	require.NoError(t, db.EnableCollision(MaterialDefault, "ghost", false))
	assert.False(t, db.Pair("ghost", MaterialDefault).Collisions)

	require.NoError(t, db.EnableCollision(MaterialNonCollidable, MaterialDefault, true))
	assert.False(t, db.Pair(MaterialDefault, MaterialNonCollidable).Collisions)
}

func TestMaterialDB_Gravity(t *testing.T) {
	db := NewMaterialDB()
	_, ok := db.GravitationalAcceleration(MaterialDefault)
	assert.False(t, ok)

	require.NoError(t, db.SetGravitationalAcceleration(MaterialDefault, -1.6))
	g, ok := db.GravitationalAcceleration(MaterialDefault)
	assert.True(t, ok)
	assert.Equal(t, -1.6, g)
}

func TestMaterialDB_Version(t *testing.T) {
	db := NewMaterialDB()
	v := db.Version()

	db.CreateMaterial("ice")
	assert.Greater(t, db.Version(), v)
	v = db.Version()

	db.CreateMaterial("ice")
	db.Pair("ice", MaterialDefault)
	assert.Equal(t, v, db.Version())

	require.NoError(t, db.SetFrictions("ice", MaterialDefault, 0.1, 0.02))
	assert.Greater(t, db.Version(), v)
	v = db.Version()

	require.NoError(t, db.SetGravitationalAcceleration("ice", -1))
	assert.Greater(t, db.Version(), v)
}

func TestMaterialDB_Surface(t *testing.T) {
	db := NewMaterialDB()
	db.CreateMaterial("ice")
	db.CreateMaterial("rubber")
	require.NoError(t, db.SetFrictions("ice", MaterialDefault, 0.1, 0.02))
	require.NoError(t, db.SetElasticity("ice", MaterialDefault, 0.1))
	require.NoError(t, db.SetFrictions("rubber", "rubber", 1, 0.81))

	du, de := db.Surface(MaterialDefault)
	assert.InDelta(t, DefaultPairProperties.DynamicFriction, du*du, 1e-12)
	assert.InDelta(t, DefaultPairProperties.Elasticity, de*de, 1e-12)

	iu, ie := db.Surface("ice")
	assert.InDelta(t, 0.02, iu*du, 1e-12)
	assert.InDelta(t, 0.1, ie*de, 1e-12)

	ru, _ := db.Surface("rubber")
	assert.InDelta(t, 0.9, ru, 1e-12)

	require.NoError(t, db.SetElasticity("rubber", MaterialDefault, 1))
	_, re := db.Surface("rubber")
	assert.Equal(t, 1.0, re)
}

func TestBodySpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    BodySpec
		wantErr bool
	}{
		{"box", BodySpec{Shape: Box, Size: mgl64.Vec3{1, 1, 1}, Mass: 1}, false},
		{"flat box", BodySpec{Shape: Box, Size: mgl64.Vec3{1, 0, 1}, Mass: 1}, true},
		{"sphere", BodySpec{Shape: Sphere, Radius: 0.5, Mass: 1}, false},
		{"no radius", BodySpec{Shape: Sphere, Mass: 1}, true},
		{"massless dynamic", BodySpec{Shape: Sphere, Radius: 1}, true},
		{"massless static", BodySpec{Kind: Static, Shape: Sphere, Radius: 1}, false},
		{"compound", BodySpec{Shape: Compound, Mass: 1, Parts: []Part{
			{Shape: Box, Size: mgl64.Vec3{1, 1, 1}},
			{Shape: Sphere, Radius: 0.5, Offset: mgl64.Vec3{1, 0, 0}},
		}}, false},
		{"empty compound", BodySpec{Shape: Compound, Mass: 1}, true},
		{"compound with bad part", BodySpec{Shape: Compound, Mass: 1, Parts: []Part{{Shape: Sphere}}}, true},
		{"unknown shape", BodySpec{Shape: ShapeKind(9), Mass: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBody)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJointSpec_Validate(t *testing.T) {
	e := NewNullEngine()
	dyn, err := e.AddBody(BodySpec{Shape: Sphere, Radius: 1, Mass: 1})
	require.NoError(t, err)
	other, err := e.AddBody(BodySpec{Shape: Sphere, Radius: 1, Mass: 1})
	require.NoError(t, err)
	wall, err := e.AddBody(BodySpec{Kind: Static, Shape: Sphere, Radius: 1})
	require.NoError(t, err)

	tests := []struct {
		name    string
		spec    JointSpec
		wantErr bool
	}{
		{"hinge to world", JointSpec{Kind: HingeJoint, Child: dyn}, false},
		{"fixed pair", JointSpec{Kind: FixedJoint, Parent: dyn, Child: other}, false},
		{"static child on dynamic parent", JointSpec{Parent: dyn, Child: wall}, false},
		{"no child", JointSpec{Kind: HingeJoint, Parent: dyn}, true},
		{"itself", JointSpec{Parent: dyn, Child: dyn}, true},
		{"static only", JointSpec{Child: wall}, true},
		{"unknown kind", JointSpec{Kind: JointKind(7), Child: dyn}, true},
		{"inverted limits", JointSpec{Kind: HingeJoint, Child: dyn, Limits: true, Lower: 1, Upper: -1}, true},
		{"slider", JointSpec{Kind: SliderJoint, Child: dyn, Axis: mgl64.Vec3{1, 0, 0}}, false},
		{"slider along z", JointSpec{Kind: SliderJoint, Child: dyn, Axis: mgl64.Vec3{0, 0, 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidJoint)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNullEngine_Joints(t *testing.T) {
	e := NewNullEngine()
	a, err := e.AddBody(BodySpec{Shape: Sphere, Radius: 1, Mass: 1})
	require.NoError(t, err)
	b, err := e.AddBody(BodySpec{Shape: Sphere, Radius: 1, Mass: 1})
	require.NoError(t, err)

	j, err := e.AddJoint(JointSpec{Kind: HingeJoint, Parent: a, Child: b, Owner: "hinge"})
	require.NoError(t, err)
	assert.Equal(t, "hinge", j.Owner())
	assert.Equal(t, HingeJoint, j.Kind())
	_, err = e.AddJoint(JointSpec{Kind: FixedJoint, Child: b})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Joints())

	e.RemoveJoint(j)
	assert.Equal(t, 1, e.Joints())
	e.RemoveBody(b)
	assert.Zero(t, e.Joints())
}

func TestNullEngine(t *testing.T) {
	e := NewNullEngine()
	tm := mgl64.Translate3D(1, 2, 3)
	b, err := e.AddBody(BodySpec{Shape: Sphere, Radius: 1, Mass: 1, Transform: tm, Owner: "owner"})
	require.NoError(t, err)

	assert.Equal(t, "owner", b.Owner())
	assert.Equal(t, tm, b.Transform())
	assert.Equal(t, 1, e.Bodies())

	e.Step(0.1)
	e.Step(0.1)
	assert.Equal(t, 2, e.Steps())
	assert.Equal(t, tm, b.Transform())
	assert.Empty(t, e.Contacts())
	assert.Empty(t, e.RayCast(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, false))

	e.RemoveBody(b)
	assert.Zero(t, e.Bodies())
	require.NoError(t, e.Close())
}
