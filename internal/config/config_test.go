package config

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldsim/internal/core/objects"
	"github.com/zeusync/worldsim/internal/core/physics"
	"github.com/zeusync/worldsim/internal/core/physics/chipmunk"
	"github.com/zeusync/worldsim/internal/core/world"
)

const sample = `
world:
  name: arena
  time_step: 0.01
  gravity: -3
  min: [-5, -5, -1]
  max: [5, 5, 1]
physics:
  engine: chipmunk
  iterations: 20
materials:
  - name: ice
  - name: balloon
    gravity: 1.5
pairs:
  - a: ice
    b: default
    dynamic_friction: 0.05
scene:
  - kind: box
    name: floor
    size: [10, 1, 1]
    position: [0, -4, 0]
    static: true
    texture: ground
  - kind: sphere
    name: ball
    radius: 0.5
    mass: 2
    material: balloon
    label: ball
joints:
  - kind: hinge
    name: tether
    child: ball
    anchor: [0, 2, 0]
    limits: [-1, 1]
log:
  level: debug
remote:
  address: ":9000"
  frame_rate: 20
  write_timeout: 500ms
`

func TestLoadYAML(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "arena", c.World.Name)
	assert.Equal(t, 0.01, c.World.TimeStep)
	assert.Equal(t, [3]float64{5, 5, 1}, c.World.Max)
	assert.Equal(t, uint(20), c.Physics.Iterations)
	require.Len(t, c.Materials, 2)
	require.NotNil(t, c.Materials[1].Gravity)
	assert.Equal(t, 1.5, *c.Materials[1].Gravity)

	require.Len(t, c.Pairs, 1)
	assert.Equal(t, 0.05, c.Pairs[0].DynamicFriction)
	assert.Equal(t, physics.DefaultPairProperties.StaticFriction, c.Pairs[0].StaticFriction)
	assert.True(t, c.Pairs[0].Collisions)

	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Remote.Enabled)
	assert.Equal(t, ":9000", c.Remote.Address)
	assert.Equal(t, "/view", c.Remote.Path)
	assert.Equal(t, 500*time.Millisecond, c.Remote.WriteTimeout)
}

func TestLoadYAML_Empty(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadYAML_Malformed(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("world: [unclosed"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"time step", func(c *Config) { c.World.TimeStep = 0 }, "time_step"},
		{"sub nanosecond time step", func(c *Config) { c.World.TimeStep = 1e-10 }, "time_step"},
		{"size", func(c *Config) { c.World.Min[1] = 20 }, "world.min"},
		{"engine", func(c *Config) { c.Physics.Engine = "bullet" }, "bullet"},
		{"unnamed material", func(c *Config) { c.Materials = []Material{{}} }, "without name"},
		{"duplicate material", func(c *Config) { c.Materials = []Material{{Name: "default"}} }, "twice"},
		{"pair", func(c *Config) { c.Pairs = []Pair{{A: "default", B: "lava"}} }, "lava"},
		{"texture", func(c *Config) { c.Textures = map[string]string{"x": ""} }, "texture"},
		{"scene kind", func(c *Config) { c.Scene = []Object{{Kind: "cone"}} }, "cone"},
		{"scene box", func(c *Config) { c.Scene = []Object{{Kind: ObjectBox}} }, "sides"},
		{"scene sphere", func(c *Config) { c.Scene = []Object{{Kind: ObjectSphere}} }, "radius"},
		{"scene material", func(c *Config) { c.Scene = []Object{{Kind: ObjectSphere, Radius: 1, Material: "lava"}} }, "lava"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"remote address", func(c *Config) { c.Remote.Address = "" }, "remote.address"},
		{"frame rate", func(c *Config) { c.Remote.FrameRate = 0 }, "frame_rate"},
		{"draw workers", func(c *Config) { c.Remote.Draw.Workers = -1 }, "workers"},
		{"joint kind", func(c *Config) { c.Joints = []Joint{{Kind: "ball"}} }, "ball"},
		{"joint child", func(c *Config) { c.Joints = []Joint{{Kind: JointHinge, Child: "ghost"}} }, "ghost"},
		{"joint parent", func(c *Config) {
			c.Scene = []Object{{Kind: ObjectSphere, Name: "s", Radius: 1}}
			c.Joints = []Joint{{Kind: JointFixed, Child: "s", Parent: "ghost"}}
		}, "ghost"},
		{"slider axis", func(c *Config) {
			c.Scene = []Object{{Kind: ObjectSphere, Name: "s", Radius: 1}}
			c.Joints = []Joint{{Kind: JointSlider, Child: "s", Axis: [3]float64{0, 0, 1}}}
		}, "axis"},
		{"joint limits", func(c *Config) {
			c.Scene = []Object{{Kind: ObjectSphere, Name: "s", Radius: 1}}
			c.Joints = []Joint{{Kind: JointHinge, Child: "s", Limits: &[2]float64{1, -1}}}
		}, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("remote disabled", func(t *testing.T) {
		c := Default()
		c.Remote = Remote{}
		assert.NoError(t, c.Validate())
	})
}

func TestPopulate(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(sample))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "stripes.png")
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	c.Textures = map[string]string{"stripes": path}

	w := world.New(c.World.Name, c.WorldOptions()...)
	defer w.Close()
	require.IsType(t, &chipmunk.Engine{}, w.Engine())
	assert.Equal(t, 0.01, w.TimeStep())
	assert.Equal(t, -3.0, w.GravitationalAcceleration())

	require.NoError(t, c.Populate(w))

	assert.True(t, w.Materials().Has("ice"))
	g, ok := w.Materials().GravitationalAcceleration("balloon")
	require.True(t, ok)
	assert.Equal(t, 1.5, g)
	assert.Equal(t, 0.05, w.Materials().Pair("default", "ice").DynamicFriction)

	tex, ok := w.Texture("stripes")
	require.True(t, ok)
	assert.Equal(t, 4, tex.Bounds().Dx())

	floor, ok := w.Entity("floor")
	require.True(t, ok)
	box := floor.(*objects.Box)
	assert.Equal(t, physics.Static, box.BodyKind())
	assert.Equal(t, mgl64.Vec3{0, -4, 0}, box.Position())
	assert.Equal(t, "ground", box.Texture(false))

	e, ok := w.Entity("ball")
	require.True(t, ok)
	ball := e.(*objects.Sphere)
	assert.Equal(t, 2.0, ball.Mass())
	assert.Equal(t, "balloon", ball.Material())
	assert.Equal(t, "ball", ball.Label())

	e, ok = w.Entity("tether")
	require.True(t, ok)
	tether := e.(*objects.Joint)
	assert.Equal(t, physics.HingeJoint, tether.JointKind())
	assert.Same(t, ball, tether.Child())
	assert.InDelta(t, 0.0, tether.Anchor().Sub(mgl64.Vec3{0, 2, 0}).Len(), 1e-9)
	assert.Len(t, w.Joints(ball), 1)
}

func TestPopulate_MissingTexture(t *testing.T) {
	c := Default()
	c.Physics.Engine = EngineNull
	c.Textures = map[string]string{"x": filepath.Join(t.TempDir(), "missing.png")}
	w := world.New("w", c.WorldOptions()...)
	err := c.Populate(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `texture "x"`)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "arena", c.World.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestArenaConfig(t *testing.T) {
	c, err := LoadFile(filepath.Join("..", "..", "configs", "arena.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, c.Remote.WriteTimeout)
	assert.Equal(t, Draw{Labels: true, Joints: true, Forces: true}, c.Remote.Draw)
	assert.Len(t, c.Remote.Draw.Options(), 4)

	w := world.New(c.World.Name, c.WorldOptions()...)
	defer w.Close()
	require.NoError(t, c.Populate(w))
	assert.Equal(t, len(c.Scene)+len(c.Joints), w.Stats().Entities)

	e, ok := w.Entity("balloon")
	require.True(t, ok)
	y := e.(*objects.Sphere).Position().Y()
	for range 10 {
		w.Advance()
	}
	assert.Equal(t, uint64(10), w.Stats().Steps)
	assert.Greater(t, e.(*objects.Sphere).Position().Y(), y)
}
