package config

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/objects"
	"github.com/zeusync/worldsim/internal/core/physics"
	"github.com/zeusync/worldsim/internal/core/physics/chipmunk"
	"github.com/zeusync/worldsim/internal/core/world"
)

// Object kinds of the scene section.
const (
	ObjectBox    = "box"
	ObjectSphere = "sphere"
)

// Joint kinds of the joints section.
const (
	JointFixed  = "fixed"
	JointHinge  = "hinge"
	JointSlider = "slider"
)

// Joint links two scene objects by name. Without a parent the child is
// attached to the static world. Anchor is used by hinges only; fixed joints
// and sliders anchor at the child position.
type Joint struct {
	Kind   string      `yaml:"kind"`
	Name   string      `yaml:"name"`
	Parent string      `yaml:"parent"`
	Child  string      `yaml:"child"`
	Anchor [3]float64  `yaml:"anchor"`
	Axis   [3]float64  `yaml:"axis"`
	Limits *[2]float64 `yaml:"limits"`
}

func (j Joint) validate(bodies map[string]bool) error {
	switch j.Kind {
	case JointFixed, JointHinge:
	case JointSlider:
		if j.Axis[0] == 0 && j.Axis[1] == 0 {
			return errors.New("slider axis must not be zero in the XY plane")
		}
	default:
		return fmt.Errorf("unknown joint kind %q", j.Kind)
	}
	if !bodies[j.Child] {
		return fmt.Errorf("unknown child %q", j.Child)
	}
	if j.Parent != "" && !bodies[j.Parent] {
		return fmt.Errorf("unknown parent %q", j.Parent)
	}
	if j.Limits != nil && j.Limits[0] > j.Limits[1] {
		return errors.New("lower limit above upper limit")
	}
	return nil
}

// Object is one body of the initial scene.
type Object struct {
	Kind     string     `yaml:"kind"`
	Name     string     `yaml:"name"`
	Size     [3]float64 `yaml:"size"`
	Radius   float64    `yaml:"radius"`
	Position [3]float64 `yaml:"position"`
	Angle    float64    `yaml:"angle"`
	Mass     float64    `yaml:"mass"`
	Material string     `yaml:"material"`
	Static   bool       `yaml:"static"`
	Texture  string     `yaml:"texture"`
	Label    string     `yaml:"label"`
}

func (o Object) validate(materials map[string]bool) error {
	switch o.Kind {
	case ObjectBox:
		if o.Size[0] <= 0 || o.Size[1] <= 0 || o.Size[2] <= 0 {
			return errors.New("box sides must be positive")
		}
	case ObjectSphere:
		if o.Radius <= 0 {
			return errors.New("sphere radius must be positive")
		}
	default:
		return fmt.Errorf("unknown object kind %q", o.Kind)
	}
	if o.Material != "" && !materials[o.Material] {
		return fmt.Errorf("unknown material %q", o.Material)
	}
	if !o.Static && o.Mass < 0 {
		return errors.New("mass cannot be negative")
	}
	return nil
}

func (o Object) options() []objects.BodyOption {
	tm := mgl64.Translate3D(o.Position[0], o.Position[1], o.Position[2]).Mul4(mgl64.HomogRotate3DZ(o.Angle))
	opts := []objects.BodyOption{objects.At(tm)}
	if o.Static {
		opts = append(opts, objects.Static())
	}
	if o.Mass > 0 {
		opts = append(opts, objects.WithMass(o.Mass))
	}
	if o.Material != "" {
		opts = append(opts, objects.WithMaterial(o.Material))
	}
	return opts
}

// Engine builds the configured physics engine.
func (c *Config) Engine() physics.Engine {
	if c.Physics.Engine == EngineNull {
		return physics.NewNullEngine()
	}
	return chipmunk.New(c.World.Gravity, c.Physics.Iterations)
}

// WorldOptions returns the world options matching the configuration.
func (c *Config) WorldOptions() []world.Option {
	return []world.Option{
		world.WithTimeStep(c.World.TimeStep),
		world.WithGravity(c.World.Gravity),
		world.WithSize(mgl64.Vec3(c.World.Min), mgl64.Vec3(c.World.Max)),
		world.WithEngine(c.Engine()),
	}
}

// Populate adds materials, textures and the scene objects to w.
func (c *Config) Populate(w *world.World) error {
	db := w.Materials()
	for _, m := range c.Materials {
		db.CreateMaterial(m.Name)
		if m.Gravity != nil {
			if err := db.SetGravitationalAcceleration(m.Name, *m.Gravity); err != nil {
				return err
			}
		}
	}
	for _, p := range c.Pairs {
		if err := db.SetProperties(p.A, p.B, p.PairProperties); err != nil {
			return err
		}
	}

	for name, path := range c.Textures {
		img, err := loadImage(path)
		if err != nil {
			return fmt.Errorf("texture %q: %w", name, err)
		}
		w.AddTexture(name, img)
	}

	for i, o := range c.Scene {
		e, err := c.create(w, o)
		if err != nil {
			return fmt.Errorf("scene[%d] %q: %w", i, o.Name, err)
		}
		if o.Texture != "" {
			e.SetTexture(o.Texture)
		}
		if o.Label != "" {
			e.SetLabel(o.Label)
		}
	}

	for i, j := range c.Joints {
		if err := createJoint(w, j); err != nil {
			return fmt.Errorf("joints[%d] %q: %w", i, j.Name, err)
		}
	}
	return nil
}

func createJoint(w *world.World, j Joint) error {
	lookup := func(name string) (world.BodyHolder, error) {
		e, ok := w.Entity(name)
		if !ok {
			return nil, fmt.Errorf("body %q not found", name)
		}
		b, ok := e.(world.BodyHolder)
		if !ok {
			return nil, fmt.Errorf("%q: %w", name, world.ErrNoBody)
		}
		return b, nil
	}
	child, err := lookup(j.Child)
	if err != nil {
		return err
	}
	var parent world.BodyHolder
	if j.Parent != "" {
		if parent, err = lookup(j.Parent); err != nil {
			return err
		}
	}
	var opts []objects.JointOption
	if j.Limits != nil {
		opts = append(opts, objects.WithLimits(j.Limits[0], j.Limits[1]))
	}
	switch j.Kind {
	case JointFixed:
		_, err = objects.NewFixedJoint(w, j.Name, parent, child)
	case JointSlider:
		_, err = objects.NewSlider(w, j.Name, parent, child, mgl64.Vec3(j.Axis), opts...)
	default:
		_, err = objects.NewHinge(w, j.Name, parent, child, mgl64.Vec3(j.Anchor), opts...)
	}
	return err
}

type sceneEntity interface {
	SetTexture(texture string)
	SetLabel(label string)
}

func (c *Config) create(w *world.World, o Object) (sceneEntity, error) {
	if o.Kind == ObjectSphere {
		return objects.NewSphere(w, o.Name, o.Radius, o.options()...)
	}
	return objects.NewBox(w, o.Name, mgl64.Vec3(o.Size), o.options()...)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
