// Package config loads the YAML description of a simulation: world
// parameters, physics materials, textures, the initial scene and the
// serving options of the binary.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/worldsim/internal/core/observability/log"
	"github.com/zeusync/worldsim/internal/core/physics"
	"github.com/zeusync/worldsim/internal/core/render"
	"github.com/zeusync/worldsim/internal/core/render/remote"
	"github.com/zeusync/worldsim/internal/core/world"
)

const (
	EngineChipmunk = "chipmunk"
	EngineNull     = "null"

	// MinTimeStep is the resolution of the simulation clock.
	MinTimeStep = 1e-9
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	World     World             `yaml:"world"`
	Physics   Physics           `yaml:"physics"`
	Materials []Material        `yaml:"materials"`
	Pairs     []Pair            `yaml:"pairs"`
	Textures  map[string]string `yaml:"textures"`
	Scene     []Object          `yaml:"scene"`
	Joints    []Joint           `yaml:"joints"`
	Log       Log               `yaml:"log"`
	Remote    Remote            `yaml:"remote"`
}

type World struct {
	Name     string     `yaml:"name"`
	TimeStep float64    `yaml:"time_step"`
	Gravity  float64    `yaml:"gravity"`
	Min      [3]float64 `yaml:"min"`
	Max      [3]float64 `yaml:"max"`
}

type Physics struct {
	Engine     string `yaml:"engine"`
	Iterations uint   `yaml:"iterations"`
}

// Material is a user material. Gravity overrides the world gravity for
// bodies made of it.
type Material struct {
	Name    string   `yaml:"name"`
	Gravity *float64 `yaml:"gravity,omitempty"`
}

// Pair sets the contact properties of two materials. Omitted properties
// keep their defaults.
type Pair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`

	physics.PairProperties `yaml:",inline"`
}

func (p *Pair) UnmarshalYAML(node *yaml.Node) error {
	type plain Pair
	v := plain{PairProperties: physics.DefaultPairProperties}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*p = Pair(v)
	return nil
}

type Log struct {
	Level  string   `yaml:"level"`
	Format string   `yaml:"format"`
	Output []string `yaml:"output"`
}

type Remote struct {
	Enabled      bool          `yaml:"enabled"`
	Address      string        `yaml:"address"`
	Path         string        `yaml:"path"`
	FrameRate    int           `yaml:"frame_rate"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Draw         Draw          `yaml:"draw"`
}

// Draw selects the optional layers of remote frames.
type Draw struct {
	Labels  bool `yaml:"labels"`
	Axes    bool `yaml:"axes"`
	Joints  bool `yaml:"joints"`
	Forces  bool `yaml:"forces"`
	Workers int  `yaml:"workers"`
}

// Options returns the render options of the remote view.
func (d Draw) Options() []render.Option {
	var opts []render.Option
	if d.Labels {
		opts = append(opts, render.WithLabels())
	}
	if d.Axes {
		opts = append(opts, render.WithAxes())
	}
	if d.Joints {
		opts = append(opts, render.WithJoints())
	}
	if d.Forces {
		opts = append(opts, render.WithForces())
	}
	return append(opts, render.WithWorkers(d.Workers))
}

// Default returns the configuration used for every field a file omits.
func Default() *Config {
	return &Config{
		World: World{
			Name:     "world",
			TimeStep: world.DefaultTimeStep,
			Gravity:  world.DefaultGravity,
			Min:      [3]float64{-10, -10, -10},
			Max:      [3]float64{10, 10, 10},
		},
		Physics: Physics{Engine: EngineChipmunk, Iterations: 10},
		Log:     Log{Level: "info", Format: log.FormatJSON},
		Remote: Remote{
			Enabled:      true,
			Address:      ":8080",
			Path:         "/view",
			FrameRate:    remote.DefaultFrameRate,
			WriteTimeout: remote.DefaultWriteTimeout,
		},
	}
}

// LoadYAML reads a configuration over the defaults. An empty document
// yields the defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.World.TimeStep < MinTimeStep {
		fail("world.time_step must be at least %v, got %v", MinTimeStep, c.World.TimeStep)
	}
	for i := range 3 {
		if c.World.Min[i] >= c.World.Max[i] {
			fail("world.min must be below world.max on every axis")
			break
		}
	}
	switch c.Physics.Engine {
	case EngineChipmunk, EngineNull:
	default:
		fail("unknown physics engine %q", c.Physics.Engine)
	}

	known := map[string]bool{physics.MaterialDefault: true, physics.MaterialNonCollidable: true}
	for _, m := range c.Materials {
		if m.Name == "" {
			fail("material without name")
			continue
		}
		if known[m.Name] {
			fail("material %q defined twice", m.Name)
		}
		known[m.Name] = true
	}
	for _, p := range c.Pairs {
		if !known[p.A] || !known[p.B] {
			fail("pair %q/%q uses an unknown material", p.A, p.B)
		}
	}
	for name, path := range c.Textures {
		if name == "" || path == "" {
			fail("texture %q needs a name and a path", name)
		}
	}
	bodies := make(map[string]bool, len(c.Scene))
	for i, o := range c.Scene {
		if err := o.validate(known); err != nil {
			fail("scene[%d]: %v", i, err)
		}
		bodies[o.Name] = true
	}
	for i, j := range c.Joints {
		if err := j.validate(bodies); err != nil {
			fail("joints[%d]: %v", i, err)
		}
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		fail("log.level: %v", err)
	}
	switch c.Log.Format {
	case "", log.FormatJSON, log.FormatConsole:
	default:
		fail("log.format must be %q or %q, got %q", log.FormatJSON, log.FormatConsole, c.Log.Format)
	}
	if c.Remote.Enabled {
		if c.Remote.Address == "" {
			fail("remote.address is required")
		}
		if c.Remote.FrameRate <= 0 {
			fail("remote.frame_rate must be positive, got %d", c.Remote.FrameRate)
		}
		if c.Remote.WriteTimeout <= 0 {
			fail("remote.write_timeout must be positive")
		}
		if c.Remote.Draw.Workers < 0 {
			fail("remote.draw.workers cannot be negative")
		}
	}
	return errors.Join(errs...)
}
