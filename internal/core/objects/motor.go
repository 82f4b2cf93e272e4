package objects

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/world"
)

type motorMode uint8

const (
	motorIdle motorMode = iota
	motorVelocity
	motorForce
)

// Actuated is implemented by entities a Motor can drive.
type Actuated interface {
	SetVelocity(v mgl64.Vec3)
	AddForce(f mgl64.Vec3)
}

// Motor drives its owner before every step, either keeping a target
// velocity or pushing with a constant force. Owners that are not Actuated
// are left alone.
type Motor struct {
	*world.WEntity
	mode  motorMode
	value mgl64.Vec3
}

var MotorKind = world.Kind[*Motor, world.EntityShared]{Name: "motor"}

func NewMotor(w *world.World, name string) (*Motor, error) {
	return world.CreateEntity(w, MotorKind, func(c world.Construction[world.EntityShared]) (*Motor, error) {
		base, err := world.NewWEntity(c, name)
		if err != nil {
			return nil, err
		}
		return &Motor{WEntity: base}, nil
	})
}

// SetTargetVelocity makes the motor set the owner velocity every step.
func (m *Motor) SetTargetVelocity(v mgl64.Vec3) {
	m.mode, m.value = motorVelocity, v
}

// SetForce makes the motor apply f to the owner every step.
func (m *Motor) SetForce(f mgl64.Vec3) {
	m.mode, m.value = motorForce, f
}

func (m *Motor) Stop() {
	m.mode, m.value = motorIdle, mgl64.Vec3{}
}

func (m *Motor) PreUpdate() {
	a, ok := m.Owner().(Actuated)
	if !ok {
		return
	}
	switch m.mode {
	case motorVelocity:
		a.SetVelocity(m.value)
	case motorForce:
		a.AddForce(m.value)
	}
}
