package world

import (
	"errors"
	"fmt"

	"github.com/zeusync/worldsim/internal/core/observability/log"
)

var (
	// ErrCreatedOutsideWorld is wrapped by OutsideWorldError.
	ErrCreatedOutsideWorld = errors.New("created outside world")
	// ErrOwnershipCycle is returned by SetOwner when the new owner is the
	// entity itself or one of its descendants.
	ErrOwnershipCycle = errors.New("ownership cycle")
	// ErrEntityDestroyed is returned when an ownership change involves an
	// entity already deleted from its World.
	ErrEntityDestroyed = errors.New("entity destroyed")
	ErrNilConstructor  = errors.New("nil constructor")
	ErrNoBase          = errors.New("constructor did not create the entity base")
)

// OutsideWorldError reports an entity or renderer container constructed
// without going through the World factory.
type OutsideWorldError struct {
	Object string
	Kind   string
}

func (e *OutsideWorldError) Error() string {
	return fmt.Sprintf("%s %q %s", e.Kind, e.Object, ErrCreatedOutsideWorld)
}

func (e *OutsideWorldError) Unwrap() error {
	return ErrCreatedOutsideWorld
}

// FatalHandler is called on broken internal invariants. It must not return
// normally; the default one logs at fatal level, which exits the process.
type FatalHandler func(msg string, fields ...log.Field)

// PanicFatalHandler panics with a *FatalError instead of exiting.
func PanicFatalHandler(msg string, fields ...log.Field) {
	panic(&FatalError{Msg: msg, Fields: fields})
}

// FatalError is the panic value of PanicFatalHandler.
type FatalError struct {
	Msg    string
	Fields []log.Field
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Msg
}
