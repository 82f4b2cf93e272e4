package world

import (
	"fmt"

	"github.com/zeusync/worldsim/internal/core/events/bus"
	"github.com/zeusync/worldsim/internal/core/shared"
)

// Kind describes one entity type: its name, the defaults of its shared
// block and how to build a renderer for it.
type Kind[E Entity, T any] struct {
	Name string
	// Shared returns the initial shared block. Nil means the zero value.
	Shared func() T
	// Renderer builds a renderer for an entity. Nil means entities of this
	// kind draw nothing.
	Renderer func(E) Renderer[T]
}

// Construction is handed to entity constructors by CreateEntity. It is the
// only way to obtain a WEntity.
type Construction[T any] struct {
	world   *World
	kind    string
	wrapper *shared.Wrapper[T]
	access  sharedAccess
}

func (c Construction[T]) World() *World { return c.world }

// Shared returns the shared block of the entity being built.
func (c Construction[T]) Shared() *shared.Wrapper[T] { return c.wrapper }

type sharedHandle[T any, PT SharedBlock[T]] struct {
	w *shared.Wrapper[T]
}

func (h sharedHandle[T, PT]) common() EntityShared {
	return *PT(h.w.Get()).Common()
}

func (h sharedHandle[T, PT]) modifyCommon(fn func(s *EntityShared)) {
	h.w.Modify(func(t *T) { fn(PT(t).Common()) })
}

type createOptions struct {
	shadow bool
}

type CreateOption func(*createOptions)

// WithoutWorldLists creates a shadow entity: it is tracked for deletion but
// never updated by Advance nor rendered.
func WithoutWorldLists() CreateOption {
	return func(o *createOptions) { o.shadow = true }
}

// CreateEntity builds an entity of the given kind. ctor must call
// NewWEntity exactly once and return the entity embedding the result.
func CreateEntity[E Entity, T any, PT SharedBlock[T]](w *World, kind Kind[E, T], ctor func(Construction[T]) (E, error), opts ...CreateOption) (E, error) {
	var zero E
	if ctor == nil {
		return zero, fmt.Errorf("create %s: %w", kind.Name, ErrNilConstructor)
	}
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	var block T
	if kind.Shared != nil {
		block = kind.Shared()
	}
	common := PT(&block).Common()
	if common.Texture == "" {
		common.Texture = DefaultTexture
	}
	if common.Color == (EntityShared{}).Color {
		common.Color = DefaultColor
	}

	wrapper := shared.NewWrapper(block)
	c := Construction[T]{
		world:   w,
		kind:    kind.Name,
		wrapper: wrapper,
		access:  sharedHandle[T, PT]{w: wrapper},
	}

	w.creating = true
	entity, err := ctor(c)
	w.creating = false
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", kind.Name, err)
	}
	base := entity.Base()
	if base == nil || base.shared != c.access {
		return zero, fmt.Errorf("create %s: %w", kind.Name, ErrNoBase)
	}
	base.self = entity

	creator := &renderCreator[E, T]{world: w, entity: entity, kind: kind, wrapper: wrapper}
	rec := w.register(entity, creator, wrapper, o.shadow)

	if pc, ok := any(entity).(PostCreator); ok {
		if err = pc.PostCreate(); err != nil {
			w.DeleteEntity(entity)
			return zero, fmt.Errorf("create %s: post create: %w", kind.Name, err)
		}
	}
	if j, ok := any(entity).(JointHolder); ok {
		w.linkJoint(j)
	}

	if !rec.shadow {
		rec.rendered = true
		for _, rc := range w.containers {
			rc.AddRenderer(creator)
		}
	}
	w.publishEntity(bus.EntityCreated, base)
	return entity, nil
}
