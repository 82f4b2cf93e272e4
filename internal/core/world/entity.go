package world

import (
	"fmt"
	"image/color"
	"slices"

	"github.com/google/uuid"
)

const DefaultTexture = "tile2"

var DefaultColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// EntityShared is embedded by every shared block. Renderers read texture
// and color from here.
type EntityShared struct {
	Texture string      `json:"texture"`
	Color   color.NRGBA `json:"color"`
}

// Common gives generic code access to the embedded block.
func (s *EntityShared) Common() *EntityShared { return s }

// SharedBlock is satisfied by pointers to structs embedding EntityShared.
type SharedBlock[T any] interface {
	*T
	Common() *EntityShared
}

// Entity is anything living in a World. Concrete types embed *WEntity,
// which provides Base and no-op update hooks.
type Entity interface {
	Base() *WEntity
	// PreUpdate runs before every physics step.
	PreUpdate()
	// PostUpdate runs after every physics step.
	PostUpdate()
}

// Destroyer is implemented by entities needing cleanup when deleted. The
// World calls Destroy before the entity is detached from its owner and its
// owned entities are handled.
type Destroyer interface {
	Destroy()
}

// PostCreator is implemented by entities needing a hook once they are
// registered in the World, e.g. to add a body to the physics engine.
type PostCreator interface {
	PostCreate() error
}

// Owned is one entry of an owner's owned list. Destroy marks entities the
// owner deletes when it is deleted itself.
type Owned struct {
	Entity  Entity
	Destroy bool
}

// ChangesListener observes ownership changes of one entity.
type ChangesListener interface {
	// OwnerChanged is called after the owner of entity changed.
	OwnerChanged(entity, oldOwner Entity)
	// OwnedChangedOwner is called before owned is removed from the owned
	// list of entity, either because it moved to newOwner or because it
	// is being destroyed.
	OwnedChangedOwner(entity, owned, newOwner Entity, destroyed bool)
	// OwnedAdded is called after owned joined the owned list of entity.
	OwnedAdded(entity, owned Entity)
	// EntityDestroyed is called first thing when entity is destroyed.
	EntityDestroyed(entity Entity)
	// ListenerChanged is called on the replaced listener.
	ListenerChanged(entity Entity, newListener ChangesListener)
}

// sharedAccess reaches the EntityShared part of a typed shared block.
type sharedAccess interface {
	common() EntityShared
	modifyCommon(fn func(s *EntityShared))
}

// WEntity is the base of every entity. It can only be created from inside
// the constructor passed to CreateEntity.
type WEntity struct {
	world *World
	self  Entity

	id   uuid.UUID
	name string
	kind string

	owner    Entity
	owned    []Owned
	listener ChangesListener

	shared   sharedAccess
	texture  string
	color    color.NRGBA
	useOwner bool

	destroyed bool
}

// NewWEntity creates the base of an entity. It fails with an
// *OutsideWorldError unless called from within CreateEntity, and only once
// per CreateEntity call.
func NewWEntity[T any](c Construction[T], name string) (*WEntity, error) {
	if c.world == nil || !c.world.checkCreatingAndResetFlag() {
		return nil, &OutsideWorldError{Object: name, Kind: "entity"}
	}
	own := c.access.common()
	e := &WEntity{
		world:    c.world,
		id:       uuid.New(),
		name:     name,
		kind:     c.kind,
		shared:   c.access,
		texture:  own.Texture,
		color:    own.Color,
		useOwner: true,
	}
	e.self = e
	return e, nil
}

func (e *WEntity) Base() *WEntity { return e }

// Self returns the concrete entity embedding e.
func (e *WEntity) Self() Entity { return e.self }

func (e *WEntity) PreUpdate()  {}
func (e *WEntity) PostUpdate() {}

func (e *WEntity) ID() uuid.UUID    { return e.id }
func (e *WEntity) Name() string     { return e.name }
func (e *WEntity) Kind() string     { return e.kind }
func (e *WEntity) World() *World    { return e.world }
func (e *WEntity) Owner() Entity    { return e.owner }
func (e *WEntity) Destroyed() bool  { return e.destroyed }
func (e *WEntity) SetName(n string) { e.name = n }

// Owned returns a copy of the owned list.
func (e *WEntity) Owned() []Owned {
	return slices.Clone(e.owned)
}

// SetOwner moves the entity under owner, or detaches it when owner is nil.
// When destroy is true the owner deletes this entity when it is deleted.
func (e *WEntity) SetOwner(owner Entity, destroy bool) error {
	if e.destroyed {
		return fmt.Errorf("set owner of %q: %w", e.name, ErrEntityDestroyed)
	}
	if owner != nil {
		ob := owner.Base()
		if ob.world != e.world {
			return fmt.Errorf("set owner of %q: owner %q belongs to another world", e.name, ob.name)
		}
		if ob.destroyed || !e.world.Contains(owner) {
			return fmt.Errorf("set owner of %q to %q: %w", e.name, ob.name, ErrEntityDestroyed)
		}
		for o := owner; o != nil; o = o.Base().owner {
			if o.Base() == e {
				return fmt.Errorf("set owner of %q to %q: %w", e.name, ob.name, ErrOwnershipCycle)
			}
		}
	}

	old := e.owner
	if old != nil && owner != nil && old.Base() == owner.Base() {
		old.Base().setDestroyFlag(e, destroy)
		return nil
	}

	if old != nil {
		old.Base().removeFromOwned(e.self, owner, false)
	}
	e.owner = owner
	if owner != nil {
		owner.Base().addToOwned(e.self, destroy)
	}

	e.refreshColorTexture()

	if e.listener != nil {
		e.listener.OwnerChanged(e.self, old)
	}
	e.world.publishOwnerChanged(e)
	return nil
}

// Texture returns the effective texture when actual is true, the entity's
// own texture otherwise.
func (e *WEntity) Texture(actual bool) string {
	if actual {
		return e.shared.common().Texture
	}
	return e.texture
}

// Color returns the effective color when actual is true, the entity's own
// color otherwise.
func (e *WEntity) Color(actual bool) color.NRGBA {
	if actual {
		return e.shared.common().Color
	}
	return e.color
}

// SetTexture sets the own texture. It becomes effective immediately unless
// the entity inherits from its owner.
func (e *WEntity) SetTexture(texture string) {
	e.texture = texture
	e.applyOwn()
}

func (e *WEntity) SetColor(c color.NRGBA) {
	e.color = c
	e.applyOwn()
}

func (e *WEntity) SetAlpha(alpha uint8) {
	e.color.A = alpha
	e.applyOwn()
}

func (e *WEntity) UseColorTextureOfOwner() bool { return e.useOwner }

// SetUseColorTextureOfOwner toggles inheritance and re-derives the
// effective values of the entity and of its inheriting descendants.
func (e *WEntity) SetUseColorTextureOfOwner(use bool) {
	if use == e.useOwner {
		return
	}
	e.useOwner = use
	e.refreshColorTexture()
}

// RegisterOwnershipChangesListener installs l and returns the previous
// listener, which is told it was replaced.
func (e *WEntity) RegisterOwnershipChangesListener(l ChangesListener) ChangesListener {
	old := e.listener
	e.listener = l
	if old != nil {
		old.ListenerChanged(e.self, l)
	}
	return old
}

func (e *WEntity) Listener() ChangesListener { return e.listener }

func (e *WEntity) inherits() bool {
	return e.useOwner && e.owner != nil
}

func (e *WEntity) applyOwn() {
	if e.inherits() {
		return
	}
	texture, c := e.texture, e.color
	e.shared.modifyCommon(func(s *EntityShared) {
		s.Texture = texture
		s.Color = c
	})
	e.propagateToOwned()
}

func (e *WEntity) refreshColorTexture() {
	texture, c := e.texture, e.color
	if e.inherits() {
		from := e.owner.Base().shared.common()
		texture, c = from.Texture, from.Color
	}
	e.shared.modifyCommon(func(s *EntityShared) {
		s.Texture = texture
		s.Color = c
	})
	e.propagateToOwned()
}

// propagateToOwned copies the effective values to every descendant that
// inherits them, stopping at descendants using their own values.
func (e *WEntity) propagateToOwned() {
	cur := e.shared.common()
	stack := slices.Clone(e.owned)
	for len(stack) > 0 {
		child := stack[len(stack)-1].Entity.Base()
		stack = stack[:len(stack)-1]
		if !child.useOwner {
			continue
		}
		child.shared.modifyCommon(func(s *EntityShared) {
			s.Texture = cur.Texture
			s.Color = cur.Color
		})
		stack = append(stack, child.owned...)
	}
}

func (e *WEntity) addToOwned(owned Entity, destroy bool) {
	e.owned = append(e.owned, Owned{Entity: owned, Destroy: destroy})
	if e.listener != nil {
		e.listener.OwnedAdded(e.self, owned)
	}
}

func (e *WEntity) removeFromOwned(owned, newOwner Entity, destroyed bool) {
	if e.listener != nil {
		e.listener.OwnedChangedOwner(e.self, owned, newOwner, destroyed)
	}
	target := owned.Base()
	e.owned = slices.DeleteFunc(e.owned, func(o Owned) bool { return o.Entity.Base() == target })
}

func (e *WEntity) setDestroyFlag(owned *WEntity, destroy bool) {
	for i := range e.owned {
		if e.owned[i].Entity.Base() == owned {
			e.owned[i].Destroy = destroy
		}
	}
}

// destroy runs the base teardown. The entity is already out of the World
// registry when this is called.
func (e *WEntity) destroy() {
	e.destroyed = true
	if e.listener != nil {
		e.listener.EntityDestroyed(e.self)
	}

	if e.owner != nil {
		e.owner.Base().removeFromOwned(e.self, nil, true)
		e.owner = nil
	}

	for _, o := range slices.Clone(e.owned) {
		if o.Destroy {
			e.world.DeleteEntity(o.Entity)
			continue
		}
		e.releaseOwned(o.Entity)
	}
	e.owned = nil
}

// releaseOwned detaches an owned entity not flagged for destruction.
func (e *WEntity) releaseOwned(owned Entity) {
	child := owned.Base()
	if child.owner == nil || child.owner.Base() != e {
		return
	}
	e.removeFromOwned(owned, nil, false)
	child.owner = nil
	child.refreshColorTexture()
	if child.listener != nil {
		child.listener.OwnerChanged(owned, e.self)
	}
	e.world.publishOwnerChanged(child)
}
