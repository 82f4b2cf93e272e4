package bus

import (
	"time"

	"github.com/google/uuid"
)

// World lifecycle event types.
const (
	EntityCreated   = "entity.created"
	EntityDestroyed = "entity.destroyed"
	OwnerChanged    = "entity.owner_changed"
	TextureAdded    = "texture.added"
	TextureDeleted  = "texture.deleted"
	WorldReset      = "world.reset"
)

// EntityInfo is the payload of entity events.
type EntityInfo struct {
	ID    uuid.UUID
	Name  string
	Kind  string
	Owner uuid.UUID // uuid.Nil when owner-less
}

// TextureInfo is the payload of texture events.
type TextureInfo struct {
	Name          string
	Width, Height int
}

type simpleEvent struct {
	typ    string
	source string
	ts     time.Time
	data   any
}

func (e simpleEvent) Type() string         { return e.typ }
func (e simpleEvent) Source() string       { return e.source }
func (e simpleEvent) Timestamp() time.Time { return e.ts }
func (e simpleEvent) Data() any            { return e.data }

// NewEvent creates an event stamped with the current time.
func NewEvent(typ, source string, data any) Event {
	return simpleEvent{typ: typ, source: source, ts: time.Now(), data: data}
}
