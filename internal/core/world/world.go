// Package world holds the entity framework: the World factory and registry,
// the entity base with its ownership tree, rendering proxies and renderer
// containers.
package world

import (
	"container/list"
	"fmt"
	"image"
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/zeusync/worldsim/internal/core/events/bus"
	"github.com/zeusync/worldsim/internal/core/observability/log"
	"github.com/zeusync/worldsim/internal/core/physics"
)

const (
	DefaultTimeStep = 0.015
	DefaultGravity  = -9.8
)

// Options configure a World.
type Options struct {
	Logger   log.Log
	Bus      bus.EventBus
	Fatal    FatalHandler
	Engine   physics.Engine
	TimeStep float64
	Gravity  float64
	MinP     mgl64.Vec3
	MaxP     mgl64.Vec3
}

type Option func(*Options)

func WithLogger(l log.Log) Option {
	return func(o *Options) { o.Logger = l }
}

// WithBus publishes lifecycle events on b.
func WithBus(b bus.EventBus) Option {
	return func(o *Options) { o.Bus = b }
}

// WithFatalHandler replaces the handler of broken invariants.
func WithFatalHandler(h FatalHandler) Option {
	return func(o *Options) { o.Fatal = h }
}

// WithEngine sets the physics engine. The World closes it on Close.
func WithEngine(e physics.Engine) Option {
	return func(o *Options) { o.Engine = e }
}

func WithTimeStep(step float64) Option {
	return func(o *Options) { o.TimeStep = step }
}

func WithGravity(g float64) Option {
	return func(o *Options) { o.Gravity = g }
}

func WithSize(minP, maxP mgl64.Vec3) Option {
	return func(o *Options) { o.MinP, o.MaxP = minP, maxP }
}

// Contact is a contact between two entities after the last step.
type Contact struct {
	Object   Entity
	Collide  Entity
	Position mgl64.Vec3 // in the frame of Object
	WorldPos mgl64.Vec3
	Force    mgl64.Vec3
}

// RayCastHit is an entity intersected by a ray. Distance is in [0, 1].
type RayCastHit struct {
	Object   Entity
	Distance float64
	Position mgl64.Vec3
	Normal   mgl64.Vec3
}

// BodyHolder is implemented by entities backed by a physics body.
type BodyHolder interface {
	Entity
	PhysicsBody() physics.Body
}

// JointHolder is implemented by entities constraining physics bodies. A nil
// parent stands for the static world. Deleting either body entity deletes
// the joint first.
type JointHolder interface {
	Entity
	JointBodies() (parent, child Entity)
}

// Stats is a snapshot of the World counters.
type Stats struct {
	Entities    int     `json:"entities"`
	Shadows     int     `json:"shadows"`
	Containers  int     `json:"containers"`
	Textures    int     `json:"textures"`
	Steps       uint64  `json:"steps"`
	ElapsedTime float64 `json:"elapsed_time"`
}

type record struct {
	entity   Entity
	creator  RenderCreator
	shared   any
	shadow   bool
	rendered bool
	deleted  bool
	elem     *list.Element
}

// World creates, steps and destroys entities. It is not safe for concurrent
// use: everything runs on the simulation goroutine.
type World struct {
	name   string
	logger log.Log
	bus    bus.EventBus
	onFail FatalHandler
	engine physics.Engine

	materials *physics.MaterialDB
	textures  map[string]image.Image

	timeStep    float64
	gravity     float64
	minP, maxP  mgl64.Vec3
	time        float64
	steps       uint64
	initialized bool
	creating    bool

	entities   *list.List
	shadows    *list.List
	index      map[*WEntity]*record
	containers []*RendererContainer
	contacts   map[Entity][]Contact
	joints     map[*WEntity][]JointHolder
}

// New creates a World with the built-in textures and initial materials.
func New(name string, opts ...Option) *World {
	o := Options{
		TimeStep: DefaultTimeStep,
		Gravity:  DefaultGravity,
		MinP:     mgl64.Vec3{-100, -100, -100},
		MaxP:     mgl64.Vec3{100, 100, 100},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.NewNop()
	}
	if o.Engine == nil {
		o.Engine = physics.NewNullEngine()
	}

	w := &World{
		name:     name,
		logger:   o.Logger.With(log.String("world", name)),
		bus:      o.Bus,
		onFail:   o.Fatal,
		engine:   o.Engine,
		timeStep: o.TimeStep,
		gravity:  o.Gravity,
		minP:     o.MinP,
		maxP:     o.MaxP,
		entities: list.New(),
		shadows:  list.New(),
		index:    make(map[*WEntity]*record),
		contacts: make(map[Entity][]Contact),
		joints:   make(map[*WEntity][]JointHolder),
	}
	w.createWorld()
	return w
}

func (w *World) createWorld() {
	w.time = 0
	w.steps = 0
	w.creating = false
	w.initialized = false
	w.materials = physics.NewMaterialDB()
	w.engine.SetMaterials(w.materials)
	w.engine.SetGravity(w.gravity)
	w.textures = builtinTextures()
	for _, rc := range w.containers {
		w.notifyContainerOfAll(rc)
	}
}

func (w *World) Name() string           { return w.name }
func (w *World) Logger() log.Log        { return w.logger }
func (w *World) Engine() physics.Engine { return w.engine }

// Materials returns the material database shared with the engine.
func (w *World) Materials() *physics.MaterialDB { return w.materials }

func (w *World) ElapsedTime() float64 { return w.time }
func (w *World) ResetElapsedTime()    { w.time = 0 }
func (w *World) TimeStep() float64    { return w.timeStep }

func (w *World) SetTimeStep(step float64) {
	w.timeStep = step
}

func (w *World) GravitationalAcceleration() float64 { return w.gravity }

func (w *World) SetGravitationalAcceleration(g float64) {
	w.gravity = g
	w.engine.SetGravity(g)
}

// SetSize sets the world extent and tells every renderer container.
func (w *World) SetSize(minP, maxP mgl64.Vec3) {
	w.minP, w.maxP = minP, maxP
	info := w.graphicalInfo()
	for _, rc := range w.containers {
		rc.SetWorldGraphicalInfo(info)
	}
}

func (w *World) Size() (minP, maxP mgl64.Vec3) {
	return w.minP, w.maxP
}

func (w *World) graphicalInfo() GraphicalInfo {
	return GraphicalInfo{MinP: w.minP, MaxP: w.maxP}
}

// Entities returns the rendered entities in creation order.
func (w *World) Entities() []Entity {
	return collect(w.entities)
}

// ShadowEntities returns entities created WithoutWorldLists.
func (w *World) ShadowEntities() []Entity {
	return collect(w.shadows)
}

func collect(l *list.List) []Entity {
	out := make([]Entity, 0, l.Len())
	for el := l.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*record).entity)
	}
	return out
}

// Entity returns the first entity with the given name.
func (w *World) Entity(name string) (Entity, bool) {
	for el := w.entities.Front(); el != nil; el = el.Next() {
		e := el.Value.(*record).entity
		if e.Base().Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Contains reports whether e is alive in this World.
func (w *World) Contains(e Entity) bool {
	if e == nil {
		return false
	}
	_, ok := w.index[e.Base()]
	return ok
}

func (w *World) Stats() Stats {
	return Stats{
		Entities:    w.entities.Len(),
		Shadows:     w.shadows.Len(),
		Containers:  len(w.containers),
		Textures:    len(w.textures),
		Steps:       w.steps,
		ElapsedTime: w.time,
	}
}

func (w *World) initialize() {
	if w.initialized {
		return
	}
	w.time = 0
	w.initialized = true
}

// Advance runs one simulation step: PreUpdate on every entity, the physics
// step, PostUpdate on every entity, then Update on every renderer container.
func (w *World) Advance() {
	if !w.initialized {
		w.initialize()
	}

	w.eachLive(Entity.PreUpdate)

	// Cleared here so PreUpdate still sees the contacts of the last step.
	clear(w.contacts)
	w.engine.Step(w.timeStep)
	w.collectContacts()

	w.eachLive(Entity.PostUpdate)

	w.time += w.timeStep
	w.steps++

	for _, rc := range slices.Clone(w.containers) {
		rc.update()
	}
}

// eachLive calls fn on a snapshot of the entity list, skipping entities
// deleted while the phase runs.
func (w *World) eachLive(fn func(Entity)) {
	recs := make([]*record, 0, w.entities.Len())
	for el := w.entities.Front(); el != nil; el = el.Next() {
		recs = append(recs, el.Value.(*record))
	}
	for _, r := range recs {
		if r.deleted {
			continue
		}
		fn(r.entity)
	}
}

func (w *World) register(e Entity, creator RenderCreator, sharedBlock any, shadow bool) *record {
	r := &record{entity: e, creator: creator, shared: sharedBlock, shadow: shadow}
	if shadow {
		r.elem = w.shadows.PushBack(r)
	} else {
		r.elem = w.entities.PushBack(r)
	}
	w.index[e.Base()] = r
	return r
}

func (w *World) checkCreatingAndResetFlag() bool {
	ret := w.creating
	w.creating = false
	return ret
}

// DeleteEntity destroys an entity: renderer containers drop it, its Destroy
// hook runs, it leaves its owner and its owned entities flagged for
// destruction are deleted too. Entities not in the World are ignored.
func (w *World) DeleteEntity(e Entity) {
	if e == nil {
		return
	}
	base := e.Base()
	r, ok := w.index[base]
	if !ok {
		w.logger.Debug("trying to delete an entity not in the world", log.String("entity", base.Name()))
		return
	}

	for _, j := range slices.Clone(w.joints[base]) {
		w.DeleteEntity(j)
	}
	if j, ok := r.entity.(JointHolder); ok {
		w.unlinkJoint(j)
	}
	w.dropContacts(r.entity)

	if r.rendered {
		for _, rc := range w.containers {
			rc.DeletedRenderer(r.creator)
		}
	}

	delete(w.index, base)
	if r.shadow {
		w.shadows.Remove(r.elem)
	} else {
		w.entities.Remove(r.elem)
	}
	r.deleted = true

	w.publishEntity(bus.EntityDestroyed, base)

	if d, ok := r.entity.(Destroyer); ok {
		d.Destroy()
	}
	base.destroy()

	r.creator = nil
	r.shared = nil
}

// Reset deletes every entity, restores the built-in textures and a fresh
// material database and rewinds time. Renderer containers are kept.
func (w *World) Reset() {
	w.destroyWorld()
	w.createWorld()
	w.publish(bus.WorldReset, nil)
}

func (w *World) destroyWorld() {
	for _, rc := range w.containers {
		rc.DeleteAllTextures()
	}
	clear(w.textures)

	w.deleteOwnerless()

	if w.entities.Len() != 0 || w.shadows.Len() != 0 {
		w.fatal("entities still alive after destroying the world",
			log.Int("entities", w.entities.Len()),
			log.Int("shadows", w.shadows.Len()))
	}
	for _, rc := range w.containers {
		if !rc.IsEmpty() {
			w.fatal("renderers still alive after destroying the world", log.Int("renderers", rc.Len()))
		}
	}
	clear(w.contacts)
	clear(w.joints)
}

// deleteOwnerless deletes the roots of both lists. Owned entities not
// flagged for destruction become roots as their owners go, in either list,
// so it loops until both are empty or neither shrinks.
func (w *World) deleteOwnerless() {
	for w.entities.Len()+w.shadows.Len() > 0 {
		before := w.entities.Len() + w.shadows.Len()
		for _, l := range [2]*list.List{w.entities, w.shadows} {
			for _, e := range collect(l) {
				if w.Contains(e) && e.Base().Owner() == nil {
					w.DeleteEntity(e)
				}
			}
		}
		if w.entities.Len()+w.shadows.Len() == before {
			return
		}
	}
}

// Close deletes every entity and renderer container and closes the engine.
func (w *World) Close() error {
	w.destroyWorld()
	for _, rc := range slices.Clone(w.containers) {
		w.DeleteRenderersContainer(rc)
	}
	if err := w.engine.Close(); err != nil {
		return fmt.Errorf("close engine: %w", err)
	}
	return nil
}

// CreateRenderersContainer builds a container and fills it with the current
// rendered entities, textures and world extent.
func CreateRenderersContainer[C Container](w *World, build func(ContainerConstruction) (C, error)) (C, error) {
	var zero C
	if build == nil {
		return zero, fmt.Errorf("create renderers container: %w", ErrNilConstructor)
	}
	w.creating = true
	c, err := build(ContainerConstruction{world: w})
	w.creating = false
	if err != nil {
		return zero, fmt.Errorf("create renderers container: %w", err)
	}
	rc := c.Container()
	if rc == nil || rc.world != w {
		return zero, fmt.Errorf("create renderers container: %w", ErrNoBase)
	}
	w.containers = append(w.containers, rc)
	w.notifyContainerOfAll(rc)
	return c, nil
}

// DeleteRenderersContainer drops every renderer and texture of c and stops
// notifying it.
func (w *World) DeleteRenderersContainer(c Container) {
	if c == nil {
		return
	}
	rc := c.Container()
	idx := slices.Index(w.containers, rc)
	if idx < 0 {
		return
	}
	rc.DeleteAllRenderers()
	rc.DeleteAllTextures()
	w.containers = slices.Delete(w.containers, idx, idx+1)
}

func (w *World) notifyContainerOfAll(rc *RendererContainer) {
	creators := make([]RenderCreator, 0, w.entities.Len())
	for el := w.entities.Front(); el != nil; el = el.Next() {
		if r := el.Value.(*record); r.rendered {
			creators = append(creators, r.creator)
		}
	}
	rc.SetRenderersList(creators)
	rc.SetTexturesList(w.textures)
	rc.SetWorldGraphicalInfo(w.graphicalInfo())
}

// AddTexture adds or replaces a texture and tells every container.
func (w *World) AddTexture(name string, img image.Image) {
	w.textures[name] = img
	for _, rc := range w.containers {
		rc.AddTexture(name, img)
	}
	b := img.Bounds()
	w.publish(bus.TextureAdded, bus.TextureInfo{Name: name, Width: b.Dx(), Height: b.Dy()})
}

func (w *World) DeleteTexture(name string) {
	if _, ok := w.textures[name]; !ok {
		return
	}
	for _, rc := range w.containers {
		rc.DeleteTexture(name)
	}
	delete(w.textures, name)
	w.publish(bus.TextureDeleted, bus.TextureInfo{Name: name})
}

func (w *World) DeleteAllTextures() {
	for _, rc := range w.containers {
		rc.DeleteAllTextures()
	}
	for name := range w.textures {
		delete(w.textures, name)
		w.publish(bus.TextureDeleted, bus.TextureInfo{Name: name})
	}
}

func (w *World) Textures() map[string]image.Image {
	return maps.Clone(w.textures)
}

func (w *World) Texture(name string) (image.Image, bool) {
	img, ok := w.textures[name]
	return img, ok
}

// Fatal reports a broken invariant through the configured FatalHandler.
func (w *World) Fatal(msg string, fields ...log.Field) {
	w.fatal(msg, fields...)
}

func (w *World) fatal(msg string, fields ...log.Field) {
	if w.onFail != nil {
		w.onFail(msg, fields...)
		return
	}
	w.logger.Fatal(msg, fields...)
}

func (w *World) publish(typ string, data any) {
	if w.bus == nil {
		return
	}
	if err := w.bus.Publish(bus.NewEvent(typ, w.name, data)); err != nil {
		w.logger.Warn("event handler failed", log.String("event", typ), log.Error(err))
	}
}

func (w *World) publishEntity(typ string, e *WEntity) {
	if w.bus == nil {
		return
	}
	info := bus.EntityInfo{ID: e.id, Name: e.name, Kind: e.kind}
	if e.owner != nil {
		info.Owner = e.owner.Base().id
	}
	w.publish(typ, info)
}

func (w *World) publishOwnerChanged(e *WEntity) {
	w.publishEntity(bus.OwnerChanged, e)
}

// EntityByID looks up an entity by its ID.
func (w *World) EntityByID(id uuid.UUID) (Entity, bool) {
	for base, r := range w.index {
		if base.id == id {
			return r.entity, true
		}
	}
	return nil, false
}
