package world

import (
	"image"
	"maps"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/observability/log"
)

// GraphicalInfo describes the world extent for renderers.
type GraphicalInfo struct {
	MinP mgl64.Vec3 `json:"min"`
	MaxP mgl64.Vec3 `json:"max"`
}

// ContainerHooks are implemented by concrete renderer containers.
type ContainerHooks interface {
	RendererAdded(creator RenderCreator, r *RendererRef)
	RendererToBeDeleted(creator RenderCreator, r *RendererRef)
	TextureAdded(name string, img image.Image)
	TextureToBeDeleted(name string)
	WorldGraphicalInfoChanged(info GraphicalInfo)
	// Update is called at the end of every World.Advance.
	Update()
}

// NopHooks can be embedded by containers that only need some hooks.
type NopHooks struct{}

func (NopHooks) RendererAdded(RenderCreator, *RendererRef)       {}
func (NopHooks) RendererToBeDeleted(RenderCreator, *RendererRef) {}
func (NopHooks) TextureAdded(string, image.Image)                {}
func (NopHooks) TextureToBeDeleted(string)                       {}
func (NopHooks) WorldGraphicalInfoChanged(GraphicalInfo)         {}
func (NopHooks) Update()                                         {}

// Container is implemented by every concrete renderer container, usually by
// embedding *RendererContainer.
type Container interface {
	Container() *RendererContainer
}

// ContainerConstruction is handed to container constructors by
// CreateRenderersContainer.
type ContainerConstruction struct {
	world *World
}

func (c ContainerConstruction) World() *World { return c.world }

// RendererContainer mirrors the rendered entities of a World for one view.
// All methods run on the simulation goroutine.
type RendererContainer struct {
	world *World
	hooks ContainerHooks

	renderers map[RenderCreator]*RendererRef
	creators  map[*RendererRef]RenderCreator
	order     []RenderCreator
	textures  map[string]image.Image
	info      GraphicalInfo
}

// NewRendererContainer creates the base of a container. It fails with an
// *OutsideWorldError unless called from within CreateRenderersContainer.
func NewRendererContainer(c ContainerConstruction, hooks ContainerHooks) (*RendererContainer, error) {
	if c.world == nil || !c.world.checkCreatingAndResetFlag() {
		return nil, &OutsideWorldError{Object: "renderers container", Kind: "renderers container"}
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &RendererContainer{
		world:     c.world,
		hooks:     hooks,
		renderers: make(map[RenderCreator]*RendererRef),
		creators:  make(map[*RendererRef]RenderCreator),
		textures:  make(map[string]image.Image),
	}, nil
}

func (rc *RendererContainer) Container() *RendererContainer { return rc }
func (rc *RendererContainer) World() *World                 { return rc.world }

func (rc *RendererContainer) IsEmpty() bool { return len(rc.renderers) == 0 }
func (rc *RendererContainer) Len() int      { return len(rc.renderers) }

// Creators returns the creators in the order they were added.
func (rc *RendererContainer) Creators() []RenderCreator {
	out := make([]RenderCreator, len(rc.order))
	copy(out, rc.order)
	return out
}

func (rc *RendererContainer) RendererFor(creator RenderCreator) (*RendererRef, bool) {
	r, ok := rc.renderers[creator]
	return r, ok
}

func (rc *RendererContainer) CreatorFor(r *RendererRef) (RenderCreator, bool) {
	c, ok := rc.creators[r]
	return c, ok
}

// AddRenderer generates a renderer for the creator's entity.
func (rc *RendererContainer) AddRenderer(creator RenderCreator) {
	if _, ok := rc.renderers[creator]; ok {
		return
	}
	r := creator.GenerateRenderer()
	rc.renderers[creator] = r
	rc.creators[r] = creator
	rc.order = append(rc.order, creator)
	rc.hooks.RendererAdded(creator, r)
}

// DeletedRenderer drops the renderer of a deleted entity. An unknown creator
// or inconsistent maps are fatal.
func (rc *RendererContainer) DeletedRenderer(creator RenderCreator) {
	r, ok := rc.renderers[creator]
	if !ok {
		rc.world.fatal("deleting renderer of an entity unknown to the container",
			log.String("entity", creatorName(creator)))
		return
	}
	if back, ok := rc.creators[r]; !ok || back != creator {
		rc.world.fatal("renderer container maps are inconsistent",
			log.String("entity", creatorName(creator)))
		return
	}
	rc.hooks.RendererToBeDeleted(creator, r)
	delete(rc.renderers, creator)
	delete(rc.creators, r)
	for i, c := range rc.order {
		if c == creator {
			rc.order = append(rc.order[:i], rc.order[i+1:]...)
			break
		}
	}
}

func (rc *RendererContainer) DeleteAllRenderers() {
	for _, creator := range rc.Creators() {
		rc.DeletedRenderer(creator)
	}
}

// SetRenderersList replaces all renderers with one per creator.
func (rc *RendererContainer) SetRenderersList(creators []RenderCreator) {
	rc.DeleteAllRenderers()
	for _, c := range creators {
		rc.AddRenderer(c)
	}
}

func (rc *RendererContainer) Textures() map[string]image.Image {
	return maps.Clone(rc.textures)
}

func (rc *RendererContainer) Texture(name string) (image.Image, bool) {
	img, ok := rc.textures[name]
	return img, ok
}

// SetTexturesList replaces all textures.
func (rc *RendererContainer) SetTexturesList(textures map[string]image.Image) {
	rc.DeleteAllTextures()
	for name, img := range textures {
		rc.AddTexture(name, img)
	}
}

// AddTexture adds or replaces a texture.
func (rc *RendererContainer) AddTexture(name string, img image.Image) {
	rc.textures[name] = img
	rc.hooks.TextureAdded(name, img)
}

func (rc *RendererContainer) DeleteTexture(name string) {
	if _, ok := rc.textures[name]; !ok {
		return
	}
	rc.hooks.TextureToBeDeleted(name)
	delete(rc.textures, name)
}

func (rc *RendererContainer) DeleteAllTextures() {
	for name := range rc.textures {
		rc.DeleteTexture(name)
	}
}

func (rc *RendererContainer) GraphicalInfo() GraphicalInfo { return rc.info }

func (rc *RendererContainer) SetWorldGraphicalInfo(info GraphicalInfo) {
	rc.info = info
	rc.hooks.WorldGraphicalInfoChanged(info)
}

func (rc *RendererContainer) update() {
	rc.hooks.Update()
}

func creatorName(c RenderCreator) string {
	if c == nil || c.Entity() == nil {
		return "<nil>"
	}
	return c.Entity().Base().Name()
}
