package world

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/worldsim/internal/core/observability/log"
	"github.com/zeusync/worldsim/internal/core/shared"
)

// Renderer draws one entity type from a shared block. Renderers must not
// keep references to the entity.
type Renderer[T any] interface {
	Render(block *T, ctx *RenderContext)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc[T any] func(block *T, ctx *RenderContext)

func (f RendererFunc[T]) Render(block *T, ctx *RenderContext) { f(block, ctx) }

// RendererRef is a type-erased renderer produced by a RenderCreator. Its
// identity keys the renderer maps of containers.
type RendererRef struct {
	kind     string
	renderer any
}

func (r *RendererRef) Kind() string { return r.kind }

// RenderCreator generates renderers and proxies for one entity without the
// caller knowing the entity type.
type RenderCreator interface {
	Entity() Entity
	GenerateRenderer() *RendererRef
	// GenerateRenderingProxyWithoutCopy pairs the renderer with the live
	// shared block. Use it on the simulation goroutine only.
	GenerateRenderingProxyWithoutCopy(r *RendererRef) RenderingProxy
	// GenerateRenderingProxyWithCopy pairs the renderer with a snapshot
	// refreshed by CopyDataFromEntity.
	GenerateRenderingProxyWithCopy(r *RendererRef) RenderingProxy
}

// RenderingProxy bridges an entity's shared block and its renderer.
type RenderingProxy interface {
	// CopyDataFromEntity refreshes the snapshot if the entity changed and
	// reports whether a copy happened. Copy proxies may be refreshed and
	// rendered from any goroutine, one call at a time.
	CopyDataFromEntity() bool
	Render(ctx *RenderContext)
	Renderer() *RendererRef
	Creator() RenderCreator
}

type renderCreator[E Entity, T any] struct {
	world   *World
	entity  E
	kind    Kind[E, T]
	wrapper *shared.Wrapper[T]
}

func (c *renderCreator[E, T]) Entity() Entity { return c.entity }

func (c *renderCreator[E, T]) GenerateRenderer() *RendererRef {
	var r Renderer[T] = RendererFunc[T](func(*T, *RenderContext) {})
	if c.kind.Renderer != nil {
		if kr := c.kind.Renderer(c.entity); kr != nil {
			r = kr
		}
	}
	return &RendererRef{kind: c.kind.Name, renderer: r}
}

func (c *renderCreator[E, T]) GenerateRenderingProxyWithoutCopy(ref *RendererRef) RenderingProxy {
	r, ok := c.typed(ref)
	if !ok {
		return nil
	}
	return &noCopyProxy[T]{creator: c, ref: ref, renderer: r, wrapper: c.wrapper}
}

func (c *renderCreator[E, T]) GenerateRenderingProxyWithCopy(ref *RendererRef) RenderingProxy {
	r, ok := c.typed(ref)
	if !ok {
		return nil
	}
	return &copyProxy[T]{creator: c, ref: ref, renderer: r, wrapper: c.wrapper}
}

func (c *renderCreator[E, T]) typed(ref *RendererRef) (Renderer[T], bool) {
	if ref != nil {
		if r, ok := ref.renderer.(Renderer[T]); ok {
			return r, true
		}
	}
	kind := "<nil>"
	if ref != nil {
		kind = ref.kind
	}
	c.world.fatal("renderer of the wrong type for entity",
		log.String("entity", c.entity.Base().Name()),
		log.String("entity_kind", c.kind.Name),
		log.String("renderer_kind", kind),
	)
	return nil, false
}

type noCopyProxy[T any] struct {
	creator  RenderCreator
	ref      *RendererRef
	renderer Renderer[T]
	wrapper  *shared.Wrapper[T]
}

func (p *noCopyProxy[T]) CopyDataFromEntity() bool { return false }

func (p *noCopyProxy[T]) Render(ctx *RenderContext) {
	p.renderer.Render(p.wrapper.Get(), ctx)
}

func (p *noCopyProxy[T]) Renderer() *RendererRef { return p.ref }
func (p *noCopyProxy[T]) Creator() RenderCreator { return p.creator }

type copyProxy[T any] struct {
	creator  RenderCreator
	ref      *RendererRef
	renderer Renderer[T]
	wrapper  *shared.Wrapper[T]
	checker  shared.Checker
	snapshot T
	copies   int
}

func (p *copyProxy[T]) CopyDataFromEntity() bool {
	if !p.wrapper.UpdateNeeded(&p.checker) {
		return false
	}
	p.snapshot = p.wrapper.Snapshot()
	p.copies++
	return true
}

func (p *copyProxy[T]) Render(ctx *RenderContext) {
	p.renderer.Render(&p.snapshot, ctx)
}

func (p *copyProxy[T]) Renderer() *RendererRef { return p.ref }
func (p *copyProxy[T]) Creator() RenderCreator { return p.creator }

// Copies is the number of snapshots taken so far.
func (p *copyProxy[T]) Copies() int { return p.copies }

// CopyCounter is implemented by copy-on-demand proxies.
type CopyCounter interface {
	Copies() int
}

// DrawKind is the primitive of a DrawCommand.
type DrawKind string

const (
	DrawBox    DrawKind = "box"
	DrawSphere DrawKind = "sphere"
	DrawMarker DrawKind = "marker"
	DrawLabel  DrawKind = "label"
	DrawAxes   DrawKind = "axes"
	DrawLine   DrawKind = "line"
)

// DrawCommand is one primitive emitted by a renderer.
type DrawCommand struct {
	Kind      DrawKind    `json:"kind"`
	Entity    string      `json:"entity,omitempty"`
	Transform mgl64.Mat4  `json:"transform"`
	Size      mgl64.Vec3  `json:"size,omitempty"`
	From      mgl64.Vec3  `json:"from,omitempty"`
	To        mgl64.Vec3  `json:"to,omitempty"`
	Color     color.NRGBA `json:"color"`
	Texture   string      `json:"texture,omitempty"`
	Text      string      `json:"text,omitempty"`
}

// DrawList collects draw commands for one frame.
type DrawList struct {
	Commands []DrawCommand
}

func (d *DrawList) Add(cmd DrawCommand) { d.Commands = append(d.Commands, cmd) }
func (d *DrawList) Len() int            { return len(d.Commands) }
func (d *DrawList) Reset()              { d.Commands = d.Commands[:0] }

// RenderContext is passed to renderers for one frame.
type RenderContext struct {
	Draw *DrawList

	DrawObjects bool
	DrawLabels  bool
	DrawAxes    bool
	DrawJoints  bool
	DrawForces  bool

	// Textures resolves texture names. May be nil.
	Textures func(name string) (image.Image, bool)
}

// NewRenderContext returns a context drawing objects only.
func NewRenderContext() *RenderContext {
	return &RenderContext{Draw: &DrawList{}, DrawObjects: true}
}
