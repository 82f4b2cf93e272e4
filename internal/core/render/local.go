package render

import (
	"image"
	"maps"
	"slices"

	"github.com/zeusync/worldsim/internal/core/world"
)

// LocalView renders the live shared blocks of the world. Every method,
// Frame included, must run on the simulation goroutine.
type LocalView struct {
	*world.RendererContainer

	opts     Options
	entries  []entry
	info     world.GraphicalInfo
	textures map[string]struct{}
	seq      uint64
	updates  int
}

// NewLocalView creates a view of w and registers it with the world.
func NewLocalView(w *world.World, opts ...Option) (*LocalView, error) {
	return world.CreateRenderersContainer(w, func(c world.ContainerConstruction) (*LocalView, error) {
		v := &LocalView{opts: newOptions(opts), textures: make(map[string]struct{})}
		rc, err := world.NewRendererContainer(c, v)
		if err != nil {
			return nil, err
		}
		v.RendererContainer = rc
		return v, nil
	})
}

func (v *LocalView) RendererAdded(creator world.RenderCreator, r *world.RendererRef) {
	v.entries = append(v.entries, newEntry(creator, creator.GenerateRenderingProxyWithoutCopy(r)))
}

func (v *LocalView) RendererToBeDeleted(creator world.RenderCreator, _ *world.RendererRef) {
	v.entries = removeEntry(v.entries, creator)
}

func (v *LocalView) TextureAdded(name string, _ image.Image) { v.textures[name] = struct{}{} }
func (v *LocalView) TextureToBeDeleted(name string)          { delete(v.textures, name) }

func (v *LocalView) WorldGraphicalInfoChanged(info world.GraphicalInfo) { v.info = info }

func (v *LocalView) Update() { v.updates++ }

// Updates is the number of world steps seen by the view.
func (v *LocalView) Updates() int { return v.updates }

// Frame renders the current state of every entity.
func (v *LocalView) Frame() Frame {
	ctx := v.opts.context()
	renderEntries(v.entries, ctx)
	v.seq++
	return Frame{
		Seq:      v.seq,
		Info:     v.info,
		Textures: slices.Sorted(maps.Keys(v.textures)),
		Commands: ctx.Draw.Commands,
	}
}
