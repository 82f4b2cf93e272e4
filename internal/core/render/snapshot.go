package render

import (
	"image"
	"maps"
	"slices"
	"sync"

	"github.com/zeusync/worldsim/internal/core/world"
	"github.com/zeusync/worldsim/pkg/concurrent"
)

// SnapshotView renders copies of the shared blocks. The container hooks run
// on the simulation goroutine; Frame may be called from any goroutine and
// never blocks the simulation for longer than a slice copy.
type SnapshotView struct {
	*world.RendererContainer

	opts Options

	mu       sync.Mutex
	entries  []entry
	info     world.GraphicalInfo
	textures map[string]struct{}
	dirty    bool
	onUpdate func()

	frameMu sync.Mutex
	seq     uint64
}

// NewSnapshotView creates a view of w and registers it with the world.
func NewSnapshotView(w *world.World, opts ...Option) (*SnapshotView, error) {
	return world.CreateRenderersContainer(w, func(c world.ContainerConstruction) (*SnapshotView, error) {
		v := &SnapshotView{
			opts:     newOptions(opts),
			textures: make(map[string]struct{}),
			dirty:    true,
		}
		rc, err := world.NewRendererContainer(c, v)
		if err != nil {
			return nil, err
		}
		v.RendererContainer = rc
		return v, nil
	})
}

func (v *SnapshotView) RendererAdded(creator world.RenderCreator, r *world.RendererRef) {
	e := newEntry(creator, creator.GenerateRenderingProxyWithCopy(r))
	v.mu.Lock()
	v.entries = append(v.entries, e)
	v.dirty = true
	v.mu.Unlock()
}

func (v *SnapshotView) RendererToBeDeleted(creator world.RenderCreator, _ *world.RendererRef) {
	v.mu.Lock()
	v.entries = removeEntry(slices.Clone(v.entries), creator)
	v.dirty = true
	v.mu.Unlock()
}

func (v *SnapshotView) TextureAdded(name string, _ image.Image) {
	v.mu.Lock()
	v.textures[name] = struct{}{}
	v.dirty = true
	v.mu.Unlock()
}

func (v *SnapshotView) TextureToBeDeleted(name string) {
	v.mu.Lock()
	delete(v.textures, name)
	v.dirty = true
	v.mu.Unlock()
}

func (v *SnapshotView) WorldGraphicalInfoChanged(info world.GraphicalInfo) {
	v.mu.Lock()
	v.info = info
	v.dirty = true
	v.mu.Unlock()
}

// OnUpdate registers fn to run on the simulation goroutine after every
// world step.
func (v *SnapshotView) OnUpdate(fn func()) {
	v.mu.Lock()
	v.onUpdate = fn
	v.mu.Unlock()
}

func (v *SnapshotView) Update() {
	v.mu.Lock()
	fn := v.onUpdate
	v.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Frame refreshes the snapshots of changed entities, in parallel when the
// view has more than one worker, and renders them.
// changed is false when neither an entity nor the view itself changed
// since the previous frame.
func (v *SnapshotView) Frame() (f Frame, changed bool) {
	v.frameMu.Lock()
	defer v.frameMu.Unlock()

	v.mu.Lock()
	entries := v.entries
	info := v.info
	textures := slices.Sorted(maps.Keys(v.textures))
	changed = v.dirty
	v.dirty = false
	v.mu.Unlock()

	copied := concurrent.ParallelMap(entries, v.opts.Workers, func(e entry) bool {
		return e.proxy.CopyDataFromEntity()
	})
	changed = changed || slices.Contains(copied, true)

	ctx := v.opts.context()
	renderEntries(entries, ctx)
	v.seq++
	return Frame{
		Seq:      v.seq,
		Info:     info,
		Textures: textures,
		Commands: ctx.Draw.Commands,
	}, changed
}

// Copies is the total number of snapshots taken by the proxies currently in
// the view.
func (v *SnapshotView) Copies() int {
	v.frameMu.Lock()
	defer v.frameMu.Unlock()
	v.mu.Lock()
	entries := v.entries
	v.mu.Unlock()
	n := 0
	for _, e := range entries {
		if c, ok := e.proxy.(world.CopyCounter); ok {
			n += c.Copies()
		}
	}
	return n
}
