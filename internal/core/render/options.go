// Package render provides renderer containers turning the entities of a
// world into frames of draw commands.
//
// LocalView renders live shared blocks and must be used on the simulation
// goroutine. SnapshotView renders copies refreshed on demand and may be
// used from any goroutine.
package render

import (
	"slices"

	"github.com/zeusync/worldsim/internal/core/world"
)

// Options select what the views draw besides the objects themselves.
type Options struct {
	Labels bool
	Axes   bool
	Joints bool
	Forces bool

	// Workers bounds the goroutines refreshing snapshots. Zero means
	// GOMAXPROCS. LocalView ignores it.
	Workers int
}

type Option func(*Options)

func WithLabels() Option { return func(o *Options) { o.Labels = true } }
func WithAxes() Option   { return func(o *Options) { o.Axes = true } }
func WithJoints() Option { return func(o *Options) { o.Joints = true } }
func WithForces() Option { return func(o *Options) { o.Forces = true } }

func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

func newOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o Options) context() *world.RenderContext {
	ctx := world.NewRenderContext()
	ctx.DrawLabels = o.Labels
	ctx.DrawAxes = o.Axes
	ctx.DrawJoints = o.Joints
	ctx.DrawForces = o.Forces
	return ctx
}

// Frame is the output of one rendering pass.
type Frame struct {
	Seq      uint64              `json:"seq"`
	Info     world.GraphicalInfo `json:"info"`
	Textures []string            `json:"textures"`
	Commands []world.DrawCommand `json:"commands"`
}

// entry is one rendered entity. id is captured on the simulation goroutine
// so rendering never reads the entity itself.
type entry struct {
	id    string
	proxy world.RenderingProxy
}

func newEntry(creator world.RenderCreator, proxy world.RenderingProxy) entry {
	return entry{id: creator.Entity().Base().ID().String(), proxy: proxy}
}

func removeEntry(entries []entry, creator world.RenderCreator) []entry {
	return slices.DeleteFunc(entries, func(e entry) bool { return e.proxy.Creator() == creator })
}

// renderEntries renders every proxy into ctx, stamping the commands with the
// entity id.
func renderEntries(entries []entry, ctx *world.RenderContext) {
	for _, e := range entries {
		from := ctx.Draw.Len()
		e.proxy.Render(ctx)
		for i := from; i < ctx.Draw.Len(); i++ {
			ctx.Draw.Commands[i].Entity = e.id
		}
	}
}
