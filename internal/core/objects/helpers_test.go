package objects

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldsim/internal/core/physics/chipmunk"
	"github.com/zeusync/worldsim/internal/core/world"
)

func newWorld(opts ...world.Option) *world.World {
	return world.New("objects", append([]world.Option{world.WithFatalHandler(world.PanicFatalHandler)}, opts...)...)
}

func newPhysicsWorld(t *testing.T, gravity float64) *world.World {
	t.Helper()
	w := newWorld(world.WithEngine(chipmunk.New(gravity, 10)), world.WithGravity(gravity))
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func requireFatal(t *testing.T, fn func()) (fe *world.FatalError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "fatal handler was not called")
		var ok bool
		fe, ok = r.(*world.FatalError)
		require.True(t, ok, "unexpected panic %v", r)
	}()
	fn()
	return nil
}

func kinds(cmds []world.DrawCommand) []world.DrawKind {
	out := make([]world.DrawKind, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Kind)
	}
	return out
}
