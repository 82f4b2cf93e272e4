package world

import (
	"fmt"
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldsim/internal/core/physics"
)

type testShared struct {
	EntityShared
	Value int
}

type testEntity struct {
	*WEntity
	trace     *[]string
	onPre     func()
	destroyed int
}

func (e *testEntity) PreUpdate() {
	if e.trace != nil {
		*e.trace = append(*e.trace, "pre "+e.Name())
	}
	if e.onPre != nil {
		e.onPre()
	}
}

func (e *testEntity) PostUpdate() {
	if e.trace != nil {
		*e.trace = append(*e.trace, "post "+e.Name())
	}
}

func (e *testEntity) Destroy() { e.destroyed++ }

var testKind = Kind[*testEntity, testShared]{
	Name: "test",
	Renderer: func(e *testEntity) Renderer[testShared] {
		name := e.Name()
		return RendererFunc[testShared](func(b *testShared, ctx *RenderContext) {
			ctx.Draw.Add(DrawCommand{Kind: DrawMarker, Entity: name, Color: b.Color, Texture: b.Texture, Text: fmt.Sprint(b.Value)})
		})
	},
}

func newTestWorld(opts ...Option) *World {
	return New("test", append([]Option{WithFatalHandler(PanicFatalHandler)}, opts...)...)
}

func newTestEntity(t *testing.T, w *World, name string, opts ...CreateOption) *testEntity {
	t.Helper()
	e, err := CreateEntity(w, testKind, func(c Construction[testShared]) (*testEntity, error) {
		base, err := NewWEntity(c, name)
		if err != nil {
			return nil, err
		}
		return &testEntity{WEntity: base}, nil
	}, opts...)
	require.NoError(t, err)
	return e
}

// requireFatal runs fn and returns the fatal error it raised.
func requireFatal(t *testing.T, fn func()) (fe *FatalError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "fatal handler was not called")
		var ok bool
		fe, ok = r.(*FatalError)
		require.True(t, ok, "unexpected panic %v", r)
	}()
	fn()
	return nil
}

func names(es []Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Base().Name())
	}
	return out
}

func nameOf(e Entity) string {
	if e == nil {
		return "-"
	}
	return e.Base().Name()
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) OwnerChanged(e, old Entity) {
	l.events = append(l.events, fmt.Sprintf("ownerChanged %s %s", nameOf(e), nameOf(old)))
}

func (l *recordingListener) OwnedChangedOwner(e, owned, newOwner Entity, destroyed bool) {
	l.events = append(l.events, fmt.Sprintf("ownedChangedOwner %s %s %s %t", nameOf(e), nameOf(owned), nameOf(newOwner), destroyed))
}

func (l *recordingListener) OwnedAdded(e, owned Entity) {
	l.events = append(l.events, fmt.Sprintf("ownedAdded %s %s", nameOf(e), nameOf(owned)))
}

func (l *recordingListener) EntityDestroyed(e Entity) {
	l.events = append(l.events, "destroyed "+nameOf(e))
}

func (l *recordingListener) ListenerChanged(e Entity, _ ChangesListener) {
	l.events = append(l.events, "listenerChanged "+nameOf(e))
}

type testContainer struct {
	*RendererContainer
	added, removed []string
	texEvents      []string
	info           GraphicalInfo
	updates        int
}

func (c *testContainer) RendererAdded(creator RenderCreator, _ *RendererRef) {
	c.added = append(c.added, nameOf(creator.Entity()))
}

func (c *testContainer) RendererToBeDeleted(creator RenderCreator, _ *RendererRef) {
	c.removed = append(c.removed, nameOf(creator.Entity()))
}

func (c *testContainer) TextureAdded(name string, _ image.Image) {
	c.texEvents = append(c.texEvents, "+"+name)
}

func (c *testContainer) TextureToBeDeleted(name string) {
	c.texEvents = append(c.texEvents, "-"+name)
}

func (c *testContainer) WorldGraphicalInfoChanged(info GraphicalInfo) { c.info = info }
func (c *testContainer) Update()                                      { c.updates++ }

func newTestContainer(t *testing.T, w *World) *testContainer {
	t.Helper()
	c, err := CreateRenderersContainer(w, func(cc ContainerConstruction) (*testContainer, error) {
		tc := &testContainer{}
		rc, err := NewRendererContainer(cc, tc)
		if err != nil {
			return nil, err
		}
		tc.RendererContainer = rc
		return tc, nil
	})
	require.NoError(t, err)
	return c
}

// fakeEngine records steps and serves canned contacts and hits.
type fakeEngine struct {
	*physics.NullEngine
	trace    *[]string
	contacts []physics.Contact
	hits     []physics.RayCastHit
	ignored  []physics.Body
	gravity  float64
}

func newFakeEngine(trace *[]string) *fakeEngine {
	return &fakeEngine{NullEngine: physics.NewNullEngine(), trace: trace}
}

func (f *fakeEngine) Step(dt float64) {
	f.NullEngine.Step(dt)
	if f.trace != nil {
		*f.trace = append(*f.trace, "step")
	}
}

func (f *fakeEngine) Contacts() []physics.Contact { return f.contacts }

func (f *fakeEngine) RayCast(_, _ mgl64.Vec3, _ bool, ignored ...physics.Body) []physics.RayCastHit {
	f.ignored = ignored
	return f.hits
}

func (f *fakeEngine) SetGravity(g float64) { f.gravity = g }

type bodyEntity struct {
	*WEntity
	body physics.Body
}

func (b *bodyEntity) PhysicsBody() physics.Body { return b.body }

var bodyKind = Kind[*bodyEntity, testShared]{Name: "body"}

func newBodyEntity(t *testing.T, w *World, name string) *bodyEntity {
	t.Helper()
	e, err := CreateEntity(w, bodyKind, func(c Construction[testShared]) (*bodyEntity, error) {
		base, err := NewWEntity(c, name)
		if err != nil {
			return nil, err
		}
		return &bodyEntity{WEntity: base}, nil
	})
	require.NoError(t, err)
	e.body, err = w.Engine().AddBody(physics.BodySpec{Shape: physics.Sphere, Radius: 1, Mass: 1, Owner: e})
	require.NoError(t, err)
	return e
}

type jointEntity struct {
	*WEntity
	parent, child Entity
	destroyed     int
}

func (j *jointEntity) JointBodies() (parent, child Entity) { return j.parent, j.child }
func (j *jointEntity) Destroy()                            { j.destroyed++ }

var jointKind = Kind[*jointEntity, testShared]{Name: "joint"}

func newJointEntity(t *testing.T, w *World, name string, parent, child Entity) *jointEntity {
	t.Helper()
	j, err := CreateEntity(w, jointKind, func(c Construction[testShared]) (*jointEntity, error) {
		base, err := NewWEntity(c, name)
		if err != nil {
			return nil, err
		}
		return &jointEntity{WEntity: base, parent: parent, child: child}, nil
	})
	require.NoError(t, err)
	return j
}
