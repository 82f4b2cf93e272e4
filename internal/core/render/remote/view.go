// Package remote streams world frames to browsers over websocket.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/worldsim/internal/core/observability/log"
	"github.com/zeusync/worldsim/internal/core/render"
	"github.com/zeusync/worldsim/internal/core/world"
	"github.com/zeusync/worldsim/pkg/concurrent"
	"github.com/zeusync/worldsim/pkg/generic"
)

const (
	DefaultFrameRate    = 30
	DefaultWriteTimeout = 2 * time.Second
)

type Options struct {
	FrameRate    int
	WriteTimeout time.Duration
	Render       []render.Option
}

type Option func(*Options)

func WithFrameRate(fps int) Option {
	return func(o *Options) { o.FrameRate = fps }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) { o.WriteTimeout = d }
}

// WithRenderOptions sets the draw options of the underlying view.
func WithRenderOptions(opts ...render.Option) Option {
	return func(o *Options) { o.Render = append(o.Render, opts...) }
}

type client struct {
	id    uuid.UUID
	conn  *websocket.Conn
	fresh bool
}

// View is a renderer container serving its frames as JSON text messages
// to every connected websocket client. A frame is sent only when something
// changed, except to clients that have not received one yet.
type View struct {
	snap     *render.SnapshotView
	logger   log.Log
	opts     Options
	upgrader websocket.Upgrader
	buffers  *generic.Pool[*bytes.Buffer]
	stepped  chan struct{}

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// New creates the view and registers it with w. It must be called on the
// simulation goroutine.
func New(w *world.World, logger log.Log, opts ...Option) (*View, error) {
	o := Options{FrameRate: DefaultFrameRate, WriteTimeout: DefaultWriteTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.FrameRate <= 0 {
		return nil, fmt.Errorf("remote view: invalid frame rate %d", o.FrameRate)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	snap, err := render.NewSnapshotView(w, o.Render...)
	if err != nil {
		return nil, fmt.Errorf("remote view: %w", err)
	}
	v := &View{
		snap:   snap,
		logger: logger.With(log.String("component", "remote_view")),
		opts:   o,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		buffers: generic.NewResetPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset),
		stepped: make(chan struct{}, 1),
		clients: make(map[uuid.UUID]*client),
	}
	snap.OnUpdate(v.notifyStep)
	return v, nil
}

// notifyStep runs on the simulation goroutine and never blocks it.
func (v *View) notifyStep() {
	select {
	case v.stepped <- struct{}{}:
	default:
	}
}

// Snapshot returns the container the frames are taken from.
func (v *View) Snapshot() *render.SnapshotView { return v.snap }

func (v *View) Clients() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.clients)
}

// ServeHTTP upgrades the request and keeps the client until it goes away.
func (v *View) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := v.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		v.logger.Warn("websocket upgrade failed", log.Error(err), log.String("remote", r.RemoteAddr))
		return
	}
	c := &client{id: uuid.New(), conn: conn, fresh: true}

	v.mu.Lock()
	v.clients[c.id] = c
	v.mu.Unlock()
	v.logger.Info("client connected", log.String("client", c.id.String()), log.String("remote", r.RemoteAddr))

	// Clients only listen; reading drives pings and close frames.
	for {
		if _, _, err = conn.NextReader(); err != nil {
			break
		}
	}
	v.drop(c, err)
}

// Run sends a frame right after each world step, no more often than the
// configured rate, until ctx is done. While the world is idle a frame is
// still taken once per period so new clients and paused edits are served.
func (v *View) Run(ctx context.Context) error {
	period := time.Second / time.Duration(v.opts.FrameRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-v.stepped:
			if time.Since(last) < period {
				continue
			}
		case <-ticker.C:
		}
		last = time.Now()
		ticker.Reset(period)
		if err := v.Tick(ctx); err != nil {
			return err
		}
	}
}

// Tick takes one frame and sends it to the clients needing it. Clients
// failing to receive it are disconnected. Sending stops early once ctx is
// done.
func (v *View) Tick(ctx context.Context) error {
	frame, changed := v.snap.Frame()

	v.mu.Lock()
	targets := make([]*client, 0, len(v.clients))
	for _, c := range v.clients {
		if changed || c.fresh {
			targets = append(targets, c)
		}
	}
	v.mu.Unlock()
	if len(targets) == 0 {
		return nil
	}

	buf := v.buffers.Get()
	defer v.buffers.Put(buf)
	if err := json.NewEncoder(buf).Encode(frame); err != nil {
		return fmt.Errorf("encode frame %d: %w", frame.Seq, err)
	}
	payload := buf.Bytes()

	return concurrent.ForEach(ctx, targets, 0, func(_ context.Context, c *client) error {
		if err := v.send(c, payload); err != nil {
			v.drop(c, err)
		}
		return nil
	})
}

func (v *View) send(c *client, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(v.opts.WriteTimeout)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	v.mu.Lock()
	c.fresh = false
	v.mu.Unlock()
	return nil
}

func (v *View) drop(c *client, reason error) {
	v.mu.Lock()
	_, ok := v.clients[c.id]
	delete(v.clients, c.id)
	v.mu.Unlock()
	if !ok {
		return
	}
	_ = c.conn.Close()
	v.logger.Info("client disconnected", log.String("client", c.id.String()), log.Error(reason))
}

// Close disconnects every client. The view stays registered with the world
// until the world deletes it.
func (v *View) Close() error {
	v.mu.Lock()
	clients := make([]*client, 0, len(v.clients))
	for _, c := range v.clients {
		clients = append(clients, c)
	}
	clear(v.clients)
	v.mu.Unlock()

	deadline := time.Now().Add(v.opts.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "view closed")
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = c.conn.Close()
	}
	return nil
}
