// Package server runs a world: it advances the simulation at the configured
// time step on its own goroutine and serves the remote view and a health
// endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/worldsim/internal/config"
	"github.com/zeusync/worldsim/internal/core/events/bus"
	"github.com/zeusync/worldsim/internal/core/observability/log"
	"github.com/zeusync/worldsim/internal/core/render/remote"
	"github.com/zeusync/worldsim/internal/core/world"
)

const shutdownTimeout = 5 * time.Second

// Server owns the simulation goroutine. Once Run is called the world must
// not be touched from any other goroutine.
type Server struct {
	cfg    *config.Config
	logger log.Log
	world  *world.World
	bus    bus.EventBus
	view   *remote.View
	http   *http.Server

	subs    []bus.Subscription
	stats   atomic.Pointer[world.Stats]
	running atomic.Bool
}

// New prepares a server for w. The remote view, when enabled, is
// registered with the world here, before the simulation goroutine exists.
func New(cfg *config.Config, logger log.Log, w *world.World, b bus.EventBus) (*Server, error) {
	if cfg == nil || w == nil {
		return nil, ErrInvalidConfig
	}
	if stepDuration(w.TimeStep()) <= 0 {
		return nil, fmt.Errorf("%w: time step %v is below the clock resolution", ErrInvalidConfig, w.TimeStep())
	}
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.With(log.String("world", w.Name())),
		world:  w,
		bus:    b,
	}

	if cfg.Remote.Enabled {
		v, err := remote.New(w, logger,
			remote.WithFrameRate(cfg.Remote.FrameRate),
			remote.WithWriteTimeout(cfg.Remote.WriteTimeout),
			remote.WithRenderOptions(cfg.Remote.Draw.Options()...),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		s.view = v
		s.http = &http.Server{
			Addr:              cfg.Remote.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	if b != nil {
		if err := s.subscribe(); err != nil {
			return nil, err
		}
	}

	stats := w.Stats()
	s.stats.Store(&stats)
	return s, nil
}

func (s *Server) subscribe() error {
	logEntity := func(e bus.Event) error {
		info, ok := e.Data().(bus.EntityInfo)
		if !ok {
			return nil
		}
		s.logger.Debug(e.Type(),
			log.String("entity", info.Name),
			log.String("kind", info.Kind),
			log.String("id", info.ID.String()),
		)
		return nil
	}
	for _, typ := range []string{bus.EntityCreated, bus.EntityDestroyed, bus.OwnerChanged} {
		sub, err := s.bus.Subscribe(typ, logEntity)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", typ, err)
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

// Handler serves the remote view and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	if s.view != nil {
		mux.Handle(s.cfg.Remote.Path, s.view)
	}
	return mux
}

// Stats returns the world counters as of the last step.
func (s *Server) Stats() world.Stats { return *s.stats.Load() }

// Run blocks until ctx is done or a component fails.
func (s *Server) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}
	defer s.running.Store(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.simulate(ctx) })

	if s.view != nil {
		g.Go(func() error { return s.view.Run(ctx) })
		g.Go(func() error {
			s.logger.Info("serving remote view", log.String("address", s.http.Addr), log.String("path", s.cfg.Remote.Path))
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = s.view.Close()
			return s.http.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	s.logger.Info("server stopped", log.Uint64("steps", s.Stats().Steps), log.Error(err))
	return err
}

// simulate advances the world once per time step of wall clock.
func (s *Server) simulate(ctx context.Context) error {
	ticker := time.NewTicker(stepDuration(s.world.TimeStep()))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.world.Advance()
			stats := s.world.Stats()
			s.stats.Store(&stats)
		}
	}
}

func stepDuration(step float64) time.Duration {
	return time.Duration(step * float64(time.Second))
}

// Close cancels the bus subscriptions. The world is closed by its owner.
func (s *Server) Close() error {
	var errs []error
	for _, sub := range s.subs {
		errs = append(errs, sub.Cancel())
	}
	s.subs = nil
	return errors.Join(errs...)
}
