package injector

import (
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/worldsim/internal/config"
	"github.com/zeusync/worldsim/internal/core/events/bus"
	"github.com/zeusync/worldsim/internal/core/observability/log"
	"github.com/zeusync/worldsim/internal/core/world"
	"github.com/zeusync/worldsim/internal/server"
)

// ProviderSet builds a running server out of a configuration.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideWorld,
	server.New,
)

// ProvideLogger builds the process logger at the configured level.
func ProvideLogger(cfg *config.Config) (log.Log, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger, err := log.Build(log.Options{
		Level:   level,
		Format:  cfg.Log.Format,
		Outputs: cfg.Log.Output,
		Sampled: true,
	})
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func ProvideBus() bus.EventBus { return bus.New() }

// ProvideWorld creates the configured world and populates its scene.
// The cleanup closes the world and its physics engine.
func ProvideWorld(cfg *config.Config, logger log.Log, b bus.EventBus) (*world.World, func(), error) {
	opts := append(cfg.WorldOptions(), world.WithLogger(logger), world.WithBus(b))
	w := world.New(cfg.World.Name, opts...)
	cleanup := func() {
		if err := w.Close(); err != nil {
			logger.Warn("close world", log.Error(err))
		}
	}
	if err := cfg.Populate(w); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("populate world: %w", err)
	}
	logger.Info("world ready",
		log.String("world", w.Name()),
		log.Int("entities", w.Stats().Entities),
	)
	return w, cleanup, nil
}
