package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldsim/internal/config"
)

func TestInitializeServer(t *testing.T) {
	cfg := config.Default()
	cfg.Physics.Engine = config.EngineNull
	cfg.Remote.Enabled = false
	cfg.Log.Level = "error"
	cfg.Scene = []config.Object{
		{Kind: "box", Name: "crate", Size: [3]float64{1, 1, 1}},
		{Kind: "sphere", Name: "ball", Radius: 0.5},
	}

	srv, cleanup, err := InitializeServer(cfg)
	require.NoError(t, err)
	defer cleanup()
	defer srv.Close()

	assert.Equal(t, 2, srv.Stats().Entities)
}

func TestInitializeServer_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	_, _, err := InitializeServer(cfg)
	assert.ErrorContains(t, err, "log level")

	cfg = config.Default()
	cfg.Physics.Engine = config.EngineNull
	cfg.Log.Level = "error"
	cfg.Scene = []config.Object{{Kind: "box", Name: "crate", Size: [3]float64{1, 1, 1}, Material: "missing"}}
	_, _, err = InitializeServer(cfg)
	assert.ErrorContains(t, err, "populate world")
}
