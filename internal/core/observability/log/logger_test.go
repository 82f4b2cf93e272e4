package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "", want: LevelInfo},
		{in: " WARN ", want: LevelWarn},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "fatal", want: LevelFatal},
		{in: "verbose", want: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToZapFields(t *testing.T) {
	fields := toZapFields(
		Bool("b", true),
		Duration("d", time.Second),
		Float64("f", 1.5),
		Int("i", 3),
		Uint64("u", 4),
		String("s", "x"),
		Stringer("st", time.Second),
		Error(errors.New("boom")),
		Any("a", []int{1}),
	)
	require.Len(t, fields, 9)
	assert.Equal(t, "b", fields[0].Key)
	assert.Equal(t, "error", fields[7].Key)

	assert.NotPanics(t, func() { NewNop().Info("stopped", Error(nil)) })
}

func TestLogger_Levels(t *testing.T) {
	l := New(LevelWarn)
	assert.Equal(t, LevelWarn, l.GetLevel())

	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, l.GetLevel())

	child := l.With(String("component", "test"))
	assert.Equal(t, LevelDebug, child.GetLevel())
	child.Debug("hello", Int("n", 1))
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("discarded")
	assert.NotNil(t, Provide())
}

func TestBuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.log")
	l, err := Build(Options{Level: LevelInfo, Format: FormatConsole, Outputs: []string{path}})
	require.NoError(t, err)

	l.Debug("hidden")
	l.With(String("world", "arena")).Info("stepped", Uint64("steps", 3))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stepped")
	assert.Contains(t, string(data), "arena")
	assert.NotContains(t, string(data), "hidden")

	_, err = Build(Options{Format: "xml"})
	assert.ErrorContains(t, err, "xml")
}
