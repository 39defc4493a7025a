package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, Config{
		Backend:     BackendMemory,
		SQLitePath:  ":memory:",
		LogLevel:    "info",
		MaxIETuples: 1000000,
	}, cfg)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
backend:       "sqlite"
sqlite_path:   "/tmp/rgx.db"
log_level:     "debug"
max_ie_tuples: 0
transcript:    "out.txt"
`), "rgxlog.cue")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "/tmp/rgx.db", cfg.SQLitePath)
	assert.Equal(t, 0, cfg.MaxIETuples)
	assert.Equal(t, "out.txt", cfg.Transcript)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestParseAcceptsJSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"backend": "mangle", "base_dir": "programs"}`), "rgxlog.json")
	require.NoError(t, err)
	assert.Equal(t, BackendMangle, cfg.Backend)
	assert.Equal(t, "programs", cfg.BaseDir)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"unknown backend", `backend: "postgres"`, "backend"},
		{"negative quota", `max_ie_tuples: -1`, "max_ie_tuples"},
		{"empty sqlite path", `sqlite_path: ""`, "sqlite_path"},
		{"unknown field", `workers: 4`, "workers"},
		{"wrong type", `max_ie_tuples: "many"`, "max_ie_tuples"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), "bad.cue")
			require.Error(t, err)
			assert.True(t, IsConfigError(err), err.Error())
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseSyntaxErrorHasPosition(t *testing.T) {
	_, err := Parse([]byte("backend: \"memory\"\nlog_level: {"), "broken.cue")
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Equal(t, "broken.cue", ce.Pos.Filename())
	assert.Contains(t, err.Error(), "broken.cue:")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rgxlog.cue")
	require.NoError(t, os.WriteFile(path, []byte(`log_level: "warn"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, BackendMemory, cfg.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}
