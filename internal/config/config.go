// Package config loads rgxlog configuration files.
//
// A configuration file is CUE (JSON is valid CUE). It is unified with the
// embedded #Config schema, which supplies defaults and rejects unknown
// fields, then decoded into Config.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// Backend names accepted in the backend field.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMangle = "mangle"
)

// Config is the decoded configuration.
type Config struct {
	Backend     string `json:"backend"`
	SQLitePath  string `json:"sqlite_path"`
	LogLevel    string `json:"log_level"`
	MaxIETuples int    `json:"max_ie_tuples"`
	Transcript  string `json:"transcript"`
	BaseDir     string `json:"base_dir"`
}

// ConfigError is a configuration problem with its source position.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := Parse(nil, "default.cue")
	if err != nil {
		panic(fmt.Sprintf("config schema has no valid defaults: %v", err))
	}
	return cfg
}

// Load reads and parses the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Field: "file", Message: err.Error()}
	}
	return Parse(data, path)
}

// Parse unifies data with the schema and decodes the result.
// filename is used in error positions.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ConfigError{Field: "cue", Message: err.Error()}
	}

	// Report the first error; CUE lists them in source order.
	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = path[len(path)-1]
	}
	ce := &ConfigError{Field: field, Message: first.Error()}
	// The input's own position is more useful than the schema's.
	for _, pos := range cueerrors.Positions(first) {
		if pos.Filename() != "schema.cue" {
			ce.Pos = pos
			break
		}
	}
	return ce
}
