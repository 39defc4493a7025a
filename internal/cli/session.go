package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rgxlog/internal/ast"
	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/backend/factory"
	"github.com/roach88/rgxlog/internal/config"
	"github.com/roach88/rgxlog/internal/engine"
)

// session is an engine opened from the CLI configuration, plus the
// resources it owns.
type session struct {
	engine  *engine.Engine
	config  config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// Close releases the engine and any transcript file.
func (s *session) Close() error {
	var first error
	if err := s.engine.Close(); err != nil {
		first = err
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// sessionOverrides are per-command flags layered over the config file.
type sessionOverrides struct {
	Backend    string
	Transcript string
	BaseDir    string
}

// loadConfig reads --config, or returns the defaults when it is unset.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.Config == "" {
		return config.Default(), nil
	}
	return config.Load(opts.Config)
}

// openSession builds the logger, backend and engine for one CLI command.
func openSession(opts *RootOptions, over sessionOverrides, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if over.Backend != "" {
		cfg.Backend = over.Backend
	}
	if over.Transcript != "" {
		cfg.Transcript = over.Transcript
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = over.BaseDir
	}

	logger := newSlogLogger(newZapLogger(cmd.ErrOrStderr(), cfg.SlogLevel(), opts.Verbose))
	s := &session{config: cfg, logger: logger}

	var transcript io.Writer
	switch cfg.Transcript {
	case "":
	case "-":
		transcript = cmd.ErrOrStderr()
	default:
		f, err := os.Create(cfg.Transcript)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create transcript", err)
		}
		s.closers = append(s.closers, f)
		transcript = f
	}

	namer := backend.NewNamer()
	b, err := factory.Open(cfg, namer, logger, transcript)
	if err != nil {
		for _, c := range s.closers {
			c.Close()
		}
		return nil, WrapExitError(ExitCommandError, "failed to open backend", err)
	}

	s.engine = engine.New(b, namer,
		engine.WithLogger(logger),
		engine.WithMaxIETuples(cfg.MaxIETuples),
		engine.WithBaseDir(cfg.BaseDir),
	)
	logger.Debug("session opened",
		"session", s.engine.SessionID(),
		"backend", cfg.Backend,
		"max_ie_tuples", cfg.MaxIETuples)
	return s, nil
}

// readProgram decodes a labeled-tree program file. The format follows the
// extension: .json, or .yaml/.yml.
func readProgram(path string) (*ast.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open program", err)
	}
	defer f.Close()

	var tree *ast.Labeled
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		tree, err = ast.ReadJSON(f)
	case ".yaml", ".yml":
		tree, err = ast.ReadYAML(f)
	default:
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("unsupported program file %s: want .json, .yaml or .yml", path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	prog, err := ast.Decode(tree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// programBaseDir is the directory read() resolves against when the
// configuration names none: the directory of the first program.
func programBaseDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return filepath.Dir(paths[0])
}
