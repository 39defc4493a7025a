// Package factory opens the backend named by a configuration.
package factory

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/backend/mangle"
	"github.com/roach88/rgxlog/internal/backend/memory"
	"github.com/roach88/rgxlog/internal/backend/transcript"
	"github.com/roach88/rgxlog/internal/config"
	"github.com/roach88/rgxlog/internal/store"
)

// Open creates the backend cfg.Backend names, sharing namer.
// When transcriptTo is non-nil every backend call is recorded to it.
func Open(cfg config.Config, namer *backend.Namer, logger *slog.Logger, transcriptTo io.Writer) (backend.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", cfg.Backend)

	var b backend.Backend
	switch cfg.Backend {
	case config.BackendMemory, "":
		b = memory.New(namer, memory.WithLogger(logger))
	case config.BackendSQLite:
		s, err := store.Open(cfg.SQLitePath, store.WithNamer(namer), store.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		b = s
	case config.BackendMangle:
		b = mangle.New(namer, mangle.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if transcriptTo != nil {
		b = transcript.New(b, transcriptTo, namer)
	}
	return b, nil
}
