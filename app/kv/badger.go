// Package kv opens the embedded badger store used by the "badger" storage backend.
package kv

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Open opens (or creates) a badger database in dir. An empty dir opens an in-memory store.
func Open(dir string, logger *slog.Logger) (*badger.DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(&slogAdapter{logger: logger.With(slog.String("component", "badger"))})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	logger.Info("Badger store opened", slog.String("dir", dir), slog.Bool("in_memory", dir == ""))
	return db, nil
}

// slogAdapter satisfies badger.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(trim(format, args...))
}

func (a *slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(trim(format, args...))
}

func (a *slogAdapter) Infof(format string, args ...any) {
	a.logger.Debug(trim(format, args...))
}

func (a *slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(trim(format, args...))
}

func trim(format string, args ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
