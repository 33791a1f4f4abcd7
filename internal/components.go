package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/docshelf/internal/catalog"
	"github.com/starford/docshelf/internal/library"
	"github.com/starford/docshelf/internal/retrieval"
	"github.com/starford/docshelf/internal/scanner"
	"github.com/starford/docshelf/internal/storage"
	"github.com/starford/docshelf/internal/syncer"
)

// NewLogger returns a JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Components is the wired catalog engine shared by the server, the CLI
// commands and the MCP server.
type Components struct {
	Root    *storage.Root
	Store   *catalog.DB
	Scanner *scanner.Scanner
	Syncer  *syncer.Synchronizer
	Library *library.Service
}

// Build opens the catalog and wires the engine from cfg. onChange, if non-nil,
// receives every catalog mutation.
func Build(cfg *Config, logger *slog.Logger, onChange syncer.ChangeFunc) (*Components, error) {
	if err := os.MkdirAll(cfg.Library.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}

	root, err := storage.NewRoot(cfg.Library.Root, cfg.Library.Extension)
	if err != nil {
		return nil, fmt.Errorf("init library root: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path, catalog.WithOpTimeout(cfg.Sync.OpTimeout))
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	scan := scanner.New(root.Dir(), root.Extension(),
		scanner.WithTTL(cfg.Library.CacheTTL),
		scanner.WithTimeout(cfg.Sync.OpTimeout),
		scanner.WithLogger(logger))

	syncOpts := []syncer.Option{syncer.WithLogger(logger)}
	libOpts := []library.Option{library.WithLogger(logger)}
	if onChange != nil {
		syncOpts = append(syncOpts, syncer.WithOnChange(onChange))
		libOpts = append(libOpts, library.WithOnChange(onChange))
	}
	sync := syncer.New(scan, db, root, root.Extension(), syncOpts...)
	facade := retrieval.New(root, db, logger)

	return &Components{
		Root:    root,
		Store:   db,
		Scanner: scan,
		Syncer:  sync,
		Library: library.NewService(db, facade, sync, libOpts...),
	}, nil
}

// Close releases the catalog connection.
func (c *Components) Close() error {
	return c.Store.Close()
}
