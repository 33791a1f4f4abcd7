// Package library is the application service used by the HTTP API, the MCP
// server and the CLI. It composes the catalog, the retrieval facade and the
// synchronizer.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/catalog"
	"github.com/starford/docshelf/internal/models"
	"github.com/starford/docshelf/internal/retrieval"
	"github.com/starford/docshelf/internal/syncer"
)

// Limits for editable metadata.
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
)

// Syncer runs a reconciliation pass.
type Syncer interface {
	Sync(ctx context.Context) (syncer.Report, error)
}

// MetadataUpdate is a user edit of an entry. Nil fields are left unchanged.
type MetadataUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Validate checks field limits and that at least one field is present.
func (m MetadataUpdate) Validate() error {
	if m.Title == nil && m.Description == nil {
		return errors.New("at least one of title or description is required")
	}
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.When(m.Title != nil,
			validation.By(notBlank), validation.RuneLength(1, MaxTitleLength))),
		validation.Field(&m.Description, validation.RuneLength(0, MaxDescriptionLength)),
	)
}

func notBlank(value any) error {
	s, _ := value.(*string)
	if s == nil || strings.TrimSpace(*s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// Service coordinates catalog reads, safe retrieval, metadata edits and syncs.
type Service struct {
	store    catalog.Store
	facade   *retrieval.Facade
	syncer   Syncer
	logger   *slog.Logger
	onChange syncer.ChangeFunc
	now      func() time.Time
	stat     func(string) (os.FileInfo, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithOnChange registers a callback invoked after a metadata edit.
func WithOnChange(fn syncer.ChangeFunc) Option {
	return func(s *Service) { s.onChange = fn }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a library service.
func NewService(store catalog.Store, facade *retrieval.Facade, sync Syncer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		facade: facade,
		syncer: sync,
		logger: slog.Default(),
		now:    time.Now,
		stat:   os.Stat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every catalog entry, newest first.
func (s *Service) List(ctx context.Context) ([]models.CatalogEntry, error) {
	return s.store.GetAll(ctx)
}

// Get validates name and returns its entry together with the safe file path.
func (s *Service) Get(ctx context.Context, name string) (*retrieval.Result, error) {
	return s.facade.Retrieve(ctx, name)
}

// UpdateMetadata edits the title and/or description of a catalogued document.
// The stored size is refreshed from disk at the same time.
func (s *Service) UpdateMetadata(ctx context.Context, name string, m MetadataUpdate) (*models.CatalogEntry, error) {
	if m.Title != nil {
		t := strings.TrimSpace(*m.Title)
		m.Title = &t
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}

	res, err := s.facade.Retrieve(ctx, name)
	if err != nil {
		return nil, err
	}

	info, err := s.stat(res.Path.Path)
	if err != nil {
		return nil, apperr.Reject(apperr.ErrNotFound, name, apperr.LayerFilesystem, err.Error())
	}
	size := info.Size()

	updated, err := s.store.Update(ctx, res.Entry.Filename, models.EntryUpdate{
		Title:        m.Title,
		Description:  m.Description,
		SizeBytes:    &size,
		LastModified: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("library: update %s: %w", res.Entry.Filename, err)
	}

	s.logger.Info("library: metadata updated", slog.String("filename", updated.Filename))
	if s.onChange != nil {
		s.onChange(syncer.ChangeUpdated, updated.Filename)
	}
	return updated, nil
}

// Sync runs (or joins) a reconciliation pass.
func (s *Service) Sync(ctx context.Context) (syncer.Report, error) {
	return s.syncer.Sync(ctx)
}

// Filenames returns the catalogued filenames in lexical order.
func (s *Service) Filenames(ctx context.Context) ([]string, error) {
	entries, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Filename
	}
	sort.Strings(names)
	return names, nil
}

// Ready reports whether the catalog store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
