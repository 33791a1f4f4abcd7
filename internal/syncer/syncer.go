// Package syncer reconciles the document root with the catalog store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/catalog"
	"github.com/starford/docshelf/internal/models"
	"github.com/starford/docshelf/internal/storage"
)

// Change kinds passed to a ChangeFunc.
const (
	ChangeAdded   = "added"
	ChangeUpdated = "updated"
	ChangeRemoved = "removed"
)

// ChangeFunc is called after each successful catalog mutation made by a pass.
type ChangeFunc func(kind, filename string)

// Discoverer lists the current document filenames.
type Discoverer interface {
	Discover(ctx context.Context, forceRefresh bool) ([]string, error)
	Invalidate()
}

// Report summarizes one sync pass.
type Report struct {
	Added    int                  `json:"added"`
	Updated  int                  `json:"updated"`
	Removed  int                  `json:"removed"`
	Errors   []apperr.FileFailure `json:"errors"`
	Started  time.Time            `json:"started_at"`
	Duration time.Duration        `json:"duration"`
}

// Err returns a *apperr.PartialSyncError when the pass had per-file failures.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &apperr.PartialSyncError{Failures: r.Errors}
}

// Changed reports whether the pass mutated the catalog.
func (r Report) Changed() bool {
	return r.Added+r.Updated+r.Removed > 0
}

// Synchronizer owns all catalog mutations driven by the filesystem.
// At most one pass runs at a time; concurrent callers wait for the in-flight
// pass and receive its report.
type Synchronizer struct {
	scanner   Discoverer
	store     catalog.Store
	validator storage.Validator
	ext       string
	logger    *slog.Logger
	onChange  ChangeFunc
	now       func() time.Time
	stat      func(string) (os.FileInfo, error)

	group singleflight.Group
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// WithOnChange registers a mutation callback.
func WithOnChange(fn ChangeFunc) Option {
	return func(s *Synchronizer) { s.onChange = fn }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// New creates a Synchronizer.
func New(scanner Discoverer, store catalog.Store, validator storage.Validator, ext string, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		scanner:   scanner,
		store:     store,
		validator: validator,
		ext:       storage.NormalizeExtension(ext),
		logger:    slog.Default(),
		now:       time.Now,
		stat:      os.Stat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs one reconciliation pass, or joins the pass already in flight.
// Per-file failures are reported in Report.Errors; an error is returned only
// when discovery fails or the catalog cannot be read.
func (s *Synchronizer) Sync(ctx context.Context) (Report, error) {
	v, err, shared := s.group.Do("sync", func() (any, error) {
		return s.pass(context.WithoutCancel(ctx))
	})
	if shared {
		s.logger.Debug("sync: joined in-flight pass")
	}
	if err != nil {
		return Report{}, err
	}
	r := v.(Report)
	r.Errors = append([]apperr.FileFailure(nil), r.Errors...)
	return r, nil
}

func (s *Synchronizer) pass(ctx context.Context) (Report, error) {
	report := Report{Started: s.now(), Errors: []apperr.FileFailure{}}

	names, err := s.scanner.Discover(ctx, true)
	if err != nil {
		return report, fmt.Errorf("sync: discover: %w", err)
	}

	entries, err := s.store.GetAll(ctx)
	if err != nil {
		if !errors.Is(err, apperr.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %w", apperr.ErrStorageUnavailable, err)
		}
		s.logger.Error("sync: catalog unavailable", slog.String("error", err.Error()))
		return report, fmt.Errorf("sync: read catalog: %w", err)
	}

	known := make(map[string]models.CatalogEntry, len(entries))
	for _, e := range entries {
		known[e.Filename] = e
	}

	disk := make(map[string]struct{}, len(names))
	for _, name := range names {
		disk[name] = struct{}{}
		if existing, ok := known[name]; ok {
			s.refresh(ctx, existing, &report)
		} else {
			s.add(ctx, name, &report)
		}
	}

	// Remove orphans.
	for name := range known {
		if _, ok := disk[name]; ok {
			continue
		}
		if err := s.store.Delete(ctx, name); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			s.fail(&report, name, "delete", err)
			continue
		}
		report.Removed++
		s.logger.Debug("sync: removed orphan", slog.String("filename", name))
		s.notify(ChangeRemoved, name)
	}

	s.scanner.Invalidate()
	report.Duration = s.now().Sub(report.Started)

	s.logger.Info("sync: pass complete",
		slog.Int("added", report.Added),
		slog.Int("updated", report.Updated),
		slog.Int("removed", report.Removed),
		slog.Int("errors", len(report.Errors)),
		slog.Duration("duration", report.Duration))
	return report, nil
}

func (s *Synchronizer) add(ctx context.Context, name string, report *Report) {
	info, sp, err := s.inspect(name)
	if err != nil {
		s.fail(report, name, "stat", err)
		return
	}
	now := s.now()
	_, err = s.store.Insert(ctx, models.CatalogEntry{
		Filename:     sp.Filename,
		FilePath:     s.validator.Join(sp.Filename),
		Title:        DeriveTitle(sp.Filename, s.ext),
		SizeBytes:    info.Size(),
		DateAdded:    now,
		LastModified: now,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateKey) {
			s.logger.Debug("sync: already present", slog.String("filename", name))
			return
		}
		s.fail(report, name, "insert", err)
		return
	}
	report.Added++
	s.logger.Debug("sync: added", slog.String("filename", name), slog.Int64("size", info.Size()))
	s.notify(ChangeAdded, name)
}

func (s *Synchronizer) refresh(ctx context.Context, existing models.CatalogEntry, report *Report) {
	info, sp, err := s.inspect(existing.Filename)
	if err != nil {
		s.fail(report, existing.Filename, "stat", err)
		return
	}

	var u models.EntryUpdate
	if size := info.Size(); size != existing.SizeBytes {
		u.SizeBytes = &size
	}
	if p := s.validator.Join(sp.Filename); p != existing.FilePath {
		u.FilePath = &p
	}
	if u.Empty() {
		return
	}
	u.LastModified = s.now()

	if _, err := s.store.Update(ctx, existing.Filename, u); err != nil {
		s.fail(report, existing.Filename, "update", err)
		return
	}
	report.Updated++
	s.logger.Debug("sync: updated", slog.String("filename", existing.Filename))
	s.notify(ChangeUpdated, existing.Filename)
}

// inspect re-validates name and stats the resolved file. A file removed between
// discovery and this call surfaces as a not-found rejection.
func (s *Synchronizer) inspect(name string) (os.FileInfo, models.SafePath, error) {
	sp, err := s.validator.Resolve(name)
	if err != nil {
		return nil, sp, err
	}
	info, err := s.stat(sp.Path)
	if err != nil {
		return nil, sp, err
	}
	return info, sp, nil
}

func (s *Synchronizer) fail(report *Report, name, op string, err error) {
	report.Errors = append(report.Errors, apperr.FileFailure{Filename: name, Op: op, Err: err})
	s.logger.Warn("sync: "+op+" failed", slog.String("filename", name), slog.String("error", err.Error()))
}

func (s *Synchronizer) notify(kind, name string) {
	if s.onChange != nil {
		s.onChange(kind, name)
	}
}
