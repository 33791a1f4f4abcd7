// Package scanner discovers document filenames in the document root and caches
// the result for a fixed time-to-live.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/storage"
)

// DefaultTTL is how long a discovery result is reused.
const DefaultTTL = 60 * time.Second

// ReadDirFunc lists a directory. It matches os.ReadDir.
type ReadDirFunc func(dir string) ([]os.DirEntry, error)

// Option configures a Scanner.
type Option func(*Scanner)

// WithTTL sets the cache time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(s *Scanner) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithReadDir replaces the directory read primitive.
func WithReadDir(fn ReadDirFunc) Option {
	return func(s *Scanner) { s.readDir = fn }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithTimeout bounds a single directory read.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// Scanner lists eligible documents in a single root. The cache it owns is the
// only process-wide mutable state of the catalog engine.
type Scanner struct {
	dir     string
	ext     string
	ttl     time.Duration
	timeout time.Duration
	readDir ReadDirFunc
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.Mutex
	names     []string
	fetchedAt time.Time
	valid     bool
}

// New creates a Scanner for dir accepting files with extension ext.
func New(dir, ext string, opts ...Option) *Scanner {
	s := &Scanner{
		dir:     dir,
		ext:     storage.NormalizeExtension(ext),
		ttl:     DefaultTTL,
		readDir: os.ReadDir,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover returns the eligible filenames in filesystem order. With forceRefresh
// the directory is always re-read; otherwise a cached result younger than the TTL
// is returned. A missing root yields an empty result, not an error.
func (s *Scanner) Discover(ctx context.Context, forceRefresh bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !forceRefresh && s.valid && s.now().Sub(s.fetchedAt) < s.ttl {
		return clone(s.names), nil
	}

	names, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	s.names = names
	s.fetchedAt = s.now()
	s.valid = true
	return clone(names), nil
}

// Invalidate drops the cached result so the next Discover re-reads the directory.
func (s *Scanner) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.names = nil
	s.mu.Unlock()
}

type readResult struct {
	entries []os.DirEntry
	err     error
}

func (s *Scanner) read(ctx context.Context) ([]string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan readResult, 1)
	go func() {
		entries, err := s.readDir(s.dir)
		done <- readResult{entries: entries, err: err}
	}()

	var res readResult
	select {
	case res = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("scanner: read %s: %w", s.dir, apperr.ErrTimeout)
		}
		return nil, fmt.Errorf("scanner: read %s: %w", s.dir, ctx.Err())
	}

	if res.err != nil {
		if errors.Is(res.err, fs.ErrNotExist) {
			s.logger.Warn("scanner: document root missing", slog.String("root", s.dir))
			return []string{}, nil
		}
		return nil, fmt.Errorf("scanner: read %s: %w", s.dir, res.err)
	}

	out := make([]string, 0, len(res.entries))
	canonRoot := ""
	for _, e := range res.entries {
		if !storage.IsDocumentName(e.Name(), s.ext) {
			continue
		}
		switch {
		case e.Type().IsRegular():
		case e.Type()&fs.ModeSymlink != 0:
			if canonRoot == "" {
				root, err := filepath.EvalSymlinks(s.dir)
				if err != nil {
					return nil, fmt.Errorf("scanner: resolve root %s: %w", s.dir, err)
				}
				canonRoot = root
			}
			if !linkInside(canonRoot, filepath.Join(s.dir, e.Name())) {
				s.logger.Debug("scanner: skipping symlink", slog.String("name", e.Name()))
				continue
			}
		default:
			continue
		}
		out = append(out, e.Name())
	}
	s.logger.Debug("scanner: discovered", slog.String("root", s.dir), slog.Int("count", len(out)))
	return out, nil
}

// linkInside reports whether the symlink at p points at a regular file within
// canonRoot, the same rule the path validator applies.
func linkInside(canonRoot, p string) bool {
	target, err := filepath.EvalSymlinks(p)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(canonRoot, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
