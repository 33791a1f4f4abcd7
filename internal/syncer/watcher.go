package syncer

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/docshelf/internal/storage"
)

// DefaultDebounce is the quiet period after the last change event before a
// pass is triggered.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions controls the background triggers.
type WatchOptions struct {
	// Root is the directory to watch. Empty disables the fsnotify trigger.
	Root string
	// Debounce coalesces bursts of events into one pass.
	Debounce time.Duration
	// Interval, when positive, also runs a pass on a fixed schedule.
	Interval time.Duration
	// OnPass, if non-nil, is called with the result of every triggered pass.
	OnPass func(Report, error)
}

// Watch runs passes when document files in opts.Root change and, optionally, on
// a fixed interval, until ctx is cancelled.
func (s *Synchronizer) Watch(ctx context.Context, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if opts.Root != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Add(opts.Root); err != nil {
			return err
		}
		events, watchErrs = w.Events, w.Errors
		s.logger.Info("watcher: started", slog.String("root", opts.Root))
	}

	var tick <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(opts.Debounce)
			debounceCh = debounce.C
		} else {
			debounce.Reset(opts.Debounce)
		}
	}

	run := func(trigger string) {
		s.logger.Debug("watcher: triggering pass", slog.String("trigger", trigger))
		r, err := s.Sync(ctx)
		if err != nil {
			s.logger.Warn("watcher: pass failed", slog.String("trigger", trigger), slog.String("error", err.Error()))
		}
		if opts.OnPass != nil {
			opts.OnPass(r, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			run("fsnotify")

		case <-tick:
			run("interval")

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !storage.IsDocumentName(filepath.Base(ev.Name), s.ext) {
				continue
			}
			schedule()

		case watchErr, ok := <-watchErrs:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
