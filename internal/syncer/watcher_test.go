package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/starford/docshelf/internal/catalog"
	"github.com/starford/docshelf/internal/testutil"
)

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatch_SyncsOnFileEvents(t *testing.T) {
	store := catalog.NewMemory()
	e := newEnv(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.sync.Watch(ctx, WatchOptions{Root: e.root.Dir(), Debounce: 50 * time.Millisecond})
	}()
	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)

	testutil.WriteDocument(t, e.root.Dir(), "watched_file.pdf", 8)
	eventually(t, 3*time.Second, func() bool {
		_, err := store.GetByFilename(context.Background(), "watched_file.pdf")
		return err == nil
	})

	testutil.RemoveDocument(t, e.root.Dir(), "watched_file.pdf")
	eventually(t, 3*time.Second, func() bool {
		all, _ := store.GetAll(context.Background())
		return len(all) == 0
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatch_IntervalTrigger(t *testing.T) {
	store := catalog.NewMemory()
	e := newEnv(t, store)
	testutil.WriteDocument(t, e.root.Dir(), "scheduled.pdf", 1)

	passes := make(chan Report, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.sync.Watch(ctx, WatchOptions{
		Interval: 30 * time.Millisecond,
		OnPass: func(r Report, err error) {
			if err != nil {
				return
			}
			select {
			case passes <- r:
			default:
			}
		},
	})

	select {
	case r := <-passes:
		if r.Added != 1 {
			t.Errorf("first scheduled pass = %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no scheduled pass ran")
	}
}
