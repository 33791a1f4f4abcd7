package catalog

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "docshelf-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// stores runs fn against both implementations so they stay interchangeable.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, testDB(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
}

func entry(name string, size int64) models.CatalogEntry {
	return models.CatalogEntry{
		Filename:  name,
		FilePath:  "/library/" + name,
		Title:     name,
		SizeBytes: size,
	}
}

func ptr[T any](v T) *T { return &v }

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
}

func TestInsertAndGet(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		got, err := s.Insert(ctx, entry("a.pdf", 42))
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if got.ID == 0 {
			t.Error("expected assigned id")
		}
		if got.DateAdded.IsZero() || got.LastModified.Before(got.DateAdded) {
			t.Errorf("bad timestamps: added=%v modified=%v", got.DateAdded, got.LastModified)
		}

		e, err := s.GetByFilename(ctx, "a.pdf")
		if err != nil {
			t.Fatalf("GetByFilename: %v", err)
		}
		if e.SizeBytes != 42 || e.FilePath != "/library/a.pdf" || e.Title != "a.pdf" {
			t.Errorf("entry = %+v", e)
		}
		if !e.DateAdded.Equal(got.DateAdded) {
			t.Errorf("date_added round trip: %v vs %v", e.DateAdded, got.DateAdded)
		}
	})
}

func TestInsertDuplicate(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, err := s.Insert(ctx, entry("dup.pdf", 1)); err != nil {
			t.Fatal(err)
		}
		_, err := s.Insert(ctx, entry("dup.pdf", 2))
		if !errors.Is(err, apperr.ErrDuplicateKey) {
			t.Errorf("err = %v, want duplicate key", err)
		}
	})
}

func TestInsertNegativeSize(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		_, err := s.Insert(context.Background(), entry("neg.pdf", -1))
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("err = %v, want invalid input", err)
		}
	})
}

func TestGetByFilename_NotFound(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		_, err := s.GetByFilename(context.Background(), "nope.pdf")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("err = %v, want not found", err)
		}
	})
}

func TestGetAll_NewestFirst(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, name := range []string{"old.pdf", "mid.pdf", "new.pdf"} {
			e := entry(name, 1)
			e.DateAdded = base.Add(time.Duration(i) * time.Hour)
			if _, err := s.Insert(ctx, e); err != nil {
				t.Fatal(err)
			}
		}
		all, err := s.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("len = %d", len(all))
		}
		want := []string{"new.pdf", "mid.pdf", "old.pdf"}
		for i, w := range want {
			if all[i].Filename != w {
				t.Errorf("all[%d] = %s, want %s", i, all[i].Filename, w)
			}
		}
	})
}

func TestGetAll_EmptyIsNotNil(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		all, err := s.GetAll(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if all == nil || len(all) != 0 {
			t.Errorf("all = %#v, want empty slice", all)
		}
	})
}

func TestUpdate_PreservesDateAdded(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		e := entry("up.pdf", 10)
		e.DateAdded = added
		if _, err := s.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}

		later := added.Add(48 * time.Hour)
		got, err := s.Update(ctx, "up.pdf", models.EntryUpdate{
			Title:        ptr("Updated"),
			Description:  ptr("A classic novel"),
			SizeBytes:    ptr(int64(20)),
			LastModified: later,
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Title != "Updated" || got.Description != "A classic novel" || got.SizeBytes != 20 {
			t.Errorf("entry = %+v", got)
		}
		if !got.DateAdded.Equal(added) {
			t.Errorf("date_added changed: %v", got.DateAdded)
		}
		if !got.LastModified.Equal(later) {
			t.Errorf("last_modified = %v, want %v", got.LastModified, later)
		}
		if got.FilePath != "/library/up.pdf" {
			t.Errorf("file_path changed: %q", got.FilePath)
		}
	})
}

func TestUpdate_LastModifiedNeverBeforeDateAdded(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		e := entry("clock.pdf", 1)
		e.DateAdded = added
		if _, err := s.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
		got, err := s.Update(ctx, "clock.pdf", models.EntryUpdate{LastModified: added.Add(-time.Hour)})
		if err != nil {
			t.Fatal(err)
		}
		if got.LastModified.Before(got.DateAdded) {
			t.Errorf("last_modified %v before date_added %v", got.LastModified, got.DateAdded)
		}
	})
}

func TestUpdate_NotFound(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		_, err := s.Update(context.Background(), "ghost.pdf", models.EntryUpdate{Title: ptr("x")})
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("err = %v, want not found", err)
		}
	})
}

func TestDelete(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, err := s.Insert(ctx, entry("del.pdf", 1)); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "del.pdf"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.GetByFilename(ctx, "del.pdf"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("entry still present: %v", err)
		}
		if err := s.Delete(ctx, "del.pdf"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("second delete err = %v, want not found", err)
		}
	})
}

func TestClosedStoreUnavailable(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		_ = s.Close()
		_, err := s.GetAll(context.Background())
		if !errors.Is(err, apperr.ErrStorageUnavailable) {
			t.Errorf("err = %v, want storage unavailable", err)
		}
		if err := s.Ping(context.Background()); err == nil {
			t.Error("ping on closed store should fail")
		}
	})
}

func TestOpTimeout(t *testing.T) {
	db := testDB(t)
	db.timeout = time.Nanosecond
	time.Sleep(time.Millisecond)
	_, err := db.GetAll(context.Background())
	if !errors.Is(err, apperr.ErrTimeout) {
		t.Errorf("err = %v, want timeout", err)
	}
}
