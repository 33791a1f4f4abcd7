package library

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/catalog"
	"github.com/starford/docshelf/internal/retrieval"
	"github.com/starford/docshelf/internal/scanner"
	"github.com/starford/docshelf/internal/storage"
	"github.com/starford/docshelf/internal/syncer"
	"github.com/starford/docshelf/internal/testutil"
)

var quiet = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func setup(t *testing.T, opts ...Option) (*storage.Root, *Service) {
	t.Helper()
	root := testutil.TestLibrary(t)
	store := testutil.TestDB(t)
	scan := scanner.New(root.Dir(), root.Extension(), scanner.WithLogger(quiet))
	sync := syncer.New(scan, store, root, root.Extension(), syncer.WithLogger(quiet))
	facade := retrieval.New(root, store, quiet)
	opts = append([]Option{WithLogger(quiet)}, opts...)
	return root, NewService(store, facade, sync, opts...)
}

func ptr(s string) *string { return &s }

func TestService_SyncListGet(t *testing.T) {
	root, svc := setup(t)
	testutil.WriteDocument(t, root.Dir(), "the_great_gatsby.pdf", 100)
	testutil.WriteDocument(t, root.Dir(), "ulysses.pdf", 200)

	r, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Added != 2 {
		t.Fatalf("report = %+v", r)
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("list len = %d, want 2", len(list))
	}

	res, err := svc.Get(context.Background(), "the_great_gatsby.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Entry.Title != "The Great Gatsby" {
		t.Errorf("title = %q", res.Entry.Title)
	}
}

func TestService_Filenames(t *testing.T) {
	root, svc := setup(t)
	for _, n := range []string{"c.pdf", "a.pdf", "b.pdf"} {
		testutil.WriteDocument(t, root.Dir(), n, 1)
	}
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	names, err := svc.Filenames(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, ",") != "a.pdf,b.pdf,c.pdf" {
		t.Errorf("names = %v", names)
	}
}

func TestService_UpdateMetadata(t *testing.T) {
	var changed []string
	root, svc := setup(t, WithOnChange(func(kind, name string) { changed = append(changed, kind+":"+name) }))
	testutil.WriteDocument(t, root.Dir(), "moby_dick.pdf", 10)
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, _ := svc.Get(context.Background(), "moby_dick.pdf")

	// The file grows between the sync and the edit.
	testutil.WriteDocument(t, root.Dir(), "moby_dick.pdf", 25)

	got, err := svc.UpdateMetadata(context.Background(), "moby_dick.pdf", MetadataUpdate{Description: ptr("Call me Ishmael")})
	if err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	if got.Description != "Call me Ishmael" {
		t.Errorf("description = %q", got.Description)
	}
	if got.Title != "Moby Dick" {
		t.Errorf("title changed to %q", got.Title)
	}
	if got.SizeBytes != 25 {
		t.Errorf("size = %d, want refreshed 25", got.SizeBytes)
	}
	if !got.DateAdded.Equal(before.Entry.DateAdded) {
		t.Errorf("date_added changed")
	}
	if len(changed) != 1 || changed[0] != "updated:moby_dick.pdf" {
		t.Errorf("change callbacks = %v", changed)
	}
}

func TestService_UpdateMetadataTitleTrimmed(t *testing.T) {
	root, svc := setup(t)
	testutil.WriteDocument(t, root.Dir(), "a.pdf", 1)
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, err := svc.UpdateMetadata(context.Background(), "a.pdf", MetadataUpdate{Title: ptr("  New Title  ")})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "New Title" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestService_UpdateMetadataInvalid(t *testing.T) {
	root, svc := setup(t)
	testutil.WriteDocument(t, root.Dir(), "a.pdf", 1)
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	cases := map[string]MetadataUpdate{
		"empty":            {},
		"blank title":      {Title: ptr("   ")},
		"long title":       {Title: ptr(strings.Repeat("t", MaxTitleLength+1))},
		"long description": {Description: ptr(strings.Repeat("d", MaxDescriptionLength+1))},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdateMetadata(context.Background(), "a.pdf", m)
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("err = %v, want invalid input", err)
			}
		})
	}
}

func TestService_UpdateMetadataUnknown(t *testing.T) {
	_, svc := setup(t)
	_, err := svc.UpdateMetadata(context.Background(), "nope.pdf", MetadataUpdate{Description: ptr("x")})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}

	_, err = svc.UpdateMetadata(context.Background(), "../secret.pdf", MetadataUpdate{Description: ptr("x")})
	if !apperr.IsRejection(err) {
		t.Errorf("err = %v, want rejection", err)
	}
}

func TestService_UpdateMetadataClock(t *testing.T) {
	later := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	root, svc := setup(t, WithClock(func() time.Time { return later }))
	testutil.WriteDocument(t, root.Dir(), "a.pdf", 1)
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, err := svc.UpdateMetadata(context.Background(), "a.pdf", MetadataUpdate{Description: ptr("d")})
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastModified.Equal(later) {
		t.Errorf("last_modified = %v, want %v", got.LastModified, later)
	}
}

func TestService_Ready(t *testing.T) {
	root := testutil.TestLibrary(t)
	store := catalog.NewMemory()
	svc := NewService(store, retrieval.New(root, store, quiet), nil, WithLogger(quiet))
	if err := svc.Ready(context.Background()); err != nil {
		t.Errorf("Ready: %v", err)
	}
	_ = store.Close()
	if err := svc.Ready(context.Background()); !errors.Is(err, apperr.ErrStorageUnavailable) {
		t.Errorf("Ready after close = %v", err)
	}
}
