package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/docshelf/internal/sse"
	"github.com/starford/docshelf/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Library.Root = filepath.Join(dir, "pdfs")
	cfg.SQLite.Path = filepath.Join(dir, "catalog.db")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestBuild_CreatesRootAndSyncs(t *testing.T) {
	cfg := testConfig(t)
	var mu sync.Mutex
	var changes []string
	comp, err := Build(cfg, NewLogger(io.Discard, 0), func(kind, name string) {
		mu.Lock()
		changes = append(changes, kind+":"+name)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer comp.Close()

	testutil.WriteDocument(t, comp.Root.Dir(), "dracula.pdf", 9)
	report, err := comp.Library.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Added != 1 {
		t.Errorf("report = %+v", report)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0] != "added:dracula.pdf" {
		t.Errorf("changes = %v", changes)
	}
}

func TestRouter_Endpoints(t *testing.T) {
	cfg := testConfig(t)
	comp, err := Build(cfg, NewLogger(io.Discard, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	broker := sse.NewBroker(time.Second)
	defer broker.Close()

	testutil.WriteDocument(t, comp.Root.Dir(), "emma.pdf", 5)
	if _, err := comp.Library.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(newRouter(comp.Library, broker))
	defer srv.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	if code, body := get("/health/live"); code != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Errorf("live = %d %s", code, body)
	}
	if code, _ := get("/health/ready"); code != http.StatusOK {
		t.Errorf("ready = %d", code)
	}
	if code, body := get("/api/documents"); code != http.StatusOK || !strings.Contains(body, "emma.pdf") {
		t.Errorf("list = %d %s", code, body)
	}
	if code, body := get("/documents/emma.pdf"); code != http.StatusOK || body != "xxxxx" {
		t.Errorf("file = %d %q", code, body)
	}
	if code, _ := get("/documents/..%2F..%2Fcatalog.db"); code != http.StatusNotFound {
		t.Errorf("traversal = %d, want 404", code)
	}

	_ = comp.Close()
	if code, body := get("/health/ready"); code != http.StatusServiceUnavailable || !strings.Contains(body, "unavailable") {
		t.Errorf("ready after close = %d %s", code, body)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
