package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/docshelf/internal/library"
	"github.com/starford/docshelf/internal/models"
	"github.com/starford/docshelf/internal/retrieval"
	"github.com/starford/docshelf/internal/scanner"
	"github.com/starford/docshelf/internal/storage"
	"github.com/starford/docshelf/internal/syncer"
	"github.com/starford/docshelf/internal/testutil"
)

var quiet = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testServer(t *testing.T) (*Server, *storage.Root) {
	t.Helper()

	root := testutil.TestLibrary(t)
	store := testutil.TestDB(t)
	scan := scanner.New(root.Dir(), root.Extension(), scanner.WithLogger(quiet))
	sync := syncer.New(scan, store, root, root.Extension(), syncer.WithLogger(quiet))
	svc := library.NewService(store, retrieval.New(root, store, quiet), sync, library.WithLogger(quiet))

	return New(svc, "test"), root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_document":
		result, err = srv.getDocument(ctx, req)
	case "sync_catalog":
		result, err = srv.syncCatalog(ctx, req)
	case "update_document":
		result, err = srv.updateDocument(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSyncAndList(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteDocument(t, root.Dir(), "a_tale_of_two_cities.pdf", 3)

	r := callTool(t, srv, "sync_catalog", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("sync error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"added": 1`) {
		t.Errorf("sync result = %s", resultText(r))
	}

	r = callTool(t, srv, "list_documents", map[string]interface{}{})
	var entries []models.CatalogEntry
	if err := json.Unmarshal([]byte(resultText(r)), &entries); err != nil {
		t.Fatalf("list is not JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "A Tale Of Two Cities" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestGetDocument(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteDocument(t, root.Dir(), "dune.pdf", 3)
	callTool(t, srv, "sync_catalog", map[string]interface{}{})

	r := callTool(t, srv, "get_document", map[string]interface{}{"filename": "dune.pdf"})
	if r.IsError {
		t.Fatalf("get error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"title": "Dune"`) {
		t.Errorf("get result = %s", resultText(r))
	}
}

func TestGetDocumentMissing(t *testing.T) {
	srv, root := testServer(t)
	for _, name := range []string{"nope.pdf", "../../etc/passwd", "notes.txt"} {
		r := callTool(t, srv, "get_document", map[string]interface{}{"filename": name})
		if !r.IsError {
			t.Errorf("%s: expected error", name)
		}
		if strings.Contains(resultText(r), root.Dir()) {
			t.Errorf("%s: error discloses root: %s", name, resultText(r))
		}
	}

	r := callTool(t, srv, "get_document", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing filename argument")
	}
}

func TestUpdateDocument(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteDocument(t, root.Dir(), "dune.pdf", 3)
	callTool(t, srv, "sync_catalog", map[string]interface{}{})

	r := callTool(t, srv, "update_document", map[string]interface{}{
		"filename":    "dune.pdf",
		"description": "Desert planet",
	})
	if r.IsError {
		t.Fatalf("update error: %s", resultText(r))
	}
	var entry models.CatalogEntry
	if err := json.Unmarshal([]byte(resultText(r)), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Description != "Desert planet" || entry.Title != "Dune" {
		t.Errorf("entry = %+v", entry)
	}

	r = callTool(t, srv, "update_document", map[string]interface{}{"filename": "dune.pdf"})
	if !r.IsError {
		t.Error("expected error when no field is given")
	}
}

func TestContractResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != contractURI || !strings.Contains(tc.Text, "update_document") {
		t.Errorf("resource = %+v", contents[0])
	}
}
