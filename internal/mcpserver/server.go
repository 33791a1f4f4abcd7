// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes docshelf tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/library"
)

const contractURI = "docshelf://catalog-entry"

// Server wraps the MCP server with docshelf tools.
type Server struct {
	mcp *server.MCPServer
	svc *library.Service
}

// New creates a new MCP server with all docshelf tools registered.
func New(svc *library.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"docshelf",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List every catalogued document, newest first, as JSON."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get the catalog entry for one document."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document filename (e.g. the_great_gatsby.pdf)")),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("sync_catalog",
		mcp.WithDescription("Reconcile the catalog with the files in the library root and report what changed."),
	), s.syncCatalog)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Edit the title and/or description of a catalogued document. "+
			"See the "+contractURI+" resource for field limits."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Document filename")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
	), s.updateDocument)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Catalog Entry Contract",
			mcp.WithResourceDescription("Fields of a catalog entry and which of them can be edited."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError renders err without internal detail.
func toolError(name string, err error) *mcp.CallToolResult {
	switch {
	case apperr.IsRejection(err), errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name))
	case errors.Is(err, apperr.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError(apperr.KindOf(err))
	}
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.List(ctx)
	if err != nil {
		return toolError("", err), nil
	}
	return jsonResult(entries)
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Get(ctx, name)
	if err != nil {
		return toolError(name, err), nil
	}
	return jsonResult(res.Entry)
}

func (s *Server) syncCatalog(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Sync(ctx)
	if err != nil {
		return toolError("", err), nil
	}
	return jsonResult(report)
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var m library.MetadataUpdate
	args := req.GetArguments()
	if v, ok := args["title"].(string); ok {
		m.Title = &v
	}
	if v, ok := args["description"].(string); ok {
		m.Description = &v
	}

	entry, err := s.svc.UpdateMetadata(ctx, name, m)
	if err != nil {
		return toolError(name, err), nil
	}
	return jsonResult(entry)
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     CatalogEntryContract,
		},
	}, nil
}
