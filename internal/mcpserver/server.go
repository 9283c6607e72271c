// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Morning Light content tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/morninglight/internal/apperr"
	"github.com/starford/morninglight/internal/content"
	"github.com/starford/morninglight/internal/models"
	"github.com/starford/morninglight/internal/navigation"
	"github.com/starford/morninglight/internal/search"
)

const formatURI = "morninglight://document-format"

// Server wraps the MCP server with content tools.
type Server struct {
	mcp   *server.MCPServer
	store *content.Store
}

// New creates a new MCP server with all tools registered.
func New(store *content.Store) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Morning Light",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_devotions",
		mcp.WithDescription("List every published devotion date with its English and Tamil titles."),
	), s.listDevotions)

	s.mcp.AddTool(mcp.NewTool("read_devotion",
		mcp.WithDescription("Read one devotion as its JSON block array."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Calendar day, YYYY-MM-DD")),
		mcp.WithString("language", mcp.Description("EN or TA (default EN)")),
	), s.readDevotion)

	s.mcp.AddTool(mcp.NewTool("search_devotions",
		mcp.WithDescription("Case-insensitive full-text search across every devotion in both languages. "+
			"Documents are fetched on first use, so the first search may be slow."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDevotions)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the manifest and document payload format."),
	), s.getDocumentFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format",
			mcp.WithResourceDescription("Layout of manifest.json and the per-day document files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) manifest(ctx context.Context) (models.Manifest, error) {
	if m := s.store.Manifest(); m != nil {
		return m, nil
	}
	return s.store.LoadManifest(ctx)
}

func (s *Server) listDevotions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.manifest(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(m.Sorted(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDevotion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := models.ParseISODate(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lang := models.English
	if l := req.GetString("language", ""); l != "" {
		var ok bool
		if lang, ok = models.ParseLanguage(l); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unsupported language: %s", l)), nil
		}
	}

	doc, err := s.store.Get(ctx, date, lang)
	if errors.Is(err, apperr.ErrDocumentNotAvailable) {
		return mcp.NewToolResultError(apperr.DocumentNotAvailableMessage), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

type searchHit struct {
	Date     string          `json:"date"`
	Title    string          `json:"title"`
	Language models.Language `json:"language"`
	Slug     string          `json:"slug"`
	Snippet  string          `json:"snippet"`
}

func (s *Server) searchDevotions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.manifest(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if cached, _ := s.store.Cached(); cached < len(m)*len(models.Languages) {
		s.store.PrefetchAll(ctx, m, nil)
	}

	hits := search.Search(query, s.store, m)
	out := make([]searchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, searchHit{
			Date:     models.ISODate(h.Entry.Date),
			Title:    h.Entry.Title(h.Language),
			Language: h.Language,
			Slug:     navigation.FormatSlug(h.Entry.Date, h.Language),
			Snippet:  h.Snippet,
		})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getDocumentFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormat), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}
