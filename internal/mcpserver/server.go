// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes menuboard tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/menuboard/internal/assets"
	"github.com/starford/menuboard/internal/codec"
	"github.com/starford/menuboard/internal/htmlimport"
	"github.com/starford/menuboard/internal/templateservice"
)

const formatURI = "menuboard://template-format"

// Server wraps the MCP server with menuboard tools.
type Server struct {
	mcp       *server.MCPServer
	templates *templateservice.Service
	assets    *assets.Service
	importer  *htmlimport.Converter
}

// New creates a new MCP server with all menuboard tools registered.
func New(templates *templateservice.Service, assetSvc *assets.Service, importer *htmlimport.Converter) *Server {
	s := &Server{templates: templates, assets: assetSvc, importer: importer}

	s.mcp = server.NewMCPServer(
		"Menuboard",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_templates",
		mcp.WithDescription("Full-text search through template names and text content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTemplates)

	s.mcp.AddTool(mcp.NewTool("read_template",
		mcp.WithDescription("Read a template document as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Template id")),
	), s.readTemplate)

	s.mcp.AddTool(mcp.NewTool("create_template",
		mcp.WithDescription("Create a new menu board template. "+
			"The document MUST follow the template format contract. Read it first via "+
			"the get_template_contract tool or the "+formatURI+" resource."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Template document as JSON")),
	), s.createTemplate)

	s.mcp.AddTool(mcp.NewTool("get_template_contract",
		mcp.WithDescription("Returns the template document format contract. "+
			"Call this before creating templates to ensure correct structure."),
	), s.getTemplateContract)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List stored templates, most recently updated first."),
		mcp.WithString("sort", mcp.Description("Optional sort order: updated (default) or name")),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("import_html",
		mcp.WithDescription("Convert an HTML page (and optional CSS) into a template document. "+
			"Set save to store it as a new template."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML markup")),
		mcp.WithString("css", mcp.Description("Optional stylesheet")),
		mcp.WithString("baseUrl", mcp.Description("Base URL for relative image paths")),
		mcp.WithBoolean("save", mcp.Description("Store the result as a new template")),
	), s.importHTML)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI and return "+
			"the URL to use as an image element's imageUrl."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64 URI")),
		mcp.WithString("filename", mcp.Description("Optional original file name")),
	), s.uploadAsset)

	// Resource: template format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Template Format Contract",
			mcp.WithResourceDescription("JSON document format that all templates must follow."),
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.templates.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.templates.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	data, err := codec.Encode(t.Document)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := codec.Decode([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.templates.Create(ctx, doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", t.ID)), nil
}

func (s *Server) listTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.templates.List(ctx, 200, 0, req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%dx%d", it.ID, it.Name, it.CanvasSize.Width, it.CanvasSize.Height))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) importHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	html, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.importer.Convert(ctx, htmlimport.Source{
		HTML:    html,
		CSS:     req.GetString("css", ""),
		BaseURL: req.GetString("baseUrl", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !req.GetBool("save", false) {
		return jsonResult(doc), nil
	}
	t, err := s.templates.Create(ctx, doc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t), nil
}

func (s *Server) getTemplateContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TemplateFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     TemplateFormatContract,
		},
	}, nil
}
