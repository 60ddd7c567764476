package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/menuboard/internal/assets"
	"github.com/starford/menuboard/internal/htmlimport"
	"github.com/starford/menuboard/internal/models"
	"github.com/starford/menuboard/internal/templateservice"
	"github.com/starford/menuboard/internal/testutil"
)

const boardJSON = `{"name":"Happy Hour","canvasSize":{"width":800,"height":600},"backgroundColor":"#000000","elements":[{"id":"e1","type":"text","x":10,"y":10,"width":200,"height":40,"content":"Two for one","zIndex":1}]}`

var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	log := testutil.Logger()

	templates := templateservice.NewService(store, db, nil)
	assetSvc := assets.NewService(store, db, assets.NewFetcher(time.Second), nil)
	importer := htmlimport.NewConverter(htmlimport.NewStaticRenderer(), nil, htmlimport.Options{Retries: 1}, log)
	return New(templates, assetSvc, importer)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_templates":
		result, err = srv.searchTemplates(ctx, req)
	case "read_template":
		result, err = srv.readTemplate(ctx, req)
	case "create_template":
		result, err = srv.createTemplate(ctx, req)
	case "list_templates":
		result, err = srv.listTemplates(ctx, req)
	case "import_html":
		result, err = srv.importHTML(ctx, req)
	case "get_template_contract":
		result, err = srv.getTemplateContract(ctx, req)
	case "upload_asset":
		result, err = srv.uploadAsset(ctx, req)
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

func createBoard(t *testing.T, srv *Server) string {
	t.Helper()
	r := callTool(t, srv, "create_template", map[string]any{"document": boardJSON})
	text := resultText(r)
	if r.IsError || !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	return strings.TrimPrefix(text, "created: ")
}

func TestCreateAndReadTemplate(t *testing.T) {
	srv := testServer(t)
	id := createBoard(t, srv)

	r := callTool(t, srv, "read_template", map[string]any{"id": id})
	var doc models.Document
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("read result not JSON: %v", err)
	}
	if doc.Name != "Happy Hour" || len(doc.Elements) != 1 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestCreateTemplateInvalid(t *testing.T) {
	srv := testServer(t)
	for _, raw := range []string{"{oops", `{"name":"x","elements":[{"id":"a","type":"video","zIndex":1}]}`} {
		if r := callTool(t, srv, "create_template", map[string]any{"document": raw}); !r.IsError {
			t.Errorf("%s: expected error", raw)
		}
	}
}

func TestListAndSearchTemplates(t *testing.T) {
	srv := testServer(t)
	id := createBoard(t, srv)

	r := callTool(t, srv, "list_templates", map[string]any{})
	if text := resultText(r); !strings.HasPrefix(text, id+"\tHappy Hour\t800x600") {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "search_templates", map[string]any{"query": "two"})
	if text := resultText(r); !strings.Contains(text, id) {
		t.Errorf("search = %q", text)
	}
}

func TestReadTemplateMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_template", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing template")
	}
}

func TestImportHTML(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "import_html", map[string]any{"html": `<h1>Menu</h1><h2>Soup</h2>`})
	if r.IsError {
		t.Fatalf("import error: %s", resultText(r))
	}
	var doc models.Document
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("import result not JSON: %v", err)
	}
	if doc.CanvasSize != models.DefaultCanvas || len(doc.Elements) != 2 {
		t.Errorf("doc = %+v", doc)
	}

	r = callTool(t, srv, "import_html", map[string]any{"html": `<h1>Menu</h1>`, "save": true})
	var saved templateservice.Detail
	if err := json.Unmarshal([]byte(resultText(r)), &saved); err != nil || saved.ID == "" {
		t.Errorf("saved = %+v, err = %v", saved, err)
	}
}

func TestUploadAssetDataURI(t *testing.T) {
	srv := testServer(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	r := callTool(t, srv, "upload_asset", map[string]any{"url": uri, "filename": "dot.png"})
	if r.IsError {
		t.Fatalf("upload error: %s", resultText(r))
	}
	var res uploadResult
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if !strings.HasPrefix(res.ImageURL, "/assets/") || res.MIMEType != "image/png" {
		t.Errorf("result = %+v", res)
	}

	r = callTool(t, srv, "upload_asset", map[string]any{"url": "data:text/plain;base64,aGk="})
	if !r.IsError {
		t.Error("expected error for text data URI")
	}
}

func TestContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_template_contract", map[string]any{})
	if !strings.Contains(resultText(r), "zIndex") {
		t.Error("contract does not describe zIndex")
	}

	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != formatURI {
		t.Errorf("resource = %+v", contents[0])
	}
}
