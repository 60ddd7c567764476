package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/menuboard/internal/codec"
	"github.com/starford/menuboard/internal/export"
	"github.com/starford/menuboard/internal/htmlimport"
	"github.com/starford/menuboard/internal/models"
)

const (
	maxTemplateBytes = 10 << 20
	maxImportBytes   = 20 << 20
)

// Handler holds API route handlers.
type Handler struct {
	d   Deps
	log *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handler{d: d, log: log}
}

// ListTemplates handles GET /api/templates.
//
//	@Summary		List templates with pagination
//	@Tags			templates
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, name)
//	@Success		200		{object}	TemplateListResponse
//	@Security		BearerAuth
//	@Router			/templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.d.Templates.List(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, "list templates", err)
		return
	}
	writeJSON(w, http.StatusOK, TemplateListResponse{Templates: items, Total: total})
}

// GetTemplate handles GET /api/templates/{id}. The checksum is also sent as
// the ETag for use in If-Match.
//
//	@Summary		Get a single template
//	@Tags			templates
//	@Produce		json
//	@Param			id	path		string	true	"Template id"
//	@Success		200	{object}	TemplateDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [get]
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.d.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get template", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(t.Checksum))
	writeJSON(w, http.StatusOK, t)
}

// CreateTemplate handles POST /api/templates. The body is a template document.
//
//	@Summary		Create a template
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Document	true	"Template document"
//	@Success		201		{object}	TemplateDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates [post]
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	t, err := h.d.Templates.Create(r.Context(), doc)
	if err != nil {
		writeError(w, "create template", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(t.Checksum))
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTemplate handles PUT /api/templates/{id}.
//
//	@Summary		Update a template with optimistic concurrency
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Template id"
//	@Param			If-Match	header		string			false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		models.Document	true	"Template document"
//	@Success		200			{object}	TemplateDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [put]
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	t, err := h.d.Templates.Update(r.Context(), chi.URLParam(r, "id"), doc, ifMatch)
	if err != nil {
		writeError(w, "update template", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(t.Checksum))
	writeJSON(w, http.StatusOK, t)
}

// DeleteTemplate handles DELETE /api/templates/{id}.
//
//	@Summary		Delete a template
//	@Tags			templates
//	@Param			id	path	string	true	"Template id"
//	@Success		204	"Template deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [delete]
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Search templates by name and content
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.d.Templates.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ExportTemplatePNG handles GET /api/templates/{id}/export.png.
//
//	@Summary		Render a template as PNG at native size
//	@Tags			export
//	@Produce		png
//	@Param			id	path	string	true	"Template id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id}/export.png [get]
func (h *Handler) ExportTemplatePNG(w http.ResponseWriter, r *http.Request) {
	t, err := h.d.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "export template", err)
		return
	}
	h.writePNG(w, r, t.Document)
}

// ExportTemplateJSON handles GET /api/templates/{id}/export.json.
//
//	@Summary		Download a template as a JSON document
//	@Tags			export
//	@Produce		json
//	@Param			id	path	string	true	"Template id"
//	@Success		200	{object}	models.Document
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id}/export.json [get]
func (h *Handler) ExportTemplateJSON(w http.ResponseWriter, r *http.Request) {
	t, err := h.d.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "export template", err)
		return
	}
	data, err := codec.Encode(t.Document)
	h.d.Metrics.Export("json", err)
	if err != nil {
		writeError(w, "export json", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(export.FileName(t.Document, "json")))
	_, _ = w.Write(data)
}

// ImportJSON handles POST /api/import/json. The body is a template document;
// with ?save=true it is stored as a new template.
//
//	@Summary		Validate and normalize a JSON template
//	@Tags			import
//	@Accept			json
//	@Produce		json
//	@Param			save	query		bool			false	"Persist the import"
//	@Param			body	body		models.Document	true	"Template document"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import/json [post]
func (h *Handler) ImportJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTemplateBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	doc, err := codec.Decode(data)
	h.d.Metrics.Import("json", err)
	if err != nil {
		writeError(w, "import json", err)
		return
	}
	h.finishImport(w, r, doc)
}

// ImportHTML handles POST /api/import/html (multipart/form-data with fields
// "html", optional "css" and optional "baseUrl"; each may be a file or a
// plain value).
//
//	@Summary		Convert an HTML/CSS page into a template
//	@Tags			import
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			html	formData	file	true	"HTML page"
//	@Param			css		formData	file	false	"Stylesheet"
//	@Param			baseUrl	formData	string	false	"Base URL for relative image paths"
//	@Param			save	query		bool	false	"Persist the import"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import/html [post]
func (h *Handler) ImportHTML(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	src := htmlimport.Source{
		HTML:    formText(r, "html"),
		CSS:     formText(r, "css"),
		BaseURL: r.FormValue("baseUrl"),
	}
	if strings.TrimSpace(src.HTML) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'html' field in multipart form"))
		return
	}
	doc, err := h.d.Importer.Convert(r.Context(), src)
	h.d.Metrics.Import("html", err)
	if err != nil {
		writeError(w, "import html", err)
		return
	}
	h.finishImport(w, r, doc)
}

func (h *Handler) finishImport(w http.ResponseWriter, r *http.Request, doc models.Document) {
	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); !save {
		writeJSON(w, http.StatusOK, ImportResponse{Document: doc})
		return
	}
	t, err := h.d.Templates.Create(r.Context(), doc)
	if err != nil {
		writeError(w, "save import", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{ID: t.ID, Checksum: t.Checksum, Document: t.Document})
}

// readDocument decodes a request body holding a template document.
func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (models.Document, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTemplateBytes)
	var doc models.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return models.Document{}, false
	}
	return doc, true
}

// writePNG rasterizes doc into a buffer first so a failed export can still
// be reported as JSON.
func (h *Handler) writePNG(w http.ResponseWriter, r *http.Request, doc models.Document) {
	var buf bytes.Buffer
	err := h.d.Rasterizer.PNG(r.Context(), doc, &buf)
	h.d.Metrics.Export("png", err)
	if err != nil {
		h.log.Error("export png failed", slog.String("name", doc.Name), slog.String("error", err.Error()))
		writeError(w, "export png", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", attachment(export.FileName(doc, "png")))
	_, _ = buf.WriteTo(w)
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}

// formText returns a multipart field that was sent either as a file or as a
// plain value.
func formText(r *http.Request, field string) string {
	if f, _, err := r.FormFile(field); err == nil {
		defer f.Close()
		data, _ := io.ReadAll(f)
		return string(data)
	}
	return r.FormValue(field)
}
