package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/menuboard/internal/assets"
	"github.com/starford/menuboard/internal/export"
	"github.com/starford/menuboard/internal/htmlimport"
	"github.com/starford/menuboard/internal/metrics"
	"github.com/starford/menuboard/internal/sessions"
	"github.com/starford/menuboard/internal/templateservice"
)

// Deps are the collaborators the API is built on. Metrics, Limiter, Events
// and Logger may be nil.
type Deps struct {
	Templates  *templateservice.Service
	Assets     *assets.Service
	Sessions   *sessions.Registry
	Importer   *htmlimport.Converter
	Rasterizer *export.Rasterizer
	Metrics    *metrics.Metrics
	Limiter    *RateLimiter
	Events     http.Handler
	Logger     *slog.Logger

	AuthEnabled bool
	Token       string
}

// NewRouter creates a chi router with all API routes mounted.
// The SSE handler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(d.AuthEnabled, d.Token))

	// Templates CRUD.
	r.Get("/templates", h.ListTemplates)
	r.Post("/templates", h.CreateTemplate)
	r.Get("/templates/{id}", h.GetTemplate)
	r.Put("/templates/{id}", h.UpdateTemplate)
	r.Delete("/templates/{id}", h.DeleteTemplate)

	// Search.
	r.Get("/search", h.Search)

	// Import and export are CPU and network heavy; rate limited per client.
	r.Group(func(r chi.Router) {
		r.Use(d.Limiter.Middleware)
		r.Get("/templates/{id}/export.png", h.ExportTemplatePNG)
		r.Get("/templates/{id}/export.json", h.ExportTemplateJSON)
		r.Post("/import/json", h.ImportJSON)
		r.Post("/import/html", h.ImportHTML)
		r.Get("/sessions/{id}/export.png", h.ExportSessionPNG)
	})

	// Assets.
	r.Post("/assets", h.UploadAsset)
	r.Get("/assets", h.ListAssets)
	r.Get("/assets/{id}/usage", h.AssetUsage)
	r.Delete("/assets/{id}", h.DeleteAsset)

	// Editing sessions.
	r.Post("/sessions", h.OpenSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Post("/sessions/{id}/commands", h.SessionCommands)
	r.Post("/sessions/{id}/save", h.SaveSession)
	r.Delete("/sessions/{id}", h.CloseSession)
	r.Get("/sessions/{id}/ws", h.SessionStream)

	// SSE endpoint (protected by same auth middleware).
	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}
