package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/menuboard/internal/assets"
)

// UploadAsset handles POST /api/assets (multipart/form-data, field "file",
// optional "owner"; or field "url" to fetch a remote image).
//
//	@Summary		Upload an image asset
//	@Tags			assets
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	false	"Image file"
//	@Param			url		formData	string	false	"Remote image URL"
//	@Param			owner	formData	string	false	"Owning user or board"
//	@Success		201		{object}	models.Asset
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets [post]
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, assets.MaxSize+1<<20)
	if err := r.ParseMultipartForm(assets.MaxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	owner := r.FormValue("owner")

	if u := r.FormValue("url"); u != "" {
		a, err := h.d.Assets.UploadURL(r.Context(), owner, u, r.FormValue("filename"))
		if err != nil {
			writeError(w, "upload asset", err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	a, err := h.d.Assets.Upload(r.Context(), owner, header.Filename, file)
	if err != nil {
		writeError(w, "upload asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListAssets handles GET /api/assets.
//
//	@Summary		List uploaded assets
//	@Tags			assets
//	@Produce		json
//	@Param			owner	query		string	false	"Only assets of this owner"
//	@Success		200		{object}	AssetListResponse
//	@Security		BearerAuth
//	@Router			/assets [get]
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Assets.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, "list assets", err)
		return
	}
	writeJSON(w, http.StatusOK, AssetListResponse{Assets: list})
}

// AssetUsage handles GET /api/assets/{id}/usage.
//
//	@Summary		List templates that reference an asset
//	@Tags			assets
//	@Produce		json
//	@Param			id	path		string	true	"Asset id"
//	@Success		200	{object}	AssetUsageResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets/{id}/usage [get]
func (h *Handler) AssetUsage(w http.ResponseWriter, r *http.Request) {
	ids, err := h.d.Assets.Usage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "asset usage", err)
		return
	}
	writeJSON(w, http.StatusOK, AssetUsageResponse{Templates: ids})
}

// DeleteAsset handles DELETE /api/assets/{id}.
//
//	@Summary		Delete an asset
//	@Tags			assets
//	@Param			id	path	string	true	"Asset id"
//	@Success		204	"Asset deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets/{id} [delete]
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Assets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeAsset handles GET /assets/{file}, the public URL stored in image
// elements. It is mounted outside the authenticated API so exported boards
// and browsers can load images directly.
func (h *Handler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	rc, err := h.d.Assets.Open(r.Context(), name)
	if err != nil {
		writeError(w, "serve asset", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", assets.MIMEType(name))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = io.Copy(w, rc)
}
