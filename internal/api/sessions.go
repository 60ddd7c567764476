package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/editor"
	"github.com/starford/menuboard/internal/models"
	"github.com/starford/menuboard/internal/sessions"
)

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open an editing session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	false	"Session source"
//	@Success		201		{object}	sessions.View
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}

	doc, err := h.sessionSource(r, req)
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	e := h.d.Sessions.Open(doc, req.TemplateID)
	h.log.Debug("session opened", "session", e.ID(), "template", req.TemplateID)
	writeJSON(w, http.StatusCreated, e.View())
}

func (h *Handler) sessionSource(r *http.Request, req OpenSessionRequest) (models.Document, error) {
	if req.TemplateID != "" {
		t, err := h.d.Templates.Get(r.Context(), req.TemplateID)
		if err != nil {
			return models.Document{}, err
		}
		return t.Document, nil
	}

	size := models.DefaultCanvas
	switch {
	case req.CanvasSize != nil:
		size = *req.CanvasSize
	case req.Preset != "":
		p, ok := models.CanvasPresets[req.Preset]
		if !ok {
			return models.Document{}, fmt.Errorf("unknown preset %q: %w", req.Preset, apperr.ErrInvalid)
		}
		size = p
	}
	name := req.Name
	if name == "" {
		name = "Untitled"
	}
	doc := models.NewDocument(name, size)
	if err := document.Validate(doc); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the state of an editing session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	sessions.View
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	e, err := h.d.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

// SessionCommands handles POST /api/sessions/{id}/commands.
//
//	@Summary		Apply a batch of editor commands
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		CommandsRequest	true	"Commands"
//	@Success		200		{object}	CommandsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/commands [post]
func (h *Handler) SessionCommands(w http.ResponseWriter, r *http.Request) {
	e, err := h.d.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "session commands", err)
		return
	}
	var req CommandsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	results := make([]CommandResult, 0, len(req.Commands))
	for _, raw := range req.Commands {
		results = append(results, applyCommand(e, raw))
	}
	writeJSON(w, http.StatusOK, CommandsResponse{Results: results, Session: e.View()})
}

// applyCommand decodes and runs one command. Failures are reported in the
// result; the session is left unchanged by a rejected command.
func applyCommand(e *sessions.Entry, raw json.RawMessage) CommandResult {
	cmd, err := editor.DecodeCommand(raw)
	if err != nil {
		return CommandResult{Error: err.Error()}
	}
	var res editor.Result
	err = e.Do(func(s *editor.Session) error {
		var applyErr error
		res, applyErr = s.Apply(cmd)
		return applyErr
	})
	out := CommandResult{Result: res}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// SaveSession handles POST /api/sessions/{id}/save. A session opened from a
// template updates it; otherwise a new template is created and linked.
//
//	@Summary		Persist a session's document
//	@Tags			sessions
//	@Produce		json
//	@Param			id			path		string	true	"Session id"
//	@Param			If-Match	header		string	false	"Checksum of the template being replaced"
//	@Success		200			{object}	SaveSessionResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/save [post]
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	e, err := h.d.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "save session", err)
		return
	}
	var doc models.Document
	_ = e.Do(func(s *editor.Session) error {
		if s.State() != editor.StateIdle {
			err = fmt.Errorf("session %s is mid-gesture: %w", e.ID(), apperr.ErrBusy)
			return nil
		}
		doc = s.Document()
		return nil
	})
	if err != nil {
		writeError(w, "save session", err)
		return
	}

	var t *TemplateDetail
	if id := e.TemplateID(); id != "" {
		t, err = h.d.Templates.Update(r.Context(), id, doc, strings.Trim(r.Header.Get("If-Match"), `"`))
	} else {
		t, err = h.d.Templates.Create(r.Context(), doc)
		if err == nil {
			e.SetTemplateID(t.ID)
		}
	}
	if err != nil {
		writeError(w, "save session", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(t.Checksum))
	writeJSON(w, http.StatusOK, SaveSessionResponse{Template: t, Session: e.View()})
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Close an editing session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportSessionPNG handles GET /api/sessions/{id}/export.png and renders the
// session's current document, unsaved edits included.
//
//	@Summary		Render a session's document as PNG
//	@Tags			export
//	@Produce		png
//	@Param			id	path	string	true	"Session id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/export.png [get]
func (h *Handler) ExportSessionPNG(w http.ResponseWriter, r *http.Request) {
	e, err := h.d.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "export session", err)
		return
	}
	h.writePNG(w, r, e.View().Document)
}
