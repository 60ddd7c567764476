package api

import (
	"encoding/json"

	"github.com/starford/menuboard/internal/editor"
	"github.com/starford/menuboard/internal/index"
	"github.com/starford/menuboard/internal/models"
	"github.com/starford/menuboard/internal/sessions"
	"github.com/starford/menuboard/internal/templateservice"
)

// TemplateDetail is the full template response type (aliased from the domain layer).
type TemplateDetail = templateservice.Detail

// TemplateListItem is a lightweight item in a list response (aliased from the domain layer).
type TemplateListItem = templateservice.ListItem

// TemplateListResponse wraps paginated template listings.
type TemplateListResponse struct {
	Templates []TemplateListItem `json:"templates" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// AssetListResponse wraps an asset listing.
type AssetListResponse struct {
	Assets []models.Asset `json:"assets" validate:"required"`
}

// AssetUsageResponse lists the templates referencing an asset.
type AssetUsageResponse struct {
	Templates []string `json:"templates" validate:"required"`
}

// ImportResponse is returned by the import endpoints. ID and Checksum are set
// when the import was saved.
type ImportResponse struct {
	ID       string          `json:"id,omitempty"`
	Checksum string          `json:"checksum,omitempty"`
	Document models.Document `json:"document" validate:"required"`
}

// OpenSessionRequest starts an editing session from a stored template, a
// canvas preset or an explicit canvas size. A blank 1920x1080 board is used
// when none is given.
type OpenSessionRequest struct {
	TemplateID string             `json:"templateId,omitempty" example:"01HX3Q8K5N6Z7Y2W1V0T9S8R7Q"`
	Name       string             `json:"name,omitempty" example:"Lunch"`
	Preset     string             `json:"preset,omitempty" example:"portrait-hd"`
	CanvasSize *models.CanvasSize `json:"canvasSize,omitempty"`
}

// CommandsRequest is a batch of editor commands applied in order.
type CommandsRequest struct {
	Commands []json.RawMessage `json:"commands" validate:"required"`
}

// CommandResult reports one applied command. Error is set when the command
// failed; later commands in the batch still run.
type CommandResult struct {
	editor.Result
	Error string `json:"error,omitempty"`
}

// CommandsResponse holds per-command results and the resulting session view.
type CommandsResponse struct {
	Results []CommandResult `json:"results" validate:"required"`
	Session sessions.View   `json:"session" validate:"required"`
}

// SaveSessionResponse is returned after a session is persisted.
type SaveSessionResponse struct {
	Template *TemplateDetail `json:"template" validate:"required"`
	Session  sessions.View   `json:"session" validate:"required"`
}
