package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

type uploadResult struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// uploadAsset stores the image under the "mcp" owner. Fetching, size limits
// and content sniffing are done by the asset service.
func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.assets.UploadURL(ctx, "mcp", rawURL, req.GetString("filename", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("upload failed: %v", err)), nil
	}
	return jsonResult(uploadResult{ID: a.ID, ImageURL: a.URL, MIMEType: a.MIMEType, Size: a.Size}), nil
}
