package index

import "github.com/starford/menuboard/internal/models"

// TemplateIndex defines the template and asset lookups the services need.
// Consumers should depend on this interface rather than the concrete *DB type.
type TemplateIndex interface {
	UpsertTemplate(t TemplateRow, body string, images []string) error
	DeleteTemplate(id string) error
	GetChecksum(id string) (string, error)
	GetTemplate(id string) (*TemplateRow, error)
	ListTemplates(limit, offset int, sort string) ([]TemplateRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	TemplatesUsing(url string) ([]string, error)
	AllChecksums() (map[string]string, error)

	InsertAsset(a models.Asset) error
	GetAsset(id string) (*models.Asset, error)
	DeleteAsset(id string) error
	ListAssets(owner string) ([]models.Asset, error)

	Ping() error
	Close() error
}

// Verify *DB satisfies TemplateIndex at compile time.
var _ TemplateIndex = (*DB)(nil)
