// Package storage defines the library file-system abstraction.
package storage

import (
	"io"

	"github.com/starford/menuboard/internal/models"
)

// Provider is the interface for library file operations.
type Provider interface {
	// List returns metadata for every template file (<id>.json) directly
	// under dir (relative to the library root).
	List(dir string) ([]models.TemplateMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the library root).
	Read(path string) ([]byte, error)
	// Open streams the file at path (relative to the library root).
	Open(path string) (io.ReadCloser, error)
	// Write atomically writes content to path (relative to the library root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the library root).
	Delete(path string) error
}
