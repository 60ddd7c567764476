// Package assets stores uploaded board images under the library's assets/
// directory and records their metadata in the index.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/index"
	"github.com/starford/menuboard/internal/models"
	"github.com/starford/menuboard/internal/storage"
)

// Dir is the library subdirectory holding asset bytes.
const Dir = "assets"

// URLPrefix is the public path asset files are served under.
const URLPrefix = "/assets/"

// EventFunc receives "created" and "deleted" notifications.
type EventFunc func(kind, id string)

// Service implements upload, delete, list and lookup of image assets.
type Service struct {
	store   storage.Provider
	db      *index.DB
	fetcher *Fetcher
	notify  EventFunc
}

// NewService creates an asset service. fetcher and notify may be nil; URL
// uploads then use a default fetcher.
func NewService(store storage.Provider, db *index.DB, fetcher *Fetcher, notify EventFunc) *Service {
	if fetcher == nil {
		fetcher = NewFetcher(0)
	}
	return &Service{store: store, db: db, fetcher: fetcher, notify: notify}
}

// Upload validates and stores an image read from r. filename is the client's
// name for it and only its extension matters; the stored name is a fresh
// UUID so ids and URLs are stable.
func (s *Service) Upload(_ context.Context, owner, filename string, r io.Reader) (*models.Asset, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("assets: read upload: %w", err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%w: file too large: exceeds %d bytes", apperr.ErrInvalid, MaxSize)
	}
	return s.save(owner, filename, data)
}

// UploadURL downloads rawURL (http(s) or a base64 data URI) and stores it.
func (s *Service) UploadURL(ctx context.Context, owner, rawURL, filename string) (*models.Asset, error) {
	data, ext, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		filename = filenameFromURL(rawURL, ext)
	}
	return s.save(owner, filename, data)
}

func (s *Service) save(owner, filename string, data []byte) (*models.Asset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", apperr.ErrInvalid)
	}
	filename = sanitizeFilename(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported file extension %q (allowed: png, jpg, jpeg, gif, webp)", apperr.ErrInvalid, ext)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	a := models.Asset{
		ID:        id,
		Owner:     owner,
		Filename:  filename,
		File:      id + ext,
		MIMEType:  extToMIME[ext],
		Size:      int64(len(data)),
		URL:       URLPrefix + id + ext,
		CreatedAt: time.Now().UTC(),
	}

	rel := Dir + "/" + a.File
	if err := s.store.Write(rel, data); err != nil {
		return nil, err
	}
	if err := s.db.InsertAsset(a); err != nil {
		_ = s.store.Delete(rel)
		return nil, err
	}
	s.emit("created", a.ID)
	return &a, nil
}

// Get returns the metadata of one asset.
func (s *Service) Get(_ context.Context, id string) (*models.Asset, error) {
	return s.db.GetAsset(id)
}

// List returns the assets of owner, newest first. An empty owner lists all.
func (s *Service) List(_ context.Context, owner string) ([]models.Asset, error) {
	return s.db.ListAssets(owner)
}

// Delete removes an asset's bytes and metadata. Templates that still point at
// it keep the URL; the exporter draws a placeholder for it.
func (s *Service) Delete(_ context.Context, id string) error {
	a, err := s.db.GetAsset(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(Dir + "/" + a.File); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := s.db.DeleteAsset(id); err != nil {
		return err
	}
	s.emit("deleted", id)
	return nil
}

// Usage returns the ids of templates that reference the asset.
func (s *Service) Usage(_ context.Context, id string) ([]string, error) {
	a, err := s.db.GetAsset(id)
	if err != nil {
		return nil, err
	}
	return s.db.TemplatesUsing(a.URL)
}

// Open streams a stored asset by file name.
func (s *Service) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validStoredName(name) {
		return nil, fmt.Errorf("asset %q: %w", name, apperr.ErrNotFound)
	}
	rc, err := s.store.Open(Dir + "/" + name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("asset %q: %w", name, apperr.ErrNotFound)
		}
		return nil, err
	}
	return rc, nil
}

// MIMEType returns the content type of a stored asset file name.
func MIMEType(name string) string {
	if m, ok := extToMIME[strings.ToLower(filepath.Ext(name))]; ok {
		return m
	}
	return "application/octet-stream"
}

func (s *Service) emit(kind, id string) {
	if s.notify != nil {
		s.notify(kind, id)
	}
}
