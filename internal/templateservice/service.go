// Package templateservice persists menu board templates as JSON files in the
// library and keeps the SQLite index in step with every write.
package templateservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	mathrand "math/rand"
	"regexp"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/checksum"
	"github.com/starford/menuboard/internal/codec"
	"github.com/starford/menuboard/internal/index"
	"github.com/starford/menuboard/internal/models"
	"github.com/starford/menuboard/internal/storage"
)

// Detail is the full representation of a stored template.
type Detail struct {
	ID        string          `json:"id"`
	Checksum  string          `json:"checksum"`
	UpdatedAt time.Time       `json:"updated_at"`
	Document  models.Document `json:"document"`
}

// ListItem is a lightweight item in a list response.
type ListItem struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Checksum     string             `json:"checksum"`
	CanvasSize   models.CanvasSize  `json:"canvasSize"`
	Orientation  models.Orientation `json:"orientation"`
	ElementCount int                `json:"element_count"`
	Kinds        []string           `json:"kinds"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// EventFunc receives "created", "updated" and "deleted" notifications.
type EventFunc func(kind, id string)

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     *index.DB
	notify EventFunc

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// NewService creates a new template service. notify may be nil.
func NewService(store storage.Provider, db *index.DB, notify EventFunc) *Service {
	return &Service{
		store:   store,
		db:      db,
		notify:  notify,
		entropy: ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0),
	}
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func checkID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: template id %q", apperr.ErrInvalid, id)
	}
	return nil
}

func (s *Service) newID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Service) emit(kind, id string) {
	if s.notify != nil {
		s.notify(kind, id)
	}
}

// Get reads a template from storage.
func (s *Service) Get(_ context.Context, id string) (*Detail, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := s.store.Read(storage.TemplatePath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("template %s: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	doc, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return &Detail{ID: id, Checksum: checksum.Sum(data), UpdatedAt: s.updatedAt(id), Document: doc}, nil
}

// Create stores doc under a fresh id and indexes it.
func (s *Service) Create(_ context.Context, doc models.Document) (*Detail, error) {
	data, doc, err := prepare(doc)
	if err != nil {
		return nil, err
	}
	id := s.newID()
	if err := s.write(id, data); err != nil {
		return nil, err
	}
	s.emit("created", id)
	return &Detail{ID: id, Checksum: checksum.Sum(data), UpdatedAt: s.updatedAt(id), Document: doc}, nil
}

// Update replaces a template with optimistic concurrency: a non-empty
// ifMatch must equal the checksum of the stored file.
func (s *Service) Update(_ context.Context, id string, doc models.Document, ifMatch string) (*Detail, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	existing, err := s.store.Read(storage.TemplatePath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("template %s: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	data, doc, err := prepare(doc)
	if err != nil {
		return nil, err
	}
	if err := s.write(id, data); err != nil {
		return nil, err
	}
	s.emit("updated", id)
	return &Detail{ID: id, Checksum: checksum.Sum(data), UpdatedAt: s.updatedAt(id), Document: doc}, nil
}

// Delete removes a template from storage and index.
func (s *Service) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.store.Delete(storage.TemplatePath(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("template %s: %w", id, apperr.ErrNotFound)
		}
		return err
	}
	if err := s.db.DeleteTemplate(id); err != nil {
		return err
	}
	s.emit("deleted", id)
	return nil
}

// List returns one page of templates and the total count.
func (s *Service) List(_ context.Context, limit, offset int, sort string) ([]ListItem, int, error) {
	rows, total, err := s.db.ListTemplates(limit, offset, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ListItem, len(rows))
	for i, r := range rows {
		size := models.CanvasSize{Width: r.Width, Height: r.Height}
		items[i] = ListItem{
			ID:           r.ID,
			Name:         r.Name,
			Checksum:     r.Checksum,
			CanvasSize:   size,
			Orientation:  size.Orientation(),
			ElementCount: r.ElementCount,
			Kinds:        nonNilSlice(r.Kinds),
			UpdatedAt:    r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates name and content search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// prepare normalizes and validates doc and returns its encoded form.
func prepare(doc models.Document) ([]byte, models.Document, error) {
	raw, err := codec.Encode(doc)
	if err != nil {
		return nil, models.Document{}, err
	}
	doc, err = codec.Decode(raw)
	if err != nil {
		return nil, models.Document{}, err
	}
	data, err := codec.Encode(doc)
	if err != nil {
		return nil, models.Document{}, err
	}
	return data, doc, nil
}

func (s *Service) write(id string, data []byte) error {
	path := storage.TemplatePath(id)
	if err := s.store.Write(path, data); err != nil {
		return err
	}
	return index.IndexFile(s.db, id, path, data, time.Now())
}

func (s *Service) updatedAt(id string) time.Time {
	if row, err := s.db.GetTemplate(id); err == nil {
		return row.UpdatedAt
	}
	return time.Now().UTC()
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
