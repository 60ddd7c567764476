package index

import (
	"log/slog"
	"time"

	"github.com/starford/menuboard/internal/checksum"
	"github.com/starford/menuboard/internal/codec"
	"github.com/starford/menuboard/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed templates are decoded and upserted
//   - templates removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.ID] = struct{}{}

		if checksums[m.ID] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.ID, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteTemplate(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}

// IndexFile decodes a template file and upserts its summary. A zero updated
// time means now.
func IndexFile(db *DB, id, path string, data []byte, updated time.Time) error {
	doc, err := codec.Decode(data)
	if err != nil {
		return err
	}
	if updated.IsZero() {
		updated = time.Now()
	}
	sum := codec.Summarize(doc)
	row := TemplateRow{
		ID:           id,
		Path:         path,
		Name:         sum.Title,
		Checksum:     checksum.Sum(data),
		Width:        doc.CanvasSize.Width,
		Height:       doc.CanvasSize.Height,
		ElementCount: len(doc.Elements),
		Kinds:        sum.Kinds,
		UpdatedAt:    updated,
	}
	return db.UpsertTemplate(row, sum.Body, sum.Images)
}
