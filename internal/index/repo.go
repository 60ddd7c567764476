package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/models"
)

// TemplateRow represents a row in the templates table.
type TemplateRow struct {
	ID           string
	Path         string
	Name         string
	Checksum     string
	Width        int
	Height       int
	ElementCount int
	Kinds        []string
	UpdatedAt    time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string
	Name    string
	Snippet string
}

// Sort orders accepted by ListTemplates.
const (
	SortUpdated = "updated"
	SortName    = "name"
)

// UpsertTemplate inserts or replaces a template, its FTS entry and the image
// URLs it references within a transaction.
func (db *DB) UpsertTemplate(t TemplateRow, body string, images []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if t.Kinds == nil {
		t.Kinds = []string{}
	}
	kindsJSON, _ := json.Marshal(t.Kinds)

	_, err = tx.Exec(`
		INSERT INTO templates (id, path, name, checksum, width, height, element_count, kinds, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path          = excluded.path,
			name          = excluded.name,
			checksum      = excluded.checksum,
			width         = excluded.width,
			height        = excluded.height,
			element_count = excluded.element_count,
			kinds         = excluded.kinds,
			body          = excluded.body,
			updated_at    = excluded.updated_at
	`, t.ID, t.Path, t.Name, t.Checksum, t.Width, t.Height, t.ElementCount, string(kindsJSON), body, t.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert template: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, t.ID, t.Name, body, t.Kinds); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM template_images WHERE template_id = ?`, t.ID)
	if len(images) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO template_images (template_id, url) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare image insert: %w", err)
		}
		defer stmt.Close()
		for _, u := range images {
			if _, err := stmt.Exec(t.ID, u); err != nil {
				return fmt.Errorf("index: insert image: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteTemplate removes a template, its FTS entry and image references.
func (db *DB) DeleteTemplate(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM template_images WHERE template_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM templates WHERE id = ?`, id)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a template, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM templates WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

const templateColumns = `id, path, name, checksum, width, height, element_count, kinds, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (TemplateRow, error) {
	var (
		t     TemplateRow
		kinds string
	)
	if err := s.Scan(&t.ID, &t.Path, &t.Name, &t.Checksum, &t.Width, &t.Height, &t.ElementCount, &kinds, &t.UpdatedAt); err != nil {
		return TemplateRow{}, err
	}
	_ = json.Unmarshal([]byte(kinds), &t.Kinds)
	return t, nil
}

// GetTemplate returns one indexed template.
func (db *DB) GetTemplate(id string) (*TemplateRow, error) {
	row := db.conn.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: template %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get template: %w", err)
	}
	return &t, nil
}

// ListTemplates returns one page of templates and the total count.
func (db *DB) ListTemplates(limit, offset int, sort string) ([]TemplateRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order := `updated_at DESC, id`
	if sort == SortName {
		order = `name COLLATE NOCASE ASC, id`
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM templates`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count templates: %w", err)
	}
	rows, err := db.conn.Query(`SELECT `+templateColumns+` FROM templates ORDER BY `+order+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list templates: %w", err)
	}
	defer rows.Close()

	out := []TemplateRow{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the checksum of every indexed template keyed by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM templates`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// TemplatesUsing returns the ids of templates that reference the image URL.
func (db *DB) TemplatesUsing(url string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT template_id FROM template_images WHERE url = ? ORDER BY template_id`, url)
	if err != nil {
		return nil, fmt.Errorf("index: templates using: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertAsset records an uploaded asset.
func (db *DB) InsertAsset(a models.Asset) error {
	_, err := db.conn.Exec(`
		INSERT INTO assets (id, owner, filename, file, mime_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Owner, a.Filename, a.File, a.MIMEType, a.Size, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: insert asset: %w", err)
	}
	return nil
}

const assetColumns = `id, owner, filename, file, mime_type, size, created_at`

func scanAsset(s scanner) (models.Asset, error) {
	var a models.Asset
	if err := s.Scan(&a.ID, &a.Owner, &a.Filename, &a.File, &a.MIMEType, &a.Size, &a.CreatedAt); err != nil {
		return models.Asset{}, err
	}
	a.URL = "/assets/" + a.File
	return a, nil
}

// GetAsset returns one asset record.
func (db *DB) GetAsset(id string) (*models.Asset, error) {
	a, err := scanAsset(db.conn.QueryRow(`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: asset %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get asset: %w", err)
	}
	return &a, nil
}

// DeleteAsset removes an asset record.
func (db *DB) DeleteAsset(id string) error {
	res, err := db.conn.Exec(`DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("index: delete asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: asset %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ListAssets returns the assets of owner, newest first. An empty owner
// lists every asset.
func (db *DB) ListAssets(owner string) ([]models.Asset, error) {
	q := `SELECT ` + assetColumns + ` FROM assets`
	var args []any
	if owner != "" {
		q += ` WHERE owner = ?`
		args = append(args, owner)
	}
	rows, err := db.conn.Query(q+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list assets: %w", err)
	}
	defer rows.Close()

	out := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
