package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "menuboard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func row(id, name, cs string, at time.Time) TemplateRow {
	return TemplateRow{
		ID:        id,
		Path:      id + ".json",
		Name:      name,
		Checksum:  cs,
		Width:     1920,
		Height:    1080,
		Kinds:     []string{"text"},
		UpdatedAt: at,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"templates", "template_images", "assets"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
	if err := db.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertTemplate(row("t1", "Lunch", "abc123", time.Now()), "Burgers", []string{"/assets/a.png"}); err != nil {
		t.Fatalf("UpsertTemplate: %v", err)
	}
	cs, err := db.GetChecksum("t1")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetTemplate("t1")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.Name != "Lunch" || got.Width != 1920 || len(got.Kinds) != 1 || got.Kinds[0] != "text" {
		t.Errorf("row = %+v", got)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
	if _, err := db.GetTemplate("nonexistent"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetTemplate err = %v, want ErrNotFound", err)
	}
}

func TestTemplatesUsing(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertTemplate(row("a", "A", "1", time.Now()), "", []string{"/assets/logo.png"})
	_ = db.UpsertTemplate(row("c", "C", "2", time.Now()), "", []string{"/assets/logo.png", "https://x/y.png"})

	ids, err := db.TemplatesUsing("/assets/logo.png")
	if err != nil {
		t.Fatalf("TemplatesUsing: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Errorf("ids = %v, want [a c]", ids)
	}
}

func TestUpsertReplacesImages(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertTemplate(row("up", "Old", "1", now), "old body", []string{"x.png"})
	_ = db.UpsertTemplate(row("up", "New", "2", now), "new body", []string{"y.png"})

	cs, _ := db.GetChecksum("up")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	if ids, _ := db.TemplatesUsing("x.png"); len(ids) != 0 {
		t.Error("old image reference should be removed on upsert")
	}
	if ids, _ := db.TemplatesUsing("y.png"); len(ids) != 1 {
		t.Error("new image reference should exist")
	}
}

func TestDeleteTemplate(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertTemplate(row("del", "Gone", "x", time.Now()), "body", []string{"target.png"})

	if err := db.DeleteTemplate("del"); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if cs, _ := db.GetChecksum("del"); cs != "" {
		t.Errorf("deleted template still has checksum %q", cs)
	}
	if ids, _ := db.TemplatesUsing("target.png"); len(ids) != 0 {
		t.Errorf("expected no image references after delete, got %v", ids)
	}
}

func TestListTemplatesPagingAndSort(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	_ = db.UpsertTemplate(row("1", "breakfast", "a", base), "", nil)
	_ = db.UpsertTemplate(row("2", "Dinner", "b", base.Add(time.Hour)), "", nil)
	_ = db.UpsertTemplate(row("3", "lunch", "c", base.Add(2*time.Hour)), "", nil)

	items, total, err := db.ListTemplates(2, 0, SortUpdated)
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].ID != "3" || items[1].ID != "2" {
		t.Errorf("updated page = %v (total %d)", ids(items), total)
	}

	items, _, _ = db.ListTemplates(2, 2, SortUpdated)
	if len(items) != 1 || items[0].ID != "1" {
		t.Errorf("second page = %v", ids(items))
	}

	items, _, _ = db.ListTemplates(0, 0, SortName)
	if got := ids(items); len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
		t.Errorf("name order = %v, want case-insensitive [1 2 3]", got)
	}
}

func ids(rows []TemplateRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertTemplate(row("s", "Search Me", "1", time.Now()), "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" || results[0].Name != "Search Me" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestAssetsCRUD(t *testing.T) {
	db := testDB(t)
	older := models.Asset{ID: "a1", Owner: "alice", Filename: "logo.png", File: "a1.png", MIMEType: "image/png", Size: 10, CreatedAt: time.Now().Add(-time.Minute)}
	newer := models.Asset{ID: "a2", Owner: "alice", Filename: "bg.jpg", File: "a2.jpg", MIMEType: "image/jpeg", Size: 20, CreatedAt: time.Now()}
	other := models.Asset{ID: "b1", Owner: "bob", Filename: "x.webp", File: "b1.webp", MIMEType: "image/webp", Size: 5, CreatedAt: time.Now()}
	for _, a := range []models.Asset{older, newer, other} {
		if err := db.InsertAsset(a); err != nil {
			t.Fatalf("InsertAsset: %v", err)
		}
	}

	got, err := db.GetAsset("a1")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if got.URL != "/assets/a1.png" || got.Filename != "logo.png" {
		t.Errorf("asset = %+v", got)
	}

	list, err := db.ListAssets("alice")
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a2" {
		t.Errorf("alice assets = %+v, want newest first", list)
	}
	if all, _ := db.ListAssets(""); len(all) != 3 {
		t.Errorf("all assets = %d, want 3", len(all))
	}

	if err := db.DeleteAsset("a1"); err != nil {
		t.Fatalf("DeleteAsset: %v", err)
	}
	if err := db.DeleteAsset("a1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if _, err := db.GetAsset("a1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetAsset after delete err = %v", err)
	}
}
