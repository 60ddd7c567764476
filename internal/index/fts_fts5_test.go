//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM templates_fts`).Scan(&count); err != nil {
		t.Fatalf("templates_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertTemplate(row("fts", "Dinner Board", "f1", time.Now()), "Slow roasted brisket\nSeasonal vegetables", nil); err != nil {
		t.Fatalf("UpsertTemplate: %v", err)
	}

	results, err := db.Search("brisket", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "fts" {
		t.Errorf("id = %q", results[0].ID)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_PrefixMatch(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertTemplate(row("p", "Breakfast", "p1", time.Now()), "pancakes", nil)

	results, _ := db.Search("panc", 10)
	if len(results) != 1 {
		t.Errorf("prefix search returned %d results, want 1", len(results))
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertTemplate(row("gone", "Gone", "g", time.Now()), "vanishing content", nil)
	_ = db.DeleteTemplate("gone")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.ID == "gone" {
			t.Error("deleted template still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertTemplate(row("evo", "Old", "1", now), "original text", nil)
	_ = db.UpsertTemplate(row("evo", "New", "2", now), "replacement text", nil)

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Name != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
