//go:build sqlite_fts5

package index

import (
	"testing"
	"time"

	"github.com/varga/lapse/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM sequences_fts`).Scan(&count); err != nil {
		t.Fatalf("sequences_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := SequenceRow{
		Path:      "kidney.useq.json",
		Name:      "Kidney section overview",
		Checksum:  "f1",
		Channels:  []string{"DAPI", "TRITC"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertSequence(row, []models.Position{{Name: "glomerulus", X: 1, Y: 2}}); err != nil {
		t.Fatalf("UpsertSequence: %v", err)
	}

	results, err := db.Search("overview", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "kidney.useq.json" {
		t.Errorf("path = %q", results[0].Path)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_MatchesPositionNames(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSequence(SequenceRow{Path: "p.useq.json", Name: "plate", Checksum: "1", UpdatedAt: time.Now()},
		[]models.Position{{Name: "cortex", X: 0, Y: 0}})

	results, err := db.Search("cortex", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "p.useq.json" {
		t.Errorf("results = %+v", results)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSequence(SequenceRow{Path: "gone.useq.json", Name: "vanishing", Checksum: "g", UpdatedAt: time.Now()}, nil)
	_ = db.DeleteSequence("gone.useq.json")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.Path == "gone.useq.json" {
			t.Error("deleted sequence still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertSequence(SequenceRow{Path: "r.useq.json", Name: "before", Checksum: "1", UpdatedAt: now}, nil)
	_ = db.UpsertSequence(SequenceRow{Path: "r.useq.json", Name: "after", Checksum: "2", UpdatedAt: now}, nil)

	if results, _ := db.Search("before", 10); len(results) != 0 {
		t.Error("old name still searchable")
	}
	results, err := db.Search("after", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}
