//go:build !sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFallbackSearch(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSequence(SequenceRow{
		Path: "scan.useq.json", Name: "Plate Scan", Checksum: "1",
		Channels: []string{"DAPI"}, UpdatedAt: time.Now(),
	}, nil)

	for _, q := range []string{"plate", "DAPI", "scan.useq"} {
		results, err := db.Search(q, 10)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(results) != 1 {
			t.Errorf("Search(%q): got %d results", q, len(results))
		}
	}

	results, _ := db.Search("no-such-thing", 10)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
