package index

import (
	"log/slog"
	"os"
	"testing"

	"github.com/varga/lapse/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

const seqDoc = `{
  "metadata": {"pymmcore_widgets": {"save_name": "Demo"}},
  "channels": [{"config": "DAPI"}],
  "time_plan": {"interval": 5.0, "loops": 3},
  "stage_positions": [{"name": "Pos0", "x": 1.0, "y": 2.0}]
}
`

func TestSyncIndexesNewFiles(t *testing.T) {
	db := testDB(t)
	store, _ := storage.NewFS(t.TempDir())
	_ = store.Write("demo.useq.json", []byte(seqDoc))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	row, err := db.GetSequence("demo.useq.json")
	if err != nil || row == nil {
		t.Fatalf("GetSequence: %v, row = %v", err, row)
	}
	if row.Name != "Demo" || row.Frames != 3 || row.Positions != 1 {
		t.Errorf("row = %+v", row)
	}
}

func TestSyncRemovesStaleEntries(t *testing.T) {
	db := testDB(t)
	store, _ := storage.NewFS(t.TempDir())
	_ = store.Write("keep.useq.json", []byte(seqDoc))
	_ = store.Write("drop.useq.json", []byte(seqDoc))
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	_ = store.Delete("drop.useq.json")
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	if cs, _ := db.GetChecksum("drop.useq.json"); cs != "" {
		t.Error("stale entry not removed")
	}
	if cs, _ := db.GetChecksum("keep.useq.json"); cs == "" {
		t.Error("surviving entry lost")
	}
}

func TestSyncSkipsInvalidDocuments(t *testing.T) {
	db := testDB(t)
	store, _ := storage.NewFS(t.TempDir())
	_ = store.Write("bad.useq.json", []byte(`{"time_plan": {"interval": -1, "loops": 0}}`))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("bad.useq.json"); cs != "" {
		t.Error("invalid document should not be indexed")
	}
}
