package seqservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/varga/lapse/internal/apperr"
	"github.com/varga/lapse/internal/engine"
	"github.com/varga/lapse/internal/index"
	"github.com/varga/lapse/internal/models"
	"github.com/varga/lapse/internal/testutil"
)

func positionsFixture(t *testing.T, opts ...engine.SimOption) (*Service, *engine.Sim, string) {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	sim := engine.NewSim(opts...)
	t.Cleanup(sim.Close)
	svc := NewService(store, db, sim)

	if _, err := svc.Create(context.Background(), "pos.useq.json", []byte(testDoc)); err != nil {
		t.Fatal(err)
	}
	return svc, sim, "pos.useq.json"
}

func TestListPositions(t *testing.T) {
	svc, _, path := positionsFixture(t)
	list, err := svc.ListPositions(context.Background(), path)
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(list.Positions) != 1 || list.Positions[0].Name != "Pos0" {
		t.Errorf("positions = %+v", list.Positions)
	}
	if list.Checksum == "" {
		t.Error("missing checksum")
	}
}

// ListPositions serves the indexed position rows when the index checksum
// matches the document, and re-parses the file when the index is stale.
func TestListPositionsReadsIndex(t *testing.T) {
	_, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	sim := engine.NewSim()
	t.Cleanup(sim.Close)
	svc := NewService(store, db, sim)
	ctx := context.Background()

	detail, err := svc.Create(ctx, "idx.useq.json", []byte(testDoc))
	if err != nil {
		t.Fatal(err)
	}

	row := index.SequenceRow{
		Path:      "idx.useq.json",
		Name:      detail.Name,
		Checksum:  detail.Checksum,
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertSequence(row, []models.Position{{Name: "from-index", X: 1, Y: 2}}); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListPositions(ctx, "idx.useq.json")
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(list.Positions) != 1 || list.Positions[0].Name != "from-index" {
		t.Errorf("positions = %+v, want the indexed row", list.Positions)
	}

	// A stale index row (checksum mismatch) falls back to the document.
	row.Checksum = "stale"
	if err := db.UpsertSequence(row, []models.Position{{Name: "wrong", X: 0, Y: 0}}); err != nil {
		t.Fatal(err)
	}
	list, err = svc.ListPositions(ctx, "idx.useq.json")
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(list.Positions) != 1 || list.Positions[0].Name != "Pos0" {
		t.Errorf("positions = %+v, want the document's Pos0", list.Positions)
	}
}

// Added positions append at the end; existing entries keep their order.
func TestAddPositionAppends(t *testing.T) {
	svc, _, path := positionsFixture(t)
	ctx := context.Background()

	list, err := svc.AddPosition(ctx, path, models.Position{Name: "mid", X: 5, Y: 6}, "")
	if err != nil {
		t.Fatalf("AddPosition: %v", err)
	}
	list, err = svc.AddPosition(ctx, path, models.Position{X: 7, Y: 8}, list.Checksum)
	if err != nil {
		t.Fatalf("second AddPosition: %v", err)
	}

	names := make([]string, len(list.Positions))
	for i, p := range list.Positions {
		names[i] = p.Name
	}
	want := []string{"Pos0", "mid", "Pos3"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestAddPositionDefaultName(t *testing.T) {
	svc, _, path := positionsFixture(t)
	list, err := svc.AddPosition(context.Background(), path, models.Position{X: 1, Y: 1}, "")
	if err != nil {
		t.Fatal(err)
	}
	last := list.Positions[len(list.Positions)-1]
	if last.Name != "Pos2" {
		t.Errorf("default name = %q, want Pos2", last.Name)
	}
}

func TestReplacePositions(t *testing.T) {
	svc, _, path := positionsFixture(t)
	z := 3.5
	repl := []models.Position{
		{Name: "a", X: 1, Y: 2, Z: &z},
		{Name: "b", X: 3, Y: 4},
	}
	list, err := svc.ReplacePositions(context.Background(), path, repl, "")
	if err != nil {
		t.Fatalf("ReplacePositions: %v", err)
	}
	if len(list.Positions) != 2 || list.Positions[0].Z == nil {
		t.Errorf("positions = %+v", list.Positions)
	}

	// Clearing the list entirely is allowed.
	list, err = svc.ReplacePositions(context.Background(), path, nil, list.Checksum)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(list.Positions) != 0 {
		t.Errorf("positions = %+v", list.Positions)
	}
}

func TestUpdatePosition(t *testing.T) {
	svc, _, path := positionsFixture(t)
	ctx := context.Background()

	list, err := svc.UpdatePosition(ctx, path, 0, models.Position{X: 99, Y: -1}, "")
	if err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	p := list.Positions[0]
	// Name survives a coordinate-only update.
	if p.Name != "Pos0" || p.X != 99 || p.Y != -1 {
		t.Errorf("p = %+v", p)
	}

	if _, err := svc.UpdatePosition(ctx, path, 5, models.Position{}, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("out of range err = %v, want ErrNotFound", err)
	}
}

func TestRemovePositionPreservesOrder(t *testing.T) {
	svc, _, path := positionsFixture(t)
	ctx := context.Background()

	list, _ := svc.AddPosition(ctx, path, models.Position{Name: "second", X: 1, Y: 1}, "")
	list, _ = svc.AddPosition(ctx, path, models.Position{Name: "third", X: 2, Y: 2}, list.Checksum)

	list, err := svc.RemovePosition(ctx, path, 1, list.Checksum)
	if err != nil {
		t.Fatalf("RemovePosition: %v", err)
	}
	if len(list.Positions) != 2 || list.Positions[0].Name != "Pos0" || list.Positions[1].Name != "third" {
		t.Errorf("positions = %+v", list.Positions)
	}

	if _, err := svc.RemovePosition(ctx, path, 10, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("out of range err = %v, want ErrNotFound", err)
	}
}

func TestPositionEditConflict(t *testing.T) {
	svc, _, path := positionsFixture(t)
	ctx := context.Background()

	list, _ := svc.ListPositions(ctx, path)
	if _, err := svc.AddPosition(ctx, path, models.Position{X: 1, Y: 1}, list.Checksum); err != nil {
		t.Fatal(err)
	}
	// The old checksum is now stale.
	_, err := svc.AddPosition(ctx, path, models.Position{X: 2, Y: 2}, list.Checksum)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestAddCurrentPosition(t *testing.T) {
	svc, sim, path := positionsFixture(t)
	ctx := context.Background()

	_ = sim.SetXYPosition(12.5, -7)
	_ = sim.SetZPosition(3)

	list, err := svc.AddCurrentPosition(ctx, path, "here", "")
	if err != nil {
		t.Fatalf("AddCurrentPosition: %v", err)
	}
	last := list.Positions[len(list.Positions)-1]
	if last.Name != "here" || last.X != 12.5 || last.Y != -7 {
		t.Errorf("last = %+v", last)
	}
	if last.Z == nil || *last.Z != 3 {
		t.Errorf("z = %v, want 3", last.Z)
	}
}

func TestAddCurrentPositionNoFocus(t *testing.T) {
	svc, sim, path := positionsFixture(t, engine.WithoutFocusDevice())
	_ = sim.SetXYPosition(1, 2)

	list, err := svc.AddCurrentPosition(context.Background(), path, "", "")
	if err != nil {
		t.Fatalf("AddCurrentPosition: %v", err)
	}
	last := list.Positions[len(list.Positions)-1]
	if last.Z != nil {
		t.Errorf("z should be nil without focus drive, got %v", *last.Z)
	}
}

func TestUpdatePositionFromStage(t *testing.T) {
	svc, sim, path := positionsFixture(t)
	_ = sim.SetXYPosition(100, 200)
	_ = sim.SetZPosition(30)

	list, err := svc.UpdatePositionFromStage(context.Background(), path, 0, "")
	if err != nil {
		t.Fatalf("UpdatePositionFromStage: %v", err)
	}
	p := list.Positions[0]
	if p.Name != "Pos0" || p.X != 100 || p.Y != 200 || p.Z == nil || *p.Z != 30 {
		t.Errorf("p = %+v", p)
	}
}

// Position edits must survive a reload: the document on disk carries the
// new list in the same encoding it was written in.
func TestPositionEditsPersist(t *testing.T) {
	svc, _, path := positionsFixture(t)
	ctx := context.Background()

	if _, err := svc.AddPosition(ctx, path, models.Position{Name: "persisted", X: 1, Y: 2}, ""); err != nil {
		t.Fatal(err)
	}

	detail, err := svc.Get(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Positions) != 2 || detail.Positions[1].Name != "persisted" {
		t.Errorf("positions = %+v", detail.Positions)
	}
	// The rest of the document is untouched.
	if detail.Name != "Plate Scan" || detail.Channels[0] != "DAPI" {
		t.Errorf("detail = %+v", detail)
	}
}
