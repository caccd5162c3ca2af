package seqservice

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/varga/lapse/internal/apperr"
	"github.com/varga/lapse/internal/checksum"
	"github.com/varga/lapse/internal/models"
	"github.com/varga/lapse/internal/useq"
)

// PositionList is the position editing view of a sequence document: the
// ordered stage positions plus the document checksum for If-Match edits.
type PositionList struct {
	Path      string            `json:"path"`
	Checksum  string            `json:"checksum"`
	Positions []models.Position `json:"positions"`
}

// ListPositions returns the stage positions of a sequence document. When
// the index is current for the document it is read instead of re-parsing;
// a stale or missing index row falls back to decoding the file.
func (s *Service) ListPositions(_ context.Context, path string) (*PositionList, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	sum := checksum.Sum(data)

	if row, rowErr := s.db.GetSequence(path); rowErr == nil && row != nil && row.Checksum == sum {
		if positions, posErr := s.db.Positions(path); posErr == nil {
			if positions == nil {
				positions = []models.Position{}
			}
			return &PositionList{Path: path, Checksum: sum, Positions: positions}, nil
		}
	}

	seq, err := useq.Decode(data, useq.FormatForPath(path))
	if err != nil {
		return nil, err
	}
	positions := seq.StagePositions
	if positions == nil {
		positions = []models.Position{}
	}
	return &PositionList{Path: path, Checksum: sum, Positions: positions}, nil
}

// mutatePositions loads the document, applies fn to its position list,
// saves the result atomically in the document's own format, and reindexes.
// ifMatch guards against concurrent edits.
func (s *Service) mutatePositions(path, ifMatch string, fn func([]models.Position) ([]models.Position, error)) (*PositionList, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if !checksum.Matches(ifMatch, data) {
		return nil, apperr.ErrConflict
	}

	format := useq.FormatForPath(path)
	seq, err := useq.Decode(data, format)
	if err != nil {
		return nil, err
	}

	updated, err := fn(seq.StagePositions)
	if err != nil {
		return nil, err
	}
	seq.StagePositions = updated

	out, err := useq.Encode(seq, format)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, out); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, out); err != nil {
		return nil, err
	}
	if updated == nil {
		updated = []models.Position{}
	}
	return &PositionList{Path: path, Checksum: checksum.Sum(out), Positions: updated}, nil
}

// ReplacePositions swaps the whole position list.
func (s *Service) ReplacePositions(_ context.Context, path string, positions []models.Position, ifMatch string) (*PositionList, error) {
	return s.mutatePositions(path, ifMatch, func(_ []models.Position) ([]models.Position, error) {
		return positions, nil
	})
}

// AddPosition appends one position. An empty name defaults to PosN.
func (s *Service) AddPosition(_ context.Context, path string, pos models.Position, ifMatch string) (*PositionList, error) {
	return s.mutatePositions(path, ifMatch, func(existing []models.Position) ([]models.Position, error) {
		if pos.Name == "" {
			pos.Name = fmt.Sprintf("Pos%d", len(existing)+1)
		}
		return append(existing, pos), nil
	})
}

// UpdatePosition replaces the entry at idx.
func (s *Service) UpdatePosition(_ context.Context, path string, idx int, pos models.Position, ifMatch string) (*PositionList, error) {
	return s.mutatePositions(path, ifMatch, func(existing []models.Position) ([]models.Position, error) {
		if idx < 0 || idx >= len(existing) {
			return nil, apperr.ErrNotFound
		}
		if pos.Name == "" {
			pos.Name = existing[idx].Name
		}
		existing[idx] = pos
		return existing, nil
	})
}

// RemovePosition deletes the entry at idx, preserving the order of the rest.
func (s *Service) RemovePosition(_ context.Context, path string, idx int, ifMatch string) (*PositionList, error) {
	return s.mutatePositions(path, ifMatch, func(existing []models.Position) ([]models.Position, error) {
		if idx < 0 || idx >= len(existing) {
			return nil, apperr.ErrNotFound
		}
		return append(existing[:idx], existing[idx+1:]...), nil
	})
}

// AddCurrentPosition appends the stage's current coordinates as a new
// position. Z is recorded only when a focus drive is present.
func (s *Service) AddCurrentPosition(ctx context.Context, path, name, ifMatch string) (*PositionList, error) {
	x, y, err := s.eng.XYPosition()
	if err != nil {
		return nil, fmt.Errorf("read stage position: %w", err)
	}
	pos := models.Position{Name: name, X: x, Y: y}
	if s.eng.HasFocusDevice() {
		if z, zErr := s.eng.ZPosition(); zErr == nil {
			pos.SetZ(z)
		}
	}
	return s.AddPosition(ctx, path, pos, ifMatch)
}

// UpdatePositionFromStage overwrites the coordinates of the entry at idx
// with the stage's current location, keeping its name.
func (s *Service) UpdatePositionFromStage(_ context.Context, path string, idx int, ifMatch string) (*PositionList, error) {
	x, y, err := s.eng.XYPosition()
	if err != nil {
		return nil, fmt.Errorf("read stage position: %w", err)
	}
	var z *float64
	if s.eng.HasFocusDevice() {
		if zv, zErr := s.eng.ZPosition(); zErr == nil {
			z = &zv
		}
	}
	return s.mutatePositions(path, ifMatch, func(existing []models.Position) ([]models.Position, error) {
		if idx < 0 || idx >= len(existing) {
			return nil, apperr.ErrNotFound
		}
		existing[idx].X = x
		existing[idx].Y = y
		existing[idx].Z = z
		return existing, nil
	})
}
