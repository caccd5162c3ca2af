// Package seqservice coordinates storage and index operations on sequence
// documents, including stage-position editing.
package seqservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/varga/lapse/internal/apperr"
	"github.com/varga/lapse/internal/checksum"
	"github.com/varga/lapse/internal/engine"
	"github.com/varga/lapse/internal/index"
	"github.com/varga/lapse/internal/models"
	"github.com/varga/lapse/internal/storage"
	"github.com/varga/lapse/internal/useq"
)

// SequenceDetail is the full representation of a sequence document.
type SequenceDetail struct {
	Path      string            `json:"path"`
	Name      string            `json:"name"`
	Summary   string            `json:"summary"`
	Content   string            `json:"content"`
	Checksum  string            `json:"checksum"`
	Channels  []string          `json:"channels"`
	Frames    int               `json:"frames"`
	Positions []models.Position `json:"positions"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SequenceListItem is a lightweight item in a list response.
type SequenceListItem struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	Channels  []string  `json:"channels"`
	Positions int       `json:"positions"`
	Frames    int       `json:"frames"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage, index, and stage reads for sequence editing.
type Service struct {
	store storage.Provider
	db    *index.DB
	eng   engine.Engine
}

// NewService creates a new sequence service.
func NewService(store storage.Provider, db *index.DB, eng engine.Engine) *Service {
	return &Service{store: store, db: db, eng: eng}
}

// Get reads a sequence document from storage and decodes it.
func (s *Service) Get(_ context.Context, path string) (*SequenceDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildDetail(path, data)
}

// Create writes a new sequence document and indexes it. The content must
// decode as a valid sequence for its filename's format.
func (s *Service) Create(_ context.Context, path string, content []byte) (*SequenceDetail, error) {
	if !useq.IsSequencePath(path) {
		return nil, fmt.Errorf("not a sequence document path: %s", path)
	}
	if _, err := useq.Decode(content, useq.FormatForPath(path)); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// Update writes updated content with optimistic concurrency.
func (s *Service) Update(_ context.Context, path string, content []byte, ifMatch string) (*SequenceDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if !checksum.Matches(ifMatch, existing) {
		return nil, apperr.ErrConflict
	}
	if _, err := useq.Decode(content, useq.FormatForPath(path)); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// Delete removes a sequence from storage and index.
func (s *Service) Delete(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteSequence(path)
}

// List returns paginated sequences with optional channel filter.
func (s *Service) List(_ context.Context, limit, offset int, channel, sort string) ([]SequenceListItem, int, error) {
	rows, total, err := s.db.ListSequences(limit, offset, channel, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]SequenceListItem, len(rows))
	for i, r := range rows {
		items[i] = SequenceListItem{
			Path:      r.Path,
			Name:      r.Name,
			Checksum:  r.Checksum,
			Channels:  nonNilSlice(r.Channels),
			Positions: r.Positions,
			Frames:    r.Frames,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// IndexFile decodes data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	seq, err := useq.Decode(data, useq.FormatForPath(path))
	if err != nil {
		return err
	}
	return s.db.UpsertSequence(index.SequenceRow{
		Path:      path,
		Name:      seq.Name(),
		Checksum:  checksum.Sum(data),
		Channels:  seq.ChannelNames(),
		Frames:    seq.TotalFrames(),
		UpdatedAt: time.Now(),
	}, seq.StagePositions)
}

func (s *Service) buildDetail(path string, data []byte) (*SequenceDetail, error) {
	seq, err := useq.Decode(data, useq.FormatForPath(path))
	if err != nil {
		return nil, err
	}
	positions := seq.StagePositions
	if positions == nil {
		positions = []models.Position{}
	}
	return &SequenceDetail{
		Path:      path,
		Name:      seq.Name(),
		Summary:   seq.Summary(),
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Channels:  nonNilSlice(seq.ChannelNames()),
		Frames:    seq.TotalFrames(),
		Positions: positions,
		UpdatedAt: time.Now(),
	}, nil
}

func nonNilSlice(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
