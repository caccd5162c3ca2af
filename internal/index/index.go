package index

import "github.com/varga/lapse/internal/models"

// SequenceIndex defines the interface for sequence indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type SequenceIndex interface {
	UpsertSequence(row SequenceRow, positions []models.Position) error
	DeleteSequence(path string) error
	GetSequence(path string) (*SequenceRow, error)
	GetChecksum(path string) (string, error)
	ListSequences(limit, offset int, channel, sort string) ([]SequenceRow, int, error)
	Positions(path string) ([]models.Position, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies SequenceIndex at compile time.
var _ SequenceIndex = (*DB)(nil)
