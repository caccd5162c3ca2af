package index

import (
	"log/slog"
	"time"

	"github.com/varga/lapse/internal/checksum"
	"github.com/varga/lapse/internal/storage"
	"github.com/varga/lapse/internal/useq"
)

// Sync walks the library and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteSequence(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile decodes a sequence document and upserts it into the DB.
// Documents that fail to decode are not indexed.
func indexFile(db *DB, path string, data []byte) error {
	seq, err := useq.Decode(data, useq.FormatForPath(path))
	if err != nil {
		return err
	}
	return db.UpsertSequence(SequenceRow{
		Path:      path,
		Name:      seq.Name(),
		Checksum:  checksum.Sum(data),
		Channels:  seq.ChannelNames(),
		Frames:    seq.TotalFrames(),
		UpdatedAt: time.Now(),
	}, seq.StagePositions)
}
