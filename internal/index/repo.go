package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/varga/lapse/internal/models"
)

// SequenceRow represents a row in the sequences table.
type SequenceRow struct {
	Path      string
	Name      string
	Checksum  string
	Channels  []string
	Positions int
	Frames    int
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// UpsertSequence inserts or replaces a sequence row, its FTS entry, and its
// position list within a transaction.
func (db *DB) UpsertSequence(row SequenceRow, positions []models.Position) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	channelsJSON, _ := json.Marshal(row.Channels)
	posNames := make([]string, 0, len(positions))
	for _, p := range positions {
		if p.Name != "" {
			posNames = append(posNames, p.Name)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO sequences (path, name, checksum, channels, posnames, positions, frames, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			checksum   = excluded.checksum,
			channels   = excluded.channels,
			posnames   = excluded.posnames,
			positions  = excluded.positions,
			frames     = excluded.frames,
			updated_at = excluded.updated_at
	`, row.Path, row.Name, row.Checksum, string(channelsJSON), strings.Join(posNames, " "),
		len(positions), row.Frames, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert sequence: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, row.Path, row.Name, strings.Join(row.Channels, " "), strings.Join(posNames, " ")); err != nil {
		return err
	}

	// Replace positions: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM positions WHERE seq_path = ?`, row.Path)
	if len(positions) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO positions (seq_path, idx, name, x, y, z) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare position insert: %w", err)
		}
		defer stmt.Close()
		for i, p := range positions {
			var z any
			if p.Z != nil {
				z = *p.Z
			}
			if _, err := stmt.Exec(row.Path, i, p.Name, p.X, p.Y, z); err != nil {
				return fmt.Errorf("index: insert position: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteSequence removes a sequence, its FTS entry, and its positions.
func (db *DB) DeleteSequence(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM positions WHERE seq_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM sequences WHERE path = ?`, path)

	return tx.Commit()
}

// GetSequence returns the indexed row for a sequence, or nil if not indexed.
func (db *DB) GetSequence(path string) (*SequenceRow, error) {
	var (
		row          SequenceRow
		channelsJSON string
		posCount     int
	)
	err := db.conn.QueryRow(`
		SELECT path, name, checksum, channels, positions, frames, updated_at
		FROM sequences WHERE path = ?
	`, path).Scan(&row.Path, &row.Name, &row.Checksum, &channelsJSON, &posCount, &row.Frames, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get sequence: %w", err)
	}
	_ = json.Unmarshal([]byte(channelsJSON), &row.Channels)
	row.Positions = posCount
	return &row, nil
}

// GetChecksum returns the stored checksum for a sequence, or empty string
// if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM sequences WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

var listSortColumns = map[string]string{
	"":           "updated_at DESC",
	"updated_at": "updated_at DESC",
	"name":       "name COLLATE NOCASE ASC",
	"path":       "path ASC",
}

// ListSequences returns paginated sequence rows, optionally filtered by
// channel preset name.
func (db *DB) ListSequences(limit, offset int, channel, sort string) ([]SequenceRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	order, ok := listSortColumns[sort]
	if !ok {
		order = listSortColumns[""]
	}

	where := ""
	args := []any{}
	if channel != "" {
		// channels is a JSON array of preset names; match the quoted value.
		where = `WHERE channels LIKE ?`
		args = append(args, `%"`+channel+`"%`)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM sequences `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count sequences: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT path, name, checksum, channels, positions, frames, updated_at
		FROM sequences %s ORDER BY %s LIMIT ? OFFSET ?
	`, where, order)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list sequences: %w", err)
	}
	defer rows.Close()

	var out []SequenceRow
	for rows.Next() {
		var (
			r            SequenceRow
			channelsJSON string
		)
		if err := rows.Scan(&r.Path, &r.Name, &r.Checksum, &channelsJSON, &r.Positions, &r.Frames, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(channelsJSON), &r.Channels)
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Positions returns the indexed position list of a sequence, in order.
func (db *DB) Positions(path string) ([]models.Position, error) {
	rows, err := db.conn.Query(`
		SELECT name, x, y, z FROM positions WHERE seq_path = ? ORDER BY idx
	`, path)
	if err != nil {
		return nil, fmt.Errorf("index: positions: %w", err)
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		var (
			p models.Position
			z sql.NullFloat64
		)
		if err := rows.Scan(&p.Name, &p.X, &p.Y, &z); err != nil {
			return nil, err
		}
		if z.Valid {
			p.SetZ(z.Float64)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed sequence path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM sequences`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns a path -> checksum map for every indexed sequence.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM sequences`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
