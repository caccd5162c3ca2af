package models

import "time"

// FileMetadata is a lightweight view of a library file returned by list
// operations.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
