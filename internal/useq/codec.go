// Package useq reads and writes acquisition sequence documents in the
// useq-style JSON and YAML file formats.
package useq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/varga/lapse/internal/models"
)

// Format identifies the on-disk encoding of a sequence document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// sequenceSuffixes lists the filename suffixes recognised as sequence
// documents, most specific first.
var sequenceSuffixes = []string{
	".useq.json", ".useq.yaml", ".useq.yml",
	".json", ".yaml", ".yml",
}

// IsSequencePath reports whether path names a sequence document.
func IsSequencePath(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range sequenceSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// FormatForPath picks the encoding from the filename. Unknown suffixes
// default to JSON, matching what exporters emit.
func FormatForPath(path string) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

// Decode parses a sequence document and validates it.
func Decode(data []byte, format Format) (*models.Sequence, error) {
	var seq models.Sequence
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &seq); err != nil {
			return nil, fmt.Errorf("useq: parse yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&seq); err != nil {
			return nil, fmt.Errorf("useq: parse json: %w", err)
		}
	}
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("useq: invalid sequence: %w", err)
	}
	return &seq, nil
}

// Encode serialises a sequence document. JSON output is indented with two
// spaces and ends with a newline, the way exported files look.
func Encode(seq *models.Sequence, format Format) ([]byte, error) {
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("useq: invalid sequence: %w", err)
	}
	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(seq)
		if err != nil {
			return nil, fmt.Errorf("useq: encode yaml: %w", err)
		}
		return out, nil
	default:
		out, err := json.MarshalIndent(seq, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("useq: encode json: %w", err)
		}
		return append(out, '\n'), nil
	}
}
