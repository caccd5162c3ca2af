package seqservice

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/varga/lapse/internal/apperr"
	"github.com/varga/lapse/internal/models"
)

// ImportPositions appends positions parsed from an uploaded points file.
// format is "csv" or "json"; unnamed points get PtN names in import order.
// Malformed points files fail with apperr.ErrBadInput.
func (s *Service) ImportPositions(_ context.Context, path string, data []byte, format, ifMatch string) (*PositionList, error) {
	var (
		points []models.Position
		err    error
	)
	switch strings.ToLower(format) {
	case "csv":
		points, err = parseCSVPoints(data)
	case "json", "":
		points, err = parseJSONPoints(data)
	default:
		return nil, fmt.Errorf("%w: unsupported points format %q", apperr.ErrBadInput, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrBadInput, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: points file contains no positions", apperr.ErrBadInput)
	}

	return s.mutatePositions(path, ifMatch, func(existing []models.Position) ([]models.Position, error) {
		for i, p := range points {
			if p.Name == "" {
				p.Name = fmt.Sprintf("Pt%d", i+1)
			}
			existing = append(existing, p)
		}
		return existing, nil
	})
}

// parseCSVPoints reads rows of the form "name,x,y[,z]" or "x,y[,z]".
// A non-numeric first data row is treated as a header and skipped.
func parseCSVPoints(data []byte) ([]models.Position, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var out []models.Position
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		name := ""
		fields := rec
		if _, convErr := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64); convErr != nil {
			name = strings.TrimSpace(rec[0])
			fields = rec[1:]
		}
		coords, convErr := parseFloats(fields)
		if convErr != nil {
			// Allow one header row at the top.
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("csv row %d: %w", i+1, convErr)
		}
		if len(coords) < 2 {
			return nil, fmt.Errorf("csv row %d: need at least x and y", i+1)
		}
		p := models.Position{Name: name, X: coords[0], Y: coords[1]}
		if len(coords) > 2 {
			p.SetZ(coords[2])
		}
		out = append(out, p)
	}
	return out, nil
}

// parseJSONPoints reads a JSON array of positions, in object or bare
// coordinate-array form.
func parseJSONPoints(data []byte) ([]models.Position, error) {
	var out []models.Position
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse json points: %w", err)
	}
	return out, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}
