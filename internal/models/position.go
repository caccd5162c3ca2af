package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Position is one entry in a sequence's stage_positions list: a named
// stage coordinate. Z is optional because not every rig has a focus drive.
type Position struct {
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	X    float64  `json:"x" yaml:"x"`
	Y    float64  `json:"y" yaml:"y"`
	Z    *float64 `json:"z,omitempty" yaml:"z,omitempty"`
}

// positionDoc mirrors Position for decoding without recursing into the
// custom unmarshalers.
type positionDoc struct {
	Name string   `json:"name" yaml:"name"`
	X    float64  `json:"x" yaml:"x"`
	Y    float64  `json:"y" yaml:"y"`
	Z    *float64 `json:"z" yaml:"z"`
}

// fromCoords builds a Position from a bare coordinate array. Exported
// sequence files sometimes store positions as arrays ordered innermost-axis
// last: [y, x] or [z, y, x].
func fromCoords(coords []float64) (Position, error) {
	var p Position
	switch n := len(coords); {
	case n == 0:
		return p, fmt.Errorf("position: empty coordinate array")
	case n == 1:
		p.X = coords[0]
	case n == 2:
		p.Y, p.X = coords[0], coords[1]
	default:
		z := coords[n-3]
		p.Z = &z
		p.Y = coords[n-2]
		p.X = coords[n-1]
	}
	return p, nil
}

// UnmarshalJSON accepts either the object form {"name":..,"x":..} or a bare
// coordinate array.
func (p *Position) UnmarshalJSON(data []byte) error {
	var doc positionDoc
	if err := json.Unmarshal(data, &doc); err == nil {
		*p = Position(doc)
		return nil
	}
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("position: expected object or coordinate array: %w", err)
	}
	parsed, err := fromCoords(coords)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML sequence files.
func (p *Position) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var coords []float64
		if err := node.Decode(&coords); err != nil {
			return fmt.Errorf("position: decode coordinate array: %w", err)
		}
		parsed, err := fromCoords(coords)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}
	var doc positionDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	*p = Position(doc)
	return nil
}

// SetZ sets the optional focus coordinate.
func (p *Position) SetZ(z float64) {
	p.Z = &z
}

// ClearZ removes the focus coordinate.
func (p *Position) ClearZ() {
	p.Z = nil
}
