// Package models defines the domain types for lapse: the acquisition
// sequence document and its parts.
package models

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MetadataKey is the metadata map entry under which exporters store
// display metadata such as the acquisition save name.
const MetadataKey = "pymmcore_widgets"

// DefaultChannelGroup is the preset group channels belong to unless the
// document says otherwise.
const DefaultChannelGroup = "Channel"

// Sequence is a multi-dimensional acquisition description: which channels
// to image, how often, over which stage positions, and through which z
// planes. It is the in-memory form of a *.useq.json / *.useq.yaml document.
type Sequence struct {
	AxisOrder      string         `json:"axis_order,omitempty" yaml:"axis_order,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Channels       []Channel      `json:"channels,omitempty" yaml:"channels,omitempty"`
	TimePlan       *TimePlan      `json:"time_plan,omitempty" yaml:"time_plan,omitempty"`
	ZPlan          *ZPlan         `json:"z_plan,omitempty" yaml:"z_plan,omitempty"`
	GridPlan       *GridPlan      `json:"grid_plan,omitempty" yaml:"grid_plan,omitempty"`
	StagePositions []Position     `json:"stage_positions,omitempty" yaml:"stage_positions,omitempty"`
}

// Channel selects a named hardware preset for one imaging channel.
type Channel struct {
	Config   string   `json:"config" yaml:"config"`
	Group    string   `json:"group,omitempty" yaml:"group,omitempty"`
	Exposure *float64 `json:"exposure,omitempty" yaml:"exposure,omitempty"` // milliseconds
}

// Validate checks the channel block.
func (c Channel) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Config, validation.Required),
	); err != nil {
		return err
	}
	if c.Exposure != nil && *c.Exposure <= 0 {
		return fmt.Errorf("channel %q: exposure must be positive", c.Config)
	}
	return nil
}

// TimePlan is a fixed-interval loop: acquire Loops times, Interval seconds
// apart.
type TimePlan struct {
	Interval float64 `json:"interval" yaml:"interval"` // seconds
	Loops    int     `json:"loops" yaml:"loops"`
}

// Validate checks the time plan.
func (t TimePlan) Validate() error {
	if t.Interval < 0 {
		return fmt.Errorf("time plan: interval must not be negative")
	}
	return validation.ValidateStruct(&t,
		validation.Field(&t.Loops, validation.Required, validation.Min(1)),
	)
}

// ZPlan is a symmetric z range around the current focus: Range micrometers
// total, sampled every Step micrometers.
type ZPlan struct {
	Range float64 `json:"range" yaml:"range"`
	Step  float64 `json:"step" yaml:"step"`
}

// Validate checks the z plan.
func (z ZPlan) Validate() error {
	if z.Range < 0 {
		return fmt.Errorf("z plan: range must not be negative")
	}
	if z.Range > 0 && z.Step <= 0 {
		return fmt.Errorf("z plan: step must be positive when range is set")
	}
	return nil
}

// Planes returns the number of z planes the plan expands to.
func (z ZPlan) Planes() int {
	if z.Range <= 0 || z.Step <= 0 {
		return 1
	}
	return int(z.Range/z.Step) + 1
}

// GridPlan tiles each stage position into a rows x columns grid.
type GridPlan struct {
	Rows    int     `json:"rows" yaml:"rows"`
	Columns int     `json:"columns" yaml:"columns"`
	Overlap float64 `json:"overlap,omitempty" yaml:"overlap,omitempty"` // percent
}

// Validate checks the grid plan.
func (g GridPlan) Validate() error {
	if err := validation.ValidateStruct(&g,
		validation.Field(&g.Rows, validation.Required, validation.Min(1)),
		validation.Field(&g.Columns, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	if g.Overlap < 0 || g.Overlap >= 100 {
		return fmt.Errorf("grid plan: overlap must be in [0, 100)")
	}
	return nil
}

// Validate checks the whole document. A sequence with no channels is legal
// (positions-only documents are edited before the channels are chosen).
func (s *Sequence) Validate() error {
	for i, ch := range s.Channels {
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("channels[%d]: %w", i, err)
		}
	}
	if s.TimePlan != nil {
		if err := s.TimePlan.Validate(); err != nil {
			return err
		}
	}
	if s.ZPlan != nil {
		if err := s.ZPlan.Validate(); err != nil {
			return err
		}
	}
	if s.GridPlan != nil {
		if err := s.GridPlan.Validate(); err != nil {
			return err
		}
	}
	if s.AxisOrder != "" {
		seen := map[rune]bool{}
		for _, r := range s.AxisOrder {
			if !strings.ContainsRune("tpgcz", r) {
				return fmt.Errorf("axis_order: unknown axis %q", r)
			}
			if seen[r] {
				return fmt.Errorf("axis_order: duplicate axis %q", r)
			}
			seen[r] = true
		}
	}
	return nil
}

// Name returns the acquisition save name from metadata, or "Acquisition".
func (s *Sequence) Name() string {
	if meta, ok := s.Metadata[MetadataKey].(map[string]any); ok {
		if name, ok := meta["save_name"].(string); ok && name != "" {
			return name
		}
	}
	return "Acquisition"
}

// SetName stores the save name under the exporter metadata key.
func (s *Sequence) SetName(name string) {
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	meta, ok := s.Metadata[MetadataKey].(map[string]any)
	if !ok {
		meta = map[string]any{}
		s.Metadata[MetadataKey] = meta
	}
	meta["save_name"] = name
}

// Sizes returns the per-axis event counts keyed by the canonical axis
// letters t/p/g/c/z. Absent axes have size zero.
func (s *Sequence) Sizes() map[string]int {
	sizes := map[string]int{"t": 0, "p": 0, "g": 0, "c": 0, "z": 0}
	if s.TimePlan != nil {
		sizes["t"] = s.TimePlan.Loops
	}
	sizes["p"] = len(s.StagePositions)
	if s.GridPlan != nil {
		sizes["g"] = s.GridPlan.Rows * s.GridPlan.Columns
	}
	sizes["c"] = len(s.Channels)
	if s.ZPlan != nil && s.ZPlan.Range > 0 {
		sizes["z"] = s.ZPlan.Planes()
	}
	return sizes
}

// TotalFrames is the number of images the sequence expands to: the product
// of all non-zero axis sizes, or 1 for a bare snap.
func (s *Sequence) TotalFrames() int {
	total := 1
	for _, n := range s.Sizes() {
		if n > 0 {
			total *= n
		}
	}
	return total
}

var axisLabels = []struct {
	axis  string
	label string
}{
	{"t", "time points"},
	{"p", "positions"},
	{"g", "grid points"},
	{"c", "channels"},
	{"z", "z planes"},
}

// Summary renders a human-readable size summary, e.g.
// "60 time points, 2 positions, 1 channels". Empty sequences summarize as
// "single image".
func (s *Sequence) Summary() string {
	sizes := s.Sizes()
	var parts []string
	for _, a := range axisLabels {
		if n := sizes[a.axis]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, a.label))
		}
	}
	if len(parts) == 0 {
		return "single image"
	}
	return strings.Join(parts, ", ")
}

// ChannelNames returns the preset name of every channel, in order.
func (s *Sequence) ChannelNames() []string {
	out := make([]string, len(s.Channels))
	for i, c := range s.Channels {
		out[i] = c.Config
	}
	return out
}
