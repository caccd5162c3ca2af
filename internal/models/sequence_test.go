package models

import (
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestSizesAndTotalFrames(t *testing.T) {
	seq := &Sequence{
		Channels: []Channel{{Config: "DAPI"}, {Config: "FITC"}},
		TimePlan: &TimePlan{Interval: 5, Loops: 60},
		StagePositions: []Position{
			{Name: "Pos0", X: 1, Y: 2},
			{Name: "Pos1", X: 3, Y: 4},
		},
	}
	sizes := seq.Sizes()
	if sizes["t"] != 60 || sizes["p"] != 2 || sizes["c"] != 2 || sizes["g"] != 0 || sizes["z"] != 0 {
		t.Errorf("sizes = %v", sizes)
	}
	if got := seq.TotalFrames(); got != 240 {
		t.Errorf("TotalFrames = %d, want 240", got)
	}
}

func TestTotalFramesEmptySequence(t *testing.T) {
	seq := &Sequence{}
	if got := seq.TotalFrames(); got != 1 {
		t.Errorf("TotalFrames = %d, want 1", got)
	}
	if got := seq.Summary(); got != "single image" {
		t.Errorf("Summary = %q", got)
	}
}

func TestTotalFramesWithGridAndZ(t *testing.T) {
	seq := &Sequence{
		Channels: []Channel{{Config: "DAPI"}},
		GridPlan: &GridPlan{Rows: 2, Columns: 3},
		ZPlan:    &ZPlan{Range: 4, Step: 1},
	}
	// 1 channel x 6 grid points x 5 z planes.
	if got := seq.TotalFrames(); got != 30 {
		t.Errorf("TotalFrames = %d, want 30", got)
	}
}

func TestSummary(t *testing.T) {
	seq := &Sequence{
		TimePlan:       &TimePlan{Interval: 5, Loops: 60},
		Channels:       []Channel{{Config: "DAPI"}},
		StagePositions: []Position{{X: 0, Y: 0}, {X: 1, Y: 1}},
	}
	want := "60 time points, 2 positions, 1 channels"
	if got := seq.Summary(); got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}

func TestZPlanPlanes(t *testing.T) {
	cases := []struct {
		z    ZPlan
		want int
	}{
		{ZPlan{Range: 0, Step: 0}, 1},
		{ZPlan{Range: 4, Step: 1}, 5},
		{ZPlan{Range: 4, Step: 0.5}, 9},
		{ZPlan{Range: 1, Step: 2}, 1},
	}
	for _, c := range cases {
		if got := c.z.Planes(); got != c.want {
			t.Errorf("Planes(%+v) = %d, want %d", c.z, got, c.want)
		}
	}
}

func TestNameFromMetadata(t *testing.T) {
	seq := &Sequence{}
	if got := seq.Name(); got != "Acquisition" {
		t.Errorf("default name = %q", got)
	}

	seq.SetName("Experiment 12")
	if got := seq.Name(); got != "Experiment 12" {
		t.Errorf("name = %q", got)
	}

	// SetName must not clobber sibling metadata keys.
	seq.Metadata["operator"] = "vz"
	seq.SetName("Renamed")
	if seq.Metadata["operator"] != "vz" {
		t.Error("sibling metadata key lost")
	}
	if got := seq.Name(); got != "Renamed" {
		t.Errorf("name = %q", got)
	}
}

func TestValidateAxisOrder(t *testing.T) {
	ok := &Sequence{AxisOrder: "tpgcz"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid axis order rejected: %v", err)
	}

	bad := &Sequence{AxisOrder: "tpx"}
	if err := bad.Validate(); err == nil {
		t.Error("unknown axis accepted")
	}

	dup := &Sequence{AxisOrder: "ttc"}
	if err := dup.Validate(); err == nil {
		t.Error("duplicate axis accepted")
	}
}

func TestValidateChannels(t *testing.T) {
	missing := &Sequence{Channels: []Channel{{Config: ""}}}
	if err := missing.Validate(); err == nil {
		t.Error("channel without config accepted")
	}

	negExposure := &Sequence{Channels: []Channel{{Config: "DAPI", Exposure: fptr(-5)}}}
	if err := negExposure.Validate(); err == nil {
		t.Error("negative exposure accepted")
	}
}

func TestValidatePlans(t *testing.T) {
	if err := (&Sequence{TimePlan: &TimePlan{Interval: -1, Loops: 5}}).Validate(); err == nil {
		t.Error("negative interval accepted")
	}
	if err := (&Sequence{TimePlan: &TimePlan{Interval: 1, Loops: 0}}).Validate(); err == nil {
		t.Error("zero loops accepted")
	}
	if err := (&Sequence{ZPlan: &ZPlan{Range: 2, Step: 0}}).Validate(); err == nil {
		t.Error("zero step with range accepted")
	}
	if err := (&Sequence{GridPlan: &GridPlan{Rows: 0, Columns: 2}}).Validate(); err == nil {
		t.Error("zero rows accepted")
	}
	if err := (&Sequence{GridPlan: &GridPlan{Rows: 1, Columns: 1, Overlap: 100}}).Validate(); err == nil {
		t.Error("overlap 100 accepted")
	}
}

func TestChannelNames(t *testing.T) {
	seq := &Sequence{Channels: []Channel{{Config: "DAPI"}, {Config: "FITC"}}}
	names := seq.ChannelNames()
	if len(names) != 2 || names[0] != "DAPI" || names[1] != "FITC" {
		t.Errorf("names = %v", names)
	}
}
