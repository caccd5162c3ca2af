package api

import (
	"github.com/varga/lapse/internal/models"
	"github.com/varga/lapse/internal/runservice"
	"github.com/varga/lapse/internal/seqservice"
)

// CreateSequenceRequest is the request body for creating a sequence document.
type CreateSequenceRequest struct {
	Path    string `json:"path" example:"plates/scan.useq.json" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// UpdateSequenceRequest is the request body for updating a sequence document.
type UpdateSequenceRequest struct {
	Content string `json:"content" validate:"required"`
}

// SequenceDetail is the full sequence response type (aliased from the domain layer).
type SequenceDetail = seqservice.SequenceDetail

// SequenceListItem is a lightweight item in a list response (aliased from the domain layer).
type SequenceListItem = seqservice.SequenceListItem

// PositionList is the positions view of a sequence (aliased from the domain layer).
type PositionList = seqservice.PositionList

// SequenceListResponse wraps paginated sequence listings.
type SequenceListResponse struct {
	Sequences []SequenceListItem `json:"sequences" validate:"required"`
	Total     int                `json:"total" example:"12" validate:"required"`
}

// PositionRequest is the body for add/update position operations. Source
// "stage" reads coordinates from the stage instead of the body.
type PositionRequest struct {
	Source string   `json:"source,omitempty" example:"stage"`
	Name   string   `json:"name,omitempty" example:"Well A1"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Z      *float64 `json:"z,omitempty"`
}

// ReplacePositionsRequest is the body for replacing the whole position list.
type ReplacePositionsRequest struct {
	Positions []models.Position `json:"positions" validate:"required"`
}

// StartRunRequest is the body for launching a time-lapse. Exactly one of
// Path or Preset must be set.
type StartRunRequest struct {
	Path   string `json:"path,omitempty" example:"plates/scan.useq.json"`
	Preset string `json:"preset,omitempty" example:"FITC"`
}

// RunResponse describes a launched run.
type RunResponse = runservice.Run

// RunStatusResponse is the launcher status.
type RunStatusResponse = runservice.Status

// PresetsResponse lists the engine's channel presets.
type PresetsResponse struct {
	Presets []string `json:"presets" validate:"required"`
}

// StageResponse reports the stage location.
type StageResponse struct {
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Z           *float64 `json:"z,omitempty"`
	FocusDevice bool     `json:"focus_device"`
}

// GoToRequest moves the stage, either to explicit coordinates or to a
// position stored in a sequence document.
type GoToRequest struct {
	Path  string   `json:"path,omitempty"`
	Index *int     `json:"index,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Z     *float64 `json:"z,omitempty"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"plates/scan.useq.json" validate:"required"`
	Name    string `json:"name" example:"Overnight scan" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
