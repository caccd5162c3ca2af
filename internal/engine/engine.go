// Package engine defines the acquisition engine boundary: the stateful
// controller that owns the stage, the channel presets, and the single
// running acquisition. The built-in simulator implements it; glue to a
// real Micro-Manager core would implement the same interface.
package engine

import (
	"context"

	"github.com/varga/lapse/internal/models"
)

// EventType identifies a run lifecycle event.
type EventType string

const (
	EventStarted  EventType = "run.started"
	EventFrame    EventType = "run.frame"
	EventFinished EventType = "run.finished"
	EventCanceled EventType = "run.canceled"
	EventFailed   EventType = "run.failed"
)

// Event is one run lifecycle notification.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id"`
	Frame int       `json:"frame,omitempty"` // 1-based count of acquired frames
	Total int       `json:"total,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Engine drives acquisitions and the stage. At most one acquisition runs
// at a time; Run rejects a second start instead of queueing.
type Engine interface {
	// Run starts acquiring seq asynchronously under the given run id.
	// It returns apperr.ErrAlreadyRunning when a run is active and
	// apperr.ErrNotReady when the hardware is not configured.
	Run(ctx context.Context, runID string, seq *models.Sequence) error
	// Cancel stops the active run. Idle cancel is a no-op.
	Cancel()
	// IsRunning reports whether an acquisition is active.
	IsRunning() bool
	// Ready reports why the engine cannot acquire, or nil.
	Ready() error

	// ChannelPresets lists the configured channel preset names.
	ChannelPresets() []string
	// Exposure returns the current camera exposure in milliseconds.
	Exposure() (float64, error)

	// HasFocusDevice reports whether a focus (z) drive is configured.
	HasFocusDevice() bool
	// XYPosition reports the current stage coordinates.
	XYPosition() (x, y float64, err error)
	// SetXYPosition moves the stage.
	SetXYPosition(x, y float64) error
	// ZPosition reports the focus drive position.
	ZPosition() (float64, error)
	// SetZPosition moves the focus drive.
	SetZPosition(z float64) error

	// Events returns the run event feed.
	Events() *Feed
}
