package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/varga/lapse/internal/apperr"
	"github.com/varga/lapse/internal/models"
)

// SimOption is a functional option for configuring the simulator.
type SimOption func(*Sim)

// WithPresets sets the available channel presets.
func WithPresets(presets []string) SimOption {
	return func(s *Sim) { s.presets = presets }
}

// WithExposure sets the camera exposure in milliseconds.
func WithExposure(ms float64) SimOption {
	return func(s *Sim) { s.exposure = ms }
}

// WithTimeScale scales time-plan intervals during a run. Tests use 0 to
// run sequences without waiting.
func WithTimeScale(scale float64) SimOption {
	return func(s *Sim) { s.timeScale = scale }
}

// WithoutFocusDevice simulates a rig with no focus drive.
func WithoutFocusDevice() SimOption {
	return func(s *Sim) { s.focus = false }
}

// WithoutConfiguration simulates an engine with no system configuration
// loaded (only the core device available).
func WithoutConfiguration() SimOption {
	return func(s *Sim) { s.configured = false }
}

// Sim is a simulated acquisition engine: it expands a sequence into frames,
// steps the virtual stage through the position list, and publishes run
// events, without touching hardware.
type Sim struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	x, y, z    float64
	presets    []string
	exposure   float64
	focus      bool
	configured bool
	timeScale  float64

	feed *Feed
}

// NewSim creates a simulator with the given options.
func NewSim(opts ...SimOption) *Sim {
	s := &Sim{
		presets:    []string{"DAPI", "FITC", "TRITC", "Brightfield"},
		exposure:   20.0,
		focus:      true,
		configured: true,
		timeScale:  1.0,
		feed:       NewFeed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the run event feed.
func (s *Sim) Events() *Feed { return s.feed }

// Close stops the event feed. Call after the last run has finished.
func (s *Sim) Close() { s.feed.Close() }

// Ready reports why the engine cannot acquire, or nil.
func (s *Sim) Ready() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyLocked()
}

func (s *Sim) readyLocked() error {
	if !s.configured {
		return fmt.Errorf("%w: no system configuration loaded", apperr.ErrNotReady)
	}
	if !s.focus {
		return fmt.Errorf("%w: no focus drive selected", apperr.ErrNotReady)
	}
	return nil
}

// IsRunning reports whether an acquisition is active.
func (s *Sim) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run starts acquiring seq asynchronously under runID.
func (s *Sim) Run(ctx context.Context, runID string, seq *models.Sequence) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return apperr.ErrAlreadyRunning
	}
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	// The run outlives the request that started it; only Cancel stops it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	go s.acquire(runCtx, runID, seq)
	return nil
}

// Cancel stops the active run. Idle cancel is a no-op.
func (s *Sim) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// acquire is the run loop: one iteration per expanded frame, stage moves on
// position boundaries, interval waits on time-point boundaries.
func (s *Sim) acquire(ctx context.Context, runID string, seq *models.Sequence) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	total := seq.TotalFrames()
	s.feed.Publish(Event{Type: EventStarted, RunID: runID, Total: total})

	loops := 1
	var interval time.Duration
	if seq.TimePlan != nil {
		loops = seq.TimePlan.Loops
		interval = time.Duration(seq.TimePlan.Interval * s.timeScale * float64(time.Second))
	}
	grid := 1
	if seq.GridPlan != nil {
		grid = seq.GridPlan.Rows * seq.GridPlan.Columns
	}
	channels := len(seq.Channels)
	if channels == 0 {
		channels = 1
	}
	planes := 1
	if seq.ZPlan != nil {
		planes = seq.ZPlan.Planes()
	}

	frames := 0
	for t := 0; t < loops; t++ {
		if t > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				s.feed.Publish(Event{Type: EventCanceled, RunID: runID, Frame: frames, Total: total})
				return
			case <-time.After(interval):
			}
		}

		positions := seq.StagePositions
		if len(positions) == 0 {
			// No position list: acquire at the current stage location.
			x, y, _ := s.XYPosition()
			positions = []models.Position{{X: x, Y: y}}
		}

		for _, pos := range positions {
			if err := s.moveTo(pos); err != nil {
				s.feed.Publish(Event{Type: EventFailed, RunID: runID, Frame: frames, Total: total, Error: err.Error()})
				return
			}
			for i := 0; i < grid*channels*planes; i++ {
				if ctx.Err() != nil {
					s.feed.Publish(Event{Type: EventCanceled, RunID: runID, Frame: frames, Total: total})
					return
				}
				frames++
				s.feed.Publish(Event{Type: EventFrame, RunID: runID, Frame: frames, Total: total})
			}
		}
	}

	s.feed.Publish(Event{Type: EventFinished, RunID: runID, Frame: frames, Total: total})
}

func (s *Sim) moveTo(pos models.Position) error {
	if err := s.SetXYPosition(pos.X, pos.Y); err != nil {
		return err
	}
	if pos.Z != nil && s.HasFocusDevice() {
		return s.SetZPosition(*pos.Z)
	}
	return nil
}

// ChannelPresets lists the configured channel preset names.
func (s *Sim) ChannelPresets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.presets))
	copy(out, s.presets)
	return out
}

// Exposure returns the camera exposure in milliseconds.
func (s *Sim) Exposure() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure, nil
}

// HasFocusDevice reports whether a focus drive is configured.
func (s *Sim) HasFocusDevice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// XYPosition reports the current stage coordinates.
func (s *Sim) XYPosition() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y, nil
}

// SetXYPosition moves the virtual stage.
func (s *Sim) SetXYPosition(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x, s.y = x, y
	return nil
}

// ZPosition reports the focus drive position.
func (s *Sim) ZPosition() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.focus {
		return 0, fmt.Errorf("engine: no focus drive")
	}
	return s.z, nil
}

// SetZPosition moves the focus drive.
func (s *Sim) SetZPosition(z float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.focus {
		return fmt.Errorf("engine: no focus drive")
	}
	s.z = z
	return nil
}

var _ Engine = (*Sim)(nil)
