// Package runservice implements time-lapse launch control: starting an
// acquisition from a saved sequence document or from a single channel
// preset, stopping it, and reporting progress.
package runservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/varga/lapse/internal/apperr"
	"github.com/varga/lapse/internal/engine"
	"github.com/varga/lapse/internal/models"
	"github.com/varga/lapse/internal/storage"
	"github.com/varga/lapse/internal/useq"
)

// Preset-launch defaults: a simple time-lapse of 60 loops, 5 seconds apart,
// with the camera's current exposure (or 20 ms when it cannot be read).
const (
	presetIntervalSeconds = 5.0
	presetLoops           = 60
	fallbackExposureMs    = 20.0
)

// Run describes a launched acquisition.
type Run struct {
	ID     string `json:"id"`
	Source string `json:"source"`           // library path, or empty for preset launches
	Preset string `json:"preset,omitempty"` // preset name for preset launches
	Frames int    `json:"frames"`           // expected total
}

// Status is the current launcher state.
type Status struct {
	Running     bool       `json:"running"`
	RunID       string     `json:"run_id,omitempty"`
	Source      string     `json:"source,omitempty"`
	Preset      string     `json:"preset,omitempty"`
	FramesDone  int        `json:"frames_done"`
	FramesTotal int        `json:"frames_total"`
	Outcome     string     `json:"outcome,omitempty"` // finished | canceled | failed
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

// Service drives the engine from sequence documents and presets and tracks
// run progress through the engine's event feed.
type Service struct {
	store storage.Provider
	eng   engine.Engine

	mu     sync.Mutex
	status Status

	events chan engine.Event
	done   chan struct{}
}

// NewService creates a run service and starts tracking the engine feed.
func NewService(store storage.Provider, eng engine.Engine) *Service {
	s := &Service{
		store:  store,
		eng:    eng,
		events: eng.Events().Subscribe(),
		done:   make(chan struct{}),
	}
	go s.track()
	return s
}

// Close stops progress tracking. The engine outlives the service; an
// active run keeps going.
func (s *Service) Close() {
	s.eng.Events().Unsubscribe(s.events)
	<-s.done
}

// track consumes engine events and keeps the status current.
func (s *Service) track() {
	defer close(s.done)
	for ev := range s.events {
		s.mu.Lock()
		switch ev.Type {
		case engine.EventStarted:
			s.status.Running = true
			s.status.RunID = ev.RunID
			s.status.FramesDone = 0
			s.status.FramesTotal = ev.Total
			s.status.Outcome = ""
			s.status.Error = ""
		case engine.EventFrame:
			if ev.RunID == s.status.RunID {
				s.status.FramesDone = ev.Frame
			}
		case engine.EventFinished, engine.EventCanceled, engine.EventFailed:
			if ev.RunID == s.status.RunID {
				s.status.Running = false
				s.status.FramesDone = ev.Frame
				switch ev.Type {
				case engine.EventFinished:
					s.status.Outcome = "finished"
				case engine.EventCanceled:
					s.status.Outcome = "canceled"
				default:
					s.status.Outcome = "failed"
					s.status.Error = ev.Error
				}
			}
		}
		s.mu.Unlock()
	}
}

// StartFromFile launches the sequence stored at path in the library.
func (s *Service) StartFromFile(ctx context.Context, path string) (*Run, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	seq, err := useq.Decode(data, useq.FormatForPath(path))
	if err != nil {
		return nil, err
	}
	run := &Run{ID: uuid.NewString(), Source: path, Frames: seq.TotalFrames()}
	if err := s.launch(ctx, run, seq); err != nil {
		return nil, err
	}
	return run, nil
}

// StartFromPreset launches a simple single-channel time-lapse built from
// the named channel preset.
func (s *Service) StartFromPreset(ctx context.Context, preset string) (*Run, error) {
	if !s.hasPreset(preset) {
		return nil, fmt.Errorf("%w: channel preset %q", apperr.ErrNotFound, preset)
	}
	exposure, err := s.eng.Exposure()
	if err != nil || exposure <= 0 {
		exposure = fallbackExposureMs
	}
	seq := BuildPresetSequence(preset, exposure)
	run := &Run{ID: uuid.NewString(), Preset: preset, Frames: seq.TotalFrames()}
	if err := s.launch(ctx, run, seq); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Service) launch(ctx context.Context, run *Run, seq *models.Sequence) error {
	if err := s.eng.Run(ctx, run.ID, seq); err != nil {
		return err
	}
	now := time.Now()
	s.mu.Lock()
	if s.status.RunID == run.ID {
		// track already saw this run's events; keep its progress and only
		// fill in the launch metadata.
		s.status.Source = run.Source
		s.status.Preset = run.Preset
		s.status.StartedAt = &now
	} else {
		s.status = Status{
			Running:     true,
			RunID:       run.ID,
			Source:      run.Source,
			Preset:      run.Preset,
			FramesTotal: run.Frames,
			StartedAt:   &now,
		}
	}
	s.mu.Unlock()
	return nil
}

// Stop cancels the active run. Stopping an idle launcher is a no-op.
func (s *Service) Stop() error {
	if !s.eng.IsRunning() {
		return nil
	}
	s.eng.Cancel()
	return nil
}

// Status returns the current launcher state. The engine is authoritative
// for the running flag; frame counts come from the event feed.
func (s *Service) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	st.Running = s.eng.IsRunning()
	return st
}

// Presets lists the channel presets the engine offers.
func (s *Service) Presets() []string {
	return s.eng.ChannelPresets()
}

func (s *Service) hasPreset(name string) bool {
	for _, p := range s.eng.ChannelPresets() {
		if p == name {
			return true
		}
	}
	return false
}

// BuildPresetSequence synthesizes the single-channel time-lapse used by
// preset launches.
func BuildPresetSequence(preset string, exposureMs float64) *models.Sequence {
	return &models.Sequence{
		TimePlan: &models.TimePlan{Interval: presetIntervalSeconds, Loops: presetLoops},
		Channels: []models.Channel{{
			Config:   preset,
			Group:    models.DefaultChannelGroup,
			Exposure: &exposureMs,
		}},
	}
}
