package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/varga/lapse/internal/apperr"
)

// StartRun handles POST /api/run.
//
//	@Summary		Start a time-lapse acquisition
//	@Description	Launches either a saved sequence document (path) or a
//	@Description	synthesized single-channel time-lapse (preset).
//	@Tags			run
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StartRunRequest	true	"Launch source"
//	@Success		202		{object}	RunResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/run [post]
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if (req.Path == "") == (req.Preset == "") {
		writeJSON(w, http.StatusBadRequest, errorBody("exactly one of 'path' or 'preset' is required"))
		return
	}

	var (
		run any
		err error
	)
	if req.Path != "" {
		run, err = h.run.StartFromFile(r.Context(), req.Path)
	} else {
		run, err = h.run.StartFromPreset(r.Context(), req.Preset)
	}
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrAlreadyRunning):
			writeJSON(w, http.StatusConflict, errorBody("an acquisition is already running"))
		case errors.Is(err, apperr.ErrNotReady):
			writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		case isBadDocument(err):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("start run failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

// StopRun handles DELETE /api/run.
//
//	@Summary		Stop the running acquisition
//	@Description	Stopping when nothing is running is a no-op.
//	@Tags			run
//	@Success		204	"Stop requested"
//	@Security		BearerAuth
//	@Router			/run [delete]
func (h *Handler) StopRun(w http.ResponseWriter, _ *http.Request) {
	if err := h.run.Stop(); err != nil {
		slog.Error("stop run failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunStatus handles GET /api/run.
//
//	@Summary		Report launcher status and frame progress
//	@Tags			run
//	@Produce		json
//	@Success		200	{object}	RunStatusResponse
//	@Security		BearerAuth
//	@Router			/run [get]
func (h *Handler) RunStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.run.Status())
}

// Presets handles GET /api/presets.
//
//	@Summary		List the engine's channel presets
//	@Tags			run
//	@Produce		json
//	@Success		200	{object}	PresetsResponse
//	@Security		BearerAuth
//	@Router			/presets [get]
func (h *Handler) Presets(w http.ResponseWriter, _ *http.Request) {
	presets := h.run.Presets()
	if presets == nil {
		presets = []string{}
	}
	writeJSON(w, http.StatusOK, PresetsResponse{Presets: presets})
}

// Stage handles GET /api/stage.
//
//	@Summary		Report the current stage location
//	@Tags			stage
//	@Produce		json
//	@Success		200	{object}	StageResponse
//	@Security		BearerAuth
//	@Router			/stage [get]
func (h *Handler) Stage(w http.ResponseWriter, _ *http.Request) {
	x, y, err := h.eng.XYPosition()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("cannot read stage position"))
		return
	}
	resp := StageResponse{X: x, Y: y, FocusDevice: h.eng.HasFocusDevice()}
	if resp.FocusDevice {
		if z, zErr := h.eng.ZPosition(); zErr == nil {
			resp.Z = &z
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GoTo handles POST /api/stage/goto.
//
//	@Summary		Move the stage
//	@Description	Either explicit coordinates, or path+index to move to a
//	@Description	position stored in a sequence document ("go to selected").
//	@Tags			stage
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GoToRequest	true	"Target"
//	@Success		200		{object}	StageResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stage/goto [post]
func (h *Handler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req GoToRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var x, y float64
	var z *float64
	switch {
	case req.Path != "" && req.Index != nil:
		list, err := h.seq.ListPositions(r.Context(), req.Path)
		if err != nil {
			writePositionsError(w, req.Path, err)
			return
		}
		if *req.Index < 0 || *req.Index >= len(list.Positions) {
			writeJSON(w, http.StatusNotFound, errorBody("position index out of range"))
			return
		}
		pos := list.Positions[*req.Index]
		x, y, z = pos.X, pos.Y, pos.Z
	case req.X != nil && req.Y != nil:
		x, y, z = *req.X, *req.Y, req.Z
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("either x+y or path+index is required"))
		return
	}

	if err := h.eng.SetXYPosition(x, y); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("cannot move stage"))
		return
	}
	if z != nil && h.eng.HasFocusDevice() {
		// A missing or failed focus move does not fail the XY move.
		_ = h.eng.SetZPosition(*z)
	}
	h.Stage(w, r)
}
