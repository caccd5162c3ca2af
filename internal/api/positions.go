package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/varga/lapse/internal/apperr"
	"github.com/varga/lapse/internal/models"
)

const maxPointsUpload = 5 << 20 // 5 MB

// queryPath reads the ?path= query parameter identifying the sequence
// document a position operation targets.
func queryPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return "", false
	}
	return path, true
}

// writePositionsError maps position-operation errors to HTTP statuses.
func writePositionsError(w http.ResponseWriter, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrBadInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case isBadDocument(err):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error("positions operation failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListPositions handles GET /api/positions.
//
//	@Summary		List the stage positions of a sequence document
//	@Tags			positions
//	@Produce		json
//	@Param			path	query		string	true	"Sequence path"
//	@Success		200		{object}	PositionList
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/positions [get]
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	list, err := h.seq.ListPositions(r.Context(), path)
	if err != nil {
		writePositionsError(w, path, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ReplacePositions handles PUT /api/positions.
//
//	@Summary		Replace the whole stage position list
//	@Tags			positions
//	@Accept			json
//	@Produce		json
//	@Param			path		query	string					true	"Sequence path"
//	@Param			If-Match	header	string					false	"Document checksum"
//	@Param			body		body	ReplacePositionsRequest	true	"New position list"
//	@Success		200		{object}	PositionList
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/positions [put]
func (h *Handler) ReplacePositions(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	var req ReplacePositionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	list, err := h.seq.ReplacePositions(r.Context(), path, req.Positions, ifMatch(r))
	if err != nil {
		writePositionsError(w, path, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// AddPosition handles POST /api/positions.
//
//	@Summary		Append a stage position
//	@Description	With source "stage" the coordinates are read from the stage
//	@Description	("add current stage position"); otherwise the body supplies them.
//	@Tags			positions
//	@Accept			json
//	@Produce		json
//	@Param			path		query	string			true	"Sequence path"
//	@Param			If-Match	header	string			false	"Document checksum"
//	@Param			body		body	PositionRequest	true	"Position to add"
//	@Success		200		{object}	PositionList
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/positions [post]
func (h *Handler) AddPosition(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var (
		list *PositionList
		err  error
	)
	if req.Source == "stage" {
		list, err = h.seq.AddCurrentPosition(r.Context(), path, req.Name, ifMatch(r))
	} else {
		pos := models.Position{Name: req.Name, X: req.X, Y: req.Y, Z: req.Z}
		list, err = h.seq.AddPosition(r.Context(), path, pos, ifMatch(r))
	}
	if err != nil {
		writePositionsError(w, path, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// UpdatePosition handles PATCH /api/positions/{idx}.
//
//	@Summary		Update one stage position by index
//	@Description	With source "stage" the entry's coordinates are overwritten
//	@Description	from the stage ("update from stage").
//	@Tags			positions
//	@Accept			json
//	@Produce		json
//	@Param			idx			path	int				true	"Position index (0-based)"
//	@Param			path		query	string			true	"Sequence path"
//	@Param			If-Match	header	string			false	"Document checksum"
//	@Param			body		body	PositionRequest	true	"New coordinates"
//	@Success		200		{object}	PositionList
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/positions/{idx} [patch]
func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid position index"))
		return
	}
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var list *PositionList
	if req.Source == "stage" {
		list, err = h.seq.UpdatePositionFromStage(r.Context(), path, idx, ifMatch(r))
	} else {
		pos := models.Position{Name: req.Name, X: req.X, Y: req.Y, Z: req.Z}
		list, err = h.seq.UpdatePosition(r.Context(), path, idx, pos, ifMatch(r))
	}
	if err != nil {
		writePositionsError(w, path, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// RemovePosition handles DELETE /api/positions/{idx}.
//
//	@Summary		Remove one stage position by index
//	@Tags			positions
//	@Produce		json
//	@Param			idx			path	int		true	"Position index (0-based)"
//	@Param			path		query	string	true	"Sequence path"
//	@Param			If-Match	header	string	false	"Document checksum"
//	@Success		200		{object}	PositionList
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/positions/{idx} [delete]
func (h *Handler) RemovePosition(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid position index"))
		return
	}
	list, err := h.seq.RemovePosition(r.Context(), path, idx, ifMatch(r))
	if err != nil {
		writePositionsError(w, path, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ImportPositions handles POST /api/positions/import
// (multipart/form-data, field "file").
//
//	@Summary		Import stage positions from a points file
//	@Description	Accepts CSV rows "name,x,y[,z]" (or "x,y[,z]") and JSON
//	@Description	arrays of positions. Imported points are appended.
//	@Tags			positions
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			path		query		string	true	"Sequence path"
//	@Param			If-Match	header		string	false	"Document checksum"
//	@Param			file		formData	file	true	"Points file (.csv or .json)"
//	@Success		200		{object}	PositionList
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/positions/import [post]
func (h *Handler) ImportPositions(w http.ResponseWriter, r *http.Request) {
	path, ok := queryPath(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxPointsUpload)

	if err := r.ParseMultipartForm(maxPointsUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	format := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	list, err := h.seq.ImportPositions(r.Context(), path, data, format, ifMatch(r))
	if err != nil {
		writePositionsError(w, path, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
