package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/varga/lapse/internal/apperr"
	"github.com/varga/lapse/internal/engine"
	"github.com/varga/lapse/internal/runservice"
	"github.com/varga/lapse/internal/seqservice"
)

// Handler holds API route handlers.
type Handler struct {
	seq *seqservice.Service
	run *runservice.Service
	eng engine.Engine
}

// NewHandler creates a new Handler.
func NewHandler(seq *seqservice.Service, run *runservice.Service, eng engine.Engine) *Handler {
	return &Handler{seq: seq, run: run, eng: eng}
}

// seqPath extracts the sequence path from the URL (everything after
// /api/sequences/). Supports encoded slashes from OpenAPI clients
// (e.g. plates%2Fscan.useq.json).
func seqPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ifMatch reads the optional If-Match header, stripping standard ETag quotes.
func ifMatch(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

// ListSequences handles GET /api/sequences.
//
//	@Summary		List sequence documents with optional pagination and filtering
//	@Tags			sequences
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			channel	query		string	false	"Filter by channel preset"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, name, path)
//	@Success		200		{object}	SequenceListResponse
//	@Security		BearerAuth
//	@Router			/sequences [get]
func (h *Handler) ListSequences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	channel := q.Get("channel")
	sort := q.Get("sort")

	items, total, err := h.seq.List(r.Context(), limit, offset, channel, sort)
	if err != nil {
		slog.Error("list sequences failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sequences": items,
		"total":     total,
	})
}

// GetSequence handles GET /api/sequences/*.
//
//	@Summary		Get a single sequence document by path
//	@Tags			sequences
//	@Produce		json
//	@Param			path	path		string	true	"Sequence path"
//	@Success		200		{object}	SequenceDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sequences/{path} [get]
func (h *Handler) GetSequence(w http.ResponseWriter, r *http.Request) {
	path := seqPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	seq, err := h.seq.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get sequence failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

// CreateSequence handles POST /api/sequences.
//
//	@Summary		Create a new sequence document
//	@Tags			sequences
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSequenceRequest	true	"Document to create"
//	@Success		201		{object}	SequenceDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sequences [post]
func (h *Handler) CreateSequence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateSequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	seq, err := h.seq.Create(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("sequence already exists"))
		case isBadDocument(err):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("create sequence failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, seq)
}

// UpdateSequence handles PUT /api/sequences/*.
//
//	@Summary		Update a sequence document with optimistic concurrency
//	@Tags			sequences
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string					true	"Sequence path"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateSequenceRequest	true	"Updated content"
//	@Success		200		{object}	SequenceDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sequences/{path} [put]
func (h *Handler) UpdateSequence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := seqPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req UpdateSequenceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	seq, err := h.seq.Update(r.Context(), path, []byte(req.Content), ifMatch(r))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		case isBadDocument(err):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("update sequence failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

// DeleteSequence handles DELETE /api/sequences/*.
//
//	@Summary		Delete a sequence document
//	@Tags			sequences
//	@Param			path	path	string	true	"Sequence path"
//	@Success		204		"Sequence deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sequences/{path} [delete]
func (h *Handler) DeleteSequence(w http.ResponseWriter, r *http.Request) {
	path := seqPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.seq.Delete(r.Context(), path); err != nil {
		slog.Error("delete sequence failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Search sequence names, channels, and position names
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.seq.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// isBadDocument reports whether err is a document parse/validation failure
// the client can fix, as opposed to a server fault.
func isBadDocument(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "useq:") || strings.Contains(msg, "not a sequence document")
}
