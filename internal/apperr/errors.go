package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrBadInput       = errors.New("invalid input")
	ErrAlreadyRunning = errors.New("acquisition already running")
	ErrNotReady       = errors.New("engine not ready")
)
