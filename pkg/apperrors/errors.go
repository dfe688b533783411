package apperrors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrAlreadyRunning = errors.New("sync already running")
	ErrNoSuchJob      = errors.New("no sync job for source")
	ErrNoSnapshot     = errors.New("no snapshot available")
	ErrSourceRemoved  = errors.New("source removed mid-sync")
	ErrSyncTimeout    = errors.New("sync exceeded maximum duration")
)
