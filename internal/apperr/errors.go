// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalid marks malformed input: bad JSON documents, failed HTML imports, invalid assets.
	ErrInvalid = errors.New("invalid")
	// ErrBusy is returned when an operation needs an idle editor but a gesture is in progress.
	ErrBusy = errors.New("gesture in progress")
)
