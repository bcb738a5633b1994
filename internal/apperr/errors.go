// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid input")
	ErrReadOnly      = errors.New("read-only")
	ErrSyncMode      = errors.New("mask follows global config")
	ErrUnsupported   = errors.New("unsupported")
)
