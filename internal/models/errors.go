package models

import "errors"

var (
	ErrNotFound     = errors.New("entry not found")
	ErrInvalidKind  = errors.New("operation not valid for this kind of entry")
	ErrWriteFailure = errors.New("failed to write blob")
	ErrDuplicateID  = errors.New("entry with the same id already exists")
)
