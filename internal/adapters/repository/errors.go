package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrRecordsNotPersisted = errors.New("disciplinary records not persisted")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrEventsChanged       = errors.New("live events changed since archive")
	ErrClosed              = errors.New("store closed")
)
