package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull = errors.New("attendance check queue is full")
)
