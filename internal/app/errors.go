package service

import "errors"

// Sentinel errors of the service facade.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidSeason = errors.New("invalid season selector")
)
