package domain

import "errors"

var (
	ErrArticleNotFound  = errors.New("article not found")
	ErrAlreadyProcessed = errors.New("article already processed")
	ErrInvalidLimit     = errors.New("limit must be positive")
	ErrInvalidWindow    = errors.New("window must be at least one hour")
	ErrInvalidURL       = errors.New("invalid article url")
	ErrTooSoon          = errors.New("trigger rejected: minimum interval not elapsed")
	ErrInFlight         = errors.New("trigger rejected: a run is already in flight")
)
