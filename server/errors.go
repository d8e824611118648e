package server

import "errors"

var (
	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrPingerRequired is returned when a readiness check is not provided.
	ErrPingerRequired = errors.New("store pinger required")
)
