package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, clients and publishers
// return these (optionally wrapped) so services and handlers can map them to
// responses without knowing the backend:
// - ErrNotFound: the snapshot or resource does not exist
// - ErrUnavailable: a backend could not be reached or answered with a failure
// - ErrInvalidInput: the caller sent something that cannot be processed
//
// Per-field data problems are never errors; they are reported in the
// reconciliation report.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidInput = errors.New("invalid input")
)
