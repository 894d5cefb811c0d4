package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, clients and adapters return
// these (optionally wrapped) so services can translate them into domain errors.
//
// They describe the state of a resource, not the validity of a request:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a record with the same key already exists
// - ErrInvalidState: record is in the wrong state for the requested transition
// - ErrUnavailable: backing service or resource is temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
