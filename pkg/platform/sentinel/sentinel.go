package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Catalog sources return these
// (optionally wrapped) so callers can translate them into domain errors.
//
// - ErrNotFound: no such catalog version is stored
// - ErrConflict: a catalog version is already published and is immutable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
