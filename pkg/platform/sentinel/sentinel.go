package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and broker clients return
// these (optionally wrapped) so services can translate them into domain
// errors or tolerate them as advisory outages.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record or key does not exist in the store
// - ErrUnavailable: store, cache, or broker temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
