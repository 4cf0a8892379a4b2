package audit

import (
	"context"
	"time"
)

// Criteria filters a store search. Zero-valued fields are not applied.
// Results are ordered most-recent-first.
type Criteria struct {
	StartDate     time.Time
	EndDate       time.Time
	ActorID       string
	Action        string
	ResourceType  string
	ProtectedData *bool
	SourceIP      string
	Limit         int
	Offset        int
}

// Store is the durable, append-only sink for audit records. Implementations
// must treat AppendBatch as all-or-nothing so a failed flush can be requeued
// without partial duplication, and must return an empty slice (not an error)
// from Search when nothing matches.
type Store interface {
	AppendBatch(ctx context.Context, records []Record) error
	Search(ctx context.Context, criteria Criteria) ([]Record, error)
}
