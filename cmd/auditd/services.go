package main

import (
	"context"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/audit/query"
	"github.com/acganger/ganger-platform-sub002/internal/audit/writer"
)

// auditService pairs the buffered writer with the query engine behind the
// single interface the transport layer consumes.
type auditService struct {
	writer *writer.Writer
	query  *query.Service
}

func (s *auditService) Log(ctx context.Context, record audit.Record) error {
	return s.writer.Log(ctx, record)
}

func (s *auditService) Search(ctx context.Context, criteria audit.Criteria) ([]audit.Record, error) {
	return s.query.Search(ctx, criteria)
}
