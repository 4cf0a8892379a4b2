// Package query is the single read path over the durable audit store. Every
// analysis component searches through it with the same criteria contract.
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

const tracerName = "auditd-query"

// MaxLimit caps a single page of results.
const MaxLimit = 1000

// Service executes criteria-based searches against the audit store.
type Service struct {
	store  audit.Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store audit.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search returns matching records, most recent first. An empty result is a
// valid outcome, never an error.
func (s *Service) Search(ctx context.Context, criteria audit.Criteria) ([]audit.Record, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "audit.search")
	defer span.End()

	if err := validateCriteria(criteria); err != nil {
		return nil, err
	}
	criteria = clamp(criteria)

	span.SetAttributes(
		attribute.String("audit.actor_id", criteria.ActorID),
		attribute.String("audit.action", criteria.Action),
		attribute.Int("audit.limit", criteria.Limit),
	)

	records, err := s.store.Search(ctx, criteria)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "audit search failed", "error", err)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeQueryFailed, "search audit records")
	}
	if records == nil {
		records = []audit.Record{}
	}
	return records, nil
}

// Window returns every record in [start, end], ascending by creation time.
// The analysis components use this to walk a range chronologically.
func (s *Service) Window(ctx context.Context, start, end time.Time) ([]audit.Record, error) {
	records, err := s.Search(ctx, audit.Criteria{
		StartDate: start,
		EndDate:   end,
		Limit:     0, // full range, the analyzers aggregate over everything
	})
	if err != nil {
		return nil, err
	}
	// Store order is descending; reverse in place.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func validateCriteria(criteria audit.Criteria) error {
	if !criteria.StartDate.IsZero() && !criteria.EndDate.IsZero() && criteria.EndDate.Before(criteria.StartDate) {
		return dErrors.New(dErrors.CodeValidation, "end date precedes start date")
	}
	if criteria.Limit < 0 {
		return dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	}
	if criteria.Offset < 0 {
		return dErrors.New(dErrors.CodeValidation, "offset must not be negative")
	}
	return nil
}

func clamp(criteria audit.Criteria) audit.Criteria {
	if criteria.Limit > MaxLimit {
		criteria.Limit = MaxLimit
	}
	return criteria
}
