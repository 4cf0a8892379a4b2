// Package integrity checks a stored audit trail for continuity and
// completeness: unexplained silent periods, records missing required fields,
// and protected-data access without a documented reason.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
)

// Reader is the read path into the audit trail, ascending by creation time.
type Reader interface {
	Window(ctx context.Context, start, end time.Time) ([]audit.Record, error)
}

// Config lifts the validator's thresholds out of the code so tests can pin
// them. Business hours bound when a silent period counts as suspicious.
type Config struct {
	// GapThreshold is the minimum silent period reported as an issue.
	GapThreshold time.Duration
	// BusinessHoursStart and BusinessHoursEnd delimit the local hours,
	// both inclusive, during which a gap is suspicious. Gaps starting
	// outside the window are normal quiet time.
	BusinessHoursStart int
	BusinessHoursEnd   int
}

func DefaultConfig() Config {
	return Config{
		GapThreshold:       4 * time.Hour,
		BusinessHoursStart: 8,
		BusinessHoursEnd:   18,
	}
}

// Issue is one detected integrity problem.
type Issue struct {
	Type        string         `json:"type"`
	Severity    audit.Severity `json:"severity"`
	Description string         `json:"description"`
	ActorID     string         `json:"actorId,omitempty"`
	ResourceID  string         `json:"resourceId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Resolved    bool           `json:"resolved"`
}

const (
	IssueTimeGap                  = "time_gap"
	IssueMissingRequiredFields    = "missing_required_fields"
	IssueUndocumentedPHIAccess    = "undocumented_phi_access"
	IssueIncompleteIdentification = "incomplete_identification"
)

// Report is the outcome of one validation run. Valid is true iff no issues
// were found.
type Report struct {
	Valid           bool      `json:"valid"`
	Start           time.Time `json:"startDate"`
	End             time.Time `json:"endDate"`
	RecordsChecked  int       `json:"recordsChecked"`
	Issues          []Issue   `json:"issues"`
	Recommendations []string  `json:"recommendations"`
}

type Validator struct {
	reader Reader
	cfg    Config
	logger *slog.Logger
}

type Option func(*Validator)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

func WithConfig(cfg Config) Option {
	return func(v *Validator) { v.cfg = cfg }
}

func New(reader Reader, opts ...Option) (*Validator, error) {
	if reader == nil {
		return nil, errors.New("audit reader is required")
	}
	v := &Validator{
		reader: reader,
		cfg:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate inspects every record in [start, end] and reports integrity
// issues with one recommendation per issue category present.
func (v *Validator) Validate(ctx context.Context, start, end time.Time) (Report, error) {
	records, err := v.reader.Window(ctx, start, end)
	if err != nil {
		return Report{}, err
	}

	issues := v.gapIssues(records)
	issues = append(issues, fieldIssues(records)...)

	report := Report{
		Valid:           len(issues) == 0,
		Start:           start,
		End:             end,
		RecordsChecked:  len(records),
		Issues:          issues,
		Recommendations: recommendations(issues),
	}
	if v.logger != nil {
		v.logger.InfoContext(ctx, "integrity validation complete",
			"records_checked", len(records),
			"issues", len(issues),
			"valid", report.Valid,
		)
	}
	return report, nil
}

// gapIssues walks consecutive pairs and flags silent periods longer than the
// threshold that begin inside business hours.
func (v *Validator) gapIssues(records []audit.Record) []Issue {
	var issues []Issue
	for i := 1; i < len(records); i++ {
		prev, curr := records[i-1], records[i]
		gap := curr.CreatedAt.Sub(prev.CreatedAt)
		if gap <= v.cfg.GapThreshold {
			continue
		}
		hour := prev.CreatedAt.Hour()
		if hour < v.cfg.BusinessHoursStart || hour > v.cfg.BusinessHoursEnd {
			continue
		}
		issues = append(issues, Issue{
			Type:     IssueTimeGap,
			Severity: audit.SeverityMedium,
			Description: fmt.Sprintf("no audit activity for %.1f hours during business hours starting %s",
				gap.Hours(), prev.CreatedAt.Format(time.RFC3339)),
			Timestamp: prev.CreatedAt,
		})
	}
	return issues
}

func fieldIssues(records []audit.Record) []Issue {
	var issues []Issue
	for _, r := range records {
		if !r.HasActor() || !r.HasAction() || !r.HasTimestamp() {
			issues = append(issues, Issue{
				Type:        IssueMissingRequiredFields,
				Severity:    audit.SeverityHigh,
				Description: "record is missing one or more of actor, action, timestamp",
				ActorID:     r.ActorID,
				ResourceID:  r.ResourceID,
				Timestamp:   r.CreatedAt,
			})
		}
		if r.ProtectedData && r.AccessReason == "" {
			issues = append(issues, Issue{
				Type:        IssueUndocumentedPHIAccess,
				Severity:    audit.SeverityHigh,
				Description: "protected data accessed without a documented reason",
				ActorID:     r.ActorID,
				ResourceID:  r.ResourceID,
				Timestamp:   r.CreatedAt,
			})
		}
		if r.ActorID != "" && r.ActorEmail == "" {
			issues = append(issues, Issue{
				Type:        IssueIncompleteIdentification,
				Severity:    audit.SeverityLow,
				Description: "record identifies an actor without an email",
				ActorID:     r.ActorID,
				Timestamp:   r.CreatedAt,
			})
		}
	}
	return issues
}

// recommendations emits one entry per issue category present, independent of
// how many issues the category produced.
func recommendations(issues []Issue) []string {
	seen := map[string]bool{}
	for _, issue := range issues {
		seen[issue.Type] = true
	}

	var recs []string
	if seen[IssueTimeGap] {
		recs = append(recs, "Investigate audit pipeline availability during reported silent periods")
	}
	if seen[IssueMissingRequiredFields] {
		recs = append(recs, "Ensure every logging call site supplies actor, action, and timestamp")
	}
	if seen[IssueUndocumentedPHIAccess] {
		recs = append(recs, "Require an access reason on every protected-data request path")
	}
	if seen[IssueIncompleteIdentification] {
		recs = append(recs, "Propagate actor email alongside actor id in request context")
	}
	return recs
}
