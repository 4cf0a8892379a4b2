// Package access decides whether a proposed protected-data access may
// proceed. The decision pipeline runs a fixed ordered set of checks and
// produces exactly one audit record per terminal outcome. Denial is a normal
// terminal state, not an error; an undetermined authorization never defaults
// to allow.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

// Denial reason codes returned to callers.
const (
	ReasonMinimumNecessaryViolation = "minimum_necessary_violation"
	ReasonMissingJustification      = "missing_justification"
	ReasonInsufficientPermissions   = "insufficient_permissions"
)

// Restriction annotations attached to authorized requests.
const (
	RestrictionAfterHours    = "after_hours_access_flagged"
	RestrictionEnhancedAudit = "enhanced_audit"
)

// Request is one proposed access, carried from the caller's middleware.
type Request struct {
	ActorID               string
	ActorEmail            string
	ActorRole             string
	ResourceType          string
	ResourceID            string
	AccessReason          string
	BusinessJustification string
	// MinimumNecessary attests that the request is limited to the least
	// data needed for the stated purpose.
	MinimumNecessary bool
	SourceIP         string
	UserAgent        string
}

// Decision is the terminal outcome of one request.
type Decision struct {
	Authorized   bool     `json:"authorized"`
	Reason       string   `json:"reason,omitempty"`
	Message      string   `json:"message,omitempty"`
	Restrictions []string `json:"restrictions,omitempty"`
}

// Recorder receives the audit record for each terminal outcome.
type Recorder interface {
	Log(ctx context.Context, record audit.Record) error
}

// Watchlist reports whether an actor is currently flagged for enhanced
// auditing, typically by an earlier anomaly finding.
type Watchlist interface {
	Flagged(ctx context.Context, actorID string) (bool, error)
}

type Validator struct {
	cfg       Config
	recorder  Recorder
	watchlist Watchlist
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Validator)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

func WithConfig(cfg Config) Option {
	return func(v *Validator) { v.cfg = cfg }
}

// WithWatchlist wires the flagged-actor lookup into the decision pipeline.
func WithWatchlist(watchlist Watchlist) Option {
	return func(v *Validator) { v.watchlist = watchlist }
}

func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New constructs a Validator. The recorder is required: an access decision
// that cannot be audited must not be made.
func New(recorder Recorder, opts ...Option) (*Validator, error) {
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	v := &Validator{
		cfg:      DefaultConfig(),
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate runs the decision pipeline. The checks run in a fixed order and
// the first failing check is the denial reason; later checks only annotate.
func (v *Validator) Validate(ctx context.Context, req Request) (Decision, error) {
	if req.ActorRole == "" || req.ResourceType == "" {
		return Decision{}, dErrors.New(dErrors.CodeValidation, "actor role and resource type are required")
	}

	if !req.MinimumNecessary {
		return v.deny(ctx, req, ReasonMinimumNecessaryViolation,
			"request does not attest minimum-necessary access"), nil
	}

	if v.cfg.isSensitive(req.ResourceType) && req.BusinessJustification == "" {
		return v.deny(ctx, req, ReasonMissingJustification,
			fmt.Sprintf("access to %s requires a business justification", req.ResourceType)), nil
	}

	if !v.cfg.roleCanAccess(req.ActorRole, req.ResourceType) {
		return v.deny(ctx, req, ReasonInsufficientPermissions,
			fmt.Sprintf("role %s is not permitted to access %s", req.ActorRole, req.ResourceType)), nil
	}

	var restrictions []string
	if v.cfg.isTimeRestricted(req.ActorRole) {
		hour := v.now().Hour()
		if hour < v.cfg.BusinessHoursStart || hour >= v.cfg.BusinessHoursEnd {
			restrictions = append(restrictions, RestrictionAfterHours)
		}
	}

	reason := strings.ToLower(req.AccessReason)
	if strings.Contains(reason, "emergency") || strings.Contains(reason, "urgent") {
		restrictions = append(restrictions, RestrictionEnhancedAudit)
	}

	if v.watchlist != nil {
		flagged, err := v.watchlist.Flagged(ctx, req.ActorID)
		if err != nil {
			// The watchlist is advisory; its outage must not block care.
			if v.logger != nil {
				v.logger.WarnContext(ctx, "watchlist lookup failed", "actor_id", req.ActorID, "error", err)
			}
		} else if flagged && !contains(restrictions, RestrictionEnhancedAudit) {
			restrictions = append(restrictions, RestrictionEnhancedAudit)
		}
	}

	decision := Decision{Authorized: true, Restrictions: restrictions}
	v.record(ctx, req, audit.Record{
		Action:       audit.ActionPHIAccessAuthorized,
		AccessReason: req.AccessReason,
		Details: map[string]any{
			"role":          req.ActorRole,
			"justification": req.BusinessJustification,
			"restrictions":  restrictions,
		},
	})
	return decision, nil
}

func (v *Validator) deny(ctx context.Context, req Request, reason, message string) Decision {
	v.record(ctx, req, audit.Record{
		Action:       audit.ActionPHIAccessViolation,
		AccessReason: req.AccessReason,
		ErrorMessage: message,
		Details: map[string]any{
			"role":      req.ActorRole,
			"violation": reason,
		},
	})
	return Decision{Authorized: false, Reason: reason, Message: message}
}

// record fills the shared request context into the audit record and writes
// it. Logging is best effort from the caller's perspective.
func (v *Validator) record(ctx context.Context, req Request, record audit.Record) {
	record.ActorID = req.ActorID
	record.ActorEmail = req.ActorEmail
	record.ResourceType = req.ResourceType
	record.ResourceID = req.ResourceID
	record.SourceIP = req.SourceIP
	record.UserAgent = req.UserAgent
	record.ProtectedData = true
	if err := v.recorder.Log(ctx, record); err != nil && v.logger != nil {
		v.logger.ErrorContext(ctx, "failed to audit access decision",
			"action", record.Action,
			"actor_id", req.ActorID,
			"error", err,
		)
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
