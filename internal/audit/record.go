// Package audit defines the canonical audit record and the durable store
// contract shared by the writer and every analysis component. Records are
// append-only facts; nothing in this subsystem updates or deletes them.
package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskLevel grades a record for compliance triage. Derived at enqueue time
// from the action kind, the protected-data flag, and the time of day.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Severity grades integrity issues, anomaly findings, and report violations.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Well-known action names emitted by the engine itself. Callers may log any
// action string; these are the ones this subsystem produces.
const (
	ActionEncryptData              = "encrypt_data"
	ActionDecryptData              = "decrypt_data"
	ActionDecryptDataFailed        = "decrypt_data_failed"
	ActionPHIAccessAuthorized      = "phi_access_authorized"
	ActionPHIAccessViolation       = "phi_access_violation"
	ActionDataMinimizationCheck    = "data_minimization_check"
	ActionGenerateComplianceReport = "generate_compliance_report"
)

// Record is one immutable fact about an access or system event. It is created
// once at the moment of the triggering action, normalized by the writer,
// flushed to the durable store, and thereafter read-only.
type Record struct {
	ID            uuid.UUID      `json:"id"`
	Action        string         `json:"action"`
	ActorID       string         `json:"actorId,omitempty"`
	ActorEmail    string         `json:"actorEmail,omitempty"`
	SessionID     string         `json:"sessionId,omitempty"`
	ResourceType  string         `json:"resourceType,omitempty"`
	ResourceID    string         `json:"resourceId,omitempty"`
	BeforeValues  map[string]any `json:"beforeValues,omitempty"`
	AfterValues   map[string]any `json:"afterValues,omitempty"`
	ChangedFields []string       `json:"changedFields,omitempty"`
	SourceIP      string         `json:"sourceIp,omitempty"`
	UserAgent     string         `json:"userAgent,omitempty"`
	RequestPath   string         `json:"requestPath,omitempty"`
	RequestMethod string         `json:"requestMethod,omitempty"`
	AccessReason  string         `json:"accessReason,omitempty"`
	// ProtectedData marks access to fields governed by the minimum-necessary
	// policy. Derived from the resource/action name when not set by the caller.
	ProtectedData  bool           `json:"protectedDataAccessed"`
	ComplianceNote string         `json:"complianceNote,omitempty"`
	RiskLevel      RiskLevel      `json:"riskLevel,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Named accessors used by the scoring functions. Compliance math checks field
// presence; keeping the checks here avoids reflecting over struct fields.

// HasActor reports whether the record identifies its initiating principal.
func (r Record) HasActor() bool { return r.ActorID != "" }

// HasAction reports whether the record names its action.
func (r Record) HasAction() bool { return r.Action != "" }

// HasTimestamp reports whether the record carries its creation time.
func (r Record) HasTimestamp() bool { return !r.CreatedAt.IsZero() }

// HasSourceIP reports whether the record carries network context.
func (r Record) HasSourceIP() bool { return r.SourceIP != "" }

// HasError reports whether the record carries a diagnostic error.
func (r Record) HasError() bool { return r.ErrorMessage != "" }

// IsRiskEvent reports whether the record indicates a failure, denial, or
// violation. Used by the report generator's riskEvents count.
func (r Record) IsRiskEvent() bool {
	if r.HasError() {
		return true
	}
	return strings.Contains(r.Action, "failed") ||
		strings.Contains(r.Action, "denied") ||
		strings.Contains(r.Action, "violation")
}
