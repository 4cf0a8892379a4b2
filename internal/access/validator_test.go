package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

type recordingRecorder struct {
	records []audit.Record
	fail    bool
}

func (r *recordingRecorder) Log(_ context.Context, record audit.Record) error {
	if r.fail {
		return errors.New("store offline")
	}
	r.records = append(r.records, record)
	return nil
}

var (
	businessHour = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	nightHour    = time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
)

func newValidator(t *testing.T, recorder Recorder, opts ...Option) *Validator {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return businessHour })}, opts...)
	v, err := New(recorder, opts...)
	require.NoError(t, err)
	return v
}

func grantedRequest() Request {
	return Request{
		ActorID:               "u1",
		ActorEmail:            "u1@clinic.example",
		ActorRole:             "provider",
		ResourceType:          "patient_records",
		ResourceID:            "p-42",
		AccessReason:          "scheduled visit",
		BusinessJustification: "treating physician",
		MinimumNecessary:      true,
		SourceIP:              "10.0.0.1",
	}
}

func TestValidator_Authorizes(t *testing.T) {
	recorder := &recordingRecorder{}
	v := newValidator(t, recorder)

	decision, err := v.Validate(context.Background(), grantedRequest())
	require.NoError(t, err)
	assert.True(t, decision.Authorized)
	assert.Empty(t, decision.Restrictions)

	require.Len(t, recorder.records, 1, "exactly one audit record per terminal outcome")
	record := recorder.records[0]
	assert.Equal(t, audit.ActionPHIAccessAuthorized, record.Action)
	assert.Equal(t, "u1", record.ActorID)
	assert.True(t, record.ProtectedData)
	assert.Equal(t, "provider", record.Details["role"])
}

func TestValidator_DenialPipeline(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		reason string
	}{
		{
			name:   "missing minimum necessary attestation",
			mutate: func(r *Request) { r.MinimumNecessary = false },
			reason: ReasonMinimumNecessaryViolation,
		},
		{
			name:   "sensitive resource without justification",
			mutate: func(r *Request) { r.BusinessJustification = "" },
			reason: ReasonMissingJustification,
		},
		{
			name: "role not permitted",
			mutate: func(r *Request) {
				r.ActorRole = "billing"
				r.ResourceType = "lab_results"
			},
			reason: ReasonInsufficientPermissions,
		},
		{
			name:   "unknown role",
			mutate: func(r *Request) { r.ActorRole = "janitor" },
			reason: ReasonInsufficientPermissions,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &recordingRecorder{}
			v := newValidator(t, recorder)

			req := grantedRequest()
			req.ResourceType = "appointments" // non-sensitive baseline
			req.BusinessJustification = ""
			tt.mutate(&req)

			decision, err := v.Validate(context.Background(), req)
			require.NoError(t, err, "denial is a terminal state, not an error")
			assert.False(t, decision.Authorized)
			assert.Equal(t, tt.reason, decision.Reason)
			assert.NotEmpty(t, decision.Message)

			require.Len(t, recorder.records, 1)
			assert.Equal(t, audit.ActionPHIAccessViolation, recorder.records[0].Action)
			assert.Equal(t, tt.reason, recorder.records[0].Details["violation"])
		})
	}
}

// A medical assistant requesting patient records after hours with no
// justification is denied for the missing justification: the ordered pipeline
// reaches the justification check before any time-of-day handling.
func TestValidator_AfterHoursUnjustifiedSensitiveRequest(t *testing.T) {
	recorder := &recordingRecorder{}
	v := newValidator(t, recorder, WithClock(func() time.Time { return nightHour }))

	decision, err := v.Validate(context.Background(), Request{
		ActorID:          "u9",
		ActorRole:        "medical_assistant",
		ResourceType:     "patient_records",
		AccessReason:     "chart review",
		MinimumNecessary: true,
	})
	require.NoError(t, err)
	assert.False(t, decision.Authorized)
	assert.Equal(t, ReasonMissingJustification, decision.Reason)
}

func TestValidator_TimeRestrictedRoleAnnotatedAfterHours(t *testing.T) {
	recorder := &recordingRecorder{}
	v := newValidator(t, recorder, WithClock(func() time.Time { return nightHour }))

	req := grantedRequest()
	req.ActorRole = "medical_assistant"
	req.ResourceType = "appointments"
	req.BusinessJustification = ""

	decision, err := v.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, decision.Authorized, "after-hours access is annotated, never denied")
	assert.Contains(t, decision.Restrictions, RestrictionAfterHours)
}

func TestValidator_ClinicalRolesExemptFromTimeRestriction(t *testing.T) {
	recorder := &recordingRecorder{}
	v := newValidator(t, recorder, WithClock(func() time.Time { return nightHour }))

	decision, err := v.Validate(context.Background(), grantedRequest())
	require.NoError(t, err)
	assert.True(t, decision.Authorized)
	assert.Empty(t, decision.Restrictions)
}

func TestValidator_EmergencyAccessForcesEnhancedAudit(t *testing.T) {
	for _, reason := range []string{"EMERGENCY admission", "urgent medication review"} {
		recorder := &recordingRecorder{}
		v := newValidator(t, recorder)

		req := grantedRequest()
		req.AccessReason = reason

		decision, err := v.Validate(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, decision.Authorized)
		assert.Contains(t, decision.Restrictions, RestrictionEnhancedAudit)
	}
}

func TestValidator_AdminWildcard(t *testing.T) {
	recorder := &recordingRecorder{}
	v := newValidator(t, recorder)

	req := grantedRequest()
	req.ActorRole = "admin"
	req.ResourceType = "server_settings"
	req.BusinessJustification = ""

	decision, err := v.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, decision.Authorized)
}

func TestValidator_MalformedRequest(t *testing.T) {
	recorder := &recordingRecorder{}
	v := newValidator(t, recorder)

	_, err := v.Validate(context.Background(), Request{ActorID: "u1"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Empty(t, recorder.records, "malformed requests produce no audit record")
}

type staticWatchlist struct {
	flagged map[string]bool
	err     error
}

func (w *staticWatchlist) Flagged(_ context.Context, actorID string) (bool, error) {
	if w.err != nil {
		return false, w.err
	}
	return w.flagged[actorID], nil
}

func TestValidator_WatchlistedActorGetsEnhancedAudit(t *testing.T) {
	recorder := &recordingRecorder{}
	v := newValidator(t, recorder, WithWatchlist(&staticWatchlist{flagged: map[string]bool{"u1": true}}))

	decision, err := v.Validate(context.Background(), grantedRequest())
	require.NoError(t, err)
	assert.True(t, decision.Authorized)
	assert.Contains(t, decision.Restrictions, RestrictionEnhancedAudit)
}

func TestValidator_WatchlistOutageDoesNotBlock(t *testing.T) {
	recorder := &recordingRecorder{}
	v := newValidator(t, recorder, WithWatchlist(&staticWatchlist{err: errors.New("redis down")}))

	decision, err := v.Validate(context.Background(), grantedRequest())
	require.NoError(t, err)
	assert.True(t, decision.Authorized)
}

func TestValidator_RecorderFailureDoesNotBlockDecision(t *testing.T) {
	recorder := &recordingRecorder{fail: true}
	v := newValidator(t, recorder)

	decision, err := v.Validate(context.Background(), grantedRequest())
	require.NoError(t, err, "audit pipeline failures never abort the primary flow")
	assert.True(t, decision.Authorized)
}
