package anomaly

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/audit/query"
	"github.com/acganger/ganger-platform-sub002/internal/audit/store/memory"
)

var scanTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newDetector(t *testing.T, store *memory.Store, opts ...Option) *Detector {
	t.Helper()
	reader, err := query.New(store)
	require.NoError(t, err)
	opts = append(opts, WithClock(func() time.Time { return scanTime }))
	d, err := New(reader, opts...)
	require.NoError(t, err)
	return d
}

func seedN(t *testing.T, store *memory.Store, n int, template audit.Record) {
	t.Helper()
	records := make([]audit.Record, n)
	for i := range records {
		r := template
		r.CreatedAt = scanTime.Add(-time.Duration(i+1) * time.Minute)
		records[i] = r
	}
	require.NoError(t, store.AppendBatch(context.Background(), records))
}

func findingsOfType(findings []Finding, findingType string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Type == findingType {
			out = append(out, f)
		}
	}
	return out
}

func TestDetector_QuietTrail(t *testing.T) {
	store := memory.New()
	seedN(t, store, 10, audit.Record{Action: "view_schedule", ActorID: "u1"})

	findings, err := newDetector(t, store).Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestDetector_ExcessiveAccess(t *testing.T) {
	store := memory.New()
	seedN(t, store, 101, audit.Record{Action: "view_schedule", ActorID: "u1"})
	seedN(t, store, 100, audit.Record{Action: "view_schedule", ActorID: "u2"})

	findings, err := newDetector(t, store).Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	matched := findingsOfType(findings, FindingExcessiveAccess)
	require.Len(t, matched, 1, "threshold is strictly greater than")
	assert.Equal(t, "u1", matched[0].ActorID)
	assert.Equal(t, 101, matched[0].Count)
	assert.Equal(t, audit.SeverityMedium, matched[0].Severity)
}

func TestDetector_BruteForce(t *testing.T) {
	store := memory.New()
	seedN(t, store, 6, audit.Record{Action: "failed_login", SourceIP: "10.0.0.5"})
	seedN(t, store, 5, audit.Record{Action: "failed_login", SourceIP: "10.0.0.6"})
	seedN(t, store, 8, audit.Record{Action: "login", SourceIP: "10.0.0.7"})

	findings, err := newDetector(t, store).Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	matched := findingsOfType(findings, FindingBruteForceAttempt)
	require.Len(t, matched, 1)
	assert.Equal(t, "10.0.0.5", matched[0].SourceIP)
	assert.Equal(t, 6, matched[0].Count)
	assert.Equal(t, audit.SeverityHigh, matched[0].Severity)
}

func TestDetector_ExcessivePHIAccess(t *testing.T) {
	store := memory.New()
	seedN(t, store, 51, audit.Record{Action: "view_patient", ActorID: "u1", ProtectedData: true})
	seedN(t, store, 51, audit.Record{Action: "view_schedule", ActorID: "u2"})

	findings, err := newDetector(t, store).Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	matched := findingsOfType(findings, FindingExcessivePHIAccess)
	require.Len(t, matched, 1)
	assert.Equal(t, "u1", matched[0].ActorID)
	assert.Equal(t, 51, matched[0].Count)
}

func TestDetector_OffHoursAggregate(t *testing.T) {
	store := memory.New()
	night := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	records := make([]audit.Record, 11)
	for i := range records {
		records[i] = audit.Record{
			Action:    "view_schedule",
			ActorID:   fmt.Sprintf("u%d", i),
			CreatedAt: night.Add(time.Duration(i) * time.Minute),
		}
	}
	require.NoError(t, store.AppendBatch(context.Background(), records))

	findings, err := newDetector(t, store).Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	matched := findingsOfType(findings, FindingOffHoursAccess)
	require.Len(t, matched, 1, "off-hours reports one aggregate finding, never per actor")
	assert.Empty(t, matched[0].ActorID)
	assert.Equal(t, 11, matched[0].Count)
}

func TestDetector_WindowExcludesOlderRecords(t *testing.T) {
	store := memory.New()
	old := make([]audit.Record, 7)
	for i := range old {
		old[i] = audit.Record{
			Action:    "failed_login",
			SourceIP:  "10.0.0.5",
			CreatedAt: scanTime.Add(-48 * time.Hour),
		}
	}
	require.NoError(t, store.AppendBatch(context.Background(), old))

	findings, err := newDetector(t, store).Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestDetector_ConfigurableThresholds(t *testing.T) {
	store := memory.New()
	seedN(t, store, 3, audit.Record{Action: "view_schedule", ActorID: "u1"})

	d := newDetector(t, store, WithConfig(Config{
		ExcessiveAccessThreshold: 2,
		FailedLoginThreshold:     5,
		PHIAccessThreshold:       50,
		OffHoursThreshold:        10,
		OffHoursBefore:           6,
		OffHoursAfter:            22,
	}))

	findings, err := d.Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	matched := findingsOfType(findings, FindingExcessiveAccess)
	require.Len(t, matched, 1)
	assert.Equal(t, 3, matched[0].Count)
}

type captureFlagger struct {
	flagged []string
	err     error
}

func (f *captureFlagger) Flag(_ context.Context, actorID string) error {
	if f.err != nil {
		return f.err
	}
	f.flagged = append(f.flagged, actorID)
	return nil
}

func TestDetector_FlagsActorsBehindHighSeverityFindings(t *testing.T) {
	store := memory.New()
	seedN(t, store, 51, audit.Record{Action: "view_chart", ActorID: "u3", ProtectedData: true})
	seedN(t, store, 101, audit.Record{Action: "view_schedule", ActorID: "u1"})

	fl := &captureFlagger{}
	findings, err := newDetector(t, store, WithWatchlist(fl)).Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	require.Len(t, findingsOfType(findings, FindingExcessiveAccess), 1)
	require.Len(t, findingsOfType(findings, FindingExcessivePHIAccess), 1)
	assert.Equal(t, []string{"u3"}, fl.flagged, "medium severity findings do not flag their actor")
}

func TestDetector_WatchlistOutageDoesNotFailScan(t *testing.T) {
	store := memory.New()
	seedN(t, store, 51, audit.Record{Action: "view_chart", ActorID: "u3", ProtectedData: true})

	fl := &captureFlagger{err: errors.New("watchlist unavailable")}
	findings, err := newDetector(t, store, WithWatchlist(fl)).Detect(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, findings)
}
