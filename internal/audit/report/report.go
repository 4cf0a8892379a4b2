// Package report aggregates the audit trail into a scored compliance report.
// Reports are computed fresh from stored records on every request; they are
// never persisted.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
)

const tracerName = "auditd-report"

// EntriesCap bounds the number of raw entries returned with a report; the
// most recent entries are kept. The summary statistics always cover the
// full matched set.
const EntriesCap = 1000

// Reader is the read path into the audit trail, ascending by creation time.
type Reader interface {
	Window(ctx context.Context, start, end time.Time) ([]audit.Record, error)
}

// Recorder receives the audit record for the report generation itself.
type Recorder interface {
	Log(ctx context.Context, record audit.Record) error
}

// ActionCount is one entry of the most-common-actions ranking.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// Summary carries the counting statistics of a report.
type Summary struct {
	TotalEntries      int           `json:"totalEntries"`
	PHIAccessCount    int           `json:"phiAccessCount"`
	UniqueUsers       int           `json:"uniqueUsers"`
	MostCommonActions []ActionCount `json:"mostCommonActions"`
	RiskEvents        int           `json:"riskEvents"`
}

// Metrics carries the scored compliance ratios, each in [0, 100].
type Metrics struct {
	AccessibilityCompliance float64 `json:"accessibilityCompliance"`
	DataIntegrityScore      float64 `json:"dataIntegrityScore"`
	AuditTrailCompleteness  float64 `json:"auditTrailCompleteness"`
}

// Report is one computed compliance report.
type Report struct {
	GeneratedAt       time.Time      `json:"generatedAt"`
	Start             time.Time      `json:"startDate"`
	End               time.Time      `json:"endDate"`
	Summary           Summary        `json:"summary"`
	ComplianceMetrics Metrics        `json:"complianceMetrics"`
	Recommendations   []string       `json:"recommendations,omitempty"`
	Entries           []audit.Record `json:"entries"`
}

type Generator struct {
	reader   Reader
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Generator)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithRecorder makes the generator audit its own runs.
func WithRecorder(recorder Recorder) Option {
	return func(g *Generator) { g.recorder = recorder }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(reader Reader, opts ...Option) (*Generator, error) {
	if reader == nil {
		return nil, errors.New("audit reader is required")
	}
	g := &Generator{
		reader: reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate computes a compliance report over [start, end].
func (g *Generator) Generate(ctx context.Context, start, end time.Time) (Report, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "audit.generate_report")
	defer span.End()

	records, err := g.reader.Window(ctx, start, end)
	if err != nil {
		return Report{}, err
	}
	span.SetAttributes(attribute.Int("audit.records_matched", len(records)))

	metrics := computeMetrics(records)
	rep := Report{
		GeneratedAt:       g.now(),
		Start:             start,
		End:               end,
		Summary:           computeSummary(records),
		ComplianceMetrics: metrics,
		Recommendations:   recommendations(metrics),
		Entries:           capEntries(records),
	}

	if g.recorder != nil {
		// Report runs touch the whole trail, so they are themselves audited.
		// Best effort, a logging failure never fails the report.
		logErr := g.recorder.Log(ctx, audit.Record{
			Action:       audit.ActionGenerateComplianceReport,
			ResourceType: "compliance_reports",
			Details: map[string]any{
				"start_date":    start.Format(time.RFC3339),
				"end_date":      end.Format(time.RFC3339),
				"total_entries": rep.Summary.TotalEntries,
			},
		})
		if logErr != nil && g.logger != nil {
			g.logger.WarnContext(ctx, "failed to audit report generation", "error", logErr)
		}
	}
	return rep, nil
}

func computeSummary(records []audit.Record) Summary {
	summary := Summary{TotalEntries: len(records)}

	users := map[string]struct{}{}
	for _, r := range records {
		if r.ProtectedData {
			summary.PHIAccessCount++
		}
		if r.ActorID != "" {
			users[r.ActorID] = struct{}{}
		}
		if r.IsRiskEvent() {
			summary.RiskEvents++
		}
	}
	summary.UniqueUsers = len(users)
	summary.MostCommonActions = topActions(records, 10)
	return summary
}

// topActions ranks actions by frequency, ties broken by first appearance.
func topActions(records []audit.Record, n int) []ActionCount {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, r := range records {
		if r.Action == "" {
			continue
		}
		if _, ok := counts[r.Action]; !ok {
			firstSeen[r.Action] = i
		}
		counts[r.Action]++
	}

	ranking := make([]ActionCount, 0, len(counts))
	for action, count := range counts {
		ranking = append(ranking, ActionCount{Action: action, Count: count})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return firstSeen[ranking[i].Action] < firstSeen[ranking[j].Action]
	})
	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

func computeMetrics(records []audit.Record) Metrics {
	total := len(records)
	if total == 0 {
		// An empty window has nothing out of compliance.
		return Metrics{
			AccessibilityCompliance: 100,
			DataIntegrityScore:      100,
			AuditTrailCompleteness:  100,
		}
	}

	var (
		accessible       int
		missingActor     int
		missingAction    int
		missingTimestamp int
		fullyAttributed  int
		phiTotal         int
		phiWithReason    int
	)
	for _, r := range records {
		hasCore := r.HasActor() && r.HasAction() && r.HasTimestamp()
		if hasCore {
			accessible++
		}
		if !r.HasActor() {
			missingActor++
		}
		if !r.HasAction() {
			missingAction++
		}
		if !r.HasTimestamp() {
			missingTimestamp++
		}
		if hasCore && r.HasSourceIP() {
			fullyAttributed++
		}
		if r.ProtectedData {
			phiTotal++
			if r.AccessReason != "" {
				phiWithReason++
			}
		}
	}

	ratio := func(n int) float64 { return float64(n) / float64(total) }

	integrity := 100 - 30*ratio(missingActor) - 30*ratio(missingAction) - 40*ratio(missingTimestamp)
	if integrity < 0 {
		integrity = 0
	}

	phiDocumented := 100.0
	if phiTotal > 0 {
		phiDocumented = 100 * float64(phiWithReason) / float64(phiTotal)
	}

	return Metrics{
		AccessibilityCompliance: 100 * ratio(accessible),
		DataIntegrityScore:      integrity,
		AuditTrailCompleteness:  (phiDocumented + 100*ratio(fullyAttributed)) / 2,
	}
}

func recommendations(m Metrics) []string {
	var recs []string
	if m.DataIntegrityScore < 95 {
		recs = append(recs, fmt.Sprintf("Data integrity score is %.1f; review logging call sites for missing required fields", m.DataIntegrityScore))
	}
	if m.AuditTrailCompleteness < 90 {
		recs = append(recs, "Audit trail completeness is below target; require access reasons and network context on all requests")
	}
	if m.AccessibilityCompliance < 100 {
		recs = append(recs, "Some records cannot be attributed to an actor, action, and time; tighten request middleware")
	}
	return recs
}

// capEntries keeps the newest EntriesCap records; the reader returns the
// window ascending, so the cap drops from the old end.
func capEntries(records []audit.Record) []audit.Record {
	if len(records) > EntriesCap {
		records = records[len(records)-EntriesCap:]
	}
	out := make([]audit.Record, len(records))
	copy(out, records)
	return out
}
