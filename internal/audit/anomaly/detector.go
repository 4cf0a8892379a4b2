// Package anomaly scans the audit trail for suspicious access patterns. The
// heuristics are deliberately simple threshold rules so that every finding is
// explainable to an auditor; the thresholds are configuration, not statistics.
package anomaly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
)

// Reader is the read path into the audit trail, ascending by creation time.
type Reader interface {
	Window(ctx context.Context, start, end time.Time) ([]audit.Record, error)
}

// Flagger is the write side of the actor watchlist. Actors behind findings
// of high or critical severity are flagged so the access validator puts
// their subsequent requests under enhanced audit.
type Flagger interface {
	Flag(ctx context.Context, actorID string) error
}

// Config holds the detection thresholds. A finding fires when a count
// strictly exceeds its threshold.
type Config struct {
	// ExcessiveAccessThreshold is the per-actor record count above which an
	// actor's activity is flagged.
	ExcessiveAccessThreshold int
	// FailedLoginThreshold is the per-IP failed login count above which the
	// IP is flagged as a brute force source.
	FailedLoginThreshold int
	// PHIAccessThreshold is the per-actor protected-data access count above
	// which the actor is flagged.
	PHIAccessThreshold int
	// OffHoursThreshold is the total off-hours record count above which a
	// single aggregate finding fires.
	OffHoursThreshold int
	// OffHoursBefore and OffHoursAfter delimit off-hours: a local hour
	// strictly below OffHoursBefore or strictly above OffHoursAfter.
	OffHoursBefore int
	OffHoursAfter  int
}

func DefaultConfig() Config {
	return Config{
		ExcessiveAccessThreshold: 100,
		FailedLoginThreshold:     5,
		PHIAccessThreshold:       50,
		OffHoursThreshold:        10,
		OffHoursBefore:           6,
		OffHoursAfter:            22,
	}
}

const (
	FindingExcessiveAccess    = "excessive_access"
	FindingBruteForceAttempt  = "brute_force_attempt"
	FindingExcessivePHIAccess = "excessive_phi_access"
	FindingOffHoursAccess     = "off_hours_access"
)

// Finding is one suspicious pattern detected in the window.
type Finding struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Severity    audit.Severity `json:"severity"`
	ActorID     string         `json:"actorId,omitempty"`
	SourceIP    string         `json:"sourceIp,omitempty"`
	Count       int            `json:"count"`
	Timeframe   string         `json:"timeframe"`
}

type Detector struct {
	reader    Reader
	watchlist Flagger
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Detector)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

func WithConfig(cfg Config) Option {
	return func(d *Detector) { d.cfg = cfg }
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithWatchlist makes the detector flag actors behind high-severity findings.
func WithWatchlist(watchlist Flagger) Option {
	return func(d *Detector) { d.watchlist = watchlist }
}

func New(reader Reader, opts ...Option) (*Detector, error) {
	if reader == nil {
		return nil, errors.New("audit reader is required")
	}
	d := &Detector{
		reader: reader,
		cfg:    DefaultConfig(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Detect evaluates every heuristic over records from the trailing window and
// returns the combined findings. The heuristics run in parallel over one
// fetched snapshot; each run is stateless.
func (d *Detector) Detect(ctx context.Context, window time.Duration) ([]Finding, error) {
	end := d.now()
	start := end.Add(-window)
	records, err := d.reader.Window(ctx, start, end)
	if err != nil {
		return nil, err
	}
	timeframe := fmt.Sprintf("last %s", window)

	// One result slot per heuristic keeps the ordering deterministic without
	// a mutex over the combined slice.
	var slots [4][]Finding
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		slots[0] = d.excessiveAccess(records, timeframe)
		return nil
	})
	g.Go(func() error {
		slots[1] = d.bruteForce(records, timeframe)
		return nil
	})
	g.Go(func() error {
		slots[2] = d.excessivePHIAccess(records, timeframe)
		return nil
	})
	g.Go(func() error {
		slots[3] = d.offHours(records, timeframe)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var findings []Finding
	for _, slot := range slots {
		findings = append(findings, slot...)
	}
	d.flagActors(ctx, findings)
	if d.logger != nil {
		d.logger.InfoContext(ctx, "suspicious activity scan complete",
			"records_scanned", len(records),
			"findings", len(findings),
		)
	}
	return findings, nil
}

// flagActors puts the actor behind every high or critical finding on the
// watchlist. Best effort, a watchlist outage never fails the scan.
func (d *Detector) flagActors(ctx context.Context, findings []Finding) {
	if d.watchlist == nil {
		return
	}
	for _, f := range findings {
		if f.ActorID == "" {
			continue
		}
		if f.Severity != audit.SeverityHigh && f.Severity != audit.SeverityCritical {
			continue
		}
		if err := d.watchlist.Flag(ctx, f.ActorID); err != nil && d.logger != nil {
			d.logger.WarnContext(ctx, "failed to flag actor on watchlist",
				"actor_id", f.ActorID,
				"finding", f.Type,
				"error", err,
			)
		}
	}
}

func (d *Detector) excessiveAccess(records []audit.Record, timeframe string) []Finding {
	counts := map[string]int{}
	for _, r := range records {
		if r.ActorID != "" {
			counts[r.ActorID]++
		}
	}

	var findings []Finding
	for _, actor := range sortedKeys(counts) {
		if counts[actor] > d.cfg.ExcessiveAccessThreshold {
			findings = append(findings, Finding{
				Type:        FindingExcessiveAccess,
				Description: fmt.Sprintf("actor performed %d actions in the window", counts[actor]),
				Severity:    audit.SeverityMedium,
				ActorID:     actor,
				Count:       counts[actor],
				Timeframe:   timeframe,
			})
		}
	}
	return findings
}

func (d *Detector) bruteForce(records []audit.Record, timeframe string) []Finding {
	counts := map[string]int{}
	for _, r := range records {
		if strings.Contains(r.Action, "failed_login") && r.SourceIP != "" {
			counts[r.SourceIP]++
		}
	}

	var findings []Finding
	for _, ip := range sortedKeys(counts) {
		if counts[ip] > d.cfg.FailedLoginThreshold {
			findings = append(findings, Finding{
				Type:        FindingBruteForceAttempt,
				Description: fmt.Sprintf("%d failed logins from a single source address", counts[ip]),
				Severity:    audit.SeverityHigh,
				SourceIP:    ip,
				Count:       counts[ip],
				Timeframe:   timeframe,
			})
		}
	}
	return findings
}

func (d *Detector) excessivePHIAccess(records []audit.Record, timeframe string) []Finding {
	counts := map[string]int{}
	for _, r := range records {
		if r.ProtectedData && r.ActorID != "" {
			counts[r.ActorID]++
		}
	}

	var findings []Finding
	for _, actor := range sortedKeys(counts) {
		if counts[actor] > d.cfg.PHIAccessThreshold {
			findings = append(findings, Finding{
				Type:        FindingExcessivePHIAccess,
				Description: fmt.Sprintf("actor accessed protected data %d times in the window", counts[actor]),
				Severity:    audit.SeverityHigh,
				ActorID:     actor,
				Count:       counts[actor],
				Timeframe:   timeframe,
			})
		}
	}
	return findings
}

// offHours reports a single aggregate finding, not one per actor.
func (d *Detector) offHours(records []audit.Record, timeframe string) []Finding {
	total := 0
	for _, r := range records {
		hour := r.CreatedAt.Hour()
		if hour < d.cfg.OffHoursBefore || hour > d.cfg.OffHoursAfter {
			total++
		}
	}
	if total <= d.cfg.OffHoursThreshold {
		return nil
	}
	return []Finding{{
		Type:        FindingOffHoursAccess,
		Description: fmt.Sprintf("%d records created outside normal operating hours", total),
		Severity:    audit.SeverityMedium,
		Count:       total,
		Timeframe:   timeframe,
	}}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
