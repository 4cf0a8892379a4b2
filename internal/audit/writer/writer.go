// Package writer buffers audit records in memory and guarantees they reach
// the durable store with bounded loss and bounded staleness. Critical records
// are flushed before Log returns; everything else rides a debounced batch.
package writer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

// Config carries the writer's tuning knobs. Thresholds are injected rather
// than embedded so tests can pin them.
type Config struct {
	// BatchSize is the queue capacity that forces an immediate flush.
	BatchSize int
	// FlushInterval is the debounce delay before a batch flush. The timer
	// resets on every enqueue.
	FlushInterval time.Duration
	// CriticalActions are substrings that classify a record for immediate
	// durable write.
	CriticalActions []string
	// ProtectedResources are substrings of resource types whose access
	// implies protected data when the caller did not set the flag.
	ProtectedResources []string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		CriticalActions: []string{
			"failed_login",
			"security_violation",
			"unauthorized_access",
			"data_breach",
			"system_compromise",
			"admin_access",
			"bulk_phi_access",
		},
		ProtectedResources: []string{
			"patients",
			"patient",
			"authorization",
			"medication_authorization",
		},
	}
}

// Sink receives normalized security-critical records for best-effort fan-out
// (e.g. a SIEM topic). Implementations must not block.
type Sink interface {
	Forward(record audit.Record)
}

// flushState is the writer's small state machine. Transitions happen under mu:
//
//	idle -> pending     on enqueue of a non-critical record
//	pending -> pending  timer reset on further enqueues
//	* -> flushing       on timer fire, capacity breach, critical record, or Flush
//	flushing -> idle    after the store write settles
//
// The pending timer is cancelled whenever a flush starts, so a debounce flush
// and a capacity flush can never race for the same batch.
type flushState int

const (
	stateIdle flushState = iota
	statePending
	stateFlushing
)

// Writer is the audit log writer. Construct one per process at the
// composition root and shut it down on exit; there is no hidden singleton.
type Writer struct {
	store   audit.Store
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	sink    Sink
	now     func() time.Time

	mu     sync.Mutex
	queue  []audit.Record
	state  flushState
	timer  *time.Timer
	closed bool
}

// Option configures the Writer.
type Option func(*Writer)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) { w.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(w *Writer) { w.metrics = m }
}

func WithConfig(cfg Config) Option {
	return func(w *Writer) { w.cfg = cfg }
}

// WithSink adds a best-effort fan-out target for critical records.
func WithSink(sink Sink) Option {
	return func(w *Writer) { w.sink = sink }
}

// WithClock overrides the time source; tests use this to pin derivations.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// New constructs a Writer. The store is required.
func New(store audit.Store, opts ...Option) (*Writer, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	w := &Writer{
		store: store,
		cfg:   DefaultConfig(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.cfg.BatchSize <= 0 {
		return nil, errors.New("batch size must be positive")
	}
	if w.cfg.FlushInterval <= 0 {
		return nil, errors.New("flush interval must be positive")
	}
	return w, nil
}

// Log normalizes the record and either flushes it immediately (critical
// records) or enqueues it for the next batch flush. Failures are returned but
// callers are expected to treat logging as best-effort for their primary flow.
func (w *Writer) Log(ctx context.Context, record audit.Record) error {
	record = w.normalize(record)
	critical := w.isCritical(record)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return dErrors.New(dErrors.CodeInvariantViolation, "audit writer is shut down")
	}
	w.queue = append(w.queue, record)
	if w.metrics != nil {
		w.metrics.IncEnqueued()
		w.metrics.SetQueueDepth(len(w.queue))
	}

	if critical && w.sink != nil {
		w.sink.Forward(record)
	}

	switch {
	case critical:
		// Immediate durable write attempt before Log returns.
		return w.flushLocked(ctx)
	case len(w.queue) >= w.cfg.BatchSize:
		// Capacity flush bounds memory and staleness; cancels the debounce.
		return w.flushLocked(ctx)
	default:
		w.scheduleLocked()
		w.mu.Unlock()
		return nil
	}
}

// Flush synchronously writes any queued records. Flushing an empty queue
// performs no store write.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	return w.flushLocked(ctx)
}

// Shutdown flushes queued records synchronously and stops the writer. After
// Shutdown returns, Log rejects new records.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	err := w.flushLocked(ctx)
	return err
}

// QueueLen reports the number of records awaiting flush.
func (w *Writer) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// flushLocked is the single flush path. It must be entered holding mu and
// releases it before the store call so concurrent Log calls keep enqueueing
// into the fresh queue. The swapped batch is flushed exactly once; on failure
// it is prepended back so delivery stays at-least-once.
func (w *Writer) flushLocked(ctx context.Context) error {
	w.cancelTimerLocked()

	if len(w.queue) == 0 {
		w.state = stateIdle
		w.mu.Unlock()
		return nil
	}

	batch := w.queue
	w.queue = nil
	w.state = stateFlushing
	if w.metrics != nil {
		w.metrics.SetQueueDepth(0)
	}
	w.mu.Unlock()

	err := w.store.AppendBatch(ctx, batch)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		// Requeue ahead of anything enqueued since the swap.
		w.queue = append(batch, w.queue...)
		w.state = stateIdle
		if w.metrics != nil {
			w.metrics.IncFlushFailures()
			w.metrics.SetQueueDepth(len(w.queue))
		}
		if !w.closed && len(w.queue) > 0 {
			w.scheduleLocked()
		}
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "audit flush failed, batch requeued",
				"batch_size", len(batch),
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeStorageFailure, "flush audit batch")
	}

	w.state = stateIdle
	if w.metrics != nil {
		w.metrics.IncFlushedBatches()
		w.metrics.AddFlushedRecords(len(batch))
		w.metrics.SetQueueDepth(len(w.queue))
	}
	if !w.closed && len(w.queue) > 0 {
		// Records arrived during the store call; put them on the clock.
		w.scheduleLocked()
	}
	return nil
}

// scheduleLocked arms or resets the debounce timer. Caller holds mu.
func (w *Writer) scheduleLocked() {
	w.cancelTimerLocked()
	w.state = statePending
	w.timer = time.AfterFunc(w.cfg.FlushInterval, func() {
		if err := w.Flush(context.Background()); err != nil && w.logger != nil {
			w.logger.Error("scheduled audit flush failed", "error", err)
		}
	})
}

func (w *Writer) cancelTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// normalize assigns defaulted and derived fields. CreatedAt is set exactly
// once, at enqueue time.
func (w *Writer) normalize(record audit.Record) audit.Record {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = w.now()
	}
	if record.SessionID == "" {
		record.SessionID = uuid.NewString()
	}
	if !record.ProtectedData {
		record.ProtectedData = w.derivesProtectedData(record)
	}
	if record.ComplianceNote == "" {
		record.ComplianceNote = complianceNote(record)
	}
	if record.RiskLevel == "" {
		record.RiskLevel = w.assessRisk(record)
	}
	return record
}

func (w *Writer) isCritical(record audit.Record) bool {
	for _, action := range w.cfg.CriticalActions {
		if strings.Contains(record.Action, action) {
			return true
		}
	}
	return record.ProtectedData || record.HasError()
}

func (w *Writer) derivesProtectedData(record audit.Record) bool {
	resource := strings.ToLower(record.ResourceType)
	for _, name := range w.cfg.ProtectedResources {
		if strings.Contains(resource, name) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(record.Action), "patient")
}

func complianceNote(record audit.Record) string {
	switch {
	case record.ProtectedData:
		return "PHI access logged for HIPAA compliance monitoring"
	case strings.Contains(record.Action, "admin"):
		return "Administrative action logged for security audit"
	default:
		return "System action logged for operational audit trail"
	}
}

// assessRisk derives a coarse risk grade for triage. Not a criticality
// decision; that is isCritical.
func (w *Writer) assessRisk(record audit.Record) audit.RiskLevel {
	risk := audit.RiskLow

	raise := func(to audit.RiskLevel) {
		if rank(to) > rank(risk) {
			risk = to
		}
	}

	if strings.Contains(record.Action, "delete") || strings.Contains(record.Action, "export") {
		raise(audit.RiskHigh)
	}
	if record.ProtectedData {
		if risk == audit.RiskLow {
			raise(audit.RiskMedium)
		} else {
			raise(audit.RiskHigh)
		}
	}
	if record.HasError() {
		raise(audit.RiskHigh)
	}
	if strings.Contains(record.Action, "breach") || strings.Contains(record.Action, "compromise") {
		raise(audit.RiskCritical)
	}
	if hour := record.CreatedAt.Hour(); hour < 6 || hour > 22 {
		if risk == audit.RiskLow {
			raise(audit.RiskMedium)
		}
	}
	return risk
}

func rank(r audit.RiskLevel) int {
	switch r {
	case audit.RiskLow:
		return 0
	case audit.RiskMedium:
		return 1
	case audit.RiskHigh:
		return 2
	case audit.RiskCritical:
		return 3
	}
	return 0
}
