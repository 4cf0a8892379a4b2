package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

// captureStore records every AppendBatch call so tests can assert on batch
// boundaries, not just totals.
type captureStore struct {
	mu       sync.Mutex
	batches  [][]audit.Record
	failNext bool
}

func (s *captureStore) AppendBatch(_ context.Context, records []audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("store unavailable")
	}
	batch := make([]audit.Record, len(records))
	copy(batch, records)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *captureStore) Search(context.Context, audit.Criteria) ([]audit.Record, error) {
	return nil, nil
}

func (s *captureStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *captureStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func newTestWriter(t *testing.T, store audit.Store, opts ...Option) *Writer {
	t.Helper()
	w, err := New(store, opts...)
	require.NoError(t, err)
	return w
}

func routineRecord() audit.Record {
	return audit.Record{
		Action:       "view_schedule",
		ActorID:      "user-77",
		ResourceType: "appointments",
	}
}

func TestWriter_BatchesUntilCapacity(t *testing.T) {
	store := &captureStore{}
	w := newTestWriter(t, store, WithConfig(Config{
		BatchSize:     100,
		FlushInterval: time.Hour, // keep the debounce out of the way
	}))

	for range 99 {
		require.NoError(t, w.Log(context.Background(), routineRecord()))
	}
	assert.Equal(t, 0, store.batchCount(), "no durable write before capacity")
	assert.Equal(t, 99, w.QueueLen())

	require.NoError(t, w.Log(context.Background(), routineRecord()))

	require.Equal(t, 1, store.batchCount(), "capacity breach flushes exactly one batch")
	assert.Equal(t, 100, store.recordCount())
	assert.Equal(t, 0, w.QueueLen())
}

func TestWriter_DebounceFlush(t *testing.T) {
	store := &captureStore{}
	w := newTestWriter(t, store, WithConfig(Config{
		BatchSize:     100,
		FlushInterval: 20 * time.Millisecond,
	}))

	require.NoError(t, w.Log(context.Background(), routineRecord()))
	require.NoError(t, w.Log(context.Background(), routineRecord()))
	assert.Equal(t, 0, store.batchCount())

	require.Eventually(t, func() bool {
		return store.batchCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, store.recordCount())
	assert.Equal(t, 0, w.QueueLen())
}

func TestWriter_CriticalRecordFlushesImmediately(t *testing.T) {
	store := &captureStore{}
	w := newTestWriter(t, store)

	record := audit.Record{
		Action:   "failed_login",
		ActorID:  "user-13",
		SourceIP: "203.0.113.7",
	}
	require.NoError(t, w.Log(context.Background(), record))

	require.Equal(t, 1, store.batchCount(), "critical records are durable before Log returns")
	assert.Equal(t, 0, w.QueueLen())
}

func TestWriter_CriticalRecordDrainsPendingQueue(t *testing.T) {
	store := &captureStore{}
	w := newTestWriter(t, store, WithConfig(Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}))

	for range 3 {
		require.NoError(t, w.Log(context.Background(), routineRecord()))
	}
	require.NoError(t, w.Log(context.Background(), audit.Record{
		Action:       "unauthorized_access",
		ActorID:      "user-13",
		ResourceType: "patients",
	}))

	require.Equal(t, 1, store.batchCount())
	assert.Equal(t, 4, store.recordCount(), "pending records ride along with the critical flush")
}

func TestWriter_EmptyFlushWritesNothing(t *testing.T) {
	store := &captureStore{}
	w := newTestWriter(t, store)

	require.NoError(t, w.Flush(context.Background()))
	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 0, store.batchCount())
}

func TestWriter_RequeueOnStoreFailure(t *testing.T) {
	store := &captureStore{failNext: true}
	w := newTestWriter(t, store, WithConfig(Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}))

	first := routineRecord()
	first.ActorID = "user-first"
	require.NoError(t, w.Log(context.Background(), first))

	err := w.Flush(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStorageFailure))
	assert.Equal(t, 1, w.QueueLen(), "failed batch is requeued, not dropped")

	second := routineRecord()
	second.ActorID = "user-second"
	require.NoError(t, w.Log(context.Background(), second))

	require.NoError(t, w.Flush(context.Background()))
	require.Equal(t, 1, store.batchCount())
	require.Len(t, store.batches[0], 2)
	assert.Equal(t, "user-first", store.batches[0][0].ActorID, "requeued records keep their place at the head")
	assert.Equal(t, "user-second", store.batches[0][1].ActorID)
}

func TestWriter_ShutdownFlushesAndRejectsNewRecords(t *testing.T) {
	store := &captureStore{}
	w := newTestWriter(t, store, WithConfig(Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}))

	require.NoError(t, w.Log(context.Background(), routineRecord()))
	require.NoError(t, w.Shutdown(context.Background()))
	assert.Equal(t, 1, store.recordCount())

	err := w.Log(context.Background(), routineRecord())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	require.NoError(t, w.Shutdown(context.Background()), "shutdown is idempotent")
}

type captureSink struct {
	mu      sync.Mutex
	records []audit.Record
}

func (s *captureSink) Forward(record audit.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func TestWriter_ForwardsCriticalRecordsToSink(t *testing.T) {
	store := &captureStore{}
	sink := &captureSink{}
	w := newTestWriter(t, store, WithSink(sink), WithConfig(Config{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}))

	require.NoError(t, w.Log(context.Background(), routineRecord()))
	require.NoError(t, w.Log(context.Background(), audit.Record{
		Action:  "security_violation",
		ActorID: "user-13",
	}))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.records, 1, "only critical records fan out")
	assert.Equal(t, "security_violation", sink.records[0].Action)
}

func TestWriter_Normalize(t *testing.T) {
	store := &captureStore{}
	fixed := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	w := newTestWriter(t, store, WithClock(func() time.Time { return fixed }))

	t.Run("defaults assigned once", func(t *testing.T) {
		record := w.normalize(audit.Record{Action: "view_schedule"})
		assert.Equal(t, fixed, record.CreatedAt)
		assert.NotEmpty(t, record.SessionID)
		assert.NotEqual(t, "", record.ID.String())
	})

	t.Run("caller timestamp preserved", func(t *testing.T) {
		earlier := fixed.Add(-time.Hour)
		record := w.normalize(audit.Record{Action: "view_schedule", CreatedAt: earlier})
		assert.Equal(t, earlier, record.CreatedAt)
	})

	t.Run("protected data derived from resource", func(t *testing.T) {
		record := w.normalize(audit.Record{Action: "read", ResourceType: "patients"})
		assert.True(t, record.ProtectedData)
		assert.Equal(t, "PHI access logged for HIPAA compliance monitoring", record.ComplianceNote)
	})

	t.Run("protected data derived from action", func(t *testing.T) {
		record := w.normalize(audit.Record{Action: "export_patient_summary", ResourceType: "reports"})
		assert.True(t, record.ProtectedData)
	})

	t.Run("admin note", func(t *testing.T) {
		record := w.normalize(audit.Record{Action: "admin_update_settings", ResourceType: "settings"})
		assert.Equal(t, "Administrative action logged for security audit", record.ComplianceNote)
	})
}

func TestWriter_AssessRisk(t *testing.T) {
	store := &captureStore{}
	w := newTestWriter(t, store)
	daytime := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record audit.Record
		want   audit.RiskLevel
	}{
		{
			name:   "routine action",
			record: audit.Record{Action: "view_schedule", CreatedAt: daytime},
			want:   audit.RiskLow,
		},
		{
			name:   "protected data",
			record: audit.Record{Action: "read", ProtectedData: true, CreatedAt: daytime},
			want:   audit.RiskMedium,
		},
		{
			name:   "delete of protected data",
			record: audit.Record{Action: "delete_record", ProtectedData: true, CreatedAt: daytime},
			want:   audit.RiskHigh,
		},
		{
			name:   "failed operation",
			record: audit.Record{Action: "update", ErrorMessage: "constraint violation", CreatedAt: daytime},
			want:   audit.RiskHigh,
		},
		{
			name:   "breach indicator",
			record: audit.Record{Action: "data_breach_detected", CreatedAt: daytime},
			want:   audit.RiskCritical,
		},
		{
			name:   "off hours access",
			record: audit.Record{Action: "view_schedule", CreatedAt: time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)},
			want:   audit.RiskMedium,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.assessRisk(tt.record))
		})
	}
}
