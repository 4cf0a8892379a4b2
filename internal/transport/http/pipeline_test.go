package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/audit/query"
	"github.com/acganger/ganger-platform-sub002/internal/audit/store/memory"
	"github.com/acganger/ganger-platform-sub002/internal/audit/writer"
	"github.com/acganger/ganger-platform-sub002/pkg/testutil"
)

// pipelineService runs the real writer and query engine over one store, the
// way the composition root wires them.
type pipelineService struct {
	writer *writer.Writer
	query  *query.Service
}

func (s *pipelineService) Log(ctx context.Context, record audit.Record) error {
	return s.writer.Log(ctx, record)
}

func (s *pipelineService) Search(ctx context.Context, criteria audit.Criteria) ([]audit.Record, error) {
	return s.query.Search(ctx, criteria)
}

func TestAuditPipeline_LogThenSearch(t *testing.T) {
	store := memory.New()

	auditWriter, err := writer.New(store)
	require.NoError(t, err)
	auditQuery, err := query.New(store)
	require.NoError(t, err)

	handler := &Handler{audit: &pipelineService{writer: auditWriter, query: auditQuery}}

	testutil.Given(t, "an authenticated clinician", func(t *testing.T) {
		testutil.When(t, "a security violation is reported", func(t *testing.T) {
			body := []byte(`{"action":"security_violation","resourceType":"patient_records","resourceId":"pat-9"}`)
			rr := httptest.NewRecorder()
			handler.handleLogRecord(rr, authedRequest("POST", "/audit/records", body))
			require.Equal(t, http.StatusAccepted, rr.Code)

			testutil.Then(t, "the record is immediately searchable with derived fields", func(t *testing.T) {
				rr := httptest.NewRecorder()
				handler.handleSearchRecords(rr, authedRequest("GET", "/audit/records?action=security_violation", nil))
				require.Equal(t, http.StatusOK, rr.Code)

				var resp struct {
					Records []audit.Record `json:"records"`
					Count   int            `json:"count"`
				}
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				require.Equal(t, 1, resp.Count)

				got := resp.Records[0]
				assert.Equal(t, "user-123", got.ActorID)
				assert.True(t, got.ProtectedData)
				assert.NotEqual(t, audit.RiskLow, got.RiskLevel)
				assert.False(t, got.CreatedAt.IsZero())
				assert.NotEmpty(t, got.ID)
			})
		})
	})
}
