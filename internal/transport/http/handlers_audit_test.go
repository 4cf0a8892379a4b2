package httptransport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/platform/middleware"
	"github.com/acganger/ganger-platform-sub002/internal/transport/http/mocks"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
	"github.com/acganger/ganger-platform-sub002/pkg/testutil"
)

//go:generate mockgen -source=router.go -destination=mocks/mocks.go -package=mocks

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req = testutil.WithAuth(req, middleware.JWTClaims{
		UserID:    "user-123",
		Email:     "clinician@example.com",
		Role:      "provider",
		SessionID: "sess-456",
	})
	return testutil.WithClient(req, "203.0.113.9", "test-agent/1.0")
}

func TestHandler_handleLogRecord_StampsActorFromAuthContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)

	var logged audit.Record
	mockAudit.EXPECT().
		Log(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, record audit.Record) error {
			logged = record
			return nil
		}).
		Times(1)

	handler := &Handler{audit: mockAudit}

	body, err := json.Marshal(map[string]any{
		"action":       "view_patient_chart",
		"resourceType": "patient_records",
		"resourceId":   "pat-9",
		// A spoofed actor in the body must be ignored.
		"actorId": "attacker",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.handleLogRecord(w, authedRequest("POST", "/audit/records", body))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "user-123", logged.ActorID)
	assert.Equal(t, "clinician@example.com", logged.ActorEmail)
	assert.Equal(t, "sess-456", logged.SessionID)
	assert.Equal(t, "203.0.113.9", logged.SourceIP)
	assert.Equal(t, "test-agent/1.0", logged.UserAgent)
	assert.Equal(t, "view_patient_chart", logged.Action)
	assert.Equal(t, "/audit/records", logged.RequestPath)
	assert.Equal(t, http.MethodPost, logged.RequestMethod)
}

func TestHandler_handleLogRecord_MissingAction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	handler := &Handler{audit: mockAudit}

	w := httptest.NewRecorder()
	handler.handleLogRecord(w, authedRequest("POST", "/audit/records", []byte(`{"resourceType":"patients"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_handleLogRecord_MalformedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	handler := &Handler{audit: mockAudit}

	w := httptest.NewRecorder()
	handler.handleLogRecord(w, authedRequest("POST", "/audit/records", []byte(`{not json`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_handleSearchRecords_ParsesFilters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	protected := true

	mockAudit := mocks.NewMockAuditService(ctrl)
	mockAudit.EXPECT().
		Search(gomock.Any(), audit.Criteria{
			StartDate:     start,
			EndDate:       end,
			ActorID:       "user-123",
			Action:        "view_patient_chart",
			ResourceType:  "patients",
			ProtectedData: &protected,
			SourceIP:      "203.0.113.9",
			Limit:         25,
			Offset:        50,
		}).
		Return([]audit.Record{{Action: "view_patient_chart"}}, nil).
		Times(1)

	handler := &Handler{audit: mockAudit}

	target := "/audit/records?start_date=2025-03-01T00:00:00Z&end_date=2025-03-02T00:00:00Z" +
		"&actor_id=user-123&action=view_patient_chart&resource_type=patients" +
		"&protected_data=true&source_ip=203.0.113.9&limit=25&offset=50"

	w := httptest.NewRecorder()
	handler.handleSearchRecords(w, authedRequest("GET", target, nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Records []json.RawMessage `json:"records"`
		Count   int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Len(t, resp.Records, 1)
}

func TestHandler_handleSearchRecords_StoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	mockAudit.EXPECT().
		Search(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeQueryFailed, "store offline")).
		Times(1)

	handler := &Handler{logger: slog.New(slog.DiscardHandler), audit: mockAudit}

	w := httptest.NewRecorder()
	handler.handleSearchRecords(w, authedRequest("GET", "/audit/records", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_handleSearchRecords_InvalidLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	handler := &Handler{audit: mockAudit}

	w := httptest.NewRecorder()
	handler.handleSearchRecords(w, authedRequest("GET", "/audit/records?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_handleSearchRecords_InvalidTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	handler := &Handler{audit: mockAudit}

	w := httptest.NewRecorder()
	handler.handleSearchRecords(w, authedRequest("GET", "/audit/records?start_date=03-01-2025", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
