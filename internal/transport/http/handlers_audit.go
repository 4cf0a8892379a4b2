package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/platform/middleware"
	"github.com/acganger/ganger-platform-sub002/internal/transport/http/shared"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

// logRecordRequest is the caller-supplied portion of an audit record. Actor
// identity and network context come from the authenticated request, not the
// body, so a caller cannot spoof them.
type logRecordRequest struct {
	Action        string         `json:"action"`
	ResourceType  string         `json:"resourceType,omitempty"`
	ResourceID    string         `json:"resourceId,omitempty"`
	BeforeValues  map[string]any `json:"beforeValues,omitempty"`
	AfterValues   map[string]any `json:"afterValues,omitempty"`
	ChangedFields []string       `json:"changedFields,omitempty"`
	AccessReason  string         `json:"accessReason,omitempty"`
	ProtectedData bool           `json:"protectedDataAccessed,omitempty"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

func (h *Handler) handleLogRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req logRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Action == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "action is required"))
		return
	}

	record := audit.Record{
		Action:        req.Action,
		ActorID:       middleware.GetUserID(ctx),
		ActorEmail:    middleware.GetUserEmail(ctx),
		SessionID:     middleware.GetSessionID(ctx),
		ResourceType:  req.ResourceType,
		ResourceID:    req.ResourceID,
		BeforeValues:  req.BeforeValues,
		AfterValues:   req.AfterValues,
		ChangedFields: req.ChangedFields,
		SourceIP:      middleware.GetClientIP(ctx),
		UserAgent:     middleware.GetUserAgent(ctx),
		RequestPath:   r.URL.Path,
		RequestMethod: r.Method,
		AccessReason:  req.AccessReason,
		ProtectedData: req.ProtectedData,
		ErrorMessage:  req.ErrorMessage,
		Details:       req.Details,
	}

	if err := h.audit.Log(ctx, record); err != nil {
		h.logger.ErrorContext(ctx, "failed to log audit record",
			"action", req.Action,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleSearchRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	criteria, err := criteriaFromQuery(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	records, err := h.audit.Search(ctx, criteria)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit search failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

func criteriaFromQuery(r *http.Request) (audit.Criteria, error) {
	q := r.URL.Query()
	criteria := audit.Criteria{
		ActorID:      q.Get("actor_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		SourceIP:     q.Get("source_ip"),
	}

	var err error
	if criteria.StartDate, err = timeParam(q.Get("start_date")); err != nil {
		return audit.Criteria{}, err
	}
	if criteria.EndDate, err = timeParam(q.Get("end_date")); err != nil {
		return audit.Criteria{}, err
	}
	if v := q.Get("protected_data"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return audit.Criteria{}, dErrors.New(dErrors.CodeValidation, "protected_data must be a boolean")
		}
		criteria.ProtectedData = &b
	}
	if criteria.Limit, err = intParam(q.Get("limit")); err != nil {
		return audit.Criteria{}, err
	}
	if criteria.Offset, err = intParam(q.Get("offset")); err != nil {
		return audit.Criteria{}, err
	}
	return criteria, nil
}

func timeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "invalid timestamp %q, want RFC3339", v)
	}
	return t, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid integer %q", v)
	}
	return n, nil
}
