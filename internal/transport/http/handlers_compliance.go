package httptransport

import (
	"net/http"
	"time"

	"github.com/acganger/ganger-platform-sub002/internal/audit/anomaly"
	"github.com/acganger/ganger-platform-sub002/internal/platform/middleware"
	"github.com/acganger/ganger-platform-sub002/internal/transport/http/shared"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

// reportWindow parses the start_date/end_date pair, defaulting to the
// trailing 30 days.
func reportWindow(r *http.Request) (time.Time, time.Time, error) {
	start, err := timeParam(r.URL.Query().Get("start_date"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := timeParam(r.URL.Query().Get("end_date"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeValidation, "end date precedes start date")
	}
	return start, end, nil
}

func (h *Handler) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, end, err := reportWindow(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	rep, err := h.report.Generate(ctx, start, end)
	if err != nil {
		h.logger.ErrorContext(ctx, "compliance report failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, end, err := reportWindow(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	rep, err := h.integrity.Validate(ctx, start, end)
	if err != nil {
		h.logger.ErrorContext(ctx, "integrity validation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleSuspiciousActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hours, err := intParam(r.URL.Query().Get("window_hours"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if hours <= 0 {
		hours = 24
	}

	findings, err := h.anomaly.Detect(ctx, time.Duration(hours)*time.Hour)
	if err != nil {
		h.logger.ErrorContext(ctx, "suspicious activity scan failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	if findings == nil {
		findings = []anomaly.Finding{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"findings":    findings,
		"windowHours": hours,
	})
}
