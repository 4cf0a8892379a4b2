package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/acganger/ganger-platform-sub002/internal/access"
	"github.com/acganger/ganger-platform-sub002/internal/platform/middleware"
	"github.com/acganger/ganger-platform-sub002/internal/transport/http/shared"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

type validateAccessRequest struct {
	ResourceType          string `json:"resourceType"`
	ResourceID            string `json:"resourceId,omitempty"`
	AccessReason          string `json:"accessReason,omitempty"`
	BusinessJustification string `json:"businessJustification,omitempty"`
	MinimumNecessary      bool   `json:"minimumNecessary"`
}

func (h *Handler) handleValidateAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req validateAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	decision, err := h.access.Validate(ctx, access.Request{
		ActorID:               middleware.GetUserID(ctx),
		ActorEmail:            middleware.GetUserEmail(ctx),
		ActorRole:             middleware.GetUserRole(ctx),
		ResourceType:          req.ResourceType,
		ResourceID:            req.ResourceID,
		AccessReason:          req.AccessReason,
		BusinessJustification: req.BusinessJustification,
		MinimumNecessary:      req.MinimumNecessary,
		SourceIP:              middleware.GetClientIP(ctx),
		UserAgent:             middleware.GetUserAgent(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "access validation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if !decision.Authorized {
		// Denial is a normal terminal state; the body carries the reason.
		status = http.StatusForbidden
	}
	shared.WriteJSON(w, status, decision)
}

type minimizationRequest struct {
	RequestedFields []string `json:"requestedFields"`
	Purpose         string   `json:"purpose"`
}

func (h *Handler) handleDataMinimization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req minimizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.access.CheckDataMinimization(ctx, req.RequestedFields, middleware.GetUserRole(ctx), req.Purpose)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}
