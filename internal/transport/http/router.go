// Package httptransport is the thin HTTP layer over the audit engine. It
// delegates to the domain services without embedding business logic so
// transport concerns remain isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acganger/ganger-platform-sub002/internal/access"
	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/audit/anomaly"
	"github.com/acganger/ganger-platform-sub002/internal/audit/integrity"
	"github.com/acganger/ganger-platform-sub002/internal/audit/report"
	"github.com/acganger/ganger-platform-sub002/internal/platform/middleware"
)

// AuditService is the write and read path of the audit trail.
type AuditService interface {
	Log(ctx context.Context, record audit.Record) error
	Search(ctx context.Context, criteria audit.Criteria) ([]audit.Record, error)
}

// AccessService evaluates proposed protected-data accesses.
type AccessService interface {
	Validate(ctx context.Context, req access.Request) (access.Decision, error)
	CheckDataMinimization(ctx context.Context, requestedFields []string, role, purpose string) (access.MinimizationResult, error)
}

// IntegrityService validates trail continuity over a window.
type IntegrityService interface {
	Validate(ctx context.Context, start, end time.Time) (integrity.Report, error)
}

// AnomalyService scans the trailing window for suspicious patterns.
type AnomalyService interface {
	Detect(ctx context.Context, window time.Duration) ([]anomaly.Finding, error)
}

// ReportService computes compliance reports.
type ReportService interface {
	Generate(ctx context.Context, start, end time.Time) (report.Report, error)
}

// Handler wires the audit engine's services to their routes.
type Handler struct {
	logger       *slog.Logger
	audit        AuditService
	access       AccessService
	integrity    IntegrityService
	anomaly      AnomalyService
	report       ReportService
	jwtValidator middleware.JWTValidator
}

func NewHandler(
	logger *slog.Logger,
	auditSvc AuditService,
	accessSvc AccessService,
	integritySvc IntegrityService,
	anomalySvc AnomalyService,
	reportSvc ReportService,
	jwtValidator middleware.JWTValidator,
) *Handler {
	return &Handler{
		logger:       logger,
		audit:        auditSvc,
		access:       accessSvc,
		integrity:    integritySvc,
		anomaly:      anomalySvc,
		report:       reportSvc,
		jwtValidator: jwtValidator,
	}
}

// Register mounts every route with the shared middleware chain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Post("/audit/records", h.handleLogRecord)
	router.Get("/audit/records", h.handleSearchRecords)
	router.Post("/access/validate", h.handleValidateAccess)
	router.Post("/access/minimization", h.handleDataMinimization)
	router.Get("/compliance/report", h.handleComplianceReport)
	router.Get("/compliance/integrity", h.handleIntegrity)
	router.Get("/compliance/suspicious-activity", h.handleSuspiciousActivity)

	r.Mount("/", router)
}

// NewRouter builds a standalone router for the handler.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}
