package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gonogo/internal/audit"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/platform/httputil"
	"gonogo/pkg/requestcontext"
)

// Service reads audit records.
type Service interface {
	Get(ctx context.Context, id domain.AuditRecordID) (*audit.Record, error)
	ListByJob(ctx context.Context, jobID domain.JobID) ([]*audit.Record, error)
}

// JobChecker tells a job with no records apart from an unknown job.
type JobChecker interface {
	Exists(ctx context.Context, id domain.JobID) (bool, error)
}

type Handler struct {
	service Service
	jobs    JobChecker
	logger  *slog.Logger
}

// New builds the audit query handler. jobs may be nil, in which case an
// unknown job lists as empty.
func New(service Service, jobs JobChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, jobs: jobs, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/{record_id}", h.HandleGet)
	r.Get("/jobs/{id}/audit", h.HandleListByJob)
}

// ListResponse is the body of GET /jobs/{id}/audit.
type ListResponse struct {
	JobID   string        `json:"job_id"`
	Records []*audit.View `json:"records"`
}

// HandleGet handles GET /audit/{record_id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAuditRecordID(chi.URLParam(r, "record_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logFailure(r.Context(), "audit record lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, audit.NewView(rec))
}

// HandleListByJob handles GET /jobs/{id}/audit.
func (h *Handler) HandleListByJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, err := domain.ParseJobID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if h.jobs != nil {
		ok, err := h.jobs.Exists(ctx, jobID)
		if err != nil {
			h.logFailure(ctx, "job lookup failed", err)
			httputil.WriteError(w, err)
			return
		}
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeJobNotFound, "job not found"))
			return
		}
	}

	recs, err := h.service.ListByJob(ctx, jobID)
	if err != nil {
		h.logFailure(ctx, "audit listing failed", err)
		httputil.WriteError(w, err)
		return
	}

	resp := ListResponse{JobID: jobID.String(), Records: make([]*audit.View, 0, len(recs))}
	for _, rec := range recs {
		resp.Records = append(resp.Records, audit.NewView(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
