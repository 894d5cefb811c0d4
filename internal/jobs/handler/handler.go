package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gonogo/internal/jobs"
	"gonogo/internal/jobs/service"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/platform/httputil"
	"gonogo/pkg/requestcontext"
)

// Service is the orchestrator surface the handler needs.
type Service interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*jobs.Job, error)
	Get(ctx context.Context, id domain.JobID) (*jobs.Snapshot, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the bulk submission and job read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/eligibility/bulk", h.HandleSubmit)
	r.Get("/jobs/{id}", h.HandleGet)
	r.Get("/jobs/{id}/results", h.HandleResults)
}

// HandleSubmit handles POST /eligibility/bulk. It answers 202 with the job
// id as soon as the job is persisted.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BulkRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	job, err := h.service.Submit(ctx, req.SubmitRequest(requestcontext.Caller(ctx)))
	if err != nil {
		h.logger.ErrorContext(ctx, "bulk submission failed",
			"request_id", requestID,
			"items", len(req.Items),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "bulk job accepted",
		"request_id", requestID,
		"job_id", job.ID,
		"total", job.Total,
	)
	w.Header().Set("Location", "/v1/jobs/"+job.ID.String())
	httputil.WriteJSON(w, http.StatusAccepted, NewJobResponse(jobs.NewSnapshot(job, pendingItems(job))))
}

// pendingItems stands in for the arena of a job that was just accepted.
func pendingItems(job *jobs.Job) []*jobs.Item {
	items := make([]*jobs.Item, job.Total)
	for i := range items {
		items[i] = &jobs.Item{JobID: job.ID, Index: i, Status: jobs.ItemPending}
	}
	return items
}

// HandleGet handles GET /jobs/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewJobResponse(snap))
}

// HandleResults handles GET /jobs/{id}/results. Items are in submission order.
func (h *Handler) HandleResults(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewResultsResponse(snap))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*jobs.Snapshot, bool) {
	ctx := r.Context()
	id, err := domain.ParseJobID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	snap, err := h.service.Get(ctx, id)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeJobNotFound) {
			h.logger.ErrorContext(ctx, "job lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"job_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return nil, false
	}
	return snap, true
}
