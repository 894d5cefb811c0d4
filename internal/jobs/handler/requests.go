package handler

import (
	"fmt"

	dhandler "gonogo/internal/decision/handler"
	"gonogo/internal/jobs"
	"gonogo/internal/jobs/service"
	dErrors "gonogo/pkg/domain-errors"
)

// BulkRequest is the body of POST /eligibility/bulk. Each item has the same
// shape as a single check.
type BulkRequest struct {
	Items      []dhandler.CheckRequest `json:"items" validate:"required,min=1,dive"`
	WebhookURL string                  `json:"webhook_url,omitempty" validate:"omitempty,url,max=2048"`
}

// Validate parses every item, naming the first bad one.
func (r *BulkRequest) Validate() error {
	if r == nil || len(r.Items) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one item is required")
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.GetCode(err), fmt.Sprintf("items[%d]: %s", i, dErrors.Message(err)))
		}
	}
	return nil
}

// SubmitRequest builds the orchestrator request. Call only after Validate.
func (r *BulkRequest) SubmitRequest(requester string) service.SubmitRequest {
	items := make([]jobs.ItemInput, len(r.Items))
	for i := range r.Items {
		req := r.Items[i].EvaluateRequest(requester)
		items[i] = jobs.ItemInput{Identifier: req.Identifier, NAICS: req.NAICS, Basis: req.Basis}
	}
	return service.SubmitRequest{Items: items, WebhookURL: r.WebhookURL, Requester: requester}
}
