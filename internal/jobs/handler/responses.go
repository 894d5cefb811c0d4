package handler

import (
	"time"

	"gonogo/internal/decision"
	"gonogo/internal/jobs"
)

// JobResponse is the job summary returned on submission and by GET /jobs/{id}.
type JobResponse struct {
	JobID         string     `json:"job_id"`
	Status        string     `json:"status"`
	Total         int        `json:"total"`
	Completed     int        `json:"completed"`
	Errored       int        `json:"errored"`
	Pending       int        `json:"pending"`
	WebhookURL    string     `json:"webhook_url,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// ResultsResponse is the body of GET /jobs/{id}/results.
type ResultsResponse struct {
	JobID  string         `json:"job_id"`
	Status string         `json:"status"`
	Items  []ItemResponse `json:"items"`
}

type ItemResponse struct {
	Index         int            `json:"index"`
	Status        string         `json:"status"`
	Input         jobs.InputView `json:"input"`
	Result        *decision.View `json:"result,omitempty"`
	Error         *ItemError     `json:"error,omitempty"`
	AuditRecordID string         `json:"audit_record_id,omitempty"`
}

type ItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewJobResponse renders the job summary body.
func NewJobResponse(snap *jobs.Snapshot) JobResponse {
	j := snap.Job
	return JobResponse{
		JobID:         j.ID.String(),
		Status:        string(j.Status),
		Total:         j.Total,
		Completed:     snap.Counts.Completed(),
		Errored:       snap.Counts.Errored,
		Pending:       snap.Counts.Pending,
		WebhookURL:    j.WebhookURL,
		FailureReason: j.FailureReason,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		FinishedAt:    j.FinishedAt,
	}
}

// NewResultsResponse renders every item in index order.
func NewResultsResponse(snap *jobs.Snapshot) ResultsResponse {
	resp := ResultsResponse{
		JobID:  snap.Job.ID.String(),
		Status: string(snap.Job.Status),
		Items:  make([]ItemResponse, 0, len(snap.Items)),
	}
	for _, it := range snap.Items {
		item := ItemResponse{
			Index:  it.Index,
			Status: string(it.Status),
			Input:  jobs.NewInputView(it.Input),
			Result: decision.NewView(it.Result),
		}
		if it.Status == jobs.ItemError {
			item.Error = &ItemError{Code: it.ErrorCode, Message: it.ErrorMessage}
		}
		if !it.AuditRecordID.IsNil() {
			item.AuditRecordID = it.AuditRecordID.String()
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}
