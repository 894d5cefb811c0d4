package audit

import (
	"time"

	"gonogo/internal/decision"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

// Record is one append-only audit entry: the identifier checked, the full
// result and, for bulk items, the job and position that produced it.
type Record struct {
	ID         domain.AuditRecordID
	RecordedAt time.Time
	Identifier domain.Identifier
	NAICS      domain.NAICSCode
	JobID      *domain.JobID
	ItemIndex  *int
	Requester  string
	RequestID  string
	Result     *decision.EligibilityResult
}

// NewRecord assigns a fresh ID to an evaluator entry. The record keeps its
// own copy of the result.
func NewRecord(entry decision.AuditEntry, at time.Time) (*Record, error) {
	if entry.Identifier.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit record requires an identifier")
	}
	if entry.Result == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit record requires a result")
	}
	if (entry.JobID == nil) != (entry.ItemIndex == nil) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "job id and item index must be set together")
	}
	id := domain.NewAuditRecordID()
	result := entry.Result.Clone()
	result.AuditRecordID = id
	return &Record{
		ID:         id,
		RecordedAt: at,
		Identifier: entry.Identifier,
		NAICS:      entry.NAICS,
		JobID:      entry.JobID,
		ItemIndex:  entry.ItemIndex,
		Requester:  entry.Requester,
		RequestID:  entry.RequestID,
		Result:     result,
	}, nil
}
