package decision

import (
	"context"

	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
)

// AuditRecorder durably appends one evaluation. The evaluation is not complete
// until Record returns without error.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) (domain.AuditRecordID, error)
}

// SizeDeterminer resolves a size verdict without blocking.
type SizeDeterminer interface {
	Determine(code domain.NAICSCode, basis *sizestd.SizeBasis) sizestd.Determination
}
