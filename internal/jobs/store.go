package jobs

import (
	"context"
	"time"

	"gonogo/pkg/domain"
)

// Store persists jobs and their item arena. Implementations return sentinel
// errors: ErrNotFound for an unknown job or item, ErrInvalidState when a
// transition's precondition does not hold, ErrConflict on a duplicate job id.
type Store interface {
	// Create writes the job and all its items atomically.
	Create(ctx context.Context, job *Job, items []*Item) error
	// Transition moves the job from one status to another. Moving to
	// completed fails with ErrInvalidState while any item is pending.
	Transition(ctx context.Context, id domain.JobID, from, to Status, reason string, at time.Time) error
	// CompleteItem applies a terminal outcome to a pending item.
	CompleteItem(ctx context.Context, id domain.JobID, index int, out Outcome) error
	// FailPending marks every still-pending item as errored and returns how many changed.
	FailPending(ctx context.Context, id domain.JobID, code, message string, at time.Time) (int, error)
	// ClaimWebhook records the single delivery attempt. Only the first caller gets true.
	ClaimWebhook(ctx context.Context, id domain.JobID, at time.Time) (bool, error)
	Get(ctx context.Context, id domain.JobID) (*Job, error)
	// Snapshot reads the job and its items together; items are in index order.
	Snapshot(ctx context.Context, id domain.JobID) (*Snapshot, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Job, error)
}
