// Package jobs holds the bulk evaluation job model: a Job row plus an arena of
// independently addressable items keyed by (job id, index).
package jobs

import (
	"time"

	"github.com/shopspring/decimal"

	"gonogo/internal/decision"
	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

// Status is the job-level state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ItemStatus is the per-item state.
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemDone    ItemStatus = "done"
	ItemError   ItemStatus = "error"
)

func (s ItemStatus) IsTerminal() bool {
	return s == ItemDone || s == ItemError
}

// Failure reasons recorded on failed jobs and abandoned items.
const (
	ReasonFailedOnRestart = "failed_on_restart"
	ReasonOrchestration   = "orchestration_fault"
)

// Job is the job row. Item counts are derived from the arena, never stored.
type Job struct {
	ID                 domain.JobID
	Status             Status
	Total              int
	WebhookURL         string
	Requester          string
	FailureReason      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	FinishedAt         *time.Time
	WebhookAttemptedAt *time.Time
}

// ItemInput is one submitted evaluation.
type ItemInput struct {
	Identifier domain.Identifier
	NAICS      domain.NAICSCode
	Basis      *sizestd.SizeBasis
}

func (in ItemInput) Validate() error {
	if in.Identifier.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "an identifier is required")
	}
	if _, err := domain.ParseNAICSCode(string(in.NAICS)); err != nil {
		return err
	}
	return nil
}

// Item is one arena entry. Once Status is terminal the item never changes.
type Item struct {
	JobID         domain.JobID
	Index         int
	Input         ItemInput
	Status        ItemStatus
	Result        *decision.EligibilityResult
	ErrorCode     string
	ErrorMessage  string
	AuditRecordID domain.AuditRecordID
	UpdatedAt     time.Time
}

// Outcome is the terminal transition applied to one pending item.
type Outcome struct {
	Status        ItemStatus
	Result        *decision.EligibilityResult
	ErrorCode     string
	ErrorMessage  string
	AuditRecordID domain.AuditRecordID
	At            time.Time
}

// Counts aggregates item statuses.
type Counts struct {
	Pending int
	Done    int
	Errored int
}

// Completed is the number of items in a terminal state.
func (c Counts) Completed() int { return c.Done + c.Errored }

// CountItems derives the aggregate from the arena.
func CountItems(items []*Item) Counts {
	var c Counts
	for _, it := range items {
		switch it.Status {
		case ItemDone:
			c.Done++
		case ItemError:
			c.Errored++
		default:
			c.Pending++
		}
	}
	return c
}

// Snapshot is a consistent read of a job and its items in index order.
type Snapshot struct {
	Job    *Job
	Items  []*Item
	Counts Counts
}

func NewSnapshot(job *Job, items []*Item) *Snapshot {
	return &Snapshot{Job: job, Items: items, Counts: CountItems(items)}
}

// InputView is the JSON form of an ItemInput, used for persistence and results.
type InputView struct {
	Identifier IdentifierView `json:"identifier"`
	NAICS      string         `json:"naics"`
	SizeBasis  *BasisView     `json:"size_basis,omitempty"`
}

type IdentifierView struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type BasisView struct {
	Kind  string          `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

func NewInputView(in ItemInput) InputView {
	v := InputView{
		Identifier: IdentifierView{Kind: string(in.Identifier.Kind()), Value: in.Identifier.Value()},
		NAICS:      string(in.NAICS),
	}
	if in.Basis != nil {
		v.SizeBasis = &BasisView{Kind: string(in.Basis.Kind), Value: in.Basis.Value}
	}
	return v
}

// Input parses the view back into an ItemInput.
func (v InputView) Input() (ItemInput, error) {
	id, err := domain.NewIdentifier(domain.IdentifierKind(v.Identifier.Kind), v.Identifier.Value)
	if err != nil {
		return ItemInput{}, err
	}
	in := ItemInput{Identifier: id, NAICS: domain.NAICSCode(v.NAICS)}
	if v.SizeBasis != nil {
		basis, err := sizestd.NewSizeBasis(v.SizeBasis.Kind, v.SizeBasis.Value)
		if err != nil {
			return ItemInput{}, err
		}
		in.Basis = basis
	}
	return in, nil
}
