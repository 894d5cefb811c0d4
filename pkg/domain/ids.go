package domain

import (
	"github.com/google/uuid"

	dErrors "gonogo/pkg/domain-errors"
)

// JobID identifies a bulk evaluation job.
type JobID uuid.UUID

// AuditRecordID identifies one append-only audit record.
type AuditRecordID uuid.UUID

// NewJobID returns a fresh random job ID.
func NewJobID() JobID { return JobID(uuid.New()) }

// NewAuditRecordID returns a fresh random audit record ID.
func NewAuditRecordID() AuditRecordID { return AuditRecordID(uuid.New()) }

// ParseJobID parses a job ID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed or the nil UUID.
func ParseJobID(s string) (JobID, error) {
	u, err := parseUUID(s, "job id")
	return JobID(u), err
}

// ParseAuditRecordID parses an audit record ID from external input.
func ParseAuditRecordID(s string) (AuditRecordID, error) {
	u, err := parseUUID(s, "audit record id")
	return AuditRecordID(u), err
}

func (id JobID) String() string         { return uuid.UUID(id).String() }
func (id JobID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id AuditRecordID) String() string { return uuid.UUID(id).String() }
func (id AuditRecordID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// MarshalText renders the canonical UUID form, so IDs log and encode as strings.
func (id JobID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id AuditRecordID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
