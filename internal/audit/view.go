package audit

import (
	"time"

	"gonogo/internal/decision"
	"gonogo/pkg/domain"
)

// View is the JSON form of a record, shared by the HTTP API and the stream.
type View struct {
	RecordID   string         `json:"record_id"`
	RecordedAt time.Time      `json:"recorded_at"`
	Identifier IdentifierView `json:"identifier"`
	NAICS      string         `json:"naics"`
	JobID      string         `json:"job_id,omitempty"`
	ItemIndex  *int           `json:"item_index,omitempty"`
	Requester  string         `json:"requester,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Eligible   bool           `json:"eligible"`
	Result     *decision.View `json:"result"`
}

type IdentifierView struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func NewView(r *Record) *View {
	v := &View{
		RecordID:   r.ID.String(),
		RecordedAt: r.RecordedAt,
		Identifier: IdentifierView{Kind: string(r.Identifier.Kind()), Value: r.Identifier.Value()},
		NAICS:      string(r.NAICS),
		ItemIndex:  r.ItemIndex,
		Requester:  r.Requester,
		RequestID:  r.RequestID,
	}
	if r.JobID != nil {
		v.JobID = r.JobID.String()
	}
	if r.Result != nil {
		v.Eligible = r.Result.Eligible
		v.Result = decision.NewView(r.Result)
		v.Result.AuditRecordID = v.RecordID
	}
	return v
}

// Record parses a view back into a record.
func (v *View) Record() (*Record, error) {
	id, err := domain.ParseAuditRecordID(v.RecordID)
	if err != nil {
		return nil, err
	}
	ident, err := domain.NewIdentifier(domain.IdentifierKind(v.Identifier.Kind), v.Identifier.Value)
	if err != nil {
		return nil, err
	}
	r := &Record{
		ID:         id,
		RecordedAt: v.RecordedAt,
		Identifier: ident,
		NAICS:      domain.NAICSCode(v.NAICS),
		ItemIndex:  v.ItemIndex,
		Requester:  v.Requester,
		RequestID:  v.RequestID,
	}
	if v.JobID != "" {
		jobID, err := domain.ParseJobID(v.JobID)
		if err != nil {
			return nil, err
		}
		r.JobID = &jobID
	}
	if v.Result != nil {
		if r.Result, err = v.Result.Result(); err != nil {
			return nil, err
		}
		r.Result.AuditRecordID = id
	}
	return r, nil
}
