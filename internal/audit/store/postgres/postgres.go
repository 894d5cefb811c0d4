package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gonogo/internal/audit"
	"gonogo/internal/decision"
	"gonogo/pkg/domain"
	"gonogo/pkg/platform/sentinel"
	txcontext "gonogo/pkg/platform/tx"
)

// Store persists audit records in the append-only audit_records table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	SELECT id, recorded_at, identifier_kind, identifier_value, naics, result,
	       job_id, item_index, requester, request_id
	FROM audit_records
`

// Append inserts one record. It joins a transaction carried by ctx.
func (s *Store) Append(ctx context.Context, r *audit.Record) error {
	result, err := json.Marshal(decision.NewView(r.Result))
	if err != nil {
		return fmt.Errorf("marshal audit result: %w", err)
	}

	var jobID *uuid.UUID
	if r.JobID != nil {
		u := uuid.UUID(*r.JobID)
		jobID = &u
	}

	_, err = txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_records (
			id, recorded_at, identifier_kind, identifier_value, naics,
			eligible, reason_codes, result, job_id, item_index, requester, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(r.ID),
		r.RecordedAt,
		string(r.Identifier.Kind()),
		r.Identifier.Value(),
		string(r.NAICS),
		r.Result.Eligible,
		pq.Array(r.Result.ReasonCodes()),
		result,
		jobID,
		r.ItemIndex,
		r.Requester,
		r.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.AuditRecordID) (*audit.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(id))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListByJob(ctx context.Context, jobID domain.JobID) ([]*audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE job_id = $1 ORDER BY item_index, recorded_at`, uuid.UUID(jobID))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []*audit.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*audit.Record, error) {
	var (
		id        uuid.UUID
		kind      string
		value     string
		naics     string
		result    []byte
		jobID     uuid.NullUUID
		itemIndex sql.NullInt32
		r         audit.Record
	)
	if err := sc.Scan(&id, &r.RecordedAt, &kind, &value, &naics, &result,
		&jobID, &itemIndex, &r.Requester, &r.RequestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan audit record: %w", err)
	}

	r.ID = domain.AuditRecordID(id)
	r.NAICS = domain.NAICSCode(naics)
	ident, err := domain.NewIdentifier(domain.IdentifierKind(kind), value)
	if err != nil {
		return nil, fmt.Errorf("audit record %s identifier: %w", id, err)
	}
	r.Identifier = ident
	if jobID.Valid {
		j := domain.JobID(jobID.UUID)
		r.JobID = &j
	}
	if itemIndex.Valid {
		idx := int(itemIndex.Int32)
		r.ItemIndex = &idx
	}

	var view decision.View
	if err := json.Unmarshal(result, &view); err != nil {
		return nil, fmt.Errorf("unmarshal audit result %s: %w", id, err)
	}
	if r.Result, err = view.Result(); err != nil {
		return nil, fmt.Errorf("decode audit result %s: %w", id, err)
	}
	r.Result.AuditRecordID = r.ID
	return &r, nil
}
