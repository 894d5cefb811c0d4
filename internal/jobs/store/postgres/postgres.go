package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"gonogo/internal/decision"
	"gonogo/internal/jobs"
	"gonogo/pkg/domain"
	"gonogo/pkg/platform/sentinel"
	txcontext "gonogo/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Store persists jobs in the jobs and job_items tables.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const jobColumns = `
	SELECT id, status, total, COALESCE(webhook_url, ''), requester, failure_reason,
	       created_at, updated_at, finished_at, webhook_attempted_at
	FROM jobs
`

// Create inserts the job row and its items in one transaction. Items are
// written with a single unnest insert.
func (s *Store) Create(ctx context.Context, job *jobs.Job, items []*jobs.Item) error {
	indexes := make([]int64, len(items))
	inputs := make([]string, len(items))
	for i, it := range items {
		raw, err := json.Marshal(jobs.NewInputView(it.Input))
		if err != nil {
			return fmt.Errorf("marshal job item %d input: %w", i, err)
		}
		indexes[i] = int64(it.Index)
		inputs[i] = string(raw)
	}

	var webhook *string
	if job.WebhookURL != "" {
		webhook = &job.WebhookURL
	}

	return txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (id, status, total, webhook_url, requester, failure_reason, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.UUID(job.ID), string(job.Status), job.Total, webhook, job.Requester, job.FailureReason, job.CreatedAt, job.UpdatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert job: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO job_items (job_id, idx, input, status, updated_at)
			SELECT $1, t.idx, t.input::jsonb, 'pending', $2
			FROM unnest($3::int[], $4::text[]) AS t(idx, input)
		`, uuid.UUID(job.ID), job.CreatedAt, pq.Array(indexes), pq.Array(inputs))
		if err != nil {
			return fmt.Errorf("insert job items: %w", err)
		}
		return nil
	})
}

func (s *Store) Transition(ctx context.Context, id domain.JobID, from, to jobs.Status, reason string, at time.Time) error {
	var finished *time.Time
	if to.IsTerminal() {
		finished = &at
	}
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE jobs
		SET status = $3,
		    updated_at = $4,
		    finished_at = COALESCE($5, finished_at),
		    failure_reason = CASE WHEN $6 = '' THEN failure_reason ELSE $6 END
		WHERE id = $1 AND status = $2
		  AND ($3 <> 'completed' OR NOT EXISTS (
		      SELECT 1 FROM job_items WHERE job_id = $1 AND status = 'pending'
		  ))
	`, uuid.UUID(id), string(from), string(to), at, finished, reason)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	return s.requireAffected(ctx, res, id)
}

func (s *Store) CompleteItem(ctx context.Context, id domain.JobID, index int, out jobs.Outcome) error {
	if !out.Status.IsTerminal() {
		return sentinel.ErrInvalidState
	}
	var result *string
	if out.Result != nil {
		raw, err := json.Marshal(decision.NewView(out.Result))
		if err != nil {
			return fmt.Errorf("marshal item result: %w", err)
		}
		encoded := string(raw)
		result = &encoded
	}
	var auditID *uuid.UUID
	if !out.AuditRecordID.IsNil() {
		u := uuid.UUID(out.AuditRecordID)
		auditID = &u
	}

	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE job_items
		SET status = $3, result = $4, error_code = $5, error_message = $6,
		    audit_record_id = $7, updated_at = $8
		WHERE job_id = $1 AND idx = $2 AND status = 'pending'
	`, uuid.UUID(id), index, string(out.Status), result, out.ErrorCode, out.ErrorMessage, auditID, out.At)
	if err != nil {
		return fmt.Errorf("complete job item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete job item: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM job_items WHERE job_id = $1 AND idx = $2)`, uuid.UUID(id), index,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check job item: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *Store) FailPending(ctx context.Context, id domain.JobID, code, message string, at time.Time) (int, error) {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE job_items
		SET status = 'error', error_code = $2, error_message = $3, updated_at = $4
		WHERE job_id = $1 AND status = 'pending'
	`, uuid.UUID(id), code, message, at)
	if err != nil {
		return 0, fmt.Errorf("fail pending items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail pending items: %w", err)
	}
	return int(n), nil
}

func (s *Store) ClaimWebhook(ctx context.Context, id domain.JobID, at time.Time) (bool, error) {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE jobs SET webhook_attempted_at = $2
		WHERE id = $1 AND webhook_attempted_at IS NULL
	`, uuid.UUID(id), at)
	if err != nil {
		return false, fmt.Errorf("claim webhook: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim webhook: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) Get(ctx context.Context, id domain.JobID) (*jobs.Job, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, jobColumns+` WHERE id = $1`, uuid.UUID(id))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return job, err
}

// Snapshot reads the job and its items inside one repeatable-read
// transaction so the pair reflects a single point in time.
func (s *Store) Snapshot(ctx context.Context, id domain.JobID) (*jobs.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	job, err := scanJob(tx.QueryRowContext(ctx, jobColumns+` WHERE id = $1`, uuid.UUID(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT idx, input, status, result, error_code, error_message, audit_record_id, updated_at
		FROM job_items WHERE job_id = $1 ORDER BY idx
	`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("query job items: %w", err)
	}
	defer rows.Close()

	items := make([]*jobs.Item, 0, job.Total)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		it.JobID = id
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return jobs.NewSnapshot(job, items), nil
}

func (s *Store) ListByStatus(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx, jobColumns+` WHERE status = ANY($1) ORDER BY created_at`, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

func (s *Store) requireAffected(ctx context.Context, res sql.Result, id domain.JobID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*jobs.Job, error) {
	var (
		id       uuid.UUID
		status   string
		finished sql.NullTime
		webhook  sql.NullTime
		job      jobs.Job
	)
	err := sc.Scan(&id, &status, &job.Total, &job.WebhookURL, &job.Requester, &job.FailureReason,
		&job.CreatedAt, &job.UpdatedAt, &finished, &webhook)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.ID = domain.JobID(id)
	job.Status = jobs.Status(status)
	if finished.Valid {
		job.FinishedAt = &finished.Time
	}
	if webhook.Valid {
		job.WebhookAttemptedAt = &webhook.Time
	}
	return &job, nil
}

func scanItem(sc scanner) (*jobs.Item, error) {
	var (
		input   []byte
		status  string
		result  []byte
		auditID uuid.NullUUID
		it      jobs.Item
	)
	if err := sc.Scan(&it.Index, &input, &status, &result, &it.ErrorCode, &it.ErrorMessage, &auditID, &it.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan job item: %w", err)
	}
	it.Status = jobs.ItemStatus(status)

	var view jobs.InputView
	if err := json.Unmarshal(input, &view); err != nil {
		return nil, fmt.Errorf("unmarshal item %d input: %w", it.Index, err)
	}
	in, err := view.Input()
	if err != nil {
		return nil, fmt.Errorf("item %d input: %w", it.Index, err)
	}
	it.Input = in

	if auditID.Valid {
		it.AuditRecordID = domain.AuditRecordID(auditID.UUID)
	}
	if len(result) > 0 {
		var rv decision.View
		if err := json.Unmarshal(result, &rv); err != nil {
			return nil, fmt.Errorf("unmarshal item %d result: %w", it.Index, err)
		}
		if it.Result, err = rv.Result(); err != nil {
			return nil, fmt.Errorf("decode item %d result: %w", it.Index, err)
		}
	}
	return &it, nil
}
