//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"gonogo/internal/audit"
	"gonogo/internal/audit/store/postgres"
	"gonogo/internal/decision"
	"gonogo/internal/evidence"
	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
	"gonogo/pkg/platform/sentinel"
	"gonogo/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_records"))
}

func (s *PostgresStoreSuite) newRecord(jobID *domain.JobID, idx *int) *audit.Record {
	at := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	std := sizestd.Defaults()[0]
	basis, err := sizestd.NewSizeBasis("receipts", decimal.NewFromInt(1_000_000))
	s.Require().NoError(err)
	r, err := audit.NewRecord(decision.AuditEntry{
		Identifier: domain.MustIdentifier(domain.IdentifierUEI, "ABC123DEF456"),
		NAICS:      std.NAICS,
		Result: &decision.EligibilityResult{
			Eligible: true,
			Summary:  "No exclusions; active registration; size small",
			Reasons: []decision.Reason{
				{Code: decision.ReasonNoExclusions, Message: "No active exclusions found."},
				{Code: decision.ReasonRegistrationActive, Message: "Entity has an active registration."},
				{Code: decision.ReasonSizeSmall, Message: "Entity is small."},
			},
			Evidence: []evidence.Evidence{
				{Source: evidence.SourceExclusions, Reference: "mock", FetchedAt: at},
				{Source: evidence.SourceRegistration, Reference: "mock", FetchedAt: at},
				{Source: evidence.SourceSizeStandard, Reference: "default:" + std.NAICS.String(), FetchedAt: at},
			},
			Registration: decision.RegistrationCheck{Status: evidence.RegistrationActive, UEI: "ABC123DEF456"},
			Size:         sizestd.Determine(std.NAICS, basis, &std, sizestd.SourceDefault),
			EvaluatedAt:  at,
		},
		JobID:     jobID,
		ItemIndex: idx,
		Requester: "key:abc",
		RequestID: "req-1",
	}, at)
	s.Require().NoError(err)
	return r
}

func (s *PostgresStoreSuite) TestAppendAndGet() {
	ctx := context.Background()
	rec := s.newRecord(nil, nil)
	s.Require().NoError(s.store.Append(ctx, rec))

	got, err := s.store.Get(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.True(rec.RecordedAt.Equal(got.RecordedAt))
	s.Equal(rec.Identifier, got.Identifier)
	s.Nil(got.JobID)
	s.Equal(rec.Result.ReasonCodes(), got.Result.ReasonCodes())
	s.Equal(rec.Result.Size.Verdict, got.Result.Size.Verdict)
	s.True(rec.Result.Size.Standard.Threshold.Equal(got.Result.Size.Standard.Threshold))
	s.Equal(rec.ID, got.Result.AuditRecordID)

	var codes []string
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT reason_codes FROM audit_records WHERE id = $1`, rec.ID.String(),
	).Scan(pq.Array(&codes)))
	s.Equal([]string{"NO_EXCLUSIONS", "REGISTRATION_ACTIVE", "SIZE_SMALL"}, codes)

	_, err = s.store.Get(ctx, domain.NewAuditRecordID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByJobInItemOrder() {
	ctx := context.Background()
	jobID := domain.NewJobID()
	for _, idx := range []int{2, 0, 1} {
		i := idx
		s.Require().NoError(s.store.Append(ctx, s.newRecord(&jobID, &i)))
	}

	recs, err := s.store.ListByJob(ctx, jobID)
	s.Require().NoError(err)
	s.Require().Len(recs, 3)
	for i, r := range recs {
		s.Equal(i, *r.ItemIndex)
		s.Equal(jobID, *r.JobID)
	}
}

func (s *PostgresStoreSuite) TestRecordsAreAppendOnly() {
	ctx := context.Background()
	rec := s.newRecord(nil, nil)
	s.Require().NoError(s.store.Append(ctx, rec))

	err := s.postgres.Exec(ctx, `UPDATE audit_records SET requester = 'tampered' WHERE id = $1`, rec.ID.String())
	s.Require().Error(err)
	s.Contains(err.Error(), "append-only")

	err = s.postgres.Exec(ctx, `DELETE FROM audit_records WHERE id = $1`, rec.ID.String())
	s.Require().Error(err)
}
