package decision_test

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks AuditRecorder,SizeDeterminer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gonogo/internal/decision"
	"gonogo/internal/decision/mocks"
	"gonogo/internal/evidence"
	evidencemocks "gonogo/internal/evidence/mocks"
	"gonogo/internal/evidence/providers"
	"gonogo/internal/evidence/providers/simulated"
	"gonogo/internal/sizestd"
	"gonogo/internal/sizestd/store/memory"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/requestcontext"
)

// =============================================================================
// Evaluator Test Suite
// =============================================================================
// The evaluator composes independently failing checks; these tests pin the
// decision rule, fixed reason ordering, degradation and the fail-closed audit
// write.

type EvaluatorSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	recorder *mocks.MockAuditRecorder
	sizes    *sizestd.Service
	recordID domain.AuditRecordID
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.recorder = mocks.NewMockAuditRecorder(s.ctrl)
	s.sizes = sizestd.New(memory.NewInMemory())
	s.recordID = domain.NewAuditRecordID()
}

func (s *EvaluatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EvaluatorSuite) newService(exc evidence.ExclusionProvider, reg evidence.RegistrationProvider, opts ...decision.Option) *decision.Service {
	svc, err := decision.New(exc, reg, s.sizes, s.recorder, opts...)
	s.Require().NoError(err)
	return svc
}

func (s *EvaluatorSuite) request(basis int64) decision.EvaluateRequest {
	req := decision.EvaluateRequest{
		Identifier: domain.MustIdentifier(domain.IdentifierUEI, "ABC123DEF456"),
		NAICS:      "541511",
		Requester:  "key:abc",
	}
	if basis > 0 {
		b, err := sizestd.NewSizeBasis("receipts", decimal.NewFromInt(basis))
		s.Require().NoError(err)
		req.Basis = b
	}
	return req
}

func (s *EvaluatorSuite) expectRecord() {
	s.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(s.recordID, nil)
}

func (s *EvaluatorSuite) TestNew() {
	exc, reg := simulated.NewExclusionProvider(), simulated.NewRegistrationProvider()

	s.Run("nil exclusion provider returns error", func() {
		_, err := decision.New(nil, reg, s.sizes, s.recorder)
		s.ErrorContains(err, "exclusion provider is required")
	})
	s.Run("nil registration provider returns error", func() {
		_, err := decision.New(exc, nil, s.sizes, s.recorder)
		s.ErrorContains(err, "registration provider is required")
	})
	s.Run("nil size determiner returns error", func() {
		_, err := decision.New(exc, reg, nil, s.recorder)
		s.ErrorContains(err, "size determiner is required")
	})
	s.Run("nil recorder returns error", func() {
		_, err := decision.New(exc, reg, s.sizes, nil)
		s.ErrorContains(err, "audit recorder is required")
	})
}

func (s *EvaluatorSuite) TestReceiptsScenario() {
	svc := s.newService(simulated.NewExclusionProvider(), simulated.NewRegistrationProvider())

	s.Run("34M is small", func() {
		s.expectRecord()
		res, err := svc.Evaluate(context.Background(), s.request(34_000_000))
		s.Require().NoError(err)
		s.True(res.Eligible)
		s.Equal(sizestd.VerdictSmall, res.Size.Verdict)
		s.Equal(s.recordID, res.AuditRecordID)
	})

	s.Run("36M is not small and ineligible", func() {
		s.expectRecord()
		res, err := svc.Evaluate(context.Background(), s.request(36_000_000))
		s.Require().NoError(err)
		s.False(res.Eligible)
		s.Contains(res.ReasonCodes(), string(decision.ReasonSizeNotSmall))
	})
}

func (s *EvaluatorSuite) TestNoBasisCleanProviders() {
	svc := s.newService(simulated.NewExclusionProvider(), simulated.NewRegistrationProvider())
	s.expectRecord()

	res, err := svc.Evaluate(context.Background(), s.request(0))
	s.Require().NoError(err)
	s.True(res.Eligible)
	s.Equal([]string{"NO_EXCLUSIONS", "REGISTRATION_ACTIVE", "SIZE_UNKNOWN"}, res.ReasonCodes())
	s.NotContains(res.ReasonCodes(), string(decision.ReasonSizeNotSmall))

	s.Require().Len(res.Evidence, 3)
	s.Equal(evidence.MockReference, res.Evidence[0].Reference)
	s.Equal(evidence.MockReference, res.Evidence[1].Reference)
}

func (s *EvaluatorSuite) TestUnknownSizeDenyPolicy() {
	svc := s.newService(simulated.NewExclusionProvider(), simulated.NewRegistrationProvider(),
		decision.WithUnknownSizePolicy(decision.UnknownSizeDeny))
	s.expectRecord()

	res, err := svc.Evaluate(context.Background(), s.request(0))
	s.Require().NoError(err)
	s.False(res.Eligible)
}

func (s *EvaluatorSuite) TestOrderingIndependentOfLatency() {
	latencies := [][2]time.Duration{
		{40 * time.Millisecond, 0},
		{0, 40 * time.Millisecond},
		{10 * time.Millisecond, 10 * time.Millisecond},
	}

	var first []string
	for _, l := range latencies {
		svc := s.newService(
			simulated.NewExclusionProvider(simulated.WithLatency(l[0])),
			simulated.NewRegistrationProvider(simulated.WithLatency(l[1])),
		)
		s.expectRecord()
		res, err := svc.Evaluate(context.Background(), s.request(36_000_000))
		s.Require().NoError(err)

		codes := res.ReasonCodes()
		sources := make([]string, len(res.Evidence))
		for i, ev := range res.Evidence {
			sources[i] = ev.Source
		}
		s.Equal([]string{evidence.SourceExclusions, evidence.SourceRegistration, evidence.SourceSizeStandard}, sources)
		if first == nil {
			first = codes
			continue
		}
		s.Equal(first, codes)
	}
}

func (s *EvaluatorSuite) TestLookupsRunConcurrently() {
	svc := s.newService(
		simulated.NewExclusionProvider(simulated.WithLatency(150*time.Millisecond)),
		simulated.NewRegistrationProvider(simulated.WithLatency(150*time.Millisecond)),
	)
	s.expectRecord()

	start := time.Now()
	_, err := svc.Evaluate(context.Background(), s.request(0))
	s.Require().NoError(err)
	s.Less(time.Since(start), 280*time.Millisecond)
}

func (s *EvaluatorSuite) TestProviderFailureDegradesOnlyThatCheck() {
	exc := evidencemocks.NewMockExclusionProvider(s.ctrl)
	exc.EXPECT().Source().Return(evidence.SourceExclusions).AnyTimes()
	exc.EXPECT().CheckExclusions(gomock.Any(), gomock.Any()).
		Return(nil, providers.NewProviderError(providers.ErrorProviderOutage, evidence.SourceExclusions, "down", nil))

	svc := s.newService(exc, simulated.NewRegistrationProvider())
	s.expectRecord()

	res, err := svc.Evaluate(context.Background(), s.request(1_000_000))
	s.Require().NoError(err, "provider failures never abort the evaluation")
	s.True(res.Exclusions.Degraded)
	s.False(res.Registration.Degraded)
	s.Equal([]string{"EXCLUSIONS_CHECK_UNAVAILABLE", "REGISTRATION_ACTIVE", "SIZE_SMALL"}, res.ReasonCodes())
	s.False(res.Eligible)
}

func (s *EvaluatorSuite) TestEvidenceTimeout() {
	svc := s.newService(
		simulated.NewExclusionProvider(simulated.WithLatency(time.Second)),
		simulated.NewRegistrationProvider(),
		decision.WithEvidenceTimeout(30*time.Millisecond),
	)
	s.expectRecord()

	res, err := svc.Evaluate(context.Background(), s.request(0))
	s.Require().NoError(err)
	s.True(res.Exclusions.Degraded)
	s.Equal("timeout", res.Exclusions.FailureReason)
	s.False(res.Registration.Degraded)
}

func (s *EvaluatorSuite) TestAuditEntry() {
	svc := s.newService(simulated.NewExclusionProvider(), simulated.NewRegistrationProvider())
	jobID := domain.NewJobID()
	index := 4

	s.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, entry decision.AuditEntry) (domain.AuditRecordID, error) {
			s.Equal("ABC123DEF456", entry.Identifier.Value())
			s.Equal(domain.NAICSCode("541511"), entry.NAICS)
			s.Equal(jobID, *entry.JobID)
			s.Equal(4, *entry.ItemIndex)
			s.Equal("key:abc", entry.Requester)
			s.Equal("req-1", entry.RequestID)
			s.NotNil(entry.Result)
			return s.recordID, nil
		})

	req := s.request(0)
	req.JobID = &jobID
	req.ItemIndex = &index
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	_, err := svc.Evaluate(ctx, req)
	s.Require().NoError(err)
}

func (s *EvaluatorSuite) TestAuditedResultIsNotShared() {
	svc := s.newService(simulated.NewExclusionProvider(), simulated.NewRegistrationProvider())

	var audited *decision.EligibilityResult
	s.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry decision.AuditEntry) (domain.AuditRecordID, error) {
			audited = entry.Result
			return s.recordID, nil
		})

	res, err := svc.Evaluate(context.Background(), s.request(34_000_000))
	s.Require().NoError(err)
	s.Require().NotNil(audited)
	s.NotSame(audited, res)
	s.Equal(s.recordID, res.AuditRecordID)
	s.True(audited.AuditRecordID.IsNil(), "evaluator must not write to the audited result")

	res.Reasons[0].Message = "changed"
	s.NotEqual("changed", audited.Reasons[0].Message)
}

func (s *EvaluatorSuite) TestAuditFailureIsFatal() {
	svc := s.newService(simulated.NewExclusionProvider(), simulated.NewRegistrationProvider())
	s.recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(domain.AuditRecordID{}, errors.New("disk full"))

	res, err := svc.Evaluate(context.Background(), s.request(0))
	s.Nil(res, "no trusted result without an audit record")
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))
}

func (s *EvaluatorSuite) TestInvalidInputSkipsProviders() {
	exc := evidencemocks.NewMockExclusionProvider(s.ctrl)
	reg := evidencemocks.NewMockRegistrationProvider(s.ctrl)
	svc := s.newService(exc, reg)

	s.Run("missing identifier", func() {
		_, err := svc.Evaluate(context.Background(), decision.EvaluateRequest{NAICS: "541511"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("malformed NAICS", func() {
		req := s.request(0)
		req.NAICS = "54151"
		_, err := svc.Evaluate(context.Background(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
