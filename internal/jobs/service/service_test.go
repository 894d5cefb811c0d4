package service_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Evaluator,Notifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gonogo/internal/audit"
	auditmemory "gonogo/internal/audit/store/memory"
	"gonogo/internal/decision"
	"gonogo/internal/evidence/providers/simulated"
	"gonogo/internal/jobs"
	jobmocks "gonogo/internal/jobs/mocks"
	"gonogo/internal/jobs/service"
	"gonogo/internal/jobs/service/mocks"
	"gonogo/internal/jobs/store/memory"
	"gonogo/internal/jobs/webhook"
	"gonogo/internal/sizestd"
	sizememory "gonogo/internal/sizestd/store/memory"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

// =============================================================================
// Orchestrator Test Suite
// =============================================================================
// Jobs must always reach a terminal status with every item terminal, deliver
// at most one webhook, and only fail when their own state cannot be persisted.

type OrchestratorSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	store     *memory.InMemoryStore
	evaluator *mocks.MockEvaluator
	notifier  *mocks.MockNotifier
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.store = memory.NewInMemoryStore()
	s.evaluator = mocks.NewMockEvaluator(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
}

func (s *OrchestratorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrchestratorSuite) newOrchestrator(store jobs.Store, eval service.Evaluator, opts ...service.Option) *service.Orchestrator {
	opts = append([]service.Option{service.WithNotifier(s.notifier)}, opts...)
	o, err := service.New(store, eval, opts...)
	s.Require().NoError(err)
	return o
}

func uei(i int) domain.Identifier {
	return domain.MustIdentifier(domain.IdentifierUEI, fmt.Sprintf("UEI%09d", i))
}

func inputs(n int) []jobs.ItemInput {
	out := make([]jobs.ItemInput, n)
	for i := range out {
		out[i] = jobs.ItemInput{Identifier: uei(i), NAICS: "541511"}
	}
	return out
}

func cleanResult() *decision.EligibilityResult {
	return &decision.EligibilityResult{Eligible: true, AuditRecordID: domain.NewAuditRecordID()}
}

// finish waits for every job goroutine and returns the final snapshot.
func (s *OrchestratorSuite) finish(o *service.Orchestrator, id domain.JobID) *jobs.Snapshot {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	s.Require().NoError(o.Shutdown(ctx))
	snap, err := s.store.Snapshot(s.ctx, id)
	s.Require().NoError(err)
	return snap
}

func (s *OrchestratorSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := service.New(nil, s.evaluator)
		s.ErrorContains(err, "job store is required")
	})
	s.Run("nil evaluator returns error", func() {
		_, err := service.New(s.store, nil)
		s.ErrorContains(err, "evaluator is required")
	})
}

func (s *OrchestratorSuite) TestSubmitReturnsBeforeItemsRun() {
	release := make(chan struct{})
	s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ decision.EvaluateRequest) (*decision.EligibilityResult, error) {
			<-release
			return cleanResult(), nil
		})
	o := s.newOrchestrator(s.store, s.evaluator)

	job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(1), Requester: "key:abc"})
	s.Require().NoError(err)
	s.Equal(jobs.StatusRunning, job.Status)

	snap, err := o.Get(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(jobs.StatusRunning, snap.Job.Status)
	s.Equal("key:abc", snap.Job.Requester)
	s.Equal(1, snap.Counts.Pending)

	close(release)
	final := s.finish(o, job.ID)
	s.Equal(jobs.StatusCompleted, final.Job.Status)
}

func (s *OrchestratorSuite) TestNItemsReachNTerminalStatusesInOrder() {
	const n, limit = 25, 3
	var inFlight, peak atomic.Int32
	s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Times(n).
		DoAndReturn(func(ctx context.Context, req decision.EvaluateRequest) (*decision.EligibilityResult, error) {
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
			if *req.ItemIndex%5 == 0 {
				return nil, dErrors.New(dErrors.CodeStorage, "audit write failed")
			}
			return cleanResult(), nil
		})
	o := s.newOrchestrator(s.store, s.evaluator, service.WithConcurrency(limit))

	job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(n)})
	s.Require().NoError(err)
	snap := s.finish(o, job.ID)

	s.Equal(jobs.StatusCompleted, snap.Job.Status)
	s.Require().Len(snap.Items, n)
	s.Equal(0, snap.Counts.Pending)
	s.Equal(n, snap.Counts.Completed())
	s.Equal(5, snap.Counts.Errored)
	for i, it := range snap.Items {
		s.Equal(i, it.Index)
		s.True(it.Status.IsTerminal())
		s.Equal(uei(i), it.Input.Identifier)
	}
	s.Equal(string(dErrors.CodeStorage), snap.Items[0].ErrorCode)
	s.LessOrEqual(peak.Load(), int32(limit))
}

func (s *OrchestratorSuite) TestItemCarriesJobContext() {
	s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req decision.EvaluateRequest) (*decision.EligibilityResult, error) {
			s.NotNil(req.JobID)
			s.Equal(0, *req.ItemIndex)
			s.Equal("key:abc", req.Requester)
			return cleanResult(), nil
		})
	o := s.newOrchestrator(s.store, s.evaluator)

	job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(1), Requester: "key:abc"})
	s.Require().NoError(err)
	snap := s.finish(o, job.ID)
	s.Equal(jobs.ItemDone, snap.Items[0].Status)
	s.False(snap.Items[0].AuditRecordID.IsNil())
}

func (s *OrchestratorSuite) TestDegradedResultIsItemError() {
	degraded := cleanResult()
	degraded.Eligible = false
	degraded.Registration.Degraded = true
	s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(degraded, nil)
	o := s.newOrchestrator(s.store, s.evaluator)

	job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(1)})
	s.Require().NoError(err)
	snap := s.finish(o, job.ID)

	it := snap.Items[0]
	s.Equal(jobs.ItemError, it.Status)
	s.Equal(string(dErrors.CodeProviderUnavailable), it.ErrorCode)
	s.Equal("registration check unavailable", it.ErrorMessage)
	s.Same(degraded, it.Result)
	s.Equal(degraded.AuditRecordID, it.AuditRecordID)
	s.Equal(jobs.StatusCompleted, snap.Job.Status)
}

func (s *OrchestratorSuite) TestItemTimeout() {
	s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ decision.EvaluateRequest) (*decision.EligibilityResult, error) {
			<-ctx.Done()
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeStorage, "failed to record evaluation")
		})
	o := s.newOrchestrator(s.store, s.evaluator, service.WithItemTimeout(20*time.Millisecond))

	job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(1)})
	s.Require().NoError(err)
	snap := s.finish(o, job.ID)

	s.Equal(jobs.StatusCompleted, snap.Job.Status)
	s.Equal(jobs.ItemError, snap.Items[0].Status)
	s.Equal(string(dErrors.CodeTimeout), snap.Items[0].ErrorCode)
}

func (s *OrchestratorSuite) TestWebhook() {
	s.Run("exactly one attempt with the job summary", func() {
		s.SetupTest()
		s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(cleanResult(), nil).Times(1)
		s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeStorage, "down")).Times(1)
		var got webhook.Payload
		s.notifier.EXPECT().Notify(gomock.Any(), "https://hooks.example.com/done", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, p webhook.Payload) error {
				got = p
				return nil
			}).Times(1)
		o := s.newOrchestrator(s.store, s.evaluator, service.WithConcurrency(1))

		job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(2), WebhookURL: "https://hooks.example.com/done"})
		s.Require().NoError(err)
		snap := s.finish(o, job.ID)

		s.Equal(job.ID.String(), got.JobID)
		s.Equal("completed", got.Status)
		s.Equal(2, got.Total)
		s.Equal(2, got.Completed)
		s.Equal(1, got.Errored)
		s.False(got.CompletedAt.IsZero())
		s.NotNil(snap.Job.WebhookAttemptedAt)
	})

	s.Run("no url means no attempt", func() {
		s.SetupTest()
		s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(cleanResult(), nil)
		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		o := s.newOrchestrator(s.store, s.evaluator)

		job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(1)})
		s.Require().NoError(err)
		snap := s.finish(o, job.ID)
		s.Nil(snap.Job.WebhookAttemptedAt)
	})

	s.Run("delivery failure leaves job completed", func() {
		s.SetupTest()
		s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(cleanResult(), nil)
		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused")).Times(1)
		o := s.newOrchestrator(s.store, s.evaluator)

		job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(1), WebhookURL: "http://127.0.0.1:1/hook"})
		s.Require().NoError(err)
		snap := s.finish(o, job.ID)
		s.Equal(jobs.StatusCompleted, snap.Job.Status)
	})
}

func (s *OrchestratorSuite) TestSubmitValidation() {
	store := jobmocks.NewMockStore(s.ctrl)
	o := s.newOrchestrator(store, s.evaluator, service.WithMaxItems(3))

	cases := map[string]service.SubmitRequest{
		"no items":        {},
		"too many items":  {Items: inputs(4)},
		"zero identifier": {Items: []jobs.ItemInput{{NAICS: "541511"}}},
		"bad naics":       {Items: []jobs.ItemInput{{Identifier: uei(1), NAICS: "54151"}}},
		"relative url":    {Items: inputs(1), WebhookURL: "/hook"},
		"ftp url":         {Items: inputs(1), WebhookURL: "ftp://example.com/hook"},
	}
	for name, req := range cases {
		s.Run(name, func() {
			_, err := o.Submit(s.ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)
		})
	}
}

func (s *OrchestratorSuite) TestSubmitStorageFailure() {
	store := jobmocks.NewMockStore(s.ctrl)
	store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
	o := s.newOrchestrator(store, s.evaluator)

	_, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(1)})
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))
}

func (s *OrchestratorSuite) TestItemPersistFailureFailsJob() {
	store := jobmocks.NewMockStore(s.ctrl)
	gomock.InOrder(
		store.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Len(2)).Return(nil),
		store.EXPECT().Transition(gomock.Any(), gomock.Any(), jobs.StatusQueued, jobs.StatusRunning, "", gomock.Any()).Return(nil),
		store.EXPECT().CompleteItem(gomock.Any(), gomock.Any(), 0, gomock.Any()).Return(errors.New("disk full")),
		store.EXPECT().FailPending(gomock.Any(), gomock.Any(), jobs.ReasonOrchestration, gomock.Any(), gomock.Any()).Return(2, nil),
		store.EXPECT().Transition(gomock.Any(), gomock.Any(), jobs.StatusRunning, jobs.StatusFailed, jobs.ReasonOrchestration, gomock.Any()).Return(nil),
	)
	s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(cleanResult(), nil).Times(1)
	o := s.newOrchestrator(store, s.evaluator, service.WithConcurrency(1))

	_, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(2), WebhookURL: "https://hooks.example.com/x"})
	s.Require().NoError(err)
	s.Require().NoError(o.Shutdown(s.ctx))
}

func (s *OrchestratorSuite) TestReadsNeverSeeCompletedWithPendingItems() {
	s.evaluator.EXPECT().Evaluate(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(context.Context, decision.EvaluateRequest) (*decision.EligibilityResult, error) {
			time.Sleep(time.Millisecond)
			return cleanResult(), nil
		})
	o := s.newOrchestrator(s.store, s.evaluator, service.WithConcurrency(4))

	job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(40)})
	s.Require().NoError(err)

	for {
		snap, err := o.Get(s.ctx, job.ID)
		s.Require().NoError(err)
		if snap.Job.Status == jobs.StatusCompleted {
			s.Zero(snap.Counts.Pending)
			break
		}
	}
	s.finish(o, job.ID)
}

func (s *OrchestratorSuite) TestGetUnknownJob() {
	o := s.newOrchestrator(s.store, s.evaluator)
	_, err := o.Get(s.ctx, domain.NewJobID())
	s.True(dErrors.HasCode(err, dErrors.CodeJobNotFound))

	ok, err := o.Exists(s.ctx, domain.NewJobID())
	s.Require().NoError(err)
	s.False(ok)
}

func (s *OrchestratorSuite) TestSubmitAfterShutdown() {
	o := s.newOrchestrator(s.store, s.evaluator)
	s.Require().NoError(o.Shutdown(s.ctx))
	_, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(1)})
	s.Error(err)
}

// =============================================================================
// Restart recovery
// =============================================================================

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	released int
}

func (l *fakeLocker) Obtain(context.Context, string, time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, service.ErrLockHeld
	}
	l.held = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, nil
}

func (s *OrchestratorSuite) seed(status jobs.Status, done int, total int) domain.JobID {
	now := time.Now().UTC()
	job := &jobs.Job{ID: domain.NewJobID(), Status: jobs.StatusQueued, Total: total, CreatedAt: now, UpdatedAt: now}
	items := make([]*jobs.Item, total)
	for i := range items {
		items[i] = &jobs.Item{JobID: job.ID, Index: i, Input: inputs(total)[i], Status: jobs.ItemPending}
	}
	s.Require().NoError(s.store.Create(s.ctx, job, items))
	for i := range done {
		s.Require().NoError(s.store.CompleteItem(s.ctx, job.ID, i, jobs.Outcome{Status: jobs.ItemDone, At: now}))
	}
	if status != jobs.StatusQueued {
		s.Require().NoError(s.store.Transition(s.ctx, job.ID, jobs.StatusQueued, jobs.StatusRunning, "", now))
	}
	if status == jobs.StatusCompleted {
		s.Require().NoError(s.store.Transition(s.ctx, job.ID, jobs.StatusRunning, jobs.StatusCompleted, "", now))
	}
	return job.ID
}

func (s *OrchestratorSuite) TestRecoverOrphaned() {
	running := s.seed(jobs.StatusRunning, 1, 3)
	queued := s.seed(jobs.StatusQueued, 0, 2)
	completed := s.seed(jobs.StatusCompleted, 2, 2)
	locker := &fakeLocker{}
	o := s.newOrchestrator(s.store, s.evaluator, service.WithLocker(locker))

	n, err := o.RecoverOrphaned(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal(1, locker.released)

	snap, err := o.Get(s.ctx, running)
	s.Require().NoError(err)
	s.Equal(jobs.StatusFailed, snap.Job.Status)
	s.Equal(jobs.ReasonFailedOnRestart, snap.Job.FailureReason)
	s.Equal(jobs.Counts{Done: 1, Errored: 2}, snap.Counts)
	s.Equal(jobs.ReasonFailedOnRestart, snap.Items[2].ErrorCode)

	snap, err = o.Get(s.ctx, queued)
	s.Require().NoError(err)
	s.Equal(jobs.StatusFailed, snap.Job.Status)

	snap, err = o.Get(s.ctx, completed)
	s.Require().NoError(err)
	s.Equal(jobs.StatusCompleted, snap.Job.Status)
}

func (s *OrchestratorSuite) TestRecoverOrphanedSkipsWhenLockHeld() {
	running := s.seed(jobs.StatusRunning, 0, 1)
	locker := &fakeLocker{held: true}
	o := s.newOrchestrator(s.store, s.evaluator, service.WithLocker(locker))

	n, err := o.RecoverOrphaned(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	job, err := s.store.Get(s.ctx, running)
	s.Require().NoError(err)
	s.Equal(jobs.StatusRunning, job.Status)
}

// =============================================================================
// End to end through the evaluator and audit recorder
// =============================================================================

func (s *OrchestratorSuite) TestBulkWithOneFailingProvider() {
	failing := uei(1)
	auditStore := auditmemory.NewInMemoryStore()
	recorder, err := audit.New(auditStore)
	s.Require().NoError(err)
	evaluator, err := decision.New(
		simulated.NewExclusionProvider(simulated.WithFailureFor(failing)),
		simulated.NewRegistrationProvider(),
		sizestd.New(sizememory.NewInMemory()),
		recorder,
	)
	s.Require().NoError(err)

	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Times(1)
	o := s.newOrchestrator(s.store, evaluator)

	job, err := o.Submit(s.ctx, service.SubmitRequest{Items: inputs(3), WebhookURL: "https://hooks.example.com/bulk"})
	s.Require().NoError(err)
	snap := s.finish(o, job.ID)

	s.Equal(jobs.StatusCompleted, snap.Job.Status)
	s.Equal(jobs.ItemDone, snap.Items[0].Status)
	s.Equal(jobs.ItemError, snap.Items[1].Status)
	s.Equal(jobs.ItemDone, snap.Items[2].Status)
	s.Equal(string(dErrors.CodeProviderUnavailable), snap.Items[1].ErrorCode)
	s.True(snap.Items[1].Result.Exclusions.Degraded)

	records, err := recorder.ListByJob(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	for i, rec := range records {
		s.Equal(i, *rec.ItemIndex)
		s.Equal(snap.Items[i].AuditRecordID, rec.ID)
	}
}
