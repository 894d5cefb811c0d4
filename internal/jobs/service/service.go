package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gonogo/internal/decision"
	"gonogo/internal/jobs"
	"gonogo/internal/jobs/metrics"
	"gonogo/internal/jobs/webhook"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/platform/sentinel"
)

const (
	defaultConcurrency = 4
	defaultItemTimeout = 30 * time.Second
	defaultMaxItems    = 1000
	persistTimeout     = 5 * time.Second

	recoveryLockKey = "gonogo:jobs:recover"
	recoveryLockTTL = 30 * time.Second
)

// Evaluator runs one eligibility evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, req decision.EvaluateRequest) (*decision.EligibilityResult, error)
}

// Notifier makes one webhook delivery attempt.
type Notifier interface {
	Notify(ctx context.Context, url string, p webhook.Payload) error
}

// SubmitRequest is a validated bulk submission.
type SubmitRequest struct {
	Items      []jobs.ItemInput
	WebhookURL string
	Requester  string
}

// Orchestrator runs bulk jobs. Items go through the Evaluator on a bounded
// worker pool; job status is derived from the item arena, never set directly
// by workers.
type Orchestrator struct {
	store       jobs.Store
	evaluator   Evaluator
	notifier    Notifier
	locker      Locker
	concurrency int
	itemTimeout time.Duration
	maxItems    int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	now         func() time.Time

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	active map[domain.JobID]struct{}
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithConcurrency bounds how many items of one job evaluate at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithItemTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.itemTimeout = d
		}
	}
}

func WithMaxItems(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxItems = n
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLocker guards RecoverOrphaned across instances sharing one database.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

func New(store jobs.Store, evaluator Evaluator, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("job store is required")
	}
	if evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	base, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:       store,
		evaluator:   evaluator,
		notifier:    webhook.New(),
		concurrency: defaultConcurrency,
		itemTimeout: defaultItemTimeout,
		maxItems:    defaultMaxItems,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer("gonogo/jobs"),
		now:         func() time.Time { return time.Now().UTC() },
		base:        base,
		cancel:      cancel,
		active:      make(map[domain.JobID]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Submit persists the job, moves it to running and returns without waiting
// for any item.
//
// Errors: CodeInvalidInput for an empty, oversized or malformed submission;
// CodeStorage when the job cannot be persisted.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*jobs.Job, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	now := o.now()
	job := &jobs.Job{
		ID:         domain.NewJobID(),
		Status:     jobs.StatusQueued,
		Total:      len(req.Items),
		WebhookURL: req.WebhookURL,
		Requester:  req.Requester,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	items := make([]*jobs.Item, len(req.Items))
	for i, in := range req.Items {
		items[i] = &jobs.Item{JobID: job.ID, Index: i, Input: in, Status: jobs.ItemPending, UpdatedAt: now}
	}

	if !o.track(job.ID) {
		return nil, dErrors.New(dErrors.CodeInternal, "job orchestrator is shutting down")
	}
	launched := false
	defer func() {
		if !launched {
			o.untrack(job.ID)
		}
	}()

	if err := o.store.Create(ctx, job, items); err != nil {
		o.logger.ErrorContext(ctx, "job persistence failed", "job_id", job.ID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to persist job")
	}
	if err := o.store.Transition(ctx, job.ID, jobs.StatusQueued, jobs.StatusRunning, "", now); err != nil {
		o.logger.ErrorContext(ctx, "job start failed", "job_id", job.ID, "error", err)
		o.abort(ctx, job, jobs.StatusQueued)
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to start job")
	}
	job.Status = jobs.StatusRunning

	o.metrics.JobStarted()
	o.logger.InfoContext(ctx, "job submitted",
		"job_id", job.ID,
		"total", job.Total,
		"webhook", job.WebhookURL != "",
	)

	launched = true
	go func() {
		defer o.untrack(job.ID)
		o.run(job, items)
	}()
	return job, nil
}

func (o *Orchestrator) validate(req SubmitRequest) error {
	if len(req.Items) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one item is required")
	}
	if len(req.Items) > o.maxItems {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("at most %d items per job", o.maxItems))
	}
	for i, in := range req.Items {
		if err := in.Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("items[%d]: %s", i, dErrors.Message(err)))
		}
	}
	if req.WebhookURL != "" {
		u, err := url.Parse(req.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "webhook_url must be an absolute http or https URL")
		}
	}
	return nil
}

func (o *Orchestrator) track(id domain.JobID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.wg.Add(1)
	o.active[id] = struct{}{}
	return true
}

func (o *Orchestrator) untrack(id domain.JobID) {
	o.mu.Lock()
	delete(o.active, id)
	o.mu.Unlock()
	o.wg.Done()
}

func (o *Orchestrator) isActive(id domain.JobID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[id]
	return ok
}

// run evaluates every item and then finalizes the job. Only a failure to
// persist item state stops dispatch; item-level evaluation errors never do.
func (o *Orchestrator) run(job *jobs.Job, items []*jobs.Item) {
	g, ctx := errgroup.WithContext(o.base)
	g.SetLimit(o.concurrency)
	for _, it := range items {
		g.Go(func() error {
			return o.processItem(ctx, job, it)
		})
	}
	if err := g.Wait(); err != nil {
		o.logger.Error("job aborted", "job_id", job.ID, "error", err)
		o.abort(o.base, job, jobs.StatusRunning)
		return
	}
	o.complete(job)
}

func (o *Orchestrator) processItem(ctx context.Context, job *jobs.Job, it *jobs.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	itemCtx, cancel := context.WithTimeout(ctx, o.itemTimeout)
	defer cancel()
	itemCtx, span := o.tracer.Start(itemCtx, "jobs.item", trace.WithAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.Int("item.index", it.Index),
	))
	defer span.End()

	jobID, index := job.ID, it.Index
	result, err := o.evaluator.Evaluate(itemCtx, decision.EvaluateRequest{
		Identifier: it.Input.Identifier,
		NAICS:      it.Input.NAICS,
		Basis:      it.Input.Basis,
		JobID:      &jobID,
		ItemIndex:  &index,
		Requester:  job.Requester,
	})
	out := o.outcome(itemCtx, result, err)
	span.SetAttributes(attribute.String("item.status", string(out.Status)))
	if out.Status == jobs.ItemError {
		span.SetStatus(codes.Error, out.ErrorCode)
	}

	pctx, pcancel := persistContext(ctx)
	defer pcancel()
	if err := o.store.CompleteItem(pctx, job.ID, it.Index, out); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			o.logger.Warn("job item already terminal", "job_id", job.ID, "index", it.Index)
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("persist item %d: %w", it.Index, err)
	}
	o.metrics.ObserveItem(string(out.Status), out.ErrorCode, time.Since(start))
	return nil
}

// outcome maps one evaluation onto a terminal item state. A degraded result
// is an item error but keeps its audited result.
func (o *Orchestrator) outcome(ctx context.Context, result *decision.EligibilityResult, err error) jobs.Outcome {
	out := jobs.Outcome{At: o.now()}
	switch {
	case err != nil:
		out.Status = jobs.ItemError
		out.ErrorCode = string(dErrors.GetCode(err))
		out.ErrorMessage = dErrors.Message(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out.ErrorCode = string(dErrors.CodeTimeout)
			out.ErrorMessage = "item evaluation timed out"
		}
		if out.ErrorMessage == "" {
			out.ErrorMessage = "evaluation failed"
		}
	case result.Degraded():
		out.Status = jobs.ItemError
		out.ErrorCode = string(dErrors.CodeProviderUnavailable)
		out.ErrorMessage = degradedMessage(result)
		out.Result = result
		out.AuditRecordID = result.AuditRecordID
	default:
		out.Status = jobs.ItemDone
		out.Result = result
		out.AuditRecordID = result.AuditRecordID
	}
	return out
}

func degradedMessage(r *decision.EligibilityResult) string {
	switch {
	case r.Exclusions.Degraded && r.Registration.Degraded:
		return "exclusion and registration checks unavailable"
	case r.Exclusions.Degraded:
		return "exclusion check unavailable"
	default:
		return "registration check unavailable"
	}
}

func (o *Orchestrator) complete(job *jobs.Job) {
	ctx, cancel := persistContext(o.base)
	defer cancel()

	completedAt := o.now()
	if err := o.store.Transition(ctx, job.ID, jobs.StatusRunning, jobs.StatusCompleted, "", completedAt); err != nil {
		o.logger.Error("job completion failed", "job_id", job.ID, "error", err)
		o.abort(o.base, job, jobs.StatusRunning)
		return
	}
	o.metrics.JobFinished(string(jobs.StatusCompleted))
	o.logger.Info("job completed", "job_id", job.ID, "total", job.Total)

	o.deliver(ctx, job, completedAt)
}

// deliver claims the single webhook attempt before making it, so a job is
// never notified twice even if completion is observed more than once.
func (o *Orchestrator) deliver(ctx context.Context, job *jobs.Job, completedAt time.Time) {
	if job.WebhookURL == "" {
		return
	}
	snap, err := o.store.Snapshot(ctx, job.ID)
	if err != nil {
		o.logger.Error("webhook skipped: job snapshot failed", "job_id", job.ID, "error", err)
		return
	}
	claimed, err := o.store.ClaimWebhook(ctx, job.ID, o.now())
	if err != nil {
		o.logger.Error("webhook skipped: claim failed", "job_id", job.ID, "error", err)
		return
	}
	if !claimed {
		return
	}

	err = o.notifier.Notify(context.WithoutCancel(ctx), job.WebhookURL, webhook.Payload{
		JobID:       job.ID.String(),
		Status:      string(snap.Job.Status),
		Total:       snap.Job.Total,
		Completed:   snap.Counts.Completed(),
		Errored:     snap.Counts.Errored,
		CompletedAt: completedAt,
	})
	o.metrics.WebhookAttempt(err)
	if err != nil {
		o.logger.Warn("webhook delivery failed", "job_id", job.ID, "error", err)
		return
	}
	o.logger.Info("webhook delivered", "job_id", job.ID)
}

// abort errors every pending item and moves the job from `from` to failed.
func (o *Orchestrator) abort(ctx context.Context, job *jobs.Job, from jobs.Status) {
	ctx, cancel := persistContext(ctx)
	defer cancel()

	now := o.now()
	if _, err := o.store.FailPending(ctx, job.ID, jobs.ReasonOrchestration, "job aborted before this item was evaluated", now); err != nil {
		o.logger.Error("failing pending items failed", "job_id", job.ID, "error", err)
	}
	if err := o.store.Transition(ctx, job.ID, from, jobs.StatusFailed, jobs.ReasonOrchestration, now); err != nil {
		o.logger.Error("marking job failed failed; left for restart recovery", "job_id", job.ID, "error", err)
		return
	}
	if from == jobs.StatusRunning {
		o.metrics.JobFinished(string(jobs.StatusFailed))
	}
}

func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// Get returns a consistent snapshot of the job and its items.
//
// Errors: CodeJobNotFound for an unknown id, CodeStorage otherwise.
func (o *Orchestrator) Get(ctx context.Context, id domain.JobID) (*jobs.Snapshot, error) {
	snap, err := o.store.Snapshot(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeJobNotFound, "job not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load job")
	}
	return snap, nil
}

// Exists reports whether a job with the id was ever submitted.
func (o *Orchestrator) Exists(ctx context.Context, id domain.JobID) (bool, error) {
	_, err := o.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load job")
	}
	return true, nil
}

// RecoverOrphaned marks jobs a previous process left queued or running as
// failed, erroring their pending items. Run it at startup before accepting
// submissions. When another instance holds the recovery lock it does nothing.
func (o *Orchestrator) RecoverOrphaned(ctx context.Context) (int, error) {
	if o.locker != nil {
		release, err := o.locker.Obtain(ctx, recoveryLockKey, recoveryLockTTL)
		if errors.Is(err, ErrLockHeld) {
			o.logger.InfoContext(ctx, "job recovery running elsewhere; skipped")
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("obtain recovery lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				o.logger.WarnContext(ctx, "recovery lock release failed", "error", err)
			}
		}()
	}

	orphans, err := o.store.ListByStatus(ctx, jobs.StatusQueued, jobs.StatusRunning)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list unfinished jobs")
	}

	recovered := 0
	for _, job := range orphans {
		if o.isActive(job.ID) {
			continue
		}
		now := o.now()
		items, err := o.store.FailPending(ctx, job.ID, jobs.ReasonFailedOnRestart, "job interrupted by a restart", now)
		if err != nil {
			return recovered, dErrors.Wrap(err, dErrors.CodeStorage, "failed to error pending items")
		}
		err = o.store.Transition(ctx, job.ID, job.Status, jobs.StatusFailed, jobs.ReasonFailedOnRestart, now)
		if errors.Is(err, sentinel.ErrInvalidState) {
			continue
		}
		if err != nil {
			return recovered, dErrors.Wrap(err, dErrors.CodeStorage, "failed to mark job failed")
		}
		recovered++
		o.logger.WarnContext(ctx, "orphaned job marked failed",
			"job_id", job.ID,
			"previous_status", job.Status,
			"pending_items", items,
		)
	}
	o.metrics.Recovered(recovered)
	return recovered, nil
}

// Shutdown stops accepting jobs and waits for running ones. If ctx ends
// first, in-flight evaluations are cancelled and their jobs finalize as usual.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		return ctx.Err()
	}
}
