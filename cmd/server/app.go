package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gonogo/internal/audit"
	audithandler "gonogo/internal/audit/handler"
	auditmetrics "gonogo/internal/audit/metrics"
	auditmemory "gonogo/internal/audit/store/memory"
	auditpostgres "gonogo/internal/audit/store/postgres"
	"gonogo/internal/audit/stream"
	"gonogo/internal/decision"
	decisionhandler "gonogo/internal/decision/handler"
	decisionmetrics "gonogo/internal/decision/metrics"
	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers/sam"
	"gonogo/internal/evidence/providers/simulated"
	"gonogo/internal/jobs"
	jobhandler "gonogo/internal/jobs/handler"
	jobmetrics "gonogo/internal/jobs/metrics"
	"gonogo/internal/jobs/service"
	jobsmemory "gonogo/internal/jobs/store/memory"
	jobspostgres "gonogo/internal/jobs/store/postgres"
	"gonogo/internal/jobs/webhook"
	"gonogo/internal/platform/config"
	"gonogo/internal/platform/metrics"
	"gonogo/internal/platform/postgres"
	"gonogo/internal/platform/redis"
	rlmetrics "gonogo/internal/ratelimit/metrics"
	rlmiddleware "gonogo/internal/ratelimit/middleware"
	"gonogo/internal/ratelimit/models"
	"gonogo/internal/ratelimit/service/requestlimit"
	"gonogo/internal/ratelimit/store/bucket"
	"gonogo/internal/sizestd"
	sizehandler "gonogo/internal/sizestd/handler"
	sizememory "gonogo/internal/sizestd/store/memory"
	sizepostgres "gonogo/internal/sizestd/store/postgres"
	httptransport "gonogo/internal/transport/http"
)

// app holds the wired components and the resources main must release.
type app struct {
	log          *slog.Logger
	router       http.Handler
	orchestrator *service.Orchestrator
	db           *sql.DB
	redis        *redis.Client

	forwarder *stream.Forwarder
	publisher *stream.KafkaPublisher
	bgCancel  context.CancelFunc
	bgWG      sync.WaitGroup
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{log: log}
	started := time.Now()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	a.db = db
	if db != nil && cfg.Postgres.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			a.close()
			return nil, err
		}
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		a.close()
		return nil, err
	}
	a.redis = rc

	sizes, err := a.buildSizes(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	recorder, err := a.buildAudit(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	exclusions, registration := a.buildProviders(cfg)
	policy, err := decision.ParseUnknownSizePolicy(cfg.Decision.UnknownSizePolicy)
	if err != nil {
		a.close()
		return nil, err
	}
	evaluator, err := decision.New(exclusions, registration, sizes, recorder,
		decision.WithLogger(log),
		decision.WithMetrics(decisionmetrics.New()),
		decision.WithUnknownSizePolicy(policy),
		decision.WithEvidenceTimeout(cfg.Decision.EvidenceTimeout),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	orchestrator, err := a.buildOrchestrator(cfg, evaluator)
	if err != nil {
		a.close()
		return nil, err
	}
	a.orchestrator = orchestrator

	limiter, err := a.buildLimiter(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	checks := map[string]httptransport.Check{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rc != nil {
		checks["redis"] = rc.Health
	}

	sizeHandler := sizehandler.New(sizes, log)
	a.router = httptransport.NewRouter(httptransport.Modules{
		Decision: decisionhandler.New(evaluator, log),
		Jobs:     jobhandler.New(orchestrator, log),
		Audit:    audithandler.New(recorder, orchestrator, log),
		SizeStd:  sizeHandler,
		Admin:    []httptransport.AdminRegistrar{sizeHandler},
		Health:   httptransport.NewHealth(started, cfg.Server.MockMode, checks),
	},
		httptransport.WithLogger(log),
		httptransport.WithMetrics(metrics.New()),
		httptransport.WithRateLimit(rlmiddleware.New(limiter, log).RateLimit),
		httptransport.WithAPIKey(cfg.Server.APIKey),
		httptransport.WithAdminToken(cfg.Server.AdminToken),
	)
	return a, nil
}

func (a *app) buildSizes(ctx context.Context) (*sizestd.Service, error) {
	var store sizestd.Store = sizememory.NewInMemory()
	if a.db != nil {
		store = sizepostgres.NewPostgres(a.db)
	}
	sizes := sizestd.New(store, sizestd.WithLogger(a.log))
	if err := sizes.Load(ctx); err != nil {
		return nil, fmt.Errorf("load size standards: %w", err)
	}
	return sizes, nil
}

func (a *app) buildAudit(cfg config.Config) (*audit.Recorder, error) {
	m := auditmetrics.New()
	var store audit.Store = auditmemory.NewInMemoryStore()
	if a.db != nil {
		store = auditpostgres.New(a.db)
	}

	opts := []audit.Option{audit.WithLogger(a.log), audit.WithMetrics(m)}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := stream.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, err
		}
		a.publisher = publisher
		a.forwarder = stream.NewForwarder(publisher, stream.WithLogger(a.log), stream.WithMetrics(m))
		opts = append(opts, audit.WithStreamer(a.forwarder))
	}
	return audit.New(store, opts...)
}

func (a *app) buildProviders(cfg config.Config) (evidence.ExclusionProvider, evidence.RegistrationProvider) {
	if cfg.Server.MockMode {
		a.log.Warn("mock mode: serving simulated exclusion and registration evidence")
		return simulated.NewExclusionProvider(), simulated.NewRegistrationProvider()
	}
	samCfg := sam.Config{
		EntityURL:     cfg.SAM.EntityURL,
		ExclusionsURL: cfg.SAM.ExclusionsURL,
		APIKey:        cfg.SAM.APIKey,
		Timeout:       cfg.SAM.Timeout,
		MaxRetries:    cfg.SAM.MaxRetries,
	}
	return sam.NewExclusionsProvider(samCfg, a.log), sam.NewEntityProvider(samCfg, a.log)
}

func (a *app) buildOrchestrator(cfg config.Config, evaluator service.Evaluator) (*service.Orchestrator, error) {
	var store jobs.Store = jobsmemory.NewInMemoryStore()
	if a.db != nil {
		store = jobspostgres.New(a.db)
	}
	opts := []service.Option{
		service.WithLogger(a.log),
		service.WithMetrics(jobmetrics.New()),
		service.WithConcurrency(cfg.Jobs.Concurrency),
		service.WithItemTimeout(cfg.Jobs.ItemTimeout),
		service.WithMaxItems(cfg.Jobs.MaxItems),
		service.WithNotifier(webhook.New(
			webhook.WithSigningSecret(cfg.Webhook.SigningSecret),
			webhook.WithTimeout(cfg.Webhook.Timeout),
		)),
	}
	if a.redis != nil {
		opts = append(opts, service.WithLocker(service.NewRedisLocker(a.redis.Client)))
	}
	return service.New(store, evaluator, opts...)
}

func (a *app) buildLimiter(cfg config.Config) (*requestlimit.Service, error) {
	limit := models.Limit{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}
	opts := []requestlimit.Option{
		requestlimit.WithLogger(a.log),
		requestlimit.WithMetrics(rlmetrics.New()),
		requestlimit.WithLimit(limit),
	}
	if cfg.RateLimit.Backend == "redis" && a.redis != nil {
		opts = append(opts, requestlimit.WithFallback(bucket.New()))
		return requestlimit.New(bucket.NewRedis(a.redis.Client), opts...)
	}
	return requestlimit.New(bucket.New(), opts...)
}

// start launches background workers bound to ctx.
func (a *app) start(ctx context.Context) {
	if a.forwarder == nil {
		return
	}
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.bgCancel = cancel
	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		if err := a.forwarder.Run(bg); err != nil {
			a.log.Error("audit stream forwarder stopped", "error", err)
		}
	}()
}

// stopBackground stops the audit forwarder after a final flush.
func (a *app) stopBackground() {
	if a.bgCancel != nil {
		a.bgCancel()
	}
	a.bgWG.Wait()
}

func (a *app) close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("close postgres", "error", err)
		}
	}
}
