package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"casework/internal/admin"
	"casework/internal/admin/adapters"
	internalaudit "casework/internal/audit"
	auditmetrics "casework/internal/audit/metrics"
	casehandler "casework/internal/casework/handler"
	casemetrics "casework/internal/casework/metrics"
	casemodels "casework/internal/casework/models"
	caseservice "casework/internal/casework/service"
	confmetrics "casework/internal/confidentiality/metrics"
	"casework/internal/eventsource"
	esmetrics "casework/internal/eventsource/metrics"
	esmemory "casework/internal/eventsource/store/memory"
	espostgres "casework/internal/eventsource/store/postgres"
	platformauth "casework/internal/platform/auth"
	"casework/internal/platform/config"
	"casework/internal/platform/httpserver"
	"casework/internal/platform/kafka/consumer"
	"casework/internal/platform/kafka/producer"
	"casework/internal/platform/logger"
	"casework/internal/platform/metrics"
	"casework/internal/platform/postgres"
	redisclient "casework/internal/platform/redis"
	ratelimitmw "casework/internal/ratelimit/middleware"
	ratelimitmodels "casework/internal/ratelimit/models"
	"casework/internal/ratelimit/store/bucket"
	"casework/internal/readmodel"
	notehandler "casework/internal/restrictednote/handler"
	notemodels "casework/internal/restrictednote/models"
	"casework/internal/restrictednote/sealexpiry"
	noteservice "casework/internal/restrictednote/service"
	httptransport "casework/internal/transport/http"
	id "casework/pkg/domain"
	platformaudit "casework/pkg/platform/audit"
	auditconsumer "casework/pkg/platform/audit/consumer"
	"casework/pkg/platform/audit/publishers/compliance"
	"casework/pkg/platform/audit/publishers/ops"
	"casework/pkg/platform/audit/publishers/security"
	auditmemory "casework/pkg/platform/audit/store/memory"
	auditpostgres "casework/pkg/platform/audit/store/postgres"
	"casework/pkg/platform/audit/worker"
	authmw "casework/pkg/platform/middleware/auth"
)

var auditCategories = []platformaudit.EventCategory{
	platformaudit.CategoryCompliance,
	platformaudit.CategorySecurity,
	platformaudit.CategoryOperations,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("casework exited", "error", err)
		os.Exit(1)
	}
}

// stores bundles the backend-specific persistence.
type stores struct {
	events eventsource.Store
	audit  platformaudit.Store
	db     *postgres.DB
	outbox *auditpostgres.Store
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Backend != config.BackendPostgres {
		log.Warn("using in-memory stores; data is lost on restart")
		return &stores{events: esmemory.New(), audit: auditmemory.NewInMemoryStore()}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	events := espostgres.New(db.Pool)
	audit := auditpostgres.New(db.SQL)
	if cfg.Postgres.Migrate {
		if err := events.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate event store: %w", err)
		}
		if err := audit.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate audit store: %w", err)
		}
	}
	return &stores{events: events, audit: audit, db: db, outbox: audit}, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	health := map[string]httptransport.HealthChecker{}
	if st.db != nil {
		defer st.db.Close()
		health["postgres"] = st.db
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	esm := esmetrics.New()
	caseRepoOpts := []eventsource.Option{eventsource.WithLogger(log), eventsource.WithMetrics(esm)}
	noteRepoOpts := []eventsource.Option{eventsource.WithLogger(log), eventsource.WithMetrics(esm)}

	var (
		caseload    casehandler.CaseloadReader
		sealed      *readmodel.SealedNotes
		revocations authmw.TokenRevocationChecker
		adminOpts   []admin.Option
		buckets     ratelimitmw.BucketStore = bucket.NewInMemoryBucketStore()
	)
	if rdb != nil {
		defer rdb.Close()
		health["redis"] = rdb

		rmOpts := []readmodel.Option{readmodel.WithKeyPrefix(cfg.Redis.KeyPrefix), readmodel.WithLogger(log)}
		cl := readmodel.NewCaseload(rdb.Client, rmOpts...)
		sealed = readmodel.NewSealedNotes(rdb.Client, rmOpts...)
		caseRepoOpts = append(caseRepoOpts, eventsource.WithObserver(cl))
		noteRepoOpts = append(noteRepoOpts, eventsource.WithObserver(sealed))
		caseload = cl

		trl := platformauth.NewRevocationList(rdb.Client, cfg.Redis.KeyPrefix)
		revocations = trl
		buckets = bucket.NewRedisBucketStore(rdb.Client, cfg.Redis.KeyPrefix)
		adminOpts = append(adminOpts,
			admin.WithSealRegistry(adapters.NewSealedNotesAdapter(sealed)),
			admin.WithTokenRevoker(trl),
		)
	} else {
		log.Info("redis not configured; caseload, sealed-note registry and token revocation disabled")
	}

	securityPub := security.New(st.audit,
		security.WithLogger(log),
		security.WithMetrics(security.NewMetrics()),
		security.WithBufferSize(cfg.Audit.SecurityBuffer),
		security.WithFlushInterval(cfg.Audit.SecurityFlushEvery),
	)
	defer securityPub.Close()
	sink := internalaudit.NewPublisher(
		compliance.New(st.audit, compliance.WithLogger(log), compliance.WithMetrics(compliance.NewMetrics())),
		securityPub,
		ops.New(st.audit,
			ops.WithLogger(log),
			ops.WithMetrics(ops.NewMetrics()),
			ops.WithSampler(ops.NewSampler(cfg.Audit.OpsSampleRate)),
		),
		internalaudit.WithLogger(log),
		internalaudit.WithMetrics(auditmetrics.New()),
	)

	cases := caseservice.New(
		eventsource.NewRepository(st.events, casemodels.Codec, casemodels.Factory, caseRepoOpts...),
		caseservice.WithLogger(log),
		caseservice.WithAuditSink(sink),
		caseservice.WithMetrics(casemetrics.New()),
	)
	notes := noteservice.New(
		eventsource.NewRepository(st.events, notemodels.Codec, notemodels.Factory, noteRepoOpts...),
		noteservice.WithLogger(log),
		noteservice.WithAuditSink(sink),
		noteservice.WithMetrics(confmetrics.New()),
	)

	g, gctx := errgroup.WithContext(ctx)

	if st.outbox != nil {
		if err := startAuditRelay(ctx, g, gctx, cfg, st, health, log); err != nil {
			return err
		}
	}

	if sealed != nil && cfg.Seals.ExpiryInterval > 0 {
		job := sealexpiry.New(sealed, notes, id.ActorID(uuid.MustParse(cfg.Seals.SystemActorID)), log)
		g.Go(func() error { return job.Start(gctx, cfg.Seals.ExpiryInterval) })
	}

	limiter := ratelimitmw.New(buckets, rateLimits(cfg.Limits), log, ratelimitmw.WithDisabled(!cfg.Limits.Enabled))

	jwtService := platformauth.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Metrics:     metrics.New(),
		Validator:   platformauth.NewJWTServiceAdapter(jwtService),
		Revocations: revocations,
		RateLimit:   limiter.RateLimit,
		Cases:       casehandler.New(cases, caseload, log),
		Notes:       notehandler.New(notes, log),
		Admin:       admin.New(adapters.NewAuditStoreAdapter(st.audit), log, adminOpts...),
		Health:      health,
	})

	srv := httpserver.New(cfg.Server, router)
	log.Info("starting casework",
		"addr", cfg.Server.Addr,
		"backend", cfg.Backend,
		"environment", cfg.Environment,
	)
	g.Go(func() error { return httpserver.Run(gctx, srv, cfg.Server, log) })

	return g.Wait()
}

func rateLimits(c config.RateLimit) ratelimitmodels.Limits {
	return ratelimitmodels.Limits{
		ratelimitmodels.ClassRestrictedRead: {Requests: c.RestrictedReadsPerMinute, Window: time.Minute},
		ratelimitmodels.ClassRead:           {Requests: c.ReadsPerMinute, Window: time.Minute},
		ratelimitmodels.ClassWrite:          {Requests: c.WritesPerMinute, Window: time.Minute},
	}
}

// startAuditRelay runs the outbox worker. With brokers configured it
// publishes to Kafka and consumes the topics back into audit_events;
// otherwise the worker hands rows straight to the materializer.
func startAuditRelay(ctx context.Context, g *errgroup.Group, gctx context.Context, cfg config.Config, st *stores, health map[string]httptransport.HealthChecker, log *slog.Logger) error {
	materializer, topics := auditconsumer.NewMaterializerRouter(st.outbox, cfg.Kafka.TopicPrefix, auditCategories, log)

	var publisher worker.Publisher = auditconsumer.NewLoopback(materializer)
	if len(cfg.Kafka.Brokers) > 0 {
		prod, err := producer.New(cfg.Kafka.Brokers, producer.WithLogger(log))
		if err != nil {
			return err
		}
		if err := prod.EnsureTopics(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication, topics...); err != nil {
			prod.Close()
			return fmt.Errorf("ensure audit topics: %w", err)
		}
		cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, topics, consumer.WithLogger(log))
		if err != nil {
			prod.Close()
			return err
		}
		g.Go(func() error {
			defer cons.Close()
			return cons.Run(gctx, materializer)
		})
		g.Go(func() error {
			<-gctx.Done()
			prod.Close()
			return nil
		})
		health["kafka"] = prod
		publisher = prod
	}

	relay := worker.NewWorker(st.outbox, publisher, cfg.Kafka.TopicPrefix,
		worker.WithDB(st.db.SQL),
		worker.WithInterval(cfg.Outbox.Interval),
		worker.WithBatchSize(cfg.Outbox.BatchSize),
		worker.WithLogger(log),
		worker.WithMetrics(worker.NewMetrics()),
	)
	g.Go(func() error { return relay.Run(gctx) })
	return nil
}
