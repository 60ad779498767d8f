package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"talentgate/internal/candidacy/engine"
	candidacyhandler "talentgate/internal/candidacy/handler"
	candidacymetrics "talentgate/internal/candidacy/metrics"
	"talentgate/internal/candidacy/ports"
	candidacyservice "talentgate/internal/candidacy/service"
	memorystore "talentgate/internal/candidacy/store/memory"
	postgresstore "talentgate/internal/candidacy/store/postgres"
	httpapi "talentgate/internal/http"
	jwttoken "talentgate/internal/jwt_token"
	"talentgate/internal/notification"
	notificationhandler "talentgate/internal/notification/handler"
	"talentgate/internal/notify"
	notifykafka "talentgate/internal/notify/kafka"
	"talentgate/internal/platform/config"
	"talentgate/internal/platform/httpserver"
	"talentgate/internal/platform/logger"
	platformredis "talentgate/internal/platform/redis"
	"talentgate/internal/restriction"
	restrictionhandler "talentgate/internal/restriction/handler"
	"talentgate/internal/scoring"
	"talentgate/internal/sweep"
	audit "talentgate/pkg/platform/audit"
	auditpublisher "talentgate/pkg/platform/audit/publisher"
	auditmemory "talentgate/pkg/platform/audit/store/memory"
	auditpostgres "talentgate/pkg/platform/audit/store/postgres"
	auditworker "talentgate/pkg/platform/audit/worker"
)

// main wires the dependency graph and runs the HTTP server, the expiration
// sweep, and the audit worker under one lifecycle. Business logic lives in
// the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkers := map[string]httpapi.HealthChecker{}

	// Stores: postgres when configured, in-memory fallback for dev.
	var (
		ledgerStore ports.LedgerStore
		auditStore  audit.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping postgres", "error", err)
			os.Exit(1)
		}

		pgStore := postgresstore.New(db, postgresstore.WithMergeRetries(cfg.Ledger.MergeRetries))
		if err := pgStore.RunMigrations(ctx); err != nil {
			log.Error("failed to run candidacy migrations", "error", err)
			os.Exit(1)
		}
		pgAudit := auditpostgres.New(db)
		if err := pgAudit.RunMigrations(ctx); err != nil {
			log.Error("failed to run audit migrations", "error", err)
			os.Exit(1)
		}
		ledgerStore = pgStore
		auditStore = pgAudit
		checkers["postgres"] = dbChecker{db}
		log.Info("using postgres stores")
	} else {
		ledgerStore = memorystore.New()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	// Audit pipeline: non-blocking channel publisher drained by a worker.
	auditOutbox := make(chan audit.Event, 256)
	publisher := auditpublisher.New(auditOutbox, log)
	worker := auditworker.NewWorker(auditStore, auditOutbox, log)

	// Notifier: kafka when brokers are configured, log-only otherwise.
	var notifier ports.Notifier = notify.NewSlogNotifier(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := notifykafka.New(ctx, cfg.Kafka.Brokers,
			notifykafka.WithTopic(cfg.Kafka.Topic),
			notifykafka.WithLogger(log),
		)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		notifier = kafkaPublisher
		log.Info("using kafka notifier", "topic", cfg.Kafka.Topic)
	}

	// Restriction view with optional redis cache.
	restrictionOpts := []restriction.Option{restriction.WithLogger(log)}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		restrictionOpts = append(restrictionOpts, restriction.WithCache(
			restriction.NewRedisCache(redisClient.Client, restriction.WithTTL(cfg.Redis.CacheTTL)),
		))
		checkers["redis"] = redisClient
		log.Info("restriction cache enabled")
	}
	restrictionService := restriction.New(ledgerStore, restrictionOpts...)

	// Candidacy service and its collaborators.
	lifecycleEngine := engine.New(cfg.Ledger)
	candidacyOpts := []candidacyservice.Option{
		candidacyservice.WithLogger(log),
		candidacyservice.WithNotifier(notifier),
		candidacyservice.WithInvalidator(restrictionService),
		candidacyservice.WithAuditPublisher(publisher),
		candidacyservice.WithMetrics(candidacymetrics.New()),
	}
	if cfg.ScoringURL != "" {
		scorer, err := scoring.New(cfg.ScoringURL)
		if err != nil {
			log.Error("failed to build scoring client", "error", err)
			os.Exit(1)
		}
		candidacyOpts = append(candidacyOpts, candidacyservice.WithScorer(scorer))
	} else {
		log.Warn("SCORING_URL not set, submissions will not be scored")
	}
	candidacyService, err := candidacyservice.New(ledgerStore, lifecycleEngine, candidacyOpts...)
	if err != nil {
		log.Error("failed to build candidacy service", "error", err)
		os.Exit(1)
	}

	notificationService := notification.New(ledgerStore,
		notification.WithLogger(log),
		notification.WithAuditPublisher(publisher),
	)

	sweepWorker := sweep.New(ledgerStore, lifecycleEngine, notifier,
		sweep.WithLogger(log),
		sweep.WithAuditPublisher(publisher),
		sweep.WithInterval(cfg.Ledger.SweepInterval),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "talentgate", "talentgate")
	router := httpapi.NewRouter(log, jwtService, checkers,
		candidacyhandler.New(candidacyService, log),
		restrictionhandler.New(restrictionService, log),
		notificationhandler.New(notificationService, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := sweepWorker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

type dbChecker struct {
	db *sql.DB
}

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
