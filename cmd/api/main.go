package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/operationseasyfi/ai-voice-agent/internal/api/rest"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/cache"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/crm"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/database"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/events"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/instrumentation"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/repository"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/signalwire"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/telemetry"
	"github.com/operationseasyfi/ai-voice-agent/internal/metrics"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrecord"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/callrouting"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/optout"
)

const serviceName = "ai-voice-agent"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	migrate := flag.Bool("migrate", false, "Apply database migrations before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *migrate, logger); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) error {
	provider, err := telemetry.InitTracing(ctx, &telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	if migrate {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		database.NewPoolCollector(pool),
	)
	m := metrics.NewRegistry(reg)

	var (
		leads      intake.LeadLookup
		crmUpdater callrecord.CRMUpdater
		recordings callrecord.RecordingSource
		publisher  callrecord.EventPublisher
		arena      intake.SessionArena
	)

	if cfg.CRM.Enabled() {
		client, err := crm.NewClient(cfg.CRM, logger.Named("crm"))
		if err != nil {
			return err
		}
		leads, crmUpdater = client, client
	} else {
		logger.Warn("crm not configured, greetings will not be personalized")
	}

	if cfg.SignalWire.Enabled() {
		client, err := signalwire.NewClient(cfg.SignalWire, logger.Named("signalwire"))
		if err != nil {
			return err
		}
		recordings = client
	} else {
		logger.Warn("signalwire not configured, recordings will not be attached")
	}

	if cfg.AMQP.URL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQP, serviceName+"/"+cfg.Version, logger.Named("events"))
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	}

	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		arena = cache.NewSessionArena(client, cfg.Redis.SessionTTL, logger.Named("sessions"))
	}

	persister := callrecord.NewService(callrecord.Deps{
		Records:    repository.NewCallRecordRepository(pool),
		DNC:        repository.NewDNCRepository(pool),
		Recordings: recordings,
		Events:     publisher,
		CRM:        crmUpdater,
		Metrics:    m,
		Logger:     logger.Named("callrecord"),
	}, callrecord.Config{
		WriteTimeout:      cfg.Persistence.WriteTimeout,
		BackgroundTimeout: cfg.Persistence.BackgroundTimeout,
		RecordingDelay:    cfg.Persistence.RecordingDelay,
	})

	tiers := repository.NewTierConfigRepository(pool)
	t := cfg.Transfer
	router := callrouting.NewService(logger.Named("routing"), m,
		callrouting.NewTenantProvider(tiers),
		callrouting.NewAgentProvider(tiers),
		callrouting.NewEnvProvider(callrouting.EnvDestinations{
			High:          t.HighDID,
			Mid:           t.MidDID,
			Low:           t.LowDID,
			QueueA:        t.QueueADID,
			QueueB:        t.QueueBDID,
			HighThreshold: t.HighThreshold,
			MidThreshold:  t.MidThreshold,
		}),
	)

	intakeCfg := intake.DefaultConfig()
	intakeCfg.Script = intake.Script{AgentName: cfg.Intake.AgentName, CompanyName: cfg.Intake.CompanyName}
	intakeCfg.Trunk = t.Trunk
	intakeCfg.LookupTimeout = cfg.Intake.LookupTimeout
	intakeCfg.FinalizeTimeout = cfg.Persistence.WriteTimeout

	detector := optout.NewDetector(cfg.Intake.OptOutPhrases...)
	logger.Info("opt-out detector configured", zap.Strings("phrases", detector.Phrases()))

	svc := intake.NewService(intake.Deps{
		Detector:  detector,
		Router:    router,
		Persister: persister,
		Leads:     leads,
		Arena:     arena,
		Metrics:   m,
		Logger:    logger.Named("intake"),
	}, intakeCfg)
	traced := instrumentation.NewIntakeTracedService(svc,
		telemetry.NewTracerFromProvider(provider.TracerProvider, "intake"))

	handler := rest.NewRouter(rest.Config{
		Intake:    traced,
		Logger:    logger.Named("http"),
		Metrics:   m,
		Gatherer:  reg,
		Health:    func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
		Tracer:    provider.TracerProvider.Tracer("api.rest"),
		JWTSecret: cfg.Security.JWTSecret,
		RateLimit: cfg.Security.RateLimit,
	})
	if cfg.Security.JWTSecret == "" {
		logger.Warn("security.jwt_secret is empty, call routes accept unauthenticated requests")
	}

	serveErr := rest.NewServer(cfg.Server, handler, logger).Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Persistence.BackgroundTimeout+cfg.Persistence.RecordingDelay)
	defer cancel()
	if err := persister.Wait(drainCtx); err != nil {
		logger.Warn("background persistence did not drain", zap.Error(err))
	}
	return serveErr
}
