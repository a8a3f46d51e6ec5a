package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appAgency "github.com/stagelink/immersion/internal/application/agency"
	appConvention "github.com/stagelink/immersion/internal/application/convention"
	"github.com/stagelink/immersion/internal/application/crawler"
	appEstablishment "github.com/stagelink/immersion/internal/application/establishment"
	domainConvention "github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/domain/uow"
	"github.com/stagelink/immersion/internal/infrastructure/config"
	httptransport "github.com/stagelink/immersion/internal/infrastructure/http"
	"github.com/stagelink/immersion/internal/infrastructure/id"
	"github.com/stagelink/immersion/internal/infrastructure/memory"
	"github.com/stagelink/immersion/internal/infrastructure/notification"
	"github.com/stagelink/immersion/internal/infrastructure/observability/oteltrace"
	"github.com/stagelink/immersion/internal/infrastructure/observability/prometrics"
	"github.com/stagelink/immersion/internal/infrastructure/observability/telemetry"
	"github.com/stagelink/immersion/internal/infrastructure/observability/zaplogger"
	"github.com/stagelink/immersion/internal/infrastructure/postgres"
	"github.com/stagelink/immersion/internal/infrastructure/worker"
	"github.com/stagelink/immersion/internal/observability"
)

func main() {
	cfg, err := config.Load(os.Getenv("IMMERSION_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	logger := zaplogger.New(observability.F("service", cfg.ServiceName))
	metrics := telemetry.NewMetrics(prometrics.New("immersion", ""))
	tracer := oteltrace.New(cfg.ServiceName)
	tel := telemetry.New(tracer, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	unit, outboxRepo, conventionReader, cleanup, err := buildStorage(ctx, cfg, tel)
	if err != nil {
		logger.Error("storage_init_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	idGen := id.NewUUIDGenerator()

	useCases := httptransport.UseCases{
		Submit:              appConvention.NewSubmitUseCase(unit, idGen, tel),
		Sign:                appConvention.NewSignUseCase(unit, idGen, tel),
		AcceptByCounsellor:  appConvention.NewAcceptByCounsellorUseCase(unit, idGen, tel),
		AcceptByValidator:   appConvention.NewAcceptByValidatorUseCase(unit, idGen, tel),
		Reject:              appConvention.NewRejectUseCase(unit, idGen, tel),
		Cancel:              appConvention.NewCancelUseCase(unit, idGen, tel),
		Deprecate:           appConvention.NewDeprecateUseCase(unit, idGen, tel),
		RegisterUser:        appAgency.NewRegisterUserUseCase(unit, idGen, tel),
		CreateEstablishment: appEstablishment.NewCreateUseCase(unit, idGen, tel),
	}

	registry, err := buildRegistry(conventionReader, tel)
	if err != nil {
		logger.Error("registry_init_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}

	crawl := crawler.New(outboxRepo, registry, crawler.Config{
		BatchSize:                cfg.Crawler.BatchSize,
		MaxAttemptsPerSubscriber: cfg.Crawler.MaxAttemptsPerSubscriber,
		HandlerTimeout:           cfg.Crawler.HandlerTimeout,
		Concurrency:              cfg.Crawler.Concurrency,
	}, tel)

	crawlWorker := worker.New("outbox_crawler", cfg.Crawler.Interval, logger, crawl.RunOnce)
	go crawlWorker.Start(ctx)
	defer crawlWorker.Stop()

	handler := httptransport.NewHandler(useCases, conventionReader, outboxRepo)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		logger.Info("http_server_stopped")
	}
}

func buildStorage(ctx context.Context, cfg *config.Settings, tel observability.Observability) (
	uow.UnitOfWork, outbox.Repository, domainConvention.Repository, func(), error,
) {
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return postgres.NewUnitOfWork(pool, tel),
			postgres.NewOutboxRepository(pool),
			postgres.NewConventionRepository(pool),
			pool.Close,
			nil
	default:
		store := memory.NewStore()
		return memory.NewUnitOfWork(store), store.Outbox(), store.Conventions(), func() {}, nil
	}
}

// buildRegistry binds every topic in the closed set; topics without a
// consumer today are registered with an explicit empty list so the
// registry's exhaustiveness check stays meaningful.
func buildRegistry(conventions domainConvention.Repository, tel observability.Observability) (*crawler.Registry, error) {
	mailer := notification.NewConventionMailer(conventions, notification.NewLogEmailGateway(tel))
	partner := notification.NewLogPartnerClient(tel)

	signed := mailer.OnSigned()
	return crawler.NewRegistry(map[outbox.Topic][]crawler.Subscriber{
		outbox.TopicConventionSubmitted:                   {mailer.OnSubmitted()},
		outbox.TopicBeneficiarySigned:                     {signed},
		outbox.TopicEstablishmentRepresentativeSigned:     {signed},
		outbox.TopicLegalRepresentativeSigned:             {signed},
		outbox.TopicCurrentEmployerSigned:                 {signed},
		outbox.TopicConventionFullySigned:                 {mailer.OnFullySigned()},
		outbox.TopicConventionAcceptedByCounsellor:        {},
		outbox.TopicConventionAcceptedByValidator:         {mailer.OnAcceptedByValidator()},
		outbox.TopicConventionRejected:                    {mailer.OnRejected()},
		outbox.TopicConventionCancelled:                   {},
		outbox.TopicConventionDeprecated:                  {},
		outbox.TopicConventionBroadcastToPartnerRequested: {notification.PartnerBroadcastSubscriber(partner)},
		outbox.TopicAgencyRegisteredToUser:                {},
		outbox.TopicEstablishmentCreated:                  {},
	})
}
