package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-service/internal/api/http"
	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/classify"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/persistence"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/service"
	"github.com/spec-kit/incident-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		incidentRepo repository.IncidentRepository
		userRepo     repository.UserRepository
	)
	if pg.Enabled() {
		incidentRepo = repository.NewIncidentRepository(pg.PoolHandle())
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	} else {
		incidentRepo = repository.NewMemoryIncidentRepository()
		userRepo = repository.NewMemoryUserRepository()
	}

	classifier, err := buildClassifier(cfg.Classifier)
	if err != nil {
		logger.Fatal("failed to load classifier patterns", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	gate := auth.NewGate(auth.DefaultPermissions)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authService := service.NewAuthService(cfg.Auth, userRepo, tokens)
	if err := authService.SeedUsers(ctx, cfg.Auth.SeedUsers); err != nil {
		logger.Fatal("failed to seed users", zap.Error(err))
	}

	incidentService := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo: incidentRepo,
		Classifier:   classifier,
		Gate:         gate,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	monitor := service.NewSLAMonitor(service.SLAMonitorDependencies{
		IncidentRepo: incidentRepo,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})

	var slaWorker *worker.SLAWorker
	if cfg.SLA.SweepEnabled {
		slaWorker, err = worker.NewSLAWorker(cfg.SLA, monitor, redis, logger)
		if err != nil {
			logger.Fatal("failed to init SLA worker", zap.Error(err))
		}
		slaWorker.Start()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Incidents:      handlers.NewIncidentsHandler(incidentService),
		SLA:            handlers.NewSLAHandler(monitor),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Gate:           gate,
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if slaWorker != nil {
		slaWorker.Stop(shutdownCtx)
	}
	_ = app.ShutdownWithContext(shutdownCtx)
}

func buildClassifier(cfg config.ClassifierConfig) (classify.Classifier, error) {
	patterns := classify.DefaultPatterns()
	if cfg.PatternsFile != "" {
		loaded, err := classify.LoadPatterns(cfg.PatternsFile)
		if err != nil {
			return nil, err
		}
		patterns = loaded
	}
	return classify.WithTimeout(classify.NewRuleClassifier(patterns), cfg.Timeout()), nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
