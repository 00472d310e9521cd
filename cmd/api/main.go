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

	httptransport "github.com/spec-kit/feedx-service/internal/api/http"
	"github.com/spec-kit/feedx-service/internal/api/http/handlers"
	"github.com/spec-kit/feedx-service/internal/auth"
	"github.com/spec-kit/feedx-service/internal/config"
	"github.com/spec-kit/feedx-service/internal/events"
	"github.com/spec-kit/feedx-service/internal/notify"
	"github.com/spec-kit/feedx-service/internal/observability"
	"github.com/spec-kit/feedx-service/internal/persistence"
	"github.com/spec-kit/feedx-service/internal/repository"
	"github.com/spec-kit/feedx-service/internal/service"
	"github.com/spec-kit/feedx-service/internal/storage"
	"github.com/spec-kit/feedx-service/internal/validation"
	"github.com/spec-kit/feedx-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := repository.Open(ctx, cfg, cfg.Postgres.RunMigrations, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	diskStore, err := storage.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes, logger)
	if err != nil {
		logger.Fatal("failed to prepare uploads dir", zap.Error(err))
	}
	var uploader storage.Uploader = diskStore
	if cfg.Uploads.RemoteURL != "" {
		uploader = storage.NewHTTPUploader(cfg.Uploads.RemoteURL, cfg.Uploads.RemoteTimeout)
		logger.Info("proof files go to remote upload endpoint", zap.String("url", cfg.Uploads.RemoteURL))
	}

	references, err := service.NewSnowflakeReferences(cfg.IDs.SnowflakeNode)
	if err != nil {
		logger.Fatal("invalid snowflake node", zap.Int64("node", cfg.IDs.SnowflakeNode), zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	validator := validation.New()

	var mailer notify.Mailer
	if cfg.Notification.SendgridAPIKey != "" {
		mailer = notify.NewSendgridMailer(cfg.Notification.SendgridAPIKey, "", cfg.App.Name,
			cfg.Notification.EmailFromName, cfg.Notification.EmailFrom)
	} else {
		logger.Warn("SENDGRID_API_KEY not provided; escalation emails are logged only")
	}
	notifications := service.NewNotificationService(dispatcher, mailer, logger, cfg.Notification)

	subscribers := worker.Subscribers{Notifications: notifications, Metrics: metrics}
	if redis.Enabled() {
		subscribers.Stream = events.NewStreamSink(redis.Client, cfg.Redis.EventsStream, cfg.Redis.StreamMaxLen, logger)
	}
	worker.StartNotificationWorker(dispatcher, subscribers)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:  store.Users,
		Validator: validator,
	})
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:        store.Issues,
		Uploader:         uploader,
		Resolver:         storage.NewResolver(storage.NewPublicURLBuilder(cfg.Uploads.PublicURL), cfg.Uploads.Bucket),
		References:       references,
		Validator:        validator,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Limits:           service.ProofLimits{MaxFiles: cfg.Uploads.MaxFiles, MaxBytes: cfg.Uploads.MaxBytes},
		EscalationMinAge: cfg.Escalation.MinAge(),
	})
	facultyService := service.NewFacultyService(service.FacultyDependencies{
		IssueRepo:  store.Issues,
		UserRepo:   store.Users,
		Validator:  validator,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Users)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := []handlers.Dependency{{Name: store.Driver, Ping: store.Ping}}
	if redis.Enabled() {
		deps = append(deps, handlers.Dependency{Name: "redis", Ping: redis.Ping})
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, deps...),
		Users:          handlers.NewUsersHandler(authService),
		Issues:         handlers.NewIssuesHandler(issueService),
		Faculty:        handlers.NewFacultyHandler(facultyService),
		Uploads:        handlers.NewUploadsHandler(diskStore),
		AuthMiddleware: authMiddleware,
		UploadsDir:     diskStore.Dir(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	notifications.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
