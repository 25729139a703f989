package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/user-service/internal/api/http"
	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/persistence"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/service"
	"github.com/spec-kit/user-service/internal/storage"
	"github.com/spec-kit/user-service/internal/worker"
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

	images, err := storage.NewMinioImageStore(ctx, cfg.Media)
	if err != nil {
		logger.Warn("image store unavailable; profile image uploads disabled", zap.Error(err))
		images = nil
	}

	accountRepo := repository.NewAccountRepository(pg.PoolHandle())
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, accountRepo, dispatcher)
	var imageStore storage.ImageStore
	if images != nil {
		imageStore = images
	}
	userService := service.NewUserService(accountRepo, imageStore, logger)
	adminService := service.NewAdminService(accountRepo, redis, dispatcher, logger, cfg.Auth.BcryptCost)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	userGate := auth.NewGate(authService.Codec(auth.AudienceUser), accountRepo)
	adminGate := auth.NewGate(authService.Codec(auth.AudienceAdmin), accountRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.Production())

	secureCookies := cfg.App.Production()
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:      handlers.NewAuthHandler(authService, secureCookies),
		Users:     handlers.NewUsersHandler(userService, authService),
		Admin:     handlers.NewAdminHandler(authService, adminService, secureCookies),
		UserGate:  userGate,
		AdminGate: adminGate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
