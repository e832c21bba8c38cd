package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/discord-ticket-service/internal/api/http"
	"github.com/spec-kit/discord-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/discord-ticket-service/internal/auth"
	"github.com/spec-kit/discord-ticket-service/internal/config"
	"github.com/spec-kit/discord-ticket-service/internal/events"
	"github.com/spec-kit/discord-ticket-service/internal/observability"
	"github.com/spec-kit/discord-ticket-service/internal/persistence"
	"github.com/spec-kit/discord-ticket-service/internal/queue"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	"github.com/spec-kit/discord-ticket-service/internal/service"
	"github.com/spec-kit/discord-ticket-service/internal/worker"
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

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := repository.NewRepositories(pg.PoolHandle())
	if repos.InMemory() {
		logger.Warn("using in-memory store; data will not survive restarts and is not shared with the bot process")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	dmQueue := queue.NewQueue(redis.Client, cfg.Notification.QueueKey, cfg.Notification.MaxRetries, logger)

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:    dispatcher,
		Queue:         dmQueue,
		ActorRepo:     repos.Actors,
		CommunityRepo: repos.Communities,
		Logger:        logger,
		Config:        cfg.Notification,
	})
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		ActorRepo:        repos.Actors,
		CommunityRepo:    repos.Communities,
		IdentityProvider: auth.NewDiscordIdentityProvider(cfg.Discord),
		Logger:           logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    repos.Tickets,
		CommunityRepo: repos.Communities,
		ActorRepo:     repos.Actors,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	communityService := service.NewCommunityService(service.CommunityDependencies{
		CommunityRepo: repos.Communities,
		ActorRepo:     repos.Actors,
		Logger:        logger,
	})
	actorService := service.NewActorService(service.ActorDependencies{
		ActorRepo:     repos.Actors,
		CommunityRepo: repos.Communities,
		TicketRepo:    repos.Tickets,
		Logger:        logger,
	})

	readiness := map[string]handlers.Pinger{"redis": redis}
	if !repos.InMemory() {
		readiness["postgres"] = pg
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(actorService),
		Servers:        handlers.NewServersHandler(communityService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.Actors),
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
