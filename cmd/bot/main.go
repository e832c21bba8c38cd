package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/bot"
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
	if cfg.Discord.BotToken == "" {
		log.Fatal("DISCORD_BOT_TOKEN is required")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	err = run(cfg, logger)
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := repository.NewRepositories(pg.PoolHandle())
	if repos.InMemory() {
		logger.Warn("using in-memory store; tickets opened here are not visible to the dashboard")
	}

	session, err := bot.NewSession(cfg.Discord.BotToken)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return err
	}
	transport := bot.NewTransport(session)

	dispatcher := events.NewInMemoryDispatcher()
	dmQueue := queue.NewQueue(redis.Client, cfg.Notification.QueueKey, cfg.Notification.MaxRetries, logger)

	worker.StartNotificationWorker(service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:    dispatcher,
		Queue:         dmQueue,
		ActorRepo:     repos.Actors,
		CommunityRepo: repos.Communities,
		Logger:        logger,
		Config:        cfg.Notification,
	}))

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    repos.Tickets,
		CommunityRepo: repos.Communities,
		ActorRepo:     repos.Actors,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	router := service.NewRouter(service.RouterDependencies{
		ActorRepo:     repos.Actors,
		CommunityRepo: repos.Communities,
		TicketRepo:    repos.Tickets,
		TicketService: ticketService,
		Transport:     transport,
		Logger:        logger,
	})

	var background []func(context.Context)
	if cfg.Notification.Enabled {
		background = append(background, worker.NewDirectMessageWorker(dmQueue, transport, logger).Run)
	}

	if err := runBot(ctx, bot.New(session, router, logger).Start, background...); err != nil {
		logger.Error("bot stopped with error", zap.Error(err))
		return err
	}
	logger.Info("bot process exited")
	return nil
}

// runBot runs start alongside the background loops. Whenever start returns, the shared
// context is cancelled and the loops are awaited before start's error is returned.
func runBot(ctx context.Context, start func(context.Context) error, background ...func(context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, loop := range background {
		wg.Add(1)
		go func(loop func(context.Context)) {
			defer wg.Done()
			loop(ctx)
		}(loop)
	}

	err := start(ctx)
	cancel()
	wg.Wait()
	return err
}
