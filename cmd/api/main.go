package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realty_leads_backend/internal/adapters"
	"realty_leads_backend/internal/agentqueue"
	queuerepo "realty_leads_backend/internal/agentqueue/repository"
	"realty_leads_backend/internal/autoreply"
	"realty_leads_backend/internal/autoreply/engine"
	"realty_leads_backend/internal/autoreply/presence"
	autoreplyrepo "realty_leads_backend/internal/autoreply/repository"
	"realty_leads_backend/internal/directory"
	"realty_leads_backend/internal/email"
	"realty_leads_backend/internal/events"
	apphttp "realty_leads_backend/internal/http"
	"realty_leads_backend/internal/http/router"
	"realty_leads_backend/internal/insights"
	"realty_leads_backend/internal/leads"
	leadports "realty_leads_backend/internal/leads/ports"
	leadrepo "realty_leads_backend/internal/leads/repository"
	leadservice "realty_leads_backend/internal/leads/service"
	"realty_leads_backend/internal/notification"
	"realty_leads_backend/internal/notification/dedupe"
	"realty_leads_backend/internal/notification/sse"
	"realty_leads_backend/internal/scheduler"
	"realty_leads_backend/internal/whatsapp"
	"realty_leads_backend/platform/ai"
	"realty_leads_backend/platform/config"
	"realty_leads_backend/platform/db"
	"realty_leads_backend/platform/logger"
	"realty_leads_backend/platform/redisconn"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	rdb := initRedis(ctx, cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	retryScheduler, closeScheduler := initRetryScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	generator, err := ai.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize reply generator", "error", err)
		panic("failed to initialize reply generator: " + err.Error())
	}
	log.Info("reply generator initialized", "provider", generator.Name())

	// Realtime fan-out: local SSE hub, relayed through Redis when available
	sseService := sse.New(log)
	var realtime leadports.RealtimePublisher = sseService
	if rdb != nil {
		relay := sse.NewRedisRelay(rdb, sseService, log)
		go func() {
			if err := relay.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("realtime relay stopped", "error", err)
			}
		}()
		realtime = relay
	}

	var tracker presence.Tracker = presence.Offline{}
	if rdb != nil {
		tracker = presence.NewRedisTracker(rdb, cfg.GetPresenceTTL())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	dir := directory.New(pool)
	leadsDirectory := adapters.NewLeadsDirectory(dir)

	queueModule := agentqueue.NewModule(queuerepo.New(pool), leadsDirectory, log)

	leadsModule := leads.NewModule(leadservice.Deps{
		Repo:       leadrepo.New(pool),
		Queue:      adapters.NewLeadsAgentQueue(queueModule.Service()),
		Properties: leadsDirectory,
		Users:      leadsDirectory,
		Bus:        eventBus,
		Realtime:   realtime,
		Log:        log,
		Timing: leadservice.Timing{
			AcceptWindow:        cfg.GetLeadAcceptWindow(),
			OwnerApprovalWindow: cfg.GetLeadOwnerApprovalWindow(),
			MatchingTimeout:     cfg.GetLeadMatchingTimeout(),
		},
	})
	leadsService := leadsModule.Service()

	autoReplyStore := autoreplyrepo.New(pool)
	autoReplyDirectory := adapters.NewAutoReplyDirectory(dir)
	engineDeps := engine.Deps{
		Store:     autoReplyStore,
		Leads:     adapters.NewAutoReplyLeads(leadsService),
		Listings:  autoReplyDirectory,
		People:    autoReplyDirectory,
		Generator: generator,
		Presence:  tracker,
		Bus:       eventBus,
		Log:       log,
		Options: engine.Options{
			InlineTimeout:     cfg.GetAutoReplyInlineTimeout(),
			GenerationTimeout: cfg.GetAutoReplyGenerationTimeout(),
			HistoryLimit:      cfg.GetAutoReplyHistoryLimit(),
			RetryDelay:        cfg.GetAutoReplyRetryDelay(),
		},
	}
	if retryScheduler != nil {
		engineDeps.Retry = retryScheduler
	}
	autoReplyModule, err := autoreply.NewModule(engineDeps)
	if err != nil {
		log.Error("failed to initialize auto-reply module", "error", err)
		panic("failed to initialize auto-reply module: " + err.Error())
	}

	// Notification module subscribes to domain events and serves the realtime stream
	notificationDeps := notification.Deps{
		Sender:    sender,
		Guard:     dedupe.New(leadsService, nil),
		Directory: adapters.NewNotificationDirectory(dir),
		Access:    adapters.NewNotificationLeadAccess(leadsService),
		SSE:       sseService,
		Config:    cfg,
		Log:       log,
	}
	if wa := whatsapp.NewClient(cfg, log); wa != nil {
		notificationDeps.WhatsApp = wa
	}
	notificationModule := notification.New(notificationDeps)
	notificationModule.RegisterHandlers(eventBus)

	insightsModule := insights.NewModule(pool, adapters.NewInsightsAutoReplyCounter(autoReplyStore), cfg.GetSLAFirstResponse())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			queueModule,
			leadsModule,
			autoReplyModule,
			notificationModule,
			insightsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		autoReplyModule.Engine().Wait()
		eventBus.Wait()
		log.Info("server stopped")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initRedis connects the optional Redis used for presence and the realtime relay.
func initRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; presence tracking and cross-instance realtime disabled")
		return nil
	}
	rdb, err := redisconn.Open(ctx, cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to connect to redis; continuing without it", "error", err)
		return nil
	}
	log.Info("redis connection established")
	return rdb
}

func initRetryScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; durable auto-reply retries disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize retry scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
