package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"realty_leads_backend/internal/adapters"
	queuerepo "realty_leads_backend/internal/agentqueue/repository"
	queueservice "realty_leads_backend/internal/agentqueue/service"
	"realty_leads_backend/internal/autoreply/engine"
	"realty_leads_backend/internal/autoreply/presence"
	autoreplyrepo "realty_leads_backend/internal/autoreply/repository"
	"realty_leads_backend/internal/directory"
	"realty_leads_backend/internal/email"
	"realty_leads_backend/internal/events"
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
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	rdb, err := redisconn.Open(ctx, cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	eventBus := events.NewInMemoryBus(log)

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

	// Worker-side wiring: no HTTP handlers, realtime goes out through Redis.
	sseService := sse.New(log)
	realtime := sse.NewRedisRelay(rdb, sseService, log)

	dir := directory.New(pool)
	leadsDirectory := adapters.NewLeadsDirectory(dir)
	queue := queueservice.New(queuerepo.New(pool), leadsDirectory, log)

	leadsService := leadservice.New(leadservice.Deps{
		Repo:       leadrepo.New(pool),
		Queue:      adapters.NewLeadsAgentQueue(queue),
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

	autoReplyDirectory := adapters.NewAutoReplyDirectory(dir)
	replyEngine, err := engine.New(engine.Deps{
		Store:     autoreplyrepo.New(pool),
		Leads:     adapters.NewAutoReplyLeads(leadsService),
		Listings:  autoReplyDirectory,
		People:    autoReplyDirectory,
		Generator: generator,
		Presence:  presence.NewRedisTracker(rdb, cfg.GetPresenceTTL()),
		Bus:       eventBus,
		Log:       log,
		Options: engine.Options{
			GenerationTimeout: cfg.GetAutoReplyGenerationTimeout(),
			HistoryLimit:      cfg.GetAutoReplyHistoryLimit(),
		},
	})
	if err != nil {
		log.Error("failed to initialize auto-reply engine", "error", err)
		panic("failed to initialize auto-reply engine: " + err.Error())
	}

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
	notification.New(notificationDeps).RegisterHandlers(eventBus)

	sweeper, err := scheduler.NewSweeper(cfg.GetSweepSchedule(), cfg.GetSweepBatchSize(), leadsService, log)
	if err != nil {
		log.Error("failed to initialize lead sweeper", "error", err)
		panic("failed to initialize lead sweeper: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, replyEngine, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	worker.Run(ctx)
	wg.Wait()
	eventBus.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
