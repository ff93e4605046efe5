package scheduler

import (
	"context"
	"errors"
	"fmt"

	ardomain "realty_leads_backend/internal/autoreply/domain"
	"realty_leads_backend/internal/autoreply/engine"
	"realty_leads_backend/platform/config"
	"realty_leads_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AutoReplyProcessor runs the auto-reply decision for one client message.
type AutoReplyProcessor interface {
	Process(ctx context.Context, clientMessageID uuid.UUID) (ardomain.Decision, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor AutoReplyProcessor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor AutoReplyProcessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		log:       log,
	}

	mux.HandleFunc(TaskAutoReplyProcess, w.handleAutoReply)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleAutoReply re-runs the engine. An existing decision makes the task a
// no-op; a lease held by another worker is retried later.
func (w *Worker) handleAutoReply(ctx context.Context, task *asynq.Task) error {
	id, err := ParseAutoReplyPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	decision, err := w.processor.Process(ctx, id)
	switch {
	case errors.Is(err, engine.ErrNotClientMessage):
		w.log.Warn("auto-reply task for unknown message", "clientMessageId", id)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	case err != nil:
		return err
	}
	w.log.Info("auto-reply task processed", "clientMessageId", id, "outcome", decision.Outcome)
	return nil
}
