package scheduler

import (
	"context"
	"fmt"

	"realty_leads_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

// maxSweepRounds bounds how many full batches one tick drains.
const maxSweepRounds = 10

// LeadExpirer settles leads whose reservation or waiting window has passed.
type LeadExpirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// Sweeper runs the lead expiry sweep on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	expirer LeadExpirer
	batch   int
	log     *logger.Logger
}

func NewSweeper(schedule string, batch int, expirer LeadExpirer, log *logger.Logger) (*Sweeper, error) {
	if batch < 1 {
		batch = 200
	}
	s := &Sweeper{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expirer: expirer,
		batch:   batch,
		log:     log,
	}
	return s, s.schedule(schedule)
}

func (s *Sweeper) schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(context.Background()) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return nil
}

// Run starts the cron loop and blocks until ctx is done and the running sweep has finished.
func (s *Sweeper) Run(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

// Sweep expires due leads, draining full batches up to maxSweepRounds.
func (s *Sweeper) Sweep(ctx context.Context) int {
	total := 0
	for range maxSweepRounds {
		n, err := s.expirer.ExpireDue(ctx, s.batch)
		total += n
		if err != nil {
			s.log.Error("lead sweep failed", "error", err, "expired", total)
			return total
		}
		if n < s.batch {
			break
		}
	}
	if total > 0 {
		s.log.Info("lead sweep finished", "expired", total)
	}
	return total
}
