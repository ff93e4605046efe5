// Package service computes read-only dashboard rollups over leads, the event
// log and auto-reply decisions.
package service

import (
	"context"
	"time"

	"realty_leads_backend/internal/insights/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	stages   = []string{"NEW", "CONTACT", "VISIT", "PROPOSAL", "DOCUMENTS", "WON", "LOST"}
	outcomes = []string{"SENT", "SKIPPED", "FAILED"}
)

const autoReplyWindow = 24 * time.Hour

// AutoReplyCounter counts auto-reply decisions per outcome. A nil leadIDs
// slice means every lead.
type AutoReplyCounter interface {
	CountDecisionsSince(ctx context.Context, since time.Time, leadIDs []uuid.UUID) (map[string]int, error)
}

// Rollup is one dashboard snapshot.
type Rollup struct {
	TeamID                  *uuid.UUID
	GeneratedAt             time.Time
	Funnel                  map[string]int
	Statuses                map[string]int
	PendingReplies          int
	RespondedLeads          int
	AvgFirstResponseSeconds float64
	SLABreaches             int
	AutoReplies24h          map[string]int
}

type Service struct {
	reader    repository.Reader
	autoReply AutoReplyCounter
	sla       time.Duration
	now       func() time.Time
}

func New(reader repository.Reader, autoReply AutoReplyCounter, sla time.Duration, now func() time.Time) *Service {
	if sla <= 0 {
		sla = 30 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Service{reader: reader, autoReply: autoReply, sla: sla, now: now}
}

// Rollup runs the independent aggregates concurrently.
func (s *Service) Rollup(ctx context.Context, teamID *uuid.UUID) (Rollup, error) {
	now := s.now()
	out := Rollup{TeamID: teamID, GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.reader.CountByStage(gctx, teamID)
		out.Funnel = zeroFilled(stages, counts)
		return err
	})
	g.Go(func() error {
		counts, err := s.reader.CountByStatus(gctx, teamID)
		out.Statuses = counts
		return err
	})
	g.Go(func() error {
		n, err := s.reader.CountPendingReplies(gctx, teamID)
		out.PendingReplies = n
		return err
	})
	g.Go(func() error {
		fr, err := s.reader.FirstResponse(gctx, teamID, s.sla, now)
		out.RespondedLeads, out.AvgFirstResponseSeconds, out.SLABreaches = fr.Responded, fr.AvgSeconds, fr.Breaches
		return err
	})
	g.Go(func() error {
		counts, err := s.autoReplyCounts(gctx, teamID, now.Add(-autoReplyWindow))
		out.AutoReplies24h = zeroFilled(outcomes, counts)
		return err
	})

	if err := g.Wait(); err != nil {
		return Rollup{}, err
	}
	return out, nil
}

func (s *Service) autoReplyCounts(ctx context.Context, teamID *uuid.UUID, since time.Time) (map[string]int, error) {
	if s.autoReply == nil {
		return nil, nil
	}
	var leadIDs []uuid.UUID
	if teamID != nil {
		ids, err := s.reader.LeadIDsActiveSince(ctx, *teamID, since)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		leadIDs = ids
	}
	return s.autoReply.CountDecisionsSince(ctx, since, leadIDs)
}

func zeroFilled(keys []string, counts map[string]int) map[string]int {
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[k] = 0
	}
	for k, v := range counts {
		out[k] = v
	}
	return out
}
