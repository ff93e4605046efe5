package adapters

import (
	"context"
	"time"

	"realty_leads_backend/internal/autoreply/repository"
	insightsservice "realty_leads_backend/internal/insights/service"

	"github.com/google/uuid"
)

// InsightsAutoReplyCounter exposes auto-reply decision counts to insights.
type InsightsAutoReplyCounter struct {
	store repository.DecisionStore
}

func NewInsightsAutoReplyCounter(store repository.DecisionStore) *InsightsAutoReplyCounter {
	return &InsightsAutoReplyCounter{store: store}
}

func (c *InsightsAutoReplyCounter) CountDecisionsSince(ctx context.Context, since time.Time, leadIDs []uuid.UUID) (map[string]int, error) {
	counts, err := c.store.CountSince(ctx, since, leadIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(counts))
	for outcome, n := range counts {
		out[string(outcome)] = n
	}
	return out, nil
}

// Compile-time check.
var _ insightsservice.AutoReplyCounter = (*InsightsAutoReplyCounter)(nil)
