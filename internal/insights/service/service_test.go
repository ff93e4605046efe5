package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"realty_leads_backend/internal/insights/repository"

	"github.com/google/uuid"
)

type fakeReader struct {
	stages   map[string]int
	statuses map[string]int
	pending  int
	first    repository.FirstResponse
	active   []uuid.UUID
	err      error
	gotSLA   time.Duration
}

func (f *fakeReader) CountByStage(context.Context, *uuid.UUID) (map[string]int, error) {
	return f.stages, f.err
}

func (f *fakeReader) CountByStatus(context.Context, *uuid.UUID) (map[string]int, error) {
	return f.statuses, nil
}

func (f *fakeReader) CountPendingReplies(context.Context, *uuid.UUID) (int, error) {
	return f.pending, nil
}

func (f *fakeReader) FirstResponse(_ context.Context, _ *uuid.UUID, sla time.Duration, _ time.Time) (repository.FirstResponse, error) {
	f.gotSLA = sla
	return f.first, nil
}

func (f *fakeReader) LeadIDsActiveSince(context.Context, uuid.UUID, time.Time) ([]uuid.UUID, error) {
	return f.active, nil
}

type fakeCounter struct {
	calls   int
	since   time.Time
	leadIDs []uuid.UUID
}

func (f *fakeCounter) CountDecisionsSince(_ context.Context, since time.Time, leadIDs []uuid.UUID) (map[string]int, error) {
	f.calls++
	f.since, f.leadIDs = since, leadIDs
	return map[string]int{"SENT": 4, "SKIPPED": 2}, nil
}

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRollupAllTeams(t *testing.T) {
	reader := &fakeReader{
		stages:   map[string]int{"NEW": 3, "WON": 1},
		statuses: map[string]int{"AVAILABLE": 2, "COMPLETED": 1},
		pending:  2,
		first:    repository.FirstResponse{Responded: 2, AvgSeconds: 420, Breaches: 1},
	}
	counter := &fakeCounter{}
	svc := New(reader, counter, 45*time.Minute, func() time.Time { return now })

	got, err := svc.Rollup(context.Background(), nil)
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if got.Funnel["NEW"] != 3 || got.Funnel["VISIT"] != 0 || len(got.Funnel) != len(stages) {
		t.Errorf("funnel = %v", got.Funnel)
	}
	if got.PendingReplies != 2 || got.SLABreaches != 1 || got.AvgFirstResponseSeconds != 420 {
		t.Errorf("unexpected rollup %+v", got)
	}
	if got.AutoReplies24h["SENT"] != 4 || got.AutoReplies24h["FAILED"] != 0 {
		t.Errorf("auto replies = %v", got.AutoReplies24h)
	}
	if counter.leadIDs != nil || !counter.since.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("counter called with since=%v ids=%v", counter.since, counter.leadIDs)
	}
	if reader.gotSLA != 45*time.Minute {
		t.Errorf("sla = %v", reader.gotSLA)
	}
}

func TestRollupTeamScopesAutoReplies(t *testing.T) {
	team := uuid.New()
	active := []uuid.UUID{uuid.New(), uuid.New()}
	counter := &fakeCounter{}
	svc := New(&fakeReader{active: active}, counter, 0, func() time.Time { return now })

	if _, err := svc.Rollup(context.Background(), &team); err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if !slices.Equal(counter.leadIDs, active) {
		t.Fatalf("lead ids = %v", counter.leadIDs)
	}
}

func TestRollupTeamWithoutActivitySkipsCounter(t *testing.T) {
	team := uuid.New()
	counter := &fakeCounter{}
	svc := New(&fakeReader{}, counter, 0, func() time.Time { return now })

	got, err := svc.Rollup(context.Background(), &team)
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if counter.calls != 0 {
		t.Fatal("counter should not be queried")
	}
	if got.AutoReplies24h["SENT"] != 0 {
		t.Fatalf("auto replies = %v", got.AutoReplies24h)
	}
}

func TestRollupPropagatesReaderError(t *testing.T) {
	boom := errors.New("db down")
	svc := New(&fakeReader{err: boom}, nil, 0, nil)
	if _, err := svc.Rollup(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
