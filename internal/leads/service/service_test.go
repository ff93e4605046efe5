package service

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/ports"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeQueue struct {
	mu       sync.Mutex
	agents   []uuid.UUID
	assigned map[uuid.UUID]int
	released map[uuid.UUID]int
}

func newFakeQueue(agents ...uuid.UUID) *fakeQueue {
	return &fakeQueue{agents: agents, assigned: map[uuid.UUID]int{}, released: map[uuid.UUID]int{}}
}

func (q *fakeQueue) NextEligible(_ context.Context, exclude []uuid.UUID, _ *uuid.UUID) (uuid.UUID, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range q.agents {
		if !slices.Contains(exclude, id) {
			return id, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (q *fakeQueue) OnAssigned(_ context.Context, agentID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.assigned[agentID]++
	return nil
}

func (q *fakeQueue) OnReleased(_ context.Context, agentID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.released[agentID]++
	return nil
}

func (q *fakeQueue) counts(agentID uuid.UUID) (int, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.assigned[agentID], q.released[agentID]
}

type fakeProperties map[uuid.UUID]ports.Property

func (f fakeProperties) GetProperty(_ context.Context, id uuid.UUID) (ports.Property, error) {
	p, ok := f[id]
	if !ok {
		return ports.Property{}, ports.ErrNotFound
	}
	return p, nil
}

type fakeUsers struct{}

func (fakeUsers) GetUserRole(context.Context, uuid.UUID) (string, error) { return "agent", nil }
func (fakeUsers) IsActive(context.Context, uuid.UUID) (bool, error)      { return true, nil }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      *Service
	repo     *repository.MemoryRepository
	queue    *fakeQueue
	clock    *clock
	property ports.Property
}

func newFixture(t *testing.T, requiresApproval bool, agents ...uuid.UUID) *fixture {
	t.Helper()
	property := ports.Property{
		ID:                    uuid.New(),
		OwnerID:               uuid.New(),
		Title:                 "Two bedroom flat",
		RequiresOwnerApproval: requiresApproval,
	}
	f := &fixture{
		repo:     repository.NewMemory(),
		queue:    newFakeQueue(agents...),
		clock:    &clock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)},
		property: property,
	}
	f.svc = New(Deps{
		Repo:       f.repo,
		Queue:      f.queue,
		Properties: fakeProperties{property.ID: property},
		Users:      fakeUsers{},
		Now:        f.clock.Now,
	})
	return f
}

func (f *fixture) create(t *testing.T) domain.Lead {
	t.Helper()
	lead, err := f.svc.CreateLead(context.Background(), f.property.ID, uuid.New())
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	return lead
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.GetKind(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func TestCreateLeadOffersToFirstEligibleAgent(t *testing.T) {
	agent := uuid.New()
	f := newFixture(t, false, agent)

	lead := f.create(t)

	if lead.Status != domain.StatusWaitingAgentAccept {
		t.Fatalf("expected WAITING_AGENT_ACCEPT, got %s", lead.Status)
	}
	if lead.AgentID == nil || *lead.AgentID != agent {
		t.Fatalf("expected lead offered to %s, got %v", agent, lead.AgentID)
	}
	if want := f.clock.Now().Add(DefaultTiming.AcceptWindow); !lead.ReservedUntil.Equal(want) {
		t.Fatalf("expected reservation until %s, got %s", want, lead.ReservedUntil)
	}
	if assigned, _ := f.queue.counts(agent); assigned != 1 {
		t.Fatalf("expected one assignment, got %d", assigned)
	}

	timeline, err := f.svc.GetTimeline(context.Background(), lead.ID, nil)
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	var statuses []domain.Status
	for _, e := range timeline {
		if e.Type == domain.EventStatusChange {
			statuses = append(statuses, *e.ToStatus)
		}
	}
	want := []domain.Status{domain.StatusMatching, domain.StatusWaitingAgentAccept}
	if !slices.Equal(statuses, want) {
		t.Fatalf("expected status trail %v, got %v", want, statuses)
	}
}

func TestCreateLeadWithoutAgentsBecomesAvailable(t *testing.T) {
	f := newFixture(t, false)

	lead := f.create(t)

	if lead.Status != domain.StatusAvailable || lead.AgentID != nil {
		t.Fatalf("expected unassigned AVAILABLE lead, got %s agent=%v", lead.Status, lead.AgentID)
	}
}

func TestCreateLeadUnknownProperty(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.CreateLead(context.Background(), uuid.New(), uuid.New())
	assertKind(t, err, apperr.KindNotFound)
}

func TestHappyPathToCompletion(t *testing.T) {
	ctx := context.Background()
	agent := uuid.New()
	f := newFixture(t, false, agent)
	lead := f.create(t)

	lead, err := f.svc.AcceptLead(ctx, lead.ID, agent)
	if err != nil {
		t.Fatalf("AcceptLead: %v", err)
	}
	if lead.Status != domain.StatusConfirmed || lead.ReservedUntil != nil {
		t.Fatalf("expected CONFIRMED without reservation, got %s %v", lead.Status, lead.ReservedUntil)
	}

	if _, err := f.svc.RecordAgentMessage(ctx, lead.ID, Actor{ID: agent}, "Hello, when can you visit?"); err != nil {
		t.Fatalf("RecordAgentMessage: %v", err)
	}
	lead, err = f.svc.CompleteLead(ctx, lead.ID, &Actor{ID: agent}, domain.OutcomeWon)
	if err != nil {
		t.Fatalf("CompleteLead: %v", err)
	}
	if lead.Status != domain.StatusCompleted || lead.Stage != domain.StageWon {
		t.Fatalf("expected COMPLETED/WON, got %s/%s", lead.Status, lead.Stage)
	}
	if lead.CompletedAt == nil || lead.Outcome == nil || *lead.Outcome != domain.OutcomeWon {
		t.Fatal("expected completion time and outcome to be set")
	}
	if _, released := f.queue.counts(agent); released != 1 {
		t.Fatalf("expected agent released once, got %d", released)
	}

	_, err = f.svc.MoveStage(ctx, lead.ID, nil, domain.StageWon)
	assertKind(t, err, apperr.KindInvalidTransition)

	timeline, _ := f.svc.GetTimeline(ctx, lead.ID, nil)
	if len(timeline) < 5 {
		t.Fatalf("expected at least 5 timeline entries, got %d", len(timeline))
	}
}

func TestConcurrentAcceptHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	agent := uuid.New()
	f := newFixture(t, false, agent)
	lead := f.create(t)

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AcceptLead(ctx, lead.ID, agent)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if k := apperr.GetKind(err); k != apperr.KindStaleState && k != apperr.KindInvalidTransition {
				t.Errorf("unexpected error kind %s: %v", k, err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one accept to win, got %d", wins)
	}
	stored, _ := f.repo.GetByID(ctx, lead.ID)
	if stored.Status != domain.StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", stored.Status)
	}
}

func TestRejectRedrawsExcludingAgent(t *testing.T) {
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()
	f := newFixture(t, false, first, second)
	lead := f.create(t)

	lead, err := f.svc.RejectLead(ctx, lead.ID, first, "")
	if err != nil {
		t.Fatalf("RejectLead: %v", err)
	}
	if lead.AgentID == nil || *lead.AgentID != second {
		t.Fatalf("expected redraw to %s, got %v", second, lead.AgentID)
	}
	if !slices.Contains(lead.ExcludedAgentIDs, first) {
		t.Fatalf("expected %s excluded, got %v", first, lead.ExcludedAgentIDs)
	}
	if _, released := f.queue.counts(first); released != 1 {
		t.Fatalf("expected first agent released, got %d", released)
	}

	lead, err = f.svc.RejectLead(ctx, lead.ID, second, "busy")
	if err != nil {
		t.Fatalf("second RejectLead: %v", err)
	}
	if lead.Status != domain.StatusAvailable {
		t.Fatalf("expected AVAILABLE after every agent passed, got %s", lead.Status)
	}
}

func TestRejectByOtherAgentForbidden(t *testing.T) {
	agent := uuid.New()
	f := newFixture(t, false, agent)
	lead := f.create(t)

	_, err := f.svc.RejectLead(context.Background(), lead.ID, uuid.New(), "")
	assertKind(t, err, apperr.KindForbidden)
}

func TestClaimAvailableLead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	lead := f.create(t)

	claimer := uuid.New()
	lead, err := f.svc.ClaimLead(ctx, lead.ID, claimer)
	if err != nil {
		t.Fatalf("ClaimLead: %v", err)
	}
	if lead.Status != domain.StatusWaitingAgentAccept || *lead.AgentID != claimer {
		t.Fatalf("expected claim offer to %s, got %s %v", claimer, lead.Status, lead.AgentID)
	}

	_, err = f.svc.ClaimLead(ctx, lead.ID, uuid.New())
	assertKind(t, err, apperr.KindAlreadyAssigned)

	if _, err := f.svc.AcceptLead(ctx, lead.ID, claimer); err != nil {
		t.Fatalf("AcceptLead after claim: %v", err)
	}
}

func TestOwnerApprovalFlow(t *testing.T) {
	ctx := context.Background()
	agent := uuid.New()
	f := newFixture(t, true, agent)
	lead := f.create(t)

	lead, err := f.svc.AcceptLead(ctx, lead.ID, agent)
	if err != nil {
		t.Fatalf("AcceptLead: %v", err)
	}
	if lead.Status != domain.StatusWaitingOwnerApproval {
		t.Fatalf("expected WAITING_OWNER_APPROVAL, got %s", lead.Status)
	}
	if want := f.clock.Now().Add(DefaultTiming.OwnerApprovalWindow); lead.ReservedUntil == nil || !lead.ReservedUntil.Equal(want) {
		t.Fatalf("expected owner reservation until %s, got %v", want, lead.ReservedUntil)
	}

	_, err = f.svc.ApproveByOwner(ctx, lead.ID, uuid.New())
	assertKind(t, err, apperr.KindForbidden)

	lead, err = f.svc.ApproveByOwner(ctx, lead.ID, f.property.OwnerID)
	if err != nil {
		t.Fatalf("ApproveByOwner: %v", err)
	}
	if lead.Status != domain.StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", lead.Status)
	}
}

func TestOwnerRejectReleasesAgent(t *testing.T) {
	ctx := context.Background()
	agent := uuid.New()
	f := newFixture(t, true, agent)
	lead := f.create(t)
	if _, err := f.svc.AcceptLead(ctx, lead.ID, agent); err != nil {
		t.Fatalf("AcceptLead: %v", err)
	}

	lead, err := f.svc.RejectByOwner(ctx, lead.ID, f.property.OwnerID, "")
	if err != nil {
		t.Fatalf("RejectByOwner: %v", err)
	}
	if lead.Status != domain.StatusOwnerRejected {
		t.Fatalf("expected OWNER_REJECTED, got %s", lead.Status)
	}
	if _, released := f.queue.counts(agent); released != 1 {
		t.Fatalf("expected agent released, got %d", released)
	}
}

func TestTerminalStageIsAbsorbing(t *testing.T) {
	ctx := context.Background()
	agent := uuid.New()
	f := newFixture(t, false, agent)
	lead := f.create(t)
	if _, err := f.svc.AcceptLead(ctx, lead.ID, agent); err != nil {
		t.Fatalf("AcceptLead: %v", err)
	}
	if _, err := f.svc.MoveStage(ctx, lead.ID, nil, domain.StageLost); err != nil {
		t.Fatalf("MoveStage: %v", err)
	}

	_, err := f.svc.MoveStage(ctx, lead.ID, nil, domain.StageContact)
	assertKind(t, err, apperr.KindInvalidTransition)

	_, err = f.svc.CompleteLead(ctx, lead.ID, nil, domain.OutcomeWon)
	assertKind(t, err, apperr.KindInvalidTransition)

	_, err = f.svc.MoveStage(ctx, lead.ID, nil, domain.StageLost)
	assertKind(t, err, apperr.KindInvalidTransition)
}

func TestRespondedAtStampedOnceAndNotByAutoReply(t *testing.T) {
	ctx := context.Background()
	agent := uuid.New()
	f := newFixture(t, false, agent)
	lead := f.create(t)

	if _, err := f.svc.RecordAutoReply(ctx, lead.ID, agent, "Thanks, an agent will reply soon."); err != nil {
		t.Fatalf("RecordAutoReply: %v", err)
	}
	stored, _ := f.repo.GetByID(ctx, lead.ID)
	if stored.RespondedAt != nil || stored.Stage != domain.StageNew {
		t.Fatalf("auto reply must not count as response, got respondedAt=%v stage=%s", stored.RespondedAt, stored.Stage)
	}

	first := f.clock.Now()
	if _, err := f.svc.RecordAgentMessage(ctx, lead.ID, Actor{ID: agent}, "Hi!"); err != nil {
		t.Fatalf("RecordAgentMessage: %v", err)
	}
	f.clock.Advance(time.Minute)
	if _, err := f.svc.RecordAgentMessage(ctx, lead.ID, Actor{ID: agent}, "<b>Still</b> there?"); err != nil {
		t.Fatalf("second RecordAgentMessage: %v", err)
	}

	stored, _ = f.repo.GetByID(ctx, lead.ID)
	if stored.RespondedAt == nil || !stored.RespondedAt.Equal(first) {
		t.Fatalf("expected respondedAt %s, got %v", first, stored.RespondedAt)
	}
	if stored.Stage != domain.StageContact {
		t.Fatalf("expected CONTACT, got %s", stored.Stage)
	}

	msgs, _ := f.svc.ListMessages(ctx, lead.ID, nil, 10)
	if len(msgs) != 3 || msgs[2].Content != "Still there?" {
		t.Fatalf("expected 3 sanitized messages, got %+v", msgs)
	}
}

func TestAgentMessageRequiresAssignment(t *testing.T) {
	agent := uuid.New()
	f := newFixture(t, false, agent)
	lead := f.create(t)

	_, err := f.svc.RecordAgentMessage(context.Background(), lead.ID, Actor{ID: uuid.New()}, "hello")
	assertKind(t, err, apperr.KindForbidden)

	_, err = f.svc.RecordAgentMessage(context.Background(), lead.ID, Actor{ID: uuid.New(), Admin: true}, "hello")
	if err != nil {
		t.Fatalf("admin should be able to reply: %v", err)
	}
}

func TestClientMessageRejectsEmptyAndClosedLeads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	lead := f.create(t)

	_, err := f.svc.RecordClientMessage(ctx, lead.ID, lead.ContactID, "  <p> </p> ")
	assertKind(t, err, apperr.KindValidation)

	_, err = f.svc.RecordClientMessage(ctx, lead.ID, uuid.New(), "hello")
	assertKind(t, err, apperr.KindNotFound)

	if _, err := f.svc.CancelLead(ctx, lead.ID, nil, ""); err != nil {
		t.Fatalf("CancelLead: %v", err)
	}
	_, err = f.svc.RecordClientMessage(ctx, lead.ID, lead.ContactID, "are you there?")
	assertKind(t, err, apperr.KindInvalidTransition)
}

func TestAcceptAfterWindowIsRejected(t *testing.T) {
	agent := uuid.New()
	f := newFixture(t, false, agent)
	lead := f.create(t)

	f.clock.Advance(DefaultTiming.AcceptWindow)
	_, err := f.svc.AcceptLead(context.Background(), lead.ID, agent)
	assertKind(t, err, apperr.KindInvalidTransition)
}

func TestExpireDueRedistributesThenExpires(t *testing.T) {
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()
	f := newFixture(t, false, first, second)
	lead := f.create(t)

	f.clock.Advance(DefaultTiming.AcceptWindow + time.Second)
	n, err := f.svc.ExpireDue(ctx, 10)
	if err != nil || n != 1 {
		t.Fatalf("ExpireDue: n=%d err=%v", n, err)
	}
	stored, _ := f.repo.GetByID(ctx, lead.ID)
	if stored.Status != domain.StatusWaitingAgentAccept || *stored.AgentID != second {
		t.Fatalf("expected timeout redraw to %s, got %s %v", second, stored.Status, stored.AgentID)
	}

	f.clock.Advance(DefaultTiming.MatchingTimeout)
	if _, err := f.svc.ExpireDue(ctx, 10); err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	stored, _ = f.repo.GetByID(ctx, lead.ID)
	if stored.Status != domain.StatusExpired {
		t.Fatalf("expected EXPIRED past the matching deadline, got %s", stored.Status)
	}
	if _, released := f.queue.counts(second); released != 1 {
		t.Fatalf("expected second agent released, got %d", released)
	}

	n, _ = f.svc.ExpireDue(ctx, 10)
	if n != 0 {
		t.Fatalf("expected nothing left to sweep, got %d", n)
	}
}

func TestExpireDueOwnerApproval(t *testing.T) {
	ctx := context.Background()
	agent := uuid.New()
	f := newFixture(t, true, agent)
	lead := f.create(t)
	if _, err := f.svc.AcceptLead(ctx, lead.ID, agent); err != nil {
		t.Fatalf("AcceptLead: %v", err)
	}

	f.clock.Advance(DefaultTiming.OwnerApprovalWindow)
	if _, err := f.svc.ExpireDue(ctx, 10); err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	stored, _ := f.repo.GetByID(ctx, lead.ID)
	if stored.Status != domain.StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", stored.Status)
	}
}

func TestDismissRequiresAdminAndAvailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	lead := f.create(t)

	_, err := f.svc.DismissLead(ctx, lead.ID, &Actor{ID: uuid.New()}, "")
	assertKind(t, err, apperr.KindForbidden)

	lead, err = f.svc.DismissLead(ctx, lead.ID, &Actor{ID: uuid.New(), Admin: true}, "duplicate")
	if err != nil {
		t.Fatalf("DismissLead: %v", err)
	}
	if lead.Status != domain.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", lead.Status)
	}
}
