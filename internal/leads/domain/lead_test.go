package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusMatching, true},
		{StatusMatching, StatusWaitingAgentAccept, true},
		{StatusMatching, StatusAvailable, true},
		{StatusWaitingAgentAccept, StatusAccepted, true},
		{StatusWaitingAgentAccept, StatusMatching, true},
		{StatusAvailable, StatusWaitingAgentAccept, true},
		{StatusAccepted, StatusWaitingOwnerApproval, true},
		{StatusAccepted, StatusConfirmed, true},
		{StatusWaitingOwnerApproval, StatusOwnerRejected, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusAvailable, StatusExpired, true},
		{StatusPending, StatusAccepted, false},
		{StatusAvailable, StatusAccepted, false},
		{StatusMatching, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusExpired, StatusMatching, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusWaitingAgentAccept, StatusWaitingAgentAccept, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestEveryNonTerminalStatusCanBeCancelledOrExpired(t *testing.T) {
	for from := range transitions {
		if !CanTransition(from, StatusCancelled) || !CanTransition(from, StatusExpired) {
			t.Errorf("%s must reach CANCELLED and EXPIRED", from)
		}
	}
}

func TestOfferRejectsAssignedLead(t *testing.T) {
	l, _ := NewLead(uuid.New(), uuid.New(), nil, false, time.Hour, t0)
	_, _ = l.Transition(StatusMatching, "", nil, t0)
	if _, err := l.Offer(uuid.New(), t0.Add(time.Minute), "", nil, t0); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if _, err := l.Offer(uuid.New(), t0.Add(time.Minute), "", nil, t0); !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned, got %v", err)
	}
}

func TestReleaseAgentExcludesOnce(t *testing.T) {
	agent := uuid.New()
	l := Lead{AgentID: &agent, ReservedUntil: &t0}
	l.ReleaseAgent()
	l.AgentID = &agent
	l.ReleaseAgent()
	if len(l.ExcludedAgentIDs) != 1 || l.AgentID != nil || l.ReservedUntil != nil {
		t.Fatalf("unexpected lead after release: %+v", l)
	}
}

func TestTerminalStagesAreAbsorbing(t *testing.T) {
	l := Lead{ID: uuid.New(), Stage: StageProposal}
	if _, changed, err := l.MoveStage(StageWon, nil, t0); err != nil || !changed {
		t.Fatalf("move to WON: changed=%v err=%v", changed, err)
	}
	if _, _, err := l.MoveStage(StageContact, nil, t0); !errors.Is(err, ErrTerminalStage) {
		t.Fatalf("expected ErrTerminalStage, got %v", err)
	}
	for _, to := range []Stage{StageWon, StageLost, StageNew} {
		if _, changed, err := l.MoveStage(to, nil, t0); !errors.Is(err, ErrTerminalStage) || changed {
			t.Fatalf("move %s from WON: changed=%v err=%v, want ErrTerminalStage", to, changed, err)
		}
	}
	if l.Stage != StageWon {
		t.Fatalf("stage = %s, want WON", l.Stage)
	}
}

func TestProfessionalReplyNudgesOnlyOnce(t *testing.T) {
	l := Lead{ID: uuid.New(), Stage: StageNew}
	first := l.RecordProfessionalReply(nil, t0)
	if first == nil || l.Stage != StageContact {
		t.Fatalf("expected NEW -> CONTACT, stage=%s", l.Stage)
	}
	later := t0.Add(time.Hour)
	if second := l.RecordProfessionalReply(nil, later); second != nil {
		t.Fatal("expected no second stage event")
	}
	if !l.RespondedAt.Equal(t0) {
		t.Fatalf("respondedAt overwritten: %v", l.RespondedAt)
	}

	visit := Lead{ID: uuid.New(), Stage: StageVisit}
	if ev := visit.RecordProfessionalReply(nil, t0); ev != nil || visit.Stage != StageVisit {
		t.Fatal("stage beyond NEW must not move")
	}
}

func TestCompleteForcesOutcomeStage(t *testing.T) {
	l := Lead{ID: uuid.New(), Status: StatusConfirmed, Stage: StageDocuments}
	events, err := l.Complete(OutcomeWon, nil, t0)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if l.Status != StatusCompleted || l.Stage != StageWon || len(events) != 2 {
		t.Fatalf("unexpected completion: status=%s stage=%s events=%d", l.Status, l.Stage, len(events))
	}

	alreadyWon := Lead{ID: uuid.New(), Status: StatusConfirmed, Stage: StageWon}
	events, err = alreadyWon.Complete(OutcomeWon, nil, t0)
	if err != nil {
		t.Fatalf("complete matching stage: %v", err)
	}
	if alreadyWon.Status != StatusCompleted || len(events) != 1 {
		t.Fatalf("expected status entry only, status=%s events=%d", alreadyWon.Status, len(events))
	}

	lost := Lead{ID: uuid.New(), Status: StatusConfirmed, Stage: StageLost}
	if _, err := lost.Complete(OutcomeWon, nil, t0); !errors.Is(err, ErrTerminalStage) {
		t.Fatalf("expected conflict with absorbed stage, got %v", err)
	}

	early := Lead{ID: uuid.New(), Status: StatusAccepted, Stage: StageVisit}
	if _, err := early.Complete(OutcomeLost, nil, t0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestTransitionClearsReservationOutsideWaitingStates(t *testing.T) {
	agent := uuid.New()
	until := t0.Add(time.Minute)
	l := Lead{ID: uuid.New(), Status: StatusWaitingAgentAccept, AgentID: &agent, ReservedUntil: &until}
	if _, err := l.Transition(StatusAccepted, "", &agent, t0); err != nil {
		t.Fatal(err)
	}
	if l.ReservedUntil != nil {
		t.Fatal("expected reservation cleared on accept")
	}
}
