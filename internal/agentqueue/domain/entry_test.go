package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPickOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	high := Entry{AgentID: uuid.New(), Score: 5, Status: StatusActive, ActiveLeadCount: 3, LastActivityAt: base, Position: 4}
	busy := Entry{AgentID: uuid.New(), Score: 1, Status: StatusActive, ActiveLeadCount: 2, LastActivityAt: base, Position: 1}
	idle := Entry{AgentID: uuid.New(), Score: 1, Status: StatusActive, ActiveLeadCount: 0, LastActivityAt: base.Add(time.Hour), Position: 2}
	older := Entry{AgentID: uuid.New(), Score: 1, Status: StatusActive, ActiveLeadCount: 0, LastActivityAt: base, Position: 3}

	got := Rank([]Entry{busy, idle, older, high})
	want := []uuid.UUID{high.AgentID, older.AgentID, idle.AgentID, busy.AgentID}
	for i := range want {
		if got[i].AgentID != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i].AgentID, want[i])
		}
	}
}

func TestPickSkipsInactiveExcludedAndOtherTeams(t *testing.T) {
	team := uuid.New()
	other := uuid.New()
	inactive := Entry{AgentID: uuid.New(), Score: 9, Status: StatusInactive}
	excluded := Entry{AgentID: uuid.New(), Score: 8, Status: StatusActive, TeamID: &team}
	foreign := Entry{AgentID: uuid.New(), Score: 7, Status: StatusActive, TeamID: &other}
	ok := Entry{AgentID: uuid.New(), Score: 1, Status: StatusActive, TeamID: &team}

	picked, found := Pick([]Entry{inactive, excluded, foreign, ok}, Filter{Exclude: []uuid.UUID{excluded.AgentID}, TeamID: &team})
	if !found || picked.AgentID != ok.AgentID {
		t.Fatalf("expected %s, got %s (found=%v)", ok.AgentID, picked.AgentID, found)
	}

	if _, found := Pick([]Entry{inactive}, Filter{}); found {
		t.Fatal("expected no candidate when everyone is inactive")
	}
}

func TestPositionBreaksFullTies(t *testing.T) {
	at := time.Now()
	a := Entry{AgentID: uuid.New(), Status: StatusActive, LastActivityAt: at, Position: 7}
	b := Entry{AgentID: uuid.New(), Status: StatusActive, LastActivityAt: at, Position: 3}
	if picked, _ := Pick([]Entry{a, b}, Filter{}); picked.AgentID != b.AgentID {
		t.Fatal("expected lower position to win a full tie")
	}
}
