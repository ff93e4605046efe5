// Package domain holds the agent queue entry and its fairness ordering.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Entry is one agent's slot in the distribution queue.
type Entry struct {
	AgentID         uuid.UUID
	TeamID          *uuid.UUID
	Position        int64
	Score           float64
	Status          Status
	ActiveLeadCount int
	LastActivityAt  time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Filter narrows the candidate set for a draw.
type Filter struct {
	Exclude []uuid.UUID
	// TeamID restricts candidates to one team; nil means any team.
	TeamID *uuid.UUID
}

// Eligible reports whether e may receive a new lead under f.
func (e Entry) Eligible(f Filter) bool {
	if e.Status != StatusActive {
		return false
	}
	if slices.Contains(f.Exclude, e.AgentID) {
		return false
	}
	return MatchesTeam(e, f.TeamID)
}

// MatchesTeam reports whether e belongs to teamID; a nil teamID matches everything.
func MatchesTeam(e Entry, teamID *uuid.UUID) bool {
	if teamID == nil {
		return true
	}
	return e.TeamID != nil && *e.TeamID == *teamID
}

// Before orders entries for selection: higher score first, then fewer active
// leads, then longest idle, then queue position.
func Before(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.ActiveLeadCount != b.ActiveLeadCount {
		return a.ActiveLeadCount < b.ActiveLeadCount
	}
	if !a.LastActivityAt.Equal(b.LastActivityAt) {
		return a.LastActivityAt.Before(b.LastActivityAt)
	}
	return a.Position < b.Position
}

// Rank returns a sorted copy of entries in selection order.
func Rank(entries []Entry) []Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		switch {
		case Before(a, b):
			return -1
		case Before(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Pick returns the first eligible entry in selection order.
func Pick(entries []Entry, f Filter) (Entry, bool) {
	for _, e := range Rank(entries) {
		if e.Eligible(f) {
			return e, true
		}
	}
	return Entry{}, false
}
