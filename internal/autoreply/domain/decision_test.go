package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func enabledSettings() Settings {
	s := DefaultSettings(uuid.New())
	s.Enabled = true
	s.Timezone = "America/Sao_Paulo"
	s.CooldownMinutes = 3
	s.MaxRepliesPerLeadPer24h = 2
	return s
}

// wednesdayAt builds a Wednesday wall-clock time in São Paulo.
func wednesdayAt(t *testing.T, hour, minute, second int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return time.Date(2026, 6, 3, hour, minute, second, 0, loc)
}

func TestEvaluateDisabled(t *testing.T) {
	s := enabledSettings()
	s.Enabled = false
	v := Evaluate(wednesdayAt(t, 22, 0, 0), s, false, History{})
	if v.Generate || v.Reason != ReasonDisabled {
		t.Fatalf("expected disabled skip, got %+v", v)
	}
}

func TestEvaluateInHoursAndOnlineSkips(t *testing.T) {
	v := Evaluate(wednesdayAt(t, 10, 0, 0), enabledSettings(), true, History{})
	if v.Generate || v.Reason != ReasonAgentAvailable {
		t.Fatalf("expected agent available skip, got %+v", v)
	}
}

func TestEvaluateInHoursButOfflineGenerates(t *testing.T) {
	v := Evaluate(wednesdayAt(t, 10, 0, 0), enabledSettings(), false, History{})
	if !v.Generate {
		t.Fatalf("expected generation for offline agent, got %+v", v)
	}
}

func TestEvaluateWindowEndIsExclusive(t *testing.T) {
	tests := []struct {
		name     string
		at       time.Time
		generate bool
	}{
		{name: "start is inclusive", at: wednesdayAt(t, 9, 0, 0), generate: false},
		{name: "last second inside", at: wednesdayAt(t, 17, 59, 59), generate: false},
		{name: "end is exclusive", at: wednesdayAt(t, 18, 0, 0), generate: true},
		{name: "after end", at: wednesdayAt(t, 18, 0, 1), generate: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.at, enabledSettings(), true, History{})
			if v.Generate != tt.generate {
				t.Fatalf("expected generate=%v, got %+v", tt.generate, v)
			}
		})
	}
}

func TestEvaluateUsesAgentTimezone(t *testing.T) {
	wednesdayAt(t, 0, 0, 0)
	// 12:00 UTC is 09:00 in São Paulo, inside the window.
	now := time.Date(2026, 6, 3, 12, 0, 0, 0, time.UTC)
	v := Evaluate(now, enabledSettings(), true, History{})
	if v.Generate {
		t.Fatalf("expected in-hours skip, got %+v", v)
	}
	// 11:59 UTC is 08:59 local.
	v = Evaluate(now.Add(-time.Minute), enabledSettings(), true, History{})
	if !v.Generate {
		t.Fatalf("expected generation before the window, got %+v", v)
	}
}

func TestEvaluateDisabledDayNeverInHours(t *testing.T) {
	saturday := wednesdayAt(t, 10, 0, 0).AddDate(0, 0, 3)
	v := Evaluate(saturday, enabledSettings(), true, History{})
	if !v.Generate {
		t.Fatalf("expected generation on an unscheduled day, got %+v", v)
	}
}

func TestEvaluateCooldown(t *testing.T) {
	now := wednesdayAt(t, 22, 0, 0)
	last := now.Add(-90 * time.Second)
	v := Evaluate(now, enabledSettings(), false, History{LastSentAt: &last, SentLast24h: 1})
	if v.Generate || v.Reason != ReasonCooldown {
		t.Fatalf("expected cooldown skip, got %+v", v)
	}

	last = now.Add(-3 * time.Minute)
	v = Evaluate(now, enabledSettings(), false, History{LastSentAt: &last, SentLast24h: 1})
	if !v.Generate {
		t.Fatalf("expected generation after cooldown, got %+v", v)
	}
}

func TestEvaluateRateLimit(t *testing.T) {
	now := wednesdayAt(t, 22, 0, 0)
	last := now.Add(-time.Hour)
	v := Evaluate(now, enabledSettings(), false, History{LastSentAt: &last, SentLast24h: 2})
	if v.Generate || v.Reason != ReasonRateLimited {
		t.Fatalf("expected rate limit skip, got %+v", v)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Settings) {}, ok: true},
		{name: "unknown weekday", mutate: func(s *Settings) { s.WeekSchedule["funday"] = DayWindow{Start: "09:00", End: "10:00"} }},
		{name: "bad clock", mutate: func(s *Settings) { s.WeekSchedule["monday"] = DayWindow{Start: "9:00", End: "10:00"} }},
		{name: "start after end", mutate: func(s *Settings) { s.WeekSchedule["monday"] = DayWindow{Start: "18:00", End: "09:00"} }},
		{name: "empty window", mutate: func(s *Settings) { s.WeekSchedule["monday"] = DayWindow{Start: "09:00", End: "09:00"} }},
		{name: "bad timezone", mutate: func(s *Settings) { s.Timezone = "Mars/Olympus" }},
		{name: "zero cooldown", mutate: func(s *Settings) { s.CooldownMinutes = 0 }},
		{name: "zero max", mutate: func(s *Settings) { s.MaxRepliesPerLeadPer24h = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings(uuid.New())
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected valid settings, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("expected ErrInvalidSettings, got %v", err)
			}
		})
	}
}
