// Package domain holds the auto-reply settings and the pure decision rules.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidSettings = errors.New("invalid auto-reply settings")

// Weekday keys accepted in a week schedule.
var weekdayKeys = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DayWindow is the working window of one weekday as HH:MM wall-clock times.
// The window is [Start, End).
type DayWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Settings configure when an agent's leads get automatic replies.
type Settings struct {
	AgentID                 uuid.UUID
	Enabled                 bool
	Timezone                string
	WeekSchedule            map[string]DayWindow
	CooldownMinutes         int
	MaxRepliesPerLeadPer24h int
	UpdatedAt               time.Time
}

// DefaultSettings is used for agents who never saved settings. Auto-reply is off.
func DefaultSettings(agentID uuid.UUID) Settings {
	workday := DayWindow{Enabled: true, Start: "09:00", End: "18:00"}
	return Settings{
		AgentID:  agentID,
		Enabled:  false,
		Timezone: "UTC",
		WeekSchedule: map[string]DayWindow{
			"monday":    workday,
			"tuesday":   workday,
			"wednesday": workday,
			"thursday":  workday,
			"friday":    workday,
		},
		CooldownMinutes:         30,
		MaxRepliesPerLeadPer24h: 3,
	}
}

// Validate checks weekday keys, times, timezone and limits.
func (s Settings) Validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, s.Timezone)
	}
	if s.CooldownMinutes < 1 {
		return fmt.Errorf("%w: cooldownMinutes must be at least 1", ErrInvalidSettings)
	}
	if s.MaxRepliesPerLeadPer24h < 1 {
		return fmt.Errorf("%w: maxRepliesPerLeadPer24h must be at least 1", ErrInvalidSettings)
	}
	for key, w := range s.WeekSchedule {
		if _, ok := weekdayKeys[key]; !ok {
			return fmt.Errorf("%w: unknown weekday %q", ErrInvalidSettings, key)
		}
		start, err := parseClock(w.Start)
		if err != nil {
			return fmt.Errorf("%w: %s start: %v", ErrInvalidSettings, key, err)
		}
		end, err := parseClock(w.End)
		if err != nil {
			return fmt.Errorf("%w: %s end: %v", ErrInvalidSettings, key, err)
		}
		if start >= end {
			return fmt.Errorf("%w: %s start must be before end", ErrInvalidSettings, key)
		}
	}
	return nil
}

// Normalize lower-cases weekday keys.
func (s Settings) Normalize() Settings {
	out := make(map[string]DayWindow, len(s.WeekSchedule))
	for k, v := range s.WeekSchedule {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	s.WeekSchedule = out
	return s
}

// InWorkingHours reports whether now falls inside the window of its weekday
// in the configured timezone.
func (s Settings) InWorkingHours(now time.Time) (bool, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return false, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, s.Timezone)
	}
	local := now.In(loc)
	window, ok := s.WeekSchedule[strings.ToLower(local.Weekday().String())]
	if !ok || !window.Enabled {
		return false, nil
	}
	start, err := parseClock(window.Start)
	if err != nil {
		return false, err
	}
	end, err := parseClock(window.End)
	if err != nil {
		return false, err
	}
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return sinceMidnight >= start && sinceMidnight < end, nil
}

// parseClock converts HH:MM into an offset from midnight.
func parseClock(v string) (time.Duration, error) {
	if len(v) != 5 {
		return 0, fmt.Errorf("time %q must be HH:MM", v)
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", v)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
