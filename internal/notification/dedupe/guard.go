// Package dedupe answers whether an outbound notification already went out
// for a lead inside a time window. Markers are INTERNAL_MESSAGE events in the
// lead event log whose title is the dedupe key.
package dedupe

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventLog is the slice of the lead event log the guard reads and writes.
type EventLog interface {
	LastInternalEventAt(ctx context.Context, leadID uuid.UUID, title string) (time.Time, bool, error)
	RecordInternalEvent(ctx context.Context, leadID uuid.UUID, title, description string, metadata map[string]any) error
}

type Guard struct {
	log EventLog
	now func() time.Time
}

func New(log EventLog, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{log: log, now: now}
}

// WasRecentlyNotified reports whether a marker titled key was written less than
// window ago. A marker stamped in the future counts as recent.
func (g *Guard) WasRecentlyNotified(ctx context.Context, leadID uuid.UUID, key string, window time.Duration) (bool, error) {
	at, found, err := g.log.LastInternalEventAt(ctx, leadID, key)
	if err != nil || !found {
		return false, err
	}
	return g.now().Sub(at) < window, nil
}

// MarkNotified appends the marker after a successful send.
func (g *Guard) MarkNotified(ctx context.Context, leadID uuid.UUID, key, description string, metadata map[string]any) error {
	return g.log.RecordInternalEvent(ctx, leadID, key, description, metadata)
}

// Key builds a dedupe key from a template name and the recipient or subject ids.
func Key(template string, parts ...uuid.UUID) string {
	key := "notify:" + template
	for _, p := range parts {
		key += ":" + p.String()
	}
	return key
}
