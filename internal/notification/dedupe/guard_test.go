package dedupe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type marker struct {
	title string
	at    time.Time
}

type fakeLog struct {
	now     func() time.Time
	markers map[uuid.UUID][]marker
	err     error
}

func (f *fakeLog) LastInternalEventAt(_ context.Context, leadID uuid.UUID, title string) (time.Time, bool, error) {
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	var latest time.Time
	found := false
	for _, m := range f.markers[leadID] {
		if m.title == title && (!found || m.at.After(latest)) {
			latest, found = m.at, true
		}
	}
	return latest, found, nil
}

func (f *fakeLog) RecordInternalEvent(_ context.Context, leadID uuid.UUID, title, _ string, _ map[string]any) error {
	if f.markers == nil {
		f.markers = map[uuid.UUID][]marker{}
	}
	f.markers[leadID] = append(f.markers[leadID], marker{title: title, at: f.now()})
	return nil
}

func TestWasRecentlyNotified(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	now := base
	log := &fakeLog{now: func() time.Time { return now }}
	g := New(log, func() time.Time { return now })
	ctx := context.Background()
	lead := uuid.New()
	key := Key("lead_offered", uuid.New())

	recent, err := g.WasRecentlyNotified(ctx, lead, key, 10*time.Minute)
	if err != nil || recent {
		t.Fatalf("before marker: recent=%v err=%v", recent, err)
	}

	if err := g.MarkNotified(ctx, lead, key, "sent", nil); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"immediately", 0, true},
		{"inside window", 9*time.Minute + 59*time.Second, true},
		{"at window edge", 10 * time.Minute, false},
		{"after window", time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = base.Add(tt.elapsed)
			got, err := g.WasRecentlyNotified(ctx, lead, key, 10*time.Minute)
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			if got != tt.want {
				t.Errorf("recent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeysAreScopedPerLeadAndTitle(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	log := &fakeLog{now: func() time.Time { return now }}
	g := New(log, func() time.Time { return now })
	ctx := context.Background()
	lead, other := uuid.New(), uuid.New()
	agent := uuid.New()

	_ = g.MarkNotified(ctx, lead, Key("lead_offered", agent), "", nil)

	if recent, _ := g.WasRecentlyNotified(ctx, other, Key("lead_offered", agent), time.Hour); recent {
		t.Error("marker leaked to another lead")
	}
	if recent, _ := g.WasRecentlyNotified(ctx, lead, Key("owner_approval", agent), time.Hour); recent {
		t.Error("marker leaked to another template")
	}
}

func TestWasRecentlyNotifiedPropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	g := New(&fakeLog{err: boom}, nil)
	if _, err := g.WasRecentlyNotified(context.Background(), uuid.New(), "k", time.Minute); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
