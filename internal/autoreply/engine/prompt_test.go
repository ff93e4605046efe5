package engine

import (
	"strings"
	"testing"

	"realty_leads_backend/internal/autoreply/ports"
)

func TestPromptRendersListingAndRoles(t *testing.T) {
	b, err := loadPrompts()
	if err != nil {
		t.Fatalf("loadPrompts: %v", err)
	}
	p, err := b.build(promptData{
		AgentName:   "Marina",
		ContactName: "Joel",
		Listing:     ports.ListingSummary{Title: "Garden house", City: "Curitiba", PriceCents: 45000000},
		History: []ports.ConversationMessage{
			{Content: "Hi, is it available?"},
			{FromAgent: true, AutoReply: true, Content: "Marina will reply soon."},
		},
		Latest: "Can I visit tomorrow?",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !strings.Contains(p.System, "Marina") {
		t.Fatalf("system prompt should name the agent:\n%s", p.System)
	}
	for _, want := range []string{
		"Garden house in Curitiba, listed at 450.000",
		"[client] Hi, is it available?",
		"[assistant] Marina will reply soon.",
		"Can I visit tomorrow?",
	} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, p.User)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := map[int64]string{
		99:         "0",
		100000:     "1.000",
		45000000:   "450.000",
		1234567800: "12.345.678",
	}
	for cents, want := range tests {
		if got := formatPrice(cents); got != want {
			t.Errorf("formatPrice(%d) = %q, want %q", cents, got, want)
		}
	}
}
