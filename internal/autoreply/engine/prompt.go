package engine

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"realty_leads_backend/internal/autoreply/ports"
	"realty_leads_backend/platform/ai"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptCatalogue []byte

type promptFile struct {
	Version string `yaml:"version"`
	System  string `yaml:"system"`
	User    string `yaml:"user"`
}

// promptData is the template input.
type promptData struct {
	AgentName    string
	ContactName  string
	Listing      ports.ListingSummary
	Price        string
	History      []ports.ConversationMessage
	Latest       string
	MaxSentences int
}

type promptBuilder struct {
	system *template.Template
	user   *template.Template
}

func loadPrompts() (*promptBuilder, error) {
	var f promptFile
	if err := yaml.Unmarshal(promptCatalogue, &f); err != nil {
		return nil, fmt.Errorf("parse prompt catalogue: %w", err)
	}
	system, err := template.New("system").Option("missingkey=zero").Parse(f.System)
	if err != nil {
		return nil, fmt.Errorf("parse system prompt: %w", err)
	}
	user, err := template.New("user").Option("missingkey=zero").Parse(f.User)
	if err != nil {
		return nil, fmt.Errorf("parse user prompt: %w", err)
	}
	return &promptBuilder{system: system, user: user}, nil
}

func (b *promptBuilder) build(data promptData) (ai.Prompt, error) {
	if data.MaxSentences == 0 {
		data.MaxSentences = 4
	}
	if data.AgentName == "" {
		data.AgentName = "your agent"
	}
	if data.ContactName == "" {
		data.ContactName = "unknown"
	}
	if data.Listing.PriceCents > 0 {
		data.Price = formatPrice(data.Listing.PriceCents)
	}

	var system, user strings.Builder
	if err := b.system.Execute(&system, data); err != nil {
		return ai.Prompt{}, err
	}
	if err := b.user.Execute(&user, data); err != nil {
		return ai.Prompt{}, err
	}
	return ai.Prompt{System: strings.TrimSpace(system.String()), User: strings.TrimSpace(user.String())}, nil
}

// formatPrice renders cents as a whole-unit amount with thousands separators.
func formatPrice(cents int64) string {
	units := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
