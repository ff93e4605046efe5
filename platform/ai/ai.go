// Package ai provides generative-text clients behind a single Generator contract.
// This is part of the platform layer and contains no business logic.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"realty_leads_backend/platform/config"
)

// ErrEmptyResponse is returned when a backend answers without text.
var ErrEmptyResponse = errors.New("ai: empty response")

// ErrDisabled is returned by the disabled generator.
var ErrDisabled = errors.New("ai: no provider configured")

// Prompt is a single-turn generation request.
type Prompt struct {
	System string
	User   string
}

// Generator produces text for a prompt. Implementations honor ctx deadlines.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Name() string
}

// New builds the generator selected by AI_PROVIDER.
func New(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	switch cfg.GetAIProvider() {
	case "genai", "gemini":
		return NewGenAI(ctx, cfg.GetGenAIAPIKey(), cfg.GetGenAIModel())
	case "ollama":
		return NewOllama(cfg.GetOllamaURL(), cfg.GetOllamaModel(), &http.Client{Timeout: 60 * time.Second})
	case "", "none":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.GetAIProvider())
	}
}

// Disabled always fails; auto-replies then resolve to a generation error.
type Disabled struct{}

func (Disabled) Generate(context.Context, Prompt) (string, error) { return "", ErrDisabled }
func (Disabled) Name() string                                     { return "disabled" }
