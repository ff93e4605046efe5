package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
)

// ErrCircuitOpen is returned while the Ollama backend is cooling down after
// consecutive failures.
var ErrCircuitOpen = errors.New("ai: ollama circuit open")

const (
	ollamaFailureThreshold = 3
	ollamaCooldown         = 30 * time.Second
)

// Ollama generates text with a local Ollama server.
type Ollama struct {
	api   *api.Client
	model string

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// NewOllama creates an Ollama-backed generator.
func NewOllama(rawURL, model string, httpClient *http.Client) (*Ollama, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ollama url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ollama{api: api.NewClient(u, httpClient), model: model}, nil
}

func (o *Ollama) Name() string { return "ollama:" + o.model }

func (o *Ollama) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if o.circuitOpen() {
		return "", ErrCircuitOpen
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt.User,
		System: prompt.System,
		Stream: &stream,
	}
	var out strings.Builder
	err := o.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		out.WriteString(r.Response)
		return nil
	})
	if err != nil {
		o.recordFailure()
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	o.recordSuccess()

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (o *Ollama) circuitOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return time.Now().Before(o.openUntil)
}

func (o *Ollama) recordFailure() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures++
	if o.failures >= ollamaFailureThreshold {
		o.openUntil = time.Now().Add(ollamaCooldown)
		o.failures = 0
	}
}

func (o *Ollama) recordSuccess() {
	o.mu.Lock()
	o.failures = 0
	o.mu.Unlock()
}
