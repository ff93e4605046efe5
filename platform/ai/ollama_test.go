package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["system"] != "be brief" {
			t.Errorf("system prompt not forwarded: %v", req["system"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "m", "response": " Hello! ", "done": true})
	}))
	defer srv.Close()

	gen, err := NewOllama(srv.URL, "m", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	text, err := gen.Generate(context.Background(), Prompt{System: "be brief", User: "hi"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Hello!" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestOllamaCircuitOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"down"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	gen, _ := NewOllama(srv.URL, "m", srv.Client())
	for i := 0; i < ollamaFailureThreshold; i++ {
		if _, err := gen.Generate(context.Background(), Prompt{User: "x"}); err == nil {
			t.Fatal("expected failure")
		}
	}
	if _, err := gen.Generate(context.Background(), Prompt{User: "x"}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open, got %v", err)
	}
}

func TestDisabledGenerator(t *testing.T) {
	if _, err := (Disabled{}).Generate(context.Background(), Prompt{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
