package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"realty_leads_backend/platform/logger"
)

type gatewayConfig struct{ url string }

func (g gatewayConfig) GetWhatsAppURL() string        { return g.url }
func (g gatewayConfig) GetWhatsAppKey() string        { return "user:pass" }
func (g gatewayConfig) GetWhatsAppDeviceID() string   { return "device-1" }
func (g gatewayConfig) IsWhatsAppEnabled() bool       { return g.url != "" }
func (g gatewayConfig) GetPhoneDefaultRegion() string { return "BR" }

func TestSendMessagePostsNormalizedRecipient(t *testing.T) {
	var got gowaRequest
	var auth, device string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send/message" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		device = r.Header.Get("X-Device-Id")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(gatewayConfig{url: srv.URL + "/"}, logger.NewDiscard())
	if err := c.SendMessage(context.Background(), "(11) 98765-4321", "Olá"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got.Phone != "5511987654321@s.whatsapp.net" {
		t.Errorf("phone = %q", got.Phone)
	}
	if got.Message != "Olá" {
		t.Errorf("message = %q", got.Message)
	}
	if auth != "Basic dXNlcjpwYXNz" || device != "device-1" {
		t.Errorf("headers auth=%q device=%q", auth, device)
	}
}

func TestSendMessageGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(gatewayConfig{url: srv.URL}, logger.NewDiscard())
	if err := c.SendMessage(context.Background(), "+5511987654321", "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSendMessageInvalidRecipient(t *testing.T) {
	c := NewClient(gatewayConfig{url: "http://unused"}, logger.NewDiscard())
	if err := c.SendMessage(context.Background(), "not a phone", "x"); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("err = %v", err)
	}
}

func TestNilClientDropsMessages(t *testing.T) {
	c := NewClient(gatewayConfig{}, logger.NewDiscard())
	if c != nil {
		t.Fatal("expected nil client when gateway is not configured")
	}
	if err := c.SendMessage(context.Background(), "+5511987654321", "x"); err != nil {
		t.Fatalf("nil client: %v", err)
	}
}
