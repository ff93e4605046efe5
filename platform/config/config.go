// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides the shared Redis connection used for presence and realtime relay.
type RedisConfig interface {
	GetRedisURL() string
	IsRedisEnabled() bool
}

// SchedulerConfig provides settings for the background worker process.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSweepSchedule() string
	GetSweepBatchSize() int
}

// EmailConfig provides SMTP settings for the email channel.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// WhatsAppConfig provides settings for the WhatsApp gateway channel.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	IsWhatsAppEnabled() bool
	GetPhoneDefaultRegion() string
}

// AIConfig selects and configures the generative-text backend.
type AIConfig interface {
	GetAIProvider() string
	GetGenAIAPIKey() string
	GetGenAIModel() string
	GetOllamaURL() string
	GetOllamaModel() string
}

// LeadTimingConfig provides the lifecycle timers of the lead state machine.
type LeadTimingConfig interface {
	GetLeadAcceptWindow() time.Duration
	GetLeadOwnerApprovalWindow() time.Duration
	GetLeadMatchingTimeout() time.Duration
	GetSLAFirstResponse() time.Duration
}

// AutoReplyConfig provides the timing knobs of the auto-reply engine.
type AutoReplyConfig interface {
	GetAutoReplyInlineTimeout() time.Duration
	GetAutoReplyGenerationTimeout() time.Duration
	GetAutoReplyHistoryLimit() int
	GetAutoReplyRetryDelay() time.Duration
	GetPresenceTTL() time.Duration
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetNotificationDedupeWindow() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	AppBaseURL               string
	RedisURL                 string
	AsynqQueueName           string
	AsynqConcurrency         int
	SweepSchedule            string
	SweepBatchSize           int
	EmailEnabled             bool
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	WhatsAppURL              string
	WhatsAppKey              string
	WhatsAppDeviceID         string
	PhoneDefaultRegion       string
	AIProvider               string
	GenAIAPIKey              string
	GenAIModel               string
	OllamaURL                string
	OllamaModel              string
	LeadAcceptWindow         time.Duration
	LeadOwnerApprovalWindow  time.Duration
	LeadMatchingTimeout      time.Duration
	SLAFirstResponse         time.Duration
	AutoReplyInlineTimeout   time.Duration
	AutoReplyGenTimeout      time.Duration
	AutoReplyHistoryLimit    int
	AutoReplyRetryDelay      time.Duration
	PresenceTTL              time.Duration
	NotificationDedupeWindow time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) IsRedisEnabled() bool      { return c.RedisURL != "" }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetSweepSchedule() string  { return c.SweepSchedule }
func (c *Config) GetSweepBatchSize() int    { return c.SweepBatchSize }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string        { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string        { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string   { return c.WhatsAppDeviceID }
func (c *Config) IsWhatsAppEnabled() bool       { return c.WhatsAppURL != "" }
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// AIConfig implementation
func (c *Config) GetAIProvider() string  { return c.AIProvider }
func (c *Config) GetGenAIAPIKey() string { return c.GenAIAPIKey }
func (c *Config) GetGenAIModel() string  { return c.GenAIModel }
func (c *Config) GetOllamaURL() string   { return c.OllamaURL }
func (c *Config) GetOllamaModel() string { return c.OllamaModel }

// LeadTimingConfig implementation
func (c *Config) GetLeadAcceptWindow() time.Duration        { return c.LeadAcceptWindow }
func (c *Config) GetLeadOwnerApprovalWindow() time.Duration { return c.LeadOwnerApprovalWindow }
func (c *Config) GetLeadMatchingTimeout() time.Duration     { return c.LeadMatchingTimeout }
func (c *Config) GetSLAFirstResponse() time.Duration        { return c.SLAFirstResponse }

// AutoReplyConfig implementation
func (c *Config) GetAutoReplyInlineTimeout() time.Duration     { return c.AutoReplyInlineTimeout }
func (c *Config) GetAutoReplyGenerationTimeout() time.Duration { return c.AutoReplyGenTimeout }
func (c *Config) GetAutoReplyHistoryLimit() int                { return c.AutoReplyHistoryLimit }
func (c *Config) GetAutoReplyRetryDelay() time.Duration        { return c.AutoReplyRetryDelay }
func (c *Config) GetPresenceTTL() time.Duration                { return c.PresenceTTL }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }
func (c *Config) GetNotificationDedupeWindow() time.Duration {
	return c.NotificationDedupeWindow
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:               getEnv("APP_BASE_URL", "http://localhost:4200"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SweepSchedule:            getEnv("SWEEP_SCHEDULE", "@every 1m"),
		SweepBatchSize:           mustInt(getEnv("SWEEP_BATCH_SIZE", "200")),
		EmailEnabled:             emailEnabled && smtpHost != "",
		SMTPHost:                 smtpHost,
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Leads"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		WhatsAppURL:              getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:              getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:         getEnv("WHATSAPP_DEVICE_ID", ""),
		PhoneDefaultRegion:       strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "BR")),
		AIProvider:               strings.ToLower(getEnv("AI_PROVIDER", "none")),
		GenAIAPIKey:              getEnv("GENAI_API_KEY", ""),
		GenAIModel:               getEnv("GENAI_MODEL", "gemini-2.5-flash"),
		OllamaURL:                getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:              getEnv("OLLAMA_MODEL", "llama3.1"),
		LeadAcceptWindow:         mustDuration(getEnv("LEAD_ACCEPT_WINDOW", "15m")),
		LeadOwnerApprovalWindow:  mustDuration(getEnv("LEAD_OWNER_APPROVAL_WINDOW", "48h")),
		LeadMatchingTimeout:      mustDuration(getEnv("LEAD_MATCHING_TIMEOUT", "24h")),
		SLAFirstResponse:         mustDuration(getEnv("SLA_FIRST_RESPONSE", "30m")),
		AutoReplyInlineTimeout:   mustDuration(getEnv("AUTOREPLY_INLINE_TIMEOUT", "1500ms")),
		AutoReplyGenTimeout:      mustDuration(getEnv("AUTOREPLY_GENERATION_TIMEOUT", "8s")),
		AutoReplyHistoryLimit:    mustInt(getEnv("AUTOREPLY_HISTORY_LIMIT", "10")),
		AutoReplyRetryDelay:      mustDuration(getEnv("AUTOREPLY_RETRY_DELAY", "2m")),
		PresenceTTL:              mustDuration(getEnv("PRESENCE_TTL", "90s")),
		NotificationDedupeWindow: mustDuration(getEnv("NOTIFICATION_DEDUPE_WINDOW", "10m")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.AIProvider == "genai" && cfg.GenAIAPIKey == "" {
		return nil, fmt.Errorf("GENAI_API_KEY is required when AI_PROVIDER is genai")
	}
	if cfg.LeadAcceptWindow <= 0 || cfg.LeadMatchingTimeout <= 0 {
		return nil, fmt.Errorf("LEAD_ACCEPT_WINDOW and LEAD_MATCHING_TIMEOUT must be positive durations")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
