// Package email renders and delivers transactional emails.
package email

import (
	"context"

	"realty_leads_backend/platform/config"
)

// Sender delivers the transactional emails of the lead workflow.
type Sender interface {
	SendLeadOfferedEmail(ctx context.Context, toEmail string, data LeadOffered) error
	SendOwnerApprovalEmail(ctx context.Context, toEmail string, data OwnerApproval) error
	SendAutoReplyEmail(ctx context.Context, toEmail string, data AutoReply) error
}

// LeadOffered is the content of the "new lead waiting for you" email.
type LeadOffered struct {
	AgentName     string
	PropertyTitle string
	City          string
	ReservedUntil string
	LeadURL       string
}

// OwnerApproval asks a listing owner to approve the agent that accepted a lead.
type OwnerApproval struct {
	OwnerName     string
	AgentName     string
	PropertyTitle string
	Deadline      string
	ReviewURL     string
}

// AutoReply relays an automatic agent reply to the client.
type AutoReply struct {
	ContactName   string
	AgentName     string
	PropertyTitle string
	Content       string
}

// NoopSender drops every email. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadOfferedEmail(context.Context, string, LeadOffered) error     { return nil }
func (NoopSender) SendOwnerApprovalEmail(context.Context, string, OwnerApproval) error { return nil }
func (NoopSender) SendAutoReplyEmail(context.Context, string, AutoReply) error         { return nil }

// NewSender returns the SMTP sender when email is enabled, otherwise a NoopSender.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	sender, err := NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
	if err != nil {
		return nil, err
	}
	return sender, nil
}
