package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) (*SMTPSender, error) {
	if host == "" || fromEmail == "" {
		return nil, errors.New("smtp: host and from address are required")
	}
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}, nil
}

func (s *SMTPSender) options() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}
	return opts
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host, s.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendLeadOfferedEmail(ctx context.Context, toEmail string, data LeadOffered) error {
	content, err := renderEmailTemplate("lead_offered.html", leadOfferedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Novo lead aguardando você",
			Heading:  "Novo lead aguardando você",
			CTALabel: "Ver lead",
			CTAURL:   data.LeadURL,
		},
		LeadOffered: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectLeadOfferedFmt, data.PropertyTitle), content)
}

func (s *SMTPSender) SendOwnerApprovalEmail(ctx context.Context, toEmail string, data OwnerApproval) error {
	content, err := renderEmailTemplate("owner_approval.html", ownerApprovalEmailData{
		baseEmailData: baseEmailData{
			Title:    "Aprovação de corretor",
			Heading:  "Um corretor aceitou seu lead",
			CTALabel: "Revisar",
			CTAURL:   data.ReviewURL,
		},
		OwnerApproval: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectOwnerApprovalFmt, data.PropertyTitle), content)
}

func (s *SMTPSender) SendAutoReplyEmail(ctx context.Context, toEmail string, data AutoReply) error {
	content, err := renderEmailTemplate("auto_reply.html", autoReplyEmailData{
		baseEmailData: baseEmailData{
			Title:   "Nova mensagem",
			Heading: "Você recebeu uma resposta",
		},
		AutoReply: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectAutoReplyFmt, data.AgentName), content)
}

var _ Sender = (*SMTPSender)(nil)
