package adapters

import (
	"context"
	"errors"

	queueservice "realty_leads_backend/internal/agentqueue/service"
	autoreplyports "realty_leads_backend/internal/autoreply/ports"
	"realty_leads_backend/internal/directory"
	leadports "realty_leads_backend/internal/leads/ports"
	"realty_leads_backend/internal/notification"

	"github.com/google/uuid"
)

// LeadsDirectory serves the user and property lookups of the leads and
// agent queue contexts.
type LeadsDirectory struct {
	reader directory.Reader
}

func NewLeadsDirectory(reader directory.Reader) *LeadsDirectory {
	return &LeadsDirectory{reader: reader}
}

func (d *LeadsDirectory) GetProperty(ctx context.Context, id uuid.UUID) (leadports.Property, error) {
	p, err := d.reader.GetProperty(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return leadports.Property{}, leadports.ErrNotFound
	}
	if err != nil {
		return leadports.Property{}, err
	}
	return leadports.Property{
		ID:                    p.ID,
		OwnerID:               p.OwnerID,
		TeamID:                p.TeamID,
		Title:                 p.Title,
		City:                  p.City,
		PriceCents:            p.PriceCents,
		RequiresOwnerApproval: p.RequiresOwnerApproval,
	}, nil
}

func (d *LeadsDirectory) GetUserRole(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := d.reader.GetUser(ctx, userID)
	if errors.Is(err, directory.ErrNotFound) {
		return "", leadports.ErrNotFound
	}
	return u.Role, err
}

// IsActive treats unknown users as inactive.
func (d *LeadsDirectory) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	u, err := d.reader.GetUser(ctx, userID)
	if errors.Is(err, directory.ErrNotFound) {
		return false, nil
	}
	return u.Active, err
}

// AutoReplyDirectory serves listing copy and display names to the auto-reply prompt.
type AutoReplyDirectory struct {
	reader directory.Reader
}

func NewAutoReplyDirectory(reader directory.Reader) *AutoReplyDirectory {
	return &AutoReplyDirectory{reader: reader}
}

func (d *AutoReplyDirectory) GetListing(ctx context.Context, propertyID uuid.UUID) (autoreplyports.ListingSummary, error) {
	p, err := d.reader.GetProperty(ctx, propertyID)
	if err != nil {
		return autoreplyports.ListingSummary{}, mapAutoReplyNotFound(err)
	}
	return autoreplyports.ListingSummary{Title: p.Title, City: p.City, PriceCents: p.PriceCents}, nil
}

func (d *AutoReplyDirectory) AgentName(ctx context.Context, agentID uuid.UUID) (string, error) {
	u, err := d.reader.GetUser(ctx, agentID)
	if err != nil {
		return "", mapAutoReplyNotFound(err)
	}
	return u.Name, nil
}

func (d *AutoReplyDirectory) ContactName(ctx context.Context, contactID uuid.UUID) (string, error) {
	c, err := d.reader.GetContact(ctx, contactID)
	if err != nil {
		return "", mapAutoReplyNotFound(err)
	}
	return c.Name, nil
}

func mapAutoReplyNotFound(err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		return autoreplyports.ErrNotFound
	}
	return err
}

// NotificationDirectory resolves recipients for outbound notifications.
type NotificationDirectory struct {
	reader directory.Reader
}

func NewNotificationDirectory(reader directory.Reader) *NotificationDirectory {
	return &NotificationDirectory{reader: reader}
}

func (d *NotificationDirectory) User(ctx context.Context, userID uuid.UUID) (notification.Recipient, error) {
	u, err := d.reader.GetUser(ctx, userID)
	if err != nil {
		return notification.Recipient{}, err
	}
	if !u.Active {
		return notification.Recipient{}, errors.New("user is not active")
	}
	return notification.Recipient{Name: u.Name, Email: u.Email, Phone: u.Phone, Timezone: u.Timezone}, nil
}

func (d *NotificationDirectory) Contact(ctx context.Context, contactID uuid.UUID) (notification.Recipient, error) {
	c, err := d.reader.GetContact(ctx, contactID)
	if err != nil {
		return notification.Recipient{}, err
	}
	return notification.Recipient{Name: c.Name, Email: c.Email, Phone: c.Phone}, nil
}

func (d *NotificationDirectory) Listing(ctx context.Context, propertyID uuid.UUID) (notification.Listing, error) {
	p, err := d.reader.GetProperty(ctx, propertyID)
	if err != nil {
		return notification.Listing{}, err
	}
	return notification.Listing{Title: p.Title, City: p.City}, nil
}

// Compile-time checks.
var (
	_ leadports.PropertyReader    = (*LeadsDirectory)(nil)
	_ leadports.UserDirectory     = (*LeadsDirectory)(nil)
	_ queueservice.AgentDirectory = (*LeadsDirectory)(nil)
	_ autoreplyports.Listings     = (*AutoReplyDirectory)(nil)
	_ autoreplyports.People       = (*AutoReplyDirectory)(nil)
	_ notification.Directory      = (*NotificationDirectory)(nil)
)
