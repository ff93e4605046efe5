// Package notification delivers outbound email and WhatsApp messages in
// response to lead events and streams realtime updates to connected clients.
// Every send goes through the dedupe guard and failures never reach the
// operation that raised the event.
package notification

import (
	"context"
	"strings"
	"time"

	"realty_leads_backend/internal/email"
	"realty_leads_backend/internal/events"
	apphttp "realty_leads_backend/internal/http"
	"realty_leads_backend/internal/notification/dedupe"
	"realty_leads_backend/internal/notification/sse"
	"realty_leads_backend/platform/apperr"
	"realty_leads_backend/platform/config"
	"realty_leads_backend/platform/httpkit"
	"realty_leads_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	channelEmail    = "email"
	channelWhatsApp = "whatsapp"

	templateLeadOffered   = "lead_offered"
	templateOwnerApproval = "owner_approval"
	templateAutoReply     = "auto_reply"

	reservationLayout = "02/01 15:04 MST"
)

// Recipient is how a person can be reached.
type Recipient struct {
	Name     string
	Email    string
	Phone    string
	Timezone string
}

// Listing is the property summary used in message copy.
type Listing struct {
	Title string
	City  string
}

// Directory resolves recipients and listing copy.
type Directory interface {
	User(ctx context.Context, userID uuid.UUID) (Recipient, error)
	Contact(ctx context.Context, contactID uuid.UUID) (Recipient, error)
	Listing(ctx context.Context, propertyID uuid.UUID) (Listing, error)
}

// WhatsAppSender sends WhatsApp messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// LeadAccess decides whether a user may follow a lead's realtime topic.
type LeadAccess interface {
	CanViewLead(ctx context.Context, leadID, userID uuid.UUID, admin bool) error
}

// Deps are the collaborators of the notification module.
type Deps struct {
	Sender    email.Sender
	WhatsApp  WhatsAppSender
	Guard     *dedupe.Guard
	Directory Directory
	Access    LeadAccess
	SSE       *sse.Service
	Config    config.NotificationConfig
	Log       *logger.Logger
}

// Module handles notification event subscriptions and the realtime stream.
type Module struct {
	sender    email.Sender
	whatsapp  WhatsAppSender
	guard     *dedupe.Guard
	directory Directory
	access    LeadAccess
	sse       *sse.Service
	baseURL   string
	window    time.Duration
	log       *logger.Logger
}

func New(d Deps) *Module {
	m := &Module{
		sender:    d.Sender,
		whatsapp:  d.WhatsApp,
		guard:     d.Guard,
		directory: d.Directory,
		access:    d.Access,
		sse:       d.SSE,
		log:       d.Log,
		window:    10 * time.Minute,
	}
	if d.Config != nil {
		m.baseURL = strings.TrimRight(d.Config.GetAppBaseURL(), "/")
		if w := d.Config.GetNotificationDedupeWindow(); w > 0 {
			m.window = w
		}
	}
	if m.sender == nil {
		m.sender = email.NoopSender{}
	}
	if m.log == nil {
		m.log = logger.NewDiscard()
	}
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the realtime stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.sse == nil {
		return
	}
	ctx.Protected.GET("/realtime/stream", m.stream)
}

// RegisterHandlers subscribes to the lead events that trigger outbound messages.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadOffered{}.EventName(), m)
	bus.Subscribe(events.OwnerApprovalRequested{}.EventName(), m)
	bus.Subscribe(events.AutoReplySent{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadOffered:
		m.handleLeadOffered(ctx, e)
	case events.OwnerApprovalRequested:
		m.handleOwnerApprovalRequested(ctx, e)
	case events.AutoReplySent:
		m.handleAutoReplySent(ctx, e)
	}
	return nil
}

func (m *Module) handleLeadOffered(ctx context.Context, e events.LeadOffered) {
	agent, err := m.directory.User(ctx, e.AgentID)
	if err != nil {
		m.log.SideEffectFailed("notification.lead_offered", e.LeadID.String(), err)
		return
	}
	listing := m.listing(ctx, e.PropertyID)
	until := formatIn(e.ReservedUntil, agent.Timezone)
	leadURL := m.buildURL("/leads/" + e.LeadID.String())

	if agent.Email != "" {
		m.deliver(ctx, e.LeadID, dedupe.Key(templateLeadOffered+"_"+channelEmail, e.AgentID), channelEmail, func(ctx context.Context) error {
			return m.sender.SendLeadOfferedEmail(ctx, agent.Email, email.LeadOffered{
				AgentName:     agent.Name,
				PropertyTitle: listing.Title,
				City:          listing.City,
				ReservedUntil: until,
				LeadURL:       leadURL,
			})
		})
	}
	if agent.Phone != "" && m.whatsapp != nil {
		msg := "Novo lead para " + listing.Title + ". Aceite até " + until + ": " + leadURL
		m.deliver(ctx, e.LeadID, dedupe.Key(templateLeadOffered+"_"+channelWhatsApp, e.AgentID), channelWhatsApp, func(ctx context.Context) error {
			return m.whatsapp.SendMessage(ctx, agent.Phone, msg)
		})
	}
}

func (m *Module) handleOwnerApprovalRequested(ctx context.Context, e events.OwnerApprovalRequested) {
	owner, err := m.directory.User(ctx, e.OwnerID)
	if err != nil {
		m.log.SideEffectFailed("notification.owner_approval", e.LeadID.String(), err)
		return
	}
	if owner.Email == "" {
		return
	}
	agentName := ""
	if agent, err := m.directory.User(ctx, e.AgentID); err == nil {
		agentName = agent.Name
	}
	listing := m.listing(ctx, e.PropertyID)

	m.deliver(ctx, e.LeadID, dedupe.Key(templateOwnerApproval, e.AgentID), channelEmail, func(ctx context.Context) error {
		return m.sender.SendOwnerApprovalEmail(ctx, owner.Email, email.OwnerApproval{
			OwnerName:     owner.Name,
			AgentName:     agentName,
			PropertyTitle: listing.Title,
			Deadline:      formatIn(e.ReservedUntil, owner.Timezone),
			ReviewURL:     m.buildURL("/owner/leads/" + e.LeadID.String()),
		})
	})
}

// handleAutoReplySent relays the reply over WhatsApp, falling back to email
// when the contact has no usable phone or the gateway rejects the message.
func (m *Module) handleAutoReplySent(ctx context.Context, e events.AutoReplySent) {
	contact, err := m.directory.Contact(ctx, e.ContactID)
	if err != nil {
		m.log.SideEffectFailed("notification.auto_reply", e.LeadID.String(), err)
		return
	}
	key := dedupe.Key(templateAutoReply, e.ReplyMessageID)

	if contact.Phone != "" && m.whatsapp != nil {
		if m.deliver(ctx, e.LeadID, key, channelWhatsApp, func(ctx context.Context) error {
			return m.whatsapp.SendMessage(ctx, contact.Phone, e.Content)
		}) != deliveryFailed {
			return
		}
	}
	if contact.Email == "" {
		return
	}
	agentName := ""
	if agent, err := m.directory.User(ctx, e.AgentID); err == nil {
		agentName = agent.Name
	}
	m.deliver(ctx, e.LeadID, key, channelEmail, func(ctx context.Context) error {
		return m.sender.SendAutoReplyEmail(ctx, contact.Email, email.AutoReply{
			ContactName: contact.Name,
			AgentName:   agentName,
			Content:     e.Content,
		})
	})
}

type deliveryResult int

const (
	deliverySent deliveryResult = iota
	deliverySkipped
	deliveryFailed
)

// deliver runs send unless key was marked inside the dedupe window, then marks it.
// A failed dedupe lookup does not block the send.
func (m *Module) deliver(ctx context.Context, leadID uuid.UUID, key, channel string, send func(context.Context) error) deliveryResult {
	if m.guard != nil {
		recent, err := m.guard.WasRecentlyNotified(ctx, leadID, key, m.window)
		if err != nil {
			m.log.SideEffectFailed("notification.dedupe_lookup", leadID.String(), err)
		}
		if recent {
			m.log.NotificationSkipped(leadID.String(), key)
			return deliverySkipped
		}
	}

	if err := send(ctx); err != nil {
		m.log.SideEffectFailed("notification."+channel, leadID.String(), err)
		return deliveryFailed
	}

	if m.guard != nil {
		if err := m.guard.MarkNotified(ctx, leadID, key, "notification sent via "+channel, map[string]any{"channel": channel}); err != nil {
			m.log.SideEffectFailed("notification.dedupe_mark", leadID.String(), err)
		}
	}
	return deliverySent
}

func (m *Module) listing(ctx context.Context, propertyID uuid.UUID) Listing {
	l, err := m.directory.Listing(ctx, propertyID)
	if err != nil {
		m.log.Warn("listing lookup failed", "propertyId", propertyID, "error", err)
	}
	return l
}

func (m *Module) buildURL(path string) string {
	return m.baseURL + path
}

func formatIn(t time.Time, tz string) string {
	if t.IsZero() {
		return ""
	}
	if loc, err := time.LoadLocation(tz); err == nil && tz != "" {
		t = t.In(loc)
	} else {
		t = t.UTC()
	}
	return t.Format(reservationLayout)
}

// stream serves GET /realtime/stream?topic=lead:<id>&topic=team:<id>.
func (m *Module) stream(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	topics := c.QueryArray("topic")
	if len(topics) == 0 {
		httpkit.HandleError(c, apperr.BadRequest("at least one topic is required"))
		return
	}
	for _, t := range topics {
		if httpkit.HandleError(c, m.authorizeTopic(c.Request.Context(), id, t)) {
			return
		}
	}
	m.sse.Stream(c, topics)
}

func (m *Module) authorizeTopic(ctx context.Context, id httpkit.Identity, topic string) error {
	admin := id.HasRole(httpkit.RoleAdmin)
	kind, rawID, ok := strings.Cut(topic, ":")
	target, err := uuid.Parse(rawID)
	if !ok || err != nil {
		return apperr.BadRequest("invalid topic " + topic)
	}
	switch kind {
	case "team":
		if admin || (id.TeamID() != nil && *id.TeamID() == target) {
			return nil
		}
		return apperr.Forbidden("not a member of this team")
	case "lead":
		if m.access == nil {
			return apperr.Forbidden("lead topics are not available")
		}
		return m.access.CanViewLead(ctx, target, id.UserID(), admin)
	default:
		return apperr.BadRequest("invalid topic " + topic)
	}
}

var _ apphttp.Module = (*Module)(nil)
var _ events.Handler = (*Module)(nil)
