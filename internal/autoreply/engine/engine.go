// Package engine decides, generates and records automatic replies to client
// messages on behalf of offline agents.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"realty_leads_backend/internal/autoreply/domain"
	"realty_leads_backend/internal/autoreply/ports"
	"realty_leads_backend/internal/autoreply/presence"
	"realty_leads_backend/internal/autoreply/repository"
	"realty_leads_backend/internal/events"
	"realty_leads_backend/platform/ai"
	"realty_leads_backend/platform/logger"
	"realty_leads_backend/platform/sanitize"

	"github.com/google/uuid"
)

var (
	// ErrInProgress means another worker holds the lease on the message.
	ErrInProgress = errors.New("auto-reply already in progress")
	// ErrNotClientMessage means the message does not exist or was not sent by a client.
	ErrNotClientMessage = errors.New("not a client message")
	// ErrLeadBusy means another message of the same lead is being processed.
	ErrLeadBusy = errors.New("auto-reply in progress for another message of the lead")
)

// Options tune the engine timers.
type Options struct {
	InlineTimeout     time.Duration
	GenerationTimeout time.Duration
	HistoryLimit      int
	RetryDelay        time.Duration
	BusyRetryInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.InlineTimeout <= 0 {
		o.InlineTimeout = 3 * time.Second
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = 8 * time.Second
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 12
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Minute
	}
	if o.BusyRetryInterval <= 0 {
		o.BusyRetryInterval = 250 * time.Millisecond
	}
	return o
}

// Deps bundles the engine collaborators. Listings, People, Retry and Bus are optional.
type Deps struct {
	Store     repository.Store
	Leads     ports.Leads
	Listings  ports.Listings
	People    ports.People
	Generator ai.Generator
	Presence  presence.Tracker
	Retry     ports.RetryScheduler
	Bus       events.Bus
	Log       *logger.Logger
	Options   Options
	Now       func() time.Time
}

type Engine struct {
	store     repository.Store
	leads     ports.Leads
	listings  ports.Listings
	people    ports.People
	generator ai.Generator
	presence  presence.Tracker
	retry     ports.RetryScheduler
	bus       events.Bus
	log       *logger.Logger
	opts      Options
	now       func() time.Time
	prompts   *promptBuilder

	wg         sync.WaitGroup
	inflightMu sync.Mutex
	inflight   map[uuid.UUID]bool
}

func New(d Deps) (*Engine, error) {
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:     d.Store,
		leads:     d.Leads,
		listings:  d.Listings,
		people:    d.People,
		generator: d.Generator,
		presence:  d.Presence,
		retry:     d.Retry,
		bus:       d.Bus,
		log:       d.Log,
		opts:      d.Options.withDefaults(),
		now:       d.Now,
		prompts:   prompts,
		inflight:  make(map[uuid.UUID]bool),
	}
	if e.generator == nil {
		e.generator = ai.Disabled{}
	}
	if e.presence == nil {
		e.presence = presence.Offline{}
	}
	if e.log == nil {
		e.log = logger.NewDiscard()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Subscribe registers the engine for inbound client messages.
func (e *Engine) Subscribe(bus events.Bus) {
	bus.Subscribe(events.ClientMessageReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		msg, ok := event.(events.ClientMessageReceived)
		if !ok {
			return nil
		}
		e.Dispatch(ctx, msg.MessageID)
		return nil
	}))
}

// Dispatch schedules a durable retry and then processes the message, waiting
// at most the inline timeout. Work still running after that completes in the
// background. Dispatch never returns an error to the caller.
func (e *Engine) Dispatch(ctx context.Context, clientMessageID uuid.UUID) {
	if e.retry != nil {
		if err := e.retry.ScheduleAutoReply(ctx, clientMessageID, e.now().Add(e.opts.RetryDelay)); err != nil {
			e.log.SideEffectFailed("autoreply_schedule_retry", clientMessageID.String(), err)
		}
	}

	if !e.markRunning(clientMessageID) {
		return
	}
	done := make(chan struct{})
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(done)
		defer e.markComplete(clientMessageID)
		if err := e.processWhenLeadFree(context.WithoutCancel(ctx), clientMessageID); err != nil && !errors.Is(err, ErrInProgress) {
			e.log.SideEffectFailed("autoreply_process", clientMessageID.String(), err)
		}
	}()

	timer := time.NewTimer(e.opts.InlineTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		e.log.Info("auto-reply continues in background", "clientMessageId", clientMessageID)
	case <-ctx.Done():
	}
}

// processWhenLeadFree retries Process while another message of the lead holds
// its lease, for at most one lease length.
func (e *Engine) processWhenLeadFree(ctx context.Context, clientMessageID uuid.UUID) error {
	deadline := time.Now().Add(e.leaseLength())
	for {
		_, err := e.Process(ctx, clientMessageID)
		if !errors.Is(err, ErrLeadBusy) || time.Now().After(deadline) {
			return err
		}
		select {
		case <-time.After(e.opts.BusyRetryInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) leaseLength() time.Duration {
	return e.opts.GenerationTimeout + e.opts.InlineTimeout
}

// Wait blocks until background processing has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) markRunning(id uuid.UUID) bool {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	if e.inflight[id] {
		return false
	}
	e.inflight[id] = true
	return true
}

func (e *Engine) markComplete(id uuid.UUID) {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	delete(e.inflight, id)
}

// Process produces the single decision for a client message. It is safe to
// call repeatedly: once a decision exists it is returned unchanged.
func (e *Engine) Process(ctx context.Context, clientMessageID uuid.UUID) (domain.Decision, error) {
	if d, err := e.store.GetDecision(ctx, clientMessageID); err == nil {
		return d, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Decision{}, err
	}

	msg, err := e.leads.GetMessage(ctx, clientMessageID)
	if errors.Is(err, ports.ErrNotFound) {
		return domain.Decision{}, ErrNotClientMessage
	}
	if err != nil {
		return domain.Decision{}, err
	}
	if msg.FromAgent {
		return domain.Decision{}, ErrNotClientMessage
	}

	now := e.now()
	claim, ok, err := e.store.Claim(ctx, msg.ID, msg.LeadID, now, now.Add(e.leaseLength()))
	if errors.Is(err, repository.ErrLeadBusy) {
		return domain.Decision{}, ErrLeadBusy
	}
	if err != nil {
		return domain.Decision{}, err
	}
	if !ok {
		return domain.Decision{}, ErrInProgress
	}
	defer e.release(ctx, msg)

	// The previous holder may have recorded and released since the first lookup.
	if d, err := e.store.GetDecision(ctx, msg.ID); err == nil {
		return d, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Decision{}, err
	}

	lead, err := e.leads.GetLead(ctx, msg.LeadID)
	if err != nil {
		return domain.Decision{}, err
	}
	base := domain.Decision{LeadID: lead.ID, ClientMessageID: msg.ID, AgentID: lead.AgentID}

	// A previous run stored the reply but crashed before recording it.
	if claim.ReplyMessageID != nil {
		return e.finishSent(ctx, base, lead, *claim.ReplyMessageID, "")
	}

	switch {
	case lead.AgentID == nil:
		return e.record(ctx, base, domain.OutcomeSkipped, domain.ReasonNoAgent)
	case lead.Closed:
		return e.record(ctx, base, domain.OutcomeSkipped, domain.ReasonLeadClosed)
	}
	agentID := *lead.AgentID

	settings, err := e.store.GetSettings(ctx, agentID)
	if errors.Is(err, repository.ErrNotFound) {
		settings = domain.DefaultSettings(agentID)
	} else if err != nil {
		return domain.Decision{}, err
	}

	online, err := e.presence.IsOnline(ctx, agentID)
	if err != nil {
		e.log.SideEffectFailed("presence_lookup", lead.ID.String(), err)
		online = false
	}

	history, err := e.store.History(ctx, lead.ID, now)
	if err != nil {
		return domain.Decision{}, err
	}

	verdict := domain.Evaluate(now, settings, online, history)
	if !verdict.Generate {
		return e.record(ctx, base, domain.OutcomeSkipped, verdict.Reason)
	}

	reply, err := e.generate(ctx, lead, msg, agentID)
	if err != nil {
		e.log.SideEffectFailed("autoreply_generate", lead.ID.String(), err)
		return e.record(ctx, base, domain.OutcomeFailed, domain.ReasonGenerationErr)
	}

	replyID, err := e.leads.StoreReply(ctx, lead.ID, agentID, reply)
	if err != nil {
		e.log.SideEffectFailed("autoreply_store_reply", lead.ID.String(), err)
		return e.record(ctx, base, domain.OutcomeFailed, domain.ReasonPersistErr)
	}
	if err := e.store.AttachReply(ctx, msg.ID, replyID); err != nil {
		e.log.SideEffectFailed("autoreply_attach_reply", lead.ID.String(), err)
	}
	return e.finishSent(ctx, base, lead, replyID, reply)
}

// release ends the lease so the next message of the lead can be evaluated
// against the decision just recorded.
func (e *Engine) release(ctx context.Context, msg ports.ConversationMessage) {
	if err := e.store.Release(context.WithoutCancel(ctx), msg.ID, e.now()); err != nil {
		e.log.SideEffectFailed("autoreply_release_claim", msg.LeadID.String(), err)
	}
}

func (e *Engine) finishSent(ctx context.Context, base domain.Decision, lead ports.LeadSnapshot, replyID uuid.UUID, content string) (domain.Decision, error) {
	base.ReplyMessageID = &replyID
	d, err := e.record(ctx, base, domain.OutcomeSent, "")
	if err != nil || d.ReplyMessageID == nil || *d.ReplyMessageID != replyID {
		return d, err
	}

	if content == "" {
		stored, err := e.leads.GetMessage(ctx, replyID)
		if err != nil {
			e.log.SideEffectFailed("autoreply_load_reply", lead.ID.String(), err)
			return d, nil
		}
		content = stored.Content
	}
	if e.bus != nil && lead.AgentID != nil {
		e.bus.Publish(ctx, events.AutoReplySent{
			BaseEvent:       events.NewBaseEvent(),
			LeadID:          lead.ID,
			ClientMessageID: base.ClientMessageID,
			ReplyMessageID:  replyID,
			AgentID:         *lead.AgentID,
			ContactID:       lead.ContactID,
			Content:         content,
		})
	}
	return d, nil
}

// record stores the decision. When another worker recorded first, its
// decision is returned instead.
func (e *Engine) record(ctx context.Context, d domain.Decision, outcome domain.Outcome, reason string) (domain.Decision, error) {
	d.ID = uuid.New()
	d.Outcome = outcome
	d.Reason = reason
	d.CreatedAt = e.now()

	err := e.store.InsertDecision(ctx, d)
	if errors.Is(err, repository.ErrDuplicate) {
		return e.store.GetDecision(ctx, d.ClientMessageID)
	}
	if err != nil {
		return domain.Decision{}, fmt.Errorf("record auto-reply decision: %w", err)
	}
	e.log.AutoReplyDecision(d.LeadID.String(), d.ClientMessageID.String(), string(outcome), reason)
	return d, nil
}

// generate asks the model for a reply under the generation timeout.
func (e *Engine) generate(ctx context.Context, lead ports.LeadSnapshot, msg ports.ConversationMessage, agentID uuid.UUID) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.GenerationTimeout)
	defer cancel()

	data := promptData{Latest: msg.Content}
	if e.people != nil {
		if name, err := e.people.AgentName(ctx, agentID); err == nil {
			data.AgentName = name
		}
		if name, err := e.people.ContactName(ctx, lead.ContactID); err == nil {
			data.ContactName = name
		}
	}
	if e.listings != nil {
		if listing, err := e.listings.GetListing(ctx, lead.PropertyID); err == nil {
			data.Listing = listing
		}
	}
	history, err := e.leads.RecentMessages(ctx, lead.ID, e.opts.HistoryLimit+1)
	if err != nil {
		return "", err
	}
	for _, m := range history {
		if m.ID != msg.ID {
			data.History = append(data.History, m)
		}
	}
	if len(data.History) > e.opts.HistoryLimit {
		data.History = data.History[len(data.History)-e.opts.HistoryLimit:]
	}

	prompt, err := e.prompts.build(data)
	if err != nil {
		return "", err
	}
	out, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	reply := sanitize.Text(out)
	if reply == "" {
		return "", ai.ErrEmptyResponse
	}
	return reply, nil
}
