package adapters

import (
	"context"
	"testing"
	"time"

	queuerepo "realty_leads_backend/internal/agentqueue/repository"
	queueservice "realty_leads_backend/internal/agentqueue/service"
	ardomain "realty_leads_backend/internal/autoreply/domain"
	"realty_leads_backend/internal/autoreply/engine"
	arrepo "realty_leads_backend/internal/autoreply/repository"
	"realty_leads_backend/internal/directory"
	"realty_leads_backend/internal/events"
	leaddomain "realty_leads_backend/internal/leads/domain"
	leadrepo "realty_leads_backend/internal/leads/repository"
	leadservice "realty_leads_backend/internal/leads/service"
	"realty_leads_backend/platform/ai"
	"realty_leads_backend/platform/logger"

	"github.com/google/uuid"
)

type stubGenerator struct{ reply string }

func (g stubGenerator) Generate(context.Context, ai.Prompt) (string, error) { return g.reply, nil }
func (g stubGenerator) Name() string                                        { return "stub" }

type fixture struct {
	dir      *directory.Memory
	queue    *queueservice.Service
	leads    *leadservice.Service
	store    *arrepo.MemoryStore
	engine   *engine.Engine
	bus      *events.InMemoryBus
	property directory.Property
	contact  directory.Contact
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewDiscard()
	dir := directory.NewMemory()
	bus := events.NewInMemoryBus(log)

	queue := queueservice.New(queuerepo.NewMemoryStore(), NewLeadsDirectory(dir), log)
	leadsDir := NewLeadsDirectory(dir)
	leads := leadservice.New(leadservice.Deps{
		Repo:       leadrepo.NewMemory(),
		Queue:      NewLeadsAgentQueue(queue),
		Properties: leadsDir,
		Users:      leadsDir,
		Bus:        bus,
		Log:        log,
	})

	store := arrepo.NewMemory()
	arDir := NewAutoReplyDirectory(dir)
	eng, err := engine.New(engine.Deps{
		Store:     store,
		Leads:     NewAutoReplyLeads(leads),
		Listings:  arDir,
		People:    arDir,
		Generator: stubGenerator{reply: "Olá! Retorno em breve."},
		Bus:       bus,
		Log:       log,
		Options:   engine.Options{InlineTimeout: 2 * time.Second},
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	eng.Subscribe(bus)
	t.Cleanup(func() {
		eng.Wait()
		bus.Wait()
	})

	property := directory.Property{ID: uuid.New(), OwnerID: uuid.New(), Title: "Apartamento Centro", City: "Lisboa"}
	contact := directory.Contact{ID: uuid.New(), Name: "Ana", Email: "ana@example.com"}
	dir.PutProperty(property)
	dir.PutContact(contact)

	return &fixture{dir: dir, queue: queue, leads: leads, store: store, engine: eng, bus: bus, property: property, contact: contact}
}

func (f *fixture) addAgent(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.dir.PutUser(directory.User{ID: id, Name: name, Role: "agent", Active: true, Timezone: "UTC"})
	if _, err := f.queue.Register(context.Background(), id, nil); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return id
}

func TestCreateLeadOffersToQueuedAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.addAgent(t, "Bruno")

	lead, err := f.leads.CreateLead(ctx, f.property.ID, f.contact.ID)
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if lead.Status != leaddomain.StatusWaitingAgentAccept {
		t.Fatalf("status = %s, want %s", lead.Status, leaddomain.StatusWaitingAgentAccept)
	}
	if lead.AgentID == nil || *lead.AgentID != agent {
		t.Fatalf("lead offered to %v, want %s", lead.AgentID, agent)
	}

	entry, err := f.queue.Get(ctx, agent)
	if err != nil {
		t.Fatalf("queue Get: %v", err)
	}
	if entry.ActiveLeadCount != 1 {
		t.Fatalf("active lead count = %d, want 1", entry.ActiveLeadCount)
	}
}

func TestCreateLeadWithoutAgentsIsAvailable(t *testing.T) {
	f := newFixture(t)

	lead, err := f.leads.CreateLead(context.Background(), f.property.ID, f.contact.ID)
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if lead.Status != leaddomain.StatusAvailable || lead.AgentID != nil {
		t.Fatalf("lead = %s agent %v, want AVAILABLE without agent", lead.Status, lead.AgentID)
	}
}

func TestRejectReleasesAndReoffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.addAgent(t, "Bruno")
	second := f.addAgent(t, "Carla")

	lead, err := f.leads.CreateLead(ctx, f.property.ID, f.contact.ID)
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if *lead.AgentID != first {
		t.Fatalf("first offer went to %s, want %s", *lead.AgentID, first)
	}

	lead, err = f.leads.RejectLead(ctx, lead.ID, first, "busy")
	if err != nil {
		t.Fatalf("RejectLead: %v", err)
	}
	if lead.AgentID == nil || *lead.AgentID != second {
		t.Fatalf("re-offer went to %v, want %s", lead.AgentID, second)
	}

	entry, err := f.queue.Get(ctx, first)
	if err != nil {
		t.Fatalf("queue Get: %v", err)
	}
	if entry.ActiveLeadCount != 0 {
		t.Fatalf("rejecting agent still holds %d leads", entry.ActiveLeadCount)
	}
}

func TestClientMessageTriggersAutoReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.addAgent(t, "Bruno")

	settings := ardomain.DefaultSettings(agent)
	settings.Enabled = true
	settings.WeekSchedule = map[string]ardomain.DayWindow{}
	if _, err := f.store.UpsertSettings(ctx, settings); err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}

	lead, err := f.leads.CreateLead(ctx, f.property.ID, f.contact.ID)
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	msg, err := f.leads.RecordClientMessage(ctx, lead.ID, f.contact.ID, "Ainda está disponível?")
	if err != nil {
		t.Fatalf("RecordClientMessage: %v", err)
	}
	f.engine.Wait()

	decision, err := f.store.GetDecision(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if decision.Outcome != ardomain.OutcomeSent || decision.ReplyMessageID == nil {
		t.Fatalf("decision = %+v, want SENT with reply", decision)
	}

	reply, err := f.leads.GetMessage(ctx, *decision.ReplyMessageID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if !reply.AutoReply || reply.SenderID == nil || *reply.SenderID != agent {
		t.Fatalf("reply = %+v, want auto reply authored for %s", reply, agent)
	}

	again, err := f.engine.Process(ctx, msg.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if again.ID != decision.ID {
		t.Fatal("reprocessing produced a second decision")
	}
}

func TestAutoReplySkipsLeadWithoutAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lead, err := f.leads.CreateLead(ctx, f.property.ID, f.contact.ID)
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	msg, err := f.leads.RecordClientMessage(ctx, lead.ID, f.contact.ID, "Olá")
	if err != nil {
		t.Fatalf("RecordClientMessage: %v", err)
	}
	f.engine.Wait()

	decision, err := f.store.GetDecision(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if decision.Outcome != ardomain.OutcomeSkipped || decision.Reason != ardomain.ReasonNoAgent {
		t.Fatalf("decision = %s/%s, want SKIPPED/%s", decision.Outcome, decision.Reason, ardomain.ReasonNoAgent)
	}
}

func TestNotificationLeadAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agent := f.addAgent(t, "Bruno")

	lead, err := f.leads.CreateLead(ctx, f.property.ID, f.contact.ID)
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	access := NewNotificationLeadAccess(f.leads)
	if err := access.CanViewLead(ctx, lead.ID, agent, false); err != nil {
		t.Fatalf("assigned agent denied: %v", err)
	}
	if err := access.CanViewLead(ctx, lead.ID, uuid.New(), false); err == nil {
		t.Fatal("stranger allowed to view lead")
	}
	if err := access.CanViewLead(ctx, lead.ID, uuid.New(), true); err != nil {
		t.Fatalf("admin denied: %v", err)
	}
}

func TestNotificationDirectoryRejectsInactiveUser(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.dir.PutUser(directory.User{ID: id, Name: "Inês", Role: "agent", Active: false})

	if _, err := NewNotificationDirectory(f.dir).User(context.Background(), id); err == nil {
		t.Fatal("expected error for inactive user")
	}
}
