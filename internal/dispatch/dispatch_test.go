package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"helpdesk-notification-service/internal/events"
	"helpdesk-notification-service/internal/mailer"
	"helpdesk-notification-service/internal/models"
	"helpdesk-notification-service/internal/queue"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeUserStore struct {
	byID   map[uuid.UUID]*models.User
	first  *models.User
	byRole map[models.UserRole]*models.User
	err    error
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[id], nil
}

func (s *fakeUserStore) First(ctx context.Context) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.first, nil
}

func (s *fakeUserStore) FirstByRole(ctx context.Context, role models.UserRole) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byRole[role], nil
}

type fakeSettingStore struct {
	values map[string]string
	err    error
}

func (s *fakeSettingStore) Get(ctx context.Context, name string) (*models.Setting, error) {
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.values[name]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Name: name, Value: value}, nil
}

type fakeTicketStore struct {
	tickets map[uuid.UUID]*models.Ticket
	err     error
	calls   int
}

func (s *fakeTicketStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.tickets[id], nil
}

type fakeTemplateStore struct {
	templates map[string]*models.EmailTemplate
	err       error
}

func (s *fakeTemplateStore) GetBySlug(ctx context.Context, slug string) (*models.EmailTemplate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.templates[slug], nil
}

type fakePreferenceStore struct {
	prefs map[string]bool
	err   error
}

func (s *fakePreferenceStore) GetAll(ctx context.Context) (map[string]bool, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.prefs, nil
}

type panickingPreferenceStore struct{}

func (panickingPreferenceStore) GetAll(ctx context.Context) (map[string]bool, error) {
	panic("settings table dropped")
}

type fakeLogStore struct {
	records []*models.DeliveryLog
	err     error
}

func (s *fakeLogStore) Create(ctx context.Context, record *models.DeliveryLog) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

type fakeProvider struct {
	sent    []*mailer.Message
	failFor map[string]error
}

func (p *fakeProvider) Send(ctx context.Context, msg *mailer.Message) (*mailer.SendResult, error) {
	if err := p.failFor[msg.To]; err != nil {
		return &mailer.SendResult{ProviderName: p.GetName(), Success: false, Error: err}, err
	}
	p.sent = append(p.sent, msg)
	return &mailer.SendResult{ProviderID: "fake-id", ProviderName: p.GetName(), Success: true}, nil
}

func (p *fakeProvider) GetName() string {
	return "Fake"
}

type fakeMailQueue struct {
	jobs []queue.MailJob
	err  error
}

func (q *fakeMailQueue) Enqueue(ctx context.Context, job queue.MailJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// fixture bundles one fully wired dispatcher over fakes
type fixture struct {
	dispatcher *Dispatcher
	users      *fakeUserStore
	settings   *fakeSettingStore
	tickets    *fakeTicketStore
	templates  *fakeTemplateStore
	prefs      *fakePreferenceStore
	logs       *fakeLogStore
	provider   *fakeProvider
}

func newFixture(queued bool, mailQueue MailQueue) *fixture {
	f := &fixture{
		users:     &fakeUserStore{byID: map[uuid.UUID]*models.User{}, byRole: map[models.UserRole]*models.User{}},
		settings:  &fakeSettingStore{values: map[string]string{}},
		tickets:   &fakeTicketStore{tickets: map[uuid.UUID]*models.Ticket{}},
		templates: &fakeTemplateStore{templates: map[string]*models.EmailTemplate{}},
		prefs:     &fakePreferenceStore{prefs: map[string]bool{}},
		logs:      &fakeLogStore{},
		provider:  &fakeProvider{failFor: map[string]error{}},
	}

	deliverer := NewDeliverer(f.provider, mailQueue, nil, queued, "noreply@helpdesk.test", "Helpdesk")
	stores := Stores{
		Tickets:     f.tickets,
		Users:       f.users,
		Templates:   f.templates,
		Settings:    f.settings,
		Preferences: f.prefs,
		Logs:        f.logs,
	}
	app := AppInfo{AppName: "Helpdesk", AppURL: "https://helpdesk.test", SenderName: "Helpdesk Team"}
	f.dispatcher = NewDispatcher(stores, deliverer, app, testLogger())
	return f
}

func (f *fixture) addTicket(t *models.Ticket) *models.Ticket {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	f.tickets.tickets[t.ID] = t
	return t
}

func (f *fixture) addTemplate(slug, subject, body string) {
	f.templates.templates[slug] = &models.EmailTemplate{ID: uuid.New(), Slug: slug, Subject: subject, Body: body, IsActive: true}
}

func newUser(name, email string, role models.UserRole) *models.User {
	return &models.User{ID: uuid.New(), Name: name, Email: email, Role: role}
}

func ticketPayload(t *models.Ticket) events.Payload {
	return events.Payload{"ticket_id": t.ID.String(), "source": string(t.Source)}
}

func TestDispatchSkipsWhenNotificationDisabled(t *testing.T) {
	f := newFixture(false, nil)
	owner := newUser("Ann", "ann@example.com", models.RoleCustomer)
	ticket := f.addTicket(&models.Ticket{UID: 7, Subject: "Broken laptop", Source: models.SourcePublicForm, User: owner})
	f.addTemplate(SlugTicketCreated, "", "Hi {name}")
	f.prefs.prefs[KeyTicketByCustomer] = false

	f.dispatcher.HandleTicketCreated(context.Background(), ticketPayload(ticket))

	if len(f.provider.sent) != 0 {
		t.Fatalf("expected no sends with notification disabled, got %d", len(f.provider.sent))
	}
	if f.tickets.calls != 0 {
		t.Errorf("gate must short-circuit before any entity fetch, got %d fetches", f.tickets.calls)
	}
}

func TestDispatchSkipsWhenKeyAbsent(t *testing.T) {
	// A key missing from the settings snapshot is off, not on.
	f := newFixture(false, nil)
	owner := newUser("Ann", "ann@example.com", models.RoleCustomer)
	ticket := f.addTicket(&models.Ticket{UID: 7, Subject: "Broken laptop", Source: models.SourcePublicForm, User: owner})
	f.addTemplate(SlugTicketCreated, "", "Hi {name}")

	f.dispatcher.HandleTicketCreated(context.Background(), ticketPayload(ticket))

	if len(f.provider.sent) != 0 {
		t.Fatalf("expected no sends for an absent key, got %d", len(f.provider.sent))
	}
}

func TestDispatchSkipsOnPreferenceLoadError(t *testing.T) {
	f := newFixture(false, nil)
	owner := newUser("Ann", "ann@example.com", models.RoleCustomer)
	ticket := f.addTicket(&models.Ticket{UID: 7, Subject: "Broken laptop", Source: models.SourcePublicForm, User: owner})
	f.addTemplate(SlugTicketCreated, "", "Hi {name}")
	f.prefs.err = errors.New("connection refused")

	f.dispatcher.HandleTicketCreated(context.Background(), ticketPayload(ticket))

	if len(f.provider.sent) != 0 {
		t.Fatalf("expected no sends when settings cannot load, got %d", len(f.provider.sent))
	}
}

func TestDispatchSkipsWhenTicketMissing(t *testing.T) {
	f := newFixture(false, nil)
	f.prefs.prefs[KeyTicketByCustomer] = true
	f.addTemplate(SlugTicketCreated, "", "Hi {name}")

	f.dispatcher.HandleTicketCreated(context.Background(), events.Payload{
		"ticket_id": uuid.NewString(),
		"source":    string(models.SourcePublicForm),
	})

	if len(f.provider.sent) != 0 {
		t.Fatalf("expected no sends for a missing ticket, got %d", len(f.provider.sent))
	}
}

func TestDispatchSkipsWhenTemplateMissing(t *testing.T) {
	f := newFixture(false, nil)
	owner := newUser("Ann", "ann@example.com", models.RoleCustomer)
	ticket := f.addTicket(&models.Ticket{UID: 7, Subject: "Broken laptop", Source: models.SourcePublicForm, User: owner})
	f.prefs.prefs[KeyTicketByCustomer] = true

	f.dispatcher.HandleTicketCreated(context.Background(), ticketPayload(ticket))

	if len(f.provider.sent) != 0 {
		t.Fatalf("expected no sends without a template, got %d", len(f.provider.sent))
	}
}

func TestDispatchTicketCreatedRendersAndSends(t *testing.T) {
	f := newFixture(false, nil)
	owner := newUser("Ann", "ann@example.com", models.RoleCustomer)
	ticket := f.addTicket(&models.Ticket{
		UID:     42,
		Subject: "Printer on fire",
		Status:  "open",
		Source:  models.SourcePublicForm,
		User:    owner,
	})
	f.prefs.prefs[KeyTicketByCustomer] = true
	f.addTemplate(SlugTicketCreated, "ignored subject", "Hello {name}, ticket #{uid}: {subject}. Track it at {ticket_url}.")

	f.dispatcher.HandleTicketCreated(context.Background(), ticketPayload(ticket))

	if len(f.provider.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(f.provider.sent))
	}
	msg := f.provider.sent[0]
	if msg.To != "ann@example.com" {
		t.Errorf("recipient = %q, want ann@example.com", msg.To)
	}
	if msg.Subject != "[Ticket#42] - Printer on fire" {
		t.Errorf("subject = %q, want constructed ticket subject", msg.Subject)
	}
	want := "Hello Ann, ticket #42: Printer on fire. Track it at https://helpdesk.test/tickets/42."
	if msg.BodyHTML != want {
		t.Errorf("body = %q, want %q", msg.BodyHTML, want)
	}

	if len(f.logs.records) != 1 {
		t.Fatalf("expected 1 delivery log, got %d", len(f.logs.records))
	}
	record := f.logs.records[0]
	if record.Status != models.DeliverySent {
		t.Errorf("log status = %q, want %q", record.Status, models.DeliverySent)
	}
	if record.EventKind != string(events.TicketCreated) {
		t.Errorf("log event kind = %q, want %q", record.EventKind, events.TicketCreated)
	}
	if record.TemplateSlug != SlugTicketCreated {
		t.Errorf("log slug = %q, want %q", record.TemplateSlug, SlugTicketCreated)
	}
}

func TestDispatchTicketCreatedFromDashboard(t *testing.T) {
	f := newFixture(false, nil)
	owner := newUser("Ann", "ann@example.com", models.RoleCustomer)
	ticket := f.addTicket(&models.Ticket{UID: 9, Subject: "VPN access", Source: models.SourceDashboard, User: owner})
	f.prefs.prefs[KeyTicketFromDashboard] = true
	f.addTemplate(SlugTicketCreatedDashboard, "", "A ticket was opened for you, {name}.")

	f.dispatcher.HandleTicketCreated(context.Background(), ticketPayload(ticket))

	if len(f.provider.sent) != 1 {
		t.Fatalf("expected 1 send via dashboard template, got %d", len(f.provider.sent))
	}
	if f.logs.records[0].TemplateSlug != SlugTicketCreatedDashboard {
		t.Errorf("slug = %q, want %q", f.logs.records[0].TemplateSlug, SlugTicketCreatedDashboard)
	}
}

func TestDispatchCommentNotifiesOwnerAndAssignee(t *testing.T) {
	f := newFixture(false, nil)
	owner := newUser("Ann", "ann@example.com", models.RoleCustomer)
	agent := newUser("Bob", "bob@example.com", models.RoleAgent)
	ticket := f.addTicket(&models.Ticket{UID: 5, Subject: "Monitor flicker", User: owner, AssignedTo: agent})
	f.prefs.prefs[KeyFirstComment] = true
	f.addTemplate(SlugTicketComment, "", "{name}: new comment on #{uid}: {comment}")

	f.dispatcher.HandleTicketComment(context.Background(), events.Payload{
		"ticket_id": ticket.ID.String(),
		"comment":   "Tried reseating the cable",
	})

	if len(f.provider.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(f.provider.sent))
	}
	if f.provider.sent[0].To != "ann@example.com" || f.provider.sent[1].To != "bob@example.com" {
		t.Errorf("recipients = %q, %q; want owner first then assignee", f.provider.sent[0].To, f.provider.sent[1].To)
	}
	if !strings.Contains(f.provider.sent[0].BodyHTML, "Tried reseating the cable") {
		t.Errorf("comment text missing from body: %q", f.provider.sent[0].BodyHTML)
	}
	// Each recipient gets their own name.
	if !strings.HasPrefix(f.provider.sent[0].BodyHTML, "Ann:") || !strings.HasPrefix(f.provider.sent[1].BodyHTML, "Bob:") {
		t.Errorf("per-recipient variables not applied: %q / %q", f.provider.sent[0].BodyHTML, f.provider.sent[1].BodyHTML)
	}
}

func TestDispatchDeliveryFailureIsolated(t *testing.T) {
	f := newFixture(false, nil)
	owner := newUser("Ann", "ann@example.com", models.RoleCustomer)
	agent := newUser("Bob", "bob@example.com", models.RoleAgent)
	ticket := f.addTicket(&models.Ticket{UID: 5, Subject: "Monitor flicker", User: owner, AssignedTo: agent})
	f.prefs.prefs[KeyStatusPriorityChanges] = true
	f.addTemplate(SlugTicketUpdated, "", "Status changed: {update_message}")
	f.provider.failFor["ann@example.com"] = errors.New("mailbox full")

	f.dispatcher.HandleTicketUpdated(context.Background(), events.Payload{
		"ticket_id":      ticket.ID.String(),
		"update_message": "open -> pending",
	})

	if len(f.provider.sent) != 1 || f.provider.sent[0].To != "bob@example.com" {
		t.Fatalf("expected the assignee send to survive the owner failure, got %+v", f.provider.sent)
	}
	if len(f.logs.records) != 2 {
		t.Fatalf("expected both outcomes logged, got %d", len(f.logs.records))
	}
	if f.logs.records[0].Status != models.DeliveryFailed {
		t.Errorf("first log status = %q, want FAILED", f.logs.records[0].Status)
	}
	if f.logs.records[0].ErrorMessage == "" {
		t.Error("failed log entry is missing the error message")
	}
	if f.logs.records[1].Status != models.DeliverySent {
		t.Errorf("second log status = %q, want SENT", f.logs.records[1].Status)
	}
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	f := newFixture(false, nil)
	f.dispatcher.stores.Preferences = panickingPreferenceStore{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.dispatcher.HandleTicketResolved(context.Background(), events.Payload{"ticket_id": uuid.NewString()})
	}()
	<-done

	if len(f.provider.sent) != 0 {
		t.Fatalf("expected no sends after panic, got %d", len(f.provider.sent))
	}
}

func TestDispatchUserCreatedUsesTemplateSubject(t *testing.T) {
	f := newFixture(false, nil)
	user := newUser("Cara", "cara@example.com", models.RoleAgent)
	f.users.byID[user.ID] = user
	f.prefs.prefs[KeyNewUser] = true
	f.addTemplate(SlugUserCreated, "Welcome to {app_name}, {name}", "Your password is {password}")

	f.dispatcher.HandleUserCreated(context.Background(), events.Payload{
		"id":       user.ID.String(),
		"password": "s3cret",
	})

	if len(f.provider.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(f.provider.sent))
	}
	if f.provider.sent[0].Subject != "Welcome to Helpdesk, Cara" {
		t.Errorf("subject = %q, want rendered template subject", f.provider.sent[0].Subject)
	}
	if f.provider.sent[0].BodyHTML != "Your password is s3cret" {
		t.Errorf("body = %q", f.provider.sent[0].BodyHTML)
	}
}

func TestDispatchContactMessageIsUngated(t *testing.T) {
	f := newFixture(false, nil)
	admin := newUser("Root", "admin@example.com", models.RoleAdmin)
	f.users.byRole[models.RoleAdmin] = admin
	f.addTemplate(SlugContactMessage, "", "From {sender_name} <{sender_email}>: {message}")
	// Every toggle off; the contact form must still reach the admin.

	f.dispatcher.HandleContactMessage(context.Background(), events.Payload{
		"name":    "Visitor",
		"email":   "visitor@example.com",
		"message": "Do you support SSO?",
	})

	if len(f.provider.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(f.provider.sent))
	}
	want := "From Visitor <visitor@example.com>: Do you support SSO?"
	if f.provider.sent[0].BodyHTML != want {
		t.Errorf("body = %q, want %q", f.provider.sent[0].BodyHTML, want)
	}
}

func TestDispatchQueuedModePublishesJob(t *testing.T) {
	mailQueue := &fakeMailQueue{}
	f := newFixture(true, mailQueue)
	agent := newUser("Bob", "bob@example.com", models.RoleAgent)
	ticket := f.addTicket(&models.Ticket{UID: 3, Subject: "New starter", AssignedTo: agent})
	f.prefs.prefs[KeyUserAssigned] = true
	f.addTemplate(SlugTicketAssigned, "", "Assigned to you: {subject}")

	f.dispatcher.HandleTicketAssigned(context.Background(), ticketPayload(ticket))

	if len(f.provider.sent) != 0 {
		t.Fatalf("queued mode must not touch the provider, got %d sends", len(f.provider.sent))
	}
	if len(mailQueue.jobs) != 1 {
		t.Fatalf("expected 1 queued job, got %d", len(mailQueue.jobs))
	}
	job := mailQueue.jobs[0]
	if job.To != "bob@example.com" || job.Subject != "[Ticket#3] - New starter" {
		t.Errorf("job = %+v", job)
	}
	if f.logs.records[0].Status != models.DeliveryQueued {
		t.Errorf("log status = %q, want QUEUED", f.logs.records[0].Status)
	}
}

func TestDispatchNoRecipients(t *testing.T) {
	f := newFixture(false, nil)
	ticket := f.addTicket(&models.Ticket{UID: 11, Subject: "Orphan", AssignedTo: nil})
	f.prefs.prefs[KeyUserAssigned] = true
	f.addTemplate(SlugTicketAssigned, "", "Assigned: {subject}")

	f.dispatcher.HandleTicketAssigned(context.Background(), ticketPayload(ticket))

	if len(f.provider.sent) != 0 {
		t.Fatalf("expected no sends without an assignee, got %d", len(f.provider.sent))
	}
	if len(f.logs.records) != 0 {
		t.Fatalf("expected no delivery logs, got %d", len(f.logs.records))
	}
}
