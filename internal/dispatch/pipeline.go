package dispatch

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"helpdesk-notification-service/internal/events"
	"helpdesk-notification-service/internal/models"
	"helpdesk-notification-service/internal/template"
)

// TicketStore is the ticket lookup surface the dispatcher needs
type TicketStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
}

// TemplateStore is the template lookup surface the dispatcher needs
type TemplateStore interface {
	GetBySlug(ctx context.Context, slug string) (*models.EmailTemplate, error)
}

// PreferenceStore returns a fresh notification toggle snapshot per dispatch
type PreferenceStore interface {
	GetAll(ctx context.Context) (map[string]bool, error)
}

// DeliveryLogStore records delivery outcomes. Writes are best-effort: a log
// store failure never affects the dispatch.
type DeliveryLogStore interface {
	Create(ctx context.Context, log *models.DeliveryLog) error
}

// Stores bundles the read surfaces one dispatch draws on
type Stores struct {
	Tickets     TicketStore
	Users       UserStore
	Templates   TemplateStore
	Settings    SettingStore
	Preferences PreferenceStore
	Logs        DeliveryLogStore
}

// AppInfo carries the static variables shared by every coordinator
type AppInfo struct {
	AppName    string
	AppURL     string
	SenderName string
}

// Dispatcher orchestrates the notification pipeline for every event kind.
// Its handlers always return normally: every expected failure inside the
// pipeline is absorbed as a logged no-op, and delivery failures are isolated
// per recipient.
type Dispatcher struct {
	stores    Stores
	resolver  *Resolver
	deliverer *Deliverer
	engine    *template.Engine
	app       AppInfo
	log       *logrus.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(stores Stores, deliverer *Deliverer, app AppInfo, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{
		stores:    stores,
		resolver:  NewResolver(stores.Users, stores.Settings, log),
		deliverer: deliverer,
		engine:    template.NewEngine(),
		app:       app,
		log:       log,
	}
}

// Register subscribes every coordinator on the bus
func (d *Dispatcher) Register(bus *events.Bus) {
	bus.Subscribe(events.ContactCreated, d.HandleContactCreated)
	bus.Subscribe(events.UserCreated, d.HandleUserCreated)
	bus.Subscribe(events.TicketCreated, d.HandleTicketCreated)
	bus.Subscribe(events.TicketAssigned, d.HandleTicketAssigned)
	bus.Subscribe(events.TicketComment, d.HandleTicketComment)
	bus.Subscribe(events.TicketUpdated, d.HandleTicketUpdated)
	bus.Subscribe(events.TicketResolved, d.HandleTicketResolved)
	bus.Subscribe(events.ContactMessage, d.HandleContactMessage)
}

// pipeline parameterizes one dispatch: every coordinator shares the same
// control flow and differs only in these fields.
type pipeline struct {
	kind events.Kind
	// gateKey gates the dispatch against notification settings; empty
	// means ungated
	gateKey string
	// slug names the template to render
	slug string
	// fetch loads the primary entity; false means it is missing. Nil when
	// the event carries its data inline.
	fetch func(ctx context.Context) bool
	// entityID is the primary entity's id for logging, after fetch
	entityID func() *uuid.UUID
	// resolve produces the recipient list, after fetch
	resolve func(ctx context.Context) []Recipient
	// vars builds the recipient's variable set, after fetch
	vars func(rcpt Recipient) map[string]string
	// subject produces the subject line per the coordinator's policy
	subject func(tmpl *models.EmailTemplate, vars map[string]string) string
}

// run executes the pipeline: gate, entity fetch, recipient resolution,
// template fetch, then render and deliver per recipient. Failures up to the
// template fetch end the dispatch with a log entry and zero sends; from
// there on, each recipient is its own unit of work.
func (d *Dispatcher) run(ctx context.Context, p pipeline) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{
				"event": p.kind,
				"panic": r,
			}).Error("dispatch aborted by panic")
		}
	}()

	entry := d.log.WithField("event", p.kind)

	if p.gateKey != "" {
		prefs, err := d.stores.Preferences.GetAll(ctx)
		if err != nil {
			entry.WithError(err).Warn("failed to load notification settings")
			return
		}
		if !Enabled(prefs, p.gateKey) {
			entry.WithField("key", p.gateKey).Info("notification disabled, skipping")
			return
		}
	}

	if p.fetch != nil && !p.fetch(ctx) {
		entry.Warn("entity not found, skipping dispatch")
		return
	}

	recipients := p.resolve(ctx)
	if len(recipients) == 0 {
		entry.Warn("no recipients resolved, skipping dispatch")
		return
	}

	tmpl, err := d.stores.Templates.GetBySlug(ctx, p.slug)
	if err != nil {
		entry.WithError(err).WithField("slug", p.slug).Warn("failed to load template")
		return
	}
	if tmpl == nil {
		entry.WithField("slug", p.slug).Warn("template not found, skipping dispatch")
		return
	}

	var entityID *uuid.UUID
	if p.entityID != nil {
		entityID = p.entityID()
	}

	for _, rcpt := range recipients {
		vars := p.vars(rcpt)
		msg := RenderedMessage{
			Subject: p.subject(tmpl, vars),
			HTML:    d.engine.Render(tmpl.Body, vars),
		}

		recipientEntry := entry.WithFields(logrus.Fields{
			"recipient": rcpt.Email,
			"slug":      p.slug,
			"entity_id": entityID,
		})

		deliveryErr := d.deliverer.Deliver(ctx, rcpt, msg)
		d.recordDelivery(ctx, p, entityID, rcpt, msg, vars, deliveryErr)

		if deliveryErr != nil {
			// One recipient's transport failure must never block the rest.
			recipientEntry.WithError(deliveryErr).Error("notification delivery failed")
			continue
		}
		recipientEntry.Info("notification delivered")
	}
}

// recordDelivery writes the delivery outcome, best-effort
func (d *Dispatcher) recordDelivery(ctx context.Context, p pipeline, entityID *uuid.UUID, rcpt Recipient, msg RenderedMessage, vars map[string]string, deliveryErr *DeliveryError) {
	if d.stores.Logs == nil {
		return
	}

	status := models.DeliverySent
	if d.deliverer.Queued() {
		status = models.DeliveryQueued
	}
	errorMessage := ""
	if deliveryErr != nil {
		status = models.DeliveryFailed
		errorMessage = deliveryErr.Error()
	}

	record := &models.DeliveryLog{
		EventKind:      string(p.kind),
		TemplateSlug:   p.slug,
		EntityID:       entityID,
		RecipientEmail: rcpt.Email,
		Subject:        msg.Subject,
		Status:         status,
		ErrorMessage:   errorMessage,
	}
	if rcpt.ID != uuid.Nil {
		id := rcpt.ID
		record.RecipientID = &id
	}
	if data, err := json.Marshal(vars); err == nil {
		record.Variables = datatypes.JSON(data)
	}

	if err := d.stores.Logs.Create(ctx, record); err != nil {
		d.log.WithError(err).Warn("failed to record delivery log")
	}
}
