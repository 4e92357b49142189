package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Kind identifies a domain event type
type Kind string

const (
	ContactCreated Kind = "contact.created"
	UserCreated    Kind = "user.created"
	TicketCreated  Kind = "ticket.created"
	TicketAssigned Kind = "ticket.assigned"
	TicketComment  Kind = "ticket.comment"
	TicketUpdated  Kind = "ticket.updated"
	TicketResolved Kind = "ticket.resolved"
	ContactMessage Kind = "contact.message"
)

// Kinds lists every event kind the bus routes
var Kinds = []Kind{
	ContactCreated,
	UserCreated,
	TicketCreated,
	TicketAssigned,
	TicketComment,
	TicketUpdated,
	TicketResolved,
	ContactMessage,
}

// Payload carries the event's fields (ids and small scalars, not entities)
type Payload map[string]interface{}

// String returns the payload field as a string, or "" when absent or
// of another type.
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// UUID parses the payload field as a uuid. Returns uuid.Nil when the field
// is absent or malformed.
func (p Payload) UUID(key string) uuid.UUID {
	id, err := uuid.Parse(p.String(key))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Event is one domain event emission
type Event struct {
	Kind    Kind    `json:"kind"`
	Payload Payload `json:"payload"`
}

// HandlerFunc processes one event. Handlers absorb their own failures;
// they have no error return by contract.
type HandlerFunc func(ctx context.Context, payload Payload)

// Bus routes an event emission to its handler with a direct, synchronous
// call. There is no scheduling and no buffering: dispatch runs in the
// caller that raised the event.
type Bus struct {
	handlers map[Kind]HandlerFunc
	log      *logrus.Logger
}

// NewBus creates an empty bus
func NewBus(log *logrus.Logger) *Bus {
	return &Bus{
		handlers: make(map[Kind]HandlerFunc),
		log:      log,
	}
}

// Subscribe registers the handler for a kind, replacing any previous one
func (b *Bus) Subscribe(kind Kind, fn HandlerFunc) {
	b.handlers[kind] = fn
}

// Publish invokes the handler registered for the event's kind. Events with
// no handler are logged and dropped; Publish never returns an error.
func (b *Bus) Publish(ctx context.Context, event Event) {
	fn, ok := b.handlers[event.Kind]
	if !ok {
		b.log.WithField("kind", event.Kind).Warn("no handler registered for event kind")
		return
	}
	fn(ctx, event.Payload)
}
