package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"helpdesk-notification-service/internal/events"
	"helpdesk-notification-service/internal/models"
)

// Template slugs, one per notification
const (
	SlugContactCreated         = "contact-created"
	SlugUserCreated            = "user-created"
	SlugTicketCreated          = "ticket-created"
	SlugTicketCreatedDashboard = "ticket-created-dashboard"
	SlugTicketAssigned         = "ticket-assigned"
	SlugTicketComment          = "ticket-comment"
	SlugTicketUpdated          = "ticket-updated"
	SlugTicketResolved         = "ticket-resolved"
	SlugContactMessage         = "contact-message"
)

// HandleContactCreated notifies a new contact of their account.
// Subject policy: template-provided.
func (d *Dispatcher) HandleContactCreated(ctx context.Context, payload events.Payload) {
	d.runAccountCreated(ctx, events.ContactCreated, SlugContactCreated, payload)
}

// HandleUserCreated notifies a new staff user of their account.
// Subject policy: template-provided.
func (d *Dispatcher) HandleUserCreated(ctx context.Context, payload events.Payload) {
	d.runAccountCreated(ctx, events.UserCreated, SlugUserCreated, payload)
}

// runAccountCreated is the shared contact/user account pipeline; the two
// events differ only in kind and slug.
func (d *Dispatcher) runAccountCreated(ctx context.Context, kind events.Kind, slug string, payload events.Payload) {
	id := payload.UUID("id")
	var user *models.User

	d.run(ctx, pipeline{
		kind:    kind,
		gateKey: KeyNewUser,
		slug:    slug,
		fetch: func(ctx context.Context) bool {
			u, err := d.stores.Users.GetByID(ctx, id)
			if err != nil {
				d.log.WithError(err).WithField("user_id", id).Warn("failed to fetch user")
				return false
			}
			user = u
			return user != nil
		},
		entityID: func() *uuid.UUID { return &user.ID },
		resolve: func(ctx context.Context) []Recipient {
			return d.resolver.FromUser(user)
		},
		vars: func(rcpt Recipient) map[string]string {
			vars := d.baseVars(rcpt)
			vars["password"] = payload.String("password")
			return vars
		},
		subject: d.templateSubject(fmt.Sprintf("Your %s account", d.app.AppName)),
	})
}

// HandleTicketCreated confirms a new ticket. The gate key and template
// depend on the ticket source: customer-facing public form versus agent
// dashboard. Subject policy: constructed from the ticket.
func (d *Dispatcher) HandleTicketCreated(ctx context.Context, payload events.Payload) {
	gateKey := KeyTicketByCustomer
	slug := SlugTicketCreated
	if payload.String("source") == string(models.SourceDashboard) {
		gateKey = KeyTicketFromDashboard
		slug = SlugTicketCreatedDashboard
	}

	ticketID := payload.UUID("ticket_id")
	var ticket *models.Ticket

	d.run(ctx, pipeline{
		kind:     events.TicketCreated,
		gateKey:  gateKey,
		slug:     slug,
		fetch:    d.fetchTicket(ticketID, &ticket),
		entityID: func() *uuid.UUID { return &ticket.ID },
		resolve: func(ctx context.Context) []Recipient {
			return d.resolver.OwnerOrDefaultOrFirst(ctx, ticket)
		},
		vars: func(rcpt Recipient) map[string]string {
			vars := d.ticketVars(ticket, rcpt)
			vars["password"] = payload.String("password")
			return vars
		},
		subject: d.ticketSubject(&ticket),
	})
}

// HandleTicketAssigned notifies the agent a ticket was assigned to.
// Subject policy: constructed from the ticket.
func (d *Dispatcher) HandleTicketAssigned(ctx context.Context, payload events.Payload) {
	ticketID := payload.UUID("ticket_id")
	var ticket *models.Ticket

	d.run(ctx, pipeline{
		kind:     events.TicketAssigned,
		gateKey:  KeyUserAssigned,
		slug:     SlugTicketAssigned,
		fetch:    d.fetchTicket(ticketID, &ticket),
		entityID: func() *uuid.UUID { return &ticket.ID },
		resolve: func(ctx context.Context) []Recipient {
			return d.resolver.FromUser(ticket.AssignedTo)
		},
		vars: func(rcpt Recipient) map[string]string {
			return d.ticketVars(ticket, rcpt)
		},
		subject: d.ticketSubject(&ticket),
	})
}

// HandleTicketComment notifies the ticket's owner and assignee of a new
// comment, deduplicated when one person holds both roles.
// Subject policy: constructed from the ticket.
func (d *Dispatcher) HandleTicketComment(ctx context.Context, payload events.Payload) {
	d.runTicketParticipants(ctx, events.TicketComment, KeyFirstComment, SlugTicketComment,
		payload, "comment", payload.String("comment"))
}

// HandleTicketUpdated notifies the ticket's owner and assignee of a status
// or priority change. Subject policy: constructed from the ticket.
func (d *Dispatcher) HandleTicketUpdated(ctx context.Context, payload events.Payload) {
	d.runTicketParticipants(ctx, events.TicketUpdated, KeyStatusPriorityChanges, SlugTicketUpdated,
		payload, "update_message", payload.String("update_message"))
}

// HandleTicketResolved notifies the ticket's owner and assignee of the
// resolution. Subject policy: constructed from the ticket.
func (d *Dispatcher) HandleTicketResolved(ctx context.Context, payload events.Payload) {
	d.runTicketParticipants(ctx, events.TicketResolved, KeyTicketResolved, SlugTicketResolved,
		payload, "resolution_details", payload.String("resolution_details"))
}

// runTicketParticipants is the shared owner-plus-assignee pipeline used by
// the comment, update and resolve events; they differ only in gate key,
// slug and the one event-specific variable.
func (d *Dispatcher) runTicketParticipants(ctx context.Context, kind events.Kind, gateKey, slug string, payload events.Payload, extraKey, extraValue string) {
	ticketID := payload.UUID("ticket_id")
	var ticket *models.Ticket

	d.run(ctx, pipeline{
		kind:     kind,
		gateKey:  gateKey,
		slug:     slug,
		fetch:    d.fetchTicket(ticketID, &ticket),
		entityID: func() *uuid.UUID { return &ticket.ID },
		resolve: func(ctx context.Context) []Recipient {
			return d.resolver.OwnerPlusAssignee(ctx, ticket)
		},
		vars: func(rcpt Recipient) map[string]string {
			vars := d.ticketVars(ticket, rcpt)
			vars[extraKey] = extraValue
			return vars
		},
		subject: d.ticketSubject(&ticket),
	})
}

// HandleContactMessage routes a public contact-form submission to the first
// admin. Ungated: submitting the form is itself the opt-in. The payload is
// the entity; there is nothing to fetch. Subject policy: template-provided.
func (d *Dispatcher) HandleContactMessage(ctx context.Context, payload events.Payload) {
	d.run(ctx, pipeline{
		kind: events.ContactMessage,
		slug: SlugContactMessage,
		resolve: func(ctx context.Context) []Recipient {
			return d.resolver.FirstWithRole(ctx, models.RoleAdmin)
		},
		vars: func(rcpt Recipient) map[string]string {
			vars := d.baseVars(rcpt)
			vars["sender_name"] = payload.String("name")
			vars["sender_email"] = payload.String("email")
			vars["sender_phone"] = payload.String("phone")
			vars["message"] = payload.String("message")
			return vars
		},
		subject: d.templateSubject("New contact enquiry"),
	})
}

// fetchTicket returns a fetch step that loads the ticket with its relations
// into *out.
func (d *Dispatcher) fetchTicket(id uuid.UUID, out **models.Ticket) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		ticket, err := d.stores.Tickets.GetByID(ctx, id)
		if err != nil {
			d.log.WithError(err).WithField("ticket_id", id).Warn("failed to fetch ticket")
			return false
		}
		*out = ticket
		return ticket != nil
	}
}

// baseVars builds the variables every notification carries: the recipient's
// own fields plus the static application context.
func (d *Dispatcher) baseVars(rcpt Recipient) map[string]string {
	return map[string]string{
		"name":        rcpt.Name,
		"email":       rcpt.Email,
		"app_name":    d.app.AppName,
		"app_url":     d.app.AppURL,
		"sender_name": d.app.SenderName,
	}
}

// ticketVars builds the shared ticket variable set. Recipient fields differ
// per recipient even though the ticket fields are shared.
func (d *Dispatcher) ticketVars(ticket *models.Ticket, rcpt Recipient) map[string]string {
	vars := d.baseVars(rcpt)
	vars["ticket_id"] = ticket.ID.String()
	vars["uid"] = strconv.Itoa(ticket.UID)
	vars["subject"] = ticket.Subject
	vars["description"] = ticket.Description
	vars["status"] = ticket.Status
	vars["priority"] = ticket.Priority
	vars["ticket_url"] = fmt.Sprintf("%s/tickets/%d", d.app.AppURL, ticket.UID)
	if ticket.TicketType != nil {
		vars["ticket_type"] = ticket.TicketType.Name
	}
	if ticket.User != nil {
		vars["owner_name"] = ticket.User.Name
	}
	if ticket.AssignedTo != nil {
		vars["assigned_to"] = ticket.AssignedTo.Name
	}
	return vars
}

// ticketSubject always constructs "[Ticket#<uid>] - <subject>", overriding
// any subject stored on the template. The ticket pointer is resolved at
// render time, after fetch has run.
func (d *Dispatcher) ticketSubject(ticket **models.Ticket) func(tmpl *models.EmailTemplate, vars map[string]string) string {
	return func(tmpl *models.EmailTemplate, vars map[string]string) string {
		t := *ticket
		return fmt.Sprintf("[Ticket#%d] - %s", t.UID, t.Subject)
	}
}

// templateSubject renders the template's stored subject, falling back to a
// literal default when the template has none.
func (d *Dispatcher) templateSubject(fallback string) func(tmpl *models.EmailTemplate, vars map[string]string) string {
	return func(tmpl *models.EmailTemplate, vars map[string]string) string {
		if tmpl.Subject == "" {
			return fallback
		}
		return d.engine.Render(tmpl.Subject, vars)
	}
}
