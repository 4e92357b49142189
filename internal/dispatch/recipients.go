package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"helpdesk-notification-service/internal/models"
)

// SettingDefaultRecipient names the setting whose value is the user id that
// receives new-ticket notifications when the ticket has no owner.
const SettingDefaultRecipient = "default_recipient"

// Recipient is a resolved notification target with a verified address
type Recipient struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// UserStore is the user lookup surface the resolver needs
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	First(ctx context.Context) (*models.User, error)
	FirstByRole(ctx context.Context, role models.UserRole) (*models.User, error)
}

// SettingStore is the settings lookup surface the resolver needs
type SettingStore interface {
	Get(ctx context.Context, name string) (*models.Setting, error)
}

// Resolver turns an event's entities into an ordered, deduplicated list of
// recipients. Every strategy filters out users without an email address and
// never returns the same user id twice.
type Resolver struct {
	users    UserStore
	settings SettingStore
	log      *logrus.Logger
}

// NewResolver creates a recipient resolver
func NewResolver(users UserStore, settings SettingStore, log *logrus.Logger) *Resolver {
	return &Resolver{users: users, settings: settings, log: log}
}

// FromUser resolves a single already-fetched user
func (r *Resolver) FromUser(user *models.User) []Recipient {
	if user == nil {
		return nil
	}
	if !user.HasEmail() {
		r.log.WithFields(logrus.Fields{
			"user_id": user.ID,
		}).Warn("recipient has no email address, skipping")
		return nil
	}
	return []Recipient{{ID: user.ID, Name: user.Name, Email: user.Email}}
}

// SingleUser looks up one user by id
func (r *Resolver) SingleUser(ctx context.Context, id uuid.UUID) []Recipient {
	if id == uuid.Nil {
		r.log.Warn("recipient id missing from event payload")
		return nil
	}
	user, err := r.users.GetByID(ctx, id)
	if err != nil {
		r.log.WithError(err).WithField("user_id", id).Warn("failed to look up recipient")
		return nil
	}
	if user == nil {
		r.log.WithField("user_id", id).Warn("recipient user not found")
		return nil
	}
	return r.FromUser(user)
}

// OwnerOrDefaultOrFirst resolves the ticket's owner, falling back to the
// default_recipient setting and finally to the earliest user in the system.
// Each rung is evaluated only when the previous one fails.
func (r *Resolver) OwnerOrDefaultOrFirst(ctx context.Context, ticket *models.Ticket) []Recipient {
	if ticket.User.HasEmail() {
		return r.FromUser(ticket.User)
	}

	if setting, err := r.settings.Get(ctx, SettingDefaultRecipient); err != nil {
		r.log.WithError(err).Warn("failed to read default recipient setting")
	} else if setting != nil && setting.Value != "" {
		if id, err := uuid.Parse(setting.Value); err != nil {
			r.log.WithField("value", setting.Value).Warn("default recipient setting is not a user id")
		} else if user, err := r.users.GetByID(ctx, id); err != nil {
			r.log.WithError(err).WithField("user_id", id).Warn("failed to look up default recipient")
		} else if user.HasEmail() {
			return r.FromUser(user)
		}
	}

	user, err := r.users.First(ctx)
	if err != nil {
		r.log.WithError(err).Warn("failed to look up fallback recipient")
		return nil
	}
	if !user.HasEmail() {
		r.log.Warn("no usable fallback recipient in the system")
		return nil
	}
	return r.FromUser(user)
}

// OwnerPlusAssignee resolves the ticket's owner and assignee, owner first.
// The assignee is included only when both have an email and the assignee is
// a different user, so one person wearing both roles gets one message.
func (r *Resolver) OwnerPlusAssignee(ctx context.Context, ticket *models.Ticket) []Recipient {
	var recipients []Recipient

	owner := ticket.User
	assignee := ticket.AssignedTo

	if owner.HasEmail() {
		recipients = append(recipients, Recipient{ID: owner.ID, Name: owner.Name, Email: owner.Email})
	} else if owner != nil {
		r.log.WithField("user_id", owner.ID).Warn("ticket owner has no email address, skipping")
	}

	if owner.HasEmail() && assignee.HasEmail() && assignee.ID != owner.ID {
		recipients = append(recipients, Recipient{ID: assignee.ID, Name: assignee.Name, Email: assignee.Email})
	}

	return dedupe(recipients)
}

// FirstWithRole resolves the earliest user holding a role, the last-resort
// target when no recipient is configured for a page-level form.
func (r *Resolver) FirstWithRole(ctx context.Context, role models.UserRole) []Recipient {
	user, err := r.users.FirstByRole(ctx, role)
	if err != nil {
		r.log.WithError(err).WithField("role", role).Warn("failed to look up recipient by role")
		return nil
	}
	if user == nil {
		r.log.WithField("role", role).Warn("no user holds the recipient role")
		return nil
	}
	return r.FromUser(user)
}

// dedupe drops recipients whose id already appeared, preserving insertion
// order. Strategies must never hand the pipeline the same user twice.
func dedupe(recipients []Recipient) []Recipient {
	if len(recipients) < 2 {
		return recipients
	}
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	out := recipients[:0]
	for _, rcpt := range recipients {
		if _, dup := seen[rcpt.ID]; dup {
			continue
		}
		seen[rcpt.ID] = struct{}{}
		out = append(out, rcpt)
	}
	return out
}
