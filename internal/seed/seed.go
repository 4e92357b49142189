package seed

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"helpdesk-notification-service/internal/dispatch"
	"helpdesk-notification-service/internal/models"
)

// systemTemplates are the stock templates for every notification slug.
// They are inserted once and never overwritten, so admin edits survive
// restarts. Bodies use the flat {name} placeholder form.
var systemTemplates = []models.EmailTemplate{
	{
		Slug:    dispatch.SlugContactCreated,
		Subject: "Welcome to {app_name}",
		Body: "<p>Hi {name},</p>" +
			"<p>An account has been created for you on {app_name}. " +
			"You can sign in with this email address and the password below:</p>" +
			"<p><strong>{password}</strong></p>" +
			"<p><a href=\"{app_url}\">{app_url}</a></p>",
	},
	{
		Slug:    dispatch.SlugUserCreated,
		Subject: "Your {app_name} account",
		Body: "<p>Hi {name},</p>" +
			"<p>A staff account has been created for you on {app_name}. " +
			"Your temporary password is:</p>" +
			"<p><strong>{password}</strong></p>" +
			"<p>Please change it after your first sign in: <a href=\"{app_url}\">{app_url}</a></p>",
	},
	{
		Slug: dispatch.SlugTicketCreated,
		Body: "<p>Hi {name},</p>" +
			"<p>We received your request and created ticket #{uid}:</p>" +
			"<blockquote>{description}</blockquote>" +
			"<p>You can follow its progress here: <a href=\"{ticket_url}\">{ticket_url}</a></p>",
	},
	{
		Slug: dispatch.SlugTicketCreatedDashboard,
		Body: "<p>Hi {name},</p>" +
			"<p>Ticket #{uid} has been opened on your behalf:</p>" +
			"<blockquote>{description}</blockquote>" +
			"<p>You can follow its progress here: <a href=\"{ticket_url}\">{ticket_url}</a></p>",
	},
	{
		Slug: dispatch.SlugTicketAssigned,
		Body: "<p>Hi {name},</p>" +
			"<p>Ticket #{uid} has been assigned to you.</p>" +
			"<blockquote>{description}</blockquote>" +
			"<p><a href=\"{ticket_url}\">{ticket_url}</a></p>",
	},
	{
		Slug: dispatch.SlugTicketComment,
		Body: "<p>Hi {name},</p>" +
			"<p>A new comment was posted on ticket #{uid}:</p>" +
			"<blockquote>{comment}</blockquote>" +
			"<p><a href=\"{ticket_url}\">{ticket_url}</a></p>",
	},
	{
		Slug: dispatch.SlugTicketUpdated,
		Body: "<p>Hi {name},</p>" +
			"<p>Ticket #{uid} has been updated:</p>" +
			"<blockquote>{update_message}</blockquote>" +
			"<p>Current status: {status}, priority: {priority}.</p>" +
			"<p><a href=\"{ticket_url}\">{ticket_url}</a></p>",
	},
	{
		Slug: dispatch.SlugTicketResolved,
		Body: "<p>Hi {name},</p>" +
			"<p>Ticket #{uid} has been resolved:</p>" +
			"<blockquote>{resolution_details}</blockquote>" +
			"<p>If the problem comes back, reply on the ticket to reopen it: " +
			"<a href=\"{ticket_url}\">{ticket_url}</a></p>",
	},
	{
		Slug:    dispatch.SlugContactMessage,
		Subject: "New contact enquiry from {sender_name}",
		Body: "<p>A message arrived through the contact form:</p>" +
			"<p><strong>From:</strong> {sender_name} &lt;{sender_email}&gt; {sender_phone}</p>" +
			"<blockquote>{message}</blockquote>",
	},
}

// defaultToggles enables every notification out of the box. The gate treats
// absent keys as off, so without these rows a fresh install would be silent.
var defaultToggles = []string{
	dispatch.KeyNewUser,
	dispatch.KeyUserAssigned,
	dispatch.KeyFirstComment,
	dispatch.KeyStatusPriorityChanges,
	dispatch.KeyTicketByCustomer,
	dispatch.KeyTicketFromDashboard,
	dispatch.KeyTicketResolved,
}

// Run inserts the stock templates and notification toggles, skipping rows
// that already exist
func Run(db *gorm.DB, log *logrus.Logger) error {
	for _, tmpl := range systemTemplates {
		record := models.EmailTemplate{
			Slug:     tmpl.Slug,
			Subject:  tmpl.Subject,
			Body:     tmpl.Body,
			IsActive: true,
			IsSystem: true,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&record).Error
		if err != nil {
			return err
		}
	}

	for _, key := range defaultToggles {
		record := models.NotificationSetting{Key: key, Enabled: true}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&record).Error
		if err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"templates": len(systemTemplates),
		"toggles":   len(defaultToggles),
	}).Info("seed data ensured")
	return nil
}
