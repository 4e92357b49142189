package mailer

import (
	"context"
)

// Provider sends one email message through a concrete transport
type Provider interface {
	Send(ctx context.Context, message *Message) (*SendResult, error)
	GetName() string
}

// Message represents an email to be sent
type Message struct {
	To       string
	Subject  string
	Body     string
	BodyHTML string
	From     string
	FromName string
	ReplyTo  string
}

// SendResult represents the result of a send operation
type SendResult struct {
	ProviderID   string
	ProviderName string
	Success      bool
	Error        error
}

// ProviderConfig represents provider configuration
type ProviderConfig struct {
	// AWS credentials for SES
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// AWS SES (primary)
	SESFrom     string
	SESFromName string

	// SendGrid (fallback)
	SendGridAPIKey string
	SendGridFrom   string
	SendGridName   string

	// Generic SMTP (last resort)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
}
