package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SMTPProvider implements email sending via SMTP
type SMTPProvider struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

// NewSMTPProvider creates a new SMTP email provider
func NewSMTPProvider(config *ProviderConfig) *SMTPProvider {
	fromName := config.SMTPFromName
	if fromName == "" {
		fromName = "Helpdesk"
	}
	return &SMTPProvider{
		host:     config.SMTPHost,
		port:     fmt.Sprintf("%d", config.SMTPPort),
		username: config.SMTPUsername,
		password: config.SMTPPassword,
		from:     config.SMTPFrom,
		fromName: fromName,
	}
}

// Send sends an email via SMTP
func (p *SMTPProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	from := p.from
	if p.fromName != "" {
		from = fmt.Sprintf("%s <%s>", p.fromName, p.from)
	}
	if message.From != "" {
		from = message.From
		if message.FromName != "" {
			from = fmt.Sprintf("%s <%s>", message.FromName, message.From)
		}
	}

	headers := make(map[string]string)
	headers["From"] = from
	headers["To"] = message.To
	headers["Subject"] = message.Subject
	headers["MIME-Version"] = "1.0"
	if message.ReplyTo != "" {
		headers["Reply-To"] = message.ReplyTo
	}

	var body string
	if message.BodyHTML != "" {
		headers["Content-Type"] = "text/html; charset=utf-8"
		body = message.BodyHTML
	} else {
		headers["Content-Type"] = "text/plain; charset=utf-8"
		body = message.Body
	}

	var emailBuilder strings.Builder
	for k, v := range headers {
		emailBuilder.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	emailBuilder.WriteString("\r\n")
	emailBuilder.WriteString(body)

	auth := smtp.PlainAuth("", p.username, p.password, p.host)
	addr := net.JoinHostPort(p.host, p.port)

	tlsConfig := &tls.Config{
		ServerName:         p.host,
		InsecureSkipVerify: false,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		// Try plain submission with STARTTLS negotiation handled by SendMail
		err = smtp.SendMail(addr, auth, p.from, []string{message.To}, []byte(emailBuilder.String()))
		if err != nil {
			return &SendResult{ProviderName: "SMTP", Success: false, Error: err}, err
		}
	} else {
		defer conn.Close()

		client, err := smtp.NewClient(conn, p.host)
		if err != nil {
			return &SendResult{ProviderName: "SMTP", Success: false, Error: err}, err
		}
		defer client.Quit()

		if err = client.Auth(auth); err != nil {
			return &SendResult{ProviderName: "SMTP", Success: false, Error: err}, err
		}
		if err = client.Mail(p.from); err != nil {
			return &SendResult{ProviderName: "SMTP", Success: false, Error: err}, err
		}
		if err = client.Rcpt(message.To); err != nil {
			return &SendResult{ProviderName: "SMTP", Success: false, Error: err}, err
		}

		w, err := client.Data()
		if err != nil {
			return &SendResult{ProviderName: "SMTP", Success: false, Error: err}, err
		}
		if _, err = w.Write([]byte(emailBuilder.String())); err != nil {
			return &SendResult{ProviderName: "SMTP", Success: false, Error: err}, err
		}
		if err = w.Close(); err != nil {
			return &SendResult{ProviderName: "SMTP", Success: false, Error: err}, err
		}
	}

	return &SendResult{
		ProviderName: "SMTP",
		Success:      true,
	}, nil
}

// GetName returns the provider name
func (p *SMTPProvider) GetName() string {
	return "SMTP"
}

// SendGridProvider implements email sending via SendGrid
type SendGridProvider struct {
	apiKey   string
	from     string
	fromName string
	client   *sendgrid.Client
}

// NewSendGridProvider creates a new SendGrid email provider
func NewSendGridProvider(config *ProviderConfig) *SendGridProvider {
	fromName := config.SendGridName
	if fromName == "" {
		fromName = "Helpdesk"
	}
	return &SendGridProvider{
		apiKey:   config.SendGridAPIKey,
		from:     config.SendGridFrom,
		fromName: fromName,
		client:   sendgrid.NewSendClient(config.SendGridAPIKey),
	}
}

// Send sends an email via SendGrid
func (p *SendGridProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	from := mail.NewEmail(p.fromName, p.from)
	if message.From != "" {
		fromName := message.FromName
		if fromName == "" {
			fromName = message.From
		}
		from = mail.NewEmail(fromName, message.From)
	}

	to := mail.NewEmail("", message.To)
	m := mail.NewSingleEmail(from, message.Subject, to, message.Body, message.BodyHTML)

	if message.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", message.ReplyTo))
	}

	// Disable click/open tracking: these are transactional notifications and
	// rewritten URLs break the dashboard links embedded in templates.
	trackingSettings := mail.NewTrackingSettings()
	clickTracking := mail.NewClickTrackingSetting()
	clickTracking.SetEnable(false)
	clickTracking.SetEnableText(false)
	trackingSettings.SetClickTracking(clickTracking)
	openTracking := mail.NewOpenTrackingSetting()
	openTracking.SetEnable(false)
	trackingSettings.SetOpenTracking(openTracking)
	m.SetTrackingSettings(trackingSettings)

	response, err := p.client.Send(m)
	if err != nil {
		return &SendResult{ProviderName: "SendGrid", Success: false, Error: err}, err
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		var messageID string
		if ids, ok := response.Headers["X-Message-Id"]; ok && len(ids) > 0 {
			messageID = ids[0]
		}
		return &SendResult{
			ProviderID:   messageID,
			ProviderName: "SendGrid",
			Success:      true,
		}, nil
	}

	return &SendResult{
		ProviderName: "SendGrid",
		Success:      false,
		Error:        fmt.Errorf("SendGrid API error: %d - %s", response.StatusCode, response.Body),
	}, fmt.Errorf("SendGrid API error: %d", response.StatusCode)
}

// GetName returns the provider name
func (p *SendGridProvider) GetName() string {
	return "SendGrid"
}
