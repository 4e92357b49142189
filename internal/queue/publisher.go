package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	// MailStream holds queued outbound mail jobs
	MailStream = "MAIL_JOBS"
	// MailSubject is the subject mail jobs are published on
	MailSubject = "mail.send"
)

// MailJob is one queued outbound email
type MailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Publisher submits mail jobs to the JetStream mail stream.
// Queue durability and redelivery are the stream's concern; from the
// dispatcher's perspective a published job is fire-and-forget.
type Publisher struct {
	client *Client
	log    *logrus.Logger
}

// NewPublisher creates a publisher and ensures the mail stream exists
func NewPublisher(client *Client, log *logrus.Logger) (*Publisher, error) {
	p := &Publisher{client: client, log: log}
	if err := p.ensureStream(); err != nil {
		return nil, err
	}
	return p, nil
}

// ensureStream creates the mail stream if it doesn't exist, which makes the
// service resilient to startup ordering.
func (p *Publisher) ensureStream() error {
	js := p.client.JetStream()

	_, err := js.StreamInfo(MailStream)
	if err == nil {
		return nil
	}

	if err == nats.ErrStreamNotFound {
		p.log.WithField("stream", MailStream).Info("creating mail stream")
		_, err = js.AddStream(&nats.StreamConfig{
			Name:        MailStream,
			Description: "Queued outbound notification emails",
			Subjects:    []string{MailSubject},
			Storage:     nats.FileStorage,
			Retention:   nats.LimitsPolicy,
			MaxAge:      7 * 24 * time.Hour,
			MaxMsgs:     100000,
			Discard:     nats.DiscardOld,
		})
		if err != nil && err != nats.ErrStreamNameAlreadyInUse {
			return fmt.Errorf("failed to create stream %s: %w", MailStream, err)
		}
		return nil
	}

	return fmt.Errorf("failed to get stream info for %s: %w", MailStream, err)
}

// Enqueue publishes one mail job
func (p *Publisher) Enqueue(ctx context.Context, job MailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal mail job: %w", err)
	}

	if _, err := p.client.JetStream().Publish(MailSubject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish mail job: %w", err)
	}
	return nil
}
