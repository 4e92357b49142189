package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"helpdesk-notification-service/internal/mailer"
)

// Worker drains the mail stream and sends each job through the provider
// chain. Send failures are logged and the message is not acked, leaving
// redelivery to the stream's MaxDeliver policy.
type Worker struct {
	client   *Client
	provider mailer.Provider
	log      *logrus.Logger
	sub      *nats.Subscription
}

// NewWorker creates a new mail queue worker
func NewWorker(client *Client, provider mailer.Provider, log *logrus.Logger) *Worker {
	return &Worker{
		client:   client,
		provider: provider,
		log:      log,
	}
}

// Start subscribes the worker to the mail stream
func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.client.JetStream().QueueSubscribe(
		MailSubject,
		"notification-mail-workers",
		w.handleMailJob,
		nats.BindStream(MailStream),
		nats.Durable("notification-mail-worker"),
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	w.sub = sub
	w.log.WithField("subject", MailSubject).Info("mail queue worker started")
	return nil
}

// Stop unsubscribes the worker
func (w *Worker) Stop() {
	if w.sub != nil {
		if err := w.sub.Unsubscribe(); err != nil {
			w.log.WithError(err).Warn("failed to unsubscribe mail worker")
		}
	}
}

func (w *Worker) handleMailJob(msg *nats.Msg) {
	var job MailJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.log.WithError(err).Error("failed to unmarshal mail job")
		msg.Ack() // malformed jobs can never succeed, drop them
		return
	}

	if w.provider == nil {
		w.log.WithField("to", job.To).Warn("no email provider configured, dropping mail job")
		msg.Ack()
		return
	}

	ctx := context.Background()
	result, err := w.provider.Send(ctx, &mailer.Message{
		To:       job.To,
		Subject:  job.Subject,
		BodyHTML: job.HTML,
	})
	if err != nil || (result != nil && !result.Success) {
		w.log.WithFields(logrus.Fields{
			"to":      job.To,
			"subject": job.Subject,
		}).WithError(err).Error("queued mail send failed")
		// leave unacked for redelivery
		return
	}

	w.log.WithFields(logrus.Fields{
		"to":          job.To,
		"provider_id": result.ProviderID,
	}).Info("queued mail sent")
	msg.Ack()
}
