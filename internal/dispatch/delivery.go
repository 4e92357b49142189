package dispatch

import (
	"context"
	"fmt"

	"helpdesk-notification-service/internal/mailer"
	"helpdesk-notification-service/internal/queue"
	"helpdesk-notification-service/internal/ratelimit"
)

// DeliveryMode selects between a synchronous transport call and a queue
// submission. One global flag picks the mode for the whole service.
type DeliveryMode string

const (
	ModeSync   DeliveryMode = "sync"
	ModeQueued DeliveryMode = "queued"
)

// RenderedMessage is the output of rendering, handed to delivery and
// discarded.
type RenderedMessage struct {
	Subject string
	HTML    string
}

// DeliveryError is the single error type the pipeline sees from delivery,
// whatever the underlying transport raised.
type DeliveryError struct {
	Mode      DeliveryMode
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery (%s) to %s failed: %v", e.Mode, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// MailQueue is the queue submission surface for queued delivery
type MailQueue interface {
	Enqueue(ctx context.Context, job queue.MailJob) error
}

// Deliverer routes a rendered message to the transport or the queue and
// converts every failure into a DeliveryError.
type Deliverer struct {
	provider mailer.Provider
	queue    MailQueue
	limiter  *ratelimit.Limiter
	queued   bool
	from     string
	fromName string
}

// NewDeliverer creates a delivery selector. provider, queue and limiter may
// each be nil; a nil path selected at delivery time yields a DeliveryError.
func NewDeliverer(provider mailer.Provider, mailQueue MailQueue, limiter *ratelimit.Limiter, queued bool, from, fromName string) *Deliverer {
	return &Deliverer{
		provider: provider,
		queue:    mailQueue,
		limiter:  limiter,
		queued:   queued,
		from:     from,
		fromName: fromName,
	}
}

// Queued reports the configured delivery mode
func (d *Deliverer) Queued() bool {
	return d.queued
}

// Mode returns the configured delivery mode
func (d *Deliverer) Mode() DeliveryMode {
	if d.queued {
		return ModeQueued
	}
	return ModeSync
}

// Deliver sends one rendered message to one recipient. It returns nil on
// success and a *DeliveryError on any failure; no transport error type
// escapes it.
func (d *Deliverer) Deliver(ctx context.Context, recipient Recipient, msg RenderedMessage) *DeliveryError {
	if d.limiter != nil {
		if result := d.limiter.Allow(ctx, recipient.Email); !result.Allowed {
			return &DeliveryError{
				Mode:      d.Mode(),
				Recipient: recipient.Email,
				Err:       fmt.Errorf("recipient rate limit exceeded, resets in %s", result.ResetAfter),
			}
		}
	}

	if d.queued {
		if d.queue == nil {
			return &DeliveryError{Mode: ModeQueued, Recipient: recipient.Email, Err: fmt.Errorf("mail queue not configured")}
		}
		job := queue.MailJob{
			To:      recipient.Email,
			Subject: msg.Subject,
			HTML:    msg.HTML,
		}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			return &DeliveryError{Mode: ModeQueued, Recipient: recipient.Email, Err: err}
		}
		return nil
	}

	if d.provider == nil {
		return &DeliveryError{Mode: ModeSync, Recipient: recipient.Email, Err: fmt.Errorf("no email provider configured")}
	}

	result, err := d.provider.Send(ctx, &mailer.Message{
		To:       recipient.Email,
		Subject:  msg.Subject,
		BodyHTML: msg.HTML,
		From:     d.from,
		FromName: d.fromName,
	})
	if err != nil {
		return &DeliveryError{Mode: ModeSync, Recipient: recipient.Email, Err: err}
	}
	if result != nil && !result.Success {
		cause := result.Error
		if cause == nil {
			cause = fmt.Errorf("send failed without error")
		}
		return &DeliveryError{Mode: ModeSync, Recipient: recipient.Email, Err: cause}
	}
	return nil
}
