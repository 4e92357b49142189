package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"helpdesk-notification-service/internal/ratelimit"
)

func testRecipient() Recipient {
	return Recipient{ID: uuid.New(), Name: "Ann", Email: "ann@example.com"}
}

func testMessage() RenderedMessage {
	return RenderedMessage{Subject: "Hello", HTML: "<p>Hi</p>"}
}

func TestDeliverSyncUsesProviderOnly(t *testing.T) {
	provider := &fakeProvider{failFor: map[string]error{}}
	mailQueue := &fakeMailQueue{}
	d := NewDeliverer(provider, mailQueue, nil, false, "noreply@helpdesk.test", "Helpdesk")

	if err := d.Deliver(context.Background(), testRecipient(), testMessage()); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(provider.sent) != 1 {
		t.Errorf("provider sends = %d, want 1", len(provider.sent))
	}
	if len(mailQueue.jobs) != 0 {
		t.Errorf("sync mode enqueued %d jobs, want 0", len(mailQueue.jobs))
	}
	if provider.sent[0].From != "noreply@helpdesk.test" || provider.sent[0].FromName != "Helpdesk" {
		t.Errorf("sender = %q <%q>", provider.sent[0].FromName, provider.sent[0].From)
	}
}

func TestDeliverQueuedUsesQueueOnly(t *testing.T) {
	provider := &fakeProvider{failFor: map[string]error{}}
	mailQueue := &fakeMailQueue{}
	d := NewDeliverer(provider, mailQueue, nil, true, "noreply@helpdesk.test", "Helpdesk")

	if err := d.Deliver(context.Background(), testRecipient(), testMessage()); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(mailQueue.jobs) != 1 {
		t.Errorf("queued jobs = %d, want 1", len(mailQueue.jobs))
	}
	if len(provider.sent) != 0 {
		t.Errorf("queued mode called the provider %d times, want 0", len(provider.sent))
	}
}

func TestDeliverWrapsProviderError(t *testing.T) {
	cause := errors.New("smtp timeout")
	provider := &fakeProvider{failFor: map[string]error{"ann@example.com": cause}}
	d := NewDeliverer(provider, nil, nil, false, "noreply@helpdesk.test", "Helpdesk")

	err := d.Deliver(context.Background(), testRecipient(), testMessage())
	if err == nil {
		t.Fatal("Deliver() error = nil, want DeliveryError")
	}
	if err.Mode != ModeSync {
		t.Errorf("Mode = %q, want %q", err.Mode, ModeSync)
	}
	if err.Recipient != "ann@example.com" {
		t.Errorf("Recipient = %q", err.Recipient)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Unwrap chain does not reach the transport error: %v", err)
	}
}

func TestDeliverWrapsQueueError(t *testing.T) {
	cause := errors.New("stream unavailable")
	mailQueue := &fakeMailQueue{err: cause}
	d := NewDeliverer(nil, mailQueue, nil, true, "noreply@helpdesk.test", "Helpdesk")

	err := d.Deliver(context.Background(), testRecipient(), testMessage())
	if err == nil {
		t.Fatal("Deliver() error = nil, want DeliveryError")
	}
	if err.Mode != ModeQueued {
		t.Errorf("Mode = %q, want %q", err.Mode, ModeQueued)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Unwrap chain does not reach the queue error: %v", err)
	}
}

func TestDeliverMissingTransport(t *testing.T) {
	if err := NewDeliverer(nil, nil, nil, false, "", "").Deliver(context.Background(), testRecipient(), testMessage()); err == nil {
		t.Error("sync mode without a provider must fail")
	}
	if err := NewDeliverer(nil, nil, nil, true, "", "").Deliver(context.Background(), testRecipient(), testMessage()); err == nil {
		t.Error("queued mode without a queue must fail")
	}
}

func TestDeliverRateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(nil, testLogger(), ratelimit.Config{RecipientHourlyLimit: 1})
	provider := &fakeProvider{failFor: map[string]error{}}
	d := NewDeliverer(provider, nil, limiter, false, "noreply@helpdesk.test", "Helpdesk")

	rcpt := testRecipient()
	if err := d.Deliver(context.Background(), rcpt, testMessage()); err != nil {
		t.Fatalf("first Deliver() error = %v", err)
	}
	err := d.Deliver(context.Background(), rcpt, testMessage())
	if err == nil {
		t.Fatal("second Deliver() error = nil, want rate limit denial")
	}
	if len(provider.sent) != 1 {
		t.Errorf("provider sends = %d, want 1; the denied delivery must not reach the transport", len(provider.sent))
	}

	// Another recipient is unaffected.
	other := Recipient{ID: uuid.New(), Name: "Bob", Email: "bob@example.com"}
	if err := d.Deliver(context.Background(), other, testMessage()); err != nil {
		t.Errorf("Deliver() to a fresh recipient error = %v", err)
	}
}

func TestDeliveryMode(t *testing.T) {
	if mode := NewDeliverer(nil, nil, nil, true, "", "").Mode(); mode != ModeQueued {
		t.Errorf("Mode() = %q, want %q", mode, ModeQueued)
	}
	if mode := NewDeliverer(nil, nil, nil, false, "", "").Mode(); mode != ModeSync {
		t.Errorf("Mode() = %q, want %q", mode, ModeSync)
	}
}
