package ratelimit

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestLimiter(limit int) *Limiter {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewLimiter(nil, log, Config{RecipientHourlyLimit: limit})
}

func TestAllowWithinLimit(t *testing.T) {
	l := newTestLimiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := l.Allow(ctx, "ann@example.com")
		if !result.Allowed {
			t.Fatalf("send %d denied, want allowed", i+1)
		}
	}

	result := l.Allow(ctx, "ann@example.com")
	if result.Allowed {
		t.Error("send over the limit was allowed")
	}
	if result.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", result.Remaining)
	}
	if result.ResetAfter <= 0 {
		t.Errorf("ResetAfter = %v, want a positive window", result.ResetAfter)
	}
}

func TestAllowCountsPerRecipient(t *testing.T) {
	l := newTestLimiter(1)
	ctx := context.Background()

	if !l.Allow(ctx, "ann@example.com").Allowed {
		t.Fatal("first send to ann denied")
	}
	if !l.Allow(ctx, "bob@example.com").Allowed {
		t.Error("first send to bob denied, counters must be per recipient")
	}
	if l.Allow(ctx, "ann@example.com").Allowed {
		t.Error("second send to ann allowed over the limit")
	}
}

func TestRecipientKeyIsCaseInsensitive(t *testing.T) {
	l := newTestLimiter(1)
	ctx := context.Background()

	if !l.Allow(ctx, "Ann@Example.com").Allowed {
		t.Fatal("first send denied")
	}
	if l.Allow(ctx, "ann@example.com").Allowed {
		t.Error("case variant was counted as a different recipient")
	}
}

func TestConfigDefaultsApplied(t *testing.T) {
	l := NewLimiter(nil, nil, Config{})

	if l.config.RecipientHourlyLimit != DefaultConfig().RecipientHourlyLimit {
		t.Errorf("RecipientHourlyLimit = %d, want the default", l.config.RecipientHourlyLimit)
	}
	if l.config.RedisKeyPrefix != DefaultConfig().RedisKeyPrefix {
		t.Errorf("RedisKeyPrefix = %q, want the default", l.config.RedisKeyPrefix)
	}
}
