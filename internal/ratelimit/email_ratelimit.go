package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Config holds email rate limit settings
type Config struct {
	// RecipientHourlyLimit caps how many notifications one address can
	// receive per hour across all event kinds
	RecipientHourlyLimit int
	// RedisKeyPrefix prefixes all counter keys
	RedisKeyPrefix string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RecipientHourlyLimit: 20,
		RedisKeyPrefix:       "email:ratelimit:",
	}
}

// Limiter caps outbound email volume per recipient. It is redis-backed with
// an in-memory fallback, and fails open: a counter error never blocks a send.
type Limiter struct {
	config      Config
	redisClient *redis.Client
	logger      *logrus.Entry

	localCounters map[string]*counterState
	localMu       sync.Mutex
}

type counterState struct {
	count     int
	expiresAt time.Time
}

// Result contains the outcome of a rate limit check
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
}

// NewLimiter creates a new email rate limiter. redisClient may be nil, in
// which case counters live in process memory only.
func NewLimiter(redisClient *redis.Client, logger *logrus.Logger, config Config) *Limiter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.RecipientHourlyLimit <= 0 {
		config.RecipientHourlyLimit = DefaultConfig().RecipientHourlyLimit
	}
	if config.RedisKeyPrefix == "" {
		config.RedisKeyPrefix = DefaultConfig().RedisKeyPrefix
	}

	return &Limiter{
		config:        config,
		redisClient:   redisClient,
		logger:        logger.WithField("component", "email_rate_limiter"),
		localCounters: make(map[string]*counterState),
	}
}

// Allow checks whether one more email may be sent to the recipient and, if
// so, records it. Counter-store errors are logged and treated as allowed.
func (l *Limiter) Allow(ctx context.Context, recipient string) *Result {
	key := l.recipientKey(recipient)

	count, err := l.increment(ctx, key, time.Hour)
	if err != nil {
		l.logger.WithError(err).Warn("rate limit counter unavailable, allowing send")
		return &Result{Allowed: true, Remaining: l.config.RecipientHourlyLimit}
	}

	remaining := l.config.RecipientHourlyLimit - count
	if remaining < 0 {
		return &Result{
			Allowed:    false,
			Remaining:  0,
			ResetAfter: l.ttl(ctx, key),
		}
	}

	return &Result{Allowed: true, Remaining: remaining}
}

func (l *Limiter) increment(ctx context.Context, key string, window time.Duration) (int, error) {
	if l.redisClient != nil {
		pipe := l.redisClient.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err == nil {
			return int(incr.Val()), nil
		} else {
			l.logger.WithError(err).Warn("redis increment failed, using local fallback")
		}
	}

	l.localMu.Lock()
	defer l.localMu.Unlock()

	now := time.Now()
	state, ok := l.localCounters[key]
	if !ok || now.After(state.expiresAt) {
		state = &counterState{expiresAt: now.Add(window)}
		l.localCounters[key] = state
	}
	state.count++
	return state.count, nil
}

func (l *Limiter) ttl(ctx context.Context, key string) time.Duration {
	if l.redisClient != nil {
		if ttl, err := l.redisClient.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			return ttl
		}
	}

	l.localMu.Lock()
	defer l.localMu.Unlock()
	if state, ok := l.localCounters[key]; ok {
		if d := time.Until(state.expiresAt); d > 0 {
			return d
		}
	}
	return 0
}

func (l *Limiter) recipientKey(recipient string) string {
	return fmt.Sprintf("%srecipient:%s", l.config.RedisKeyPrefix, strings.ToLower(recipient))
}
