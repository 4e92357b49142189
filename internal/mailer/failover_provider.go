package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FailoverProvider tries each configured provider in order until one
// succeeds. The first provider is primary, the rest are fallbacks.
type FailoverProvider struct {
	providers      []Provider
	enableFailover bool
	maxRetries     int
	retryDelay     time.Duration
	log            *logrus.Logger
}

// FailoverConfig configures the failover behavior
type FailoverConfig struct {
	EnableFailover bool
	MaxRetries     int
	RetryDelay     time.Duration
}

// NewFailoverProvider creates a new failover email provider
func NewFailoverProvider(providers []Provider, config *FailoverConfig, log *logrus.Logger) *FailoverProvider {
	if config == nil {
		config = &FailoverConfig{
			EnableFailover: true,
			MaxRetries:     1,
			RetryDelay:     2 * time.Second,
		}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	validProviders := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			validProviders = append(validProviders, p)
		}
	}

	return &FailoverProvider{
		providers:      validProviders,
		enableFailover: config.EnableFailover,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
		log:            log,
	}
}

// Send sends an email with automatic failover
func (f *FailoverProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	if len(f.providers) == 0 {
		err := fmt.Errorf("no email providers configured")
		return &SendResult{ProviderName: "Failover", Success: false, Error: err}, err
	}

	startTime := time.Now()
	var lastError error
	var allErrors []string

	for i, provider := range f.providers {
		providerName := provider.GetName()

		if ctx.Err() != nil {
			return &SendResult{ProviderName: "Failover", Success: false, Error: ctx.Err()}, ctx.Err()
		}

		for attempt := 0; attempt <= f.maxRetries; attempt++ {
			if attempt > 0 {
				f.log.WithFields(logrus.Fields{
					"provider": providerName,
					"attempt":  attempt,
				}).Info("retrying email provider")
				time.Sleep(f.retryDelay)
			}

			result, err := provider.Send(ctx, message)
			if err == nil && result.Success {
				f.log.WithFields(logrus.Fields{
					"provider": providerName,
					"position": i + 1,
					"took":     time.Since(startTime).String(),
				}).Debug("email sent")
				return result, nil
			}

			if err != nil {
				lastError = err
				allErrors = append(allErrors, fmt.Sprintf("%s: %v", providerName, err))
			} else if result != nil && !result.Success {
				lastError = result.Error
				if result.Error != nil {
					allErrors = append(allErrors, fmt.Sprintf("%s: %v", providerName, result.Error))
				} else {
					allErrors = append(allErrors, fmt.Sprintf("%s: send failed without error", providerName))
				}
			}
			f.log.WithFields(logrus.Fields{
				"provider": providerName,
				"attempt":  attempt + 1,
			}).Warn("email provider failed")
		}

		if !f.enableFailover {
			break
		}
	}

	errorSummary := strings.Join(allErrors, "; ")
	finalError := fmt.Errorf("all email providers failed: %s", errorSummary)

	return &SendResult{
		ProviderName: "Failover",
		Success:      false,
		Error:        lastError,
	}, finalError
}

// GetName returns the provider name
func (f *FailoverProvider) GetName() string {
	if len(f.providers) == 0 {
		return "Failover(none)"
	}
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.GetName()
	}
	return fmt.Sprintf("Failover(%s)", strings.Join(names, "->"))
}

// GetProviders returns the list of configured providers
func (f *FailoverProvider) GetProviders() []Provider {
	return f.providers
}
