package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESProvider implements email sending via AWS SES
type SESProvider struct {
	client   *ses.Client
	from     string
	fromName string
	region   string
}

// NewSESProvider creates a new AWS SES email provider
func NewSESProvider(cfg *ProviderConfig) (*SESProvider, error) {
	var awsOpts []func(*config.LoadOptions) error

	if cfg.AWSRegion != "" {
		awsOpts = append(awsOpts, config.WithRegion(cfg.AWSRegion))
	}

	// If explicit credentials provided, use them; otherwise fall back to the
	// default chain (environment vars, shared config, instance role, etc.)
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		awsOpts = append(awsOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKeyID,
				cfg.AWSSecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESProvider{
		client:   ses.NewFromConfig(awsCfg),
		from:     cfg.SESFrom,
		fromName: cfg.SESFromName,
		region:   cfg.AWSRegion,
	}, nil
}

// Send sends an email via AWS SES
func (p *SESProvider) Send(ctx context.Context, message *Message) (*SendResult, error) {
	source := p.from
	if p.fromName != "" {
		source = fmt.Sprintf("%s <%s>", p.fromName, p.from)
	}
	if message.From != "" {
		source = message.From
		if message.FromName != "" {
			source = fmt.Sprintf("%s <%s>", message.FromName, message.From)
		}
	}

	body := &types.Body{}
	if message.BodyHTML != "" {
		body.Html = &types.Content{
			Charset: aws.String("UTF-8"),
			Data:    aws.String(message.BodyHTML),
		}
	}
	if message.Body != "" {
		body.Text = &types.Content{
			Charset: aws.String("UTF-8"),
			Data:    aws.String(message.Body),
		}
	}

	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: []string{message.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(message.Subject),
			},
			Body: body,
		},
	}

	if message.ReplyTo != "" {
		input.ReplyToAddresses = []string{message.ReplyTo}
	}

	result, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return &SendResult{
			ProviderName: "AWS SES",
			Success:      false,
			Error:        fmt.Errorf("SES send failed: %w", err),
		}, err
	}

	return &SendResult{
		ProviderID:   aws.ToString(result.MessageId),
		ProviderName: "AWS SES",
		Success:      true,
	}, nil
}

// GetName returns the provider name
func (p *SESProvider) GetName() string {
	return "AWS SES"
}
