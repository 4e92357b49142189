package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	NATS      NATSConfig
	Queue     QueueConfig
	AWS       AWSConfig
	Email     EmailConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppConfig holds application settings
type AppConfig struct {
	Environment string
	// Name appears as the sender name and in template variables
	Name string
	// URL is the dashboard base URL used to build ticket links
	URL string
	// MailFrom / MailFromName are the envelope sender defaults
	MailFrom     string
	MailFromName string
}

// NATSConfig holds NATS settings
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// QueueConfig controls the delivery mode: queued (publish a mail job)
// versus synchronous provider send.
type QueueConfig struct {
	Enabled bool
}

// AWSConfig holds AWS credentials and settings for SES
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// EmailConfig holds email provider settings
type EmailConfig struct {
	// AWS SES settings (primary)
	SESFrom     string
	SESFromName string

	// SendGrid settings (fallback)
	SendGridAPIKey string
	SendGridFrom   string

	// Generic SMTP settings (last resort)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Provider priority: SES > SendGrid > SMTP
	// EnableFailover enables automatic failover to the next provider
	EnableFailover bool
}

// RedisConfig holds redis settings for outbound rate limiting
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RateLimitConfig holds outbound email rate limit settings
type RateLimitConfig struct {
	Enabled              bool
	RecipientHourlyLimit int
}

// Load loads configuration from environment
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8090),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "helpdesk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Environment:  getEnv("ENVIRONMENT", "development"),
			Name:         getEnv("APP_NAME", "Helpdesk"),
			URL:          getEnv("APP_URL", "http://localhost:3000"),
			MailFrom:     getEnv("MAIL_FROM", "helpdesk@localhost"),
			MailFromName: getEnv("MAIL_FROM_NAME", "Helpdesk"),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects: getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited reconnects
			ReconnectWait: time.Duration(getEnvInt("NATS_RECONNECT_WAIT_SECONDS", 2)) * time.Second,
		},
		Queue: QueueConfig{
			Enabled: getEnvBool("QUEUE_ENABLED", false),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Email: EmailConfig{
			SESFrom:        getEnvWithFallback("AWS_SES_FROM", "MAIL_FROM", ""),
			SESFromName:    getEnv("AWS_SES_FROM_NAME", "Helpdesk"),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			SendGridFrom:   getEnv("SENDGRID_FROM", ""),
			SMTPHost:       getEnv("SMTP_HOST", ""),
			SMTPPort:       getEnvInt("SMTP_PORT", 587),
			SMTPUsername:   getEnv("SMTP_USERNAME", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:       getEnv("SMTP_FROM", ""),
			EnableFailover: getEnvBool("EMAIL_FAILOVER_ENABLED", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:              getEnvBool("EMAIL_RATE_LIMIT_ENABLED", false),
			RecipientHourlyLimit: getEnvInt("EMAIL_RECIPIENT_HOURLY_LIMIT", 20),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvWithFallback(primaryKey, fallbackKey, defaultValue string) string {
	if value := os.Getenv(primaryKey); value != "" {
		return value
	}
	if value := os.Getenv(fallbackKey); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
