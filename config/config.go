package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort             = "5000"
	defaultDatabase         = "eventhub"
	defaultTokenTTL         = "8h"
	defaultCurrency         = "usd"
	defaultPaymentTimeout   = "10s"
	defaultPaymentRetries   = "2"
	defaultReminderInterval = "0s"
	defaultCORSOrigins      = "*"
	defaultMailerFromName   = "EventHub"
)

type Config struct {
	Port                string
	MongoURI            string
	Database            string
	SigningKey          string
	TokenTTL            time.Duration
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	PaymentTimeout      time.Duration
	PaymentMaxRetries   int
	RabbitMQURL         string
	MailerSendAPIKey    string
	MailerFromEmail     string
	MailerFromName      string
	ReminderInterval    time.Duration
	CORSOrigins         string
}

func GetSecret(key string) (string, error) {
	val, exist := os.LookupEnv(key)
	if exist {
		return val, nil
	}
	return "", fmt.Errorf("no env variable with key %v", key)
}

// Load reads the process environment, with an optional .env file in the
// working directory filling in anything unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("cannot read .env file: %v", err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", defaultPort),
		Database:            getEnv("MONGODB_DATABASE", defaultDatabase),
		Currency:            strings.ToLower(getEnv("PAYMENT_CURRENCY", defaultCurrency)),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		RabbitMQURL:         os.Getenv("RABBITMQ_URL"),
		MailerSendAPIKey:    os.Getenv("MAILERSEND_API_KEY"),
		MailerFromEmail:     os.Getenv("MAILERSEND_EMAIL"),
		MailerFromName:      getEnv("MAILERSEND_FROM_NAME", defaultMailerFromName),
		CORSOrigins:         getEnv("CORS_ORIGINS", defaultCORSOrigins),
	}

	var err error
	if cfg.MongoURI, err = GetSecret("MONGODB_CONNSTRING"); err != nil {
		return nil, err
	}
	if cfg.SigningKey, err = GetSecret("SIGN"); err != nil {
		return nil, err
	}
	if cfg.StripeSecretKey, err = GetSecret("STRIPE_SECRET_KEY"); err != nil {
		return nil, err
	}

	if cfg.TokenTTL, err = parseDurationEnv("TOKEN_TTL", defaultTokenTTL); err != nil {
		return nil, err
	}
	if cfg.PaymentTimeout, err = parseDurationEnv("PAYMENT_TIMEOUT", defaultPaymentTimeout); err != nil {
		return nil, err
	}
	if cfg.ReminderInterval, err = parseDurationEnv("REMINDER_INTERVAL", defaultReminderInterval); err != nil {
		return nil, err
	}
	if cfg.PaymentMaxRetries, err = parseIntEnv("PAYMENT_MAX_RETRIES", defaultPaymentRetries); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return fmt.Errorf("SIGN must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	if cfg.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be > 0")
	}
	if cfg.PaymentMaxRetries < 0 {
		return fmt.Errorf("PAYMENT_MAX_RETRIES must be >= 0")
	}
	if cfg.ReminderInterval < 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be >= 0")
	}
	if cfg.MailerSendAPIKey != "" && cfg.MailerFromEmail == "" {
		return fmt.Errorf("MAILERSEND_EMAIL is required when MAILERSEND_API_KEY is set")
	}
	if cfg.StripeWebhookSecret == "" {
		log.Print("STRIPE_WEBHOOK_SECRET not set, webhook deliveries will be rejected")
	}
	return nil
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
