package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Port   string
	GoEnv  string
	Secret string

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string

	PaymentMode         string // "stripe" or "mock"
	StripeSecretKey     string
	StripeWebhookSecret string
	MockWebhookSecret   string
	Currency            string

	// PENDINGのまま放置された注文を失効させるまでの時間
	OrderExpiry   time.Duration
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		GoEnv:               getEnv("GO_ENV", "development"),
		Secret:              os.Getenv("JWT_SECRET"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "order-events"),
		PaymentMode:         getEnv("PAYMENT_MODE", "mock"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		MockWebhookSecret:   getEnv("MOCK_WEBHOOK_SECRET", "dev-webhook-secret"),
		Currency:            getEnv("CURRENCY", "jpy"),
		OrderExpiry:         getDuration("ORDER_EXPIRY", 30*time.Minute),
		SweepInterval:       getDuration("SWEEP_INTERVAL", 1*time.Minute),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PaymentMode == "stripe" {
		if cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "" {
			return nil, fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required when PAYMENT_MODE=stripe")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
