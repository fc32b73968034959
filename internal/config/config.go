package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	PostgresURL   string
	KafkaBrokers  []string
	MailRelayURL  string
	PaymentWindow time.Duration
	SweepInterval time.Duration
	SweepBatch    int

	ProviderBaseURL   string
	ProviderKeyID     string
	ProviderKeySecret string
}

// Load reads configuration from the environment, after loading a .env
// file if one is present (local development convenience).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		MailRelayURL:  os.Getenv("MAIL_RELAY_URL"),
		PaymentWindow: getDuration("PAYMENT_WINDOW", 10*time.Minute),
		SweepInterval: getDuration("SWEEP_INTERVAL", 30*time.Second),
		SweepBatch:    getInt("SWEEP_BATCH", 100),

		ProviderBaseURL:   os.Getenv("PAYMENT_PROVIDER_URL"),
		ProviderKeyID:     os.Getenv("PAYMENT_PROVIDER_KEY_ID"),
		ProviderKeySecret: os.Getenv("PAYMENT_PROVIDER_KEY_SECRET"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}
