package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-wide configuration. Secrets (JWT signing key, AES
// payload key) are injected here and passed into component constructors, never
// read from ambient globals by business code.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration

	// PayloadKey is the base64-encoded 32-byte key for consent payload
	// encryption.
	PayloadKey string
}

// RedisConfig holds connection settings for the payment-event dedup store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the lifecycle-event publisher settings. Empty brokers
// disable publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("PACTO_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getenv("JWT_ISSUER", "pacto"),
		TokenTTL:      time.Hour,
		PayloadKey:    os.Getenv("PAYLOAD_ENCRYPTION_KEY"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: getenv("KAFKA_LIFECYCLE_TOPIC", "pacto.consent.lifecycle"),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.TokenTTL = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
