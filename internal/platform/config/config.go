// Package config builds the process configuration from environment
// variables so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// Database captures the audit store connection.
type Database struct {
	URL string
}

// RedisConfig captures the watchlist backend connection. An empty URL
// disables Redis and falls back to the in-process watchlist.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the security event fan-out. No brokers disables fan-out.
type Kafka struct {
	Brokers  []string
	ClientID string
	Topic    string
}

// Audit captures the writer and analysis tuning knobs.
type Audit struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Encryption captures the field encryption key material.
type Encryption struct {
	Key        string
	KeyVersion string
}

// Config is the full process configuration.
type Config struct {
	Server     Server
	Database   Database
	Redis      RedisConfig
	Kafka      Kafka
	Audit      Audit
	Encryption Encryption
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("AUDITD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:          addr,
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     envDefault("JWT_ISSUER", "ganger-platform"),
			JWTAudience:   envDefault("JWT_AUDIENCE", "auditd"),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:  envList("KAFKA_BROKERS"),
			ClientID: envDefault("KAFKA_CLIENT_ID", "auditd"),
			Topic:    envDefault("KAFKA_SECURITY_TOPIC", "audit.security.events"),
		},
		Audit: Audit{
			BatchSize:     envInt("AUDIT_BATCH_SIZE", 100),
			FlushInterval: envDuration("AUDIT_FLUSH_INTERVAL", 5*time.Second),
		},
		Encryption: Encryption{
			Key:        os.Getenv("AUDIT_ENCRYPTION_KEY"),
			KeyVersion: envDefault("AUDIT_ENCRYPTION_KEY_VERSION", "v1"),
		},
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
