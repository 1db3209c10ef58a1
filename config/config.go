package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Kafka  KafkaConfig
	SMTP   SMTPConfig
	JWT    JWTConfig
	Admin  AdminConfig
	App    AppConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StoreConfig struct {
	// Driver selects the backing store: "mongo" or "memory".
	Driver    string
	URI       string
	Database  string
	TimeoutMS int
}

type KafkaConfig struct {
	Brokers []string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type JWTConfig struct {
	SigningKey string
}

// AdminConfig seeds the first admin account at startup.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

type AppConfig struct {
	// FallbackPayLink is used when neither the invoice nor the settings
	// document carries a payment link.
	FallbackPayLink string
}

// Load returns application configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Store: StoreConfig{
			Driver:    getEnv("STORE_DRIVER", "mongo"),
			URI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:  getEnv("MONGO_DATABASE", "vaultledger"),
			TimeoutMS: getEnvInt("MONGO_TIMEOUT_MS", 10000),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", nil),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "billing@localhost"),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", ""),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Administrator"),
		},
		App: AppConfig{
			FallbackPayLink: getEnv("FALLBACK_PAY_LINK", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
