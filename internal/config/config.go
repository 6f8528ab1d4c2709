package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type MySQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type BaasConfig struct {
	URL        string
	ServiceKey string
	JWTSecret  string
	Timeout    time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type WhatsAppConfig struct {
	BaseURL string
	Token   string
}

type Config struct {
	Addr             string
	CORSAllowOrigins string
	RateLimitPerMin  int
	RateLimitEnabled bool
	Baas             BaasConfig
	SMTP             SMTPConfig
	WhatsApp         WhatsAppConfig
	MySQL            MySQLConfig
}

func Load() Config {
	port := getenv("PORT", "8080")

	return Config{
		Addr:             ":" + port,
		CORSAllowOrigins: os.Getenv("CORS_ALLOW_ORIGINS"),
		RateLimitPerMin:  getenvInt("RATE_LIMIT_PER_MINUTE", 60, 1, 10_000),
		RateLimitEnabled: getenvBool("RATE_LIMIT_ENABLED", true),
		Baas: BaasConfig{
			URL:        strings.TrimRight(getenv("BAAS_URL", "http://127.0.0.1:54321"), "/"),
			ServiceKey: os.Getenv("BAAS_SERVICE_KEY"),
			JWTSecret:  os.Getenv("BAAS_JWT_SECRET"),
			Timeout:    time.Duration(getenvInt("BAAS_TIMEOUT_SECONDS", 15, 1, 120)) * time.Second,
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", "127.0.0.1"),
			Port:     getenvInt("SMTP_PORT", 587, 1, 65535),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM", "reservas@mesaflow.app"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL: strings.TrimRight(os.Getenv("WHATSAPP_API_URL"), "/"),
			Token:   os.Getenv("WHATSAPP_API_TOKEN"),
		},
		MySQL: MySQLConfig{
			Host:     getenv("DB_HOST", "127.0.0.1"),
			Port:     getenv("DB_PORT", "3306"),
			User:     getenv("DB_USER", "mesaflow"),
			Password: getenv("DB_PASSWORD", "mesaflow"),
			DBName:   getenv("DB_NAME", "mesaflow"),
		},
	}
}

func getenv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getenvInt(key string, fallback int, min int, max int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if min > 0 && v < min {
		return fallback
	}
	if max > 0 && v > max {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
