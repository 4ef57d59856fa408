package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	Environment      string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int

	// Speech recognition provider
	OpenAIKey     string
	SpeechModel   string
	SpeechBaseURL string
	// SpeechTimeout caps a single provider call. Zero means wait for the
	// provider, bounded only by the request context.
	SpeechTimeout  time.Duration
	UploadDir      string
	MaxUploadBytes int64

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Email delivery (optional; absence degrades to OTP echo in non-prod)
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Billing constants
	BillingUSDPerMinute float64
	BillingINRPerUSD    float64
	BillingMarkup       float64

	RequestTimeout  time.Duration
	EnableHSTS      bool
	ServerDebugMode bool
	WorkerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),

		OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
		SpeechModel:    getEnv("SPEECH_MODEL", "whisper-1"),
		SpeechBaseURL:  getEnv("SPEECH_BASE_URL", ""),
		SpeechTimeout:  getEnvDuration("SPEECH_TIMEOUT", 0),
		UploadDir:      getEnv("UPLOAD_DIR", os.TempDir()),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 25<<20),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", ""),

		BillingUSDPerMinute: getEnvFloat("BILLING_USD_PER_MINUTE", 0.006),
		BillingINRPerUSD:    getEnvFloat("BILLING_INR_PER_USD", 84),
		BillingMarkup:       getEnvFloat("BILLING_MARKUP", 1.5),

		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 0),
		EnableHSTS:      getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode: getEnvBool("WORKER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for audio transcription")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production cookie and
// secret policies (secure cross-site cookies, no OTP echo in responses).
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MailConfigured reports whether SMTP delivery is available.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.MailFrom != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
