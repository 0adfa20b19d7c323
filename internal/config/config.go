// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/beacon.
//
// Missing credentials never fail Load. Which channels are usable, and whether
// the backing store is present at all, is decided per request by the
// capability validator in package notify.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultSMTPHost     = "smtp.resend.com"
	DefaultSMTPPort     = 465
	DefaultSMTPUsername = "resend"
	DefaultEmailFrom    = "Emergency Alert <onboarding@resend.dev>"
	DefaultTwilioURL    = "https://api.twilio.com"
)

// --------------------------------------------------------------------------
// Config struct: populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database (backing store)
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Identity provider admin API
	SupabaseURL            string
	SupabaseServiceRoleKey string

	// Email channel (SMTP, Resend by default)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPSSL      bool
	EmailFrom    string

	// SMS channel (Twilio)
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	TwilioBaseURL     string

	// Dispatch
	SendTimeout            time.Duration
	DispatchMaxConcurrency int // 0 = every eligible pair at once

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Emergency LISTEN/NOTIFY hand-off
	ListenerEnabled bool

	// Telemetry
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	resendKey := envOr("RESEND_API_KEY", "")

	return &Config{
		DatabaseURL:    envOr("DATABASE_URL", envOr("SUPABASE_DB_URL", "")),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		SupabaseURL:            strings.TrimRight(envOr("SUPABASE_URL", ""), "/"),
		SupabaseServiceRoleKey: envOr("SUPABASE_SERVICE_ROLE_KEY", ""),

		SMTPHost:     envOr("SMTP_HOST", DefaultSMTPHost),
		SMTPPort:     envInt("SMTP_PORT", DefaultSMTPPort),
		SMTPUsername: envOr("SMTP_USERNAME", DefaultSMTPUsername),
		SMTPPassword: envOr("SMTP_PASSWORD", resendKey),
		SMTPSSL:      envBool("SMTP_SSL", true),
		EmailFrom:    envOr("EMAIL_FROM", DefaultEmailFrom),

		TwilioAccountSID:  envOr("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   envOr("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: envOr("TWILIO_PHONE_NUMBER", ""),
		TwilioBaseURL:     strings.TrimRight(envOr("TWILIO_BASE_URL", DefaultTwilioURL), "/"),

		SendTimeout:            envDuration("SEND_TIMEOUT_SECONDS", 15*time.Second),
		DispatchMaxConcurrency: envInt("DISPATCH_MAX_CONCURRENCY", 0),

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		ListenerEnabled: envBool("LISTENER_ENABLED", false),

		OTLPEndpoint: envOr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  envOr("OTEL_SERVICE_NAME", "beacon"),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasStore reports whether backing-store credentials are present.
func (c *Config) HasStore() bool { return c.DatabaseURL != "" }

// MissingDirectoryKeys lists the identity-provider keys that are unset.
func (c *Config) MissingDirectoryKeys() []string {
	var missing []string
	if c.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.SupabaseServiceRoleKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	return missing
}

// HasEmail reports whether the email channel has credentials.
func (c *Config) HasEmail() bool {
	return c.SMTPHost != "" && c.SMTPPassword != "" && c.EmailFrom != ""
}

// HasSMS reports whether the SMS channel has credentials.
func (c *Config) HasSMS() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

// envDuration reads a value in (possibly fractional) seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return time.Duration(f * float64(time.Second))
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
