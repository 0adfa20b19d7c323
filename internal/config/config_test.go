package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutCredentials(t *testing.T) {
	for _, k := range []string{
		"DATABASE_URL", "SUPABASE_DB_URL", "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY",
		"RESEND_API_KEY", "SMTP_PASSWORD", "TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN",
		"TWILIO_PHONE_NUMBER",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.HasStore())
	assert.False(t, cfg.HasEmail())
	assert.False(t, cfg.HasSMS())
	assert.Equal(t, []string{"SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY"}, cfg.MissingDirectoryKeys())
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, 15*time.Second, cfg.SendTimeout)
}

func TestLoadResendKeyFeedsSMTPPassword(t *testing.T) {
	t.Setenv("SMTP_PASSWORD", "")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("SEND_TIMEOUT_SECONDS", "2.5")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "re_123", cfg.SMTPPassword)
	assert.True(t, cfg.HasEmail())
	assert.Equal(t, DefaultSMTPHost, cfg.SMTPHost)
	assert.Equal(t, 2500*time.Millisecond, cfg.SendTimeout)
	assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestHasSMSNeedsAllThreeKeys(t *testing.T) {
	cfg := &Config{TwilioAccountSID: "AC1", TwilioAuthToken: "tok"}
	assert.False(t, cfg.HasSMS())
	cfg.TwilioPhoneNumber = "+15550000000"
	assert.True(t, cfg.HasSMS())
}
