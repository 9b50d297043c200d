package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"HTTP_PORT", "APP_NAME", "ENVIRONMENT", "LOG_LEVEL", "LOG_FORMAT",
	"DATABASE_URL", "DB_CONNECT_ATTEMPTS", "REDIS_ADDR", "REDIS_TTL",
	"WHATSAPP_API_URL", "WHATSAPP_PHONE_NUMBER_ID", "WHATSAPP_ACCESS_TOKEN", "WHATSAPP_TIMEOUT",
	"MESSAGE_BODY",
}

// clearConfigEnv unsets every config key for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestReadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := ReadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.HttpPort)
	assert.Equal(t, "https://graph.facebook.com/v18.0", cfg.WhatsAppAPIURL)
	assert.Equal(t, 30*time.Second, cfg.WhatsAppTimeout)
	assert.Equal(t, 24*time.Hour, cfg.RedisTTL)
	assert.Equal(t, 5, cfg.DbConnectAttempts)
	assert.Equal(t, "Hello, this is a test message from our TMBC bot!", cfg.MessageBody)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.WhatsAppAccessToken)
}

func TestReadConfig_EnvFile(t *testing.T) {
	clearConfigEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"WHATSAPP_PHONE_NUMBER_ID=12345\nWHATSAPP_ACCESS_TOKEN=test-token\nWHATSAPP_TIMEOUT=5s\nHTTP_PORT=9000\n",
	), 0o600))

	cfg, err := ReadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.WhatsAppPhoneNumberID)
	assert.Equal(t, "test-token", cfg.WhatsAppAccessToken)
	assert.Equal(t, 5*time.Second, cfg.WhatsAppTimeout)
	assert.Equal(t, 9000, cfg.HttpPort)
}

func TestReadConfig_EnvironmentWinsOverEnvFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "from-env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("WHATSAPP_ACCESS_TOKEN=from-file\n"), 0o600))

	cfg, err := ReadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.WhatsAppAccessToken)
}

func TestReadConfig_InvalidValue(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("HTTP_PORT", "eighty")

	_, err := ReadConfig("")
	assert.Error(t, err)
}
