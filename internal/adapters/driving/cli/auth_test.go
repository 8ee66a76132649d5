package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

func TestAuthCmd_Use(t *testing.T) {
	assert.Equal(t, "auth", authCmd.Use)
}

func TestAuthCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, 2)
	for _, sub := range authCmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "login")
	assert.Contains(t, names, "show")
}

func TestAuthShowCmd_Use(t *testing.T) {
	assert.Equal(t, "show", authShowCmd.Use)
}

func TestAuthShowCmd_EmptyStore(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"auth", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Client ID: (not set)")
	assert.Contains(t, buf.String(), "Refresh token: (not set)")
	assert.Contains(t, buf.String(), "Access token: (not set)")
	assert.Contains(t, buf.String(), "Webhook URL: (not set)")
}

func TestAuthShowCmd_MasksSecrets(t *testing.T) {
	services, cleanup := setupTestServices()
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, services.secrets.SaveCredentials(ctx, domain.CredentialPair{
		ClientID:     "client-abc",
		ClientSecret: "super-secret-value",
	}))
	require.NoError(t, services.secrets.SaveTokenRecord(ctx, domain.TokenRecord{
		AccessToken:  "access-token-material",
		RefreshToken: "refresh-token-material",
		AccessExpiry: time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, services.secrets.SaveWebhookURL(ctx, "https://discord.example/webhook"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"auth", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Client ID: client-abc")
	assert.Contains(t, out, "supe...alue")
	assert.NotContains(t, out, "super-secret-value")
	assert.Contains(t, out, "refr...rial")
	assert.NotContains(t, out, "refresh-token-material")
	assert.Contains(t, out, "2026-09-01 07:00 UTC")
	assert.Contains(t, out, "https://discord.example/webhook")
}

func TestAuthShowCmd_StoreNotConfigured(t *testing.T) {
	oldStore := secretStore
	secretStore = nil
	defer func() {
		secretStore = oldStore
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"auth", "show"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "secret store not configured")
}

func TestAuthLoginCmd_Use(t *testing.T) {
	assert.Equal(t, "login", authLoginCmd.Use)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "****", maskSecret("12345678"))
	assert.Equal(t, "abcd...wxyz", maskSecret("abcdefghij-qrstuvwxyz"))
}
