package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voltaic-labs/voltaic/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored credentials",
	Long: `Seed and inspect the credentials voltaic keeps in its secret store:
the OAuth client pair, the token pair, and the notification webhook URL.

voltaic never performs the interactive authorization flow itself; obtain
the initial refresh token from your provider's flow, then store it here.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store client credentials and the initial refresh token",
	Long: `Interactively stores the OAuth client ID, client secret, refresh
token, and optionally a webhook URL. Secret values are read without echo.

Values left empty keep whatever is already stored.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored credential state",
	Args:  cobra.NoArgs,
	RunE:  runAuthShow,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authShowCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if secretStore == nil {
		return errors.New("secret store not configured")
	}

	ctx := context.Background()

	creds, err := secretStore.Credentials(ctx)
	if err != nil && !errors.Is(err, domain.ErrCredentialsMissing) {
		return fmt.Errorf("read stored credentials: %w", err)
	}

	cmd.Print("Client ID: ")
	if v := readLine(); v != "" {
		creds.ClientID = v
	}

	cmd.Print("Client secret (hidden, empty to keep): ")
	if v := readSecret(); v != "" {
		creds.ClientSecret = v
	}
	cmd.Println()

	if creds.ClientID == "" {
		return errors.New("client ID is required")
	}
	if err := secretStore.SaveCredentials(ctx, creds); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	cmd.Print("Refresh token (hidden, empty to keep): ")
	refreshToken := readSecret()
	cmd.Println()
	if refreshToken != "" {
		rec, err := secretStore.TokenRecord(ctx)
		if err != nil {
			return fmt.Errorf("read token record: %w", err)
		}
		rec.RefreshToken = refreshToken
		if err := secretStore.SaveTokenRecord(ctx, rec); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
	}

	cmd.Print("Webhook URL (empty to keep): ")
	if v := readLine(); v != "" {
		if err := secretStore.SaveWebhookURL(ctx, v); err != nil {
			return fmt.Errorf("store webhook URL: %w", err)
		}
	}

	cmd.Println("Credentials stored.")
	return nil
}

func runAuthShow(cmd *cobra.Command, _ []string) error {
	if secretStore == nil {
		return errors.New("secret store not configured")
	}

	ctx := context.Background()

	creds, err := secretStore.Credentials(ctx)
	switch {
	case errors.Is(err, domain.ErrCredentialsMissing):
		cmd.Println("Client ID: (not set)")
	case err != nil:
		return fmt.Errorf("read credentials: %w", err)
	default:
		cmd.Printf("Client ID: %s\n", creds.ClientID)
		if creds.ClientSecret != "" {
			cmd.Printf("Client secret: %s\n", maskSecret(creds.ClientSecret))
		} else {
			cmd.Println("Client secret: (not set)")
		}
	}

	rec, err := secretStore.TokenRecord(ctx)
	if err != nil {
		return fmt.Errorf("read token record: %w", err)
	}
	if rec.HasRefreshToken() {
		cmd.Printf("Refresh token: %s\n", maskSecret(rec.RefreshToken))
	} else {
		cmd.Println("Refresh token: (not set)")
	}
	if rec.AccessExpiry.IsZero() {
		cmd.Println("Access token: (not set)")
	} else {
		cmd.Printf("Access token: %s, expires %s\n",
			maskSecret(rec.AccessToken), rec.AccessExpiry.UTC().Format("2006-01-02 15:04 MST"))
	}
	if !rec.LastRefreshAttempt.IsZero() {
		cmd.Printf("Last refresh: %s (%s)\n",
			rec.LastRefreshAttempt.UTC().Format("2006-01-02 15:04 MST"), rec.LastRefreshOutcome)
	}

	url, err := secretStore.WebhookURL(ctx)
	if err != nil {
		return fmt.Errorf("read webhook URL: %w", err)
	}
	if url != "" {
		cmd.Printf("Webhook URL: %s\n", url)
	} else {
		cmd.Println("Webhook URL: (not set)")
	}

	return nil
}

func readLine() string {
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func readSecret() string {
	// Try to read without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	// Fallback to regular input
	return readLine()
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
