// voltaic keeps a Fleet API token pair fresh and applies scheduled backup
// reserve changes to a Powerwall site.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/voltaic-labs/voltaic/internal/adapters/driven/config/file"
	"github.com/voltaic-labs/voltaic/internal/adapters/driven/fleet"
	"github.com/voltaic-labs/voltaic/internal/adapters/driven/notify"
	"github.com/voltaic-labs/voltaic/internal/adapters/driven/storage/sqlite"
	"github.com/voltaic-labs/voltaic/internal/adapters/driving/cli"
	"github.com/voltaic-labs/voltaic/internal/core/domain"
	"github.com/voltaic-labs/voltaic/internal/core/services"
	"github.com/voltaic-labs/voltaic/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// VOLTAIC_CONFIG_DIR and VOLTAIC_DATA_DIR override the ~/.voltaic
	// defaults, mainly for tests and containers.
	settingsStore, err := file.NewStore(os.Getenv("VOLTAIC_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settings := settingsStore.Settings()

	store, err := sqlite.NewStore(os.Getenv("VOLTAIC_DATA_DIR"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	secrets := store.SecretStore()
	history := store.SchedulerStore()

	cfg := fleet.DefaultConfig(settings.Region)
	if settings.AuthBase != "" {
		cfg.AuthBase = settings.AuthBase
	}
	if settings.APIBase != "" {
		cfg.APIBase = settings.APIBase
	}
	cfg.Scope = settings.Scope
	cfg.Audience = settings.Audience
	cfg.Timeout = settings.Timeout()
	client := fleet.NewClient(cfg)

	// Config-file webhook URL wins over the one in the secret store.
	webhookURL := settings.WebhookURL
	if webhookURL == "" {
		webhookURL, err = secrets.WebhookURL(context.Background())
		if err != nil {
			logger.Warn("could not read webhook URL: %v", err)
		}
	}
	notifier := notify.NewWebhookNotifier(webhookURL)

	steps := settings.ScheduleSteps()
	tokens := services.NewTokenService(secrets, client, notifier, steps)
	dispatcher := services.NewDispatchService(tokens, client, notifier)
	if delays := settings.RetryDelays(); delays != nil {
		policy := services.RetryPolicy{Delays: delays}
		tokens.SetRetryPolicy(policy)
		dispatcher.SetRetryPolicy(policy)
	}

	scheduler := services.NewScheduler(settings.SchedulerConfig(), history, tokens, dispatcher)

	cli.Wire(cli.Deps{
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Fleet:      client,
		Secrets:    secrets,
		History:    history,
		Scheduler:  scheduler,
		WatchConfig: func(ctx context.Context, onReload func([]domain.ScheduleStep)) error {
			return settingsStore.Watch(ctx, func(s file.Settings) {
				onReload(s.ScheduleSteps())
			})
		},
	})

	return cli.Execute()
}
