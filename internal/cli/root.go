package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ogulcanaydogan/fare-guardian/internal/config"
	"github.com/ogulcanaydogan/fare-guardian/internal/logging"
	"github.com/ogulcanaydogan/fare-guardian/pkg/checker"
	"github.com/ogulcanaydogan/fare-guardian/pkg/fare"
	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/notify"
	"github.com/ogulcanaydogan/fare-guardian/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fareguard",
	Short: "Fare Guardian - flight price drop alerts",
	Long: `Fare Guardian re-checks stored flight price alerts against a live fare
source, records the latest price and notifies travelers by email, SMS or
webhook when a fare drops below what they paid.

Run without a subcommand to perform one batch check.`,
	SilenceUsage: true,
	RunE:         runCheck,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.fareguard/config.yaml)")
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return logging.New(cfg.Logging)
}

// initStorage opens the configured alert store.
func initStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		store, err := storage.NewRedis(ctx, rdb, storage.WithKeyPrefix(cfg.Storage.Redis.Prefix))
		if err != nil {
			rdb.Close()
			return nil, err
		}
		return store, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		return storage.NewSQLite(cfg.Storage.Path)
	}
}

// initChannels creates the notification channels from config. Disabled
// channels are still returned so dispatch reports them as skipped.
func initChannels(cfg *config.Config) ([]notify.Channel, error) {
	n := cfg.Notify

	email, err := notify.NewEmailChannel(notify.EmailConfig{
		Enabled:  n.Email.Enabled,
		Host:     n.Email.Host,
		Port:     n.Email.Port,
		Username: n.Email.Username,
		Password: n.Email.Password,
		From:     n.Email.From,
	})
	if err != nil {
		return nil, err
	}

	sms, err := notify.NewSMSChannel(notify.SMSConfig{
		Enabled:    n.SMS.Enabled,
		AccountSID: n.SMS.AccountSID,
		AuthToken:  n.SMS.AuthToken,
		From:       n.SMS.From,
		APIBase:    n.SMS.APIBase,
	})
	if err != nil {
		return nil, err
	}

	webhook, err := notify.NewWebhookChannel(notify.WebhookConfig{
		Enabled: n.Webhook.Enabled,
		URL:     n.Webhook.URL,
		Secret:  n.Webhook.Secret,
	})
	if err != nil {
		return nil, err
	}

	slack, err := notify.NewSlackChannel(notify.SlackConfig{
		Enabled:    n.Slack.Enabled,
		WebhookURL: n.Slack.WebhookURL,
		Channel:    n.Slack.Channel,
	})
	if err != nil {
		return nil, err
	}

	return []notify.Channel{email, sms, webhook, slack}, nil
}

// runBatch wires a fresh store, browser launcher and dispatcher into a runner
// and performs one batch. The runner closes the store.
func runBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.Summary, error) {
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return model.Summary{}, &checker.SetupError{Stage: "store", Err: err}
	}

	channels, err := initChannels(cfg)
	if err != nil {
		store.Close()
		return model.Summary{}, &checker.SetupError{Stage: "notify", Err: err}
	}

	runner, err := checker.NewRunner(checker.RunnerConfig{
		MaxSessions: cfg.Check.MaxSessions,
		Store:       store,
		Launch: fare.HTTPLauncher(fare.HTTPConfig{
			BaseURL:           cfg.Fare.BaseURL,
			Proxy:             cfg.Fare.Proxy,
			Timeout:           cfg.Fare.Timeout,
			RequestsPerSecond: cfg.Fare.RequestsPerSecond,
			Burst:             cfg.Fare.Burst,
			UserAgent:         cfg.Fare.UserAgent,
		}),
		Notifier: notify.NewDispatcher(channels, cfg.Check.BaseURL, logger),
		Logger:   logger,
	})
	if err != nil {
		store.Close()
		return model.Summary{}, err
	}

	return runner.Run(ctx)
}
