// Package cli implements the adwatch command line interface.
//
// Commands hold their services in package variables so tests can swap in
// fakes; real wiring happens once in initServices before the first
// command that needs it runs.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adwatch/adwatch/internal/adapters/driven/config/file"
	"github.com/adwatch/adwatch/internal/adapters/driven/notify/telegram"
	"github.com/adwatch/adwatch/internal/adapters/driven/source/yad2"
	"github.com/adwatch/adwatch/internal/adapters/driven/storage/sqlite"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
	"github.com/adwatch/adwatch/internal/core/ports/driving"
	"github.com/adwatch/adwatch/internal/core/services"
	"github.com/adwatch/adwatch/internal/logger"
)

var version = "0.1.0"

// Flags.
var (
	verbose   bool
	dataDir   string
	configDir string
)

// Services, wired by initServices and replaced by fakes in tests.
var (
	configStore      *file.ConfigStore
	store            *sqlite.Store
	listingStore     driven.ListingStore
	exclusionStore   driven.ExclusionStore
	runLog           driven.RunLog
	notifier         driven.Notifier
	runOrchestrator  driving.RunOrchestrator
	exclusionManager driving.ExclusionManager
)

var rootCmd = &cobra.Command{
	Use:   "adwatch",
	Short: "Watch classified rental listings and get notified about new ones",
	Long: `adwatch polls a classified-ad site for rental listings matching your
search criteria, remembers every listing it has ever seen, and sends a
Telegram message for each listing that is genuinely new. Listings you
exclude are never mentioned again, even if they reappear on the site.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		return wireServices()
	},
}

// wireServices is swapped out in tests, which preset the service
// variables directly.
var wireServices = initServices

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.adwatch/data)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.adwatch)")
}

// Execute runs the root command.
func Execute() error {
	defer closeStore()
	return rootCmd.Execute()
}

// initServices opens storage and config and wires the pipeline services.
// Tests preset the package variables; anything already set is kept.
func initServices() error {
	if runOrchestrator != nil && exclusionManager != nil {
		return nil
	}

	var err error
	if configStore == nil {
		configStore, err = file.NewConfigStore(configDir)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}
		configStore.LoadEnv()
	}

	if listingStore == nil || exclusionStore == nil || runLog == nil {
		store, err = sqlite.NewStore(dataDir)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		listingStore = store.ListingStore()
		exclusionStore = store.ExclusionStore()
		runLog = store.RunLog()
	}

	if notifier == nil {
		notifier = buildNotifier()
	}
	if exclusionManager == nil {
		exclusionManager = services.NewExclusionService(exclusionStore)
	}
	if runOrchestrator == nil {
		runOrchestrator = buildOrchestrator()
	}
	return nil
}

// buildNotifier returns nil when Telegram is not configured; the
// pipeline still records listings, it just cannot deliver.
func buildNotifier() driven.Notifier {
	token, chatID := configStore.TelegramCredentials()
	if token == "" || chatID == "" {
		logger.Warn("telegram is not configured; new listings will not be delivered")
		logger.Warn("run 'adwatch settings telegram' to configure")
		return nil
	}
	n, err := telegram.NewNotifier(telegram.Options{Token: token, ChatID: chatID})
	if err != nil {
		logger.Warn("telegram notifier unavailable: %v", err)
		return nil
	}
	return n
}

// buildOrchestrator assembles the pipeline from the current config. The
// watch daemon calls it again after a config reload.
func buildOrchestrator() driving.RunOrchestrator {
	source := configStore.Source()
	fetcher := yad2.NewClient(yad2.Options{
		BaseURL:   source.BaseURL,
		UserAgent: source.UserAgent,
		RateLimit: yad2.RateLimitConfig{RequestsPerSecond: source.RequestsPerSecond},
	})

	opts := services.DefaultOrchestratorOptions()
	settings := configStore.Notify()
	if settings.Concurrency > 0 {
		opts.NotifyConcurrency = settings.Concurrency
	}
	if settings.Attempts > 0 {
		opts.NotifyAttempts = settings.Attempts
	}
	if settings.RetryDelay > 0 {
		opts.NotifyRetryDelay = settings.RetryDelay
	}
	opts.NotifyRemovals = settings.Removals

	return services.NewOrchestrator(
		fetcher,
		services.NewDiffEngine(listingStore, exclusionStore),
		listingStore,
		runLog,
		notifier,
		configStore.Criteria(),
		opts,
	)
}

func closeStore() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}
}

// formatDuration renders run durations the way humans read them.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
