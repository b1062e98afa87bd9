package cli

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driving"
	"github.com/adwatch/adwatch/internal/logger"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on a schedule until interrupted",
	Long: `Runs the pipeline immediately and then on a cron schedule. Edits to
the config file are picked up without a restart. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule (default from config, every 30 minutes)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if runOrchestrator == nil {
		return errors.New("run service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The config watcher swaps the orchestrator under this mutex so a
	// reload never races a scheduled run.
	var mu sync.Mutex
	current := func() driving.RunOrchestrator {
		mu.Lock()
		defer mu.Unlock()
		return runOrchestrator
	}

	if configStore != nil {
		go func() {
			err := configStore.Watch(ctx, func() {
				mu.Lock()
				notifier = buildNotifier()
				runOrchestrator = buildOrchestrator()
				mu.Unlock()
				logger.Info("pipeline reconfigured")
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped: %v", err)
			}
		}()
	}

	schedule := watchSchedule
	if schedule == "" && configStore != nil {
		schedule = configStore.Schedule()
	}
	if schedule == "" {
		schedule = "*/30 * * * *"
	}

	runOnce := func() {
		record, err := current().Run(ctx)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			logger.Warn("skipping scheduled run, previous run still in progress")
		case err != nil:
			logger.Warn("run failed: %v", err)
		default:
			logger.Info("run completed: %d fetched, %d new, %d known, %d excluded",
				record.FetchedCount, record.NewCount, record.KnownCount, record.ExcludedCount)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, runOnce); err != nil {
		return errors.New("invalid schedule " + schedule + ": " + err.Error())
	}

	cmd.Printf("Watching on schedule %q, press Ctrl-C to stop.\n", schedule)
	runOnce()
	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()
	cmd.Println("\nStopping.")
	return nil
}
