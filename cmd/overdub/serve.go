package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/notifications"
	"overdub/internal/queue"
	"overdub/internal/staging"
	"overdub/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Process the queue until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runServe(cmd, cfg)
		},
	}
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	lockPath := filepath.Join(cfg.Paths.LogDir, "overdub.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another overdub serve instance holds %s", lockPath)
	}
	defer lock.Unlock()

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, logPath, err := newRunLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "overdub.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	// Interrupted runs leave jobs parked in processing statuses with no
	// live heartbeat; roll them back before the lanes start.
	if reset, err := store.ResetStuckProcessing(signalCtx); err != nil {
		logger.Warn("reset stuck jobs", logging.Error(err))
	} else if reset > 0 {
		logger.Info("reset stuck jobs from previous run", logging.Int64("count", reset))
	}

	if jobs, err := store.List(signalCtx); err != nil {
		logger.Warn("list jobs for workspace sweep", logging.Error(err))
	} else {
		active := make(map[int64]struct{}, len(jobs))
		for _, job := range jobs {
			active[job.ID] = struct{}{}
		}
		staging.CleanOrphaned(signalCtx, cfg.Paths.WorkingDir, active, logger)
	}

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	if err := manager.RunPreflightChecks(signalCtx, logger); err != nil {
		return err
	}

	set, err := buildStageSet(cfg, store, logger, notifier)
	if err != nil {
		return err
	}
	manager.ConfigureStages(set)

	if err := manager.Start(signalCtx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	logger.Info("overdub serving queue",
		logging.String("log_file", logPath),
		logging.String("database", cfg.Paths.WorkingDir),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving queue (log %s). Press Ctrl-C to stop.\n", logPath)

	<-signalCtx.Done()
	logger.Info("overdub shutting down")
	manager.Stop()
	return nil
}
