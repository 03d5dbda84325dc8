package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"overdub/internal/config"
	"overdub/internal/notifications"
	"overdub/internal/queue"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Re-run a failed or interrupted job from its last completed stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				job, err := store.GetByID(signalCtx, jobID)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", jobID)
				}

				switch job.Status {
				case queue.StatusCompleted:
					fmt.Fprintf(cmd.OutOrStdout(), "Job %d already completed\n", job.ID)
					printJobSummary(cmd, cfg, job)
					return nil
				case queue.StatusFailed, queue.StatusReview:
					job, err = requeueJob(signalCtx, store, job)
					if err != nil {
						return err
					}
				}
				if job.IsProcessing() {
					// A crashed run left it mid-stage; roll it back first.
					if _, err := store.ResetStuckProcessing(signalCtx); err != nil {
						return fmt.Errorf("reset stuck job %d: %w", job.ID, err)
					}
					job, err = store.GetByID(signalCtx, job.ID)
					if err != nil {
						return err
					}
				}

				logger, logPath, err := newRunLogger(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resuming job %d from status %s (log %s)\n",
					job.ID, job.Status, logPath)

				notifier := notifications.NewService(cfg)
				set, err := buildStageSet(cfg, store, logger, notifier)
				if err != nil {
					return err
				}
				if err := runJobToCompletion(signalCtx, store, logger, notifier, set, job); err != nil {
					printFailureReport(cmd, cfg, job)
					return err
				}
				printJobSummary(cmd, cfg, job)
				return nil
			})
		},
	}
}
