package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"overdub/internal/config"
	"overdub/internal/fileutil"
	"overdub/internal/language"
	"overdub/internal/logging"
	"overdub/internal/notifications"
	"overdub/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var targetLang string
	var sourceLang string

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Dub a single video synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}
			info, err := os.Stat(source)
			if err != nil {
				return fmt.Errorf("inspect source %q: %w", source, err)
			}
			if info.IsDir() {
				return fmt.Errorf("source %q is a directory; pass a video file", source)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, logPath, err := newRunLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				fingerprint, err := fileutil.Fingerprint(source)
				if err != nil {
					return fmt.Errorf("fingerprint source: %w", err)
				}

				src := resolveLanguage(sourceLang, cfg.Translation.SourceLanguage)
				tgt := resolveLanguage(targetLang, cfg.Translation.TargetLanguage)

				job, err := resumableJob(cmd, store, fingerprint)
				if err != nil {
					return err
				}
				if job == nil {
					job, err = store.NewJob(signalCtx, source, fingerprint, src, tgt)
					if err != nil {
						return fmt.Errorf("queue job: %w", err)
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Dubbing %s into %s (job %d, log %s)\n",
					filepath.Base(source), language.DisplayName(tgt), job.ID, logPath)

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

	cmd.Flags().StringVar(&targetLang, "target-lang", "", "Target language code (defaults to [translation] target_language)")
	cmd.Flags().StringVar(&sourceLang, "source-lang", "", "Source language code or \"auto\"")
	return cmd
}

// resumableJob returns an existing unfinished job for the fingerprint so a
// rerun picks up surviving artifacts instead of queueing a duplicate.
func resumableJob(cmd *cobra.Command, store *queue.Store, fingerprint string) (*queue.Job, error) {
	existing, err := store.FindByFingerprint(cmd.Context(), fingerprint)
	if err != nil || existing == nil {
		return nil, err
	}
	switch existing.Status {
	case queue.StatusCompleted:
		return nil, nil
	case queue.StatusFailed, queue.StatusReview:
		fmt.Fprintf(cmd.OutOrStdout(), "Retrying job %d (was %s)\n", existing.ID, existing.Status)
		return requeueJob(cmd.Context(), store, existing)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Resuming job %d from status %s\n", existing.ID, existing.Status)
		return existing, nil
	}
}

func resolveLanguage(flag, fallback string) string {
	trimmed := strings.TrimSpace(flag)
	if trimmed == "" {
		return fallback
	}
	if language.IsAuto(trimmed) {
		return language.Auto
	}
	if iso := language.ToISO2(trimmed); iso != "" {
		return iso
	}
	return strings.ToLower(trimmed)
}

// newRunLogger writes a per-run log file alongside console output and
// prunes expired run logs.
func newRunLogger(cfg *config.Config) (*slog.Logger, string, error) {
	runID := time.Now().UTC().Format("20060102T150405")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("overdub-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return nil, "", err
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "overdub-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "jobs"), Pattern: "*.log"},
	)
	return logger, logPath, nil
}
