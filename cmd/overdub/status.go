package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"overdub/internal/config"
	"overdub/internal/preflight"
	"overdub/internal/queue"
	"overdub/internal/staging"
)

type statusReport struct {
	ConfigPath     string              `json:"config_path"`
	OutputDir      string              `json:"output_dir"`
	WorkspaceBytes int64               `json:"workspace_bytes"`
	Queue          map[string]int      `json:"queue"`
	Checks         []statusCheckRecord `json:"checks"`
	Processing     []statusJobRecord   `json:"processing,omitempty"`
}

type statusCheckRecord struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type statusJobRecord struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Stage    string  `json:"stage"`
	Percent  float64 `json:"percent"`
	Message  string  `json:"message"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				report, err := buildStatusReport(cmd, ctx, cfg, store)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				renderStatusReport(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func buildStatusReport(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, store *queue.Store) (statusReport, error) {
	report := statusReport{OutputDir: cfg.Paths.OutputDir}

	if _, path, _, err := config.Load(ctx.configPath()); err == nil {
		report.ConfigPath = path
	}
	if usage, err := staging.DiskUsage(cfg.Paths.WorkingDir); err == nil {
		report.WorkspaceBytes = usage
	}

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return report, err
	}
	report.Queue = make(map[string]int, len(stats))
	for status, count := range stats {
		if count > 0 {
			report.Queue[string(status)] = count
		}
	}

	for _, result := range preflight.RunAll(cmd.Context(), cfg) {
		report.Checks = append(report.Checks, statusCheckRecord{
			Name:   result.Name,
			Passed: result.Passed,
			Detail: result.Detail,
		})
	}

	jobs, err := store.List(cmd.Context())
	if err != nil {
		return report, err
	}
	for _, job := range jobs {
		if !job.IsProcessing() {
			continue
		}
		report.Processing = append(report.Processing, statusJobRecord{
			ID:      job.ID,
			Title:   job.Title,
			Status:  string(job.Status),
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		})
	}
	return report, nil
}

func renderStatusReport(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	tty := isatty.IsTerminal(os.Stdout.Fd())

	if report.ConfigPath != "" {
		fmt.Fprintf(out, "Config: %s\n", report.ConfigPath)
	}
	fmt.Fprintf(out, "Output: %s\n", report.OutputDir)
	fmt.Fprintf(out, "Workspaces: %.1f MiB\n", float64(report.WorkspaceBytes)/(1<<20))

	checkRows := make([][]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		mark := "ok"
		if !check.Passed {
			mark = "FAIL"
			if tty {
				mark = "\x1b[31mFAIL\x1b[0m"
			}
		}
		checkRows = append(checkRows, []string{check.Name, mark, check.Detail})
	}
	if len(checkRows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Check", "State", "Detail"},
			checkRows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft},
		))
	}

	if len(report.Queue) == 0 {
		fmt.Fprintln(out, "Queue is empty")
	} else {
		rows := make([][]string, 0, len(report.Queue))
		for _, status := range queue.AllStatuses() {
			if count, ok := report.Queue[string(status)]; ok {
				rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
			}
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Status", "Count"},
			rows,
			[]columnAlignment{alignLeft, alignRight},
		))
	}

	for _, job := range report.Processing {
		fmt.Fprintf(out, "Job %d (%s): %s %.0f%% %s\n", job.ID, job.Title, job.Stage, job.Percent, job.Message)
	}
}
