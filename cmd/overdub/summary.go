package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"overdub/internal/config"
	"overdub/internal/language"
	"overdub/internal/pipeline"
	"overdub/internal/queue"
)

// printJobSummary renders the per-segment speech report for a finished
// job. Warnings keep the zero exit code; they are surfaced in the table
// and the trailing counts line.
func printJobSummary(cmd *cobra.Command, cfg *config.Config, job *queue.Job) {
	out := cmd.OutOrStdout()

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(cfg.Paths.WorkingDir))
	summary, err := pipeline.LoadSummary(ws)
	if err != nil {
		fmt.Fprintf(out, "Completed job %d (no summary available: %v)\n", job.ID, err)
		return
	}

	fmt.Fprintf(out, "Dub complete: %s\n", summary.OutputPath)
	if summary.SubtitlePath != "" {
		fmt.Fprintf(out, "Subtitles:    %s\n", summary.SubtitlePath)
	}
	fmt.Fprintf(out, "Languages:    %s -> %s\n",
		language.DisplayName(summary.SourceLanguage), language.DisplayName(summary.TargetLanguage))

	if len(summary.Segments) > 0 {
		rows := make([][]string, 0, len(summary.Segments))
		for _, segment := range summary.Segments {
			status := "ok"
			switch {
			case segment.Failed:
				status = "failed"
			case segment.DriftWarning:
				status = "drift"
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", segment.SegmentID),
				fmt.Sprintf("%.1fs-%.1fs", segment.Start, segment.End),
				string(segment.Gender),
				segment.VoiceType,
				segment.VoiceID,
				fmt.Sprintf("%.2fx", segment.AppliedRate),
				fmt.Sprintf("%+.2fs", segment.ShiftSec),
				status,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Seg", "Span", "Gender", "Voice Type", "Voice", "Rate", "Shift", "Status"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}

	fmt.Fprintf(out, "Speech segments: %d/%d", summary.SpeechSegments, summary.SegmentsTotal)
	if len(summary.FailedSegments) > 0 {
		fmt.Fprintf(out, ", failed: %d", len(summary.FailedSegments))
	}
	if len(summary.DriftWarnings) > 0 {
		fmt.Fprintf(out, ", drift warnings: %d (total drift %.2fs)", len(summary.DriftWarnings), summary.TotalDriftSec)
	}
	fmt.Fprintln(out)
}

// printFailureReport points the operator at the artifacts a failed run
// left behind.
func printFailureReport(cmd *cobra.Command, cfg *config.Config, job *queue.Job) {
	out := cmd.ErrOrStderr()
	ws := pipeline.NewWorkspace(job.WorkspaceRoot(cfg.Paths.WorkingDir))

	fmt.Fprintf(out, "Job %d did not complete (status %s)\n", job.ID, job.Status)
	if msg := strings.TrimSpace(job.ErrorMessage); msg != "" {
		fmt.Fprintf(out, "Error: %s\n", msg)
	}
	if reason := strings.TrimSpace(job.ReviewReason); reason != "" {
		fmt.Fprintf(out, "Review reason: %s\n", reason)
	}
	fmt.Fprintf(out, "Workspace: %s\n", ws.Root)
	if job.JobLogPath != "" {
		fmt.Fprintf(out, "Job log:   %s\n", job.JobLogPath)
	}
	fmt.Fprintf(out, "Retry with: overdub resume %d\n", job.ID)
}
