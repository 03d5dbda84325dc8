package main

import (
	"context"
	"fmt"
	"log/slog"

	"overdub/internal/align"
	"overdub/internal/assemble"
	"overdub/internal/config"
	"overdub/internal/dubbing"
	"overdub/internal/extraction"
	"overdub/internal/mux"
	"overdub/internal/notifications"
	"overdub/internal/queue"
	"overdub/internal/segmenter"
	"overdub/internal/stage"
	"overdub/internal/stageexec"
	"overdub/internal/workflow"
)

// buildStageSet wires the six pipeline handlers the way serve and run both
// consume them.
func buildStageSet(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) (workflow.StageSet, error) {
	dubStage, err := dubbing.NewStage(cfg, store, logger)
	if err != nil {
		return workflow.StageSet{}, fmt.Errorf("configure dubbing engines: %w", err)
	}
	return workflow.StageSet{
		Extraction:   extraction.New(cfg, store, logger),
		Segmentation: segmenter.NewStage(cfg, store, logger),
		Dubbing:      dubStage,
		Alignment:    align.NewStage(cfg, store, logger),
		Assembly:     assemble.NewStage(cfg, store, logger),
		Mux:          mux.NewStageWithNotifier(cfg, store, logger, notifier),
	}, nil
}

type stageStep struct {
	name       string
	handler    stage.Handler
	start      queue.Status
	processing queue.Status
	done       queue.Status
}

func stagePlan(set workflow.StageSet) []stageStep {
	return []stageStep{
		{"extraction", set.Extraction, queue.StatusPending, queue.StatusExtracting, queue.StatusExtracted},
		{"segmentation", set.Segmentation, queue.StatusExtracted, queue.StatusSegmenting, queue.StatusSegmented},
		{"dubbing", set.Dubbing, queue.StatusSegmented, queue.StatusSynthesizing, queue.StatusSynthesized},
		{"alignment", set.Alignment, queue.StatusSynthesized, queue.StatusAligning, queue.StatusAligned},
		{"assembly", set.Assembly, queue.StatusAligned, queue.StatusAssembling, queue.StatusAssembled},
		{"mux", set.Mux, queue.StatusAssembled, queue.StatusMuxing, queue.StatusCompleted},
	}
}

// requeueJob rolls a failed or review job back to pending. Workspace
// artifacts survive, so completed stages are skipped on the rerun.
func requeueJob(ctx context.Context, store *queue.Store, job *queue.Job) (*queue.Job, error) {
	job.Status = queue.StatusPending
	job.NeedsReview = false
	job.ReviewReason = ""
	job.ErrorMessage = ""
	job.ProgressStage = "Retry requested"
	job.ProgressPercent = 0
	job.ProgressMessage = ""
	if err := store.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("requeue job %d: %w", job.ID, err)
	}
	return store.GetByID(ctx, job.ID)
}

// runJobToCompletion drives one job through every remaining stage
// synchronously, starting from its current status.
func runJobToCompletion(ctx context.Context, store *queue.Store, logger *slog.Logger, notifier notifications.Service, set workflow.StageSet, job *queue.Job) error {
	plan := stagePlan(set)
	start := -1
	for i, step := range plan {
		if step.start == job.Status {
			start = i
			break
		}
	}
	if start < 0 {
		return fmt.Errorf("job %d is not runnable from status %s", job.ID, job.Status)
	}

	for _, step := range plan[start:] {
		if err := stageexec.Run(ctx, stageexec.Options{
			Logger:     logger,
			Store:      store,
			Notifier:   notifier,
			Handler:    step.handler,
			StageName:  step.name,
			Processing: step.processing,
			Done:       step.done,
			Job:        job,
		}); err != nil {
			return err
		}
	}
	return nil
}
