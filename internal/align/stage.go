package align

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"overdub/internal/config"
	"overdub/internal/fileutil"
	"overdub/internal/logging"
	"overdub/internal/media/ffmpegcmd"
	"overdub/internal/pipeline"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/stage"
)

// rateEpsilon is the applied-rate delta below which a clip is copied
// instead of run through atempo.
const rateEpsilon = 1e-3

// Stage is the alignment workflow handler. It plans the timeline fit for
// every synthesized clip, applies the planned rate with ffmpeg, and
// persists the aligned manifest. A sync failure still persists the partial
// plan so an operator can inspect how far alignment got.
type Stage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	ffmpeg *ffmpegcmd.FFmpeg
}

// NewStage constructs the alignment stage handler.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Stage {
	stageLogger := logging.NewComponentLogger(logger, "alignment")
	return &Stage{
		cfg:    cfg,
		store:  store,
		logger: stageLogger,
		ffmpeg: ffmpegcmd.New(cfg.FFmpegBinary(), stageLogger),
	}
}

// SetLogger replaces the stage logger for the current request.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	job.InitProgress("Aligning", "Preparing alignment")

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))
	for _, artifact := range []string{ws.SegmentsPath(), ws.ProfilesPath(), ws.ClipsPath()} {
		if !pipeline.ArtifactExists(artifact) {
			return services.Wrap(services.ErrValidation, "alignment", "locate artifacts",
				"Dubbing artifacts missing; rerun dubbing", nil)
		}
	}
	if err := os.MkdirAll(ws.AlignedDir(), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "alignment", "create aligned dir",
			"Could not create the aligned clips directory", err)
	}
	logger.Info("starting alignment",
		logging.Float64("min_rate", s.cfg.Alignment.MinRate),
		logging.Float64("max_rate", s.cfg.Alignment.MaxRate),
		logging.Float64("drift_tolerance_sec", s.cfg.Alignment.DriftToleranceSec),
	)
	return nil
}

func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))

	segments, err := pipeline.LoadSegments(ws)
	if err != nil {
		return stage.RequireArtifact(err, "alignment", "segments")
	}
	profiles, err := pipeline.LoadProfiles(ws)
	if err != nil {
		return stage.RequireArtifact(err, "alignment", "profiles")
	}
	clips, err := pipeline.LoadClips(ws)
	if err != nil {
		return stage.RequireArtifact(err, "alignment", "clips")
	}

	result, planErr := New(s.cfg, logger).Plan(segments, profiles, clips)
	if planErr != nil && result == nil {
		return planErr
	}

	aligned := make([]pipeline.AlignedClip, 0, len(result.Clips))
	warnings := 0
	for i, record := range result.Clips {
		if err := ctx.Err(); err != nil {
			return err
		}
		dest := ws.AlignedClipPath(record.SegmentID)
		if err := s.renderClip(ctx, record, dest); err != nil {
			return services.Wrap(services.ErrExternalTool, "alignment", "stretch clip",
				fmt.Sprintf("ffmpeg failed to adjust segment %d", record.SegmentID), err)
		}
		record.Path = dest
		if record.DriftWarning {
			warnings++
		}
		aligned = append(aligned, record)

		job.SetProgress("Aligning",
			fmt.Sprintf("Clip %d/%d", i+1, len(result.Clips)),
			float64(i+1)/float64(len(result.Clips))*100)
		s.persistProgress(ctx, logger, job)
	}

	if err := pipeline.SaveAligned(ws, aligned); err != nil {
		return services.Wrap(services.ErrSync, "alignment", "save aligned",
			"Could not persist the aligned manifest", err)
	}
	job.DriftWarnings = warnings

	if planErr != nil {
		// The partial plan is on disk for inspection; the job still fails.
		return planErr
	}

	job.SetProgressComplete("Aligning",
		fmt.Sprintf("%d clips aligned, %.2fs total drift", len(aligned), result.TotalDriftSec))
	logger.Info("alignment complete",
		logging.Int("clips", len(aligned)),
		logging.Int("drift_warnings", warnings),
		logging.Float64("total_drift_sec", result.TotalDriftSec),
	)
	return nil
}

// renderClip materializes one aligned clip: rate-adjusted through atempo
// when the plan calls for it, copied through otherwise.
func (s *Stage) renderClip(ctx context.Context, record pipeline.AlignedClip, dest string) error {
	if math.Abs(record.AppliedRate-1) <= rateEpsilon {
		return fileutil.CopyFile(record.Path, dest)
	}
	return s.ffmpeg.ChangeTempo(ctx, record.Path, record.AppliedRate, dest)
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(s.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy("alignment", fmt.Sprintf("%s not found on PATH", filepath.Base(s.cfg.FFmpegBinary())))
	}
	return stage.Healthy("alignment")
}

func (s *Stage) persistProgress(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateProgress(ctx, job); err != nil {
		logger.Debug("progress update failed", logging.Error(err))
	}
}
