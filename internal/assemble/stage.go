package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"overdub/internal/config"
	"overdub/internal/extraction"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/stage"
	"overdub/internal/subtitles"
)

// Stage is the assembly workflow handler. It renders the dubbed track from
// the aligned clips and emits the subtitle file alongside it.
type Stage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// NewStage constructs the assembly stage handler.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "assembly"),
	}
}

// SetLogger replaces the stage logger for the current request.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	job.InitProgress("Assembling", "Preparing assembly")

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))
	for _, artifact := range []string{ws.SegmentsPath(), ws.AlignedPath()} {
		if !pipeline.ArtifactExists(artifact) {
			return services.Wrap(services.ErrValidation, "assembly", "locate artifacts",
				"Alignment artifacts missing; rerun alignment", nil)
		}
	}
	return nil
}

func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))

	segments, err := pipeline.LoadSegments(ws)
	if err != nil {
		return stage.RequireArtifact(err, "assembly", "segments")
	}
	aligned, err := pipeline.LoadAligned(ws)
	if err != nil {
		return stage.RequireArtifact(err, "assembly", "aligned clips")
	}

	sourceDuration := sourceDurationSec(job, segments)

	job.SetProgress("Assembling", "Rendering dubbed track", 10)
	s.persistProgress(ctx, logger, job)

	trackPath := ws.DubbedTrackPath()
	duration, err := New(s.cfg, logger).RenderToFile(ctx, aligned, sourceDuration, trackPath)
	if err != nil {
		return err
	}
	job.DubbedAudioFile = trackPath

	job.SetProgress("Assembling", "Writing subtitles", 80)
	s.persistProgress(ctx, logger, job)

	subtitlePath, err := s.writeSubtitles(ws, aligned, sourceDuration, logger)
	if err != nil {
		return err
	}
	job.SubtitleFile = subtitlePath

	job.SetProgressComplete("Assembling",
		fmt.Sprintf("%.1fs dubbed track from %d clips", duration, len(aligned)))
	logger.Info("assembly complete",
		logging.Float64("duration_sec", duration),
		logging.Int("clips", len(aligned)),
		logging.Bool("subtitles", subtitlePath != ""),
	)
	return nil
}

// writeSubtitles emits the SRT file unless the format disables it or no
// cue carries text. Returns the written path, empty when skipped.
func (s *Stage) writeSubtitles(ws pipeline.Workspace, aligned []pipeline.AlignedClip, sourceDuration float64, logger *slog.Logger) (string, error) {
	format := strings.ToLower(strings.TrimSpace(s.cfg.Subtitles.Format))
	if format == "none" {
		logger.Info("subtitle generation disabled")
		return "", nil
	}

	translations, err := pipeline.LoadTranslations(ws)
	if err != nil {
		return "", stage.RequireArtifact(err, "assembly", "translations")
	}
	cues := subtitles.NewGenerator(s.cfg, logger).Generate(translations, aligned)
	if len(cues) == 0 {
		logger.Warn("no subtitle cues produced, skipping subtitle file")
		return "", nil
	}

	path := ws.SubtitlePath()
	if err := subtitles.WriteSRT(path, cues); err != nil {
		return "", services.Wrap(services.ErrValidation, "assembly", "write subtitles",
			"Could not write the subtitle file", err)
	}
	for _, issue := range subtitles.ValidateSRTContent(path, sourceDuration) {
		logger.Warn("subtitle validation issue", logging.String("issue", issue))
	}
	return path, nil
}

// sourceDurationSec prefers the probed container duration and falls back to
// the segmented timeline when probing never recorded one.
func sourceDurationSec(job *queue.Job, segments []pipeline.Segment) float64 {
	if meta := extraction.Metadata(job); meta.DurationSec > 0 {
		return meta.DurationSec
	}
	var end float64
	for _, segment := range segments {
		if segment.End > end {
			end = segment.End
		}
	}
	return end
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("assembly")
}

func (s *Stage) persistProgress(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateProgress(ctx, job); err != nil {
		logger.Debug("progress update failed", logging.Error(err))
	}
}
