package segmenter

import (
	"context"
	"fmt"
	"log/slog"

	"overdub/internal/audio"
	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/profiler"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/stage"
	"overdub/internal/vad"
)

// Stage is the segmentation workflow handler. It reads the extracted
// audio, builds the segment timeline, profiles the speaker in each speech
// segment, and persists both manifests to the job workspace.
type Stage struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
}

// NewStage constructs the segmentation stage handler.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "segmentation"),
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
	job.InitProgress("Segmenting", "Preparing segmentation")

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))
	if !pipeline.ArtifactExists(ws.SourceAudioPath()) {
		return services.Wrap(services.ErrValidation, "segmentation", "locate audio",
			"Extracted audio missing; rerun extraction", nil)
	}
	logger.Info("starting segmentation", logging.String("audio_file", ws.SourceAudioPath()))
	return nil
}

func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))

	clip, err := audio.ReadWAV(ws.SourceAudioPath())
	if err != nil {
		return services.Wrap(services.ErrSegmentation, "segmentation", "read audio",
			"Could not read the extracted audio", err)
	}

	detector, err := vad.New(s.cfg.VAD, clip.SampleRate)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "segmentation", "init vad",
			"Voice activity detector could not be initialized; check the vad section", err)
	}
	defer detector.Close()

	job.SetProgress("Segmenting", fmt.Sprintf("Detecting speech with %s", detector.Name()), 10)
	s.persistProgress(ctx, logger, job)

	segments, err := New(s.cfg, detector, logger).Segment(ctx, clip)
	if err != nil {
		return services.Wrap(services.ErrSegmentation, "segmentation", "segment audio",
			"Segmentation failed", err)
	}
	if err := pipeline.SaveSegments(ws, segments); err != nil {
		return services.Wrap(services.ErrSegmentation, "segmentation", "save segments",
			"Could not persist the segment manifest", err)
	}

	speech := 0
	for _, segment := range segments {
		if segment.IsSpeech {
			speech++
		}
	}
	job.SegmentsTotal = speech
	job.SegmentsCompleted = 0
	job.SegmentsFailed = 0
	job.SetProgress("Segmenting", fmt.Sprintf("Profiling %d speech segments", speech), 60)
	s.persistProgress(ctx, logger, job)

	profiles, err := profiler.New(s.cfg, logger).Profile(ctx, clip, segments)
	if err != nil {
		return services.Wrap(services.ErrSegmentation, "segmentation", "profile speakers",
			"Speaker profiling failed", err)
	}
	if err := pipeline.SaveProfiles(ws, profiles); err != nil {
		return services.Wrap(services.ErrSegmentation, "segmentation", "save profiles",
			"Could not persist the speaker profiles", err)
	}

	job.SetProgressComplete("Segmenting",
		fmt.Sprintf("%d segments (%d speech)", len(segments), speech))
	logger.Info("segmentation complete",
		logging.Int(logging.FieldSegmentCount, len(segments)),
		logging.Int("speech_segments", speech),
		logging.String("vad_engine", detector.Name()),
	)
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	detector, err := vad.New(s.cfg.VAD, s.cfg.Audio.SampleRate)
	if err != nil {
		return stage.Unhealthy("segmentation", err.Error())
	}
	_ = detector.Close()
	return stage.Healthy("segmentation")
}

func (s *Stage) persistProgress(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateProgress(ctx, job); err != nil {
		logger.Debug("progress update failed", logging.Error(err))
	}
}
