package mux

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"overdub/internal/config"
	"overdub/internal/extraction"
	"overdub/internal/fileutil"
	"overdub/internal/language"
	"overdub/internal/logging"
	"overdub/internal/media/ffmpegcmd"
	"overdub/internal/notifications"
	"overdub/internal/organizer"
	"overdub/internal/pipeline"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/stage"
	"overdub/internal/voice"
)

// Stage is the final workflow handler. It muxes the dubbed track back into
// the source container, places the result in the output directory, and
// writes the job summary.
type Stage struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	ffmpeg   *ffmpegcmd.FFmpeg
	org      *organizer.Organizer
	notifier notifications.Service
	now      func() time.Time
}

// NewStage constructs the mux stage handler.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Stage {
	return NewStageWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewStageWithNotifier allows injecting the notifier (used in tests).
func NewStageWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Stage {
	stageLogger := logging.NewComponentLogger(logger, "mux")
	return &Stage{
		cfg:      cfg,
		store:    store,
		logger:   stageLogger,
		ffmpeg:   ffmpegcmd.New(cfg.FFmpegBinary(), stageLogger),
		org:      organizer.New(cfg, stageLogger),
		notifier: notifier,
		now:      time.Now,
	}
}

// SetLogger replaces the stage logger for the current request.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Stage) Prepare(ctx context.Context, job *queue.Job) error {
	job.InitProgress("Muxing", "Preparing final mux")

	if job.DubbedAudioFile == "" || !pipeline.ArtifactExists(job.DubbedAudioFile) {
		return services.Wrap(services.ErrValidation, "muxing", "locate dubbed track",
			"Dubbed track missing; rerun assembly", nil)
	}
	if s.cfg.Subtitles.BurnIn && job.SubtitleFile == "" {
		return services.Wrap(services.ErrConfiguration, "muxing", "validate subtitles",
			"Subtitle burn-in is enabled but the job produced no subtitle file", nil)
	}
	return nil
}

func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	ws := pipeline.NewWorkspace(job.WorkspaceRoot(s.cfg.Paths.WorkingDir))
	meta := extraction.Metadata(job)

	job.SetProgress("Muxing", "Writing final container", 10)
	s.persistProgress(ctx, logger, job)

	rendered, err := s.renderOutput(ctx, ws, job, meta, logger)
	if err != nil {
		return err
	}

	job.SetProgress("Muxing", "Placing output", 70)
	s.persistProgress(ctx, logger, job)

	final, err := s.org.Place(job, rendered, job.SubtitleFile)
	if err != nil {
		return err
	}
	job.FinalFile = final

	summary, err := s.writeSummary(ws, job, final)
	if err != nil {
		return err
	}

	job.SetProgressComplete("Muxing", fmt.Sprintf("Output ready: %s", filepath.Base(final)))
	logger.Info("mux complete",
		logging.String("output", final),
		logging.Int("failed_segments", len(summary.FailedSegments)),
		logging.Int("drift_warnings", len(summary.DriftWarnings)),
	)
	s.notifyComplete(ctx, logger, job, summary)
	return nil
}

// renderOutput produces the file handed to the organizer. Video sources get
// the full container mux; audio-only sources ship the dubbed track as is.
func (s *Stage) renderOutput(ctx context.Context, ws pipeline.Workspace, job *queue.Job, meta extraction.SourceMetadata, logger *slog.Logger) (string, error) {
	if !meta.HasVideo {
		// The organizer moves its input, so hand it a copy and keep
		// dubbed.wav in the workspace.
		logger.Info("source has no video stream, skipping container mux")
		output := filepath.Join(ws.Root, "output.wav")
		if err := fileutil.CopyFile(job.DubbedAudioFile, output); err != nil {
			return "", services.Wrap(services.ErrMux, "muxing", "stage audio output",
				"Could not stage the dubbed track for placement", err)
		}
		return output, nil
	}

	output := filepath.Join(ws.Root, "output"+filepath.Ext(job.SourcePath))
	req := ffmpegcmd.MuxRequest{
		VideoPath:         job.SourcePath,
		DubbedAudio:       job.DubbedAudioFile,
		SubtitlePath:      job.SubtitleFile,
		OutputPath:        output,
		KeepOriginalAudio: s.cfg.Mux.KeepOriginalAudio,
		OriginalVolume:    s.cfg.Mux.OriginalVolume,
		BurnSubtitles:     s.cfg.Subtitles.BurnIn,
		VideoCodec:        s.cfg.Mux.VideoCodec,
		CRF:               s.cfg.Mux.CRF,
		Preset:            s.cfg.Mux.Preset,
		AudioCodec:        s.cfg.Mux.AudioCodec,
		AudioBitrate:      s.cfg.Mux.AudioBitrate,
	}
	if err := s.ffmpeg.Mux(ctx, req); err != nil {
		return "", services.Wrap(services.ErrMux, "muxing", "mux container",
			"ffmpeg could not assemble the final container", err)
	}
	return output, nil
}

// writeSummary assembles the per-job report from the workspace manifests
// and persists it as summary.json.
func (s *Stage) writeSummary(ws pipeline.Workspace, job *queue.Job, finalPath string) (pipeline.Summary, error) {
	summary := pipeline.Summary{
		JobID:          job.ID,
		SourcePath:     job.SourcePath,
		OutputPath:     finalPath,
		SubtitlePath:   job.SubtitleFile,
		SourceLanguage: job.SourceLanguage,
		TargetLanguage: job.TargetLanguage,
		CompletedAt:    s.now().UTC(),
	}

	segments, err := pipeline.LoadSegments(ws)
	if err != nil {
		return summary, stage.RequireArtifact(err, "muxing", "segments")
	}
	summary.SegmentsTotal = len(segments)

	profiles, _ := pipeline.LoadProfiles(ws)
	profileByID := make(map[int]pipeline.Profile, len(profiles))
	for _, profile := range profiles {
		profileByID[profile.SegmentID] = profile
	}
	clips, _ := pipeline.LoadClips(ws)
	clipByID := make(map[int]pipeline.Clip, len(clips))
	for _, clip := range clips {
		clipByID[clip.SegmentID] = clip
	}
	aligned, _ := pipeline.LoadAligned(ws)
	alignedByID := make(map[int]pipeline.AlignedClip, len(aligned))
	for _, record := range aligned {
		alignedByID[record.SegmentID] = record
		summary.TotalDriftSec += record.ShiftSec
	}

	for _, segment := range segments {
		if !segment.IsSpeech {
			continue
		}
		summary.SpeechSegments++
		report := pipeline.SegmentReport{
			SegmentID: segment.ID,
			Start:     segment.Start,
			End:       segment.End,
		}
		if profile, ok := profileByID[segment.ID]; ok {
			report.Gender = profile.Gender
			report.PitchHz = profile.PitchHz
			report.VoiceType = profile.VoiceType
			if report.VoiceType == "" {
				report.VoiceType = voice.TypeFromPitch(profile.Gender, profile.PitchHz)
			}
		}
		if clip, ok := clipByID[segment.ID]; ok {
			report.VoiceID = clip.VoiceID
			report.Failed = clip.Failed
			report.Error = clip.Error
			if clip.Failed {
				summary.FailedSegments = append(summary.FailedSegments, segment.ID)
			}
		}
		if record, ok := alignedByID[segment.ID]; ok {
			report.AppliedRate = record.AppliedRate
			report.ShiftSec = record.ShiftSec
			if record.DriftWarning {
				report.DriftWarning = true
				summary.DriftWarnings = append(summary.DriftWarnings, segment.ID)
			}
		}
		summary.Segments = append(summary.Segments, report)
	}

	if err := pipeline.SaveSummary(ws, summary); err != nil {
		return summary, services.Wrap(services.ErrMux, "muxing", "write summary",
			"Could not persist the job summary", err)
	}
	return summary, nil
}

func (s *Stage) notifyComplete(ctx context.Context, logger *slog.Logger, job *queue.Job, summary pipeline.Summary) {
	if s.notifier == nil {
		return
	}
	payload := notifications.Payload{
		"title":    filepath.Base(job.FinalFile),
		"output":   job.FinalFile,
		"language": language.DisplayName(job.TargetLanguage),
	}
	if summary.HasWarnings() {
		payload["warnings"] = fmt.Sprintf("%d failed segment(s), %d drift warning(s)",
			len(summary.FailedSegments), len(summary.DriftWarnings))
	}
	if err := s.notifier.Publish(ctx, notifications.EventJobComplete, payload); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(s.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy("mux", fmt.Sprintf("%s not found on PATH", filepath.Base(s.cfg.FFmpegBinary())))
	}
	return stage.Healthy("mux")
}

func (s *Stage) persistProgress(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if s.store == nil {
		return
	}
	if err := s.store.UpdateProgress(ctx, job); err != nil {
		logger.Debug("progress update failed", logging.Error(err))
	}
}
