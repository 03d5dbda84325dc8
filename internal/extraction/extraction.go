// Package extraction pulls the source audio track out of the input video
// and lays down the job workspace the rest of the pipeline builds on.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/media/ffmpegcmd"
	"overdub/internal/media/ffprobe"
	"overdub/internal/pipeline"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/stage"
)

// probeFunc is swapped in tests.
var probe = ffprobe.Inspect

// SourceMetadata is the probe summary persisted on the job for later
// stages and the status CLI.
type SourceMetadata struct {
	DurationSec float64 `json:"duration_sec"`
	HasVideo    bool    `json:"has_video"`
	AudioCodec  string  `json:"audio_codec,omitempty"`
	AudioRate   int     `json:"audio_rate,omitempty"`
	Channels    int     `json:"channels,omitempty"`
}

// Extractor is the first workflow stage: it probes the source container,
// rejects inputs without an audio stream, and extracts mono PCM at the
// analysis sample rate into the job workspace.
type Extractor struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	ffmpeg *ffmpegcmd.FFmpeg
}

// New constructs the extraction stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Extractor {
	stageLogger := logging.NewComponentLogger(logger, "extraction")
	return &Extractor{
		cfg:    cfg,
		store:  store,
		logger: stageLogger,
		ffmpeg: ffmpegcmd.New(cfg.FFmpegBinary(), stageLogger),
	}
}

// SetLogger replaces the stage logger for the current request.
func (e *Extractor) SetLogger(logger *slog.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

func (e *Extractor) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, e.logger)
	job.InitProgress("Extracting", "Preparing audio extraction")

	if _, err := os.Stat(job.SourcePath); err != nil {
		return services.Wrap(services.ErrNotFound, "extraction", "stat source",
			"Source file is missing or unreadable; check the queued path", err)
	}

	ws := pipeline.NewWorkspace(job.WorkspaceRoot(e.cfg.Paths.WorkingDir))
	if err := ws.Ensure(); err != nil {
		return services.Wrap(services.ErrConfiguration, "extraction", "create workspace",
			"Could not create the job workspace; check working_dir permissions", err)
	}

	logger.Info("starting extraction",
		logging.String("source_file", strings.TrimSpace(job.SourcePath)),
		logging.String("workspace", ws.Root),
	)
	return nil
}

func (e *Extractor) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, e.logger)
	ws := pipeline.NewWorkspace(job.WorkspaceRoot(e.cfg.Paths.WorkingDir))

	result, err := probe(ctx, e.cfg.FFprobeBinary(), job.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "extraction", "probe source",
			"ffprobe could not inspect the source file", err)
	}
	audioStream, ok := result.FirstAudioStream()
	if !ok {
		return services.Wrap(services.ErrValidation, "extraction", "probe source",
			"Source file carries no audio stream to dub", nil)
	}

	meta := SourceMetadata{
		DurationSec: result.DurationSecondsOrStream(),
		HasVideo:    result.HasVideo(),
		AudioCodec:  audioStream.CodecName,
		AudioRate:   audioStream.SampleRateHz(),
		Channels:    audioStream.Channels,
	}
	if raw, err := json.Marshal(meta); err == nil {
		job.MetadataJSON = string(raw)
	}
	if !meta.HasVideo {
		logger.Warn("source has no video stream; mux will be skipped",
			logging.String(logging.FieldEventType, "source_audio_only"),
			logging.String(logging.FieldErrorHint, "queue a video file if a dubbed video is expected"),
			logging.String(logging.FieldImpact, "output will be a dubbed audio track only"),
		)
	}

	if pipeline.ArtifactExists(ws.SourceAudioPath()) {
		logger.Info("reusing extracted audio from previous attempt",
			logging.String("audio_file", ws.SourceAudioPath()),
		)
	} else {
		job.SetProgress("Extracting", fmt.Sprintf("Extracting audio stream %d", audioStream.Index), 25)
		e.persistProgress(ctx, logger, job)
		if err := e.ffmpeg.ExtractAudio(ctx, job.SourcePath, audioStream.Index, e.cfg.Audio.SampleRate, ws.SourceAudioPath()); err != nil {
			return services.Wrap(services.ErrExternalTool, "extraction", "extract audio",
				"ffmpeg failed to extract the audio track", err)
		}
	}

	job.AudioFile = ws.SourceAudioPath()
	job.SetProgressComplete("Extracting", fmt.Sprintf("Audio extracted (%.1fs source)", meta.DurationSec))
	logger.Info("extraction complete",
		logging.String("audio_file", job.AudioFile),
		logging.Float64("duration_sec", meta.DurationSec),
		logging.Bool("has_video", meta.HasVideo),
	)
	return nil
}

func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range []string{e.cfg.FFmpegBinary(), e.cfg.FFprobeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy("extraction", fmt.Sprintf("%s not found on PATH", filepath.Base(binary)))
		}
	}
	return stage.Healthy("extraction")
}

func (e *Extractor) persistProgress(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateProgress(ctx, job); err != nil {
		logger.Debug("progress update failed", logging.Error(err))
	}
}

// Metadata decodes the probe summary persisted on a job. Jobs queued by
// older versions may carry none; callers treat the zero value as unknown.
func Metadata(job *queue.Job) SourceMetadata {
	var meta SourceMetadata
	if job == nil || strings.TrimSpace(job.MetadataJSON) == "" {
		return meta
	}
	_ = json.Unmarshal([]byte(job.MetadataJSON), &meta)
	return meta
}
