package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"overdub/internal/audio"
	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/services"
)

// Assembler renders an aligned clip plan into one continuous waveform at
// the output sample rate.
type Assembler struct {
	rate   int
	strict bool
	logger *slog.Logger
}

// New builds an assembler from the audio and workflow configuration.
func New(cfg *config.Config, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{
		rate:   cfg.Audio.OutputSampleRate,
		strict: cfg.Workflow.ErrorMode == "strict",
		logger: logging.NewComponentLogger(logger, "assemble"),
	}
}

// Render places every aligned clip at its final position on a silent canvas.
// The canvas spans the source duration or the last clip's end, whichever is
// later, so the dubbed track never comes up shorter than the source. Gaps
// between clips stay silent.
func (a *Assembler) Render(ctx context.Context, clips []pipeline.AlignedClip, sourceDuration float64) (*audio.Clip, error) {
	total := sourceDuration
	for _, clip := range clips {
		if clip.FinalEnd > total {
			total = clip.FinalEnd
		}
	}
	frames := int(math.Round(total * float64(a.rate)))
	if frames < 0 {
		frames = 0
	}
	canvas := make([]float64, frames)

	placed := 0
	for _, clip := range clips {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTransient, "assembly", "render", "assembly cancelled", err)
		}
		wave, err := audio.ReadWAV(clip.Path)
		if err != nil {
			if a.strict {
				return nil, services.Wrap(services.ErrNotFound, "assembly", "read clip",
					fmt.Sprintf("segment %d clip is unreadable", clip.SegmentID), err)
			}
			logging.WarnWithContext(a.logger, "aligned clip unreadable, leaving silence", "assembly_gap",
				logging.Int("segment_id", clip.SegmentID),
				logging.String("path", clip.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "re-run the job to regenerate the missing clip"),
				logging.String(logging.FieldImpact, "this segment plays as silence in the dubbed track"),
			)
			continue
		}
		wave = audio.Resample(wave, a.rate)

		offset := int(math.Round(clip.FinalStart * float64(a.rate)))
		if offset < 0 {
			offset = 0
		}
		if end := offset + len(wave.Samples); end > len(canvas) {
			canvas = append(canvas, make([]float64, end-len(canvas))...)
		}
		copy(canvas[offset:], wave.Samples)
		placed++
	}

	a.logger.Info("track assembled",
		logging.Int("clips", placed),
		logging.Float64("duration_sec", float64(len(canvas))/float64(a.rate)),
		logging.Int("sample_rate", a.rate),
	)
	return &audio.Clip{Samples: canvas, SampleRate: a.rate}, nil
}

// RenderToFile renders the track and writes it to path as mono 16-bit PCM.
// Returns the written duration in seconds.
func (a *Assembler) RenderToFile(ctx context.Context, clips []pipeline.AlignedClip, sourceDuration float64, path string) (float64, error) {
	track, err := a.Render(ctx, clips, sourceDuration)
	if err != nil {
		return 0, err
	}
	if err := audio.WriteWAV(path, track); err != nil {
		return 0, services.Wrap(services.ErrValidation, "assembly", "write track", "cannot write assembled track", err)
	}
	return track.Duration().Seconds(), nil
}
