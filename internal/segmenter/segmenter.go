package segmenter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"overdub/internal/audio"
	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/services"
	"overdub/internal/vad"
)

// Segmenter splits continuous audio into a full-timeline list of speech and
// silence segments without cutting through detected speech.
type Segmenter struct {
	cfg      config.Segmentation
	rate     int
	detector vad.Detector
	logger   *slog.Logger
}

// New builds a segmenter around the configured VAD detector. The detector
// must have been constructed for cfg.Audio.SampleRate.
func New(cfg *config.Config, detector vad.Detector, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Segmenter{
		cfg:      cfg.Segmentation,
		rate:     cfg.Audio.SampleRate,
		detector: detector,
		logger:   logging.NewComponentLogger(logger, "segmenter"),
	}
}

// Segment scans the clip in overlapping windows and returns ordered,
// non-overlapping segments whose union covers the whole input. Speech
// crossing a window boundary is reconciled into a single segment. An empty
// clip yields an empty list; a sample-rate mismatch against the
// configuration is a configuration error.
func (s *Segmenter) Segment(ctx context.Context, clip *audio.Clip) ([]pipeline.Segment, error) {
	if clip == nil || clip.Frames() == 0 {
		return []pipeline.Segment{}, nil
	}
	if clip.SampleRate != s.rate {
		return nil, services.Wrap(services.ErrConfiguration, "segmentation", "validate input",
			fmt.Sprintf("audio sample rate %d does not match configured rate %d", clip.SampleRate, s.rate), nil)
	}

	duration := float64(clip.Frames()) / float64(clip.SampleRate)
	windows := buildWindows(duration, s.cfg.ChunkDurationSec, s.cfg.OverlapSec)
	rec := &reconciler{minSilence: s.cfg.MinSilenceSec}

	for i, win := range windows {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTransient, "segmentation", "window scan",
				fmt.Sprintf("cancelled at window %d of %d", i+1, len(windows)), err)
		}
		slice := clip.Slice(secondsToDuration(win.start), secondsToDuration(win.end))
		spans, err := s.detector.Detect(slice.Samples)
		if err != nil {
			if s.cfg.FallbackChunking {
				logging.WarnWithContext(s.logger, "voice activity detection failed, using fixed chunking", "vad_fallback",
					logging.String("detector", s.detector.Name()),
					logging.String(logging.FieldErrorHint, "check the configured vad engine and model path"),
					logging.String(logging.FieldImpact, "segments fall on fixed boundaries and may cut words"),
					logging.Error(err),
				)
				return fixedChunkTimeline(duration, s.cfg.ChunkDurationSec), nil
			}
			return nil, services.Wrap(services.ErrSegmentation, "segmentation", "voice activity detection",
				fmt.Sprintf("detector %s failed", s.detector.Name()), err)
		}
		for j := range spans {
			spans[j].Start += win.start
			spans[j].End += win.start
		}
		spans = trimSpanEdges(slice.Samples, s.rate, win.start, spans, s.cfg.SilenceThresholdDB)
		rec.add(win, spans)
	}

	speech := mergeGaps(rec.spans, s.cfg.MinSilenceSec)
	speech = padSpans(speech, s.cfg.KeepSilenceSec, duration)
	speech = demoteShortSpans(speech, s.cfg.MinSegmentSec)
	segments := buildTimeline(speech, duration)

	speechCount := 0
	for _, segment := range segments {
		if segment.IsSpeech {
			speechCount++
		}
	}
	s.logger.Info("segmentation complete",
		logging.Float64("duration_sec", duration),
		logging.Int("windows", len(windows)),
		logging.Int("segments", len(segments)),
		logging.Int("speech_segments", speechCount),
	)
	return segments, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
