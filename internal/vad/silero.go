//go:build cgo

package vad

import (
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"

	"overdub/internal/config"
)

// sileroSpeechPadMs is a light fixed pad around detected speech; the
// segmenter applies the configurable keep_silence padding itself.
const sileroSpeechPadMs = 30

type sileroDetector struct {
	sd          *speech.Detector
	minSpeechMs int
}

func newSilero(cfg config.VAD, sampleRate int) (Detector, error) {
	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            cfg.ModelPath,
		SampleRate:           sampleRate,
		Threshold:            float32(cfg.Threshold),
		MinSilenceDurationMs: cfg.MinSilenceMs,
		SpeechPadMs:          sileroSpeechPadMs,
	})
	if err != nil {
		return nil, fmt.Errorf("silero vad: %w", err)
	}
	return &sileroDetector{sd: sd, minSpeechMs: cfg.MinSpeechMs}, nil
}

func (d *sileroDetector) Name() string { return "silero" }

func (d *sileroDetector) Close() error {
	if d.sd == nil {
		return nil
	}
	return d.sd.Destroy()
}

func (d *sileroDetector) Detect(samples []float64) ([]Span, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	pcm := make([]float32, len(samples))
	for i, s := range samples {
		pcm[i] = float32(s)
	}
	segments, err := d.sd.Detect(pcm)
	if err != nil {
		return nil, fmt.Errorf("silero vad detect: %w", err)
	}
	if err := d.sd.Reset(); err != nil {
		return nil, fmt.Errorf("silero vad reset: %w", err)
	}

	spans := make([]Span, 0, len(segments))
	for _, seg := range segments {
		spans = append(spans, Span{Start: seg.SpeechStartAt, End: seg.SpeechEndAt})
	}
	return dropShortSpans(spans, float64(d.minSpeechMs)/1000), nil
}
