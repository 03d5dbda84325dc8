package vad

import (
	"math"
	"sort"

	"overdub/internal/audio"
	"overdub/internal/config"
)

const (
	energyWinSec = 0.020
	energyHopSec = 0.010

	// energyAbsoluteFloor is the RMS below which a frame can never count as
	// speech, regardless of the adaptive threshold (about -60 dBFS).
	energyAbsoluteFloor = 1e-3
)

// energyDetector classifies frames by RMS against an adaptive threshold
// placed between the recording's noise floor and its speech level.
type energyDetector struct {
	threshold    float64
	minSpeechMs  int
	minSilenceMs int
	sampleRate   int
}

func newEnergy(cfg config.VAD, sampleRate int) *energyDetector {
	return &energyDetector{
		threshold:    cfg.Threshold,
		minSpeechMs:  cfg.MinSpeechMs,
		minSilenceMs: cfg.MinSilenceMs,
		sampleRate:   sampleRate,
	}
}

func (d *energyDetector) Name() string { return "energy" }

func (d *energyDetector) Close() error { return nil }

func (d *energyDetector) Detect(samples []float64) ([]Span, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	frames := audio.FrameRMS(samples, d.sampleRate, energyWinSec, energyHopSec)
	if len(frames) == 0 {
		return nil, nil
	}

	noise := percentile(frames, 0.2)
	speech := percentile(frames, 0.8)
	cut := noise + (speech-noise)*d.threshold
	if speech-noise < 1e-4 {
		// Flat dynamics: a constant tone is all speech, a constant hiss all
		// noise. The absolute floor separates the two.
		cut = energyAbsoluteFloor
	}
	if cut < energyAbsoluteFloor {
		cut = energyAbsoluteFloor
	}

	flags := make([]bool, len(frames))
	for i, rms := range frames {
		flags[i] = rms > cut
	}

	duration := float64(len(samples)) / float64(d.sampleRate)
	spans := spansFromFlags(flags, energyHopSec)
	spans = mergeSpanGaps(spans, float64(d.minSilenceMs)/1000)
	spans = dropShortSpans(spans, float64(d.minSpeechMs)/1000)
	return clampSpans(spans, duration), nil
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(math.Round(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
