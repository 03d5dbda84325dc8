package vad

import (
	"fmt"
	"strings"

	"overdub/internal/config"
)

// Span marks a run of detected speech in seconds from the start of the
// analyzed audio.
type Span struct {
	Start float64
	End   float64
}

// Duration returns the span length in seconds.
func (s Span) Duration() float64 {
	return s.End - s.Start
}

// Detector locates speech spans in mono PCM at the rate it was built for.
type Detector interface {
	Detect(samples []float64) ([]Span, error)
	Name() string
	Close() error
}

// New builds the configured detector backend for the given analysis sample
// rate. The energy backend is pure Go; webrtc and silero need cgo and fail
// construction without it.
func New(cfg config.VAD, sampleRate int) (Detector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("vad: sample rate must be positive, got %d", sampleRate)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "energy":
		return newEnergy(cfg, sampleRate), nil
	case "webrtc":
		return newWebRTC(cfg, sampleRate)
	case "silero":
		return newSilero(cfg, sampleRate)
	default:
		return nil, fmt.Errorf("vad: unknown engine %q", cfg.Engine)
	}
}

// spansFromFlags converts per-frame speech decisions into spans. Each frame
// covers frameSec seconds starting at index*frameSec.
func spansFromFlags(flags []bool, frameSec float64) []Span {
	var spans []Span
	open := false
	var start float64
	for i, speech := range flags {
		at := float64(i) * frameSec
		switch {
		case speech && !open:
			open = true
			start = at
		case !speech && open:
			open = false
			spans = append(spans, Span{Start: start, End: at})
		}
	}
	if open {
		spans = append(spans, Span{Start: start, End: float64(len(flags)) * frameSec})
	}
	return spans
}

// mergeSpanGaps joins consecutive spans separated by less than maxGapSec.
func mergeSpanGaps(spans []Span, maxGapSec float64) []Span {
	if len(spans) < 2 {
		return spans
	}
	merged := []Span{spans[0]}
	for _, span := range spans[1:] {
		last := &merged[len(merged)-1]
		if span.Start-last.End < maxGapSec {
			if span.End > last.End {
				last.End = span.End
			}
			continue
		}
		merged = append(merged, span)
	}
	return merged
}

// dropShortSpans removes spans shorter than minSec.
func dropShortSpans(spans []Span, minSec float64) []Span {
	out := spans[:0]
	for _, span := range spans {
		if span.Duration() >= minSec {
			out = append(out, span)
		}
	}
	return out
}

// clampSpans trims spans to [0, limitSec] and drops anything left empty.
func clampSpans(spans []Span, limitSec float64) []Span {
	out := spans[:0]
	for _, span := range spans {
		if span.Start < 0 {
			span.Start = 0
		}
		if span.End > limitSec {
			span.End = limitSec
		}
		if span.End > span.Start {
			out = append(out, span)
		}
	}
	return out
}

// s16leBytes encodes normalized samples as 16-bit little-endian PCM for
// byte-oriented detector backends.
func s16leBytes(samples []float64) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		v := int16(sample * 32767)
		data[i*2] = byte(v)
		data[i*2+1] = byte(v >> 8)
	}
	return data
}
