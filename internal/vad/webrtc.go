//go:build cgo

package vad

import (
	"fmt"

	"github.com/visvasity/webrtcvad"

	"overdub/internal/config"
)

const webrtcFrameMs = 20

type webrtcDetector struct {
	vad          *webrtcvad.VAD
	minSpeechMs  int
	minSilenceMs int
	sampleRate   int
}

func newWebRTC(cfg config.VAD, sampleRate int) (Detector, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("webrtc vad: %w", err)
	}
	// WebRTC VAD modes: 0 (quality) .. 3 (aggressive). The [0,1] threshold
	// maps onto that scale.
	mode := int(cfg.Threshold*3 + 0.5)
	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("webrtc vad mode %d: %w", mode, err)
	}
	return &webrtcDetector{
		vad:          v,
		minSpeechMs:  cfg.MinSpeechMs,
		minSilenceMs: cfg.MinSilenceMs,
		sampleRate:   sampleRate,
	}, nil
}

func (d *webrtcDetector) Name() string { return "webrtc" }

func (d *webrtcDetector) Close() error { return nil }

func (d *webrtcDetector) Detect(samples []float64) ([]Span, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	data := s16leBytes(samples)
	samplesPerFrame := d.sampleRate * webrtcFrameMs / 1000
	frameBytes := samplesPerFrame * 2
	if frameBytes <= 0 {
		return nil, fmt.Errorf("webrtc vad: invalid frame size for rate %d", d.sampleRate)
	}

	var flags []bool
	for offset := 0; offset+frameBytes <= len(data); offset += frameBytes {
		speech, err := d.vad.Process(d.sampleRate, data[offset:offset+frameBytes])
		if err != nil {
			return nil, fmt.Errorf("webrtc vad frame at %d: %w", offset/frameBytes, err)
		}
		flags = append(flags, speech)
	}

	duration := float64(len(samples)) / float64(d.sampleRate)
	frameSec := float64(webrtcFrameMs) / 1000
	spans := spansFromFlags(flags, frameSec)
	spans = mergeSpanGaps(spans, float64(d.minSilenceMs)/1000)
	spans = dropShortSpans(spans, float64(d.minSpeechMs)/1000)
	return clampSpans(spans, duration), nil
}
