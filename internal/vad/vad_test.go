package vad_test

import (
	"math"
	"testing"

	"overdub/internal/config"
	"overdub/internal/vad"
)

func tone(samples []float64, rate int, startSec, endSec, freq float64) {
	start := int(startSec * float64(rate))
	end := int(endSec * float64(rate))
	for i := start; i < end && i < len(samples); i++ {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
}

func energyDetector(t *testing.T, minSpeechMs, minSilenceMs int) vad.Detector {
	t.Helper()
	det, err := vad.New(config.VAD{
		Engine:       "energy",
		Threshold:    0.5,
		MinSpeechMs:  minSpeechMs,
		MinSilenceMs: minSilenceMs,
	}, 16000)
	if err != nil {
		t.Fatalf("vad.New failed: %v", err)
	}
	t.Cleanup(func() { det.Close() })
	return det
}

func TestEnergyDetectorFindsBursts(t *testing.T) {
	samples := make([]float64, 3*16000)
	tone(samples, 16000, 0.5, 1.5, 220)
	tone(samples, 16000, 2.0, 2.8, 220)

	det := energyDetector(t, 250, 100)
	spans, err := det.Detect(samples)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d: %+v", len(spans), spans)
	}

	want := []vad.Span{{Start: 0.5, End: 1.5}, {Start: 2.0, End: 2.8}}
	for i, span := range spans {
		if math.Abs(span.Start-want[i].Start) > 0.08 || math.Abs(span.End-want[i].End) > 0.08 {
			t.Fatalf("span %d = %+v, want about %+v", i, span, want[i])
		}
	}
}

func TestEnergyDetectorSilenceYieldsNothing(t *testing.T) {
	det := energyDetector(t, 250, 100)
	spans, err := det.Detect(make([]float64, 16000))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(spans) != 0 {
		t.Fatalf("expected no spans in silence, got %+v", spans)
	}
}

func TestEnergyDetectorMergesCloseBursts(t *testing.T) {
	samples := make([]float64, 3*16000)
	tone(samples, 16000, 1.0, 1.5, 220)
	tone(samples, 16000, 1.55, 2.0, 220)

	det := energyDetector(t, 250, 100)
	spans, err := det.Detect(samples)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 50ms gap to merge, got %+v", spans)
	}
	if spans[0].Duration() < 0.9 {
		t.Fatalf("merged span too short: %+v", spans[0])
	}
}

func TestEnergyDetectorDropsBlips(t *testing.T) {
	samples := make([]float64, 2*16000)
	tone(samples, 16000, 1.0, 1.04, 220)

	det := energyDetector(t, 250, 100)
	spans, err := det.Detect(samples)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(spans) != 0 {
		t.Fatalf("expected 40ms blip to be dropped, got %+v", spans)
	}
}

func TestEnergyDetectorHandlesToneOnly(t *testing.T) {
	samples := make([]float64, 16000)
	tone(samples, 16000, 0, 1.0, 220)

	det := energyDetector(t, 250, 100)
	spans, err := det.Detect(samples)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected continuous tone to be one span, got %+v", spans)
	}
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	if _, err := vad.New(config.VAD{Engine: "loudness"}, 16000); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestNewRejectsBadSampleRate(t *testing.T) {
	if _, err := vad.New(config.VAD{Engine: "energy"}, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}
