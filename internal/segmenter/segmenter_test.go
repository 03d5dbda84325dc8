package segmenter_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"overdub/internal/audio"
	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/segmenter"
	"overdub/internal/services"
	"overdub/internal/vad"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Audio.SampleRate = 16000
	return &cfg
}

func newSegmenter(t *testing.T, cfg *config.Config) *segmenter.Segmenter {
	t.Helper()
	detector, err := vad.New(cfg.VAD, cfg.Audio.SampleRate)
	if err != nil {
		t.Fatalf("vad.New failed: %v", err)
	}
	t.Cleanup(func() { detector.Close() })
	return segmenter.New(cfg, detector, logging.NewNop())
}

func speechClip(rate int, durationSec float64, spans ...[2]float64) *audio.Clip {
	samples := make([]float64, int(durationSec*float64(rate)))
	for _, span := range spans {
		start := int(span[0] * float64(rate))
		end := int(span[1] * float64(rate))
		for i := start; i < end && i < len(samples); i++ {
			samples[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/float64(rate))
		}
	}
	return &audio.Clip{Samples: samples, SampleRate: rate}
}

func assertTimeline(t *testing.T, segments []pipeline.Segment, duration float64) {
	t.Helper()
	if len(segments) == 0 {
		t.Fatal("expected segments")
	}
	if segments[0].Start != 0 {
		t.Fatalf("timeline must start at 0, got %f", segments[0].Start)
	}
	for i, segment := range segments {
		if segment.ID != i {
			t.Fatalf("segment %d has id %d", i, segment.ID)
		}
		if segment.End <= segment.Start {
			t.Fatalf("segment %d is empty or inverted: %+v", i, segment)
		}
		if i > 0 && math.Abs(segment.Start-segments[i-1].End) > 1e-9 {
			t.Fatalf("gap between segments %d and %d: %f vs %f", i-1, i, segments[i-1].End, segment.Start)
		}
	}
	if last := segments[len(segments)-1].End; math.Abs(last-duration) > 1e-6 {
		t.Fatalf("timeline must end at %f, got %f", duration, last)
	}
}

func speechSegments(segments []pipeline.Segment) []pipeline.Segment {
	var speech []pipeline.Segment
	for _, segment := range segments {
		if segment.IsSpeech {
			speech = append(speech, segment)
		}
	}
	return speech
}

func TestSegmentTimelineOrderedAndComplete(t *testing.T) {
	cfg := testConfig()
	seg := newSegmenter(t, cfg)

	clip := speechClip(16000, 10, [2]float64{2, 3}, [2]float64{5, 6.5})
	segments, err := seg.Segment(context.Background(), clip)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	assertTimeline(t, segments, 10)

	speech := speechSegments(segments)
	if len(speech) != 2 {
		t.Fatalf("expected 2 speech segments, got %d: %+v", len(speech), speech)
	}
	// keep_silence widens each detection by up to 0.3s.
	if math.Abs(speech[0].Start-1.7) > 0.15 || math.Abs(speech[0].End-3.3) > 0.15 {
		t.Fatalf("first speech segment misplaced: %+v", speech[0])
	}
	if math.Abs(speech[1].Start-4.7) > 0.15 || math.Abs(speech[1].End-6.8) > 0.15 {
		t.Fatalf("second speech segment misplaced: %+v", speech[1])
	}
}

func TestSpeechAcrossWindowBoundaryMerges(t *testing.T) {
	cfg := testConfig()
	seg := newSegmenter(t, cfg)

	// Speech 28s..32s crosses the 30s/1s window boundary.
	clip := speechClip(16000, 35, [2]float64{28, 32})
	segments, err := seg.Segment(context.Background(), clip)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	assertTimeline(t, segments, 35)

	speech := speechSegments(segments)
	if len(speech) != 1 {
		t.Fatalf("expected one merged speech segment, got %d: %+v", len(speech), speech)
	}
	if math.Abs(speech[0].Start-27.7) > 0.15 || math.Abs(speech[0].End-32.3) > 0.15 {
		t.Fatalf("merged segment misplaced: %+v", speech[0])
	}
}

func TestEmptyInputYieldsEmptyList(t *testing.T) {
	cfg := testConfig()
	seg := newSegmenter(t, cfg)

	segments, err := seg.Segment(context.Background(), &audio.Clip{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("expected empty segment list, got %+v", segments)
	}
}

func TestSampleRateMismatchIsConfigurationError(t *testing.T) {
	cfg := testConfig()
	seg := newSegmenter(t, cfg)

	clip := speechClip(24000, 2, [2]float64{0.5, 1.5})
	_, err := seg.Segment(context.Background(), clip)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSilenceOnlyInputIsOneSilentSegment(t *testing.T) {
	cfg := testConfig()
	seg := newSegmenter(t, cfg)

	segments, err := seg.Segment(context.Background(), audio.NewSilence(5*time.Second, 16000))
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	assertTimeline(t, segments, 5)
	if len(speechSegments(segments)) != 0 {
		t.Fatalf("expected no speech in silence, got %+v", segments)
	}
}

func TestShortSpeechDemotedToSilence(t *testing.T) {
	cfg := testConfig()
	seg := newSegmenter(t, cfg)

	clip := speechClip(16000, 4, [2]float64{1.0, 1.3})
	segments, err := seg.Segment(context.Background(), clip)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	assertTimeline(t, segments, 4)
	if speech := speechSegments(segments); len(speech) != 0 {
		t.Fatalf("0.3s burst should fall below min_segment, got %+v", speech)
	}
}

func TestPaddingNeverOverlapsNeighbor(t *testing.T) {
	cfg := testConfig()
	seg := newSegmenter(t, cfg)

	clip := speechClip(16000, 7, [2]float64{2, 3}, [2]float64{3.58, 4.58})
	segments, err := seg.Segment(context.Background(), clip)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	assertTimeline(t, segments, 7)

	speech := speechSegments(segments)
	if len(speech) != 2 {
		t.Fatalf("gap above min_silence_sec should still split, got %+v", speech)
	}
	// The 0.58s gap only has room for half the keep_silence padding on each
	// side, so the padded spans meet at the midpoint instead of overlapping.
	if speech[0].End > speech[1].Start {
		t.Fatalf("padded segments overlap: %+v then %+v", speech[0], speech[1])
	}
	if math.Abs(speech[0].End-3.29) > 0.1 || math.Abs(speech[1].Start-3.29) > 0.1 {
		t.Fatalf("expected gap split near 3.29, got end %f start %f", speech[0].End, speech[1].Start)
	}
	if speech[1].Start-speech[0].End > 0.02 {
		t.Fatalf("clamped padding should make segments touch, gap is %f", speech[1].Start-speech[0].End)
	}
}

type failingDetector struct{}

func (failingDetector) Detect([]float64) ([]vad.Span, error) {
	return nil, errors.New("model exploded")
}
func (failingDetector) Name() string { return "failing" }
func (failingDetector) Close() error { return nil }

func TestDetectorFailureFallsBackToFixedChunks(t *testing.T) {
	cfg := testConfig()
	cfg.Segmentation.FallbackChunking = true
	seg := segmenter.New(cfg, failingDetector{}, logging.NewNop())

	clip := speechClip(16000, 70, [2]float64{10, 20})
	segments, err := seg.Segment(context.Background(), clip)
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	assertTimeline(t, segments, 70)
	if len(segments) != 3 {
		t.Fatalf("expected 3 fixed chunks for 70s at 30s, got %d", len(segments))
	}
	for _, segment := range segments {
		if !segment.IsSpeech {
			t.Fatalf("fixed chunks are treated as speech: %+v", segment)
		}
	}
}

func TestDetectorFailureWithoutFallbackIsSegmentationError(t *testing.T) {
	cfg := testConfig()
	cfg.Segmentation.FallbackChunking = false
	seg := segmenter.New(cfg, failingDetector{}, logging.NewNop())

	clip := speechClip(16000, 5, [2]float64{1, 2})
	_, err := seg.Segment(context.Background(), clip)
	if !errors.Is(err, services.ErrSegmentation) {
		t.Fatalf("expected segmentation error, got %v", err)
	}
}

func TestCancellationStopsScan(t *testing.T) {
	cfg := testConfig()
	seg := newSegmenter(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := seg.Segment(ctx, speechClip(16000, 5, [2]float64{1, 2}))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
