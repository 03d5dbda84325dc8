package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestFirstAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{Index: 0, CodecType: "video"},
			{Index: 1, CodecType: "audio", SampleRate: "48000", Channels: 6},
			{Index: 2, CodecType: "audio", SampleRate: "44100", Channels: 2},
		},
	}
	stream, ok := result.FirstAudioStream()
	if !ok {
		t.Fatal("expected an audio stream")
	}
	if stream.Index != 1 {
		t.Fatalf("expected stream index 1, got %d", stream.Index)
	}
	if stream.SampleRateHz() != 48000 {
		t.Fatalf("unexpected sample rate: %d", stream.SampleRateHz())
	}
	if !result.HasVideo() {
		t.Fatal("expected video stream")
	}

	if _, ok := (Result{}).FirstAudioStream(); ok {
		t.Fatal("empty result should have no audio stream")
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Duration: "59.4"},
			{CodecType: "video", Duration: "60.1"},
		},
	}
	if got := result.DurationSecondsOrStream(); got != 60.1 {
		t.Fatalf("expected stream fallback 60.1, got %v", got)
	}
	result.Format.Duration = "61.5"
	if got := result.DurationSecondsOrStream(); got != 61.5 {
		t.Fatalf("expected format duration 61.5, got %v", got)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}
