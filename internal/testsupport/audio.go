package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Span marks a time range inside a generated clip.
type Span struct {
	Start time.Duration
	End   time.Duration
}

// WriteWAV writes a mono 16-bit PCM WAV containing a steady sine tone at the
// given frequency.
func WriteWAV(t testing.TB, path string, sampleRate int, duration time.Duration, freq float64) {
	t.Helper()
	WriteSpeechWAV(t, path, sampleRate, duration, freq, Span{Start: 0, End: duration})
}

// WriteSpeechWAV writes a mono 16-bit PCM WAV of the given total duration
// that is silent except during the provided spans, which carry a sine tone.
// Segmentation and detection tests use the spans as known speech regions.
func WriteSpeechWAV(t testing.TB, path string, sampleRate int, total time.Duration, freq float64, spans ...Span) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	frames := int(float64(sampleRate) * total.Seconds())
	data := make([]int, frames)
	for _, span := range spans {
		start := int(float64(sampleRate) * span.Start.Seconds())
		end := int(float64(sampleRate) * span.End.Seconds())
		if start < 0 {
			start = 0
		}
		if end > frames {
			end = frames
		}
		for i := start; i < end; i++ {
			sample := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
			data[i] = int(sample * 32767)
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
}
