package profiler_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"overdub/internal/audio"
	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/profiler"
	"overdub/internal/services"
)

const testRate = 16000

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Audio.SampleRate = testRate
	return &cfg
}

// voicedTone builds a harmonic series on f0 so the autocorrelation peak
// lands exactly on the fundamental while the harmonic amplitudes set the
// spectral centroid.
func voicedTone(seconds, f0 float64, amps []float64) *audio.Clip {
	samples := make([]float64, int(seconds*testRate))
	for i := range samples {
		t := float64(i) / testRate
		for k, amp := range amps {
			samples[i] += amp * math.Sin(2*math.Pi*f0*float64(k+1)*t)
		}
	}
	return &audio.Clip{Samples: samples, SampleRate: testRate}
}

// darkAmps concentrate energy in the fundamental, like a low male voice.
func darkAmps() []float64 {
	amps := make([]float64, 5)
	for k := range amps {
		amps[k] = 0.5 / float64(k+1)
	}
	return amps
}

// brightAmps concentrate energy in high harmonics, pushing the spectral
// centroid well above the male/female split.
func brightAmps() []float64 {
	amps := make([]float64, 24)
	for k := range amps {
		switch {
		case k < 8:
			amps[k] = 0.02 * 0.28
		case k < 16:
			amps[k] = 0.1 * 0.28
		default:
			amps[k] = 0.3 * 0.28
		}
	}
	return amps
}

func speechSegment(id int, start, end float64) pipeline.Segment {
	return pipeline.Segment{ID: id, Start: start, End: end, IsSpeech: true}
}

func profileOne(t *testing.T, cfg *config.Config, clip *audio.Clip) pipeline.Profile {
	t.Helper()
	p := profiler.New(cfg, logging.NewNop())
	duration := clip.Duration().Seconds()
	profiles, err := p.Profile(context.Background(), clip, []pipeline.Segment{speechSegment(0, 0, duration)})
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	return profiles[0]
}

func TestProfileClassifiesMalePitch(t *testing.T) {
	profile := profileOne(t, testConfig(), voicedTone(2, 110, darkAmps()))

	if profile.Gender != pipeline.GenderMale {
		t.Fatalf("110Hz voice classified %s, want male (profile %+v)", profile.Gender, profile)
	}
	if math.Abs(profile.PitchHz-110) > 5 {
		t.Fatalf("pitch = %.1f, want 110 +-5", profile.PitchHz)
	}
	if profile.VoiceType != "bass" {
		t.Fatalf("voice type = %q, want bass", profile.VoiceType)
	}
	if profile.Confidence < 0.6 {
		t.Fatalf("confidence = %.2f, want >= 0.6", profile.Confidence)
	}
}

func TestProfileClassifiesFemalePitch(t *testing.T) {
	profile := profileOne(t, testConfig(), voicedTone(2, 220, darkAmps()))

	if profile.Gender != pipeline.GenderFemale {
		t.Fatalf("220Hz voice classified %s, want female (profile %+v)", profile.Gender, profile)
	}
	if math.Abs(profile.PitchHz-220) > 5 {
		t.Fatalf("pitch = %.1f, want 220 +-5", profile.PitchHz)
	}
	if profile.VoiceType != "mezzo-soprano" {
		t.Fatalf("voice type = %q, want mezzo-soprano", profile.VoiceType)
	}
	if profile.Confidence < 0.6 {
		t.Fatalf("confidence = %.2f, want >= 0.6", profile.Confidence)
	}
}

func TestAmbiguousPitchStaysUnknown(t *testing.T) {
	cfg := testConfig()
	cfg.Speaker.Features = []string{"pitch"}

	// 165Hz is equidistant from the 120Hz and 210Hz centers.
	profile := profileOne(t, cfg, voicedTone(2, 165, darkAmps()))

	if profile.Gender != pipeline.GenderUnknown {
		t.Fatalf("equidistant pitch classified %s, want unknown", profile.Gender)
	}
	if math.Abs(profile.Confidence-0.5) > 0.05 {
		t.Fatalf("confidence = %.2f, want about 0.5", profile.Confidence)
	}
	if profile.VoiceType != "unknown" {
		t.Fatalf("voice type = %q, want unknown", profile.VoiceType)
	}
}

func TestSilentSegmentHasNoVoice(t *testing.T) {
	clip := &audio.Clip{Samples: make([]float64, 2*testRate), SampleRate: testRate}
	profile := profileOne(t, testConfig(), clip)

	if profile.Gender != pipeline.GenderUnknown {
		t.Fatalf("silence classified %s, want unknown", profile.Gender)
	}
	if profile.Confidence != 0 {
		t.Fatalf("silence confidence = %.2f, want 0", profile.Confidence)
	}
	if profile.PitchHz != 0 {
		t.Fatalf("silence pitch = %.1f, want 0", profile.PitchHz)
	}
}

func TestEnergyFeatureTempersQuietSegments(t *testing.T) {
	cfg := testConfig()
	cfg.Speaker.Features = []string{"pitch", "energy"}

	loud := profileOne(t, cfg, voicedTone(2, 110, darkAmps()))

	quietAmps := darkAmps()
	for k := range quietAmps {
		quietAmps[k] *= 0.02
	}
	quiet := profileOne(t, cfg, voicedTone(2, 110, quietAmps))

	if loud.Gender != pipeline.GenderMale || quiet.Gender != pipeline.GenderMale {
		t.Fatalf("both takes should classify male, got %s and %s", loud.Gender, quiet.Gender)
	}
	if quiet.Confidence >= loud.Confidence-0.1 {
		t.Fatalf("quiet confidence %.2f should trail loud %.2f by more than 0.1",
			quiet.Confidence, loud.Confidence)
	}
}

func TestSpectralCentroidArbitratesAmbiguousPitch(t *testing.T) {
	cfg := testConfig()
	cfg.Speaker.Features = []string{"pitch", "spectral"}
	cfg.Speaker.MinConfidence = 0.5

	// 160Hz sits closer to the male center, but not decisively; the bright
	// spectrum tips the call to female.
	profile := profileOne(t, cfg, voicedTone(2, 160, brightAmps()))

	if profile.Gender != pipeline.GenderFemale {
		t.Fatalf("bright ambiguous voice classified %s, want female (profile %+v)", profile.Gender, profile)
	}
	if profile.CentroidHz < 2000 {
		t.Fatalf("centroid = %.0f, expected well above 2000", profile.CentroidHz)
	}
}

func TestProfileSkipsSilenceSegments(t *testing.T) {
	cfg := testConfig()
	clip := voicedTone(4, 110, darkAmps())
	segments := []pipeline.Segment{
		{ID: 0, Start: 0, End: 1},
		speechSegment(1, 1, 2),
		{ID: 2, Start: 2, End: 3},
		speechSegment(3, 3, 4),
	}

	p := profiler.New(cfg, logging.NewNop())
	profiles, err := p.Profile(context.Background(), clip, segments)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].SegmentID != 1 || profiles[1].SegmentID != 3 {
		t.Fatalf("profiles should carry speech segment ids, got %d and %d",
			profiles[0].SegmentID, profiles[1].SegmentID)
	}
}

func TestSampleRateMismatchIsConfigurationError(t *testing.T) {
	cfg := testConfig()
	p := profiler.New(cfg, logging.NewNop())

	clip := &audio.Clip{Samples: make([]float64, 24000), SampleRate: 24000}
	_, err := p.Profile(context.Background(), clip, []pipeline.Segment{speechSegment(0, 0, 1)})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCancellationStopsProfiling(t *testing.T) {
	cfg := testConfig()
	p := profiler.New(cfg, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Profile(ctx, voicedTone(2, 110, darkAmps()), []pipeline.Segment{speechSegment(0, 0, 2)})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
