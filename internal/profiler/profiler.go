package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"overdub/internal/audio"
	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/services"
	"overdub/internal/voice"
)

const (
	// Spectral centroid split between typical male and female speech, with
	// the linear band the agreement score grades over.
	spectralSplitHz = 2000.0
	spectralBandHz  = 3000.0

	// Segment loudness considered fully reliable for pitch estimation, and
	// the floor below which the estimate carries no weight.
	energyFullDBFS  = -20.0
	energyFloorDBFS = -60.0

	// Pitch dominates the weighted confidence; energy and spectral shape
	// only temper it.
	pitchWeight    = 3.0
	energyWeight   = 1.0
	spectralWeight = 1.0
)

// Profiler estimates speaker characteristics for speech segments: median
// pitch, loudness, spectral shape, and a graded gender classification.
type Profiler struct {
	cfg    config.Speaker
	rate   int
	logger *slog.Logger

	usePitch    bool
	useEnergy   bool
	useSpectral bool
}

// New builds a profiler from the speaker configuration.
func New(cfg *config.Config, logger *slog.Logger) *Profiler {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Profiler{
		cfg:    cfg.Speaker,
		rate:   cfg.Audio.SampleRate,
		logger: logging.NewComponentLogger(logger, "profiler"),
	}
	for _, feature := range cfg.Speaker.Features {
		switch strings.ToLower(strings.TrimSpace(feature)) {
		case "pitch":
			p.usePitch = true
		case "energy":
			p.useEnergy = true
		case "spectral":
			p.useSpectral = true
		}
	}
	return p
}

// Profile analyzes every speech segment of the clip and returns one profile
// per speech segment, in timeline order. Silence segments are skipped.
func (p *Profiler) Profile(ctx context.Context, clip *audio.Clip, segments []pipeline.Segment) ([]pipeline.Profile, error) {
	if clip != nil && clip.Frames() > 0 && clip.SampleRate != p.rate {
		return nil, services.Wrap(services.ErrConfiguration, "profiling", "validate input",
			fmt.Sprintf("audio sample rate %d does not match configured rate %d", clip.SampleRate, p.rate), nil)
	}

	profiles := make([]pipeline.Profile, 0, len(segments))
	for _, segment := range segments {
		if !segment.IsSpeech {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTransient, "profiling", "segment scan",
				fmt.Sprintf("cancelled at segment %d", segment.ID), err)
		}
		slice := clip.Slice(secondsToDuration(segment.Start), secondsToDuration(segment.End))
		profile := p.analyze(slice.Samples)
		profile.SegmentID = segment.ID
		profiles = append(profiles, profile)
	}

	male, female, unknown := 0, 0, 0
	for _, profile := range profiles {
		switch profile.Gender {
		case pipeline.GenderMale:
			male++
		case pipeline.GenderFemale:
			female++
		default:
			unknown++
		}
	}
	p.logger.Info("speaker profiling complete",
		logging.Int("segments", len(profiles)),
		logging.Int("male", male),
		logging.Int("female", female),
		logging.Int("unknown", unknown),
	)
	return profiles, nil
}

// analyze measures one segment and classifies the speaker. Segments without
// voiced frames come back unknown with zero confidence.
func (p *Profiler) analyze(samples []float64) pipeline.Profile {
	profile := pipeline.Profile{
		Gender:    pipeline.GenderUnknown,
		VoiceType: "unknown",
	}
	if len(samples) == 0 {
		return profile
	}

	minHz := math.Min(p.cfg.MalePitch.Min, p.cfg.FemalePitch.Min)
	maxHz := math.Max(p.cfg.MalePitch.Max, p.cfg.FemalePitch.Max)
	track := audio.PitchTrack(samples, p.rate, minHz, maxHz)

	profile.PitchHz = audio.MedianPitch(track)
	profile.VoicedRatio = audio.VoicedRatio(track)
	profile.EnergyDBFS = audio.RMSdBFS(samples)
	profile.CentroidHz = audio.SpectralCentroid(samples, p.rate)

	if profile.PitchHz <= 0 {
		return profile
	}

	gender, confidence := p.classify(profile.PitchHz, profile.EnergyDBFS, profile.CentroidHz)
	profile.Confidence = confidence
	if confidence < p.cfg.MinConfidence {
		return profile
	}
	profile.Gender = gender
	profile.VoiceType = voice.TypeFromPitch(gender, profile.PitchHz)
	return profile
}

// classify picks the gender whose configured pitch center is nearer and
// grades the call. The pitch separation score is the inverse distance to
// the chosen center normalized by the total distance to both centers; when
// it falls below the gender threshold the pitch alone is ambiguous and the
// spectral centroid arbitrates instead. The enabled features then combine
// into one weighted confidence.
func (p *Profiler) classify(pitchHz, energyDBFS, centroidHz float64) (pipeline.Gender, float64) {
	distMale := math.Abs(pitchHz - p.cfg.MalePitch.Base)
	distFemale := math.Abs(pitchHz - p.cfg.FemalePitch.Base)
	total := distMale + distFemale

	gender := pipeline.GenderMale
	separation := 0.5
	if total > 0 {
		if distFemale < distMale {
			gender = pipeline.GenderFemale
			separation = distMale / total
		} else {
			separation = distFemale / total
		}
	}

	if separation < p.cfg.GenderThreshold && p.useSpectral && centroidHz > 0 {
		if spectralMaleScore(centroidHz) >= 0.5 {
			gender = pipeline.GenderMale
		} else {
			gender = pipeline.GenderFemale
		}
	}

	weightSum, scoreSum := 0.0, 0.0
	if p.usePitch {
		weightSum += pitchWeight
		scoreSum += pitchWeight * separation
	}
	if p.useEnergy {
		weightSum += energyWeight
		scoreSum += energyWeight * energyScore(energyDBFS)
	}
	if p.useSpectral && centroidHz > 0 {
		agreement := spectralMaleScore(centroidHz)
		if gender == pipeline.GenderFemale {
			agreement = 1 - agreement
		}
		weightSum += spectralWeight
		scoreSum += spectralWeight * agreement
	}
	if weightSum == 0 {
		return gender, separation
	}
	return gender, scoreSum / weightSum
}

// spectralMaleScore grades how strongly a spectral centroid suggests a male
// voice: 1 well below the split frequency, 0 well above, linear between.
func spectralMaleScore(centroidHz float64) float64 {
	score := 0.5 + (spectralSplitHz-centroidHz)/spectralBandHz
	return clamp01(score)
}

// energyScore grades how reliable the segment's loudness makes the pitch
// estimate: 1 at normal speech level, 0 at the faint floor.
func energyScore(energyDBFS float64) float64 {
	return clamp01((energyDBFS - energyFloorDBFS) / (energyFullDBFS - energyFloorDBFS))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
