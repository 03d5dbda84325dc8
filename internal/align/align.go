package align

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/services"
)

// overflowEpsilon absorbs float residue from the rate division so exact
// fits never register as overflow.
const overflowEpsilon = 1e-9

// Aligner fits synthesized clips onto the source timeline. It is a pure
// planner: it decides playback rates and final positions; stretching and
// padding happen downstream against the plan.
type Aligner struct {
	cfg    config.Alignment
	logger *slog.Logger
}

// New builds an aligner from the alignment configuration.
func New(cfg *config.Config, logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aligner{
		cfg:    cfg.Alignment,
		logger: logging.NewComponentLogger(logger, "align"),
	}
}

// Result is one computed alignment pass: the per-clip plan plus the
// cumulative unabsorbed drift it pushed onto the timeline.
type Result struct {
	Clips         []pipeline.AlignedClip
	TotalDriftSec float64
}

// Plan walks the speech segments in timeline order and computes one aligned
// clip per synthesized clip. Per segment, the required rate is the clip
// duration over the slot duration; rates inside the segment's allowable
// bounds fit the slot exactly. A clip still too long at its max rate first
// absorbs trailing silence up to the next speech segment, then pushes all
// later segments by the unabsorbed remainder, which accumulates as drift.
// Clips shorter than the slot keep their audio and leave the remainder to
// be padded with silence downstream.
//
// The speaker profile bounds each segment's rate range: a confident
// profile gets the full configured [min_rate, max_rate], and the range
// narrows toward 1.0 as confidence drops, so a voice the profiler was
// unsure about is never stretched aggressively.
//
// Failed or missing clips produce no aligned record; their slots stay
// silent. When cumulative drift exceeds the tolerance, Plan returns the
// records aligned so far together with a sync error so the caller can
// persist the partial result.
func (a *Aligner) Plan(segments []pipeline.Segment, profiles []pipeline.Profile, clips []pipeline.Clip) (*Result, error) {
	speech := make([]pipeline.Segment, 0, len(segments))
	duration := 0.0
	for _, segment := range segments {
		if segment.End > duration {
			duration = segment.End
		}
		if segment.IsSpeech {
			speech = append(speech, segment)
		}
	}
	sort.Slice(speech, func(i, j int) bool { return speech[i].Start < speech[j].Start })

	clipByID := make(map[int]pipeline.Clip, len(clips))
	for _, clip := range clips {
		clipByID[clip.SegmentID] = clip
	}
	profileByID := make(map[int]pipeline.Profile, len(profiles))
	for _, profile := range profiles {
		profileByID[profile.SegmentID] = profile
	}

	aligned := make([]pipeline.AlignedClip, 0, len(speech))
	shift, drift := 0.0, 0.0
	warnings := 0

	for i, segment := range speech {
		clip, ok := clipByID[segment.ID]
		if !ok || clip.Failed || clip.Duration <= 0 {
			a.logger.Debug("no clip for segment, slot stays silent",
				logging.Int(logging.FieldSegmentIndex, segment.ID))
			continue
		}
		source := segment.End - segment.Start
		if source <= 0 {
			continue
		}
		nextStart := duration
		if i+1 < len(speech) {
			nextStart = speech[i+1].Start
		}
		budget := nextStart - segment.End

		profile, profiled := profileByID[segment.ID]
		minRate, maxRate := a.rateBounds(profile, profiled)
		required := clip.Duration / source
		applied := clampRate(required, minRate, maxRate)
		stretched := clip.Duration / applied

		record := pipeline.AlignedClip{
			SegmentID:   segment.ID,
			FinalStart:  segment.Start + shift,
			FinalEnd:    segment.Start + shift + stretched,
			AppliedRate: applied,
			Path:        clip.Path,
			ShiftSec:    shift,
		}

		if overflow := stretched - source; overflow > overflowEpsilon {
			absorbed := math.Min(overflow, math.Max(budget, 0))
			leftover := overflow - absorbed
			record.DriftWarning = true
			warnings++
			logging.WarnWithContext(a.logger, "synthesized clip overflows its slot", "drift",
				logging.Int(logging.FieldSegmentIndex, segment.ID),
				logging.Float64("overflow_sec", overflow),
				logging.Float64("absorbed_sec", absorbed),
				logging.Float64("shift_sec", leftover),
				logging.String(logging.FieldErrorHint, "raise alignment.max_rate or shorten the translation"),
				logging.String(logging.FieldImpact, "dubbed audio runs past the original timing here"),
			)
			if leftover > overflowEpsilon {
				shift += leftover
				drift += leftover
				if drift > a.cfg.DriftToleranceSec {
					return &Result{Clips: aligned, TotalDriftSec: drift},
						services.Wrap(services.ErrSync, "alignment", "drift check",
							fmt.Sprintf("cumulative drift %.2fs exceeds tolerance %.2fs at segment %d",
								drift, a.cfg.DriftToleranceSec, segment.ID), nil)
				}
			}
		}

		aligned = append(aligned, record)
	}

	a.logger.Info("alignment planned",
		logging.Int("clips", len(aligned)),
		logging.Int("drift_warnings", warnings),
		logging.Float64("total_drift_sec", drift),
	)
	return &Result{Clips: aligned, TotalDriftSec: drift}, nil
}

// uncertainWeight scales the rate range for segments whose speaker the
// profiler could not pin down.
const uncertainWeight = 0.5

// rateBounds derives the allowable rate range for one segment from its
// speaker profile. The configured bounds apply in full at confidence 1.0;
// lower confidence shrinks the deviation from 1.0 on both sides, down to
// half width for unknown speakers and missing profiles.
func (a *Aligner) rateBounds(profile pipeline.Profile, profiled bool) (float64, float64) {
	weight := uncertainWeight
	if profiled && profile.Gender != pipeline.GenderUnknown {
		weight = math.Min(math.Max(profile.Confidence, uncertainWeight), 1)
	}
	return 1 - (1-a.cfg.MinRate)*weight, 1 + (a.cfg.MaxRate-1)*weight
}

func clampRate(rate, minRate, maxRate float64) float64 {
	if minRate > 0 && rate < minRate {
		return minRate
	}
	if maxRate > 0 && rate > maxRate {
		return maxRate
	}
	return rate
}
