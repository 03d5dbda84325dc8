package segmenter

import (
	"overdub/internal/audio"
	"overdub/internal/pipeline"
	"overdub/internal/vad"
)

const (
	trimWinSec = 0.020
	trimHopSec = 0.010

	// timelineEpsilon suppresses zero-width silence fillers born from float
	// arithmetic on span boundaries.
	timelineEpsilon = 1e-6
)

// trimSpanEdges shrinks each span past leading and trailing frames whose RMS
// sits below the silence threshold. Spans entirely below the threshold are
// dropped. samples holds the window's audio; winStart converts span times to
// sample offsets.
func trimSpanEdges(samples []float64, rate int, winStart float64, spans []vad.Span, thresholdDB float64) []vad.Span {
	threshold := audio.DBToAmplitude(thresholdDB)
	out := spans[:0]
	for _, span := range spans {
		startIdx := int((span.Start - winStart) * float64(rate))
		endIdx := int((span.End - winStart) * float64(rate))
		if startIdx < 0 {
			startIdx = 0
		}
		if endIdx > len(samples) {
			endIdx = len(samples)
		}
		if endIdx-startIdx < 1 {
			continue
		}

		frames := audio.FrameRMS(samples[startIdx:endIdx], rate, trimWinSec, trimHopSec)
		first, last := -1, -1
		for i, rms := range frames {
			if rms >= threshold {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if first < 0 {
			continue
		}

		trimmed := vad.Span{
			Start: span.Start + float64(first)*trimHopSec,
			End:   span.Start + float64(last)*trimHopSec + trimWinSec,
		}
		if trimmed.End > span.End {
			trimmed.End = span.End
		}
		if trimmed.End > trimmed.Start {
			out = append(out, trimmed)
		}
	}
	return out
}

// padSpans widens each span by up to keepSilence on both sides so clipped
// word onsets survive. Padding never crosses the midpoint of the silence gap
// to a neighboring span and never leaves [0, duration].
func padSpans(spans []vad.Span, keepSilence, duration float64) []vad.Span {
	if keepSilence <= 0 || len(spans) == 0 {
		return spans
	}
	out := make([]vad.Span, len(spans))
	for i, span := range spans {
		leadRoom := span.Start
		if i > 0 {
			leadRoom = (span.Start - spans[i-1].End) / 2
		}
		trailRoom := duration - span.End
		if i < len(spans)-1 {
			trailRoom = (spans[i+1].Start - span.End) / 2
		}
		out[i] = vad.Span{
			Start: span.Start - minFloat(keepSilence, leadRoom),
			End:   span.End + minFloat(keepSilence, trailRoom),
		}
		if out[i].Start < 0 {
			out[i].Start = 0
		}
		if out[i].End > duration {
			out[i].End = duration
		}
	}
	return out
}

// demoteShortSpans removes speech spans shorter than minSegment; their time
// falls back to silence on the assembled timeline.
func demoteShortSpans(spans []vad.Span, minSegment float64) []vad.Span {
	if minSegment <= 0 {
		return spans
	}
	out := spans[:0]
	for _, span := range spans {
		if span.Duration() >= minSegment {
			out = append(out, span)
		}
	}
	return out
}

// buildTimeline turns ordered speech spans into the full segment list:
// alternating silence and speech, ids in timeline order, union exactly
// [0, duration].
func buildTimeline(spans []vad.Span, duration float64) []pipeline.Segment {
	segments := make([]pipeline.Segment, 0, len(spans)*2+1)
	cursor := 0.0
	for _, span := range spans {
		if span.Start < cursor {
			span.Start = cursor
		}
		if span.End > duration {
			span.End = duration
		}
		if span.End <= span.Start {
			continue
		}
		if span.Start-cursor > timelineEpsilon {
			segments = append(segments, pipeline.Segment{
				ID:    len(segments),
				Start: cursor,
				End:   span.Start,
			})
		} else {
			span.Start = cursor
		}
		segments = append(segments, pipeline.Segment{
			ID:       len(segments),
			Start:    span.Start,
			End:      span.End,
			IsSpeech: true,
		})
		cursor = span.End
	}
	if duration-cursor > timelineEpsilon {
		segments = append(segments, pipeline.Segment{
			ID:    len(segments),
			Start: cursor,
			End:   duration,
		})
	}
	return segments
}

// fixedChunkTimeline covers the input with chunkSec speech segments. It is
// the degraded output used when the VAD backend fails outright.
func fixedChunkTimeline(duration, chunkSec float64) []pipeline.Segment {
	if duration <= 0 {
		return []pipeline.Segment{}
	}
	if chunkSec <= 0 {
		chunkSec = duration
	}
	segments := make([]pipeline.Segment, 0, int(duration/chunkSec)+1)
	for start := 0.0; start < duration; start += chunkSec {
		end := start + chunkSec
		if end > duration {
			end = duration
		}
		segments = append(segments, pipeline.Segment{
			ID:       len(segments),
			Start:    start,
			End:      end,
			IsSpeech: true,
		})
	}
	return segments
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
