package segmenter

import (
	"math"

	"overdub/internal/vad"
)

// frameSec is one VAD frame. Boundary estimates from two windows that
// disagree by less than this resolve to the midpoint.
const frameSec = 0.010

type window struct {
	start float64
	end   float64
}

func (w window) duration() float64 { return w.end - w.start }

// buildWindows covers [0, duration] with chunkSec windows overlapping by
// overlapSec. The final window is shortened to end exactly at duration.
func buildWindows(duration, chunkSec, overlapSec float64) []window {
	if duration <= 0 {
		return nil
	}
	if chunkSec <= 0 || duration <= chunkSec {
		return []window{{start: 0, end: duration}}
	}
	stride := chunkSec - overlapSec
	if stride <= 0 {
		stride = chunkSec
	}
	var windows []window
	for start := 0.0; start < duration; start += stride {
		end := start + chunkSec
		if end > duration {
			end = duration
		}
		windows = append(windows, window{start: start, end: end})
		if end >= duration {
			break
		}
	}
	return windows
}

// reconciler accumulates speech spans across overlapping windows. Windows
// must arrive in timeline order; merging decisions depend on where the
// previous window ended.
type reconciler struct {
	minSilence float64
	spans      []vad.Span
	prevEnd    float64
}

// add folds one window's spans (absolute times, already edge-trimmed) into
// the accumulated set. The window's first span may describe speech the
// previous window already saw across the shared overlap; its boundary
// estimates are reconciled rather than duplicated.
func (r *reconciler) add(win window, spans []vad.Span) {
	spans = mergeGaps(spans, r.minSilence)
	if len(spans) > 0 && len(r.spans) > 0 {
		last := &r.spans[len(r.spans)-1]
		head := spans[0]
		if head.Start-last.End < r.minSilence {
			last.Start = reconcileStart(*last, head, win.start)
			last.End = reconcileEnd(*last, head, r.prevEnd)
			spans = spans[1:]
		}
	}
	r.spans = append(r.spans, spans...)
	r.prevEnd = win.end
}

// reconcileStart picks the start estimate for speech seen by two windows.
// Speech that began before the shared overlap was only fully visible to the
// earlier window; inside the overlap the later window's estimate wins, with
// a midpoint tie-break when they agree to within a frame.
func reconcileStart(last, head vad.Span, overlapStart float64) float64 {
	switch {
	case last.Start < overlapStart-frameSec:
		return last.Start
	case math.Abs(head.Start-last.Start) < frameSec:
		return (head.Start + last.Start) / 2
	default:
		return head.Start
	}
}

// reconcileEnd picks the end estimate. A span clipped at the earlier
// window's edge continues into the later window; otherwise speech reaching
// past the earlier window's sight takes the later estimate, and true
// duplicates keep the earlier window's end with a midpoint tie-break.
func reconcileEnd(last, head vad.Span, prevEnd float64) float64 {
	switch {
	case last.End >= prevEnd-frameSec:
		return head.End
	case head.End > prevEnd:
		return head.End
	case math.Abs(head.End-last.End) < frameSec:
		return (head.End + last.End) / 2
	default:
		return last.End
	}
}

// mergeGaps joins spans separated by silence shorter than minSilence.
// Speech is never split at a silence run the configuration considers too
// short to cut.
func mergeGaps(spans []vad.Span, minSilence float64) []vad.Span {
	if len(spans) < 2 {
		return spans
	}
	merged := []vad.Span{spans[0]}
	for _, span := range spans[1:] {
		last := &merged[len(merged)-1]
		if span.Start-last.End < minSilence {
			if span.End > last.End {
				last.End = span.End
			}
			continue
		}
		merged = append(merged, span)
	}
	return merged
}
