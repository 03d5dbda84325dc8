// Package align plans how synthesized clips fit the source timeline.
// Translated speech rarely matches the original length, so each clip gets
// a pitch-preserving playback rate inside the configured bounds; residual
// overflow first eats trailing silence, then shifts everything after it,
// and accumulated shift past the drift tolerance fails the job rather than
// truncating speech.
package align
