// Package segmenter splits source audio into an ordered, gap-free sequence
// of speech and silence segments. It scans the input in overlapping windows,
// runs voice activity detection per window, trims segment edges against the
// silence threshold, and reconciles detections across window boundaries so
// continuous speech never splits at a window edge.
package segmenter
