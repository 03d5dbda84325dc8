// Package profiler classifies the speaker of each speech segment from the
// segment's audio alone: median fundamental frequency over voiced frames,
// loudness, and spectral centroid feed a graded gender confidence against
// the configured pitch ranges. Low-confidence segments stay unknown and
// later receive the default synthesis voice.
package profiler
