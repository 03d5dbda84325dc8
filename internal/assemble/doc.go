// Package assemble renders an aligned clip plan into the continuous dubbed
// audio track. Clips land at their aligned positions on a silent canvas, so
// the output preserves every inter-clip gap and never runs shorter than the
// source.
package assemble
