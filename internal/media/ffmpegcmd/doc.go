// Package ffmpegcmd builds and runs the ffmpeg invocations the pipeline
// hands off to: audio extraction, pitch-preserving tempo changes, synthesis
// format conversion, and the final mux. Argument construction is exposed
// separately from execution so tests can assert on command lines without
// spawning processes.
package ffmpegcmd
