// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The extraction stage uses it to find the audio stream to dub and its
// sample rate; the mux stage uses it to validate the finished container.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
package ffprobe
