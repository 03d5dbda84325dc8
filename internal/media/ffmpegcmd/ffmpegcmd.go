package ffmpegcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"overdub/internal/logging"
)

// Runner executes an external command and returns its error, if any.
type Runner func(ctx context.Context, name string, args ...string) error

// FFmpeg builds and runs ffmpeg invocations through a replaceable runner so
// tests never spawn processes.
type FFmpeg struct {
	binary string
	runner Runner
	logger *slog.Logger
}

// New creates an ffmpeg wrapper for the given binary.
func New(binary string, logger *slog.Logger) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FFmpeg{
		binary: binary,
		runner: runCommand,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (f *FFmpeg) WithCommandRunner(runner Runner) {
	if runner != nil {
		f.runner = runner
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractAudio pulls one audio stream out of a container as mono PCM WAV at
// the requested sample rate. streamIndex is the absolute stream index as
// reported by ffprobe.
func (f *FFmpeg) ExtractAudio(ctx context.Context, source string, streamIndex, sampleRate int, dest string) error {
	if streamIndex < 0 {
		return fmt.Errorf("extract audio: invalid audio stream index %d", streamIndex)
	}
	args := BuildExtractArgs(source, streamIndex, sampleRate, dest)
	f.logger.Debug("extracting audio",
		logging.String("source", source),
		logging.Int("stream", streamIndex),
		logging.Int("sample_rate", sampleRate),
	)
	if err := f.runner(ctx, f.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// BuildExtractArgs returns the argument list for ExtractAudio.
func BuildExtractArgs(source string, streamIndex, sampleRate int, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", fmt.Sprintf("0:%d", streamIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ChangeTempo re-times an audio file by the given playback rate without
// shifting pitch. Rates outside atempo's [0.5, 2.0] range are expressed as a
// filter chain.
func (f *FFmpeg) ChangeTempo(ctx context.Context, source string, rate float64, dest string) error {
	if rate <= 0 {
		return fmt.Errorf("change tempo: invalid rate %v", rate)
	}
	args := BuildTempoArgs(source, rate, dest)
	f.logger.Debug("changing tempo",
		logging.String("source", source),
		logging.Float64("rate", rate),
	)
	if err := f.runner(ctx, f.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg atempo: %w", err)
	}
	return nil
}

// BuildTempoArgs returns the argument list for ChangeTempo.
func BuildTempoArgs(source string, rate float64, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-filter:a", AtempoChain(rate),
		"-c:a", "pcm_s16le",
		dest,
	}
}

// AtempoChain renders a playback rate as one or more atempo filter links.
// A single atempo link accepts [0.5, 2.0]; anything outside decomposes into
// links inside that range.
func AtempoChain(rate float64) string {
	var links []string
	for rate > 2.0 {
		links = append(links, "atempo=2.0")
		rate /= 2.0
	}
	for rate < 0.5 {
		links = append(links, "atempo=0.5")
		rate /= 0.5
	}
	links = append(links, "atempo="+strconv.FormatFloat(rate, 'f', -1, 64))
	return strings.Join(links, ",")
}

// ConvertToWAV transcodes any audio file (typically engine mp3 output) to
// mono PCM WAV at the requested sample rate.
func (f *FFmpeg) ConvertToWAV(ctx context.Context, source string, sampleRate int, dest string) error {
	args := BuildConvertArgs(source, sampleRate, dest)
	if err := f.runner(ctx, f.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg convert: %w", err)
	}
	return nil
}

// BuildConvertArgs returns the argument list for ConvertToWAV.
func BuildConvertArgs(source string, sampleRate int, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		dest,
	}
}
