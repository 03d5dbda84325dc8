// Package whisperx shells out to WhisperX through uvx and parses its
// aligned JSON output. Callers hand it one prepared WAV at a time; the
// engine layer decides retries and GPU fallback.
package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "overdub/internal/language"
)

// Config captures runtime settings for WhisperX invocations.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3-turbo").
	Model string
	// CUDAEnabled requests GPU acceleration and the CUDA wheel index.
	CUDAEnabled bool
	// UvxBinary overrides the uvx launcher path.
	UvxBinary string
}

// WhisperX invocation constants.
const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "10"
	BestOf            = "10"
	Temperature       = "0.0"
	Patience          = "1.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	VADMethod         = "silero"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	UVXCommand        = "uvx"
)

// Runner invokes WhisperX over single audio files.
type Runner struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// New creates a WhisperX runner with the given configuration.
func New(cfg Config) *Runner {
	if cfg.UvxBinary == "" {
		cfg.UvxBinary = UVXCommand
	}
	return &Runner{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Runner) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	r.commandRunner = runner
}

// Model returns the configured model name for logging.
func (r *Runner) Model() string {
	if r.cfg.Model != "" {
		return r.cfg.Model
	}
	return DefaultModel
}

// CUDAEnabled reports whether GPU acceleration was requested.
func (r *Runner) CUDAEnabled() bool {
	return r.cfg.CUDAEnabled
}

// run executes a command, using the custom runner if set.
func (r *Runner) run(ctx context.Context, name string, args ...string) error {
	if r.commandRunner != nil {
		return r.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	// Force legacy behavior so bundled WhisperX binaries can load checkpoints safely.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe runs WhisperX over a WAV file and parses the JSON it writes
// next to the output directory. cuda selects the device for this invocation
// so a caller can drop to CPU after a GPU failure without rebuilding the
// runner. language may be empty or "auto" for detection.
func (r *Runner) Transcribe(ctx context.Context, source, outputDir, language string, cuda bool) (Result, error) {
	var result Result

	if source == "" {
		return result, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := r.buildArgs(source, outputDir, language, cuda)
	if err := r.run(ctx, r.cfg.UvxBinary, args...); err != nil {
		return result, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	result, err := LoadResult(jsonPath)
	if err != nil {
		return result, fmt.Errorf("whisperx: %w", err)
	}
	return result, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (r *Runner) buildArgs(source, outputDir, language string, cuda bool) []string {
	args := make([]string, 0, 32)

	// Index URLs
	if cuda {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", r.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_method", VADMethod,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	// Language
	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}

	// Device
	if cuda {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Word is a single aligned word from WhisperX output. Score is the
// alignment confidence in [0,1]; zero when alignment skipped the word.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score float64 `json:"score"`
}

// Segment is one transcribed span from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Result is the parsed WhisperX payload for one audio file.
type Result struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Text concatenates the segment texts into one transcript string.
func (res Result) Text() string {
	parts := make([]string, 0, len(res.Segments))
	for _, seg := range res.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// AverageScore returns the mean word alignment score, or 1 when the output
// carries no scored words. Unscored transcripts read as fully confident so
// downstream confidence gates only act on real signal.
func (res Result) AverageScore() float64 {
	var sum float64
	var count int
	for _, seg := range res.Segments {
		for _, word := range seg.Words {
			if word.Score > 0 {
				sum += word.Score
				count++
			}
		}
	}
	if count == 0 {
		return 1
	}
	return sum / float64(count)
}

// LoadResult parses a WhisperX JSON file.
func LoadResult(jsonPath string) (Result, error) {
	var result Result
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("parse whisperx json: %w", err)
	}
	return result, nil
}
