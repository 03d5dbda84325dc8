package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"overdub/internal/engine/whisperx"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
	"overdub/internal/services"
)

// whisperxTranscriber adapts the WhisperX CLI runner. When CUDA is
// configured, a failed GPU invocation is retried once on CPU before the
// error surfaces; the fallback sticks for the rest of the process so every
// later clip skips the doomed GPU attempt.
type whisperxTranscriber struct {
	runner  *whisperx.Runner
	logger  *slog.Logger
	cpuOnly bool
}

func newWhisperXTranscriber(runner *whisperx.Runner, logger *slog.Logger) *whisperxTranscriber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &whisperxTranscriber{runner: runner, logger: logger}
}

func (t *whisperxTranscriber) Name() string { return "whisperx" }

func (t *whisperxTranscriber) Transcribe(ctx context.Context, audioPath, language string) (Transcription, error) {
	outputDir := filepath.Join(filepath.Dir(audioPath), "whisperx")

	cuda := t.runner.CUDAEnabled() && !t.cpuOnly
	result, err := t.runner.Transcribe(ctx, audioPath, outputDir, language, cuda)
	if err != nil && cuda && ctx.Err() == nil {
		t.logger.Warn("whisperx GPU invocation failed; falling back to CPU",
			logging.String(logging.FieldEventType, "whisperx_cuda_fallback"),
			logging.String(logging.FieldErrorHint, "check CUDA drivers and GPU memory"),
			logging.String(logging.FieldImpact, "transcription continues on CPU at reduced speed"),
			logging.Error(err),
		)
		t.cpuOnly = true
		result, err = t.runner.Transcribe(ctx, audioPath, outputDir, language, false)
	}
	if err != nil {
		return Transcription{}, services.Wrap(services.ErrTranscription, "dubbing", "whisperx transcribe",
			"WhisperX failed to transcribe the clip", err)
	}
	return fromWhisperXResult(result), nil
}

func fromWhisperXResult(result whisperx.Result) Transcription {
	out := Transcription{
		Text:       result.Text(),
		Confidence: result.AverageScore(),
		Language:   strings.TrimSpace(result.Language),
	}
	for _, seg := range result.Segments {
		for _, word := range seg.Words {
			text := strings.TrimSpace(word.Word)
			if text == "" {
				continue
			}
			out.Words = append(out.Words, pipeline.Word{Text: text, Start: word.Start, End: word.End})
		}
	}
	return out
}
