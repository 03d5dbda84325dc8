package engine

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"overdub/internal/engine/openai"
	"overdub/internal/language"
	"overdub/internal/media/ffmpegcmd"
	"overdub/internal/pipeline"
	"overdub/internal/services"
	"overdub/internal/textutil"
)

// openaiTranscriber adapts Whisper-over-API transcription.
type openaiTranscriber struct {
	client *openai.Client
}

func (t *openaiTranscriber) Name() string { return "openai" }

func (t *openaiTranscriber) Transcribe(ctx context.Context, audioPath, lang string) (Transcription, error) {
	iso2 := ""
	if !language.IsAuto(lang) {
		iso2 = language.ToISO2(lang)
	}
	resp, err := t.client.Transcribe(ctx, audioPath, iso2)
	if err != nil {
		return Transcription{}, services.Wrap(services.ErrTranscription, "dubbing", "openai transcribe",
			"Whisper API failed to transcribe the clip", err)
	}

	out := Transcription{
		Text:       strings.TrimSpace(resp.Text),
		Language:   strings.TrimSpace(resp.Language),
		Confidence: 1,
	}
	for _, word := range resp.Words {
		text := strings.TrimSpace(word.Word)
		if text == "" {
			continue
		}
		out.Words = append(out.Words, pipeline.Word{Text: text, Start: word.Start, End: word.End})
	}
	if len(resp.Segments) > 0 {
		var sum float64
		for _, seg := range resp.Segments {
			sum += math.Exp(seg.AvgLogprob)
		}
		out.Confidence = math.Min(1, sum/float64(len(resp.Segments)))
	}
	return out, nil
}

const translateSystemPrompt = "You are a professional dubbing translator. Translate the user's text from %s to %s. " +
	"Keep the translation natural and close in spoken length to the original. " +
	"Placeholders of the form __TAG0__, __TAG1__, ... must be preserved exactly as written. " +
	"Reply with the translation only."

// openaiTranslator adapts chat completions for translation. When tag
// preservation is on, markup is masked with placeholders before the request
// and restored afterwards so the model never rewrites it.
type openaiTranslator struct {
	client       *openai.Client
	preserveTags bool
}

func (t *openaiTranslator) Name() string { return "openai" }

func (t *openaiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	input := text
	var tags []string
	if t.preserveTags {
		input, tags = textutil.MaskTags(text)
	}

	system := fmt.Sprintf(translateSystemPrompt,
		translationLanguageLabel(sourceLang), translationLanguageLabel(targetLang))
	translated, err := t.client.Complete(ctx, system, input)
	if err != nil {
		return "", services.Wrap(services.ErrTranslation, "dubbing", "openai translate",
			"Translation request failed", err)
	}
	if t.preserveTags {
		translated = textutil.RestoreTags(translated, tags)
	}
	return strings.TrimSpace(translated), nil
}

func translationLanguageLabel(code string) string {
	if language.IsAuto(code) {
		return "the source language"
	}
	if name := language.DisplayName(code); name != "" {
		return name
	}
	return code
}

// openaiSynthesizer renders clips through the speech API. The MP3 response
// is converted to WAV at the output sample rate; the API has no pitch
// control, so PitchOffsetHz is ignored here.
type openaiSynthesizer struct {
	client     *openai.Client
	ffmpeg     *ffmpegcmd.FFmpeg
	speed      float64
	sampleRate int
}

func (s *openaiSynthesizer) Name() string { return "openai" }

func (s *openaiSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) error {
	mp3Path := req.OutputPath + ".mp3"
	defer os.Remove(mp3Path)

	if err := s.client.SynthesizeToFile(ctx, req.Text, req.VoiceID, s.speed, mp3Path); err != nil {
		return services.Wrap(services.ErrSynthesis, "dubbing", "openai synthesize",
			"Speech API failed to render the clip", err)
	}
	if err := s.ffmpeg.ConvertToWAV(ctx, mp3Path, s.sampleRate, req.OutputPath); err != nil {
		return services.Wrap(services.ErrSynthesis, "dubbing", "convert synthesis output",
			"Could not convert rendered speech to WAV", err)
	}
	return nil
}
