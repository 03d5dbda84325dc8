// Package engine abstracts the speech services the dubbing stage drives:
// transcription, translation, and synthesis. Each concern is an interface
// with one adapter per configured backend; Build assembles the set the
// configuration asks for. Adapters stay thin and deterministic so retries,
// timeouts, and audio post-processing can live with the caller.
package engine

import (
	"context"

	"overdub/internal/pipeline"
)

// Transcription is the recognized content of one audio clip.
type Transcription struct {
	Text       string
	Words      []pipeline.Word
	Confidence float64
	Language   string
}

// Transcriber converts one prepared WAV into text. language may be empty
// or "auto" for detection; otherwise it is an ISO-639 code.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath, language string) (Transcription, error)
}

// Translator converts text between languages. Implementations must return
// the translated text only, with no commentary.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// SynthesisRequest describes one clip to render. PitchOffsetHz shifts the
// voice's neutral pitch; zero leaves it alone. The synthesizer writes a WAV
// file at OutputPath.
type SynthesisRequest struct {
	Text          string
	VoiceID       string
	PitchOffsetHz int
	OutputPath    string
}

// Synthesizer renders target-language text as speech.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, req SynthesisRequest) error
}

// Capabilities records what the configured engine combination can do.
// Evaluated once at construction so callers never probe backends at run
// time.
type Capabilities struct {
	WordTimestamps bool
	LanguageDetect bool
	PitchControl   bool
}

// Set bundles the three engines one dubbing run uses.
type Set struct {
	Transcriber  Transcriber
	Translator   Translator
	Synthesizer  Synthesizer
	Capabilities Capabilities
}
