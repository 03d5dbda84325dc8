package engine

import (
	"fmt"
	"log/slog"
	"math"

	"overdub/internal/config"
	"overdub/internal/engine/edgetts"
	"overdub/internal/engine/openai"
	"overdub/internal/engine/whisperx"
	"overdub/internal/media/ffmpegcmd"
	"overdub/internal/services"
)

// Build assembles the engine set the configuration selects. A single
// OpenAI client is shared by every OpenAI-backed engine. ffmpeg is used by
// the synthesizers to convert rendered MP3 audio to WAV.
func Build(cfg *config.Config, ffmpeg *ffmpegcmd.FFmpeg, logger *slog.Logger) (Set, error) {
	var set Set

	var apiClient *openai.Client
	ensureClient := func() (*openai.Client, error) {
		if apiClient != nil {
			return apiClient, nil
		}
		client, err := openai.New(openai.Config{
			APIKey:          cfg.OpenAI.APIKey,
			BaseURL:         cfg.OpenAI.BaseURL,
			ChatModel:       cfg.OpenAI.ChatModel,
			TranscribeModel: cfg.OpenAI.TranscribeModel,
			TTSModel:        cfg.OpenAI.TTSModel,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "engine", "openai client",
				"OpenAI client could not be constructed; check openai.api_key", err)
		}
		apiClient = client
		return apiClient, nil
	}

	switch cfg.Transcription.Engine {
	case "whisperx":
		runner := whisperx.New(whisperx.Config{
			Model:       cfg.Transcription.Model,
			CUDAEnabled: cfg.Transcription.CUDA,
			UvxBinary:   cfg.UvxBinary(),
		})
		set.Transcriber = newWhisperXTranscriber(runner, logger)
	case "openai":
		client, err := ensureClient()
		if err != nil {
			return Set{}, err
		}
		set.Transcriber = &openaiTranscriber{client: client}
	default:
		return Set{}, fmt.Errorf("unknown transcription engine %q", cfg.Transcription.Engine)
	}

	switch cfg.Translation.Engine {
	case "openai":
		client, err := ensureClient()
		if err != nil {
			return Set{}, err
		}
		set.Translator = &openaiTranslator{client: client, preserveTags: cfg.Translation.PreserveTags}
	default:
		return Set{}, fmt.Errorf("unknown translation engine %q", cfg.Translation.Engine)
	}

	switch cfg.Synthesis.Engine {
	case "edge":
		set.Synthesizer = &edgeSynthesizer{
			client:     edgetts.New(cfg.EdgeTTSBinary()),
			ffmpeg:     ffmpeg,
			ratePct:    prosodyPct(cfg.Synthesis.Rate.Default),
			volumePct:  prosodyPct(cfg.Synthesis.Volume.Default),
			sampleRate: cfg.Audio.OutputSampleRate,
		}
	case "openai":
		client, err := ensureClient()
		if err != nil {
			return Set{}, err
		}
		set.Synthesizer = &openaiSynthesizer{
			client:     client,
			ffmpeg:     ffmpeg,
			speed:      cfg.Synthesis.Rate.Default,
			sampleRate: cfg.Audio.OutputSampleRate,
		}
	default:
		return Set{}, fmt.Errorf("unknown synthesis engine %q", cfg.Synthesis.Engine)
	}

	// Both transcription backends emit word timestamps and detect the
	// spoken language. Pitch shaping needs the edge-tts prosody controls.
	set.Capabilities = Capabilities{
		WordTimestamps: true,
		LanguageDetect: true,
		PitchControl:   cfg.Synthesis.Engine == "edge",
	}
	return set, nil
}

// prosodyPct converts a multiplier into the percent offset edge-tts
// expects: 1.0 is neutral, 1.1 reads as +10%.
func prosodyPct(multiplier float64) int {
	if multiplier <= 0 {
		return 0
	}
	return int(math.Round((multiplier - 1) * 100))
}
