package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVAD()
	c.normalizeLanguages()
	c.normalizeEngines()
	c.normalizeOpenAI()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkingDir, err = expandPath(c.Paths.WorkingDir); err != nil {
		return fmt.Errorf("paths.working_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.VAD.ModelPath) != "" {
		if c.VAD.ModelPath, err = expandPath(c.VAD.ModelPath); err != nil {
			return fmt.Errorf("vad.model_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeVAD() {
	c.VAD.Engine = strings.ToLower(strings.TrimSpace(c.VAD.Engine))
	if c.VAD.Engine == "" {
		c.VAD.Engine = defaultVADEngine
	}
}

func (c *Config) normalizeLanguages() {
	c.Transcription.Language = normalizeLanguageValue(c.Transcription.Language)
	c.Translation.SourceLanguage = normalizeLanguageValue(c.Translation.SourceLanguage)
	c.Translation.TargetLanguage = normalizeLanguageValue(c.Translation.TargetLanguage)

	normalizeVoiceMap(c.Synthesis.MaleVoices)
	normalizeVoiceMap(c.Synthesis.FemaleVoices)
}

func normalizeLanguageValue(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "auto"
	}
	return value
}

func normalizeVoiceMap(voices map[string]string) {
	for lang, voice := range voices {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		trimmed := strings.TrimSpace(voice)
		if normalized == lang && trimmed == voice {
			continue
		}
		delete(voices, lang)
		if trimmed != "" {
			voices[normalized] = trimmed
		}
	}
}

func (c *Config) normalizeEngines() {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	if c.Transcription.Engine == "" {
		c.Transcription.Engine = defaultTranscriptionEngine
	}
	c.Translation.Engine = strings.ToLower(strings.TrimSpace(c.Translation.Engine))
	if c.Translation.Engine == "" {
		c.Translation.Engine = defaultTranslationEngine
	}
	c.Synthesis.Engine = strings.ToLower(strings.TrimSpace(c.Synthesis.Engine))
	if c.Synthesis.Engine == "" {
		c.Synthesis.Engine = defaultSynthesisEngine
	}
	c.Synthesis.DefaultVoice = strings.TrimSpace(c.Synthesis.DefaultVoice)

	if c.Transcription.AttemptTimeoutSec <= 0 {
		c.Transcription.AttemptTimeoutSec = defaultTranscriptionTimeoutSec
	}
	if c.Translation.AttemptTimeoutSec <= 0 {
		c.Translation.AttemptTimeoutSec = defaultTranslationTimeoutSec
	}
	if c.Synthesis.AttemptTimeoutSec <= 0 {
		c.Synthesis.AttemptTimeoutSec = defaultSynthesisTimeoutSec
	}
	if c.Transcription.MaxAttempts <= 0 {
		c.Transcription.MaxAttempts = defaultMaxAttempts
	}
	if c.Translation.MaxAttempts <= 0 {
		c.Translation.MaxAttempts = defaultMaxAttempts
	}
	if c.Synthesis.MaxAttempts <= 0 {
		c.Synthesis.MaxAttempts = defaultMaxAttempts
	}
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.OpenAI.APIKey = strings.TrimSpace(value)
	}
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)
	c.OpenAI.ChatModel = strings.TrimSpace(c.OpenAI.ChatModel)
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = defaultOpenAIChatModel
	}
	c.OpenAI.TranscribeModel = strings.TrimSpace(c.OpenAI.TranscribeModel)
	if c.OpenAI.TranscribeModel == "" {
		c.OpenAI.TranscribeModel = defaultOpenAITranscribeModel
	}
	c.OpenAI.TTSModel = strings.TrimSpace(c.OpenAI.TTSModel)
	if c.OpenAI.TTSModel == "" {
		c.OpenAI.TTSModel = defaultOpenAITTSModel
	}
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.ErrorMode = strings.ToLower(strings.TrimSpace(c.Workflow.ErrorMode))
	if c.Workflow.ErrorMode == "" {
		c.Workflow.ErrorMode = defaultErrorMode
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
