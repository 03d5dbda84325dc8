// Package openai wraps the OpenAI REST surface the dubbing engines use:
// Whisper transcription with word timestamps, chat completions for
// translation, and speech synthesis. It is a thin client; retries, fallback
// and audio post-processing live in the engine layer.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"
)

// Default model names used when the configuration leaves them empty.
const (
	DefaultChatModel       = "gpt-4o-mini"
	DefaultTranscribeModel = string(gopenai.Whisper1)
	DefaultTTSModel        = string(gopenai.TTSModel1)
)

// Config captures the account and model settings for one client.
type Config struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	TranscribeModel string
	TTSModel        string
}

// Client talks to the OpenAI API (or a compatible endpoint via BaseURL).
type Client struct {
	api *gopenai.Client
	cfg Config
}

// New builds a client. The API key is required; BaseURL overrides the
// endpoint for compatible providers.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key required")
	}
	apiCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{api: gopenai.NewClientWithConfig(apiCfg), cfg: cfg}, nil
}

// ChatModel returns the effective chat model name.
func (c *Client) ChatModel() string {
	if c.cfg.ChatModel != "" {
		return c.cfg.ChatModel
	}
	return DefaultChatModel
}

// TranscribeModel returns the effective transcription model name.
func (c *Client) TranscribeModel() string {
	if c.cfg.TranscribeModel != "" {
		return c.cfg.TranscribeModel
	}
	return DefaultTranscribeModel
}

// TTSModel returns the effective speech model name.
func (c *Client) TTSModel() string {
	if c.cfg.TTSModel != "" {
		return c.cfg.TTSModel
	}
	return DefaultTTSModel
}

// Transcribe sends one audio file through Whisper and returns the verbose
// response with segment and word timestamps. language may be empty for
// detection; when set it must be an ISO-639-1 code.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (gopenai.AudioResponse, error) {
	req := gopenai.AudioRequest{
		Model:    c.TranscribeModel(),
		FilePath: audioPath,
		Format:   gopenai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []gopenai.TranscriptionTimestampGranularity{
			gopenai.TranscriptionTimestampGranularitySegment,
			gopenai.TranscriptionTimestampGranularityWord,
		},
	}
	if language != "" {
		req.Language = language
	}
	resp, err := c.api.CreateTranscription(ctx, req)
	if err != nil {
		return resp, fmt.Errorf("openai transcription: %w", err)
	}
	return resp, nil
}

// Complete sends a system+user chat exchange and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: c.ChatModel(),
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: system},
			{Role: gopenai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: empty choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai chat: empty completion")
	}
	return content, nil
}

// SynthesizeToFile renders text to speech and streams the MP3 response to
// dest. speed follows the API contract (0.25 to 4.0, 1.0 neutral).
func (c *Client) SynthesizeToFile(ctx context.Context, text, voice string, speed float64, dest string) error {
	resp, err := c.api.CreateSpeech(ctx, gopenai.CreateSpeechRequest{
		Model:          gopenai.SpeechModel(c.TTSModel()),
		Input:          text,
		Voice:          gopenai.SpeechVoice(voice),
		ResponseFormat: gopenai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("openai speech: create output: %w", err)
	}
	if _, err := io.Copy(out, resp); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("openai speech: write output: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("openai speech: close output: %w", err)
	}
	return nil
}
