package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestModelDefaults(t *testing.T) {
	client, err := New(Config{APIKey: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := client.ChatModel(); got != DefaultChatModel {
		t.Fatalf("ChatModel() = %q", got)
	}
	if got := client.TranscribeModel(); got != DefaultTranscribeModel {
		t.Fatalf("TranscribeModel() = %q", got)
	}
	if got := client.TTSModel(); got != DefaultTTSModel {
		t.Fatalf("TTSModel() = %q", got)
	}
}

func TestCompleteReturnsAssistantText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["model"] != "demo-model" {
			t.Fatalf("model = %v", req["model"])
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": "  Salam dünya  ",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test", BaseURL: server.URL, ChatModel: "demo-model"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := client.Complete(context.Background(), "translate", "Hello world")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Salam dünya" {
		t.Fatalf("Complete() = %q", got)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Complete(context.Background(), "translate", "Hello"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestTranscribeParsesVerboseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		payload := map[string]any{
			"task":     "transcribe",
			"language": "english",
			"duration": 2.4,
			"text":     "Hello there.",
			"segments": []any{
				map[string]any{
					"id": 0, "start": 0.0, "end": 2.4,
					"text": "Hello there.", "avg_logprob": -0.25,
				},
			},
			"words": []any{
				map[string]any{"word": "Hello", "start": 0.0, "end": 0.5},
				map[string]any{"word": "there.", "start": 0.6, "end": 1.1},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "seg-0001.wav")
	if err := os.WriteFile(audioPath, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	client, err := New(Config{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := client.Transcribe(context.Background(), audioPath, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "Hello there." {
		t.Fatalf("Text = %q", resp.Text)
	}
	if len(resp.Words) != 2 || resp.Words[1].Word != "there." {
		t.Fatalf("Words = %+v", resp.Words)
	}
	if len(resp.Segments) != 1 || resp.Segments[0].AvgLogprob != -0.25 {
		t.Fatalf("Segments = %+v", resp.Segments)
	}
}

func TestSynthesizeToFileStreamsAudio(t *testing.T) {
	const audio = "ID3 fake mp3 payload"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["voice"] != "onyx" {
			t.Fatalf("voice = %v", req["voice"])
		}
		if req["speed"] != 1.25 {
			t.Fatalf("speed = %v", req["speed"])
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		if _, err := w.Write([]byte(audio)); err != nil {
			t.Fatalf("write response: %v", err)
		}
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "clip.mp3")
	if err := client.SynthesizeToFile(context.Background(), "Salam", "onyx", 1.25, dest); err != nil {
		t.Fatalf("SynthesizeToFile: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != audio {
		t.Fatalf("output = %q", data)
	}
}
