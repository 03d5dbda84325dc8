package deps

import (
	"os"
	"path/filepath"
	"testing"

	"overdub/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestRequirementsFollowEngineSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.Engine = "whisperx"
	cfg.Synthesis.Engine = "edge"

	names := make(map[string]bool)
	for _, req := range Requirements(cfg) {
		names[req.Name] = true
	}
	for _, want := range []string{"FFmpeg", "FFprobe", "uvx", "edge-tts"} {
		if !names[want] {
			t.Fatalf("missing requirement %q in %v", want, names)
		}
	}

	cfg.Transcription.Engine = "openai"
	cfg.Synthesis.Engine = "openai"
	for _, req := range Requirements(cfg) {
		if req.Name == "uvx" || req.Name == "edge-tts" {
			t.Fatalf("requirement %q should not be listed for openai engines", req.Name)
		}
	}
}
