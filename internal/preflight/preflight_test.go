package preflight

import (
	"context"
	"path/filepath"
	"testing"

	"overdub/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("Working directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for %s: %s", dir, result.Detail)
	}

	missing := filepath.Join(dir, "missing")
	result = CheckDirectoryAccess("Working directory", missing)
	if result.Passed {
		t.Fatal("expected failure for missing directory")
	}
}

func TestCheckOpenAIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.OpenAI.APIKey = ""
	t.Setenv("OPENAI_API_KEY", "")
	if result := CheckOpenAIKey(cfg); result.Passed {
		t.Fatal("expected failure without an API key")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	if result := CheckOpenAIKey(cfg); !result.Passed {
		t.Fatalf("expected env key to satisfy the check: %s", result.Detail)
	}
}

func TestRunAllReportsMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv("PATH", t.TempDir())

	results := RunAll(context.Background(), cfg)
	var ffmpeg *Result
	for i := range results {
		if results[i].Name == "FFmpeg" {
			ffmpeg = &results[i]
		}
	}
	if ffmpeg == nil {
		t.Fatal("FFmpeg check missing from results")
	}
	if ffmpeg.Passed {
		t.Fatal("expected FFmpeg check to fail for a missing binary")
	}
}
