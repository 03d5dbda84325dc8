package subtitles_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"overdub/internal/subtitles"
)

func writeSubtitle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dubbed.srt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateSRTContentFlagsEmptyFile(t *testing.T) {
	path := writeSubtitle(t, "  \n\n ")
	issues := subtitles.ValidateSRTContent(path, 0)
	if len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("issues = %v, want [empty_subtitle_file]", issues)
	}
}

func TestValidateSRTContentFlagsUnparseableTimestamps(t *testing.T) {
	path := writeSubtitle(t, "1\nnot --> a timestamp\nhello\n")
	issues := subtitles.ValidateSRTContent(path, 0)
	if len(issues) != 1 || issues[0] != "no_valid_timestamps" {
		t.Fatalf("issues = %v, want [no_valid_timestamps]", issues)
	}
}

func TestValidateSRTContentFlagsReversedCue(t *testing.T) {
	path := writeSubtitle(t, "1\n00:00:05,000 --> 00:00:02,000\nhello\n")
	issues := subtitles.ValidateSRTContent(path, 0)
	if len(issues) != 1 || !strings.HasPrefix(issues[0], "reversed_cue") {
		t.Fatalf("issues = %v, want a reversed_cue warning", issues)
	}
}

func TestValidateSRTContentFlagsCuesFarPastMedia(t *testing.T) {
	path := writeSubtitle(t, "1\n00:01:00,000 --> 00:02:00,000\nhello\n")

	if issues := subtitles.ValidateSRTContent(path, 115); len(issues) != 0 {
		t.Fatalf("cues within slack should pass, got %v", issues)
	}
	issues := subtitles.ValidateSRTContent(path, 60)
	if len(issues) != 1 || !strings.HasPrefix(issues[0], "duration_mismatch") {
		t.Fatalf("issues = %v, want a duration_mismatch warning", issues)
	}
}

func TestValidateSRTContentAcceptsPeriodMilliseconds(t *testing.T) {
	path := writeSubtitle(t, "1\n00:00:01.000 --> 00:00:02.500\nhello\n")
	if issues := subtitles.ValidateSRTContent(path, 10); len(issues) != 0 {
		t.Fatalf("period-millisecond timestamps should parse, got %v", issues)
	}
}
