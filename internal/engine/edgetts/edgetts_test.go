package edgetts

import (
	"context"
	"reflect"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(Request{
		Text:       "Salam dünya",
		Voice:      "az-AZ-BabekNeural",
		RatePct:    12,
		VolumePct:  -5,
		PitchHz:    8,
		OutputPath: "/work/clip.mp3",
	})
	want := []string{
		"--voice", "az-AZ-BabekNeural",
		"--text", "Salam dünya",
		"--write-media", "/work/clip.mp3",
		"--rate=+12%",
		"--volume=-5%",
		"--pitch=+8Hz",
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("BuildArgs = %v, want %v", args, want)
	}
}

func TestBuildArgsNeutralProsody(t *testing.T) {
	args := BuildArgs(Request{
		Text:       "Salam",
		Voice:      "az-AZ-BanuNeural",
		OutputPath: "/work/clip.mp3",
	})
	want := []string{
		"--voice", "az-AZ-BanuNeural",
		"--text", "Salam",
		"--write-media", "/work/clip.mp3",
		"--rate=+0%",
		"--volume=+0%",
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("BuildArgs = %v, want %v", args, want)
	}
}

func TestSynthesizeValidates(t *testing.T) {
	c := New("")
	c.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("runner must not be called on invalid input")
		return nil
	})

	cases := []Request{
		{Voice: "v", OutputPath: "o"},
		{Text: "t", OutputPath: "o"},
		{Text: "t", Voice: "v"},
	}
	for _, req := range cases {
		if err := c.Synthesize(context.Background(), req); err == nil {
			t.Fatalf("expected validation error for %+v", req)
		}
	}
}

func TestSynthesizeUsesConfiguredBinary(t *testing.T) {
	c := New("/opt/tts/edge-tts")
	var gotName string
	var gotArgs []string
	c.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	req := Request{Text: "Salam", Voice: "az-AZ-BabekNeural", OutputPath: "/tmp/out.mp3"}
	if err := c.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotName != "/opt/tts/edge-tts" {
		t.Fatalf("binary = %q", gotName)
	}
	if !reflect.DeepEqual(gotArgs, BuildArgs(req)) {
		t.Fatalf("args = %v", gotArgs)
	}
}
