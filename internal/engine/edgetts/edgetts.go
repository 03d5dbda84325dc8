// Package edgetts drives the edge-tts command line tool, which renders text
// through the Microsoft Edge neural voices and writes MP3 output.
package edgetts

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBinary is the edge-tts launcher on PATH.
const DefaultBinary = "edge-tts"

// Request describes one synthesis invocation. Prosody values are offsets
// from the voice's neutral delivery: RatePct and VolumePct in percent,
// PitchHz in Hertz. Zero means neutral.
type Request struct {
	Text       string
	Voice      string
	RatePct    int
	VolumePct  int
	PitchHz    int
	OutputPath string
}

// Client shells out to edge-tts.
type Client struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// New creates a client for the given binary path; empty means PATH lookup.
func New(binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Client) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	c.commandRunner = runner
}

// Synthesize renders the request to its MP3 output path.
func (c *Client) Synthesize(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("edge-tts: text required")
	}
	if req.Voice == "" {
		return fmt.Errorf("edge-tts: voice required")
	}
	if req.OutputPath == "" {
		return fmt.Errorf("edge-tts: output path required")
	}
	return c.run(ctx, c.binary, BuildArgs(req)...)
}

// BuildArgs constructs the edge-tts command line. Prosody flags use the
// single-argument equals form because the tool's parser rejects a leading
// sign in a separate argument.
func BuildArgs(req Request) []string {
	args := []string{
		"--voice", req.Voice,
		"--text", req.Text,
		"--write-media", req.OutputPath,
		fmt.Sprintf("--rate=%+d%%", req.RatePct),
		fmt.Sprintf("--volume=%+d%%", req.VolumePct),
	}
	if req.PitchHz != 0 {
		args = append(args, fmt.Sprintf("--pitch=%+dHz", req.PitchHz))
	}
	return args
}

func (c *Client) run(ctx context.Context, name string, args ...string) error {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
