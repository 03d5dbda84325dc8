package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"overdub/internal/config"
)

// Requirement defines an external dependency Overdub relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the external binaries the configured engine selection
// needs. ffmpeg and ffprobe are always required; the transcription and
// synthesis engines add their own launchers.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio extraction, alignment, and muxing",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
	}
	if cfg.Transcription.Engine == "whisperx" {
		reqs = append(reqs, Requirement{
			Name:        "uvx",
			Command:     cfg.UvxBinary(),
			Description: "Required for WhisperX transcription",
		})
	}
	if cfg.Synthesis.Engine == "edge" {
		reqs = append(reqs, Requirement{
			Name:        "edge-tts",
			Command:     cfg.EdgeTTSBinary(),
			Description: "Required for Edge speech synthesis",
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
