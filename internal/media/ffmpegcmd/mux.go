package ffmpegcmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"overdub/internal/logging"
)

// MuxRequest describes the final container assembly: the dubbed track
// replaces the original audio, optionally mixed over a quiet original-audio
// bed, with subtitles attached softly or burned into the picture.
type MuxRequest struct {
	VideoPath    string
	DubbedAudio  string
	SubtitlePath string
	OutputPath   string

	KeepOriginalAudio bool
	OriginalVolume    float64
	BurnSubtitles     bool

	VideoCodec   string
	CRF          int
	Preset       string
	AudioCodec   string
	AudioBitrate string
}

// Mux runs the final container assembly.
func (f *FFmpeg) Mux(ctx context.Context, req MuxRequest) error {
	args, err := BuildMuxArgs(req)
	if err != nil {
		return err
	}
	f.logger.Debug("muxing output",
		logging.String("video", req.VideoPath),
		logging.String("output", req.OutputPath),
	)
	if err := f.runner(ctx, f.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg mux: %w", err)
	}
	return nil
}

// BuildMuxArgs returns the argument list for Mux.
func BuildMuxArgs(req MuxRequest) ([]string, error) {
	if req.VideoPath == "" || req.DubbedAudio == "" || req.OutputPath == "" {
		return nil, fmt.Errorf("mux: video, dubbed audio, and output paths required")
	}
	if req.BurnSubtitles && req.SubtitlePath == "" {
		return nil, fmt.Errorf("mux: burn-in requested without a subtitle file")
	}

	softSubs := req.SubtitlePath != "" && !req.BurnSubtitles

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", req.VideoPath,
		"-i", req.DubbedAudio,
	}
	if softSubs {
		args = append(args, "-i", req.SubtitlePath)
	}

	if req.KeepOriginalAudio {
		filter := fmt.Sprintf(
			"[0:a]volume=%s[bed];[1:a][bed]amix=inputs=2:duration=first[aout]",
			strconv.FormatFloat(req.OriginalVolume, 'f', -1, 64),
		)
		args = append(args, "-filter_complex", filter, "-map", "0:v", "-map", "[aout]")
	} else {
		args = append(args, "-map", "0:v", "-map", "1:a")
	}
	if softSubs {
		args = append(args, "-map", "2:s")
	}

	videoCodec := req.VideoCodec
	if videoCodec == "" {
		videoCodec = "copy"
	}
	if req.BurnSubtitles {
		// Burning rewrites every frame, so stream copy is impossible.
		if videoCodec == "copy" {
			videoCodec = "libx264"
		}
		args = append(args, "-vf", "subtitles="+escapeFilterPath(req.SubtitlePath))
	}
	args = append(args, "-c:v", videoCodec)
	if videoCodec != "copy" {
		args = append(args,
			"-preset", req.Preset,
			"-crf", strconv.Itoa(req.CRF),
		)
	}

	args = append(args, "-c:a", req.AudioCodec, "-b:a", req.AudioBitrate)
	if softSubs {
		args = append(args, "-c:s", subtitleCodecFor(req.OutputPath))
	}

	args = append(args, req.OutputPath)
	return args, nil
}

// subtitleCodecFor picks the subtitle codec the target container accepts.
func subtitleCodecFor(outputPath string) string {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mp4", ".m4v", ".mov":
		return "mov_text"
	default:
		return "srt"
	}
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter argument,
// where ':' separates options and '\' escapes.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return "'" + path + "'"
}
