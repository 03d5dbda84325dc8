package engine

import (
	"context"
	"os"

	"overdub/internal/engine/edgetts"
	"overdub/internal/media/ffmpegcmd"
	"overdub/internal/services"
)

// edgeSynthesizer renders clips through the edge-tts CLI and converts the
// MP3 it writes to WAV at the output sample rate.
type edgeSynthesizer struct {
	client     *edgetts.Client
	ffmpeg     *ffmpegcmd.FFmpeg
	ratePct    int
	volumePct  int
	sampleRate int
}

func (s *edgeSynthesizer) Name() string { return "edge" }

func (s *edgeSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) error {
	mp3Path := req.OutputPath + ".mp3"
	defer os.Remove(mp3Path)

	err := s.client.Synthesize(ctx, edgetts.Request{
		Text:       req.Text,
		Voice:      req.VoiceID,
		RatePct:    s.ratePct,
		VolumePct:  s.volumePct,
		PitchHz:    req.PitchOffsetHz,
		OutputPath: mp3Path,
	})
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "dubbing", "edge-tts synthesize",
			"edge-tts failed to render the clip", err)
	}
	if err := s.ffmpeg.ConvertToWAV(ctx, mp3Path, s.sampleRate, req.OutputPath); err != nil {
		return services.Wrap(services.ErrSynthesis, "dubbing", "convert synthesis output",
			"Could not convert rendered speech to WAV", err)
	}
	return nil
}
