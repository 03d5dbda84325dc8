package subtitles

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/pipeline"
)

// Cue is one subtitle display unit on the dubbed timeline.
type Cue struct {
	Index int      `json:"index"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Lines []string `json:"lines"`
}

// Generator shapes translated text into subtitle cues positioned on the
// aligned timeline.
type Generator struct {
	cfg    config.Subtitles
	logger *slog.Logger
}

// NewGenerator builds a generator from the subtitle configuration.
func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		cfg:    cfg.Subtitles,
		logger: logging.NewComponentLogger(logger, "subtitles"),
	}
}

// Generate builds the ordered cue sequence for the dubbed track. Cue
// timestamps come from the aligned clips, never from the source segments:
// a shifted or stretched clip carries its subtitle with it. Text wider than
// the line limit wraps, and text taller than the line count splits into
// additional cues over the same time window.
func (g *Generator) Generate(translations []pipeline.Translation, aligned []pipeline.AlignedClip) []Cue {
	textByID := make(map[int]string, len(translations))
	for _, translation := range translations {
		textByID[translation.SegmentID] = translation.Text
	}

	var cues []Cue
	short, long := 0, 0
	for _, clip := range aligned {
		text := sanitizeCueText(textByID[clip.SegmentID])
		if text == "" {
			continue
		}
		duration := clip.FinalEnd - clip.FinalStart
		if duration < g.cfg.MinCueSec {
			short++
		} else if duration > g.cfg.MaxCueSec {
			long++
		}

		lines := wrapLines(text, g.cfg.MaxLineChars)
		for from := 0; from < len(lines); from += g.cfg.MaxLines {
			to := from + g.cfg.MaxLines
			if to > len(lines) {
				to = len(lines)
			}
			cues = append(cues, Cue{
				Index: len(cues) + 1,
				Start: clip.FinalStart,
				End:   clip.FinalEnd,
				Lines: lines[from:to],
			})
		}
	}

	if short+long > 0 {
		logging.WarnWithContext(g.logger, "cue durations outside the readable range", "cue_duration",
			logging.Int("too_short", short),
			logging.Int("too_long", long),
			logging.Float64("min_cue_sec", g.cfg.MinCueSec),
			logging.Float64("max_cue_sec", g.cfg.MaxCueSec),
			logging.String(logging.FieldErrorHint, "readability suffers when speech segments run very short or very long"),
			logging.String(logging.FieldImpact, "viewers may miss or re-read these cues"),
		)
	}
	g.logger.Info("subtitles generated", logging.Int("cues", len(cues)))
	return cues
}

// sanitizeCueText normalizes whitespace and strips sequences that would
// corrupt the SRT structure: blank lines end a cue early and the arrow is
// the timing separator.
func sanitizeCueText(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "-->", "→")
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}

// wrapLines greedily fills lines up to maxChars, breaking only between
// words. A single word longer than the limit stays whole on its own line.
func wrapLines(text string, maxChars int) []string {
	if maxChars <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	var lines []string
	var current strings.Builder
	for _, word := range words {
		switch {
		case current.Len() == 0:
			current.WriteString(word)
		case current.Len()+1+len(word) <= maxChars:
			current.WriteByte(' ')
			current.WriteString(word)
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// WriteSRT writes the cue sequence to path in SubRip format, replacing any
// existing file atomically.
func WriteSRT(path string, cues []Cue) error {
	var b strings.Builder
	for i, cue := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n", cue.Index,
			formatSRTTimestamp(cue.Start), formatSRTTimestamp(cue.End))
		for _, line := range cue.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace srt: %w", err)
	}
	return nil
}

func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
