package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Alignment drift legitimately pushes cues past the source runtime; only
// an ending this far beyond the media points at a broken file.
const durationSlackSec = 30.0

// srtCue is the parsed timing of one cue block, kept only for validation.
type srtCue struct {
	start float64
	end   float64
}

// readCues parses the timing lines out of an SRT file. Blocks without a
// parseable timing line are counted but skipped, so validation can report
// on whatever did parse.
func readCues(path string) ([]srtCue, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read srt: %w", err)
	}
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return nil, 0, nil
	}

	blocks := 0
	var cues []srtCue
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		blocks++
		for _, line := range strings.Split(block, "\n") {
			startText, endText, ok := strings.Cut(line, "-->")
			if !ok {
				continue
			}
			start, errStart := parseSRTTimestamp(startText)
			end, errEnd := parseSRTTimestamp(endText)
			if errStart != nil || errEnd != nil {
				continue
			}
			cues = append(cues, srtCue{start: start, end: end})
			break
		}
	}
	return cues, blocks, nil
}

// parseSRTTimestamp reads an HH:MM:SS,mmm timestamp. WriteSRT always emits
// the comma form; the period variant is tolerated for files supplied from
// outside.
func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ".", ","))
	clock, millisText, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(strings.TrimSpace(millisText))
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// ValidateSRTContent inspects a subtitle file before it reaches the mux.
// Returned issues are operator warnings; an empty slice means the file
// looks sound. A mediaSeconds of zero skips the duration comparison.
func ValidateSRTContent(path string, mediaSeconds float64) []string {
	var issues []string

	cues, blocks, err := readCues(path)
	if err != nil {
		return append(issues, fmt.Sprintf("read_error: %v", err))
	}
	if blocks == 0 {
		return append(issues, "empty_subtitle_file")
	}
	if len(cues) == 0 {
		return append(issues, "no_valid_timestamps")
	}

	var last float64
	for _, cue := range cues {
		if cue.end < cue.start {
			issues = append(issues, fmt.Sprintf("reversed_cue: %.3f after %.3f", cue.end, cue.start))
		}
		if cue.end > last {
			last = cue.end
		}
	}
	if mediaSeconds > 0 && last > mediaSeconds+durationSlackSec {
		issues = append(issues, fmt.Sprintf("duration_mismatch: cues end %.1fs past the media", last-mediaSeconds))
	}
	return issues
}
