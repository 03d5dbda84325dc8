package organizer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"overdub/internal/config"
	"overdub/internal/fileutil"
	"overdub/internal/language"
	"overdub/internal/logging"
	"overdub/internal/queue"
	"overdub/internal/services"
	"overdub/internal/textutil"
)

// Organizer places finished dub artifacts into the output directory under
// collision-safe names.
type Organizer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs an organizer.
func New(cfg *config.Config, logger *slog.Logger) *Organizer {
	return &Organizer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "organizer"),
	}
}

// OutputName derives the final file name for a job: the source title tagged
// with the dub language, keeping the container extension. ext overrides the
// source extension when non-empty.
func (o *Organizer) OutputName(job *queue.Job, ext string) string {
	title := strings.TrimSpace(job.Title)
	if title == "" {
		base := filepath.Base(job.SourcePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if ext == "" {
		ext = filepath.Ext(job.SourcePath)
	}
	label := language.DisplayName(job.TargetLanguage)
	if label == "" {
		label = strings.ToUpper(language.ToISO2(job.TargetLanguage))
	}
	name := fmt.Sprintf("%s [%s dub]%s", title, label, ext)
	return textutil.SanitizeFileName(name)
}

// Place moves the rendered output into the output directory and copies the
// subtitle file next to it under the same base name. Returns the final
// output path. Existing files are never overwritten; colliding names get a
// numeric suffix.
func (o *Organizer) Place(job *queue.Job, outputFile, subtitleFile string) (string, error) {
	outDir := strings.TrimSpace(o.cfg.Paths.OutputDir)
	if outDir == "" {
		return "", services.Wrap(services.ErrConfiguration, "muxing", "resolve output dir",
			"output_dir is not configured", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "muxing", "create output dir",
			"Could not create the output directory", err)
	}

	dest := uniquePath(filepath.Join(outDir, o.OutputName(job, filepath.Ext(outputFile))))
	if err := fileutil.MoveFile(outputFile, dest); err != nil {
		return "", services.Wrap(services.ErrMux, "muxing", "place output",
			"Could not move the finished file into the output directory", err)
	}
	o.logger.Info("output placed", logging.String("path", dest))

	if subtitleFile != "" {
		sidecar := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".srt"
		if err := fileutil.CopyFileVerified(subtitleFile, sidecar); err != nil {
			o.logger.Warn("subtitle sidecar copy failed",
				logging.String("path", sidecar),
				logging.Error(err),
			)
		}
	}
	return dest, nil
}

// uniquePath appends " (n)" before the extension until the name is free.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
