package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"overdub/internal/config"
	"overdub/internal/logging"
	"overdub/internal/queue"
)

// JobLogger manages the dedicated log file every job accumulates across
// stages and lanes.
type JobLogger struct {
	baseDir string
	cfg     *config.Config
}

// NewJobLogger creates a new job logger.
func NewJobLogger(cfg *config.Config) *JobLogger {
	dir := ""
	if cfg != nil && cfg.Paths.LogDir != "" {
		dir = filepath.Join(cfg.Paths.LogDir, "jobs")
	}
	return &JobLogger{baseDir: dir, cfg: cfg}
}

// Ensure prepares the log directory and file path for a job. The path is
// recorded on the job so every later stage appends to the same file.
func (j *JobLogger) Ensure(job *queue.Job) (string, bool, error) {
	if job == nil {
		return "", false, fmt.Errorf("queue job is nil")
	}
	if strings.TrimSpace(j.baseDir) == "" {
		return "", false, fmt.Errorf("job log directory not configured")
	}
	created := false
	if strings.TrimSpace(job.JobLogPath) == "" {
		filename := j.filename(job)
		if filename == "" {
			filename = fmt.Sprintf("job-%d.log", job.ID)
		}
		job.JobLogPath = filepath.Join(j.baseDir, filename)
		created = true
	}
	if err := os.MkdirAll(filepath.Dir(job.JobLogPath), 0o755); err != nil {
		return "", false, fmt.Errorf("ensure job log directory: %w", err)
	}
	return job.JobLogPath, created, nil
}

// CreateHandler builds a slog.Handler writing to the specified path.
func (j *JobLogger) CreateHandler(path string) (slog.Handler, error) {
	level := "info"
	format := "json"
	if j.cfg != nil {
		if strings.TrimSpace(j.cfg.Logging.Level) != "" {
			level = j.cfg.Logging.Level
		}
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           format,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	})
	if err != nil {
		return nil, err
	}
	return logger.Handler(), nil
}

func (j *JobLogger) filename(job *queue.Job) string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	fingerprint := strings.TrimSpace(job.SourceFingerprint)
	if fingerprint == "" {
		fingerprint = fmt.Sprintf("job-%d", job.ID)
	}
	if len(fingerprint) > 12 {
		fingerprint = fingerprint[:12]
	}
	title := sanitizeSlug(job.Title)
	if title == "" {
		title = "untitled"
	}
	return fmt.Sprintf("%s-%s-%s.log", timestamp, fingerprint, title)
}

func sanitizeSlug(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(value))
	lastDash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(builder.String(), "-")
	return slug
}
