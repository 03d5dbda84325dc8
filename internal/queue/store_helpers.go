package queue

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const jobColumns = "id, source_path, source_fingerprint, title, source_language, target_language, status, audio_file, dubbed_audio_file, subtitle_file, final_file, job_log_path, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, segments_total, segments_completed, segments_failed, drift_warnings, metadata_json, last_heartbeat, needs_review, review_reason"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id                int64
		sourcePath        sql.NullString
		fingerprint       sql.NullString
		title             sql.NullString
		sourceLanguage    sql.NullString
		targetLanguage    sql.NullString
		statusStr         string
		audioFile         sql.NullString
		dubbedAudioFile   sql.NullString
		subtitleFile      sql.NullString
		finalFile         sql.NullString
		jobLogPath        sql.NullString
		errorMessage      sql.NullString
		createdRaw        sql.NullString
		updatedRaw        sql.NullString
		progressStage     sql.NullString
		progressPercent   sql.NullFloat64
		progressMessage   sql.NullString
		segmentsTotal     sql.NullInt64
		segmentsCompleted sql.NullInt64
		segmentsFailed    sql.NullInt64
		driftWarnings     sql.NullInt64
		metadata          sql.NullString
		lastHeartbeatRaw  sql.NullString
		needsReview       sql.NullInt64
		reviewReason      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&fingerprint,
		&title,
		&sourceLanguage,
		&targetLanguage,
		&statusStr,
		&audioFile,
		&dubbedAudioFile,
		&subtitleFile,
		&finalFile,
		&jobLogPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&segmentsTotal,
		&segmentsCompleted,
		&segmentsFailed,
		&driftWarnings,
		&metadata,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:                id,
		SourcePath:        sourcePath.String,
		SourceFingerprint: fingerprint.String,
		Title:             title.String,
		SourceLanguage:    sourceLanguage.String,
		TargetLanguage:    targetLanguage.String,
		Status:            Status(statusStr),
		AudioFile:         audioFile.String,
		DubbedAudioFile:   dubbedAudioFile.String,
		SubtitleFile:      subtitleFile.String,
		FinalFile:         finalFile.String,
		JobLogPath:        jobLogPath.String,
		ErrorMessage:      errorMessage.String,
		ProgressStage:     progressStage.String,
		ProgressPercent:   progressPercent.Float64,
		ProgressMessage:   progressMessage.String,
		SegmentsTotal:     int(segmentsTotal.Int64),
		SegmentsCompleted: int(segmentsCompleted.Int64),
		SegmentsFailed:    int(segmentsFailed.Int64),
		DriftWarnings:     int(driftWarnings.Int64),
		MetadataJSON:      metadata.String,
	}
	if needsReview.Valid {
		job.NeedsReview = needsReview.Int64 != 0
	}
	job.ReviewReason = reviewReason.String

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func inferTitleFromPath(sourcePath string) string {
	base := filepath.Base(strings.TrimSpace(sourcePath))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return ""
	}
	return cases.Title(language.Und).String(title)
}
