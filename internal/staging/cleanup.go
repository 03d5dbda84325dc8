// Package staging manages the per-job workspace directories that accumulate
// under working_dir/jobs. Workspaces outlive their stage runs on purpose so
// retries can reuse surviving artifacts; this package removes the ones whose
// job no longer exists in the queue and reports how much disk the rest hold.
package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"overdub/internal/logging"
	"overdub/internal/queue"
)

// CleanupResult describes the outcome of an orphan sweep.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// JobsRoot returns the directory job workspaces live under.
func JobsRoot(workingDir string) string {
	workingDir = strings.TrimSpace(workingDir)
	if workingDir == "" {
		return ""
	}
	return filepath.Join(workingDir, "jobs")
}

// CleanOrphaned removes job workspaces whose ID is no longer present in the
// queue. Workspaces of live jobs are never touched, whatever their age.
func CleanOrphaned(ctx context.Context, workingDir string, activeIDs map[int64]struct{}, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	root := JobsRoot(workingDir)
	if root == "" {
		return result
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		id, ok := workspaceJobID(entry.Name())
		if !ok {
			continue
		}
		if _, active := activeIDs[id]; active {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logger.Warn("failed to remove orphaned workspace",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check working_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed orphaned workspace",
			logging.String("path", dirPath),
			logging.Int64("job_id", id),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}

	return result
}

// DiskUsage reports the total bytes held by all job workspaces.
func DiskUsage(workingDir string) (int64, error) {
	root := JobsRoot(workingDir)
	if root == "" {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return total, err
	}
	return total, nil
}

// workspaceJobID parses the job ID out of a workspace directory name.
func workspaceJobID(name string) (int64, bool) {
	const prefix = "job-"
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(name[len(prefix):], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	if queue.WorkspaceSegment(id) != name {
		return 0, false
	}
	return id, true
}
