package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"overdub/internal/config"
	"overdub/internal/deps"
)

// minFreeBytes is the working-directory headroom below which a run is
// refused. Extraction and assembly both write full-length WAV tracks.
const minFreeBytes = 2 << 30

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem behind path has enough free space
// for intermediate audio artifacts.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%.1f GiB free, need %.1f GiB)",
			path, float64(free)/(1<<30), float64(minFreeBytes)/(1<<30))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%.1f GiB free)", path, float64(free)/(1<<30))}
}

// CheckBinaries converts the dependency availability report into preflight
// results. Optional dependencies never fail the run.
func CheckBinaries(ctx context.Context, cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name}
		switch {
		case status.Available:
			result.Passed = true
			result.Detail = status.Command
		case status.Optional:
			result.Passed = true
			result.Detail = fmt.Sprintf("%s (optional)", status.Detail)
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// CheckOpenAIKey verifies an API key is configured for the OpenAI-backed
// engines. Reachability is left to the first real request; a missing key
// fails every segment, so it is caught here.
func CheckOpenAIKey(cfg *config.Config) Result {
	const name = "OpenAI API key"
	key := strings.TrimSpace(cfg.OpenAI.APIKey)
	if env := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); env != "" {
		key = env
	}
	if key == "" {
		return Result{Name: name, Detail: "missing (set [openai] api_key or OPENAI_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}
