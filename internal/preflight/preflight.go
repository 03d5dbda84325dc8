package preflight

import (
	"context"

	"overdub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Working directory", cfg.Paths.WorkingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDiskSpace("Working directory space", cfg.Paths.WorkingDir),
	}

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckBinaries(ctx, cfg)...)

	if usesOpenAI(cfg) {
		results = append(results, CheckOpenAIKey(cfg))
	}

	return results
}

// usesOpenAI reports whether any configured engine talks to the OpenAI
// API. Translation always does; transcription and synthesis only when
// selected.
func usesOpenAI(cfg *config.Config) bool {
	return cfg.Translation.Engine == "openai" ||
		cfg.Transcription.Engine == "openai" ||
		cfg.Synthesis.Engine == "openai"
}
