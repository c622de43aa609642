package preflight

import (
	"context"

	"replay/internal/config"
	"replay/internal/export"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the checks that apply to cfg. Path checks are skipped when
// the path is unset; RequirePaths reports that separately.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if cfg.Paths.InputDir != "" {
		results = append(results, CheckInputDir("Input directory", cfg.Paths.InputDir, discoverOptions(cfg)))
	}
	if cfg.Paths.OutputPath != "" {
		results = append(results, CheckOutputParent("Output location", cfg.Paths.OutputPath))
	}
	results = append(results, CheckWritableOrCreatable("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckWritableOrCreatable("Log directory", cfg.Paths.LogDir))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func discoverOptions(cfg *config.Config) export.DiscoverOptions {
	opts := export.DiscoverOptions{
		Pattern:   cfg.Discovery.Pattern,
		Recursive: cfg.Discovery.Recursive,
	}
	if cfg.Paths.OutputPath != "" {
		opts.Exclude = []string{cfg.Paths.OutputPath}
	}
	return opts
}
