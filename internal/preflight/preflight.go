package preflight

import (
	"context"

	"acmsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Local mirrors and SRN state (always checked)
	results = append(results, CheckDirectoryAccess("Local mirror directory", cfg.Paths.LocalDir))
	results = append(results, CheckFreeSpace("Local free space", cfg.Paths.LocalDir, cfg.Storage.MinFreeSpaceMiB))
	results = append(results, CheckDirectoryAccess("SRN directory", cfg.Paths.SRNDir))

	// Shared directory only matters for the dir backend
	if cfg.Storage.Backend == config.StorageBackendDir {
		results = append(results, CheckDirectoryAccess("Shared directory", cfg.Paths.SharedDir))
	}

	results = append(results, CheckServer(ctx, cfg.Server.URL, cfg.Server.APIToken))

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
