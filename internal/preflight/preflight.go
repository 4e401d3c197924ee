package preflight

import (
	"errors"
	"fmt"
	"strings"

	"yoloprep/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check for the doctor command.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCreatable("Work directory", cfg.Paths.WorkDir),
		CheckCreatable("State directory", cfg.Paths.StateDir),
		CheckCreatable("Dataset directory", cfg.Dataset.Dir),
		CheckFreeSpace("Dataset volume", cfg.Dataset.Dir, MinPlacementFreeBytes),
		CheckStore(cfg),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckCreatable("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Journal.Enabled {
		results = append(results, CheckJournal(cfg.JournalPath()))
	}
	return results
}

// ForPlacement runs the checks placement needs before downloading.
func ForPlacement(cfg *config.Config) []Result {
	return []Result{
		CheckCreatable("Dataset directory", cfg.Dataset.Dir),
		CheckCreatable("Work directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Dataset volume", cfg.Dataset.Dir, MinPlacementFreeBytes),
	}
}

// Failed returns an error naming every failed result, or nil.
func Failed(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return errors.New(strings.Join(failed, "; "))
}
