package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"yoloprep/internal/journal"
	"yoloprep/internal/pipeline"
)

type runJSON struct {
	ID         string  `json:"run_id"`
	Stage      string  `json:"stage"`
	Status     string  `json:"status"`
	DurationMS int64   `json:"duration_ms"`
	Processed  int     `json:"processed"`
	Errored    int     `json:"errored"`
	Skipped    int     `json:"skipped"`
	Warning    *string `json:"warning,omitempty"`
}

func newRunJSON(info pipeline.RunInfo, processed, errored, skipped int, persistErr error) runJSON {
	out := runJSON{
		ID:         info.ID,
		Stage:      info.Stage,
		Status:     info.Status,
		DurationMS: info.Duration.Milliseconds(),
		Processed:  processed,
		Errored:    errored,
		Skipped:    skipped,
	}
	if persistErr != nil {
		msg := persistErr.Error()
		out.Warning = &msg
	}
	return out
}

func printSelectSummary(cmd *cobra.Command, ctx *commandContext, s pipeline.SelectSummary) error {
	counts := s.Counts()
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{
			"run":             newRunJSON(s.Run, counts.Processed, counts.Errored, counts.Skipped, s.PersistErr),
			"archives":        s.Archives,
			"archives_failed": s.ArchivesFailed,
			"records":         s.Records,
			"boxed":           s.Boxed,
			"empty":           s.Empty,
			"warnings":        s.Warnings,
			"selected":        s.Selected,
			"output":          s.Output,
		})
	}
	rows := [][]string{
		{"Archives processed", itoa(s.Archives - s.ArchivesFailed)},
		{"Archives failed", itoa(s.ArchivesFailed)},
		{"Image records", itoa(s.Records)},
		{"With boxes", itoa(s.Boxed)},
		{"Confirmed empty", itoa(s.Empty)},
		{"Records without name", itoa(s.Warnings)},
		{"Selected images", itoa(s.Selected)},
	}
	artifacts := []artifact{}
	if s.PersistErr == nil && s.Run.Status != journal.StatusCancelled {
		artifacts = append(artifacts, artifact{"Selection list", s.Output})
	}
	printStageSummary(cmd.OutOrStdout(), s.Run, rows, artifacts, s.PersistErr)
	return nil
}

func printPlaceSummary(cmd *cobra.Command, ctx *commandContext, s pipeline.PlaceSummary) error {
	counts := s.Counts()
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{
			"run":             newRunJSON(s.Run, counts.Processed, counts.Errored, counts.Skipped, s.PersistErr),
			"requested":       s.Requested,
			"duplicates":      s.Duplicates,
			"planned_train":   s.PlannedTrain,
			"planned_valid":   s.PlannedValid,
			"downloaded":      s.Downloaded,
			"already_present": s.AlreadyPresent,
			"not_found":       s.NotFound,
			"failed":          s.Failed,
			"bytes":           s.Bytes,
			"mapped":          s.Mapped,
			"dataset_dir":     s.DatasetDir,
			"mapping_file":    s.MappingPath,
		})
	}
	rows := [][]string{
		{"Images requested", itoa(s.Requested)},
		{"Planned train / valid", fmt.Sprintf("%d / %d", s.PlannedTrain, s.PlannedValid)},
		{"Downloaded", itoa(s.Downloaded)},
		{"Already present", itoa(s.AlreadyPresent)},
		{"Not found", itoa(s.NotFound)},
		{"Failed", itoa(s.Failed)},
		{"Transferred", humanize.IBytes(uint64(s.Bytes))},
		{"Mapping entries", itoa(s.Mapped)},
	}
	if s.Duplicates > 0 {
		rows = append(rows, []string{"Duplicates ignored", itoa(s.Duplicates)})
	}
	artifacts := []artifact{{"Dataset", s.DatasetDir}}
	if s.PersistErr == nil {
		artifacts = append(artifacts, artifact{"Mapping", s.MappingPath})
	}
	printStageSummary(cmd.OutOrStdout(), s.Run, rows, artifacts, s.PersistErr)
	return nil
}

func printOrganizeSummary(cmd *cobra.Command, ctx *commandContext, s pipeline.OrganizeSummary) error {
	counts := s.Counts()
	if ctx.JSONMode() {
		payload := map[string]any{
			"run":             newRunJSON(s.Run, counts.Processed, counts.Errored, counts.Skipped, s.PersistErr),
			"archives":        s.Archives,
			"archives_failed": s.ArchivesFailed,
			"labels_train":    s.Labels.Train,
			"labels_valid":    s.Labels.Valid,
			"mapping_miss":    s.Labels.MappingMiss,
			"orphaned":        s.Labels.Orphaned,
			"copy_failed":     s.Labels.CopyFailed,
			"invalid":         s.Labels.Invalid,
			"classes":         nonNil(s.Classes),
			"class_source":    s.ClassSource,
			"dataset_dir":     s.DatasetDir,
		}
		if s.Manifest.Descriptor != "" {
			payload["manifest"] = map[string]any{
				"train_list":  s.Manifest.TrainList,
				"valid_list":  s.Manifest.ValidList,
				"descriptor":  s.Manifest.Descriptor,
				"train_count": s.Manifest.TrainCount,
				"valid_count": s.Manifest.ValidCount,
			}
		}
		return writeJSON(cmd, payload)
	}
	rows := [][]string{
		{"Archives processed", itoa(s.Archives - s.ArchivesFailed)},
		{"Archives failed", itoa(s.ArchivesFailed)},
		{"Labels train / valid", fmt.Sprintf("%d / %d", s.Labels.Train, s.Labels.Valid)},
		{"No mapping entry", itoa(s.Labels.MappingMiss)},
		{"Image not placed", itoa(s.Labels.Orphaned)},
		{"Copy failed", itoa(s.Labels.CopyFailed + s.Labels.Invalid)},
		{"Classes", itoa(len(s.Classes))},
	}
	if s.ClassSource != "" {
		rows = append(rows, []string{"Class names from", s.ClassSource})
	}
	artifacts := []artifact{{"Dataset", s.DatasetDir}}
	if s.Manifest.Descriptor != "" {
		artifacts = append(artifacts,
			artifact{"Train list", s.Manifest.TrainList},
			artifact{"Valid list", s.Manifest.ValidList},
			artifact{"Descriptor", s.Manifest.Descriptor})
	}
	printStageSummary(cmd.OutOrStdout(), s.Run, rows, artifacts, s.PersistErr)
	return nil
}

type artifact struct {
	label string
	path  string
}

func printStageSummary(out io.Writer, run pipeline.RunInfo, rows [][]string, artifacts []artifact, persistErr error) {
	title := "Run"
	if run.Stage != "" {
		title = strings.ToUpper(run.Stage[:1]) + run.Stage[1:]
	}
	fmt.Fprintf(out, "%s %s in %s (run %s)\n", title, run.Status, run.Duration.Round(time.Millisecond), shortID(run.ID))
	fmt.Fprint(out, renderTable([]string{"Item", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	for _, a := range artifacts {
		fmt.Fprintf(out, "%s: %s\n", a.label, a.path)
	}
	if persistErr != nil {
		fmt.Fprintf(out, "Warning: %v\n", persistErr)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
