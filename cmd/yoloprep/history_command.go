package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"yoloprep/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded stage runs",
		Long: `List recent stage runs from the run journal, newest first.

With --run, show the unit events of one run. A unique prefix of the run id
is enough.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("run journal is disabled (journal.enabled = false)")
			}
			store, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			if runID != "" {
				return showRun(cmd, ctx, store, runID)
			}
			return listRuns(cmd, ctx, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show unit events for this run id or prefix")
	return cmd
}

type runRecordJSON struct {
	ID         string     `json:"run_id"`
	Stage      string     `json:"stage"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Errored    int        `json:"errored"`
	Skipped    int        `json:"skipped"`
	Detail     string     `json:"detail,omitempty"`
}

func runRecord(r journal.Run) runRecordJSON {
	out := runRecordJSON{
		ID:        r.ID,
		Stage:     r.Stage,
		Status:    r.Status,
		StartedAt: r.StartedAt,
		Processed: r.Counts.Processed,
		Errored:   r.Counts.Errored,
		Skipped:   r.Counts.Skipped,
		Detail:    r.Detail,
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}

func listRuns(cmd *cobra.Command, ctx *commandContext, store *journal.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if ctx.JSONMode() {
		records := make([]runRecordJSON, 0, len(runs))
		for _, r := range runs {
			records = append(records, runRecord(r))
		}
		return writeJSON(cmd, records)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.Stage,
			r.Status,
			humanize.Time(r.StartedAt),
			duration,
			itoa(r.Counts.Processed),
			itoa(r.Counts.Errored),
			itoa(r.Counts.Skipped),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Run", "Stage", "Status", "Started", "Duration", "Processed", "Errored", "Skipped"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	return nil
}

func showRun(cmd *cobra.Command, ctx *commandContext, store *journal.Store, id string) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	events, err := store.Units(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	if ctx.JSONMode() {
		units := make([]map[string]any, 0, len(events))
		for _, ev := range events {
			units = append(units, map[string]any{
				"unit":       ev.Unit,
				"outcome":    ev.Outcome,
				"detail":     ev.Detail,
				"created_at": ev.CreatedAt,
			})
		}
		return writeJSON(cmd, map[string]any{"run": runRecord(run), "units": units})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s) %s, started %s\n", run.ID, run.Stage, run.Status, run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Processed %d, errored %d, skipped %d\n", run.Counts.Processed, run.Counts.Errored, run.Counts.Skipped)
	if run.Detail != "" {
		fmt.Fprintf(out, "Detail: %s\n", run.Detail)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No unit events recorded")
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{ev.Unit, ev.Outcome, ev.Detail})
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, renderTable([]string{"Unit", "Outcome", "Detail"}, rows, nil))
	return nil
}
