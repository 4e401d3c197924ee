package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"yoloprep/internal/preflight"
	"yoloprep/internal/staging"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, free space, and store credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cfg)
			dirs, listErr := staging.ListDirectories(cfg.Paths.WorkDir)

			if ctx.JSONMode() {
				checks := make([]map[string]any, 0, len(results))
				for _, r := range results {
					checks = append(checks, map[string]any{"name": r.Name, "passed": r.Passed, "detail": r.Detail})
				}
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				if err := writeJSON(cmd, map[string]any{"checks": checks, "workspaces": dirs}); err != nil {
					return err
				}
				return preflight.Failed(results)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprint(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			switch {
			case listErr != nil:
				fmt.Fprintf(out, "\nWorkspaces: %v\n", listErr)
			case len(dirs) == 0:
				fmt.Fprintln(out, "\nNo leftover workspaces")
			default:
				var total int64
				wsRows := make([][]string, 0, len(dirs))
				for _, d := range dirs {
					total += d.Size
					wsRows = append(wsRows, []string{d.Name, formatAge(time.Since(d.ModTime)), humanize.IBytes(uint64(d.Size))})
				}
				fmt.Fprintf(out, "\nWorkspaces in %s:\n", cfg.Paths.WorkDir)
				fmt.Fprint(out, renderTable([]string{"Workspace", "Age", "Size"}, wsRows,
					[]columnAlignment{alignLeft, alignRight, alignRight}))
				fmt.Fprintf(out, "Total: %d workspaces, %s (removed automatically after %s)\n",
					len(dirs), humanize.IBytes(uint64(total)), formatAge(staging.DefaultStaleAge))
			}

			if err := preflight.Failed(results); err != nil {
				return fmt.Errorf("doctor: %w", err)
			}
			fmt.Fprintln(out, "\nAll checks passed")
			return nil
		},
	}
}

func formatAge(d time.Duration) string {
	d = d.Truncate(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
