package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"yoloprep/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the yoloprep configuration",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

// initTarget resolves where config init writes, refusing to replace an
// existing file unless overwrite is set.
func initTarget(flagPath string, overwrite bool) (string, error) {
	var (
		target string
		err    error
	)
	if flagPath = strings.TrimSpace(flagPath); flagPath == "" {
		target, err = config.DefaultConfigPath()
	} else {
		target, err = config.ExpandPath(flagPath)
	}
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	if overwrite {
		return target, nil
	}
	switch _, err := os.Stat(target); {
	case err == nil:
		return "", fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("check config path: %w", err)
	}
	return target, nil
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath, overwrite)
			if err != nil {
				return err
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set store.connection_string (or export AZURE_STORAGE_CONNECTION_STRING) before running select or place.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report the settings the stages will use",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			credErr := cfg.ValidateStoreCredentials()

			if ctx.JSONMode() {
				payload := map[string]any{
					"path":       resolved,
					"exists":     exists,
					"backend":    cfg.Store.Backend,
					"container":  cfg.Store.Container,
					"dataset":    cfg.Dataset.Dir,
					"mapping":    cfg.MappingPath(),
					"valid":      cfg.Dataset.ValidSplit,
					"seed":       cfg.Dataset.RandomSeed,
					"journal":    cfg.Journal.Enabled,
					"credential": credErr == nil,
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			source := resolved
			if !exists {
				source += " (not found; defaults used)"
			}
			fmt.Fprintf(out, "Config path: %s\n", source)
			fmt.Fprintf(out, "Store backend: %s (container %s)\n", cfg.Store.Backend, cfg.Store.Container)
			rows := [][]string{
				{"Dataset", cfg.Dataset.Dir},
				{"Mapping file", cfg.MappingPath()},
				{"Selection list", cfg.SelectionPath()},
				{"Validation split", strconv.FormatFloat(cfg.Dataset.ValidSplit, 'f', -1, 64)},
				{"Seed", strconv.FormatInt(cfg.Dataset.RandomSeed, 10)},
				{"Image extension", cfg.Dataset.ImageExt},
				{"Work dir", cfg.Paths.WorkDir},
				{"Journal", yesNo(cfg.Journal.Enabled)},
			}
			fmt.Fprint(out, renderTable([]string{"Setting", "Value"}, rows, nil))
			if credErr != nil {
				fmt.Fprintf(out, "Warning: %v\n", credErr)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
