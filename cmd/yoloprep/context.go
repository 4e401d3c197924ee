package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"yoloprep/internal/config"
	"yoloprep/internal/journal"
	"yoloprep/internal/logging"
	"yoloprep/internal/pipeline"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = pipeline.Wrap(pipeline.ErrConfiguration, "", "load config", "", err)
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = pipeline.Wrap(pipeline.ErrConfiguration, "", "log level", "", err)
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = pipeline.Wrap(pipeline.ErrConfiguration, "", "create directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// JSONMode reports whether results should be printed as JSON.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openJournal opens the run journal when enabled. Failures are logged and
// the stage runs without history.
func (c *commandContext) openJournal(cfg *config.Config, logger *slog.Logger) *journal.Store {
	if !cfg.Journal.Enabled {
		return nil
	}
	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		logging.WarnWithContext(logger, "run journal unavailable", "journal_open_failed",
			logging.String("path", cfg.JournalPath()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in history"),
			logging.String(logging.FieldErrorHint, "run yoloprep doctor"))
		return nil
	}
	return store
}

// withPipeline builds the stage environment, runs fn, and closes the journal.
func (c *commandContext) withPipeline(cmd *cobra.Command, fn func(pipeline.Env) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return pipeline.Wrap(pipeline.ErrConfiguration, "", "logging", "", err)
	}
	env := pipeline.Env{
		Config:  cfg,
		Logger:  logger,
		Journal: c.openJournal(cfg, logger),
	}
	if env.Journal != nil {
		defer env.Journal.Close()
	}
	if !c.JSONMode() && isTerminal(cmd.ErrOrStderr()) {
		env.Progress = cmd.ErrOrStderr()
	}
	return fn(env)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// Exit codes: 2 for configuration errors, 3 when the final artifact could not
// be written, 130 after an interrupt, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pipeline.ErrConfiguration):
		return 2
	case errors.Is(err, pipeline.ErrPersistence):
		return 3
	case errors.Is(err, errInterrupted):
		return 130
	default:
		return 1
	}
}

var errInterrupted = errors.New("interrupted")

// interrupted converts a cancelled stage into an error that names the run.
func interrupted(err error, runID string) error {
	if runID == "" {
		return fmt.Errorf("%w: %w", errInterrupted, err)
	}
	return fmt.Errorf("%w (run %s): %w", errInterrupted, shortID(runID), err)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
