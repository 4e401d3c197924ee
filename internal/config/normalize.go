package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	if err := c.normalizeDataset(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultBackend
	}
	c.Store.Container = strings.TrimSpace(c.Store.Container)
	c.Store.ConnectionString = strings.TrimSpace(c.Store.ConnectionString)
	if c.Store.ConnectionString == "" {
		if value, ok := os.LookupEnv(envAzureConnectionString); ok {
			c.Store.ConnectionString = strings.TrimSpace(value)
		}
	}
	c.Store.CredentialsFile = strings.TrimSpace(c.Store.CredentialsFile)
	if c.Store.CredentialsFile == "" {
		if value, ok := os.LookupEnv(envGoogleCredentials); ok {
			c.Store.CredentialsFile = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Store.CredentialsFile, err = expandPath(c.Store.CredentialsFile); err != nil {
		return fmt.Errorf("store.credentials_file: %w", err)
	}
	if c.Store.LocalRoot, err = expandPath(strings.TrimSpace(c.Store.LocalRoot)); err != nil {
		return fmt.Errorf("store.local_root: %w", err)
	}
	if c.Store.TimeoutSeconds <= 0 {
		c.Store.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeDataset() error {
	var err error
	if strings.TrimSpace(c.Dataset.Dir) == "" {
		c.Dataset.Dir = defaultDatasetDir
	}
	if c.Dataset.Dir, err = expandPath(strings.TrimSpace(c.Dataset.Dir)); err != nil {
		return fmt.Errorf("dataset.dir: %w", err)
	}
	c.Dataset.MappingFile = strings.TrimSpace(c.Dataset.MappingFile)
	if c.Dataset.MappingFile == "" {
		c.Dataset.MappingFile = defaultMappingFile
	}
	c.Dataset.SelectionFile = strings.TrimSpace(c.Dataset.SelectionFile)
	if c.Dataset.SelectionFile == "" {
		c.Dataset.SelectionFile = defaultSelectionFile
	}
	c.Dataset.ImageExt = strings.TrimLeft(strings.TrimSpace(c.Dataset.ImageExt), ".")
	c.Dataset.ArchiveBaseDir = strings.Trim(strings.TrimSpace(c.Dataset.ArchiveBaseDir), `/\`)
	c.Dataset.ClassNamesFile = strings.TrimSpace(c.Dataset.ClassNamesFile)
	if c.Dataset.ClassNamesFile == "" {
		c.Dataset.ClassNamesFile = defaultClassNamesFile
	}
	c.Dataset.EmptyTag = strings.TrimSpace(c.Dataset.EmptyTag)
	if c.Dataset.EmptyTag == "" {
		c.Dataset.EmptyTag = defaultEmptyTag
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
