package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendAzure, BackendGCS:
		if c.Store.Container == "" {
			return fmt.Errorf("store.container is required for the %s backend", c.Store.Backend)
		}
	case BackendLocal:
		if c.Store.LocalRoot == "" {
			return errors.New("store.local_root is required for the local backend")
		}
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want azure, gcs, or local)", c.Store.Backend)
	}
	if c.Store.RequestsPerSecond < 0 {
		return errors.New("store.requests_per_second must be zero (unlimited) or positive")
	}
	return nil
}

// ValidateStoreCredentials reports whether the selected backend has the
// credentials it needs. It is separate from Validate so offline commands
// (organize with local archives, history, config) work without secrets.
func (c *Config) ValidateStoreCredentials() error {
	switch c.Store.Backend {
	case BackendAzure:
		if c.Store.ConnectionString == "" {
			path, err := DefaultConfigPath()
			if err != nil {
				path = defaultConfigPath
			}
			return fmt.Errorf("store.connection_string is required. Set %s or edit %s (create with 'yoloprep config init')", envAzureConnectionString, path)
		}
	case BackendGCS:
		// Empty credentials fall back to application default credentials.
	}
	return nil
}

func (c *Config) validateDataset() error {
	ratio := c.Dataset.ValidSplit
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return errors.New("dataset.valid_split must be between 0 and 1")
	}
	if c.Dataset.ImageExt == "" {
		return errors.New("dataset.image_ext must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
