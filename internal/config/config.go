package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Store selects and configures the object store holding images and archives.
type Store struct {
	Backend           string  `toml:"backend"`
	Container         string  `toml:"container"`
	ConnectionString  string  `toml:"connection_string"`
	CredentialsFile   string  `toml:"credentials_file"`
	LocalRoot         string  `toml:"local_root"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Dataset contains the dataset layout and stage defaults.
type Dataset struct {
	Dir            string  `toml:"dir"`
	MappingFile    string  `toml:"mapping_file"`
	SelectionFile  string  `toml:"selection_file"`
	ValidSplit     float64 `toml:"valid_split"`
	RandomSeed     int64   `toml:"random_seed"`
	ImageExt       string  `toml:"image_ext"`
	ArchiveBaseDir string  `toml:"archive_base_dir"`
	ClassNamesFile string  `toml:"class_names_file"`
	EmptyTag       string  `toml:"empty_tag"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Journal controls the SQLite run journal.
type Journal struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for yoloprep.
//
// Configuration sections:
//   - Paths: staging, state, and log directories
//   - Store: object store backend and credentials
//   - Dataset: dataset location and stage defaults
//   - Logging: log format and level
//   - Journal: run history database
type Config struct {
	Paths   Paths   `toml:"paths"`
	Store   Store   `toml:"store"`
	Dataset Dataset `toml:"dataset"`
	Logging Logging `toml:"logging"`
	Journal Journal `toml:"journal"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	loadDotEnv()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads ./.env without overriding variables already set.
func loadDotEnv() {
	if info, err := os.Stat(".env"); err != nil || info.IsDir() {
		return
	}
	_ = godotenv.Load(".env")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the SQLite journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, journalFileName)
}

// MappingPath resolves dataset.mapping_file. Relative names live inside the dataset.
func (c *Config) MappingPath() string {
	return c.datasetRelative(c.Dataset.MappingFile)
}

// SelectionPath resolves dataset.selection_file. Relative names are taken
// from the working directory, like any other CLI output path.
func (c *Config) SelectionPath() string {
	path := c.Dataset.SelectionFile
	if filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func (c *Config) datasetRelative(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dataset.Dir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
