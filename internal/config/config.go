package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"parafile/internal/catalog"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchedFolder string `toml:"watched_folder"`
	LogDir        string `toml:"log_dir"`
}

// LLM contains connection settings for the classification model.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains pipeline timing and retry configuration.
type Workflow struct {
	DebounceMS              int `toml:"debounce_ms"`
	StabilityPollMS         int `toml:"stability_poll_ms"`
	StabilityChecks         int `toml:"stability_checks"`
	StabilityTimeoutSeconds int `toml:"stability_timeout_seconds"`
	Workers                 int `toml:"workers"`
	ClassifyMaxAttempts     int `toml:"classify_max_attempts"`
	MoveMaxAttempts         int `toml:"move_max_attempts"`
	MoveRetryDelayMS        int `toml:"move_retry_delay_ms"`
	QueuePollSeconds        int `toml:"queue_poll_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Category declares one destination folder with its naming pattern.
type Category struct {
	Name          string `toml:"name"`
	Description   string `toml:"description"`
	NamingPattern string `toml:"naming_pattern"`
}

// Variable declares one placeholder the classifier may fill.
type Variable struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// Config encapsulates all configuration values for Parafile.
//
// Configuration sections by subsystem:
//   - Paths: watched folder and log directory
//   - LLM: classification model connection settings
//   - Workflow: debounce, stability, retry, and worker tuning
//   - Logging: log format and level
//   - Categories/Variables: the organization catalog
type Config struct {
	EnableOrganization bool       `toml:"enable_organization"`
	Paths              Paths      `toml:"paths"`
	LLM                LLM        `toml:"llm"`
	Workflow           Workflow   `toml:"workflow"`
	Logging            Logging    `toml:"logging"`
	Categories         []Category `toml:"categories"`
	Variables          []Variable `toml:"variables"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/parafile/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("parafile.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WatchedFolder, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Catalog builds the immutable category/variable snapshot for a session.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	categories := make([]catalog.Category, 0, len(c.Categories))
	for _, cat := range c.Categories {
		categories = append(categories, catalog.Category{
			Name:          cat.Name,
			Description:   cat.Description,
			NamingPattern: cat.NamingPattern,
		})
	}
	variables := make([]catalog.Variable, 0, len(c.Variables))
	for _, v := range c.Variables {
		variables = append(variables, catalog.Variable{
			Name:        v.Name,
			Description: v.Description,
		})
	}
	return catalog.New(categories, variables)
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
