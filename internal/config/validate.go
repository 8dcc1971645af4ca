package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Any failure here aborts the
// monitoring session before a single file is processed.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchedFolder) == "" {
		return errors.New("paths.watched_folder must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/parafile/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set PARAFILE_API_KEY env var or edit %s (create with 'parafile config init')", defaultPath)
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.debounce_ms":               c.Workflow.DebounceMS,
		"workflow.stability_poll_ms":         c.Workflow.StabilityPollMS,
		"workflow.stability_checks":          c.Workflow.StabilityChecks,
		"workflow.stability_timeout_seconds": c.Workflow.StabilityTimeoutSeconds,
		"workflow.workers":                   c.Workflow.Workers,
		"workflow.classify_max_attempts":     c.Workflow.ClassifyMaxAttempts,
		"workflow.move_max_attempts":         c.Workflow.MoveMaxAttempts,
		"workflow.move_retry_delay_ms":       c.Workflow.MoveRetryDelayMS,
		"workflow.queue_poll_seconds":        c.Workflow.QueuePollSeconds,
	})
}

func (c *Config) validateCatalog() error {
	// catalog.New performs the real validation (pattern tokens, duplicates,
	// General/original_name auto-repair); surface its errors at load time.
	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
