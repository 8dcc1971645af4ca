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
	c.normalizeLLM()
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.normalizeCatalog()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WatchedFolder) == "" {
		c.Paths.WatchedFolder = defaultWatchedFolder
	}
	if c.Paths.WatchedFolder, err = expandPath(c.Paths.WatchedFolder); err != nil {
		return fmt.Errorf("paths.watched_folder: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("PARAFILE_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.DebounceMS <= 0 {
		c.Workflow.DebounceMS = defaultDebounceMS
	}
	if c.Workflow.StabilityPollMS <= 0 {
		c.Workflow.StabilityPollMS = defaultStabilityPollMS
	}
	if c.Workflow.StabilityChecks <= 0 {
		c.Workflow.StabilityChecks = defaultStabilityChecks
	}
	if c.Workflow.StabilityTimeoutSeconds <= 0 {
		c.Workflow.StabilityTimeoutSeconds = defaultStabilityTimeoutSeconds
	}
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.ClassifyMaxAttempts <= 0 {
		c.Workflow.ClassifyMaxAttempts = defaultClassifyMaxAttempts
	}
	if c.Workflow.MoveMaxAttempts <= 0 {
		c.Workflow.MoveMaxAttempts = defaultMoveMaxAttempts
	}
	if c.Workflow.MoveRetryDelayMS <= 0 {
		c.Workflow.MoveRetryDelayMS = defaultMoveRetryDelayMS
	}
	if c.Workflow.QueuePollSeconds <= 0 {
		c.Workflow.QueuePollSeconds = defaultQueuePollSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeCatalog() {
	for i := range c.Categories {
		c.Categories[i].Name = strings.TrimSpace(c.Categories[i].Name)
		c.Categories[i].NamingPattern = strings.TrimSpace(c.Categories[i].NamingPattern)
	}
	for i := range c.Variables {
		c.Variables[i].Name = strings.TrimSpace(c.Variables[i].Name)
	}
}
