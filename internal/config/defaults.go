package config

const (
	defaultWatchedFolder           = "~/Documents/parafile"
	defaultLogDir                  = "~/.local/share/parafile/logs"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "google/gemini-3-flash-preview"
	defaultLLMReferer              = "https://github.com/parafile/parafile"
	defaultLLMTitle                = "Parafile Document Classifier"
	defaultLLMTimeoutSeconds       = 60
	defaultDebounceMS              = 750
	defaultStabilityPollMS         = 500
	defaultStabilityChecks         = 3
	defaultStabilityTimeoutSeconds = 120
	defaultWorkers                 = 2
	defaultClassifyMaxAttempts     = 4
	defaultMoveMaxAttempts         = 3
	defaultMoveRetryDelayMS        = 2000
	defaultQueuePollSeconds        = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		EnableOrganization: true,
		Paths: Paths{
			WatchedFolder: defaultWatchedFolder,
			LogDir:        defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Workflow: Workflow{
			DebounceMS:              defaultDebounceMS,
			StabilityPollMS:         defaultStabilityPollMS,
			StabilityChecks:         defaultStabilityChecks,
			StabilityTimeoutSeconds: defaultStabilityTimeoutSeconds,
			Workers:                 defaultWorkers,
			ClassifyMaxAttempts:     defaultClassifyMaxAttempts,
			MoveMaxAttempts:         defaultMoveMaxAttempts,
			MoveRetryDelayMS:        defaultMoveRetryDelayMS,
			QueuePollSeconds:        defaultQueuePollSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
