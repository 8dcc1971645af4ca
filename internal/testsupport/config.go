package testsupport

import (
	"path/filepath"
	"testing"

	"parafile/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.Paths.WatchedFolder = filepath.Join(base, "watched")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Workflow.DebounceMS = 20
	cfgVal.Workflow.StabilityPollMS = 10
	cfgVal.Workflow.StabilityTimeoutSeconds = 2
	cfgVal.Workflow.MoveRetryDelayMS = 10
	cfgVal.Workflow.QueuePollSeconds = 1
	cfgVal.Categories = []config.Category{
		{Name: "Invoices", Description: "Bills and invoices", NamingPattern: "{vendor} - {date}"},
		{Name: "General", Description: "Anything else", NamingPattern: "{original_name}"},
	}
	cfgVal.Variables = []config.Variable{
		{Name: "vendor", Description: "Issuing company"},
		{Name: "date", Description: "Document date"},
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCategories replaces the category set on the test config.
func WithCategories(categories ...config.Category) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Categories = categories
	}
}

// WithVariables replaces the variable set on the test config.
func WithVariables(variables ...config.Variable) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Variables = variables
	}
}

// WithOrganizationDisabled turns file moving off for the test config.
func WithOrganizationDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.EnableOrganization = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WatchedFolder)
}
