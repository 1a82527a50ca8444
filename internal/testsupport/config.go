package testsupport

import (
	"path/filepath"
	"testing"

	"slate/internal/config"
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
	cfgVal.Paths.JobsRoot = filepath.Join(base, "jobs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Registry.Enabled = true
	cfgVal.Registry.Path = filepath.Join(base, "registry.db")

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

// WithJobsFilter sets the jobs name filter on the test config.
func WithJobsFilter(filter string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.JobsFilter = filter
	}
}

// WithDefaultTag overrides the default work stream tag.
func WithDefaultTag(tag string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.DefaultTag = tag
	}
}

// WithRegistryDisabled turns off publish registry recording.
func WithRegistryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Registry.Enabled = false
	}
}
