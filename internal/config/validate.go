package config

import (
	"fmt"
	"strings"
)

var validLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks the configuration for values that cannot be repaired by
// normalization.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.JobsRoot) == "" {
		return fmt.Errorf("paths.jobs_root must be set")
	}
	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if _, ok := validLogLevels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	for _, entry := range c.Pipeline.PathMap {
		if !strings.Contains(entry, ">>>") {
			return fmt.Errorf("pipeline.path_map: entry %q missing '>>>' separator", entry)
		}
	}
	return nil
}
