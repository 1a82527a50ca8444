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
	c.normalizePipeline()
	if err := c.normalizeRegistry(); err != nil {
		return err
	}
	c.normalizeDiskCache()
	c.normalizeHost()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if env := strings.TrimSpace(os.Getenv("SLATE_JOBS_ROOT")); env != "" {
		c.Paths.JobsRoot = env
	}
	var err error
	if c.Paths.JobsRoot, err = expandPath(c.Paths.JobsRoot); err != nil {
		return fmt.Errorf("paths.jobs_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if env := strings.TrimSpace(os.Getenv("SLATE_JOBS_FILTER")); env != "" {
		c.Pipeline.JobsFilter = env
	}
	c.Pipeline.JobsFilter = strings.TrimSpace(c.Pipeline.JobsFilter)
	if env := strings.TrimSpace(os.Getenv("SLATE_DEFAULT_TAG")); env != "" {
		c.Pipeline.DefaultTag = env
	}
	if strings.TrimSpace(c.Pipeline.DefaultTag) == "" {
		c.Pipeline.DefaultTag = defaultDefaultTag
	}
	if c.Pipeline.VerPadding <= 0 {
		c.Pipeline.VerPadding = defaultVerPadding
	}
	if env := strings.TrimSpace(os.Getenv("SLATE_PATH_MAP")); env != "" {
		c.Pipeline.PathMap = strings.Split(env, ";")
	}
}

func (c *Config) normalizeRegistry() error {
	if strings.TrimSpace(c.Registry.Path) == "" {
		return nil
	}
	var err error
	if c.Registry.Path, err = expandPath(c.Registry.Path); err != nil {
		return fmt.Errorf("registry.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiskCache() {
	if c.DiskCache.MaxGiB <= 0 {
		c.DiskCache.MaxGiB = defaultCacheGiB
	}
}

func (c *Config) normalizeHost() {
	c.Host.Name = strings.ToLower(strings.TrimSpace(c.Host.Name))
	if strings.TrimSpace(c.Host.SceneEnv) == "" {
		c.Host.SceneEnv = defaultSceneEnv
	}
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
