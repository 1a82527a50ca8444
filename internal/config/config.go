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
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	JobsRoot string `toml:"jobs_root"`
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Pipeline contains addressing defaults shared by every job.
type Pipeline struct {
	JobsFilter string   `toml:"jobs_filter"`
	DefaultTag string   `toml:"default_tag"`
	VerPadding int      `toml:"ver_padding"`
	PathMap    []string `toml:"path_map"` // "V:/Jobs>>>/mnt/jobs" entries
}

// Registry contains configuration for the optional publish registry.
type Registry struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DiskCache contains configuration for the on-disk method cache.
type DiskCache struct {
	Enabled bool `toml:"enabled"`
	MaxGiB  int  `toml:"max_gib"`
}

// Host contains configuration for the host-application adapter.
type Host struct {
	Name     string `toml:"name"`
	SceneEnv string `toml:"scene_env"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for slate.
//
// Configuration sections by subsystem:
//   - Paths: jobs root plus cache and log directories
//   - Pipeline: addressing defaults (jobs filter, default tag, padding)
//   - Registry: optional SQLite publish registry
//   - DiskCache: mtime-invalidated method cache on disk
//   - Host: current-scene discovery for the hosting application
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Registry  Registry  `toml:"registry"`
	DiskCache DiskCache `toml:"disk_cache"`
	Host      Host      `toml:"host"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slate/config.toml")
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath expands ~ and resolves the value to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration to the target path.
func CreateSample(target string) error {
	return os.WriteFile(target, []byte(sampleConfig), 0o644)
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
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

	projectPath, err := filepath.Abs("slate.toml")
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

// EnsureDirectories creates the cache and log directories. The jobs root is
// created on a best-effort basis so tools can start when shared storage is
// temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.JobsRoot) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.JobsRoot, 0o755)
	}
	return nil
}

// RegistryPath returns the SQLite path backing the publish registry.
func (c *Config) RegistryPath() string {
	if strings.TrimSpace(c.Registry.Path) != "" {
		return c.Registry.Path
	}
	return filepath.Join(c.Paths.CacheDir, "registry.db")
}

// MapPath remaps a path across storage roots using the configured path map.
// Entries take the form "src>>>dest"; the first entry whose source prefixes
// the path wins. Paths outside every mapping are returned unchanged.
func (c *Config) MapPath(path string) string {
	if path == "" {
		return path
	}
	normalized := filepath.ToSlash(path)
	for _, entry := range c.Pipeline.PathMap {
		src, dest, ok := strings.Cut(entry, ">>>")
		if !ok {
			continue
		}
		src = filepath.ToSlash(strings.TrimSpace(src))
		dest = filepath.ToSlash(strings.TrimSpace(dest))
		if src == "" || dest == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(normalized), strings.ToLower(src)) {
			return dest + normalized[len(src):]
		}
	}
	return normalized
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
