package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"slate/internal/logging"
)

const (
	settingsSubdir = ".slate"
	settingsFile   = "settings.yml"
	backupSubdir   = ".bkp"
)

// Level is a directory that can carry settings overrides. Reads merge the
// parent chain key-by-key with this level's own overrides taking precedence;
// writes touch only this level.
type Level struct {
	dir      string
	parent   *Level
	defaults map[string]any
	logger   *slog.Logger
}

// NewLevel binds a settings level to a directory. Parent may be nil for the
// chain root; defaults (applied below the whole chain) are only consulted on
// the root level.
func NewLevel(dir string, parent *Level, logger *slog.Logger) *Level {
	return &Level{
		dir:    dir,
		parent: parent,
		logger: logging.NewComponentLogger(logger, "settings"),
	}
}

// SetDefaults installs the chain-root defaults layer.
func (l *Level) SetDefaults(defaults map[string]any) {
	l.defaults = defaults
}

// Dir returns the directory this level is bound to.
func (l *Level) Dir() string {
	return l.dir
}

// Parent returns the level settings fall back to, or nil at the chain root.
func (l *Level) Parent() *Level {
	return l.parent
}

// File returns the path of this level's settings file.
func (l *Level) File() string {
	return filepath.Join(l.dir, settingsSubdir, settingsFile)
}

// Settings returns the effective settings visible at this level: the parent
// chain merged recursively, then this level's own overrides shadowing
// key-by-key.
func (l *Level) Settings() (map[string]any, error) {
	var inherited map[string]any
	if l.parent != nil {
		parent, err := l.parent.Settings()
		if err != nil {
			return nil, err
		}
		inherited = parent
	} else {
		inherited = mergeMaps(nil, l.defaults)
	}

	own, err := l.readOwn()
	if err != nil {
		return nil, err
	}
	return mergeMaps(inherited, own), nil
}

// Get returns the effective value for key and whether it is set anywhere in
// the chain.
func (l *Level) Get(key string) (any, bool, error) {
	merged, err := l.Settings()
	if err != nil {
		return nil, false, err
	}
	value, ok := merged[key]
	return value, ok, nil
}

// Set writes key at this level only, persisting to the settings file. A
// map value merges into an existing map override rather than replacing it
// whole.
func (l *Level) Set(key string, value any) error {
	own, err := l.readOwn()
	if err != nil {
		return err
	}
	if incoming, ok := value.(map[string]any); ok {
		if existing, ok := own[key].(map[string]any); ok {
			value = mergeMaps(existing, incoming)
		}
	}
	own[key] = value
	return l.write(own)
}

// Del removes the override for key at this level, letting reads fall
// through to the parent. Deleting an unset key is a no-op.
func (l *Level) Del(key string) error {
	own, err := l.readOwn()
	if err != nil {
		return err
	}
	if _, ok := own[key]; !ok {
		return nil
	}
	delete(own, key)
	return l.write(own)
}

func (l *Level) readOwn() (map[string]any, error) {
	payload, err := os.ReadFile(l.File())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read settings %s: %w", l.File(), err)
	}
	own := map[string]any{}
	if err := yaml.Unmarshal(payload, &own); err != nil {
		// Corrupt overrides are reported, not silently dropped: a write
		// would otherwise destroy whatever the file held.
		return nil, fmt.Errorf("parse settings %s: %w", l.File(), err)
	}
	return own, nil
}

// write persists the level's overrides, snapshotting the previous file
// content into a timestamped backup first.
func (l *Level) write(own map[string]any) error {
	target := l.File()
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("ensure settings dir: %w", err)
	}

	if err := l.backupCurrent(); err != nil {
		return err
	}

	payload, err := yaml.Marshal(own)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write settings temp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename settings: %w", err)
	}
	l.logger.Debug("wrote settings", logging.String(logging.FieldPath, target))
	return nil
}

func (l *Level) backupCurrent() error {
	current, err := os.ReadFile(l.File())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read settings for backup: %w", err)
	}
	bkpDir := filepath.Join(l.dir, settingsSubdir, backupSubdir)
	if err := os.MkdirAll(bkpDir, 0o755); err != nil {
		return fmt.Errorf("ensure settings backup dir: %w", err)
	}
	stamp := time.Now().Format("060102_150405")
	bkp := filepath.Join(bkpDir, fmt.Sprintf("settings_%s.yml", stamp))
	if err := os.WriteFile(bkp, current, 0o644); err != nil {
		return fmt.Errorf("write settings backup: %w", err)
	}
	return nil
}

// Backups lists this level's settings backup files, oldest first.
func (l *Level) Backups() ([]string, error) {
	bkpDir := filepath.Join(l.dir, settingsSubdir, backupSubdir)
	entries, err := os.ReadDir(bkpDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list settings backups: %w", err)
	}
	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "settings_") || !strings.HasSuffix(name, ".yml") {
			continue
		}
		backups = append(backups, filepath.Join(bkpDir, name))
	}
	sort.Strings(backups)
	return backups, nil
}

// FlushBackups deletes every settings backup at this level. The force flag
// must be set; interactive confirmation belongs to the caller.
func (l *Level) FlushBackups(force bool) error {
	if !force {
		return errors.New("settings: flush backups requires force")
	}
	backups, err := l.Backups()
	if err != nil {
		return err
	}
	for _, bkp := range backups {
		if err := os.Remove(bkp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove settings backup: %w", err)
		}
	}
	return nil
}

// mergeMaps merges override into a copy of base key-by-key; nested maps
// merge recursively, everything else shadows whole.
func mergeMaps(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range override {
		if incoming, ok := value.(map[string]any); ok {
			if existing, ok := merged[key].(map[string]any); ok {
				merged[key] = mergeMaps(existing, incoming)
				continue
			}
		}
		merged[key] = value
	}
	return merged
}
