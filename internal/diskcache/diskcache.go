package diskcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slate/internal/config"
	"slate/internal/logging"
)

const entryVersion = 1

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Cache persists expensive method results to disk, invalidated by the mtime
// of the source path recorded at write time. An unchanged source means the
// cached value is trusted even across process restarts; a corrupt or stale
// entry is simply a miss.
type Cache struct {
	root     string
	maxBytes int64
	logger   *slog.Logger
	statfs   statfsFunc
}

// entry is the on-disk representation of one cached result.
type entry struct {
	Version     int             `json:"version"`
	SourcePath  string          `json:"source_path"`
	SourceMtime int64           `json:"source_mtime"`
	CachedAt    time.Time       `json:"cached_at"`
	Payload     json.RawMessage `json:"payload"`
}

// New builds a disk cache when enabled; returns nil when caching is
// disabled or misconfigured. A nil *Cache is safe to use and misses always.
func New(cfg *config.Config, logger *slog.Logger) *Cache {
	if cfg == nil || !cfg.DiskCache.Enabled {
		return nil
	}
	root := strings.TrimSpace(cfg.Paths.CacheDir)
	if root == "" || cfg.DiskCache.MaxGiB <= 0 {
		return nil
	}
	return &Cache{
		root:     filepath.Join(root, "methods"),
		maxBytes: int64(cfg.DiskCache.MaxGiB) * 1024 * 1024 * 1024,
		logger:   logging.NewComponentLogger(logger, "diskcache"),
		statfs:   realStatfs,
	}
}

// Get loads a cached result into out. It returns true only when an entry
// exists for (source, namespace, fn) and the source path's mtime still
// matches the mtime recorded at write time. Decode failures and stale
// entries count as misses, never errors.
func (c *Cache) Get(source, namespace, fn string, out any) bool {
	if c == nil {
		return false
	}
	mtime, ok := sourceMtime(source)
	if !ok {
		return false
	}

	path := c.entryPath(source, namespace, fn)
	payload, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var ent entry
	if err := json.Unmarshal(payload, &ent); err != nil {
		// Corrupt cache file: drop it so the rewrite starts clean.
		_ = os.Remove(path)
		return false
	}
	if ent.Version != entryVersion || ent.SourceMtime != mtime {
		return false
	}
	if err := json.Unmarshal(ent.Payload, out); err != nil {
		_ = os.Remove(path)
		return false
	}
	return true
}

// Put stores a result keyed by (source, namespace, fn), recording the
// source path's current mtime for later invalidation. Writes are atomic;
// concurrent writers across processes race harmlessly (last write wins).
func (c *Cache) Put(source, namespace, fn string, value any) error {
	if c == nil {
		return nil
	}
	mtime, ok := sourceMtime(source)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("diskcache: encode value: %w", err)
	}
	ent := entry{
		Version:     entryVersion,
		SourcePath:  source,
		SourceMtime: mtime,
		CachedAt:    time.Now().UTC(),
		Payload:     payload,
	}
	encoded, err := json.Marshal(ent)
	if err != nil {
		return fmt.Errorf("diskcache: encode entry: %w", err)
	}

	path := c.entryPath(source, namespace, fn)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("diskcache: ensure dir: %w", err)
	}
	tmp := path + fmt.Sprintf(".%d.tmp", time.Now().UnixNano())
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return fmt.Errorf("diskcache: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("diskcache: rename entry: %w", err)
	}

	c.logger.Debug("stored cache entry",
		logging.String(logging.FieldPath, source),
		logging.String("namespace", namespace),
		logging.String("func", fn))
	return nil
}

// Invalidate removes the entry for (source, namespace, fn) if present.
func (c *Cache) Invalidate(source, namespace, fn string) {
	if c == nil {
		return
	}
	_ = os.Remove(c.entryPath(source, namespace, fn))
}

// Flush removes every cached entry.
func (c *Cache) Flush() error {
	if c == nil {
		return nil
	}
	if err := os.RemoveAll(c.root); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("diskcache: flush: %w", err)
	}
	return nil
}

// entryPath derives a deterministic file location from the cache key. The
// namespace keeps one directory per concern so flushes and inspection stay
// targeted.
func (c *Cache) entryPath(source, namespace, fn string) string {
	sum := sha256.Sum256([]byte(source + "|" + namespace + "|" + fn))
	name := hex.EncodeToString(sum[:8]) + "_" + fn + ".json"
	return filepath.Join(c.root, namespace, name)
}

func sourceMtime(source string) (int64, bool) {
	info, err := os.Stat(source)
	if err != nil {
		return 0, false
	}
	return info.ModTime().UnixNano(), true
}
