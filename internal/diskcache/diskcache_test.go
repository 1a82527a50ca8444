package diskcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"slate/internal/config"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.DiskCache.Enabled = true
	cfg.DiskCache.MaxGiB = 1
	cache := New(&cfg, nil)
	if cache == nil {
		t.Fatalf("expected cache")
	}
	cache.statfs = func(string) (uint64, uint64, error) { return 100, 50, nil }
	return cache
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestPutGetRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	source := writeSource(t, "v1")

	value := []string{"a", "b", "c"}
	if err := cache.Put(source, "jobs", "read_jobs", value); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got []string
	if !cache.Get(source, "jobs", "read_jobs", &got) {
		t.Fatalf("expected cache hit")
	}
	if len(got) != 3 || got[0] != "a" {
		t.Fatalf("unexpected cached value %v", got)
	}
}

func TestSourceMtimeInvalidates(t *testing.T) {
	cache := newTestCache(t)
	source := writeSource(t, "v1")

	if err := cache.Put(source, "jobs", "read_jobs", []string{"a"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Move the source mtime forward; the recorded mtime no longer matches.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(source, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	var got []string
	if cache.Get(source, "jobs", "read_jobs", &got) {
		t.Fatalf("expected miss after source mtime change")
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	cache := newTestCache(t)
	source := writeSource(t, "v1")

	if err := cache.Put(source, "jobs", "read_jobs", []string{"a"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	path := cache.entryPath(source, "jobs", "read_jobs")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt entry: %v", err)
	}

	var got []string
	if cache.Get(source, "jobs", "read_jobs", &got) {
		t.Fatalf("expected miss for corrupt entry")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupt entry should have been removed")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *Cache
	var got []string
	if cache.Get("/nowhere", "jobs", "fn", &got) {
		t.Fatalf("nil cache should miss")
	}
	if err := cache.Put("/nowhere", "jobs", "fn", got); err != nil {
		t.Fatalf("nil cache put should be a no-op: %v", err)
	}
}

func TestPruneRemovesOldestFirst(t *testing.T) {
	cache := newTestCache(t)
	cache.maxBytes = 1 // force pruning of almost everything

	older := writeSource(t, "old")
	newer := writeSource(t, "new")
	if err := cache.Put(older, "jobs", "old_fn", "x"); err != nil {
		t.Fatalf("put old: %v", err)
	}
	oldPath := cache.entryPath(older, "jobs", "old_fn")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := cache.Put(newer, "jobs", "new_fn", "y"); err != nil {
		t.Fatalf("put new: %v", err)
	}

	if err := cache.Prune(); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("oldest entry should be pruned first")
	}
}

func TestFlushAndStats(t *testing.T) {
	cache := newTestCache(t)
	source := writeSource(t, "v1")
	if err := cache.Put(source, "jobs", "read_jobs", "x"); err != nil {
		t.Fatalf("put: %v", err)
	}

	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Entries != 1 {
		t.Fatalf("expected 1 entry, got %d", stats.Entries)
	}

	if err := cache.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	stats, err = cache.Stats()
	if err != nil {
		t.Fatalf("stats after flush: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("expected empty cache after flush, got %d", stats.Entries)
	}
}
