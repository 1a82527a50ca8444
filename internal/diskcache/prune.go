package diskcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"slate/internal/logging"
)

// freeSpaceFloor is the minimum free-space ratio we allow before pruning
// (e.g. 0.10 => 90% full).
const freeSpaceFloor = 0.10

// Stats describes current cache usage.
type Stats struct {
	Entries      int     `json:"entries"`
	TotalBytes   int64   `json:"total_bytes"`
	MaxBytes     int64   `json:"max_bytes"`
	FreeBytes    uint64  `json:"free_bytes"`
	TotalFSBytes uint64  `json:"total_fs_bytes"`
	FreeRatio    float64 `json:"free_ratio"`
}

type cacheFile struct {
	path      string
	sizeBytes int64
	modTime   time.Time
}

// Prune removes the oldest cache entries until both the size budget and the
// free-space floor are satisfied.
func (c *Cache) Prune() error {
	if c == nil {
		return nil
	}
	files, totalSize, err := c.scan()
	if err != nil {
		return err
	}

	for len(files) > 0 {
		freeOK, err := c.freeSpaceOK()
		if err != nil {
			return err
		}
		if totalSize <= c.maxBytes && freeOK {
			return nil
		}
		oldest := files[0]
		if err := os.Remove(oldest.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("diskcache: remove %q: %w", oldest.path, err)
		}
		c.logger.Debug("pruned cache entry",
			logging.String(logging.FieldPath, oldest.path),
			logging.Int64("entry_size_bytes", oldest.sizeBytes))
		totalSize -= oldest.sizeBytes
		files = files[1:]
	}
	return nil
}

// Stats returns current cache usage and filesystem free-space info.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	if c == nil {
		return s, nil
	}
	files, totalSize, err := c.scan()
	if err != nil {
		return s, err
	}
	totalFS, freeFS, err := c.statfs(filepath.Dir(c.root))
	if err != nil {
		return s, fmt.Errorf("diskcache: statfs: %w", err)
	}
	ratio := 1.0
	if totalFS > 0 {
		ratio = float64(freeFS) / float64(totalFS)
	}
	return Stats{
		Entries:      len(files),
		TotalBytes:   totalSize,
		MaxBytes:     c.maxBytes,
		FreeBytes:    freeFS,
		TotalFSBytes: totalFS,
		FreeRatio:    ratio,
	}, nil
}

func (c *Cache) scan() ([]cacheFile, int64, error) {
	var files []cacheFile
	var total int64
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		files = append(files, cacheFile{path: path, sizeBytes: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("diskcache: scan: %w", err)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})
	return files, total, nil
}

func (c *Cache) freeSpaceOK() (bool, error) {
	total, free, err := c.statfs(filepath.Dir(c.root))
	if err != nil {
		return false, fmt.Errorf("diskcache: statfs: %w", err)
	}
	if total == 0 {
		return true, nil
	}
	return float64(free)/float64(total) >= freeSpaceFloor, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
