package tle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoSnapshot is returned when the cache holds no usable snapshot.
var ErrNoSnapshot = errors.New("no cached TLE snapshot")

// Cache keeps recent online snapshots on disk so a run can fall back to the
// last good download when the network is unavailable.
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache creates a Cache that stores files in dir and keeps at most maxFiles.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &Cache{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Write saves data as the snapshot taken at ts and prunes old snapshots
// beyond maxFiles. The file appears atomically.
func (c *Cache) Write(data []byte, ts time.Time) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	final := filepath.Join(c.dir, fmt.Sprintf("tle_%d.txt", ts.Unix()))
	tmp, err := os.CreateTemp(c.dir, ".tle_*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publishing cache file: %w", err)
	}

	return c.prune()
}

// LoadLatest reads the newest snapshot. When maxAge is positive, a snapshot
// older than maxAge relative to now is rejected.
func (c *Cache) LoadLatest(maxAge time.Duration, now time.Time) ([]byte, time.Time, error) {
	files, err := c.listFiles()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, ErrNoSnapshot
	}

	// Files are sorted oldest first; take the last one.
	latest := files[len(files)-1]
	if maxAge > 0 && now.Sub(latest.ts) > maxAge {
		return nil, latest.ts, fmt.Errorf("%w: newest is %s old", ErrNoSnapshot, now.Sub(latest.ts).Round(time.Second))
	}

	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	return data, latest.ts, nil
}

type cacheFile struct {
	name string
	ts   time.Time
}

func (c *Cache) listFiles() ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var files []cacheFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		tsStr, ok := strings.CutPrefix(name, "tle_")
		if !ok {
			continue
		}
		tsStr, ok = strings.CutSuffix(tsStr, ".txt")
		if !ok {
			continue
		}
		unix, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})

	return files, nil
}

func (c *Cache) prune() error {
	files, err := c.listFiles()
	if err != nil {
		return err
	}
	if len(files) <= c.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil {
			return fmt.Errorf("pruning cache file %s: %w", f.name, err)
		}
	}
	return nil
}
