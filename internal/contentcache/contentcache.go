// Package contentcache fetches legacy file content on demand and
// memoizes it on disk, bounding concurrent fetches to a fixed worker
// count (the cvs_processes-style setting). Writes land via a
// temp-file-then-rename so a reader never observes a partially written
// cache entry even under concurrent fetches for the same revision.
package contentcache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alitto/pond"
	cmap "github.com/orcaman/concurrent-map"
)

// Fetcher retrieves the byte content of one file at one revision from
// wherever the legacy repository actually lives; supplied by the caller
// so this package stays transport-agnostic (a direct ,v read, a `cvs co
// -p` shellout, or a remote CVS pserver client can all implement it).
type Fetcher func(path, revision string) ([]byte, error)

// Cache fetches and caches file content on disk.
type Cache struct {
	dir     string
	fetch   Fetcher
	pool    *pond.WorkerPool
	entries cmap.ConcurrentMap
}

// New builds a Cache rooted at dir, running at most workers concurrent
// fetches at a time.
func New(dir string, workers int, fetch Fetcher) (*Cache, error) {
	if workers < 1 {
		workers = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("contentcache: creating cache dir: %w", err)
	}
	return &Cache{
		dir:     dir,
		fetch:   fetch,
		pool:    pond.New(workers, 0, pond.MinWorkers(workers)),
		entries: cmap.New(),
	}, nil
}

// Get returns the on-disk path holding path@revision's content, fetching
// and writing it first on a cache miss. Concurrent callers racing on the
// same (path, revision) pair may both materialize the file; the atomic
// rename means every caller observes one complete copy (a later rename
// replaces an earlier one with identical bytes), and the duplicate write
// is simply wasted work, never a corrupt read.
func (c *Cache) Get(path, revision string) (string, error) {
	key := cacheKey(path, revision)
	if v, ok := c.entries.Get(key); ok {
		return v.(string), nil
	}

	type outcome struct {
		path string
		err  error
	}
	done := make(chan outcome, 1)
	c.pool.Submit(func() {
		p, err := c.materialize(key, path, revision)
		done <- outcome{p, err}
	})
	res := <-done
	if res.err != nil {
		return "", res.err
	}
	c.entries.Set(key, res.path)
	return res.path, nil
}

func (c *Cache) materialize(key, path, revision string) (string, error) {
	target := filepath.Join(c.dir, key)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	data, err := c.fetch(path, revision)
	if err != nil {
		return "", fmt.Errorf("contentcache: fetching %s@%s: %w", path, revision, err)
	}

	tmp, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return "", fmt.Errorf("contentcache: creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("contentcache: writing %s@%s: %w", path, revision, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("contentcache: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("contentcache: renaming into place: %w", err)
	}
	return target, nil
}

// Close waits for outstanding fetches to finish and shuts down the pool.
func (c *Cache) Close() {
	c.pool.StopAndWait()
}

func cacheKey(path, revision string) string {
	sum := sha1.Sum([]byte(path + "@" + revision))
	return hex.EncodeToString(sum[:])
}
