// util/cache.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheSuffix is appended to every object name stored in an ObjectCache.
const CacheSuffix = ".msgpack.zst"

// ObjectCache stores msgpack-encoded, zstd-compressed objects as
// individual files in a directory.
type ObjectCache struct {
	Dir string
}

// DefaultCacheDir returns a "skyroute" directory under the user's cache
// directory, or a relative "cache" directory if there isn't one.
func DefaultCacheDir() string {
	if cd, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cd, "skyroute")
	}
	return "cache"
}

func (c ObjectCache) path(name string) string {
	return filepath.Join(c.Dir, name+CacheSuffix)
}

func (c ObjectCache) Store(name string, obj any) error {
	path := c.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// Write to a temporary file and rename so that readers never see a
	// partially-written object.
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(obj); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Retrieve decodes the named object into obj and returns the time it was
// stored. A missing object returns an error satisfying
// errors.Is(err, fs.ErrNotExist).
func (c ObjectCache) Retrieve(name string, obj any) (time.Time, error) {
	f, err := os.Open(c.path(name))
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	if err := msgpack.NewDecoder(zr).Decode(obj); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return fi.ModTime(), nil
}

// RemoveMatching deletes every stored object whose name satisfies match
// and returns the number removed.
func (c ObjectCache) RemoveMatching(match func(name string) bool) (int, error) {
	entries, err := os.ReadDir(c.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), CacheSuffix)
		if e.IsDir() || !ok || !match(name) {
			continue
		}
		if err := os.Remove(filepath.Join(c.Dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Cull removes the oldest objects until the cache is at most maxBytes.
func (c ObjectCache) Cull(maxBytes int64) error {
	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var totalSize int64

	entries, err := os.ReadDir(c.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil // Nothing to cull
	} else if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), CacheSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(c.Dir, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		totalSize += info.Size()
	}

	// Sort files by modification time, oldest first
	slices.SortFunc(files, func(a, b fileInfo) int {
		return a.modTime.Compare(b.modTime)
	})

	// Remove files oldest to newest until we're under the limit
	for len(files) > 0 && totalSize > maxBytes {
		f := files[0]
		if err := os.Remove(f.path); err == nil {
			totalSize -= f.size
		}
		files = files[1:]
	}

	return nil
}
