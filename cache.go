// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package localcache

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/tunabay/go-infounit"
	"golang.org/x/sync/semaphore"
)

// Cache represents the cache directory for one namespace.
type Cache struct {
	dir       string
	namespace string
	ext       string
	initErr   error

	workers int
	sem     *semaphore.Weighted
	wg      sync.WaitGroup

	numAdded     uint64
	numAddFailed uint64
	numHit       uint64
	numMissed    uint64
	numRemoved   uint64
	numPurged    uint64
	numAsync     int
	mu           sync.Mutex

	log      Logger
	debugLog bool
}

var (
	dataHome       = func() string { return xdg.DataHome }
	createTempFile = os.CreateTemp
	renameFile     = os.Rename
	volumeName     = filepath.VolumeName
)

// New creates a cache for the namespace with the default configuration. Empty
// namespace or ext means DefaultNamespace or DefaultExtension.
func New(namespace, ext string) (*Cache, error) {
	return NewWithConfig(
		&Config{
			Namespace: namespace,
			Extension: ext,
		},
	)
}

// NewWithConfig creates a cache using the given configuration parameters.
//
// It returns an error only if the configuration is invalid. A failure to
// resolve or create the cache directory is logged and kept in the returned
// Cache, which can be checked with Err. Operations on such a Cache fail
// without touching anything outside the intended directory.
func NewWithConfig(conf *Config) (*Cache, error) {
	if conf == nil {
		conf = &Config{}
	}
	namespace := conf.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	ext := cleanExt(conf.Extension)
	if ext == "" {
		ext = DefaultExtension
	}

	switch {
	case conf.Workers < 0:
		return nil, fmt.Errorf("%w: negative Workers", ErrInvalidConfig)
	case !isPathElem(namespace):
		return nil, fmt.Errorf("%w: bad Namespace %q", ErrInvalidConfig, namespace)
	case strings.ContainsRune(ext, '/'), strings.ContainsRune(ext, filepath.Separator):
		return nil, fmt.Errorf("%w: bad Extension %q", ErrInvalidConfig, ext)
	}

	c := &Cache{
		namespace: namespace,
		ext:       ext,
		workers:   conf.Workers,

		log:      conf.Logger,
		debugLog: conf.DebugLog,
	}
	if c.workers == 0 {
		c.workers = runtime.NumCPU()
	}
	c.sem = semaphore.NewWeighted(int64(c.workers))

	base, err := resolveBaseDir(conf.Dir)
	if err != nil {
		c.initErr = fmt.Errorf("%w: %v", ErrNotReady, err) //nolint:errorlint
		c.logPrintf("Critical error: can not resolve cache dir: %v", err)
		return c, nil
	}
	c.dir = filepath.Join(base, namespace)

	if err := os.MkdirAll(c.dir, 0o0700); err != nil {
		c.initErr = fmt.Errorf("%s: %w", c.dir, err)
		c.logPrintf("%s: Failed to create cache dir: %v", c.dir, err)
		return c, nil
	}
	c.logDebugf("Cache directory: %s", c.dir)

	return c, nil
}

// resolveBaseDir returns the absolute base directory for dir.
func resolveBaseDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	home := dataHome()
	switch {
	case home == "":
		return "", errors.New("user data directory is unknown")
	case !filepath.IsAbs(home):
		return "", fmt.Errorf("user data directory %q is not absolute", home)
	}

	return filepath.Join(home, dir), nil
}

// Dir returns the path to the cache directory. It is empty if the directory
// could not be resolved.
func (c *Cache) Dir() string { return c.dir }

// Namespace returns the name of the cache directory.
func (c *Cache) Namespace() string { return c.namespace }

// Extension returns the default file extension, without a leading dot.
func (c *Cache) Extension() string { return c.ext }

// Err returns the error occurred while preparing the cache directory at
// creation, or nil if the directory is ready. A successful Purge recreates the
// directory and clears the error.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErr
}

// notReady returns the error for an operation on a Cache without directory.
func (c *Cache) notReady() error {
	if err := c.Err(); err != nil {
		return err
	}
	return ErrNotReady
}

// FilePath returns the path of the cache file for the identifier. The
// identifier is percent-decoded and ext is appended as the file extension. An
// empty ext means the default extension of the Cache.
//
// The file does not need to exist. It fails with ErrInvalidIdentifier when the
// identifier can not be decoded, the path would not be inside the cache
// directory, or a name in the path starts with the prefix reserved for
// temporary files, ".localcache-".
func (c *Cache) FilePath(id, ext string) (string, error) {
	if c.dir == "" {
		return "", c.notReady()
	}
	name, err := decodeIdentifier(id)
	if err != nil {
		c.logPrintf("Failed to decode identifier: %v", err)
		return "", err
	}
	if ext = cleanExt(ext); ext == "" {
		ext = c.ext
	}

	path := filepath.Join(c.dir, name+"."+ext)
	rel, ok := within(c.dir, path)
	switch {
	case !ok:
		c.logPrintf("Identifier %q resolves outside the cache dir.", id)
		return "", fmt.Errorf("%w: %q: outside the cache dir", ErrInvalidIdentifier, id)
	case hasTempElem(rel):
		c.logPrintf("Identifier %q uses the reserved prefix %q.", id, tempPrefix)
		return "", fmt.Errorf("%w: %q: reserved name", ErrInvalidIdentifier, id)
	}

	return path, nil
}

// FileURL is the same as FilePath, except that it returns the path as a file
// URL.
func (c *Cache) FileURL(id, ext string) (*url.URL, error) {
	path, err := c.FilePath(id, ext)
	if err != nil {
		return nil, err
	}

	return &url.URL{Scheme: "file", Path: urlPath(path)}, nil
}

// urlPath converts the file path to the path part of a file URL. A path with a
// volume name, such as C:\x on Windows, gets a leading slash.
func urlPath(path string) string {
	p := filepath.ToSlash(path)
	if volumeName(path) != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// CachedFileList returns the paths of all files and directories in the cache
// directory, relative to it. The order is unspecified. Unreadable directories
// are skipped, and if the cache directory itself can not be read, it returns
// an empty list. The errors are only logged.
func (c *Cache) CachedFileList() []string {
	if c.dir == "" {
		c.logPrintf("CachedFileList: %v", c.notReady())
		return nil
	}

	var list []string
	walker := func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil && path == c.dir:
			return err
		case err != nil:
			c.logPrintf("%s: Skip unreadable entry: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		case path == c.dir:
			return nil
		case isTempName(d.Name()):
			return nil
		}
		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			c.logPrintf("%s: Skip unexpected entry: %v", path, err)
			return nil
		}
		list = append(list, rel)

		return nil
	}
	if err := filepath.WalkDir(c.dir, walker); err != nil {
		c.logPrintf("%s: Failed to read cache dir: %v", c.dir, err)
		return nil
	}

	return list
}

// Add writes data to the cache file for the identifier, replacing the existing
// one if any, and returns the path to the written file. An empty ext means the
// default extension.
//
// The file is written to a temporary file first and then renamed, so that a
// partially written file is never visible under the cache file path. Note
// that the existing file is removed before writing, so a concurrent reader
// may see the entry missing for a moment.
func (c *Cache) Add(data []byte, id, ext string) (string, error) {
	path, err := c.FilePath(id, ext)
	if err != nil {
		c.count(&c.numAddFailed)
		return "", err
	}
	if err := c.writeFile(path, data); err != nil {
		c.logPrintf("%s: Failed to add: %v", path, err)
		c.count(&c.numAddFailed)
		return "", err
	}
	c.logDebugf("%s: Added. size=%.1S", path, infounit.ByteCount(len(data)))
	c.count(&c.numAdded)

	return path, nil
}

// writeFile atomically replaces the file at path with data.
func (c *Cache) writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != c.dir {
		if err := os.MkdirAll(dir, 0o0700); err != nil {
			return fmt.Errorf("failed to create dir: %w", err)
		}
	}

	if _, err := os.Lstat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat: %w", err)
	}

	tmp, err := createTempFile(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := renameFile(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Remove removes the cache file for the identifier. Unlike Data, it is an error
// to remove an entry that does not exist, and the returned error wraps
// fs.ErrNotExist in that case.
func (c *Cache) Remove(id, ext string) error {
	path, err := c.FilePath(id, ext)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		c.logPrintf("Failed to remove: %v", err)
		return fmt.Errorf("failed to remove: %w", err)
	}
	c.logDebugf("%s: Removed.", path)
	c.count(&c.numRemoved)

	return nil
}

// Data reads the cache file for the identifier. If the file does not exist, it
// returns false with no error. An empty ext means the default extension.
func (c *Cache) Data(id, ext string) ([]byte, bool, error) {
	path, err := c.FilePath(id, ext)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.logDebugf("%s: Cache miss.", path)
		c.count(&c.numMissed)
		return nil, false, nil
	case err != nil:
		c.logPrintf("Failed to read: %v", err)
		return nil, false, fmt.Errorf("failed to read: %w", err)
	}
	c.logDebugf("%s: Cache hit. size=%.1S", path, infounit.ByteCount(len(data)))
	c.count(&c.numHit)

	return data, true, nil
}

// Purge removes the cache directory with everything in it, and creates it again
// empty.
func (c *Cache) Purge() error {
	if c.dir == "" {
		err := c.notReady()
		c.logPrintf("Purge: %v", err)
		return err
	}
	if err := os.RemoveAll(c.dir); err != nil {
		c.logPrintf("%s: Failed to remove cache dir: %v", c.dir, err)
		return fmt.Errorf("failed to remove cache dir: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o0700); err != nil {
		c.logPrintf("%s: Failed to create cache dir: %v", c.dir, err)
		return fmt.Errorf("%s: failed to create cache dir: %w", c.dir, err)
	}
	c.mu.Lock()
	c.initErr = nil
	c.numPurged++
	c.mu.Unlock()
	c.logDebugf("%s: Purged.", c.dir)

	return nil
}

// count increments the counter pointed to by p.
func (c *Cache) count(p *uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*p++
}

// logPrefix returns the prefix string for log messages, according to the
// current configuration.
func (c *Cache) logPrefix() string {
	if !c.debugLog {
		return ""
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		return fmt.Sprintf("%s:%d:", filepath.Base(file), line)
	}
	return "(unknown):"
}

// logPrintf outputs a log message according to the current configuration.
func (c *Cache) logPrintf(format string, v ...any) {
	if c.log == nil {
		return
	}
	s := make([]string, 0, 2)
	if prefix := c.logPrefix(); prefix != "" {
		s = append(s, prefix)
	}
	s = append(s, fmt.Sprintf(format, v...))

	c.log.LocalCacheLog(strings.Join(s, " "))
}

// logDebugf outputs a debug log message according to the current configuration.
func (c *Cache) logDebugf(format string, v ...any) {
	if c.log == nil || !c.debugLog {
		return
	}

	s := make([]string, 0, 2)
	if prefix := c.logPrefix(); prefix != "" {
		s = append(s, prefix)
	}
	s = append(s, fmt.Sprintf(format, v...))
	line := strings.Join(s, " ")

	if dl, ok := c.log.(DebugLogger); ok {
		dl.LocalCacheDebugLog(line)
		return
	}
	c.log.LocalCacheLog(line)
}
