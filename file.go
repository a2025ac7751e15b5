// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package localcache

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/petar/GoLLRB/llrb"
)

// FileInfo implements fs.FileInfo interface for a cached file returned by
// Entries.
type FileInfo struct {
	name    string
	path    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

var _ fs.FileInfo = (*FileInfo)(nil)

// Name returns the path of the file relative to the cache directory. It is the
// decoded identifier followed by the extension.
func (i *FileInfo) Name() string { return i.name }

// Path returns the full path to the file.
func (i *FileInfo) Path() string { return i.path }

// Size returns the file size in byte.
func (i *FileInfo) Size() int64 { return i.size }

// Mode returns the file mode bits.
func (i *FileInfo) Mode() fs.FileMode { return i.mode }

// ModTime returns the time the file was last written.
func (i *FileInfo) ModTime() time.Time { return i.modTime }

// IsDir always returns false, since only regular files are reported.
func (*FileInfo) IsDir() bool { return false }

// Sys always returns nil.
func (*FileInfo) Sys() any { return nil }

// Less orders the entries by the last modified time, then by the name. It
// implements llrb.Item interface.
func (i *FileInfo) Less(xif llrb.Item) bool {
	x := xif.(*FileInfo) //nolint:forcetypeassert
	if !i.modTime.Equal(x.modTime) {
		return i.modTime.Before(x.modTime)
	}
	return i.name < x.name
}

// Entries returns the information of the regular files in the cache directory,
// ordered from the oldest modified one. Directories created by nested
// identifiers are not included, but the files in them are. Unreadable entries
// are skipped.
func (c *Cache) Entries() ([]*FileInfo, error) {
	if c.dir == "" {
		return nil, c.notReady()
	}

	tree := llrb.New()
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
		case !d.Type().IsRegular(), isTempName(d.Name()):
			return nil
		}
		finfo, err := d.Info()
		if err != nil {
			c.logPrintf("%s: Failed to stat: %v", path, err)
			return nil
		}
		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			return nil
		}
		tree.InsertNoReplace(&FileInfo{
			name:    rel,
			path:    path,
			size:    finfo.Size(),
			mode:    finfo.Mode(),
			modTime: finfo.ModTime(),
		})

		return nil
	}
	if err := filepath.WalkDir(c.dir, walker); err != nil {
		c.logPrintf("%s: Failed to read cache dir: %v", c.dir, err)
		return nil, fmt.Errorf("%s: failed to read cache dir: %w", c.dir, err)
	}

	list := make([]*FileInfo, 0, tree.Len())
	iterator := func(iif llrb.Item) bool {
		list = append(list, iif.(*FileInfo)) //nolint:forcetypeassert
		return true
	}
	tree.AscendGreaterOrEqual(&FileInfo{}, iterator)

	return list, nil
}
