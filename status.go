// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package localcache

import (
	"fmt"

	"github.com/tunabay/go-infounit"
)

// Status represents the cache status and statistics. The counters are for the
// Cache instance since it was created, while NumFiles and TotalSize reflect
// the files currently in the cache directory.
type Status struct {
	NumFiles     uint64             // number of files currently in cache.
	TotalSize    infounit.ByteCount // total size of files currently in cache.
	NumAdded     uint64             // total number of files written.
	NumAddFailed uint64             // total number of failed writes.
	NumHit       uint64             // total number of cache hits.
	NumMissed    uint64             // total number of cache misses.
	NumRemoved   uint64             // total number of removed cache files.
	NumPurged    uint64             // total number of purges.
	NumAsync     int                // number of asynchronous operations pending.
}

// String returns the string representation of Status.
func (s Status) String() string {
	return fmt.Sprintf(
		"files=%d, size=%.1S, add=%d, fail=%d, hit=%d, miss=%d, del=%d, purge=%d, async=%d",
		s.NumFiles,
		s.TotalSize,
		s.NumAdded,
		s.NumAddFailed,
		s.NumHit,
		s.NumMissed,
		s.NumRemoved,
		s.NumPurged,
		s.NumAsync,
	)
}

// Status returns the current cache status and statistics. It scans the cache
// directory to count the files.
func (c *Cache) Status() *Status {
	var (
		numFiles  uint64
		totalSize infounit.ByteCount
	)
	if entries, err := c.Entries(); err == nil {
		for _, e := range entries {
			numFiles++
			totalSize += infounit.ByteCount(e.Size())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return &Status{
		NumFiles:     numFiles,
		TotalSize:    totalSize,
		NumAdded:     c.numAdded,
		NumAddFailed: c.numAddFailed,
		NumHit:       c.numHit,
		NumMissed:    c.numMissed,
		NumRemoved:   c.numRemoved,
		NumPurged:    c.numPurged,
		NumAsync:     c.numAsync,
	}
}
