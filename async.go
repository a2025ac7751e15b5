// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package localcache

import (
	"bytes"
	"context"
)

// AddResult represents the result of AddAsync.
type AddResult struct {
	Path string // path to the written file, empty on failure.
	Err  error
}

// OK reports whether the file was written.
func (r AddResult) OK() bool { return r.Err == nil }

// DataResult represents the result of DataAsync.
type DataResult struct {
	Data  []byte
	Found bool // false on cache miss or failure.
	Err   error
}

// AddAsync performs Add in the background and returns immediately. The returned
// channel receives exactly one result and is then closed. It is fine not to
// receive from the channel if the result is not needed; the file is written
// anyway.
//
// The data is copied, so the caller may reuse the slice after return. At most
// Config.Workers asynchronous operations run at the same time, and the rest
// wait for a free worker. There is no way to cancel a dispatched operation.
func (c *Cache) AddAsync(data []byte, id, ext string) <-chan AddResult {
	data = bytes.Clone(data)
	ch := make(chan AddResult, 1)
	c.dispatch(func() {
		path, err := c.Add(data, id, ext)
		ch <- AddResult{Path: path, Err: err}
		close(ch)
	})

	return ch
}

// DataAsync performs Data in the background and returns immediately. The
// returned channel receives exactly one result and is then closed. See
// AddAsync for the scheduling.
func (c *Cache) DataAsync(id, ext string) <-chan DataResult {
	ch := make(chan DataResult, 1)
	c.dispatch(func() {
		data, found, err := c.Data(id, ext)
		ch <- DataResult{Data: data, Found: found, Err: err}
		close(ch)
	})

	return ch
}

// Wait blocks until all asynchronous operations dispatched so far have
// finished.
func (c *Cache) Wait() { c.wg.Wait() }

// dispatch runs the task in a new goroutine once a worker slot is available.
func (c *Cache) dispatch(task func()) {
	c.wg.Add(1)
	c.mu.Lock()
	c.numAsync++
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.numAsync--
			c.mu.Unlock()
			c.wg.Done()
		}()

		// never fails with a context that is never canceled.
		_ = c.sem.Acquire(context.Background(), 1)
		defer c.sem.Release(1)

		task()
	}()
}
