// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apex/log"
)

// initLogger sets up apex/log with the line handler writing to w. An empty or
// unknown level means WARN.
func initLogger(w io.Writer, level string) {
	log.SetHandler(&lineHandler{w: w})
	lv, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lv = log.WarnLevel
	}
	log.SetLevel(lv)
}

// lineHandler formats log messages into single lines.
type lineHandler struct {
	w io.Writer
}

// HandleLog implements the log.Handler interface.
func (h *lineHandler) HandleLog(e *log.Entry) error {
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	level := strings.ToUpper(e.Level.String())
	_, err := fmt.Fprintf(h.w, "%s %.1s %s\n", timestamp.Format("2006-01-02 15:04:05"), level, e.Message)
	return err
}

// cacheLogger forwards the log messages from localcache to apex/log. Failures
// are logged as warnings, and debug messages as debug.
type cacheLogger struct {
	log log.Interface
}

// LocalCacheLog implements localcache.Logger.
func (l *cacheLogger) LocalCacheLog(line string) { l.log.Warn(line) }

// LocalCacheDebugLog implements localcache.DebugLogger.
func (l *cacheLogger) LocalCacheDebugLog(line string) { l.log.Debug(line) }
