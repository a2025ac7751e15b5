// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package localcache

// Config represents the parameters to configure Cache creation.
type Config struct {
	// The path to the base directory under which the namespace directory
	// is created. Both absolute and relative paths are allowed. A
	// relative path is treated as relative from the user-specific
	// persistent data directory, such as ~/.local/share on Linux or
	// ~/Library/Application Support on macOS. If it is empty, the data
	// directory itself is used.
	Dir string

	// The name of the directory that holds the cache files, distinguishing
	// this cache from others sharing the same base directory. It must be
	// a single path element. If it is empty, DefaultNamespace is used.
	Namespace string

	// The file extension appended to identifiers when no extension is
	// specified for an operation. A leading dot is ignored. If it is
	// empty, DefaultExtension is used.
	Extension string

	// The maximum number of asynchronous operations, AddAsync and
	// DataAsync, that perform disk I/O at the same time. Zero value means
	// the number of CPUs.
	Workers int

	// If not nil, Cache outputs log messages to this Logger object.
	Logger Logger

	// If true, Cache outputs debug log messages. Only effective if
	// Logger is not nil.
	DebugLog bool
}

const (
	// DefaultNamespace is the namespace directory name used when none is
	// configured.
	DefaultNamespace = "___defaultLocalCacheFolder"

	// DefaultExtension is the file extension used when none is configured.
	DefaultExtension = "dat"
)

// Logger is the interface implemented to receive log messages from the running
// Cache instance. Messages passed to LocalCacheLog report failures, unless the
// Logger also implements DebugLogger.
type Logger interface {
	LocalCacheLog(string)
}

// DebugLogger is an optional interface of a Logger. If the Logger implements
// it, debug messages are passed to LocalCacheDebugLog instead of LocalCacheLog,
// so that they can be told apart from failures.
type DebugLogger interface {
	LocalCacheDebugLog(string)
}

// LoggerFunc is an adapter to allow the use of an ordinary function as a
// Logger.
type LoggerFunc func(string)

// LocalCacheLog calls f(line).
func (f LoggerFunc) LocalCacheLog(line string) { f(line) }
