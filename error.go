// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package localcache

import "errors"

// ErrInvalidConfig is the error thrown when the passed configuration parameter
// is not valid.
var ErrInvalidConfig = errors.New("invalid config")

// ErrInvalidIdentifier is the error returned when an identifier can not be
// mapped to a file path in the cache directory, e.g. it contains a malformed
// percent-encoded sequence or points outside the cache directory.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ErrNotReady is the error returned by operations on a Cache whose directory
// could not be resolved when it was created.
var ErrNotReady = errors.New("cache directory not ready")
