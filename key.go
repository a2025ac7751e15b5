// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package localcache

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// tempPrefix is the name prefix of the temporary files used while writing
// cache files. Entries with this prefix are not reported as cached files, and
// identifiers can not use it.
const tempPrefix = ".localcache-"

// isTempName reports whether the file name belongs to an in-flight write.
func isTempName(name string) bool { return strings.HasPrefix(name, tempPrefix) }

// decodeIdentifier decodes percent-encoded characters in the identifier. A
// plus sign is kept as it is. It fails when an escape sequence is malformed or
// the decoded bytes are not a valid UTF-8 string.
func decodeIdentifier(id string) (string, error) {
	name, err := url.PathUnescape(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidIdentifier, id, err) //nolint:errorlint
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: %q: decoded to invalid UTF-8", ErrInvalidIdentifier, id)
	}

	return name, nil
}

// cleanExt strips a leading dot from the file extension.
func cleanExt(ext string) string { return strings.TrimPrefix(ext, ".") }

// isPathElem reports whether s can be used as a single directory or file name
// component.
func isPathElem(s string) bool {
	switch {
	case s == "", s == ".", s == "..":
		return false
	case strings.ContainsRune(s, '/'), strings.ContainsRune(s, filepath.Separator):
		return false
	}
	return true
}

// within reports whether path is strictly below dir, and returns path relative
// to dir. Both must be clean.
func within(dir, path string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", false
	}
	switch {
	case rel == ".", rel == "..":
		return "", false
	case strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return "", false
	}
	return rel, true
}

// hasTempElem reports whether any name in the relative path rel starts with
// tempPrefix.
func hasTempElem(rel string) bool {
	for _, elem := range strings.Split(rel, string(filepath.Separator)) {
		if isTempName(elem) {
			return true
		}
	}
	return false
}
