// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run runs the command line with the global flags for dir, and returns the
// standard output.
func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.Reader = strings.NewReader(stdin)

	argv := append([]string{"localcache", "--dir", dir, "--namespace", "images"}, args...)
	err := app.Run(context.Background(), argv)
	return out.String(), err
}

func TestAddGetRemove(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "\x01\x02\x03", "add", "photo#1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "images", "photo#1.dat")+"\n", out)

	out, err = run(t, dir, "", "get", "photo#1")
	require.NoError(t, err)
	assert.Equal(t, "\x01\x02\x03", out)

	_, err = run(t, dir, "", "rm", "photo#1")
	require.NoError(t, err)

	_, err = run(t, dir, "", "get", "photo#1")
	assert.ErrorIs(t, err, errNotCached)

	_, err = run(t, dir, "", "rm", "photo#1")
	assert.Error(t, err)
}

func TestAddFromFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(t.TempDir(), "src.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"a":1}`), 0o600))

	_, err := run(t, dir, "", "add", "--as", "json", "doc", src)
	require.NoError(t, err)

	out, err := run(t, dir, "", "get", "--as", "json", "doc")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)

	_, err = run(t, dir, "", "get", "doc")
	assert.ErrorIs(t, err, errNotCached)
}

func TestPathAndList(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "path", "my%20photo")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "images", "my photo.dat")+"\n", out)

	out, err = run(t, dir, "", "path", "--url", "photo")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "file://"), out)

	_, err = run(t, dir, "", "path", "%zz")
	assert.Error(t, err)

	for _, id := range []string{"a", "b"} {
		_, err := run(t, dir, id, "add", id)
		require.NoError(t, err)
	}
	out, err = run(t, dir, "", "ls")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.dat", "b.dat"}, strings.Fields(out))

	out, err = run(t, dir, "", "ls", "--long")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	out, err = run(t, dir, "", "stat")
	require.NoError(t, err)
	assert.Contains(t, out, "files=2")

	_, err = run(t, dir, "", "purge")
	require.NoError(t, err)
	out, err = run(t, dir, "", "ls")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMissingIdentifier(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "get")
	assert.ErrorContains(t, err, "identifier required")
}

func TestBadNamespace(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run(context.Background(), []string{"localcache", "--dir", t.TempDir(), "--namespace", "a/b", "ls"})
	assert.ErrorContains(t, err, "invalid config")
}

func TestCacheLogger(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "debug")
	t.Cleanup(func() { initLogger(os.Stderr, "") })

	l := &cacheLogger{log: log.Log}
	l.LocalCacheLog("x.dat: Failed to add: boom")
	l.LocalCacheDebugLog("x.dat: Added.")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], " W x.dat: Failed to add: boom")
	assert.Contains(t, lines[1], " D x.dat: Added.")
}

func TestDebugFlag(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "")
	t.Cleanup(func() { initLogger(os.Stderr, "") })
	dir := t.TempDir()

	_, err := run(t, dir, "abc", "add", "k")
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = run(t, dir, "abc", "--debug", "add", "k")
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, " D cache dir: ")
	assert.Contains(t, out, "k.dat: Added.")
	assert.Contains(t, out, "cache.go:")
}

func TestWarningsShownByDefault(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, "")
	t.Cleanup(func() { initLogger(os.Stderr, "") })

	_, err := run(t, t.TempDir(), "", "path", "%zz")
	require.Error(t, err)
	assert.Contains(t, buf.String(), " W Failed to decode identifier")
}
