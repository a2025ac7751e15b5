// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/tunabay/go-infounit"
	"github.com/tunabay/go-localcache"
)

const usage = `go-localcache example swatch server

GET    /img/<identifier>.<png|gif|jpg>  swatch image, cached under the identifier
DELETE /img/<identifier>.<ext>          remove the cached image
GET    /cache                           list the cached images, oldest first
DELETE /cache                           purge the cache
`

// server is the example image server. Each image is cached under the
// identifier and the extension taken from the request path.
type server struct {
	cache *localcache.Cache
	log   log.Interface
	mux   *http.ServeMux
}

// newServer creates a server that stores the images under the base directory
// dir.
func newServer(dir string) (*server, error) {
	sv := &server{log: log.WithField("app", "imgsv")}
	cache, err := localcache.NewWithConfig(&localcache.Config{
		Dir:       dir,
		Namespace: "imgsv",
		Extension: "png",
		Workers:   4,
		Logger:    sv,
		DebugLog:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	if err := cache.Err(); err != nil {
		return nil, fmt.Errorf("cache not ready: %w", err)
	}
	sv.cache = cache

	sv.mux = http.NewServeMux()
	sv.mux.HandleFunc("GET /{$}", sv.serveUsage)
	sv.mux.HandleFunc("GET /img/", sv.serveImage)
	sv.mux.HandleFunc("DELETE /img/", sv.removeImage)
	sv.mux.HandleFunc("GET /cache", sv.serveCacheList)
	sv.mux.HandleFunc("DELETE /cache", sv.purge)

	return sv, nil
}

// LocalCacheLog implements localcache.Logger.
func (sv *server) LocalCacheLog(line string) { sv.log.Warn(line) }

// LocalCacheDebugLog implements localcache.DebugLogger.
func (sv *server) LocalCacheDebugLog(line string) { sv.log.Debug(line) }

// serve logs the cache status periodically until ctx is done, and then waits
// for the pending cache writes.
func (sv *server) serve(ctx context.Context) error {
	ticker := time.NewTicker(time.Second * 30)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			sv.cache.Wait()
			return nil
		case <-ticker.C:
		}
		sv.log.Infof("cache status: %v", sv.cache.Status())
	}
}

// ServeHTTP implements http.Handler.
func (sv *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sv.mux.ServeHTTP(w, r)
}

// imageRef splits the request path below /img/ into the identifier and the
// extension. The identifier keeps its percent encoding, which the cache
// decodes.
func imageRef(r *http.Request) (id, ext string, ok bool) {
	p := strings.TrimPrefix(r.URL.EscapedPath(), "/img/")
	i := strings.LastIndexByte(p, '.')
	if i <= 0 || strings.ContainsRune(p[i:], '/') {
		return "", "", false
	}
	return p[:i], p[i+1:], true
}

// serveImage sends the cached image if any. Otherwise it creates the image,
// sends it, and stores it in the cache in the background.
func (sv *server) serveImage(w http.ResponseWriter, r *http.Request) {
	id, ext, ok := imageRef(r)
	f, known := formats[ext]
	if !ok || !known {
		httpError(w, http.StatusNotFound, "Resource %s not found.", r.URL.Path)
		return
	}

	img, cached, err := sv.cache.Data(id, ext)
	switch {
	case errors.Is(err, localcache.ErrInvalidIdentifier):
		httpError(w, http.StatusBadRequest, "Invalid image name: %v", err)
		return
	case err != nil:
		sv.log.WithError(err).Warn("cache read failed")
	}
	if !cached {
		var buf bytes.Buffer
		if err := createSwatch(id, f, &buf); err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to create image: %v", err)
			return
		}
		img = buf.Bytes()

		// The image is served without waiting for the write.
		ch := sv.cache.AddAsync(img, id, ext)
		go func() {
			if res := <-ch; !res.OK() {
				sv.log.WithError(res.Err).Warn("cache write failed")
			}
		}()
	}

	tag := "miss"
	if cached {
		tag = "hit"
	}
	if u, err := sv.cache.FileURL(id, ext); err == nil {
		w.Header().Set("X-Cache-File", u.String())
	}
	w.Header().Set("X-Cache", tag)
	w.Header().Set("Content-Type", f.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	if _, err := w.Write(img); err != nil {
		sv.log.WithError(err).Warn("write response")
		return
	}
	sv.log.WithFields(log.Fields{"id": id, "ext": ext, "cache": tag}).Info("served")
}

// removeImage removes the cached image.
func (sv *server) removeImage(w http.ResponseWriter, r *http.Request) {
	id, ext, ok := imageRef(r)
	if !ok {
		httpError(w, http.StatusNotFound, "Resource %s not found.", r.URL.Path)
		return
	}
	err := sv.cache.Remove(id, ext)
	switch {
	case errors.Is(err, localcache.ErrInvalidIdentifier):
		httpError(w, http.StatusBadRequest, "Invalid image name: %v", err)
		return
	case errors.Is(err, fs.ErrNotExist):
		httpError(w, http.StatusNotFound, "Image %s not cached.", r.URL.Path)
		return
	case err != nil:
		httpError(w, http.StatusInternalServerError, "Failed to remove: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// serveCacheList responds with the list of cached images, oldest first.
func (sv *server) serveCacheList(w http.ResponseWriter, _ *http.Request) {
	entries, err := sv.cache.Entries()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "Failed to list: %v", err)
		return
	}

	var buf bytes.Buffer
	var total infounit.ByteCount
	for _, e := range entries {
		sz := infounit.ByteCount(e.Size())
		total += sz
		fmt.Fprintf(&buf, "%s  %10s  %s\n", e.ModTime().Format(time.RFC3339), fmt.Sprintf("%.1S", sz), e.Name())
	}
	fmt.Fprintf(&buf, "%d images, total %.1S\n", len(entries), total)

	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		sv.log.WithError(err).Warn("write response")
	}
}

// purge removes all the cached images.
func (sv *server) purge(w http.ResponseWriter, _ *http.Request) {
	if err := sv.cache.Purge(); err != nil {
		httpError(w, http.StatusInternalServerError, "Failed to purge: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (sv *server) serveUsage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", strconv.Itoa(len(usage)))
	if _, err := w.Write([]byte(usage)); err != nil {
		sv.log.WithError(err).Warn("write response")
	}
}

// httpError responds with a plain text error message.
func httpError(w http.ResponseWriter, code int, format string, v ...any) {
	b := []byte(fmt.Sprintf(format, v...) + "\n")
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	_, _ = w.Write(b)
}
