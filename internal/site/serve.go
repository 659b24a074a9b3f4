// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/base/logger"

	"github.com/fsnotify/fsnotify"
)

var serveReadyHook func() // used in tests, called when Serve started serving the site

// rebuilder runs build once the watched files have been quiet for delay.
// Builds never overlap.
type rebuilder struct {
	delay time.Duration
	build func()

	mu    sync.Mutex // guards timer
	timer *time.Timer

	building sync.Mutex
}

// schedule starts or restarts the countdown to the next build.
func (r *rebuilder) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer == nil {
		r.timer = time.AfterFunc(r.delay, r.run)
		return
	}
	r.timer.Reset(r.delay)
}

func (r *rebuilder) run() {
	r.building.Lock()
	defer r.building.Unlock()
	r.build()
}

// stop cancels a pending build.
func (r *rebuilder) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
}

// Serve builds the site and serves Dst on addr until ctx is canceled. Changes
// under the content and static directories trigger a rebuild. A failed
// rebuild is logged and the previous output stays up.
func Serve(ctx context.Context, c *Config, reg *Registry, addr string) error {
	c.setDefaults()

	logger.Info(ctx, "performing an initial build")
	if _, err := Build(ctx, c, reg); err != nil {
		logger.Error(ctx, "initial build failed", slog.Any("err", err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	for _, dir := range []string{
		filepath.Join(c.Src, "content"),
		filepath.Join(c.Src, "static"),
	} {
		if err := watchRecursive(watcher, dir); err != nil {
			return err
		}
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer l.Close()
	logger.Info(ctx, "listening for HTTP requests", slog.String("addr", "http://"+l.Addr().String()))

	httpSrv := &http.Server{Handler: &outputHandler{fsys: os.DirFS(c.Dst)}}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				errCh <- err
			}
		}
	}()

	rb := &rebuilder{
		delay: 250 * time.Millisecond,
		build: func() {
			if ctx.Err() != nil {
				return
			}
			start := time.Now()
			res, err := Build(ctx, c, reg)
			if err != nil {
				logger.Error(ctx, "failed to rebuild the site, serving the previous build", slog.Any("err", err))
				return
			}
			logger.Info(ctx, "rebuilt the site",
				slog.Duration("took", time.Since(start)),
				slog.Int("warnings", len(res.Warnings)),
			)
		},
	}
	defer rb.stop()

	go func() {
		logger.Info(ctx, "started watching for new changes")

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !affectsBuild(event) {
					continue
				}
				// New directories have to be watched too.
				if event.Op&fsnotify.Create != 0 {
					if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
						if err := watchRecursive(watcher, event.Name); err != nil {
							logger.Error(ctx, "failed to watch directory", slog.String("name", event.Name), slog.Any("err", err))
						}
					}
				}
				logger.Info(ctx, "detected change, scheduling build",
					slog.String("name", event.Name),
					slog.Any("op", event.Op),
				)
				rb.schedule()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error(ctx, "watcher failed", slog.Any("err", err))
			case <-ctx.Done():
				return
			}
		}
	}()

	if serveReadyHook != nil {
		serveReadyHook()
	}

	select {
	case <-ctx.Done():
		logger.Info(ctx, "gracefully shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}

// affectsBuild reports whether ev changes an input of the build. Files the
// build skips are ignored, and so is the 4913 file Vim creates to check that
// a directory is writable.
func affectsBuild(ev fsnotify.Event) bool {
	if isIgnorable(ev.Name) || filepath.Base(ev.Name) == "4913" {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// outputHandler serves the build output the way the site is deployed: a
// route is answered with the file it was rendered to, and anything else gets
// 404.html.
type outputHandler struct {
	fsys fs.FS
}

func (h *outputHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, ok := h.lookup(r.URL.Path)
	if !ok {
		h.notFound(w, r)
		return
	}
	http.ServeFileFS(w, r, h.fsys, name)
}

// lookup returns the output file for a request path. Files are matched
// as written, like /robots.txt or /css/main-1a2b.css, and routes by the
// name they're rendered to.
func (h *outputHandler) lookup(urlPath string) (string, bool) {
	route := cleanRoute(urlPath)
	candidates := []string{outputName(route)}
	if path.Ext(route) != "" {
		candidates = append([]string{strings.TrimPrefix(route, "/")}, candidates...)
	}
	for _, name := range candidates {
		if fi, err := fs.Stat(h.fsys, name); err == nil && fi.Mode().IsRegular() {
			return name, true
		}
	}
	return "", false
}

func (h *outputHandler) notFound(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(h.fsys, outputName(notFoundRoute))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write(page)
}
