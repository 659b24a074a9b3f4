// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"carsongrossdev.com/site/internal/elem"
	"carsongrossdev.com/site/internal/markup"
	"carsongrossdev.com/site/templates"

	"github.com/PuerkitoBio/goquery"
	"github.com/armon/go-radix"
	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	mjson "github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
	mxml "github.com/tdewolff/minify/v2/xml"
	"golang.org/x/sync/errgroup"
)

// Possible errors, used in tests.
var (
	errOutputConflict = errors.New("output file written twice")
	errMinify         = errors.New("failed to minify")
)

var shell = template.Must(template.New("layout").Parse(string(templates.Layout)))

// stylesheets are linked from every document, if they exist.
var stylesheets = []string{
	"/css/main.css",
	syntaxCSS,
}

const syntaxCSS = "/css/syntax.css"

type min struct {
	m *minify.M
}

func newMin() *min {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags:    true,
		KeepDefaultAttrVals: true,
		KeepEndTags:         true,
	})
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("application/json", mjson.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	m.AddFunc("text/xml", mxml.Minify)

	return &min{m: m}
}

func (m *min) Bytes(mediaType string, b []byte) ([]byte, error) {
	return m.m.Bytes(mediaType, b)
}

// mediaTypes maps extensions of static files to the media types they are
// minified as.
var mediaTypes = map[string]string{
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".svg":  "image/svg+xml",
}

type buildContext struct {
	c      *Config
	conv   *markup.Converter
	min    *min
	static map[string]string // path -> hashed path (e.g. /css/main.css -> /css/main-[hash].css)
	ctx    *Context
	files  map[string][]byte // slash-separated path relative to Dst -> contents
	docs   []*document
}

type document struct {
	t    *target
	html []byte
}

func newBuildContext(c *Config, conv *markup.Converter) *buildContext {
	return &buildContext{
		c:      c,
		conv:   conv,
		min:    newMin(),
		static: make(map[string]string),
		files:  make(map[string][]byte),
	}
}

func (b *buildContext) put(name string, data []byte) error {
	if _, ok := b.files[name]; ok {
		return fmt.Errorf("%w: %s", errOutputConflict, name)
	}
	b.files[name] = data
	return nil
}

// outputName returns the file a route is written to.
func outputName(route string) string {
	if route == "/" {
		return "index.html"
	}
	name := strings.TrimPrefix(route, "/")
	if !strings.HasSuffix(name, ".html") {
		name += ".html"
	}
	return name
}

type shellData struct {
	Title       string
	SiteName    string
	Author      string
	Description string
	Canonical   string
	Feed        string
	Stylesheets []string
	Header      template.HTML
	Body        template.HTML
	Footer      template.HTML
}

// render renders every target and wraps it in the document shell. Renders run
// concurrently; each writes only its own slot. Every failure is collected.
func (b *buildContext) render(ctx context.Context, reg *Registry, targets []*target, res *Result) error {
	header, headerWarnings, err := b.renderChrome("header", reg.Header)
	if err != nil {
		return newBuildError(err)
	}
	footer, footerWarnings, err := b.renderChrome("footer", reg.Footer)
	if err != nil {
		return newBuildError(err)
	}
	res.Warnings = append(res.Warnings, headerWarnings...)
	res.Warnings = append(res.Warnings, footerWarnings...)

	var (
		docs     = make([][]byte, len(targets))
		warnings = make([][]string, len(targets))
		errs     = make([]error, len(targets))
	)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, t := range targets {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			doc, warns, err := b.renderTarget(t, header, footer)
			if err != nil {
				errs[i] = ownerErr(t.owner, err)
				return nil
			}
			docs[i], warnings[i] = doc, warns
			switch t.kind {
			case pageTarget:
				res.Pages.Inc()
			case itemTarget:
				res.Items.Inc()
			case tagTarget:
				res.TagPages.Inc()
			}
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return newBuildError(err)
	}
	if err := newBuildError(errs...); err != nil {
		return err
	}

	for i, t := range targets {
		if err := b.put(outputName(t.route), docs[i]); err != nil {
			errs[i] = ownerErr(t.owner, err)
			continue
		}
		b.docs = append(b.docs, &document{t: t, html: docs[i]})
		res.Warnings = append(res.Warnings, warnings[i]...)
	}
	return newBuildError(errs...)
}

func (b *buildContext) renderChrome(name string, f func(*Context) []elem.Node) (template.HTML, []string, error) {
	if f == nil {
		return "", nil, nil
	}
	res, err := elem.Render(f(b.ctx), b.ctx)
	if err != nil {
		return "", nil, ownerErr(name, err)
	}
	return res.HTML, formatWarnings(name, res.Warnings), nil
}

func formatWarnings(owner string, warnings []elem.Warning) []string {
	var s []string
	for _, w := range warnings {
		s = append(s, owner+": "+w.String())
	}
	return s
}

func (b *buildContext) renderTarget(t *target, header, footer template.HTML) (doc []byte, warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	res, err := elem.Render(t.body(b.ctx), b.ctx)
	if err != nil {
		return nil, nil, err
	}

	data := &shellData{
		Title:       t.title + " - " + b.c.BaseTitle,
		SiteName:    b.c.Name,
		Author:      b.c.Author,
		Description: b.c.Description,
		Canonical:   b.ctx.AbsURL(t.route),
		Header:      header,
		Body:        res.HTML,
		Footer:      footer,
	}
	if t.item != nil && t.item.Summary != "" {
		data.Description = t.item.Summary
	}
	if !b.c.SkipFeed {
		data.Feed = b.ctx.URL("/feed.xml")
	}
	for _, s := range stylesheets {
		if _, ok := b.static[s]; ok {
			data.Stylesheets = append(data.Stylesheets, b.ctx.URL(s))
		}
	}

	var buf bytes.Buffer
	if err := shell.Execute(&buf, data); err != nil {
		return nil, nil, fmt.Errorf("failed to execute layout: %w", err)
	}
	minified, err := b.min.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, nil, err
	}
	return minified, formatWarnings(t.owner, res.Warnings), nil
}

var skipHashing = []string{
	"robots.txt",
	"favicon.ico",
}

func (b *buildContext) staticDir() string {
	return filepath.Join(b.c.Src, "static")
}

// walkStatic calls f for every file in the static directory with its path
// relative to that directory. A missing static directory has no files.
func (b *buildContext) walkStatic(f func(path, rel string) error) error {
	dir := b.staticDir()
	if ok, err := afero.DirExists(b.c.Fs, dir); err != nil || !ok {
		return err
	}
	return afero.Walk(b.c.Fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || isIgnorable(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return f(path, filepath.ToSlash(rel))
	})
}

func (b *buildContext) hashStatic() error {
	return b.walkStatic(func(path, rel string) error {
		if slices.Contains(skipHashing, rel) {
			return nil
		}
		buf, err := afero.ReadFile(b.c.Fs, path)
		if err != nil {
			return ownerErr(staticOwner(rel), err)
		}
		b.static["/"+rel] = "/" + formatStaticName(rel, hashHex(buf))
		return nil
	})
}

func hashHex(b []byte) string {
	hash := sha256.Sum256(b)
	return hex.EncodeToString(hash[:])
}

// formatStaticName returns a hash name that inserts hash before the filename's
// extension. If no extension exists on filename then the hash is appended.
// Returns blank string the original filename if hash is blank. Returns a blank
// string if the filename is blank.
func formatStaticName(filename, hash string) string {
	if filename == "" {
		return ""
	} else if hash == "" {
		return filename
	}

	dir, base := path.Split(filename)
	if i := strings.Index(base, "."); i != -1 {
		return path.Join(dir, fmt.Sprintf("%s-%s%s", base[:i], hash, base[i:]))
	}
	return path.Join(dir, fmt.Sprintf("%s-%s", base, hash))
}

// hashSyntaxCSS generates the syntax highlighting stylesheet and registers it
// as a static file.
func (b *buildContext) hashSyntaxCSS() error {
	buf, err := b.conv.CSS()
	if err != nil {
		return err
	}
	buf, err = b.min.Bytes("text/css", buf)
	if err != nil {
		return err
	}
	hashed := "/" + formatStaticName(strings.TrimPrefix(syntaxCSS, "/"), hashHex(buf))
	b.static[syntaxCSS] = hashed
	return b.put(strings.TrimPrefix(hashed, "/"), buf)
}

func (b *buildContext) copyStatic() error {
	return b.walkStatic(func(path, rel string) error {
		hashed, ok := b.static["/"+rel]
		if !ok {
			hashed = "/" + rel
		}

		buf, err := afero.ReadFile(b.c.Fs, path)
		if err != nil {
			return ownerErr(staticOwner(rel), err)
		}

		if mediaType, ok := mediaTypes[filepath.Ext(path)]; ok {
			minified, err := b.min.Bytes(mediaType, buf)
			if err != nil {
				return ownerErr(staticOwner(rel), fmt.Errorf("%w: %v", errMinify, err))
			}
			buf = minified
		}

		if err := b.put(strings.TrimPrefix(hashed, "/"), buf); err != nil {
			return ownerErr(staticOwner(rel), err)
		}
		return nil
	})
}

func staticOwner(rel string) string {
	return path.Join("static", rel)
}

func isIgnorable(path string) bool {
	base := filepath.Base(path)
	// Ignore files that look like Vim backups.
	if strings.HasSuffix(base, "~") {
		return true
	}
	return base == ".gitignore" || base == ".DS_Store"
}

// auditLinks reports links in rendered documents to site paths that are
// neither routes nor written files.
func (b *buildContext) auditLinks(routes *radix.Tree) []string {
	var warnings []string
	for _, d := range b.docs {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(d.html))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: can't audit links: %v", d.t.owner, err))
			continue
		}
		doc.Find("a[href], img[src], link[href], script[src]").Each(func(_ int, s *goquery.Selection) {
			ref, ok := s.Attr("href")
			if !ok {
				ref, _ = s.Attr("src")
			}
			p, internal := b.sitePath(ref)
			if !internal || b.exists(routes, p) {
				return
			}
			warnings = append(warnings, fmt.Sprintf("%s: link to missing %s", d.t.owner, p))
		})
	}
	return warnings
}

// sitePath returns the site path ref points to, if it points inside the
// site.
func (b *buildContext) sitePath(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		if u.Host != b.c.BaseURL.Host {
			return "", false
		}
	} else if !strings.HasPrefix(u.Path, "/") {
		return "", false
	}
	return cleanRoute(u.Path), true
}

func (b *buildContext) exists(routes *radix.Tree, p string) bool {
	if _, ok := routes.Get(p); ok {
		return true
	}
	_, ok := b.files[strings.TrimPrefix(p, "/")]
	return ok
}

// publish writes the files into a staging directory next to Dst and then
// swaps it into place.
func (b *buildContext) publish() error {
	dst := filepath.Clean(b.c.Dst)
	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dst)+"-*")
	if err != nil {
		return err
	}
	var swapped bool
	defer func() {
		if !swapped {
			os.RemoveAll(staging)
		}
	}()

	for name, data := range b.files {
		p := filepath.Join(staging, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return err
		}
	}
	if err := os.Chmod(staging, 0o755); err != nil {
		return err
	}

	old := staging + ".old"
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, old); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(staging, dst); err != nil {
		// Put the previous build back.
		if rerr := os.Rename(old, dst); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			return errors.Join(err, rerr)
		}
		return err
	}
	swapped = true
	return os.RemoveAll(old)
}
