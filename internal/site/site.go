// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package site builds https://carsongrossdev.com.

# Directory Structure

Site has the following directories:

	build    This is where the generated site will be placed by default.
	content  Posts and projects. HTML and Markdown formats can be used,
	         see package content for the front matter.
	static   Files in this directory will be copied to the generated site
	         under a name containing the hash of their contents.

Pages and layouts aren't read from files. They are declared in Go as
functions returning element trees (see package elem) and collected in a
[Registry].

# Output

Each static page, content item and tag page is written to the file named
after its route with the '.html' extension ('/' becomes 'index.html'). Besides
that, site writes robots.txt, sitemap.xml, feed.xml and the syntax
highlighting stylesheet.

A build writes into a staging directory next to the destination and swaps it
into place only when every page was rendered. A failed build leaves the
previous output untouched.
*/
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"carsongrossdev.com/site/internal/content"
	"carsongrossdev.com/site/internal/env"
	"carsongrossdev.com/site/internal/markup"
	"carsongrossdev.com/site/internal/tags"

	"go.astrophena.name/base/logger"

	"github.com/spf13/afero"
	"go.uber.org/atomic"
)

// Possible errors, used in tests.
var (
	errNoHome          = errors.New("no home page")
	errNoBody          = errors.New("no body function")
	errRouteInvalid    = errors.New("invalid route")
	errRouteDuplicate  = errors.New("route registered twice")
	errLayoutUnknown   = errors.New("no such layout")
	errLayoutDuplicate = errors.New("layout registered twice")
	errNoLayout        = errors.New("no layout matches")
	errTagSlug         = errors.New("tag has no URL slug")
)

// DefaultFeedTag is the tag of items included in the feed when Config.FeedTag
// is empty.
const DefaultFeedTag = "Post"

// Config represents a build configuration.
type Config struct {
	// Name is the name of the site.
	Name string
	// BaseTitle is appended to the title of every page.
	BaseTitle string
	// Author is the name of the author of the site.
	Author string
	// Description is the site description used in the feed and meta tags.
	Description string
	// BaseURL is the base URL of the site.
	BaseURL *url.URL
	// Src is the directory where to read files from. If empty, uses the current
	// directory.
	Src string
	// Dst is the directory where to write files. If empty, uses the build
	// directory.
	Dst string
	// Env is the environment the site is built for. In production drafts are
	// excluded and the base URL is used to derive absolute URLs from site
	// paths. If empty, Dev is used.
	Env env.Env
	// Highlight configures syntax highlighting of code blocks.
	Highlight markup.Options
	// Robots lists the crawlers that are denied access to the site, in
	// order.
	Robots []DisallowRule
	// Ignore lists glob patterns of files in the content directory that are
	// not content.
	Ignore []string
	// FeedTag is the tag of items included in the feed. If empty,
	// DefaultFeedTag is used.
	FeedTag string
	// SkipFeed determines if the feed for site shouldn't be built.
	SkipFeed bool
	// Fs is the filesystem the content and static directories are read from.
	// If nil, the OS filesystem is used.
	Fs afero.Fs

	feedCreated time.Time // used in tests
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Carson Gross Dev"
	}
	if c.BaseTitle == "" {
		c.BaseTitle = "Carson Gross"
	}
	if c.Author == "" {
		c.Author = "Carson Gross"
	}

	if c.BaseURL == nil {
		c.BaseURL = &url.URL{
			Scheme: "https",
			Host:   "carsongrossdev.com",
		}
	}

	if c.Src == "" {
		c.Src = filepath.Join(".")
	}
	if c.Dst == "" {
		c.Dst = filepath.Join(".", "build")
	}

	if c.Env == "" {
		c.Env = env.Dev
	}
	if c.FeedTag == "" {
		c.FeedTag = DefaultFeedTag
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
}

// Result describes a successful build.
type Result struct {
	// Pages, Items and TagPages count the rendered documents.
	Pages    atomic.Int64
	Items    atomic.Int64
	TagPages atomic.Int64
	// Files lists the written files, slash-separated and relative to the
	// destination directory, in lexical order.
	Files []string
	// Warnings lists the problems that didn't fail the build, like images
	// without descriptions or links to missing pages.
	Warnings []string
}

// BuildError is returned when a build fails. It holds every failure found,
// each naming the page or content item it's about.
type BuildError struct {
	Errs []error
}

func (e *BuildError) Error() string {
	var sb strings.Builder
	sb.WriteString("build failed:")
	for _, err := range e.Errs {
		sb.WriteString("\n\t")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (e *BuildError) Unwrap() []error { return e.Errs }

// newBuildError returns nil when there are no errors, and flattens joined
// errors otherwise.
func newBuildError(errs ...error) error {
	var flat []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			flat = append(flat, joined.Unwrap()...)
			continue
		}
		flat = append(flat, err)
	}
	if len(flat) == 0 {
		return nil
	}
	return &BuildError{Errs: flat}
}

// Build builds a site based on the provided [Config] and [Registry]. A failed
// build returns a [*BuildError] and leaves Dst untouched.
func Build(ctx context.Context, c *Config, reg *Registry) (*Result, error) {
	c.setDefaults()

	for _, r := range c.Robots {
		if err := r.Validate(); err != nil {
			return nil, newBuildError(ownerErr("robots.txt", err))
		}
	}

	conv, err := markup.New(&c.Highlight)
	if err != nil {
		return nil, newBuildError(ownerErr("syntax highlighting", err))
	}

	// Load content.
	items, err := content.Load(c.Fs, filepath.Join(c.Src, "content"), &content.LoadOptions{
		Drafts:    c.Env.Drafts(),
		Ignore:    c.Ignore,
		Converter: conv,
	})
	if err != nil {
		return nil, newBuildError(err)
	}
	logger.Info(ctx, "loaded content", slog.Int("items", len(items)))

	b := newBuildContext(c, conv)
	// Hash static files.
	if err := b.hashStatic(); err != nil {
		return nil, newBuildError(err)
	}
	if err := b.hashSyntaxCSS(); err != nil {
		return nil, newBuildError(ownerErr(syntaxCSS, err))
	}

	idx := tags.IndexByTag(items)
	b.ctx = newContext(c, items, idx, b.static, reg.tagRoute())

	routes, targets, err := reg.resolve(items, idx)
	if err != nil {
		return nil, err
	}

	res := new(Result)
	if err := b.render(ctx, reg, targets, res); err != nil {
		return nil, err
	}
	if err := b.writeAuxiliary(routes); err != nil {
		return nil, newBuildError(err)
	}
	if err := b.copyStatic(); err != nil {
		return nil, newBuildError(err)
	}
	res.Warnings = append(res.Warnings, b.auditLinks(routes)...)

	if err := b.publish(); err != nil {
		return nil, newBuildError(ownerErr(c.Dst, err))
	}

	for name := range b.files {
		res.Files = append(res.Files, name)
	}
	slices.Sort(res.Files)

	for _, w := range res.Warnings {
		logger.Info(ctx, "warning", slog.String("msg", w))
	}
	logger.Info(ctx, "built site",
		slog.String("dst", c.Dst),
		slog.Int64("pages", res.Pages.Load()),
		slog.Int64("items", res.Items.Load()),
		slog.Int64("tag_pages", res.TagPages.Load()),
		slog.Int("files", len(res.Files)),
	)
	return res, nil
}

func ownerErr(owner string, err error) error {
	return fmt.Errorf("%s: %w", owner, err)
}
