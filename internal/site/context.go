// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"net/url"
	"path"
	"strings"

	"carsongrossdev.com/site/internal/content"
	"carsongrossdev.com/site/internal/tags"
)

// Context is the read-only view of a build that pages and layouts render
// from. It's created once per build and shared by all renders. Context
// implements elem.Resolver.
type Context struct {
	c        *Config
	items    []*content.Item
	idx      *tags.Index
	static   map[string]string // path -> hashed path (e.g. /css/main.css -> /css/main-[hash].css)
	tagRoute string
}

func newContext(c *Config, items []*content.Item, idx *tags.Index, static map[string]string, tagRoute string) *Context {
	return &Context{
		c:        c,
		items:    items,
		idx:      idx,
		static:   static,
		tagRoute: tagRoute,
	}
}

// Name returns the site name.
func (ctx *Context) Name() string { return ctx.c.Name }

// BaseTitle returns the title appended to page titles.
func (ctx *Context) BaseTitle() string { return ctx.c.BaseTitle }

// Author returns the site author.
func (ctx *Context) Author() string { return ctx.c.Author }

// Description returns the site description.
func (ctx *Context) Description() string { return ctx.c.Description }

// BaseURL returns a copy of the site base URL.
func (ctx *Context) BaseURL() *url.URL {
	u := *ctx.c.BaseURL
	return &u
}

// Items returns all content items in load order.
func (ctx *Context) Items() []*content.Item {
	return append([]*content.Item(nil), ctx.items...)
}

// Tagged returns the items tagged with tag in load order. An empty tag
// returns every item that has any tag.
func (ctx *Context) Tagged(tag string) []*content.Item {
	return ctx.idx.Items(tag)
}

// TaggedByDate is like Tagged, but sorts items by date, newest first. Items
// with the same date keep load order.
func (ctx *Context) TaggedByDate(tag string) []*content.Item {
	return content.SortByDateDesc(ctx.idx.Items(tag))
}

// Tags returns all tags in the order they were first seen.
func (ctx *Context) Tags() []string { return ctx.idx.Tags() }

// TagPath returns the route of the listing of tag, or of the all tags view if
// tag is empty. It returns an empty string if the site has no tag page.
func (ctx *Context) TagPath(tag string) string {
	if ctx.tagRoute == "" {
		return ""
	}
	if tag == "" {
		return ctx.tagRoute
	}
	return path.Join(ctx.tagRoute, tags.Slug(tag))
}

func isFullURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// URL returns the URL of a site path to use in documents. Static files
// resolve to their hashed names, and in production every path becomes an
// absolute URL. Full URLs are returned as is.
func (ctx *Context) URL(p string) string {
	if isFullURL(p) {
		return p
	}
	if hashed, ok := ctx.static[p]; ok {
		p = hashed
	}
	return ctx.abs(p)
}

// AbsURL is like URL, but always returns an absolute URL.
func (ctx *Context) AbsURL(p string) string {
	if isFullURL(p) {
		return p
	}
	if hashed, ok := ctx.static[p]; ok {
		p = hashed
	}
	return joinURL(ctx.c.BaseURL, p)
}

func (ctx *Context) abs(p string) string {
	if !ctx.c.Env.AbsoluteURLs() || ctx.c.BaseURL == nil {
		return p
	}
	return joinURL(ctx.c.BaseURL, p)
}

func joinURL(base *url.URL, p string) string {
	u := *base
	u.Path = path.Join(u.Path, p)
	if p == "/" && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}
