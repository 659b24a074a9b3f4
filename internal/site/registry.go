// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"carsongrossdev.com/site/internal/content"
	"carsongrossdev.com/site/internal/elem"
	"carsongrossdev.com/site/internal/tags"

	"github.com/armon/go-radix"
)

const notFoundRoute = "/404"

// Page is a static page.
type Page struct {
	// Title is the page title, also used in the document title.
	Title string
	// Route is the path the page is published at, like "/about". The route
	// of the home page is always "/" and of the not found page "/404".
	Route string
	// Body returns the element tree of the page.
	Body func(ctx *Context) []elem.Node
}

// Layout renders content items.
type Layout struct {
	// Name is the name items can pick the layout with in their front matter.
	Name string
	// Match reports whether the layout renders it, when it doesn't name a
	// layout. A nil Match accepts every item.
	Match func(it *content.Item) bool
	// Body returns the element tree of an item.
	Body func(it *content.Item, ctx *Context) []elem.Node
}

// TagPage renders the listings of items by tag.
type TagPage struct {
	// Route is the path of the all tags view. Listings of single tags are
	// published under it, at Route + "/" + the tag slug. If empty, "/tags"
	// is used.
	Route string
	// Body returns the element tree of the listing of tag. An empty tag
	// means the all tags view.
	Body func(tag string, ctx *Context) []elem.Node
}

// Registry holds the pages and layouts that make up the site.
type Registry struct {
	// Home is the home page, required.
	Home *Page
	// Pages are the other static pages.
	Pages []*Page
	// NotFound is the page served for missing routes, optional.
	NotFound *Page
	// Tags is the tag listing page, optional.
	Tags *TagPage
	// Layouts render content items. Every item must be rendered by exactly
	// one layout: the one it names, or else the first one that matches it.
	Layouts []*Layout
	// Header and Footer return the element trees placed around the body of
	// every document, optional.
	Header func(ctx *Context) []elem.Node
	Footer func(ctx *Context) []elem.Node
}

const defaultTagRoute = "/tags"

func (r *Registry) tagRoute() string {
	if r.Tags == nil {
		return ""
	}
	if r.Tags.Route == "" {
		return defaultTagRoute
	}
	return cleanRoute(r.Tags.Route)
}

// A target is a document to render.
type target struct {
	route string
	owner string // what registered the route, like `page "About"`
	title string
	kind  targetKind
	body  func(ctx *Context) []elem.Node
	item  *content.Item // nil unless kind is itemTarget
}

type targetKind int

const (
	pageTarget targetKind = iota
	itemTarget
	tagTarget
)

func cleanRoute(route string) string {
	if route == "" || route == "/" {
		return "/"
	}
	return path.Clean(route)
}

// LayoutFor returns the layout rendering it.
func (r *Registry) LayoutFor(it *content.Item) (*Layout, error) {
	if it.Layout != "" {
		for _, l := range r.Layouts {
			if l.Name == it.Layout {
				return l, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", errLayoutUnknown, it.Layout)
	}
	for _, l := range r.Layouts {
		if l.Match == nil || l.Match(it) {
			return l, nil
		}
	}
	return nil, errNoLayout
}

// Validate checks the registry against items: that routes are unique, and
// that every item has a layout.
func (r *Registry) Validate(items []*content.Item) error {
	_, _, err := r.resolve(items, tags.IndexByTag(items))
	return err
}

// resolve lists the documents to render and builds the route table mapping
// every route to its target.
func (r *Registry) resolve(items []*content.Item, idx *tags.Index) (*radix.Tree, []*target, error) {
	var (
		tree    = radix.New()
		targets []*target
		errs    []error
	)

	add := func(t *target) {
		if !strings.HasPrefix(t.route, "/") {
			errs = append(errs, ownerErr(t.owner, fmt.Errorf("%w: %q", errRouteInvalid, t.route)))
			return
		}
		if t.body == nil {
			errs = append(errs, ownerErr(t.owner, errNoBody))
			return
		}
		if old, updated := tree.Insert(t.route, t); updated {
			tree.Insert(t.route, old)
			errs = append(errs, fmt.Errorf("%w: %q by %s and %s", errRouteDuplicate, t.route, old.(*target).owner, t.owner))
			return
		}
		targets = append(targets, t)
	}

	addPage := func(p *Page, route string) {
		add(&target{
			route: route,
			owner: "page " + strconv.Quote(p.Title),
			title: p.Title,
			kind:  pageTarget,
			body:  p.Body,
		})
	}

	if r.Home == nil {
		errs = append(errs, errNoHome)
	} else {
		addPage(r.Home, "/")
	}
	for _, p := range r.Pages {
		addPage(p, cleanRoute(p.Route))
	}
	if r.NotFound != nil {
		addPage(r.NotFound, notFoundRoute)
	}

	seen := make(map[string]*Layout)
	for _, l := range r.Layouts {
		if seen[l.Name] != nil && l.Name != "" {
			errs = append(errs, fmt.Errorf("%w: %q", errLayoutDuplicate, l.Name))
		}
		seen[l.Name] = l
	}

	for _, it := range items {
		owner := "item " + it.File
		l, err := r.LayoutFor(it)
		if err != nil {
			errs = append(errs, ownerErr(owner, err))
			continue
		}
		t := &target{route: cleanRoute(it.Path), owner: owner, title: it.Title, kind: itemTarget, item: it}
		if l.Body != nil {
			t.body = func(ctx *Context) []elem.Node { return l.Body(it, ctx) }
		}
		add(t)
	}

	if r.Tags != nil {
		base := r.tagRoute()
		add(&target{
			route: base,
			owner: "tag page",
			title: "All tags",
			kind:  tagTarget,
			body:  r.tagBody(""),
		})
		for _, tag := range idx.Tags() {
			owner := "tag " + strconv.Quote(tag)
			slug := tags.Slug(tag)
			if slug == "" {
				errs = append(errs, ownerErr(owner, errTagSlug))
				continue
			}
			add(&target{
				route: path.Join(base, slug),
				owner: owner,
				title: tag,
				kind:  tagTarget,
				body:  r.tagBody(tag),
			})
		}
	}

	if len(errs) > 0 {
		return nil, nil, &BuildError{Errs: errs}
	}
	return tree, targets, nil
}

func (r *Registry) tagBody(tag string) func(ctx *Context) []elem.Node {
	if r.Tags.Body == nil {
		return nil
	}
	return func(ctx *Context) []elem.Node { return r.Tags.Body(tag, ctx) }
}
