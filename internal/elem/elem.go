// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package elem implements the element trees pages are declared with and renders
them to HTML.

An element tree is an ordered, possibly nested, sequence of [Node] values:

	[]elem.Node{
		elem.Text{Font: elem.Title1, Content: []elem.Node{elem.Str("About me")}},
		elem.List{Items: []elem.Node{
			elem.Link{Text: "GitHub", Target: "https://github.com/carsongro"},
		}},
	}

Trees are plain values. [Render] is a pure function of a tree and a
[Resolver]: rendering the same tree with the same resolver always produces
the same bytes.
*/
package elem

import (
	"fmt"
	"html/template"
	"time"
)

// MaxDepth is the maximum nesting depth of an element tree.
const MaxDepth = 64

// Node is an element of a tree. The implementations are the types declared in
// this package.
type Node interface {
	kind() string
}

// Font is the typographic role of a [Text].
type Font int

// Available fonts.
const (
	Body Font = iota
	Title1
	Title2
	Title3
	Title4
	Title5
	Title6
	Lead
)

func (f Font) valid() bool { return f >= Body && f <= Lead }

// Text is a block of text with a font. Its content is made of inline nodes:
// [Str], [Link], [Image] and [HTML].
type Text struct {
	Font    Font
	Content []Node
	// Class is added to the class attribute of the element.
	Class string
}

// Str is a plain run of text.
type Str string

// Link points to a site path (starting with "/") or an absolute URL.
type Link struct {
	Text   string
	Target string
}

// Image shows an image. Src is a site path or an absolute URL. If Icon is
// set, Image renders the named icon from the icon font instead and Src is
// not used.
type Image struct {
	Src         string
	Description string
	Icon        string
	// MaxHeight limits the rendered height in pixels, if positive.
	MaxHeight int
}

// List is an unordered list; every item becomes a list entry.
type List struct {
	Items []Node
}

// Section groups block nodes. If Width is set, items are laid out in a grid
// row, each taking Width of 12 columns.
type Section struct {
	Width int
	Items []Node
}

// NavBar is the site navigation bar. Items must be [Link] or [Dropdown]
// nodes. Logo, if not nil, links to the home page.
type NavBar struct {
	Logo  Node
	Items []Node
}

// Dropdown is a titled menu of links. It may only appear directly in a
// [NavBar].
type Dropdown struct {
	Title string
	Items []Node
}

// Card previews a piece of content and links to it.
type Card struct {
	Title            string
	Target           string
	Image            string
	ImageDescription string
	Summary          string
	Date             time.Time
}

// HTML is trusted markup inserted as is.
type HTML template.HTML

// Group is a sequence of nodes rendered in place, without a wrapping element.
type Group []Node

// Divider is a thematic break.
type Divider struct{}

func (Text) kind() string     { return "text" }
func (Str) kind() string      { return "str" }
func (Link) kind() string     { return "link" }
func (Image) kind() string    { return "image" }
func (List) kind() string     { return "list" }
func (Section) kind() string  { return "section" }
func (NavBar) kind() string   { return "navbar" }
func (Dropdown) kind() string { return "dropdown" }
func (Card) kind() string     { return "card" }
func (HTML) kind() string     { return "html" }
func (Group) kind() string    { return "group" }
func (Divider) kind() string  { return "divider" }

// Resolver maps site paths, like "/about" or "/css/main.css", to the URLs
// written to the document.
type Resolver interface {
	URL(path string) string
}

// ResolverFunc is an adapter to use ordinary functions as a [Resolver].
type ResolverFunc func(path string) string

// URL calls f(path).
func (f ResolverFunc) URL(path string) string { return f(path) }

type identity struct{}

func (identity) URL(path string) string { return path }

// Result is a rendered element tree.
type Result struct {
	HTML     template.HTML
	Warnings []Warning
}

// Warning is a problem found while rendering that doesn't fail the render,
// like an image without a description.
type Warning struct {
	Node string // path of the node in the tree, see RenderError
	Msg  string
}

func (w Warning) String() string { return w.Node + ": " + w.Msg }

// RenderError is returned when a node in a tree can't be rendered.
type RenderError struct {
	// Node is the path of the offending node, made of the node kind and its
	// index among its siblings, e.g. "section[1]/list[0]/link[2]".
	Node string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Node, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
