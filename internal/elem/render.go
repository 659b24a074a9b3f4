// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package elem

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Possible errors, used in tests.
var (
	errNilNode         = errors.New("nil node")
	errUnsupported     = errors.New("unsupported node type")
	errNotInline       = errors.New("block node inside text")
	errLinkText        = errors.New("link without text")
	errLinkTarget      = errors.New("link without target")
	errImageSrc        = errors.New("image without source")
	errFont            = errors.New("font out of range")
	errWidth           = errors.New("section width out of range 1..12")
	errDropdownOutside = errors.New("dropdown outside of a navigation bar")
	errNavItem         = errors.New("navigation bar item must be a link or a dropdown")
	errNestedNav       = errors.New("nested navigation bar")
	errTooDeep         = fmt.Errorf("tree is deeper than %d levels", MaxDepth)
	errCardIncomplete  = errors.New("card without title or target")
	errMarkup          = errors.New("invalid markup")
)

const dateFormat = "January 2, 2006"

// Render renders nodes to HTML, resolving site paths with r. If r is nil,
// paths are used as is.
func Render(nodes []Node, r Resolver) (*Result, error) {
	if r == nil {
		r = identity{}
	}
	rd := &renderer{r: r}
	root := &html.Node{Type: html.DocumentNode}
	if err := rd.children(root, "", nodes, 0, false); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, err
	}
	return &Result{
		HTML:     template.HTML(buf.String()),
		Warnings: rd.warnings,
	}, nil
}

type renderer struct {
	r        Resolver
	warnings []Warning
}

func (rd *renderer) warn(path, msg string) {
	rd.warnings = append(rd.warnings, Warning{Node: path, Msg: msg})
}

func childPath(parent string, n Node, i int) string {
	kind := "nil"
	if n != nil {
		kind = n.kind()
	}
	p := kind + "[" + strconv.Itoa(i) + "]"
	if parent == "" {
		return p
	}
	return parent + "/" + p
}

func (rd *renderer) children(parent *html.Node, path string, nodes []Node, depth int, inNav bool) error {
	for i, n := range nodes {
		if err := rd.node(parent, childPath(path, n, i), n, depth+1, inNav); err != nil {
			return err
		}
	}
	return nil
}

func fail(path string, err error) error {
	return &RenderError{Node: path, Err: err}
}

func (rd *renderer) node(parent *html.Node, path string, n Node, depth int, inNav bool) error {
	if depth > MaxDepth {
		return fail(path, errTooDeep)
	}
	if n == nil {
		return fail(path, errNilNode)
	}

	switch n := n.(type) {
	case Text:
		if !n.Font.valid() {
			return fail(path, fmt.Errorf("%w: %d", errFont, n.Font))
		}
		tag, class := n.Font.element()
		el := element(tag, classAttr(class, n.Class)...)
		for i, c := range n.Content {
			cp := childPath(path, c, i)
			switch c.(type) {
			case Str, Link, Image, HTML, nil:
			default:
				return fail(cp, errNotInline)
			}
			if err := rd.node(el, cp, c, depth+1, inNav); err != nil {
				return err
			}
		}
		parent.AppendChild(el)
	case Str:
		parent.AppendChild(text(string(n)))
	case Link:
		if n.Text == "" {
			return fail(path, errLinkText)
		}
		if n.Target == "" {
			return fail(path, errLinkTarget)
		}
		el := element("a", "href", rd.url(n.Target))
		el.AppendChild(text(n.Text))
		parent.AppendChild(el)
	case Image:
		el, err := rd.image(path, n)
		if err != nil {
			return err
		}
		parent.AppendChild(el)
	case List:
		ul := element("ul")
		for i, c := range n.Items {
			li := element("li")
			if err := rd.node(li, childPath(path, c, i), c, depth+1, inNav); err != nil {
				return err
			}
			ul.AppendChild(li)
		}
		parent.AppendChild(ul)
	case Section:
		if n.Width != 0 && (n.Width < 1 || n.Width > 12) {
			return fail(path, fmt.Errorf("%w: %d", errWidth, n.Width))
		}
		if n.Width == 0 {
			sec := element("section")
			if err := rd.children(sec, path, n.Items, depth, inNav); err != nil {
				return err
			}
			parent.AppendChild(sec)
			break
		}
		sec := element("section", "class", "row")
		col := "col-md-" + strconv.Itoa(n.Width)
		for i, c := range n.Items {
			div := element("div", "class", col)
			if err := rd.node(div, childPath(path, c, i), c, depth+1, inNav); err != nil {
				return err
			}
			sec.AppendChild(div)
		}
		parent.AppendChild(sec)
	case NavBar:
		if inNav {
			return fail(path, errNestedNav)
		}
		if err := rd.navBar(parent, path, n, depth); err != nil {
			return err
		}
	case Dropdown:
		// Dropdowns are rendered by navBar.
		return fail(path, errDropdownOutside)
	case Card:
		el, err := rd.card(path, n)
		if err != nil {
			return err
		}
		parent.AppendChild(el)
	case HTML:
		nodes, err := html.ParseFragment(strings.NewReader(string(n)), &html.Node{
			Type:     html.ElementNode,
			Data:     "body",
			DataAtom: atom.Body,
		})
		if err != nil {
			return fail(path, fmt.Errorf("%w: %v", errMarkup, err))
		}
		for _, c := range nodes {
			parent.AppendChild(c)
		}
	case Group:
		// A group doesn't add a level to the document, but still counts
		// towards the depth of the tree.
		return rd.children(parent, path, n, depth, inNav)
	case Divider:
		parent.AppendChild(element("hr"))
	default:
		return fail(path, fmt.Errorf("%w: %T", errUnsupported, n))
	}
	return nil
}

func (rd *renderer) url(target string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return rd.r.URL(target)
	}
	return target
}

func (rd *renderer) image(path string, img Image) (*html.Node, error) {
	if img.Icon != "" {
		attrs := []string{"class", "bi bi-" + img.Icon}
		if img.Description != "" {
			attrs = append(attrs, "role", "img", "aria-label", img.Description)
		} else {
			attrs = append(attrs, "aria-hidden", "true")
		}
		return element("i", attrs...), nil
	}
	if img.Src == "" {
		return nil, fail(path, errImageSrc)
	}
	if img.Description == "" {
		rd.warn(path, "image "+img.Src+" has no description")
	}
	attrs := []string{
		"src", rd.url(img.Src),
		"alt", img.Description,
		"class", "img-fluid",
		"loading", "lazy",
	}
	if img.MaxHeight > 0 {
		attrs = append(attrs, "style", "max-height: "+strconv.Itoa(img.MaxHeight)+"px")
	}
	return element("img", attrs...), nil
}

func (rd *renderer) navBar(parent *html.Node, path string, nb NavBar, depth int) error {
	nav := element("nav", "class", "navbar")
	if nb.Logo != nil {
		brand := element("a", "class", "navbar-brand", "href", rd.url("/"))
		if err := rd.node(brand, path+"/logo", nb.Logo, depth+1, true); err != nil {
			return err
		}
		nav.AppendChild(brand)
	}

	ul := element("ul", "class", "navbar-nav")
	for i, item := range nb.Items {
		ip := childPath(path, item, i)
		if depth+1 > MaxDepth {
			return fail(ip, errTooDeep)
		}
		switch item := item.(type) {
		case nil:
			return fail(ip, errNilNode)
		case Link:
			li := element("li", "class", "nav-item")
			if err := rd.node(li, ip, item, depth+1, true); err != nil {
				return err
			}
			li.FirstChild.Attr = append(li.FirstChild.Attr, html.Attribute{Key: "class", Val: "nav-link"})
			ul.AppendChild(li)
		case Dropdown:
			li, err := rd.dropdown(ip, item, depth+1)
			if err != nil {
				return err
			}
			ul.AppendChild(li)
		case NavBar:
			return fail(ip, errNestedNav)
		default:
			return fail(ip, errNavItem)
		}
	}
	nav.AppendChild(ul)
	parent.AppendChild(nav)
	return nil
}

func (rd *renderer) dropdown(path string, dd Dropdown, depth int) (*html.Node, error) {
	li := element("li", "class", "nav-item dropdown")
	details := element("details")
	summary := element("summary", "class", "nav-link")
	summary.AppendChild(text(dd.Title))
	details.AppendChild(summary)

	menu := element("ul", "class", "dropdown-menu")
	for i, item := range dd.Items {
		ip := childPath(path, item, i)
		link, ok := item.(Link)
		if !ok {
			if item == nil {
				return nil, fail(ip, errNilNode)
			}
			return nil, fail(ip, errNavItem)
		}
		entry := element("li")
		if err := rd.node(entry, ip, link, depth+1, true); err != nil {
			return nil, err
		}
		entry.FirstChild.Attr = append(entry.FirstChild.Attr, html.Attribute{Key: "class", Val: "dropdown-item"})
		menu.AppendChild(entry)
	}
	details.AppendChild(menu)
	li.AppendChild(details)
	return li, nil
}

func (rd *renderer) card(path string, c Card) (*html.Node, error) {
	if c.Title == "" || c.Target == "" {
		return nil, fail(path, errCardIncomplete)
	}
	href := rd.url(c.Target)

	card := element("div", "class", "card")
	if c.Image != "" {
		img, err := rd.image(path, Image{Src: c.Image, Description: c.ImageDescription})
		if err != nil {
			return nil, err
		}
		img.Attr[2].Val = "card-img-top"
		a := element("a", "href", href)
		a.AppendChild(img)
		card.AppendChild(a)
	}

	body := element("div", "class", "card-body")
	title := element("h5", "class", "card-title")
	link := element("a", "href", href)
	link.AppendChild(text(c.Title))
	title.AppendChild(link)
	body.AppendChild(title)
	if c.Summary != "" {
		p := element("p", "class", "card-text")
		p.AppendChild(text(c.Summary))
		body.AppendChild(p)
	}
	if !c.Date.IsZero() {
		t := element("time", "datetime", c.Date.Format(time.RFC3339))
		t.AppendChild(text(c.Date.Format(dateFormat)))
		body.AppendChild(t)
	}
	card.AppendChild(body)
	return card, nil
}

func (f Font) element() (tag, class string) {
	switch f {
	case Title1, Title2, Title3, Title4, Title5, Title6:
		return "h" + strconv.Itoa(int(f-Title1)+1), ""
	case Lead:
		return "p", "lead"
	default:
		return "p", ""
	}
}

func classAttr(classes ...string) []string {
	var nonEmpty []string
	for _, c := range classes {
		if c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	return []string{"class", strings.Join(nonEmpty, " ")}
}

// element returns a new element node with attributes given as key-value
// pairs.
func element(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
