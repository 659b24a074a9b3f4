// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package content loads the posts and projects published on the site.

# Directory Structure

Each file under the content directory is one item. Its route is derived from
the path relative to the content directory, without the extension:

	content/posts/hello.md     /posts/hello
	content/projects/ceto.md   /projects/ceto

# Front Matter

Each item must start with front matter in one of three formats, chosen by the
opening line:

	{                    JSON, the closing "}" must start a line.
	---                  YAML, closed by another "---".
	+++                  TOML, closed by another "+++".

Lines before the opening line are ignored, so an editor modeline in an HTML
comment can precede the front matter.

See Item for all available front matter fields.
*/
package content

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

// Possible errors, used in tests.
var (
	errFrontmatterSplit   = errors.New("failed to split front matter and contents")
	errFrontmatterParse   = errors.New("failed to parse front matter")
	errFrontmatterMissing = errors.New("missing front matter")
	errTitleMissing       = errors.New("missing required front matter parameter (title)")
	errDateInvalid        = errors.New("invalid date")
	errFormatUnsupported  = errors.New("format unsupported")
	errPermalinkInvalid   = errors.New("invalid permalink")
	errConvert            = errors.New("failed to convert contents")
)

// Formats of content bodies.
const (
	Markdown = "md"
	HTML     = "html"
)

// Item is a single piece of published material, such as a post or a project.
// Items are immutable once loaded.
type Item struct {
	// Path is the route of the item on the site, e.g. /posts/hello. It is
	// taken from the "permalink" front matter field if present.
	Path string
	// File is the path to the item source, relative to the content directory.
	File string
	// Format is the body format, Markdown or HTML.
	Format string

	Title            string    // title: Item title, required.
	Date             time.Time // date: Publication date, e.g. 2006-01-02 or RFC 3339, optional.
	Tags             []string  // tags: List of tags or a comma separated string, optional.
	Image            string    // image: Path to the header image, optional.
	ImageDescription string    // imageDescription: Alternative text for the image, optional.
	Summary          string    // summary: Short description, defaults to the first paragraph.
	Layout           string    // layout: Name of the layout used for rendering, optional.
	Draft            bool      // draft: Exclude from production builds, false by default.

	// Source is the body as written, without front matter.
	Source string
	// Body is the rendered body.
	Body template.HTML
}

// HasTags reports whether the item has at least one tag.
func (it *Item) HasTags() bool { return len(it.Tags) > 0 }

// HasTag reports whether the item is tagged with tag.
func (it *Item) HasTag(tag string) bool { return slices.Contains(it.Tags, tag) }

// LoadError is returned when a content file can't be loaded.
type LoadError struct {
	Path string // path to the file, relative to the content directory
	Err  error
}

func (e *LoadError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// Converter converts item bodies into HTML.
type Converter interface {
	Convert(src []byte, format string) ([]byte, error)
}

// LoadOptions control how content is loaded.
type LoadOptions struct {
	// Drafts determines if items marked as drafts are loaded.
	Drafts bool
	// Ignore is a list of glob patterns matched against slash-separated paths
	// relative to the content directory. Matching files are skipped.
	Ignore []string
	// Converter converts bodies to HTML. If nil, bodies are used verbatim.
	Converter Converter
}

// Load reads all items from dir on fsys in walk order.
//
// Every file is processed even if some of them fail; in that case the
// returned error joins a *LoadError for each failed file. A missing dir is
// not an error and yields no items.
func Load(fsys afero.Fs, dir string, opts *LoadOptions) ([]*Item, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}

	if _, err := fsys.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, &LoadError{Path: dir, Err: err}
	}

	ignore := make([]glob.Glob, 0, len(opts.Ignore))
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		ignore = append(ignore, g)
	}

	var (
		items []*Item
		errs  []error
	)
	walkErr := afero.Walk(fsys, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || isIgnorable(p) {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, g := range ignore {
			if g.Match(rel) {
				return nil
			}
		}

		it, err := load(fsys, p, rel, opts)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if it.Draft && !opts.Drafts {
			return nil
		}
		items = append(items, it)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, &LoadError{Path: dir, Err: walkErr})
	}

	return items, errors.Join(errs...)
}

func load(fsys afero.Fs, p, rel string, opts *LoadOptions) (*Item, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, &LoadError{Path: rel, Err: err}
	}
	defer f.Close()

	it, err := Parse(rel, f)
	if err != nil {
		return nil, err
	}

	body := []byte(it.Source)
	if opts.Converter != nil {
		body, err = opts.Converter.Convert(body, it.Format)
		if err != nil {
			return nil, &LoadError{Path: rel, Err: fmt.Errorf("%w: %v", errConvert, err)}
		}
	}
	it.Body = template.HTML(body)

	if it.Summary == "" {
		it.Summary = firstParagraph(body)
	}

	return it, nil
}

// Parse parses a single item from r. The name is the path to the item
// relative to the content directory and determines its format and route.
func Parse(name string, r io.Reader) (*Item, error) {
	name = filepath.ToSlash(name)

	it := &Item{File: name}
	switch path.Ext(name) {
	case ".md":
		it.Format = Markdown
	case ".html":
		it.Format = HTML
	default:
		return nil, &LoadError{Path: name, Err: errFormatUnsupported}
	}

	fm, contents, err := splitFrontmatter(r)
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	it.Source = string(contents)

	if err := fm.decode(it); err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	if it.Title == "" {
		return nil, &LoadError{Path: name, Err: errTitleMissing}
	}

	if it.Path == "" {
		it.Path = defaultPath(name)
	} else {
		if _, err := url.ParseRequestURI(it.Path); err != nil {
			return nil, &LoadError{Path: name, Err: fmt.Errorf("%w: %v", errPermalinkInvalid, err)}
		}
		if !strings.HasPrefix(it.Path, "/") {
			return nil, &LoadError{Path: name, Err: fmt.Errorf("%w: %q is not absolute", errPermalinkInvalid, it.Path)}
		}
		it.Path = path.Clean(it.Path)
	}

	return it, nil
}

func defaultPath(name string) string {
	return "/" + strings.TrimSuffix(name, path.Ext(name))
}

// SortByDateDesc returns a copy of items sorted by date, newest first. Items
// with the same date keep their relative order; undated items go last.
func SortByDateDesc(items []*Item) []*Item {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b *Item) int {
		switch {
		case a.Date.IsZero() && b.Date.IsZero():
			return 0
		case a.Date.IsZero():
			return 1
		case b.Date.IsZero():
			return -1
		}
		return b.Date.Compare(a.Date)
	})
	return sorted
}

func firstParagraph(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("p").First().Text())
}

func isIgnorable(p string) bool {
	base := filepath.Base(p)

	// Ignore files that look like Vim backups.
	if strings.HasSuffix(base, "~") {
		return true
	}

	// Mac OS' worst mistake.
	if base == ".DS_Store" {
		return true
	}

	return base == ".gitignore"
}
