// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package markup converts content bodies to HTML.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"carsongrossdev.com/site/internal/content"

	"github.com/PuerkitoBio/goquery"
	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"rsc.io/markdown"
)

// DefaultStyle is the syntax highlighting style used when none is configured.
const DefaultStyle = "github"

var (
	errUnknownLanguage = errors.New("unknown syntax highlighting language")
	errUnknownStyle    = errors.New("unknown syntax highlighting style")
	errUnknownFormat   = errors.New("unknown format")
)

// Options configure a Converter.
type Options struct {
	// Languages lists the languages of fenced code blocks that get syntax
	// highlighting. Code blocks in other languages are left as is.
	Languages []string
	// Style is the chroma style name used for the stylesheet. If empty,
	// DefaultStyle is used.
	Style string
}

// Converter converts Markdown and HTML bodies into the HTML published on the
// site. It is safe for concurrent use.
type Converter struct {
	md        *markdown.Parser
	lexers    map[string]chroma.Lexer
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// New returns a new Converter. It fails if any of the highlighting
// languages or the style is unknown to chroma.
func New(opts *Options) (*Converter, error) {
	if opts == nil {
		opts = &Options{}
	}

	c := &Converter{
		md: &markdown.Parser{
			HeadingID:          true,
			Strikethrough:      true,
			TaskList:           true,
			AutoLinkText:       true,
			AutoLinkAssumeHTTP: true,
			Table:              true,
			Emoji:              true,
			SmartDot:           true,
			SmartDash:          true,
			SmartQuote:         true,
			Footnote:           true,
		},
		lexers:    make(map[string]chroma.Lexer),
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}

	for _, lang := range opts.Languages {
		lexer := lexers.Get(lang)
		if lexer == nil {
			return nil, fmt.Errorf("%w: %q", errUnknownLanguage, lang)
		}
		c.lexers[strings.ToLower(lang)] = chroma.Coalesce(lexer)
	}

	name := opts.Style
	if name == "" {
		name = DefaultStyle
	}
	style, ok := styles.Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownStyle, name)
	}
	c.style = style

	return c, nil
}

var htmlCommentRe = regexp.MustCompile("(?s)<!--(.*?)-->")

// Convert converts src of the given format (content.Markdown or
// content.HTML) to HTML.
func (c *Converter) Convert(src []byte, format string) ([]byte, error) {
	var out []byte
	switch format {
	case content.Markdown:
		doc := c.md.Parse(string(src))
		out = []byte(markdown.ToHTML(doc))
	case content.HTML:
		out = bytes.Clone(src)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	out = htmlCommentRe.ReplaceAll(out, []byte{})

	if len(c.lexers) == 0 || !bytes.Contains(out, []byte(`class="language-`)) {
		return out, nil
	}
	return c.highlight(out)
}

// highlight replaces fenced code blocks in enabled languages with their
// highlighted versions.
func (c *Converter) highlight(body []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var hlErr error
	doc.Find("pre > code").EachWithBreak(func(_ int, code *goquery.Selection) bool {
		lexer := c.lexerFor(code)
		if lexer == nil {
			return true
		}
		iterator, err := lexer.Tokenise(nil, code.Text())
		if err != nil {
			hlErr = err
			return false
		}
		var buf bytes.Buffer
		if err := c.formatter.Format(&buf, c.style, iterator); err != nil {
			hlErr = err
			return false
		}
		code.Parent().ReplaceWithHtml(buf.String())
		return true
	})
	if hlErr != nil {
		return nil, hlErr
	}

	out, err := doc.Find("body").Html()
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (c *Converter) lexerFor(code *goquery.Selection) chroma.Lexer {
	class, _ := code.Attr("class")
	for _, cl := range strings.Fields(class) {
		lang, ok := strings.CutPrefix(cl, "language-")
		if !ok {
			continue
		}
		if lexer, ok := c.lexers[strings.ToLower(lang)]; ok {
			return lexer
		}
	}
	return nil
}

// CSS returns the stylesheet for highlighted code blocks.
func (c *Converter) CSS() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.formatter.WriteCSS(&buf, c.style); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
