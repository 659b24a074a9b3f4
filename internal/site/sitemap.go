// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"bytes"
	"encoding/xml"

	"github.com/armon/go-radix"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemap lists every route except the not found page, in lexical order.
func (b *buildContext) sitemap(routes *radix.Tree) ([]byte, error) {
	set := sitemapURLSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	routes.Walk(func(route string, v any) bool {
		if route == "/404" {
			return false
		}
		u := sitemapURL{Loc: b.ctx.AbsURL(route)}
		if t := v.(*target); t.item != nil && !t.item.Date.IsZero() {
			u.LastMod = t.item.Date.Format(dateLayout)
		}
		set.URLs = append(set.URLs, u)
		return false
	})

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
