// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"fmt"
	"time"

	"github.com/armon/go-radix"
	"github.com/gorilla/feeds"
)

const dateLayout = "2006-01-02"

func (b *buildContext) buildFeed() ([]byte, error) {
	feed := &feeds.Feed{
		Title:       b.c.Name,
		Link:        &feeds.Link{Href: b.ctx.AbsURL("/")},
		Description: b.c.Description,
		Author:      &feeds.Author{Name: b.c.Author},
		Created:     time.Now(),
	}

	if !b.c.feedCreated.IsZero() {
		feed.Created = b.c.feedCreated
	}

	for _, it := range b.ctx.TaggedByDate(b.c.FeedTag) {
		link := b.ctx.AbsURL(it.Path)
		item := &feeds.Item{
			Id:          link,
			Title:       it.Title,
			Link:        &feeds.Link{Href: link},
			Author:      feed.Author,
			Description: it.Summary,
			Content:     string(it.Body),
			Created:     it.Date,
		}
		feed.Items = append(feed.Items, item)
	}

	atom, err := feed.ToAtom()
	if err != nil {
		return nil, err
	}
	return []byte(atom), nil
}

// writeAuxiliary renders robots.txt, sitemap.xml and feed.xml. The XML files
// are minified.
func (b *buildContext) writeAuxiliary(routes *radix.Tree) error {
	sitemap, err := b.sitemap(routes)
	if err != nil {
		return ownerErr("sitemap.xml", err)
	}
	if err := b.putXML("sitemap.xml", sitemap); err != nil {
		return err
	}
	if err := b.put("robots.txt", robotsTxt(b.c.Robots, b.ctx.AbsURL("/sitemap.xml"))); err != nil {
		return ownerErr("robots.txt", err)
	}

	if b.c.SkipFeed {
		return nil
	}
	feed, err := b.buildFeed()
	if err != nil {
		return ownerErr("feed.xml", err)
	}
	return b.putXML("feed.xml", feed)
}

func (b *buildContext) putXML(name string, data []byte) error {
	data, err := b.min.Bytes("text/xml", data)
	if err != nil {
		return ownerErr(name, fmt.Errorf("%w: %v", errMinify, err))
	}
	if err := b.put(name, data); err != nil {
		return ownerErr(name, err)
	}
	return nil
}
