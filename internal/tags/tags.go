// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package tags indexes content items by tag.
package tags

import (
	"strings"
	"unicode"

	"carsongrossdev.com/site/internal/content"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Index maps tags to the items carrying them. Within a tag, items keep the
// order in which they were passed to IndexByTag. An Index is read-only and
// safe for concurrent use.
type Index struct {
	tags  []string // in first-seen order
	items map[string][]*content.Item
	all   []*content.Item
}

// IndexByTag builds an Index from items.
func IndexByTag(items []*content.Item) *Index {
	idx := &Index{items: make(map[string][]*content.Item)}
	for _, it := range items {
		if !it.HasTags() {
			continue
		}
		idx.all = append(idx.all, it)
		for _, tag := range it.Tags {
			if _, ok := idx.items[tag]; !ok {
				idx.tags = append(idx.tags, tag)
			}
			idx.items[tag] = append(idx.items[tag], it)
		}
	}
	return idx
}

// Tags returns all known tags in the order they were first seen.
func (idx *Index) Tags() []string {
	return append([]string(nil), idx.tags...)
}

// Items returns the items tagged with tag. An empty tag means the all-tags
// view, see All.
func (idx *Index) Items(tag string) []*content.Item {
	if tag == "" {
		return idx.All()
	}
	return append([]*content.Item(nil), idx.items[tag]...)
}

// All returns every item that carries at least one tag, each of them once,
// in index order. Untagged items are not included.
func (idx *Index) All() []*content.Item {
	return append([]*content.Item(nil), idx.all...)
}

// Slug returns the URL path segment for tag: lower case, without
// diacritics, with runs of other characters than letters and digits
// replaced by a single dash. Slug returns an empty string for tags that
// have no letters or digits.
func Slug(tag string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, tag)
	if err != nil {
		s = tag
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}
