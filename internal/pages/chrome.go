// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pages

import (
	"carsongrossdev.com/site/internal/elem"
	"carsongrossdev.com/site/internal/site"
)

func header(ctx *site.Context) []elem.Node {
	return []elem.Node{elem.NavBar{
		Logo: text(elem.Title1, elem.Str(ctx.Name())),
		Items: []elem.Node{
			elem.Link{Text: "GitHub", Target: githubURL},
			elem.Link{Text: "About", Target: "/about"},
			elem.Dropdown{Title: ctx.Author(), Items: []elem.Node{
				elem.Link{Text: "Mastodon", Target: mastodonURL},
				elem.Link{Text: "Twitter", Target: twitterURL},
			}},
		},
	}}
}

// separator goes between footer links.
const separator = elem.Str(" • ")

func footer(ctx *site.Context) []elem.Node {
	links := []elem.Link{
		{Text: "App Store", Target: appStoreURL},
		{Text: "GitHub", Target: githubURL},
		{Text: "Mastodon", Target: mastodonURL},
		{Text: "Twitter", Target: twitterURL},
		{Text: "LinkedIn", Target: linkedInURL},
	}
	var line []elem.Node
	for i, l := range links {
		if i > 0 {
			line = append(line, separator)
		}
		line = append(line, l)
	}
	return []elem.Node{
		elem.Text{Content: line, Class: "text-center"},
		elem.Text{
			Content: []elem.Node{elem.Str("Created with "), elem.Link{Text: "Ignite", Target: igniteURL}},
			Class:   "text-center",
		},
	}
}
