// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package pages declares the pages, layouts and chrome of carsongrossdev.com.
package pages

import (
	"carsongrossdev.com/site/internal/content"
	"carsongrossdev.com/site/internal/elem"
	"carsongrossdev.com/site/internal/site"
)

// Tags of the content the pages list.
const (
	PostTag    = "Post"
	ProjectTag = "Project"
)

// Links to elsewhere.
const (
	appStoreURL = "https://apps.apple.com/us/developer/carson-gross/id1702281177"
	githubURL   = "https://github.com/carsongro"
	mastodonURL = "https://mastodon.social/@carsongross"
	twitterURL  = "https://twitter.com/carsongrossdev"
	linkedInURL = "https://www.linkedin.com/in/carsongross/"
	igniteURL   = "https://github.com/twostraws/Ignite"
)

// Registry returns the definition of the site.
func Registry() *site.Registry {
	return &site.Registry{
		Home: &site.Page{Title: "Home", Route: "/", Body: home},
		Pages: []*site.Page{
			{Title: "About", Route: "/about", Body: about},
			{Title: "Cool Stuff", Route: "/cool-stuff", Body: projects("Here are some fun projects I've made")},
			{Title: "Projects", Route: "/projects", Body: projects("Projects")},
			{Title: "Posts", Route: "/posts", Body: posts},
		},
		NotFound: &site.Page{Title: "Not Found", Body: notFound},
		Tags:     &site.TagPage{Route: "/tags", Body: tagListing},
		Layouts: []*site.Layout{
			{Name: "post", Body: post},
		},
		Header: header,
		Footer: footer,
	}
}

func text(font elem.Font, content ...elem.Node) elem.Text {
	return elem.Text{Font: font, Content: content}
}

func title(s string) elem.Text {
	return text(elem.Title1, elem.Str(s))
}

func home(ctx *site.Context) []elem.Node {
	return []elem.Node{
		title("Home"),
		text(elem.Body,
			elem.Str("Hi! I'm Carson and I build iOS apps and backends usually in Swift (including this website). "+
				"I have a B.S. in Business Administration with Computer Science Integration. "+
				"I've built features for the Ancestry iOS app, launched some of "),
			elem.Link{Text: "my own apps", Target: appStoreURL},
			elem.Str(" on the App Store, and I'm an "),
			elem.Image{Icon: "apple", Description: "Apple"},
			elem.Str(" Swift Student Challenge 2024 Winner. I'm very passionate about building tools to "),
			elem.Link{Text: "make full stack iOS development more efficient", Target: "https://github.com/carsongro/Ceto"},
			elem.Str(" and "),
			elem.Link{Text: "animations in SwiftUI", Target: "https://twitter.com/carsongrossdev/status/1783285909091463410"},
			elem.Str(". If I'm not programming, I'm lifting weights, running, or reading!"),
		),
	}
}

func about(ctx *site.Context) []elem.Node {
	const award = "Swift Student Challenge 2024 Winner"
	return []elem.Node{
		title("About me"),
		elem.Section{Items: []elem.Node{
			elem.Image{Src: "/images/project/ssc2024.svg", Description: award, MaxHeight: 300},
			elem.Image{Src: "/images/project/header.svg", Description: award, MaxHeight: 300},
		}},
		text(elem.Lead, elem.Str("I love to build stuff! I've been using Swift and building for Apple platforms for 2+ years, "+
			"and I won the Apple Swift Student Challenge in 2024! My professional experience and personal projects "+
			"are Swift and iOS related, but I'm always exploring new things.")),
		elem.List{Items: []elem.Node{
			elem.Link{Text: "GitHub", Target: githubURL},
			elem.Link{Text: "Mastodon", Target: mastodonURL},
			elem.Link{Text: "Twitter", Target: twitterURL},
			elem.Link{Text: "LinkedIn", Target: linkedInURL},
		}},
	}
}

// projects returns the body of a page previewing every project.
func projects(heading string) func(ctx *site.Context) []elem.Node {
	return func(ctx *site.Context) []elem.Node {
		return []elem.Node{
			title(heading),
			text(elem.Lead,
				elem.Str("This is only a few projects, to check out more of what I've built, go to my "),
				elem.Link{Text: "GitHub!", Target: githubURL},
			),
			previews(ctx.Tagged(ProjectTag)),
		}
	}
}

func posts(ctx *site.Context) []elem.Node {
	return []elem.Node{
		text(elem.Title3, elem.Str("Posts")),
		previews(ctx.TaggedByDate(PostTag)),
	}
}

func notFound(ctx *site.Context) []elem.Node {
	return []elem.Node{
		title("Page not found"),
		text(elem.Lead,
			elem.Str("There is nothing here. Try the "),
			elem.Link{Text: "home page", Target: "/"},
			elem.Str("."),
		),
	}
}

// previews lays out items as cards, three in a row.
func previews(items []*content.Item) elem.Node {
	cards := make([]elem.Node, 0, len(items))
	for _, it := range items {
		cards = append(cards, preview(it))
	}
	return elem.Section{Width: 4, Items: cards}
}

func preview(it *content.Item) elem.Card {
	return elem.Card{
		Title:            it.Title,
		Target:           it.Path,
		Image:            it.Image,
		ImageDescription: it.ImageDescription,
		Summary:          it.Summary,
		Date:             it.Date,
	}
}

func tagListing(tag string, ctx *site.Context) []elem.Node {
	heading := tag
	if heading == "" {
		heading = "All tags"
	}
	var links []elem.Node
	for _, it := range ctx.Tagged(tag) {
		links = append(links, elem.Link{Text: it.Title, Target: it.Path})
	}
	return []elem.Node{title(heading), elem.List{Items: links}}
}

func post(it *content.Item, ctx *site.Context) []elem.Node {
	var nodes []elem.Node
	if it.Image != "" {
		nodes = append(nodes, elem.Image{Src: it.Image, Description: it.ImageDescription})
	}
	nodes = append(nodes, title(it.Title))
	if it.HasTags() {
		var links []elem.Node
		for i, tag := range it.Tags {
			if i > 0 {
				links = append(links, elem.Str(", "))
			}
			links = append(links, elem.Link{Text: tag, Target: ctx.TagPath(tag)})
		}
		nodes = append(nodes, elem.Text{Font: elem.Title3, Content: links, Class: "tag-links"})
	}
	return append(nodes, elem.HTML(it.Body))
}
