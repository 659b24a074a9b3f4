// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"carsongrossdev.com/site/internal/content"
	"carsongrossdev.com/site/internal/elem"
	"carsongrossdev.com/site/internal/env"
	"carsongrossdev.com/site/internal/markup"

	"go.astrophena.name/base/testutil"
	"go.astrophena.name/base/txtar"

	"github.com/PuerkitoBio/goquery"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
)

func heading(s string) elem.Node {
	return elem.Text{Font: elem.Title1, Content: []elem.Node{elem.Str(s)}}
}

func linkList(items []*content.Item) elem.Node {
	var links []elem.Node
	for _, it := range items {
		links = append(links, elem.Link{Text: it.Title, Target: it.Path})
	}
	return elem.List{Items: links}
}

func page(title, route string, nodes ...elem.Node) *Page {
	return &Page{
		Title: title,
		Route: route,
		Body:  func(*Context) []elem.Node { return nodes },
	}
}

func testRegistry() *Registry {
	return &Registry{
		Home: page("Home", "/", heading("Home")),
		Pages: []*Page{
			{
				Title: "Posts",
				Route: "/posts",
				Body: func(ctx *Context) []elem.Node {
					return []elem.Node{heading("Posts"), linkList(ctx.TaggedByDate("Post"))}
				},
			},
		},
		NotFound: page("Not Found", "", heading("Not Found")),
		Tags: &TagPage{
			Body: func(tag string, ctx *Context) []elem.Node {
				title := tag
				if title == "" {
					title = "All tags"
				}
				return []elem.Node{heading(title), linkList(ctx.Tagged(tag))}
			},
		},
		Layouts: []*Layout{
			{
				Name: "post",
				Body: func(it *content.Item, ctx *Context) []elem.Node {
					var nodes []elem.Node
					if it.Image != "" {
						nodes = append(nodes, elem.Image{Src: it.Image, Description: it.ImageDescription})
					}
					nodes = append(nodes, heading(it.Title))
					var tagLinks []elem.Node
					for _, tag := range it.Tags {
						tagLinks = append(tagLinks, elem.Link{Text: tag, Target: ctx.TagPath(tag)})
					}
					nodes = append(nodes, elem.Text{Font: elem.Title3, Content: tagLinks})
					return append(nodes, elem.HTML(it.Body))
				},
			},
		},
		Header: func(ctx *Context) []elem.Node {
			return []elem.Node{elem.NavBar{
				Logo:  elem.Str(ctx.Name()),
				Items: []elem.Node{elem.Link{Text: "Posts", Target: "/posts"}},
			}}
		},
		Footer: func(ctx *Context) []elem.Node {
			return []elem.Node{elem.Text{Content: []elem.Node{elem.Str("© " + ctx.Author())}}}
		},
	}
}

func extractSite(t *testing.T) string {
	t.Helper()
	ar, err := txtar.ParseFile(filepath.Join("testdata", "site.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	testutil.ExtractTxtar(t, ar, dir)
	return dir
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Src:         extractSite(t),
		Dst:         filepath.Join(t.TempDir(), "build"),
		Ignore:      []string{"*.txt"},
		Highlight:   markup.Options{Languages: []string{"swift"}},
		feedCreated: time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC),
	}
}

func readDoc(t *testing.T, dst, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join(dst, filepath.FromSlash(name)))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func readFile(t *testing.T, dst, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func texts(s *goquery.Selection) []string {
	return s.Map(func(_ int, s *goquery.Selection) string { return s.Text() })
}

func TestBuild(t *testing.T) {
	c := testConfig(t)
	c.Env = env.Prod
	c.Robots = []DisallowRule{{Robot: "chatGPT"}}

	res, err := Build(context.Background(), c, testRegistry())
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, res.Pages.Load(), int64(3))
	testutil.AssertEqual(t, res.Items.Load(), int64(3))
	testutil.AssertEqual(t, res.TagPages.Load(), int64(4))
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %q", res.Warnings)
	}

	for _, name := range []string{
		"index.html",
		"404.html",
		"posts.html",
		"posts/a.html",
		"posts/b.html",
		"projects/ceto.html",
		"tags.html",
		"tags/post.html",
		"tags/swift.html",
		"tags/project.html",
		"robots.txt",
		"sitemap.xml",
		"feed.xml",
		"favicon.ico",
	} {
		if !slices.Contains(res.Files, name) {
			t.Errorf("%s is not written, files: %q", name, res.Files)
		}
		if _, err := os.Stat(filepath.Join(c.Dst, name)); err != nil {
			t.Error(err)
		}
	}
	if slices.Contains(res.Files, "posts/draft.html") {
		t.Error("draft is published in production")
	}
	if !slices.IsSorted(res.Files) {
		t.Errorf("files are not sorted: %q", res.Files)
	}

	t.Run("posts listing", func(t *testing.T) {
		doc := readDoc(t, c.Dst, "posts.html")
		if got, want := texts(doc.Find("main li a")), []string{"B", "A"}; !slices.Equal(got, want) {
			t.Fatalf("want %q, got %q", want, got)
		}
		testutil.AssertEqual(t, doc.Find("title").Text(), "Posts - Carson Gross")
		href, _ := doc.Find("main li a").First().Attr("href")
		testutil.AssertEqual(t, href, "https://carsongrossdev.com/posts/b")
	})

	t.Run("item", func(t *testing.T) {
		doc := readDoc(t, c.Dst, "posts/b.html")
		testutil.AssertEqual(t, doc.Find("title").Text(), "B - Carson Gross")
		testutil.AssertEqual(t, doc.Find("main h1").Text(), "B")
		testutil.AssertEqual(t, doc.Find("main pre.chroma").Length(), 1)
		testutil.AssertEqual(t, doc.Find("header nav a").Last().Text(), "Posts")
		testutil.AssertEqual(t, doc.Find("footer").Text(), "© Carson Gross")

		desc, _ := doc.Find("meta[name=description]").Attr("content")
		testutil.AssertEqual(t, desc, "The second post.")

		src, _ := doc.Find("main img").Attr("src")
		if !strings.HasPrefix(src, "https://carsongrossdev.com/images/b-") {
			t.Fatalf("image is not hashed or not absolute: %q", src)
		}
		tagHref, _ := doc.Find("main h3 a").Last().Attr("href")
		testutil.AssertEqual(t, tagHref, "https://carsongrossdev.com/tags/swift")

		var stylesheets []string
		doc.Find("link[rel=stylesheet]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			stylesheets = append(stylesheets, href)
		})
		if len(stylesheets) != 3 ||
			!strings.HasPrefix(stylesheets[1], "https://carsongrossdev.com/css/main-") ||
			!strings.HasPrefix(stylesheets[2], "https://carsongrossdev.com/css/syntax-") {
			t.Fatalf("unexpected stylesheets: %q", stylesheets)
		}
	})

	t.Run("tag pages", func(t *testing.T) {
		all := readDoc(t, c.Dst, "tags.html")
		testutil.AssertEqual(t, all.Find("main h1").Text(), "All tags")
		if got, want := texts(all.Find("main li a")), []string{"A", "B", "Ceto"}; !slices.Equal(got, want) {
			t.Fatalf("all tags: want %q, got %q", want, got)
		}

		swift := readDoc(t, c.Dst, "tags/swift.html")
		testutil.AssertEqual(t, swift.Find("main h1").Text(), "Swift")
		if got, want := texts(swift.Find("main li a")), []string{"B"}; !slices.Equal(got, want) {
			t.Fatalf("swift: want %q, got %q", want, got)
		}
	})

	t.Run("static files", func(t *testing.T) {
		var mainCSS string
		for _, name := range res.Files {
			if strings.HasPrefix(name, "css/main-") {
				mainCSS = name
			}
		}
		if mainCSS == "" {
			t.Fatalf("no hashed main.css in %q", res.Files)
		}
		testutil.AssertEqual(t, readFile(t, c.Dst, mainCSS), "body{color:red}")
		testutil.AssertEqual(t, readFile(t, c.Dst, "favicon.ico"), "icon\n")
	})

	t.Run("robots", func(t *testing.T) {
		testutil.AssertEqual(t, readFile(t, c.Dst, "robots.txt"), `User-agent: GPTBot
Disallow: /

User-agent: *
Allow: /

Sitemap: https://carsongrossdev.com/sitemap.xml
`)
	})

	t.Run("sitemap", func(t *testing.T) {
		sitemap := readFile(t, c.Dst, "sitemap.xml")
		for _, want := range []string{
			"<loc>https://carsongrossdev.com/</loc>",
			"<loc>https://carsongrossdev.com/posts/a</loc>",
			"<lastmod>2024-01-01</lastmod>",
			"<loc>https://carsongrossdev.com/tags/swift</loc>",
		} {
			if !strings.Contains(sitemap, want) {
				t.Errorf("sitemap doesn't contain %q:\n%s", want, sitemap)
			}
		}
		if strings.Contains(sitemap, "/404") {
			t.Errorf("sitemap lists the not found page:\n%s", sitemap)
		}
	})

	t.Run("feed", func(t *testing.T) {
		feed := readFile(t, c.Dst, "feed.xml")
		b, a := strings.Index(feed, "<title>B</title>"), strings.Index(feed, "<title>A</title>")
		if b == -1 || a == -1 || b > a {
			t.Fatalf("feed doesn't list B then A:\n%s", feed)
		}
		if strings.Contains(feed, "Ceto") || strings.Contains(feed, "Draft") {
			t.Fatalf("feed lists items that aren't posts:\n%s", feed)
		}
	})
}

func TestBuildDrafts(t *testing.T) {
	c := testConfig(t)
	res, err := Build(context.Background(), c, testRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(res.Files, "posts/draft.html") {
		t.Fatalf("draft is not published in development: %q", res.Files)
	}
	// Relative URLs in development.
	doc := readDoc(t, c.Dst, "posts.html")
	href, _ := doc.Find("main li a").First().Attr("href")
	testutil.AssertEqual(t, href, "/posts/draft")
}

// Scenario: two posts dated 1 and 2, the Posts page lists the newer one first.
// Posts with the same date keep load order.
func TestPostsOrder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for name, src := range map[string]string{
		"content/a.md": "---\ntitle: A\ndate: 2024-01-01\ntags: [Post]\n---\n",
		"content/b.md": "---\ntitle: B\ndate: 2024-01-02\ntags: [Post]\n---\n",
		"content/c.md": "---\ntitle: C\ndate: 2024-01-01\ntags: [Post]\n---\n",
	} {
		if err := afero.WriteFile(fsys, name, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c := &Config{Dst: filepath.Join(t.TempDir(), "build"), Fs: fsys, SkipFeed: true}
	if _, err := Build(context.Background(), c, testRegistry()); err != nil {
		t.Fatal(err)
	}
	doc := readDoc(t, c.Dst, "posts.html")
	if got, want := texts(doc.Find("main li a")), []string{"B", "A", "C"}; !slices.Equal(got, want) {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestDuplicateRoute(t *testing.T) {
	cases := map[string]struct {
		reg        func() *Registry
		items      []*content.Item
		wantOwners []string
	}{
		"page and page": {
			reg: func() *Registry {
				r := testRegistry()
				r.Pages = append(r.Pages, page("About", "/about"), page("About me", "/about/"))
				return r
			},
			wantOwners: []string{`page "About"`, `page "About me"`},
		},
		"page and item": {
			reg:        testRegistry,
			items:      []*content.Item{{Title: "Impostor", Path: "/posts", File: "impostor.md"}},
			wantOwners: []string{`page "Posts"`, "item impostor.md"},
		},
		"item and item": {
			reg: testRegistry,
			items: []*content.Item{
				{Title: "One", Path: "/same", File: "one.md"},
				{Title: "Two", Path: "/same", File: "two.md"},
			},
			wantOwners: []string{"item one.md", "item two.md"},
		},
		"tag slugs": {
			reg: testRegistry,
			items: []*content.Item{
				{Title: "One", Path: "/one", File: "one.md", Tags: []string{"Swift UI"}},
				{Title: "Two", Path: "/two", File: "two.md", Tags: []string{"swift-ui"}},
			},
			wantOwners: []string{`tag "Swift UI"`, `tag "swift-ui"`},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.reg().Validate(tc.items)
			if !errors.Is(err, errRouteDuplicate) {
				t.Fatalf("want errRouteDuplicate, got %v", err)
			}
			var be *BuildError
			if !errors.As(err, &be) {
				t.Fatalf("want *BuildError, got %T", err)
			}
			for _, owner := range tc.wantOwners {
				if !strings.Contains(err.Error(), owner) {
					t.Fatalf("error doesn't name %s: %v", owner, err)
				}
			}
		})
	}
}

func TestRegistryErrors(t *testing.T) {
	cases := map[string]struct {
		reg     *Registry
		items   []*content.Item
		wantErr error
	}{
		"no home": {
			reg:     &Registry{},
			wantErr: errNoHome,
		},
		"relative route": {
			reg:     &Registry{Home: page("Home", "/"), Pages: []*Page{page("About", "about")}},
			wantErr: errRouteInvalid,
		},
		"no body": {
			reg:     &Registry{Home: &Page{Title: "Home"}},
			wantErr: errNoBody,
		},
		"no layout": {
			reg:     &Registry{Home: page("Home", "/")},
			items:   []*content.Item{{Title: "A", Path: "/a"}},
			wantErr: errNoLayout,
		},
		"duplicate layout": {
			reg: &Registry{Home: page("Home", "/"), Layouts: []*Layout{
				{Name: "post", Body: func(*content.Item, *Context) []elem.Node { return nil }},
				{Name: "post", Body: func(*content.Item, *Context) []elem.Node { return nil }},
			}},
			wantErr: errLayoutDuplicate,
		},
		"tag without slug": {
			reg:     testRegistry(),
			items:   []*content.Item{{Title: "A", Path: "/a", Tags: []string{"!!!"}}},
			wantErr: errTagSlug,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := tc.reg.Validate(tc.items); !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLayoutFor(t *testing.T) {
	isProject := func(it *content.Item) bool { return it.HasTag("Project") }
	var (
		project  = &Layout{Name: "project", Match: isProject}
		post     = &Layout{Name: "post", Match: func(it *content.Item) bool { return it.HasTag("Post") }}
		fallback = &Layout{Name: "fallback"}
		late     = &Layout{Name: "late", Match: isProject}
	)
	reg := &Registry{Layouts: []*Layout{project, post, fallback, late}}

	cases := map[string]struct {
		item    *content.Item
		want    *Layout
		wantErr error
	}{
		"first match wins":     {item: &content.Item{Tags: []string{"Post", "Project"}}, want: project},
		"later match":          {item: &content.Item{Tags: []string{"Post"}}, want: post},
		"nil match accepts":    {item: &content.Item{}, want: fallback},
		"explicit name":        {item: &content.Item{Layout: "late", Tags: []string{"Project"}}, want: late},
		"unknown layout":       {item: &content.Item{Layout: "nope"}, wantErr: errLayoutUnknown},
		"explicit beats match": {item: &content.Item{Layout: "post", Tags: []string{"Project"}}, want: post},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := reg.LayoutFor(tc.item)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, got.Name, tc.want.Name)
		})
	}

	if _, err := (&Registry{Layouts: []*Layout{project}}).LayoutFor(&content.Item{}); !errors.Is(err, errNoLayout) {
		t.Fatalf("want errNoLayout, got %v", err)
	}
}

// Scenario: {google: ["/admin"], chatGPT: []} disallows /admin for Google and
// everything for ChatGPT.
func TestRobotsTxt(t *testing.T) {
	got := string(robotsTxt([]DisallowRule{
		{Robot: "google", Paths: []string{"/admin"}},
		{Robot: "chatGPT", Paths: []string{}},
		{Robot: "SomeBot", Paths: []string{"/a", "/b"}},
	}, "https://example.com/sitemap.xml"))

	const want = `User-agent: Googlebot
Disallow: /admin

User-agent: GPTBot
Disallow: /

User-agent: SomeBot
Disallow: /a
Disallow: /b

User-agent: *
Allow: /

Sitemap: https://example.com/sitemap.xml
`
	testutil.AssertEqual(t, got, want)
}

func TestDisallowRuleValidate(t *testing.T) {
	cases := map[string]struct {
		rule    DisallowRule
		wantErr bool
	}{
		"whole site":     {rule: DisallowRule{Robot: "chatGPT"}},
		"paths":          {rule: DisallowRule{Robot: "google", Paths: []string{"/admin", "/wp-admin"}}},
		"empty path":     {rule: DisallowRule{Robot: "google", Paths: []string{""}}, wantErr: true},
		"relative path":  {rule: DisallowRule{Robot: "google", Paths: []string{"admin"}}, wantErr: true},
		"newline":        {rule: DisallowRule{Robot: "google", Paths: []string{"/a\nUser-agent: *"}}, wantErr: true},
		"carriage":       {rule: DisallowRule{Robot: "google", Paths: []string{"/a\r"}}, wantErr: true},
		"no robot":       {rule: DisallowRule{Paths: []string{"/a"}}, wantErr: true},
		"multiline name": {rule: DisallowRule{Robot: "google\nDisallow: /"}, wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.rule.Validate()
			if !tc.wantErr {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if !errors.Is(err, errRobotsRule) {
				t.Fatalf("want %v, got %v", errRobotsRule, err)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]struct {
		files     map[string]string
		robots    []DisallowRule
		wantErr   error
		wantOwner string
	}{
		"static robots.txt": {
			files:     map[string]string{"static/robots.txt": "User-agent: *\n"},
			wantErr:   errOutputConflict,
			wantOwner: "static/robots.txt",
		},
		"static file fails to minify": {
			files:     map[string]string{"static/data.json": `{"a" 1}`},
			wantErr:   errMinify,
			wantOwner: "static/data.json",
		},
		"invalid robots rule": {
			robots:    []DisallowRule{{Robot: "google", Paths: []string{""}}},
			wantErr:   errRobotsRule,
			wantOwner: "robots.txt",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			for file, data := range tc.files {
				if err := afero.WriteFile(fsys, file, []byte(data), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			c := &Config{Dst: filepath.Join(t.TempDir(), "build"), Fs: fsys, SkipFeed: true, Robots: tc.robots}

			_, err := Build(context.Background(), c, testRegistry())
			var be *BuildError
			if !errors.As(err, &be) {
				t.Fatalf("want *BuildError, got %T: %v", err, err)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			testutil.AssertEqual(t, len(be.Errs), 1)
			if !strings.HasPrefix(be.Errs[0].Error(), tc.wantOwner+": ") {
				t.Fatalf("want error about %s, got %v", tc.wantOwner, be.Errs[0])
			}
			if _, err := os.Stat(c.Dst); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("failed build must not publish, stat: %v", err)
			}
		})
	}
}

func TestImageWarning(t *testing.T) {
	c := &Config{Dst: filepath.Join(t.TempDir(), "build"), Fs: afero.NewMemMapFs(), SkipFeed: true}
	reg := &Registry{Home: page("Home", "/",
		elem.Image{Src: "/images/described.jpg", Description: "Described"},
		elem.Image{Src: "/images/bare.jpg"},
	)}

	res, err := Build(context.Background(), c, reg)
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, w := range res.Warnings {
		if strings.Contains(w, `page "Home"`) && strings.Contains(w, "/images/bare.jpg has no description") {
			found = true
		}
		if strings.Contains(w, "described.jpg has no description") {
			t.Fatalf("described image is flagged: %s", w)
		}
	}
	if !found {
		t.Fatalf("image without description is not flagged: %q", res.Warnings)
	}
	testutil.AssertEqual(t, readDoc(t, c.Dst, "index.html").Find("img").Length(), 2)
}

func TestLinkAudit(t *testing.T) {
	c := &Config{Dst: filepath.Join(t.TempDir(), "build"), Fs: afero.NewMemMapFs(), SkipFeed: true}
	reg := &Registry{
		Home: page("Home", "/",
			elem.Link{Text: "About", Target: "/about"},
			elem.Link{Text: "Missing", Target: "/missing#top"},
			elem.Link{Text: "External", Target: "https://github.com/carsongro"},
			elem.Link{Text: "Robots", Target: "/robots.txt"},
		),
		Pages: []*Page{page("About", "/about")},
	}

	res, err := Build(context.Background(), c, reg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "link to missing /missing") {
		t.Fatalf("want a single warning about /missing, got %q", res.Warnings)
	}
}

func TestFailedBuildKeepsPreviousOutput(t *testing.T) {
	parent := t.TempDir()
	c := &Config{Dst: filepath.Join(parent, "build"), Fs: afero.NewMemMapFs(), SkipFeed: true}

	if _, err := Build(context.Background(), c, &Registry{Home: page("Home", "/", heading("First"))}); err != nil {
		t.Fatal(err)
	}
	before := readFile(t, c.Dst, "index.html")

	broken := &Registry{
		Home: page("Home", "/", heading("Second")),
		Pages: []*Page{
			page("Broken", "/broken", elem.Section{Items: []elem.Node{elem.Link{Text: "nowhere"}}}),
			page("Also broken", "/also-broken", elem.Text{Font: 42}),
		},
	}
	_, err := Build(context.Background(), c, broken)
	if err == nil {
		t.Fatal("must fail")
	}

	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("want *BuildError, got %T: %v", err, err)
	}
	testutil.AssertEqual(t, len(be.Errs), 2)
	var re *elem.RenderError
	if !errors.As(err, &re) {
		t.Fatalf("want *elem.RenderError in %v", err)
	}
	testutil.AssertEqual(t, re.Node, "section[0]/link[0]")
	for _, owner := range []string{`page "Broken"`, `page "Also broken"`} {
		if !strings.Contains(err.Error(), owner) {
			t.Fatalf("error doesn't name %s: %v", owner, err)
		}
	}

	testutil.AssertEqual(t, readFile(t, c.Dst, "index.html"), before)
	if _, err := os.Stat(filepath.Join(c.Dst, "broken.html")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("broken page is published: %v", err)
	}
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("staging directories are left behind: %v", entries)
	}

	// And a successful build replaces the output.
	if _, err := Build(context.Background(), c, &Registry{Home: page("Home", "/", heading("Third"))}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, readDoc(t, c.Dst, "index.html").Find("h1").Text(), "Third")
}

func TestContentErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for name, src := range map[string]string{
		"content/ok.md":       "---\ntitle: OK\n---\n",
		"content/bad.md":      "no front matter",
		"content/untitled.md": "---\ndate: 2024-01-01\n---\n",
	} {
		if err := afero.WriteFile(fsys, name, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c := &Config{Dst: filepath.Join(t.TempDir(), "build"), Fs: fsys}
	_, err := Build(context.Background(), c, testRegistry())
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("want *BuildError, got %v", err)
	}
	testutil.AssertEqual(t, len(be.Errs), 2)
	var le *content.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("want *content.LoadError in %v", err)
	}
	if _, err := os.Stat(c.Dst); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output is written after a failed build: %v", err)
	}
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Config{Dst: filepath.Join(t.TempDir(), "build"), Fs: afero.NewMemMapFs()}
	_, err := Build(ctx, c, testRegistry())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("want *BuildError, got %T", err)
	}
}

func TestContextURL(t *testing.T) {
	bu := &url.URL{
		Scheme: "https",
		Host:   "example.com",
	}
	static := map[string]string{"/css/main.css": "/css/main-abc.css"}
	cases := map[string]struct {
		c    *Config
		in   string
		want string
	}{
		"env dev (base URL set)": {
			c:    &Config{BaseURL: bu, Env: env.Dev},
			in:   "/test",
			want: "/test",
		},
		"env prod (base URL not set)": {
			c:    &Config{Env: env.Prod},
			in:   "/lol",
			want: "/lol",
		},
		"env prod (base URL set)": {
			c:    &Config{BaseURL: bu, Env: env.Prod},
			in:   "/hello",
			want: "https://example.com/hello",
		},
		"env prod (home)": {
			c:    &Config{BaseURL: bu, Env: env.Prod},
			in:   "/",
			want: "https://example.com/",
		},
		"static file": {
			c:    &Config{BaseURL: bu, Env: env.Staging},
			in:   "/css/main.css",
			want: "/css/main-abc.css",
		},
		"single slash": {
			c:    &Config{},
			in:   "/",
			want: "/",
		},
		"full url": {
			c:    &Config{Env: env.Prod, BaseURL: bu},
			in:   "https://github.com/carsongro",
			want: "https://github.com/carsongro",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := newContext(tc.c, nil, nil, static, "")
			testutil.AssertEqual(t, ctx.URL(tc.in), tc.want)
		})
	}
}

func TestFormatStaticName(t *testing.T) {
	cases := map[string]struct {
		name, hash, want string
	}{
		"extension":        {"css/main.css", "abc", "css/main-abc.css"},
		"double extension": {"js/app.min.js", "abc", "js/app-abc.min.js"},
		"no extension":     {"LICENSE", "abc", "LICENSE-abc"},
		"no hash":          {"css/main.css", "", "css/main.css"},
		"no name":          {"", "abc", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, formatStaticName(tc.name, tc.hash), tc.want)
		})
	}
}

func TestServe(t *testing.T) {
	// Find a free port for us.
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	addr := fmt.Sprintf("localhost:%d", port)

	var wg sync.WaitGroup

	ready := make(chan struct{})
	serveReadyHook = func() {
		ready <- struct{}{}
	}
	t.Cleanup(func() { serveReadyHook = nil })
	errCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())

	c := testConfig(t)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := Serve(ctx, c, testRegistry(), addr); err != nil {
			errCh <- err
		}
	}()

	// Wait until the server is ready.
	select {
	case err := <-errCh:
		t.Fatalf("Test server crashed during startup or runtime: %v", err)
	case <-ready:
	}

	// Make some HTTP requests.
	urls := []struct {
		url        string
		wantStatus int
	}{
		{url: "/", wantStatus: http.StatusOK},
		{url: "/posts", wantStatus: http.StatusOK},
		{url: "/posts/b", wantStatus: http.StatusOK},
		{url: "/tags/swift", wantStatus: http.StatusOK},
		{url: "/robots.txt", wantStatus: http.StatusOK},
		{url: "/404", wantStatus: http.StatusOK},
		{url: "/does-not-exist", wantStatus: http.StatusNotFound},
		{url: "/css/", wantStatus: http.StatusNotFound},
	}

	for _, u := range urls {
		resp, err := http.Get("http://" + addr + u.url)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != u.wantStatus {
			t.Fatalf("GET %s: want status code %d, got %d", u.url, u.wantStatus, resp.StatusCode)
		}
	}

	// Try to gracefully shutdown the server.
	cancel()
	// Wait until the server shuts down.
	wg.Wait()
	// See if the server failed to shutdown.
	select {
	case err := <-errCh:
		t.Fatalf("Test server crashed during shutdown: %v", err)
	default:
	}
}

// getFreePort asks the kernel for a free open port that is ready to use.
// Copied from
// https://github.com/phayes/freeport/blob/74d24b5ae9f58fbe4057614465b11352f71cdbea/freeport.go.
func getFreePort() (port int, err error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func TestAffectsBuild(t *testing.T) {
	cases := map[string]struct {
		path string
		op   fsnotify.Op
		want bool
	}{
		"macOS garbage":   {"static/.DS_Store", fsnotify.Create, false},
		"gitignore":       {"static/.gitignore", fsnotify.Write, false},
		"vim temp file":   {"content/posts/4913", fsnotify.Create, false},
		"vim backup file": {"content/hello.md~", fsnotify.Create, false},
		"file creation":   {"content/hello.md", fsnotify.Create, true},
		"file removal":    {"content/hello.md", fsnotify.Remove, true},
		"file write":      {"content/hello.md", fsnotify.Write, true},
		"file rename":     {"static/css/main.css", fsnotify.Rename, true},
		"ignore chmod":    {"content/hello.md", fsnotify.Chmod, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := affectsBuild(fsnotify.Event{Name: tc.path, Op: tc.op})
			if got != tc.want {
				t.Fatalf("affectsBuild(%q, %v): want %v, got %v", tc.path, tc.op, tc.want, got)
			}
		})
	}
}

func TestRebuilder(t *testing.T) {
	var (
		calls atomic.Int64
		done  = make(chan struct{}, 10)
	)
	rb := &rebuilder{
		delay: 20 * time.Millisecond,
		build: func() {
			calls.Inc()
			done <- struct{}{}
		},
	}
	for range 5 {
		rb.schedule()
	}
	<-done
	time.Sleep(50 * time.Millisecond)
	testutil.AssertEqual(t, calls.Load(), int64(1))

	// Changes after a build schedule another one.
	rb.schedule()
	<-done
	testutil.AssertEqual(t, calls.Load(), int64(2))

	rb.schedule()
	rb.stop()
	time.Sleep(50 * time.Millisecond)
	testutil.AssertEqual(t, calls.Load(), int64(2))
}

func TestOutputHandler(t *testing.T) {
	h := &outputHandler{fsys: fstest.MapFS{
		"index.html":        {Data: []byte("<p>home</p>")},
		"posts.html":        {Data: []byte("<p>posts</p>")},
		"posts/first.html":  {Data: []byte("<p>first</p>")},
		"404.html":          {Data: []byte("<p>not found</p>")},
		"robots.txt":        {Data: []byte("User-agent: *\n")},
		"css/main-1a2.css":  {Data: []byte("body{}")},
		"images/header.svg": {Data: []byte("<svg></svg>")},
	}}

	cases := map[string]struct {
		url             string
		wantStatus      int
		wantBody        string
		wantContentType string
	}{
		"home":           {url: "/", wantStatus: http.StatusOK, wantBody: "<p>home</p>", wantContentType: "text/html; charset=utf-8"},
		"page":           {url: "/posts", wantStatus: http.StatusOK, wantBody: "<p>posts</p>"},
		"trailing slash": {url: "/posts/", wantStatus: http.StatusOK, wantBody: "<p>posts</p>"},
		"item":           {url: "/posts/first", wantStatus: http.StatusOK, wantBody: "<p>first</p>"},
		"rendered file":  {url: "/posts/first.html", wantStatus: http.StatusOK, wantBody: "<p>first</p>"},
		"robots.txt":     {url: "/robots.txt", wantStatus: http.StatusOK, wantContentType: "text/plain; charset=utf-8"},
		"stylesheet":     {url: "/css/main-1a2.css", wantStatus: http.StatusOK, wantContentType: "text/css; charset=utf-8"},
		"directory":      {url: "/css", wantStatus: http.StatusNotFound, wantBody: "<p>not found</p>"},
		"missing page":   {url: "/nope", wantStatus: http.StatusNotFound, wantBody: "<p>not found</p>"},
		"missing file":   {url: "/images/nope.svg", wantStatus: http.StatusNotFound, wantBody: "<p>not found</p>"},
		"404 route":      {url: "/404", wantStatus: http.StatusOK, wantBody: "<p>not found</p>"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.url, nil))
			testutil.AssertEqual(t, w.Code, tc.wantStatus)
			if tc.wantBody != "" {
				testutil.AssertEqual(t, w.Body.String(), tc.wantBody)
			}
			if tc.wantContentType != "" {
				testutil.AssertEqual(t, w.Header().Get("Content-Type"), tc.wantContentType)
			}
		})
	}

	t.Run("no 404 page", func(t *testing.T) {
		h := &outputHandler{fsys: fstest.MapFS{}}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
		testutil.AssertEqual(t, w.Code, http.StatusNotFound)
	})
}
