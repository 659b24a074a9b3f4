// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package site

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var errRobotsRule = errors.New("invalid robots.txt rule")

// DisallowRule denies a crawler access to paths of the site.
type DisallowRule struct {
	// Robot names the crawler, like "google" or "chatGPT". Known names are
	// mapped to user agent tokens; others are used verbatim.
	Robot string
	// Paths are the disallowed path prefixes. No paths disallow the whole
	// site.
	Paths []string
}

// Validate returns an error unless r names a robot and every path of r is
// absolute. Neither may span lines.
func (r DisallowRule) Validate() error {
	if strings.TrimSpace(r.Robot) == "" || strings.ContainsAny(r.Robot, "\r\n") {
		return fmt.Errorf("%w: robot name %q", errRobotsRule, r.Robot)
	}
	for _, p := range r.Paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: %q for %s doesn't start with a slash", errRobotsRule, p, r.Robot)
		}
		if strings.ContainsAny(p, "\r\n") {
			return fmt.Errorf("%w: %q for %s contains a line break", errRobotsRule, p, r.Robot)
		}
	}
	return nil
}

var userAgents = map[string]string{
	"google":     "Googlebot",
	"bing":       "Bingbot",
	"chatGPT":    "GPTBot",
	"yahoo":      "Slurp",
	"duckDuckGo": "DuckDuckBot",
	"baidu":      "Baiduspider",
	"yandex":     "YandexBot",
	"apple":      "Applebot",
}

// UserAgent returns the user agent token of the named crawler.
func UserAgent(robot string) string {
	if ua, ok := userAgents[robot]; ok {
		return ua
	}
	return robot
}

// robotsTxt returns the contents of robots.txt: a group per rule in order,
// then a group allowing everything to everyone else.
func robotsTxt(rules []DisallowRule, sitemap string) []byte {
	var buf bytes.Buffer
	for _, r := range rules {
		fmt.Fprintf(&buf, "User-agent: %s\n", UserAgent(r.Robot))
		if len(r.Paths) == 0 {
			buf.WriteString("Disallow: /\n")
		}
		for _, p := range r.Paths {
			fmt.Fprintf(&buf, "Disallow: %s\n", p)
		}
		buf.WriteString("\n")
	}
	buf.WriteString("User-agent: *\nAllow: /\n")
	if sitemap != "" {
		fmt.Fprintf(&buf, "\nSitemap: %s\n", sitemap)
	}
	return buf.Bytes()
}
