// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package content

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

type frontmatterFormat struct {
	name       string
	open       string
	close      string
	keepDelims bool // delimiters are part of the encoded document
	unmarshal  func([]byte, any) error
}

var frontmatterFormats = []frontmatterFormat{
	{name: "JSON", open: "{", close: "}", keepDelims: true, unmarshal: json.Unmarshal},
	{name: "YAML", open: "---", close: "---", unmarshal: yaml.Unmarshal},
	{name: "TOML", open: "+++", close: "+++", unmarshal: toml.Unmarshal},
}

type frontmatter map[string]any

// splitFrontmatter separates the front matter from contents and decodes it.
// Contents are returned byte for byte as they follow the closing delimiter.
func splitFrontmatter(r io.Reader) (frontmatter, []byte, error) {
	br := bufio.NewReader(r)

	var (
		format             frontmatterFormat
		raw                []byte
		reachedFrontmatter bool
		reachedContents    bool
	)
	for !reachedContents {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, nil, fmt.Errorf("%w: %v", errFrontmatterSplit, err)
		}
		trimmed := strings.TrimRight(line, " \t\r\n")

		switch {
		case line == "":
			// Nothing left to read.
		case !reachedFrontmatter:
			for _, f := range frontmatterFormats {
				if trimmed == f.open {
					format = f
					reachedFrontmatter = true
					break
				}
			}
			if reachedFrontmatter && format.keepDelims {
				raw = append(raw, line...)
			}
		case trimmed == format.close:
			reachedFrontmatter = false
			reachedContents = true
			if format.keepDelims {
				raw = append(raw, line...)
			}
		default:
			raw = append(raw, line...)
		}

		if err == io.EOF {
			break
		}
	}
	if !reachedContents {
		if reachedFrontmatter {
			return nil, nil, fmt.Errorf("%w: unterminated %s front matter", errFrontmatterSplit, format.name)
		}
		return nil, nil, errFrontmatterMissing
	}

	contents, err := io.ReadAll(br)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errFrontmatterSplit, err)
	}

	fm := make(frontmatter)
	if err := format.unmarshal(raw, &fm); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", errFrontmatterParse, format.name, err)
	}
	return fm, contents, nil
}

// decode copies front matter fields into it.
func (fm frontmatter) decode(it *Item) error {
	var err error
	if it.Title, err = fm.string("title"); err != nil {
		return err
	}
	if it.Image, err = fm.string("image"); err != nil {
		return err
	}
	if it.ImageDescription, err = fm.string("imageDescription"); err != nil {
		return err
	}
	if it.Summary, err = fm.string("summary"); err != nil {
		return err
	}
	if it.Layout, err = fm.string("layout"); err != nil {
		return err
	}
	if it.Path, err = fm.string("permalink"); err != nil {
		return err
	}
	if it.Tags, err = fm.tags("tags"); err != nil {
		return err
	}
	if it.Date, err = fm.date("date"); err != nil {
		return err
	}
	if v, ok := fm["draft"]; ok {
		if it.Draft, err = cast.ToBoolE(v); err != nil {
			return fmt.Errorf("%w: draft: %v", errFrontmatterParse, err)
		}
	}
	return nil
}

func (fm frontmatter) string(key string) (string, error) {
	v, ok := fm[key]
	if !ok || v == nil {
		return "", nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errFrontmatterParse, key, err)
	}
	return strings.TrimSpace(s), nil
}

// tags accepts either a list or a comma separated string. The result has
// no empty or repeated tags and keeps the written order.
func (fm frontmatter) tags(key string) ([]string, error) {
	v, ok := fm[key]
	if !ok || v == nil {
		return nil, nil
	}

	var raw []string
	if s, ok := v.(string); ok {
		raw = strings.Split(s, ",")
	} else {
		var err error
		raw, err = cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errFrontmatterParse, key, err)
		}
	}

	var tags []string
	seen := make(map[string]bool)
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags, nil
}

func (fm frontmatter) date(key string) (time.Time, error) {
	switch v := fm[key].(type) {
	case nil:
		return time.Time{}, nil
	case toml.LocalDate:
		return v.AsTime(time.UTC), nil
	case toml.LocalDateTime:
		return v.AsTime(time.UTC), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return time.Time{}, nil
		}
	}
	t, err := cast.ToTimeE(fm[key])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errDateInvalid, err)
	}
	return t, nil
}
