// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package content

import (
	"bufio"
	"io"
	"time"

	"gopkg.in/yaml.v2"
)

const dateLayout = "2006-01-02"

// Encode writes it to w as YAML front matter followed by the body source.
// Parsing the result yields an item with the same title, date, tags and body.
func Encode(w io.Writer, it *Item) error {
	fm := yaml.MapSlice{{Key: "title", Value: it.Title}}
	if !it.Date.IsZero() {
		fm = append(fm, yaml.MapItem{Key: "date", Value: formatDate(it.Date)})
	}
	if len(it.Tags) > 0 {
		fm = append(fm, yaml.MapItem{Key: "tags", Value: it.Tags})
	}
	for _, f := range []struct {
		key, val string
	}{
		{"image", it.Image},
		{"imageDescription", it.ImageDescription},
		{"summary", it.Summary},
		{"layout", it.Layout},
	} {
		if f.val != "" {
			fm = append(fm, yaml.MapItem{Key: f.key, Value: f.val})
		}
	}
	if it.Draft {
		fm = append(fm, yaml.MapItem{Key: "draft", Value: true})
	}
	if it.Path != "" && it.File != "" && it.Path != defaultPath(it.File) {
		fm = append(fm, yaml.MapItem{Key: "permalink", Value: it.Path})
	}

	b, err := yaml.Marshal(fm)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("---\n")
	bw.Write(b)
	bw.WriteString("---\n")
	bw.WriteString(it.Source)
	return bw.Flush()
}

// formatDate uses the short layout for dates at midnight UTC, so that
// hand-written dates survive a round trip unchanged.
func formatDate(t time.Time) string {
	if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
		return t.Format(dateLayout)
	}
	return t.Format(time.RFC3339Nano)
}
