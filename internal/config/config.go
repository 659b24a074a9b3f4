// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package config loads the site configuration from a Starlark file.

The configuration file, site.star, sets global variables:

	name = "Carson Gross Dev"
	base_title = "Carson Gross"
	url = "https://carsongrossdev.com"
	author = "Carson Gross"
	description = "Apps and backends, usually in Swift."

	highlight = {
	    "languages": ["swift", "go"],
	    "style": "github",
	}

	_paths = ["/top/secret/stuff", "/wp-admin"]

	robots = [
	    disallow("google", _paths),
	    disallow("chatGPT"),
	]

	ignore = ["**.txt"]

Globals starting with an underscore are private to the file. Setting any other
global that isn't listed above is an error. The predeclared env variable holds
the name of the environment the site is built for.
*/
package config

import (
	"errors"
	"fmt"
	"net/url"

	"carsongrossdev.com/site/internal/env"
	"carsongrossdev.com/site/internal/markup"
	"carsongrossdev.com/site/internal/site"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Possible errors, used in tests.
var (
	errExec    = errors.New("failed to execute configuration")
	errValue   = errors.New("unsupported configuration value")
	errDecode  = errors.New("invalid configuration")
	errBaseURL = errors.New("invalid base URL")
)

// File is the decoded configuration file.
type File struct {
	Name        string    `mapstructure:"name"`
	BaseTitle   string    `mapstructure:"base_title"`
	URL         string    `mapstructure:"url"`
	Author      string    `mapstructure:"author"`
	Description string    `mapstructure:"description"`
	Highlight   Highlight `mapstructure:"highlight"`
	Robots      []Robot   `mapstructure:"robots"`
	Ignore      []string  `mapstructure:"ignore"`
}

// Highlight configures syntax highlighting.
type Highlight struct {
	Languages []string `mapstructure:"languages"`
	Style     string   `mapstructure:"style"`
}

// Robot is a crawler denied access to paths of the site.
type Robot struct {
	Robot string   `mapstructure:"robot"`
	Paths []string `mapstructure:"paths"`
}

// Load reads and executes the configuration file at path on fsys.
func Load(fsys afero.Fs, path string, e env.Env) (*File, error) {
	src, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return Parse(path, src, e)
}

// Parse executes the configuration file src. The filename is only used in
// error messages.
func Parse(filename string, src []byte, e env.Env) (*File, error) {
	thread := &starlark.Thread{Name: filename}
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
			GlobalReassign:  true,
		},
		thread,
		filename,
		src,
		starlark.StringDict{
			"env":      starlark.String(e.String()),
			"disallow": starlark.NewBuiltin("disallow", disallow),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", filename, errExec, err)
	}

	raw := make(map[string]any)
	for _, name := range globals.Keys() {
		if name[0] == '_' {
			continue
		}
		v := globals[name]
		if _, ok := v.(starlark.Callable); ok {
			continue
		}
		gv, err := toGo(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", filename, name, err)
		}
		raw[name] = gv
	}

	f := new(File)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      f,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", filename, errDecode, err)
	}
	return f, nil
}

// disallow implements the disallow(robot, paths=[]) builtin.
func disallow(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		robot string
		paths *starlark.List
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "robot", &robot, "paths?", &paths); err != nil {
		return nil, err
	}
	if paths == nil {
		paths = starlark.NewList(nil)
	}
	rule := site.DisallowRule{Robot: robot}
	for i := range paths.Len() {
		p, ok := paths.Index(i).(starlark.String)
		if !ok {
			return nil, fmt.Errorf("%s: paths[%d] is %s, want string", b.Name(), i, paths.Index(i).Type())
		}
		rule.Paths = append(rule.Paths, string(p))
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	d := starlark.NewDict(2)
	if err := d.SetKey(starlark.String("robot"), starlark.String(robot)); err != nil {
		return nil, err
	}
	if err := d.SetKey(starlark.String("paths"), paths); err != nil {
		return nil, err
	}
	return d, nil
}

// toGo converts a Starlark value into the plain Go value mapstructure
// decodes from.
func toGo(v starlark.Value) (any, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.String:
		return string(v), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return nil, fmt.Errorf("%w: integer %s is too large", errValue, v)
		}
		return i, nil
	case starlark.Float:
		return float64(v), nil
	case *starlark.List:
		return iterableToGo(v)
	case starlark.Tuple:
		return iterableToGo(v)
	case *starlark.Dict:
		m := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			k, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("%w: dict key %s is not a string", errValue, item[0])
			}
			gv, err := toGo(item[1])
			if err != nil {
				return nil, err
			}
			m[string(k)] = gv
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", errValue, v.Type())
}

func iterableToGo(v starlark.Indexable) ([]any, error) {
	s := make([]any, 0, v.Len())
	for i := range v.Len() {
		gv, err := toGo(v.Index(i))
		if err != nil {
			return nil, err
		}
		s = append(s, gv)
	}
	return s, nil
}

// Apply sets the fields of c from the configuration.
func (f *File) Apply(c *site.Config) error {
	if f.URL != "" {
		u, err := url.Parse(f.URL)
		if err != nil {
			return fmt.Errorf("%w: %v", errBaseURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q is not absolute", errBaseURL, f.URL)
		}
		c.BaseURL = u
	}
	c.Name = f.Name
	c.BaseTitle = f.BaseTitle
	c.Author = f.Author
	c.Description = f.Description
	c.Highlight = markup.Options{
		Languages: f.Highlight.Languages,
		Style:     f.Highlight.Style,
	}
	c.Ignore = f.Ignore
	c.Robots = nil
	for _, r := range f.Robots {
		c.Robots = append(c.Robots, site.DisallowRule{Robot: r.Robot, Paths: r.Paths})
	}
	return nil
}
