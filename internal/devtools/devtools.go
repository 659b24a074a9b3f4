// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package devtools contains common functionality for development tools.
package devtools

import (
	"os"
	"path/filepath"

	"carsongrossdev.com/site/internal/config"
	"carsongrossdev.com/site/internal/env"
	"carsongrossdev.com/site/internal/site"

	"go.astrophena.name/base/unwrap"

	"github.com/spf13/afero"
)

// ConfigFile is the name of the site configuration file at the repository
// root.
const ConfigFile = "site.star"

// EnsureRoot checks that the current working directory is at the repository
// root and panics if it doesn't.
func EnsureRoot() {
	wd := unwrap.Value(os.Getwd())
	if _, err := os.Stat(filepath.Join(wd, ConfigFile)); os.IsNotExist(err) {
		panic("Are you at repo root?")
	} else if err != nil {
		panic(err)
	}
}

// SiteConfig returns the configuration of the site built from the current
// directory into dst for the environment e.
func SiteConfig(dst string, e env.Env) (*site.Config, error) {
	fsys := afero.NewOsFs()
	f, err := config.Load(fsys, ConfigFile, e)
	if err != nil {
		return nil, err
	}
	c := &site.Config{
		Src: ".",
		Dst: dst,
		Env: e,
		Fs:  fsys,
	}
	if err := f.Apply(c); err != nil {
		return nil, err
	}
	return c, nil
}
