// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"carsongrossdev.com/site/internal/devtools"
	"carsongrossdev.com/site/internal/env"
	"carsongrossdev.com/site/internal/pages"
	"carsongrossdev.com/site/internal/site"

	"go.astrophena.name/base/cli"
)

func main() { cli.Main(new(app)) }

type app struct {
	listen string
	env    env.Env
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.listen, "listen", "localhost:3000", "Listen on `host:port`.")
	fs.Var(&a.env, "env", "Build for the `environment` (dev, staging or prod).")
}

func (a *app) Run(ctx context.Context) error {
	devtools.EnsureRoot()

	dir := filepath.Join(".", "build")
	if args := cli.GetEnv(ctx).Args; len(args) > 1 {
		return fmt.Errorf("%w: want at most one output directory", cli.ErrInvalidArgs)
	} else if len(args) == 1 {
		dir = args[0]
	}

	c, err := devtools.SiteConfig(dir, a.env)
	if err != nil {
		return err
	}
	return site.Serve(ctx, c, pages.Registry(), a.listen)
}
