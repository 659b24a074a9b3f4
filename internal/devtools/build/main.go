// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"

	"carsongrossdev.com/site/internal/devtools"
	"carsongrossdev.com/site/internal/env"
	"carsongrossdev.com/site/internal/pages"
	"carsongrossdev.com/site/internal/site"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/base/logger"
)

func main() { cli.Main(new(app)) }

type app struct {
	env      env.Env
	skipFeed bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.Var(&a.env, "env", "Build for the `environment` (dev, staging or prod).")
	fs.BoolVar(&a.skipFeed, "skip-feed", false, "Don't generate the Atom feed.")
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
	c.SkipFeed = a.skipFeed

	res, err := site.Build(ctx, c, pages.Registry())
	if err != nil {
		return err
	}
	logger.Info(ctx, "wrote site",
		slog.String("dir", dir),
		slog.String("env", a.env.String()),
		slog.Int("files", len(res.Files)),
	)
	return nil
}
