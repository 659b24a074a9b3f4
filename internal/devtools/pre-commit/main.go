// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Pre-commit runs the checks that must pass before committing: formatting,
// static analysis, tests, copyright headers and a production build of the
// site.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"carsongrossdev.com/site/internal/devtools"

	"go.astrophena.name/base/cli"
)

func main() { cli.Main(cli.AppFunc(run)) }

func run(ctx context.Context) error {
	devtools.EnsureRoot()

	isCI := cli.GetEnv(ctx).Getenv("CI") == "true"

	var w bytes.Buffer

	if err := execute(ctx, &w, "gofmt", "-d", "."); err != nil {
		return err
	}
	if diff := w.String(); diff != "" {
		return fmt.Errorf("run gofmt on these files:\n\t%v", diff)
	}

	testArgs := []string{"test", "./..."}
	if isCI {
		testArgs = []string{"test", "-race", "./..."}
	}

	dir, err := os.MkdirTemp("", "site-pre-commit-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	for _, args := range [][]string{
		{"go", "tool", "staticcheck", "./..."},
		append([]string{"go"}, testArgs...),
		{"go", "mod", "tidy", "--diff"},
		{"go", "tool", "addcopyright"},
		{"go", "tool", "build", "-env", "prod", filepath.Join(dir, "build")},
	} {
		if err := execute(ctx, &w, args[0], args[1:]...); err != nil {
			return err
		}
	}

	if isCI {
		return execute(ctx, &w, "git", "diff", "--exit-code")
	}
	return nil
}

func execute(ctx context.Context, buf *bytes.Buffer, cmd string, args ...string) error {
	buf.Reset()
	c := exec.CommandContext(ctx, cmd, args...)
	c.Stdout = buf
	c.Stderr = buf
	if err := c.Run(); err != nil {
		return fmt.Errorf("%s failed: %v:\n%v", cmd, err, buf.String())
	}
	return nil
}
