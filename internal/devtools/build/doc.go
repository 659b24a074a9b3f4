// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Build builds the site.

# Usage

	$ go tool build [flags] [dir]

Builds the site described by site.star, the content directory and the static
directory into dir. If dir is not provided, it defaults to build in the
current working directory.

The previous contents of dir are replaced only when the build succeeds.

# Environments

The -env flag selects the environment:

	dev       drafts are published, links are relative (default)
	staging   drafts are published, links are relative
	prod      drafts are skipped, links are absolute
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
