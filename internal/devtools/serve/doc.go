// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Serve previews carsongrossdev.com locally.

# Usage:

	$ go tool serve [-listen host:port] [-env dev|staging|prod] [dir]

Serve builds the site into dir (default "build") and serves it on
localhost:3000 with the routes of the deployed site: /posts answers with
posts.html, files like /robots.txt are served as written, and unknown paths
get the rendered 404 page.

Editing anything under content/ or static/ rebuilds the site a moment after
the last change. A failed rebuild is logged and the previous build stays up.
Changes to site.star or to the Go pages take a restart.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
