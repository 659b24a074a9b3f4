// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package templates contains the document shell every page of
// https://carsongrossdev.com is wrapped in.
package templates

import _ "embed"

// Layout is the html/template source of the document shell.
//
//go:embed layout.html
var Layout []byte
