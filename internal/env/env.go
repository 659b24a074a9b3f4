// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package env contains definitions for the environments in which site can be
// built.
package env

import "fmt"

// Env is the environment in which site can be built. It implements
// flag.Value.
type Env string

// Available environments.
const (
	Dev     = Env("dev")
	Staging = Env("staging")
	Prod    = Env("prod")
)

// Parse returns the environment named s.
func Parse(s string) (Env, error) {
	switch e := Env(s); e {
	case Dev, Staging, Prod:
		return e, nil
	}
	return "", fmt.Errorf("unknown environment %q (want %s, %s or %s)", s, Dev, Staging, Prod)
}

// Drafts reports whether drafts are published in e. Only production builds
// leave them out.
func (e Env) Drafts() bool { return e != Prod }

// AbsoluteURLs reports whether site paths are turned into absolute URLs
// derived from the base URL in e.
func (e Env) AbsoluteURLs() bool { return e == Prod }

func (e Env) String() string {
	if e == "" {
		return string(Dev)
	}
	return string(e)
}

// Set implements flag.Value.
func (e *Env) Set(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
