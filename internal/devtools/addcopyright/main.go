// © 2024 Carson Gross. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Addcopyright adds copyright header to each Go and Starlark file.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"carsongrossdev.com/site/internal/devtools"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/base/logger"
)

func main() { cli.Main(cli.AppFunc(run)) }

const holder = "Carson Gross"

var templates = map[string]string{
	".go": `// © %d %s. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

`,
	".star": `# © %d %s. All rights reserved.
# Use of this source code is governed by the ISC
# license that can be found in the LICENSE.md file.

`,
}

var headers = map[string]string{
	".go":   `// ©`,
	".star": `# ©`,
}

// skipDir reports whether the directory at path holds no sources of the
// repository: the build output, test fixtures and hidden directories.
func skipDir(path string) bool {
	if path == "." {
		return false
	}
	base := filepath.Base(path)
	return base == "build" || base == "testdata" || strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_")
}

func run(ctx context.Context) error {
	devtools.EnsureRoot()

	var added int
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		tmpl, ok := templates[ext]
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if bytes.HasPrefix(content, []byte(headers[ext])) {
			return nil // Already has a copyright header
		}

		var buf bytes.Buffer
		fmt.Fprintf(&buf, tmpl, info.ModTime().Year(), holder)
		buf.Write(content)
		if err := os.WriteFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
			return err
		}
		logger.Info(ctx, "added copyright header", slog.String("file", path))
		added++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "checked copyright headers", slog.Int("added", added))
	return nil
}
