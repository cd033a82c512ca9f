// Package output formats generated stand-ins and writes them next to the go:generate directive.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/toejough/go-reorder"
	"golang.org/x/tools/imports"
)

// Filename returns generated_<name>.go, or generated_<name>_test.go when the stand-in belongs
// to a test package or is generated from a test file.
func Filename(name, pkgName string, getEnv func(string) string) string {
	name = strings.TrimSuffix(name, ".go")

	isTestFile := strings.HasSuffix(pkgName, "_test") || strings.HasSuffix(getEnv("GOFILE"), "_test.go")
	if isTestFile && !strings.HasSuffix(name, "_test") {
		name += "_test"
	}

	return "generated_" + name + ".go"
}

// WriteGeneratedCode fixes imports, reorders declarations and writes code into dir.
func WriteGeneratedCode(
	fsys afero.Fs, dir string, code []byte, name, pkgName string, getEnv func(string) string, out io.Writer,
) (string, error) {
	const generatedFilePermissions = 0o600

	filename := filepath.Join(dir, Filename(name, pkgName, getEnv))

	processed, err := imports.Process(filename, code, nil)
	if err != nil {
		return "", fmt.Errorf("generated code for %s does not parse: %w", filename, err)
	}

	reordered, err := reorder.Source(string(processed))
	if err != nil {
		_, _ = fmt.Fprintf(out, "Warning: failed to reorder %s: %v\n", filename, err)

		reordered = string(processed)
	}

	err = afero.WriteFile(fsys, filename, []byte(reordered), generatedFilePermissions)
	if err != nil {
		return "", fmt.Errorf("error writing %s: %w", filename, err)
	}

	_, _ = fmt.Fprintf(out, "%s written successfully.\n", filename)

	return filename, nil
}
