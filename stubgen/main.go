// stubgen generates deepstub stand-ins for Go interfaces.
// Install it with `go install github.com/toejough/deepstub/stubgen@latest` and add a
// `//go:generate stubgen <interface>` comment next to your tests. The stand-in is named
// Stub<interface> unless `--name <name>` is given, and is written to generated_<name>.go (or
// _test.go for test packages) in the directory of the go:generate comment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/toejough/deepstub/stubgen/run"
)

func main() {
	if os.Args == nil {
		return
	}

	workDir, err := os.Getwd()
	if err == nil {
		err = run.Run(os.Args, os.Getenv, afero.NewOsFs(), workDir, os.Stdout)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
