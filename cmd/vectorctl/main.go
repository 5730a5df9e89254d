// Command vectorctl scaffolds migration source files. It deliberately
// knows nothing about any concrete migration set: applying and
// reverting migrations is the job of the caller's own binary, built
// with internal/cli.NewRootCommand over its compiled-in migrations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
