// Command tagmark compiles tag markup templates into generated template
// source.
package main

import (
	"os"

	"github.com/tagmark-lang/tagmark/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
