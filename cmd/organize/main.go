// Command organize is the CLI entrypoint: it hands off to internal/cmd's
// Cobra root command.
package main

import (
	"fmt"
	"os"

	"github.com/organize/organize/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
