// Command adl converts API resource payloads between their versioned and
// normalized shapes.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/adl/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// ExitErrors have already been reported by the command itself.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
