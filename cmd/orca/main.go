// Command orca runs plans of algorithm steps.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/orca/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
