// Command p4ir builds, validates and inspects P4-like programs.
package main

import (
	"os"

	"github.com/roach88/p4ir/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
