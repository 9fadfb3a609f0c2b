// Command alchemist is the command line client: it predicts, balances and
// explains reactions against the local or bucket-hosted dataset.
package main

import (
	"os"

	"github.com/turtacn/alchemist/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
