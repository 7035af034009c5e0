// Command dataserver ingests checksummed blocks over HTTP and serves them
// back by type or name.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dataserver/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
