// Command bcoord is the coordinator daemon and its own administrative
// CLI: run `bcoord serve` to bind the proxy and serve connections, or
// any other subcommand for a one-off control operation against a
// freshly started coordinator.
package main

import (
	"fmt"
	"os"

	"github.com/browsercoordinator/bcoord/internal/cli"
)

func main() {
	err := cli.Execute()
	if err == nil {
		os.Exit(0)
	}

	if !cli.IsPrintedError(err) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(cli.ServeExitCode(err))
}
