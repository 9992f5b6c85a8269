package main

import (
	"fmt"
	"os"

	"github.com/monomaker/monomaker/internal/adapters/inbound/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "monomaker: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
