// Command filterd runs the filter manager daemon.
package main

import (
	"fmt"
	"os"

	"github.com/nullset-labs/filterd/cmd/filterd/cmd"
)

func main() {
	if err := cmd.NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
