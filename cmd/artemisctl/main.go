// Command artemisctl is an operator tool for a running Artemis server.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/okian/artemis/pkg/logger"
)

func main() {
	if err := logger.InitWithFormat("text", os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	styled := func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
	if err := newRootCmd(styled).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
