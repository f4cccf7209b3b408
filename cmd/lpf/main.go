// Package main is the entry point for the lpf binary.
//
// lpf manages SSH local port forwarding tunnels backed by autossh. When
// invoked without arguments it launches the interactive dashboard; with
// subcommands (add, ls, stop, stop-all, sync, restart, ...) it runs the
// corresponding operation and exits.
//
// The CLI is constructed in internal/cli and the TUI in internal/ui. This
// file simply wires them together and handles top-level error reporting.
package main

import (
	"fmt"
	"os"

	"github.com/mNandhu/lpf-cli/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
