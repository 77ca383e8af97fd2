// Package app wires the CLI commands into a single application.
package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli"
	"github.com/vesper-lang/vesper-go/cli/heap"
	"github.com/vesper-lang/vesper-go/pkg/config"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "Vesper heap runtime\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a vesper-go instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "vesper-go"
	ctl.Version = config.Version
	ctl.Usage = "Reference-counted value heap runtime for the Vesper language"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, heap.NewCommands()...)
	return ctl
}
