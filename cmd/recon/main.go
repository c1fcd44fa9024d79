// Command recon is a headless driver for the recon disassembly core: it
// loads an executable, runs the background analysis engine to completion
// over a single-shot invocation, and exposes the function table, the find
// primitive and symbol edits as subcommands. It is the CLI-shaped
// collaborator the specification's renderer/editor interfaces assume a GUI
// would otherwise provide.
package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/mewkiz/pkg/term"
	"github.com/urfave/cli"
)

var (
	// dbg logs progress messages with a "recon:" prefix to standard error.
	dbg = log.New(os.Stderr, term.MagentaBold("recon:")+" ", 0)
	// warn logs recoverable problems (optional subsection parse failures,
	// missing config) with a "warning:" prefix.
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

func main() {
	app := cli.NewApp()
	app.Name = "recon"
	app.Usage = "interactive reverse-engineering workbench core, driven headlessly"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "q, quiet", Usage: "suppress non-error messages"},
		cli.StringFlag{Name: "config", Usage: "path to a JSON symbol/option seed file"},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("quiet") {
			dbg.SetOutput(ioutil.Discard)
		}
		return nil
	}
	app.Commands = []cli.Command{
		loadCommand,
		findCommand,
		symbolCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
