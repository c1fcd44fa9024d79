package main

import (
	"fmt"

	"github.com/mewmew/recon/analysis"
	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/image"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var symbolCommand = cli.Command{
	Name:      "symbol",
	Usage:     "rename the function at an address and re-render it (§4.4.5 create_symbol)",
	ArgsUsage: "FILE ADDR NAME",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "arch", Value: "x86_64", Usage: "architecture to assume for raw (headerless) input"},
		cli.BoolFlag{Name: "undefine", Usage: "remove the symbol instead of creating it"},
	},
	Action: func(c *cli.Context) error {
		path := c.Args().Get(0)
		addrText := c.Args().Get(1)
		name := c.Args().Get(2)
		if path == "" || addrText == "" || (name == "" && !c.Bool("undefine")) {
			return errors.New("usage: recon symbol FILE ADDR NAME")
		}
		var addr bin.Addr
		if err := addr.Set(addrText); err != nil {
			return err
		}

		view, err := openImage(path, image.Arch(c.String("arch")), 0)
		if err != nil {
			return err
		}
		decode, err := decoderFor(view.Arch())
		if err != nil {
			return err
		}
		a := analysis.New(view, decode)
		startAndWaitIdle(a)

		if c.Bool("undefine") {
			a.DeleteSymbol(addr, name)
		} else {
			a.CreateSymbol(addr, name)
		}
		// A symbol edit only sets the update-request flag (§4.4.5); wait for
		// the same worker to pick it up and re-render before this one-shot
		// process exits, instead of restarting discovery from the entry
		// point a second time.
		waitIdle(a)
		a.Stop()

		functions := a.Functions()
		f, ok := functions[addr]
		if !ok {
			fmt.Printf("no function at %v; symbol table updated\n", addr)
			return nil
		}
		fmt.Printf("%v renamed to %s\n", addr, f.Name)
		return nil
	},
}
