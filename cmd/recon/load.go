package main

import (
	"fmt"

	"github.com/mewmew/recon/analysis"
	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/image"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var loadCommand = cli.Command{
	Name:      "load",
	Usage:     "analyse a binary and list or dump its discovered functions",
	ArgsUsage: "FILE",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "dump", Usage: "print one function's styled text instead of the summary list, by entry address"},
		cli.StringFlag{Name: "arch", Value: "x86_64", Usage: "architecture to assume for raw (headerless) input: x86, x86_64, arm, ppc"},
	},
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return errors.New("missing FILE argument")
		}
		view, err := openImage(path, image.Arch(c.String("arch")), 0)
		if err != nil {
			return err
		}
		decode, err := decoderFor(view.Arch())
		if err != nil {
			return err
		}
		cfg, err := loadConfig(c.GlobalString("config"))
		if err != nil {
			return err
		}

		a := analysis.New(view, decode)
		seedSymbols(a, cfg)
		runToIdle(a)

		functions := a.Functions()
		if dump := c.String("dump"); dump != "" {
			return dumpFunction(functions, dump)
		}
		return listFunctions(functions)
	},
}

// listFunctions prints one summary line per discovered function, in
// ascending entry-address order.
func listFunctions(functions map[bin.Addr]*analysis.Function) error {
	for _, entry := range sortedEntries(functions) {
		f := functions[entry]
		kind := ""
		if f.IsPLT {
			kind = " (plt)"
		}
		fmt.Printf("%v  %-32s %d block(s)%s\n", f.Entry, f.Name, len(f.Blocks), kind)
	}
	return nil
}

// dumpFunction prints the styled text of every block in the function
// starting at addrText (accepted in the same hex/decimal notation as
// bin.Addr.Set).
func dumpFunction(functions map[bin.Addr]*analysis.Function, addrText string) error {
	var addr bin.Addr
	if err := addr.Set(addrText); err != nil {
		return err
	}
	f, ok := functions[addr]
	if !ok {
		return errors.Errorf("no function discovered at %v", addr)
	}
	fmt.Printf("; %s\n", f.Name)
	for _, entry := range sortedBlockEntries(f.Blocks) {
		block := f.Blocks[entry]
		fmt.Printf("%v:\n", block.Entry)
		for _, text := range block.Text() {
			printText(text)
		}
	}
	return nil
}
