package main

import (
	"fmt"

	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/image"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var findCommand = cli.Command{
	Name:      "find",
	Usage:     "search a binary's file-backed segments for a byte pattern",
	ArgsUsage: "FILE PATTERN",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "start", Value: "0x0", Usage: "virtual address to start searching from"},
	},
	Action: func(c *cli.Context) error {
		path := c.Args().Get(0)
		pattern := c.Args().Get(1)
		if path == "" || pattern == "" {
			return errors.New("usage: recon find FILE PATTERN")
		}
		var start bin.Addr
		if err := start.Set(c.String("start")); err != nil {
			return err
		}
		view, err := openImage(path, image.ArchUnknown, 0)
		if err != nil {
			return err
		}
		addr, ok, err := view.Find(pattern, start)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no match")
			return nil
		}
		fmt.Println(addr)
		return nil
	},
}
