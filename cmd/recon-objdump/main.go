// Command recon-objdump is a narrow debug helper: load one binary, analyse
// it to completion, and print the styled text of a single function. It
// exists alongside the full recon CLI the way the teacher's retrieval-pack
// neighbour ships both a full disk-image tool and a single-purpose
// disassembly helper side by side.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mewkiz/pkg/term"
	"github.com/mewmew/recon/analysis"
	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/arch/arm"
	"github.com/mewmew/recon/arch/ppc"
	"github.com/mewmew/recon/arch/x86"
	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/image"
	"github.com/mewmew/recon/store"
	"github.com/pkg/errors"
)

var dbg = log.New(os.Stderr, term.MagentaBold("recon-objdump:")+" ", 0)

func main() {
	var (
		addrFlag bin.Addr
		rawArch  string
	)
	flag.Var(&addrFlag, "addr", "entry address of the function to dump")
	flag.StringVar(&rawArch, "arch", "x86_64", "architecture to assume for raw (headerless) input")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: recon-objdump -addr ADDR FILE")
		os.Exit(2)
	}

	if err := dump(flag.Arg(0), addrFlag, image.Arch(rawArch)); err != nil {
		log.Fatalf("%+v", err)
	}
}

func dump(path string, addr bin.Addr, rawArch image.Arch) error {
	bs, err := store.Load(path)
	if err != nil {
		return errors.WithStack(err)
	}

	view, err := open(bs, rawArch)
	if err != nil {
		return err
	}

	decode, err := decoderFor(view.Arch())
	if err != nil {
		return err
	}

	a := analysis.New(view, decode)
	go a.Run()
	for i := 0; i < 200 && a.Status() == ""; i++ {
		time.Sleep(time.Millisecond)
	}
	for a.Status() != "" {
		time.Sleep(5 * time.Millisecond)
	}
	a.Stop()

	functions := a.Functions()
	f, ok := functions[addr]
	if !ok {
		return errors.Errorf("no function discovered at %v", addr)
	}

	dbg.Printf("dumping %s (%d block(s))", f.Name, len(f.Blocks))
	fmt.Printf("; %s\n", f.Name)
	for _, block := range f.Blocks {
		fmt.Printf("%v:\n", block.Entry)
		for _, text := range block.Text() {
			for _, line := range text.Lines {
				for _, span := range line {
					fmt.Print(span.Text)
				}
				fmt.Println()
			}
		}
	}
	return nil
}

func open(bs *store.ByteStore, rawArch image.Arch) (image.ImageView, error) {
	if v := image.NewElfImageView(bs); v.Valid() {
		return v, nil
	}
	if v := image.NewPeImageView(bs); v.Valid() {
		return v, nil
	}
	if v := image.NewMachOImageView(bs); v.Valid() {
		return v, nil
	}
	return image.NewRawImageView(bs, 0, rawArch), nil
}

func decoderFor(a image.Arch) (arch.Decoder, error) {
	switch a {
	case image.ArchX86:
		return func(src []byte, addr bin.Addr) arch.Inst { return x86.Decode(x86.Mode32, src, addr) }, nil
	case image.ArchX86_64:
		return func(src []byte, addr bin.Addr) arch.Inst { return x86.Decode(x86.Mode64, src, addr) }, nil
	case image.ArchARM:
		return func(src []byte, addr bin.Addr) arch.Inst { return arm.Decode(src, addr) }, nil
	case image.ArchPPC:
		return func(src []byte, addr bin.Addr) arch.Inst { return ppc.Decode(src, addr) }, nil
	default:
		return nil, errors.Errorf("unsupported architecture %q", a)
	}
}
