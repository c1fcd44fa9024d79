package main

import (
	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/arch/arm"
	"github.com/mewmew/recon/arch/ppc"
	"github.com/mewmew/recon/arch/x86"
	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/image"
	"github.com/mewmew/recon/store"
	"github.com/pkg/errors"
)

// openImage loads path, probes it against every container parser in turn
// (ELF, PE, Mach-O), and falls back to a RawImageView interpreted as
// rawArch when none recognise the magic, mirroring the specification's
// "malformed container -> fall back to raw bytes" error kind.
func openImage(path string, rawArch image.Arch, rawBase bin.Addr) (image.ImageView, error) {
	bs, err := store.Load(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if v := image.NewElfImageView(bs); v.Valid() {
		dbg.Printf("%q recognised as ELF", path)
		return v, nil
	}
	if v := image.NewPeImageView(bs); v.Valid() {
		dbg.Printf("%q recognised as PE", path)
		return v, nil
	}
	if v := image.NewMachOImageView(bs); v.Valid() {
		dbg.Printf("%q recognised as Mach-O", path)
		return v, nil
	}
	warn.Printf("%q not recognised by any container parser; treating as raw bytes", path)
	return image.NewRawImageView(bs, rawBase, rawArch), nil
}

// decoderFor returns the arch.Decoder matching a, or an error if recon has
// no decoder for it (§3.2's "other-but-unsupported" architecture case).
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
