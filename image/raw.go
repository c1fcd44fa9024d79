package image

import (
	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/store"
)

// RawImageView is the headerless form: the whole file is one segment,
// loaded at a caller-chosen base address with no symbols, no PLT and no
// entry point, for inspecting architecture-identified shellcode or a bare
// memory dump.
type RawImageView struct {
	base
}

// NewRawImageView maps bs at base, one segment spanning the whole store,
// readable/writable/executable, for the given architecture.
func NewRawImageView(bs *store.ByteStore, baseAddr bin.Addr, a Arch) *RawImageView {
	v := &RawImageView{base: newBase(bs, "")}
	v.valid = true
	v.arch = a
	size := uint64(bs.Len())
	v.segs = []Segment{{
		VAddr:      baseAddr,
		VSize:      size,
		FileOffset: 0,
		FileSize:   size,
		Perms:      PermRead | PermWrite | PermExec,
	}}
	return v
}

func (v *RawImageView) Valid() bool { return v.valid }
func (v *RawImageView) Arch() Arch  { return v.arch }
