package image

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/store"
)

// ElfImageView parses an ELF32/ELF64 container. Section headers, the symbol
// tables and relocations are all optional: a truncated or stripped ELF still
// yields a valid view over whatever program headers it does have.
type ElfImageView struct {
	base
}

// NewElfImageView parses bs as an ELF file. Valid() reports false, with the
// view otherwise empty, if the magic doesn't match or the header is
// malformed; no error is returned for that case, matching the rest of the
// container parsers.
func NewElfImageView(bs *store.ByteStore) *ElfImageView {
	v := &ElfImageView{base: newBase(bs, "@PLT")}

	data := bs.Read(0, int(bs.Len()))
	if len(data) < 4 || !bytes.Equal(data[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		return v
	}
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return v
	}

	v.arch = elfArch(f.Machine)
	v.entry = bin.Addr(f.Entry)
	v.hasEntry = f.Entry != 0

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Memsz == 0 {
			continue
		}
		v.segs = append(v.segs, Segment{
			VAddr:      bin.Addr(p.Vaddr),
			VSize:      p.Memsz,
			FileOffset: int64(p.Off),
			FileSize:   p.Filesz,
			Perms:      elfPerm(p.Flags),
		})
	}

	// Symbol and dynamic symbol tables are both optional sections; either
	// may be missing from a stripped binary, so failures are swallowed.
	syms, _ := f.Symbols()
	for _, s := range syms {
		if s.Name == "" {
			continue
		}
		v.CreateSymbol(bin.Addr(s.Value), s.Name)
	}
	dynSyms, _ := f.DynamicSymbols()
	for _, s := range dynSyms {
		if s.Name == "" {
			continue
		}
		v.CreateSymbol(bin.Addr(s.Value), s.Name)
	}

	for _, sec := range f.Sections {
		switch sec.Type {
		case elf.SHT_REL:
			v.parseRel(sec, f.ByteOrder, f.Class, dynSyms)
		case elf.SHT_RELA:
			v.parseRela(sec, f.ByteOrder, f.Class, dynSyms)
		}
	}

	v.valid = true
	return v
}

func (v *ElfImageView) Valid() bool { return v.valid }
func (v *ElfImageView) Arch() Arch  { return v.arch }

// relJumpSlot is R_386_JMP_SLOT and R_X86_64_JUMP_SLOT; both formats assign
// the same numeric code to the PLT-resolving relocation type.
const relJumpSlot = 7

// parseRel walks a SHT_REL section's raw entries (Elf32_Rel is 8 bytes,
// Elf64_Rel is 16) looking for jump-slot relocations, each of which names a
// PLT trampoline's target in the dynamic symbol table.
func (v *ElfImageView) parseRel(sec *elf.Section, order binary.ByteOrder, class elf.Class, dynSyms []elf.Symbol) {
	data, err := sec.Data()
	if err != nil {
		return
	}
	entsize := 8
	if class == elf.ELFCLASS64 {
		entsize = 16
	}
	for i := 0; i+entsize <= len(data); i += entsize {
		offset, sym, relType := decodeRelFields(data[i:i+entsize], order, class)
		v.recordJumpSlot(offset, sym, relType, dynSyms)
	}
}

// parseRela is parseRel's RELA counterpart: entries carry an explicit addend
// (Elf32_Rela 12 bytes, Elf64_Rela 24) that the PLT table doesn't need.
func (v *ElfImageView) parseRela(sec *elf.Section, order binary.ByteOrder, class elf.Class, dynSyms []elf.Symbol) {
	data, err := sec.Data()
	if err != nil {
		return
	}
	entsize := 12
	if class == elf.ELFCLASS64 {
		entsize = 24
	}
	for i := 0; i+entsize <= len(data); i += entsize {
		offset, sym, relType := decodeRelFields(data[i:i+entsize], order, class)
		v.recordJumpSlot(offset, sym, relType, dynSyms)
	}
}

func decodeRelFields(entry []byte, order binary.ByteOrder, class elf.Class) (offset, sym, relType uint64) {
	if class == elf.ELFCLASS64 {
		offset = order.Uint64(entry[0:8])
		info := order.Uint64(entry[8:16])
		return offset, info >> 32, info & 0xffffffff
	}
	offset = uint64(order.Uint32(entry[0:4]))
	info := order.Uint32(entry[4:8])
	return offset, uint64(info >> 8), uint64(info & 0xff)
}

func (v *ElfImageView) recordJumpSlot(offset, sym, relType uint64, dynSyms []elf.Symbol) {
	if relType != relJumpSlot || sym >= uint64(len(dynSyms)) {
		return
	}
	name := dynSyms[sym].Name
	if name == "" {
		return
	}
	v.addPLT(bin.Addr(offset), name)
}

func elfPerm(flags elf.ProgFlag) Perm {
	var p Perm
	if flags&elf.PF_R != 0 {
		p |= PermRead
	}
	if flags&elf.PF_W != 0 {
		p |= PermWrite
	}
	if flags&elf.PF_X != 0 {
		p |= PermExec
	}
	return p
}

func elfArch(m elf.Machine) Arch {
	switch m {
	case elf.EM_386:
		return ArchX86
	case elf.EM_X86_64:
		return ArchX86_64
	case elf.EM_ARM:
		return ArchARM
	case elf.EM_PPC, elf.EM_PPC64:
		return ArchPPC
	default:
		return ArchUnknown
	}
}
