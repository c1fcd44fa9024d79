package image

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"strconv"

	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/store"
)

// PeImageView parses a PE32/PE32+ container. The header and section table are
// the "thin" parts debug/pe already understands well; the import/export
// directory walk that builds the symbol table and IAT map is hand-rolled,
// since nothing in the standard library exposes resolved IAT slot addresses.
type PeImageView struct {
	base
}

// NewPeImageView parses bs as a PE image. As with the other containers, a
// recognition or structural failure leaves Valid() false rather than
// returning an error.
func NewPeImageView(bs *store.ByteStore) *PeImageView {
	v := &PeImageView{base: newBase(bs, "@IAT")}

	data := bs.Read(0, int(bs.Len()))
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return v
	}

	var imageBase, sizeOfHeaders, sectionAlign, fileAlign, entryRVA uint64
	var dirs []pe.DataDirectory
	bits32 := true
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(oh.ImageBase)
		sizeOfHeaders = uint64(oh.SizeOfHeaders)
		sectionAlign = uint64(oh.SectionAlignment)
		fileAlign = uint64(oh.FileAlignment)
		entryRVA = uint64(oh.AddressOfEntryPoint)
		dirs = oh.DataDirectory[:]
	case *pe.OptionalHeader64:
		imageBase = oh.ImageBase
		sizeOfHeaders = uint64(oh.SizeOfHeaders)
		sectionAlign = uint64(oh.SectionAlignment)
		fileAlign = uint64(oh.FileAlignment)
		entryRVA = uint64(oh.AddressOfEntryPoint)
		dirs = oh.DataDirectory[:]
		bits32 = false
	default:
		return v
	}

	v.arch = peArch(f.FileHeader.Machine)
	v.entry = bin.Addr(imageBase + entryRVA)
	v.hasEntry = entryRVA != 0

	v.segs = append(v.segs, Segment{
		VAddr:      bin.Addr(imageBase),
		VSize:      sizeOfHeaders,
		FileOffset: 0,
		FileSize:   sizeOfHeaders,
		Perms:      PermRead,
	})
	for _, sec := range f.Sections {
		vaddr := imageBase + alignDown(uint64(sec.VirtualAddress), sectionAlign)
		fileOffset := alignDown(uint64(sec.Offset), fileAlign)
		v.segs = append(v.segs, Segment{
			VAddr:      bin.Addr(vaddr),
			VSize:      uint64(sec.VirtualSize),
			FileOffset: int64(fileOffset),
			FileSize:   uint64(sec.Size),
			Perms:      peSectionPerm(sec.Characteristics),
		})
	}

	rvaToOffset := func(rva uint32) (int, bool) {
		for _, sec := range f.Sections {
			if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+sec.VirtualSize {
				return int(sec.Offset + (rva - sec.VirtualAddress)), true
			}
		}
		return 0, false
	}
	readCString := func(rva uint32) string {
		off, ok := rvaToOffset(rva)
		if !ok || off >= len(data) {
			return ""
		}
		end := off
		for end < len(data) && data[end] != 0 {
			end++
		}
		return string(data[off:end])
	}

	if len(dirs) > 1 && dirs[1].Size > 0 {
		v.parseImports(data, dirs[1], rvaToOffset, readCString, imageBase, bits32)
	}
	if len(dirs) > 0 && dirs[0].Size >= 40 {
		v.parseExports(data, dirs[0], rvaToOffset, readCString, imageBase)
	}

	v.valid = true
	return v
}

func (v *PeImageView) Valid() bool { return v.valid }
func (v *PeImageView) Arch() Arch  { return v.arch }

func alignDown(value, align uint64) uint64 {
	if align == 0 {
		return value
	}
	return value - value%align
}

const (
	ordinalFlag32 = uint64(0x80000000)
	ordinalFlag64 = uint64(0x8000000000000000)
)

// parseImports walks the import directory (data dir 1): one descriptor per
// DLL, each with a lookup table (names/ordinals) and an IAT walked in
// lockstep; every resolved IAT slot becomes a DLL!Name or DLL!OrdinalN symbol
// at the slot's own virtual address.
func (v *PeImageView) parseImports(data []byte, dir pe.DataDirectory, rvaToOffset func(uint32) (int, bool), readCString func(uint32) string, imageBase uint64, bits32 bool) {
	off, ok := rvaToOffset(dir.VirtualAddress)
	if !ok {
		return
	}
	const descLen = 20
	for off+descLen <= len(data) {
		originalFirstThunk := binary.LittleEndian.Uint32(data[off : off+4])
		nameRVA := binary.LittleEndian.Uint32(data[off+12 : off+16])
		firstThunk := binary.LittleEndian.Uint32(data[off+16 : off+20])
		off += descLen
		if originalFirstThunk == 0 && nameRVA == 0 && firstThunk == 0 {
			break
		}
		dllName := readCString(nameRVA)
		lookupRVA := originalFirstThunk
		if lookupRVA == 0 {
			lookupRVA = firstThunk
		}
		v.walkThunks(data, lookupRVA, firstThunk, dllName, rvaToOffset, readCString, imageBase, bits32)
	}
}

func (v *PeImageView) walkThunks(data []byte, lookupRVA, iatRVA uint32, dllName string, rvaToOffset func(uint32) (int, bool), readCString func(uint32) string, imageBase uint64, bits32 bool) {
	entrySize := uint32(4)
	ordFlag := ordinalFlag32
	if !bits32 {
		entrySize = 8
		ordFlag = ordinalFlag64
	}
	for i := uint32(0); ; i++ {
		lookupOff, ok := rvaToOffset(lookupRVA + i*entrySize)
		if !ok || lookupOff+int(entrySize) > len(data) {
			return
		}
		var entry uint64
		if bits32 {
			entry = uint64(binary.LittleEndian.Uint32(data[lookupOff : lookupOff+4]))
		} else {
			entry = binary.LittleEndian.Uint64(data[lookupOff : lookupOff+8])
		}
		if entry == 0 {
			return
		}
		var name string
		if entry&ordFlag != 0 {
			ordinal := entry & 0xffff
			name = dllName + "!Ordinal" + strconv.Itoa(int(ordinal))
		} else {
			hintNameRVA := uint32(entry)
			if _, ok := rvaToOffset(hintNameRVA + 2); !ok {
				continue
			}
			name = dllName + "!" + readCString(hintNameRVA+2)
		}
		slotAddr := imageBase + uint64(iatRVA) + uint64(i)*uint64(entrySize)
		v.addPLT(bin.Addr(slotAddr), name)
	}
}

// parseExports walks the export directory (data dir 0): AddressOfNames[i]
// pairs with AddressOfNameOrdinals[i] to index AddressOfFunctions, yielding
// name -> virtual address symbols.
func (v *PeImageView) parseExports(data []byte, dir pe.DataDirectory, rvaToOffset func(uint32) (int, bool), readCString func(uint32) string, imageBase uint64) {
	off, ok := rvaToOffset(dir.VirtualAddress)
	if !ok || off+40 > len(data) {
		return
	}
	numberOfNames := binary.LittleEndian.Uint32(data[off+24 : off+28])
	addrOfFunctionsRVA := binary.LittleEndian.Uint32(data[off+28 : off+32])
	addrOfNamesRVA := binary.LittleEndian.Uint32(data[off+32 : off+36])
	addrOfNameOrdinalsRVA := binary.LittleEndian.Uint32(data[off+36 : off+40])

	funcsOff, ok := rvaToOffset(addrOfFunctionsRVA)
	if !ok {
		return
	}
	namesOff, ok := rvaToOffset(addrOfNamesRVA)
	if !ok {
		return
	}
	ordsOff, ok := rvaToOffset(addrOfNameOrdinalsRVA)
	if !ok {
		return
	}

	for i := uint32(0); i < numberOfNames; i++ {
		nOff := namesOff + int(i)*4
		oOff := ordsOff + int(i)*2
		if nOff+4 > len(data) || oOff+2 > len(data) {
			break
		}
		nameRVA := binary.LittleEndian.Uint32(data[nOff : nOff+4])
		ordinal := binary.LittleEndian.Uint16(data[oOff : oOff+2])
		fOff := funcsOff + int(ordinal)*4
		if fOff+4 > len(data) {
			continue
		}
		funcRVA := binary.LittleEndian.Uint32(data[fOff : fOff+4])
		name := readCString(nameRVA)
		if name == "" {
			continue
		}
		v.CreateSymbol(bin.Addr(imageBase+uint64(funcRVA)), name)
	}
}

func peSectionPerm(characteristics uint32) Perm {
	const (
		memRead    = 0x40000000
		memWrite   = 0x80000000
		memExecute = 0x20000000
	)
	var p Perm
	if characteristics&memRead != 0 {
		p |= PermRead
	}
	if characteristics&memWrite != 0 {
		p |= PermWrite
	}
	if characteristics&memExecute != 0 {
		p |= PermExec
	}
	return p
}

func peArch(machine uint16) Arch {
	switch machine {
	case 0x14c: // IMAGE_FILE_MACHINE_I386
		return ArchX86
	case 0x8664: // IMAGE_FILE_MACHINE_AMD64
		return ArchX86_64
	case 0x1c0, 0x1c2, 0x1c4: // ARM, Thumb, ARMNT
		return ArchARM
	case 0x1f0, 0x1f1: // POWERPC, POWERPCFP
		return ArchPPC
	default:
		return ArchUnknown
	}
}
