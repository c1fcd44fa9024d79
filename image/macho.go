package image

import (
	"encoding/binary"

	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/store"
)

// MachOImageView parses a Mach-O container. Nothing in the standard library
// models LC_UNIXTHREAD's per-architecture register layout or LC_DYLD_INFO's
// bind opcode stream, so both are walked here straight off the load-command
// bytes; only segment/section recognition leans on well-documented layout.
type MachOImageView struct {
	base
}

const (
	machoMagic32LE = 0xfeedface
	machoMagic64LE = 0xfeedfacf
	machoMagic32BE = 0xcefaedfe
	machoMagic64BE = 0xcffaedfe
)

// NewMachOImageView parses bs as a Mach-O image. An unrecognised magic or a
// command stream that runs off the end of the file leaves Valid() false.
func NewMachOImageView(bs *store.ByteStore) *MachOImageView {
	v := &MachOImageView{base: newBase(bs, "@PLT")}

	data := bs.Read(0, int(bs.Len()))
	if len(data) < 28 {
		return v
	}

	var order binary.ByteOrder
	bits64 := false
	switch {
	case binary.LittleEndian.Uint32(data) == machoMagic32LE:
		order = binary.LittleEndian
	case binary.LittleEndian.Uint32(data) == machoMagic64LE:
		order = binary.LittleEndian
		bits64 = true
	case binary.BigEndian.Uint32(data) == machoMagic32BE:
		order = binary.BigEndian
	case binary.BigEndian.Uint32(data) == machoMagic64BE:
		order = binary.BigEndian
		bits64 = true
	default:
		return v
	}

	cputype := order.Uint32(data[4:8])
	ncmds := order.Uint32(data[16:20])

	headerSize := 28
	if bits64 {
		headerSize = 32
	}
	v.arch = machoArch(cputype)

	var bindOff, bindSize, lazyBindOff, lazyBindSize uint32
	haveDyldInfo := false
	sectionCount := 0

	pos := headerSize
	for i := uint32(0); i < ncmds; i++ {
		if pos+8 > len(data) {
			return v
		}
		cmd := order.Uint32(data[pos : pos+4])
		cmdsize := order.Uint32(data[pos+4 : pos+8])
		if cmdsize < 8 || pos+int(cmdsize) > len(data) {
			return v
		}
		body := pos + 8

		switch {
		case cmd == 1: // SEGMENT
			seg, nsects, ok := parseSegment32(data, body, order)
			if ok {
				sectionCount += nsects
				if seg.Perms != 0 {
					v.segs = append(v.segs, seg)
				}
			}
		case cmd == 25: // SEGMENT_64
			seg, nsects, ok := parseSegment64(data, body, order)
			if ok {
				sectionCount += nsects
				if seg.Perms != 0 {
					v.segs = append(v.segs, seg)
				}
			}
		case cmd == 5: // UNIX_THREAD
			if entry, ok := machoEntryPC(data[body:pos+int(cmdsize)], cputype, order); ok {
				v.entry = bin.Addr(entry)
				v.hasEntry = true
			}
		case cmd == 2: // SYMTAB
			if body+16 <= len(data) {
				symoff := order.Uint32(data[body : body+4])
				nsyms := order.Uint32(data[body+4 : body+8])
				stroff := order.Uint32(data[body+8 : body+12])
				v.parseSymtab(data, symoff, nsyms, stroff, bits64, order, sectionCount)
			}
		case (cmd & 0x7fffffff) == 0x22: // DYLD_INFO(_ONLY)
			if body+40 <= len(data) {
				bindOff = order.Uint32(data[body+8 : body+12])
				bindSize = order.Uint32(data[body+12 : body+16])
				lazyBindOff = order.Uint32(data[body+24 : body+28])
				lazyBindSize = order.Uint32(data[body+28 : body+32])
				haveDyldInfo = true
			}
		}

		pos += int(cmdsize)
	}

	if haveDyldInfo {
		ptrSize := 4
		if bits64 {
			ptrSize = 8
		}
		v.parseDyldInfo(data, [][2]uint32{{bindOff, bindSize}, {lazyBindOff, lazyBindSize}}, ptrSize)
	}

	v.valid = true
	return v
}

func (v *MachOImageView) Valid() bool { return v.valid }
func (v *MachOImageView) Arch() Arch  { return v.arch }

// machoSegProt mirrors VM_PROT_READ/WRITE/EXECUTE.
func machoSegProt(initprot uint32) Perm {
	var p Perm
	if initprot&0x1 != 0 {
		p |= PermRead
	}
	if initprot&0x2 != 0 {
		p |= PermWrite
	}
	if initprot&0x4 != 0 {
		p |= PermExec
	}
	return p
}

// parseSegment32 reads a 32-bit segment_command: segname[16], vmaddr,
// vmsize, fileoff, filesize, maxprot, initprot, nsects, flags (all uint32).
// Segments with initprot == 0 (the __PAGE_ZERO convention) are reported with
// Perms == 0 so the caller drops them, matching the original's filter.
func parseSegment32(data []byte, off int, order binary.ByteOrder) (Segment, int, bool) {
	if off+48 > len(data) {
		return Segment{}, 0, false
	}
	vmaddr := order.Uint32(data[off+16 : off+20])
	vmsize := order.Uint32(data[off+20 : off+24])
	fileoff := order.Uint32(data[off+24 : off+28])
	filesize := order.Uint32(data[off+28 : off+32])
	initprot := order.Uint32(data[off+36 : off+40])
	nsects := int(order.Uint32(data[off+40 : off+44]))
	return Segment{
		VAddr:      bin.Addr(vmaddr),
		VSize:      uint64(vmsize),
		FileOffset: int64(fileoff),
		FileSize:   uint64(filesize),
		Perms:      machoSegProt(initprot),
	}, nsects, true
}

// parseSegment64 is parseSegment32's LP64 counterpart: the address/size
// fields widen to uint64 but the field order is unchanged.
func parseSegment64(data []byte, off int, order binary.ByteOrder) (Segment, int, bool) {
	if off+64 > len(data) {
		return Segment{}, 0, false
	}
	vmaddr := order.Uint64(data[off+16 : off+24])
	vmsize := order.Uint64(data[off+24 : off+32])
	fileoff := order.Uint64(data[off+32 : off+40])
	filesize := order.Uint64(data[off+40 : off+48])
	initprot := order.Uint32(data[off+52 : off+56])
	nsects := int(order.Uint32(data[off+56 : off+60]))
	return Segment{
		VAddr:      bin.Addr(vmaddr),
		VSize:      vmsize,
		FileOffset: int64(fileoff),
		FileSize:   filesize,
		Perms:      machoSegProt(initprot),
	}, nsects, true
}

// machoEntryPC extracts the entry program counter from an LC_UNIXTHREAD
// payload, whose register layout is architecture-specific: flavor and count
// (4 bytes each) followed by a dump of the full register file.
func machoEntryPC(body []byte, cputype uint32, order binary.ByteOrder) (uint64, bool) {
	const head = 8 // flavor + count
	switch cputype {
	case 7: // x86: ... eip is the 11th of 16 uint32 registers.
		off := head + 10*4
		if off+4 > len(body) {
			return 0, false
		}
		return uint64(order.Uint32(body[off : off+4])), true
	case 0x01000007: // x86_64: rip is the 17th of 21 uint64 registers.
		off := head + 16*8
		if off+8 > len(body) {
			return 0, false
		}
		return order.Uint64(body[off : off+8]), true
	case 18: // PPC32: srr0 is the first of the register dump, uint32.
		if head+4 > len(body) {
			return 0, false
		}
		return uint64(order.Uint32(body[head : head+4])), true
	case 0x01000012: // PPC64: srr0 is the first register, uint64.
		if head+8 > len(body) {
			return 0, false
		}
		return order.Uint64(body[head : head+8]), true
	case 12: // ARM: pc is the 16th of 17 uint32 registers (r0-r12, sp, lr, pc, cpsr).
		off := head + 15*4
		if off+4 > len(body) {
			return 0, false
		}
		return uint64(order.Uint32(body[off : off+4])), true
	default:
		return 0, false
	}
}

// parseSymtab reads the nlist table, filtering to entries whose type has the
// N_SECT bits set (type & 0xe == 0xe) and whose section index falls within
// the sections actually present, mirroring the original's defensive bound
// check against a possibly-corrupt symbol table.
func (v *MachOImageView) parseSymtab(data []byte, symoff, nsyms, stroff uint32, bits64 bool, order binary.ByteOrder, sectionCount int) {
	entsize := 12
	if bits64 {
		entsize = 16
	}
	for i := uint32(0); i < nsyms; i++ {
		off := int(symoff) + int(i)*entsize
		if off+entsize > len(data) {
			return
		}
		strx := order.Uint32(data[off : off+4])
		typ := data[off+4]
		sect := data[off+5]
		var value uint64
		if bits64 {
			value = order.Uint64(data[off+8 : off+16])
		} else {
			value = uint64(order.Uint32(data[off+8 : off+12]))
		}
		if typ&0xe != 0xe || int(sect) > sectionCount {
			continue
		}
		name := readMachoCString(data, int(stroff)+int(strx))
		if name == "" {
			continue
		}
		v.CreateSymbol(bin.Addr(value), name)
	}
}

func readMachoCString(data []byte, off int) string {
	if off < 0 || off >= len(data) {
		return ""
	}
	end := off
	for end < len(data) && data[end] != 0 {
		end++
	}
	return string(data[off:end])
}

func readLEB128(data []byte, i int) (uint64, int) {
	var value uint64
	var shift uint
	for i < len(data) {
		cur := data[i]
		i++
		value |= uint64(cur&0x7f) << shift
		shift += 7
		if cur&0x80 == 0 {
			break
		}
	}
	return value, i
}

// parseDyldInfo interprets the LC_DYLD_INFO bind and lazy-bind byte-code
// streams. State (ordinal, segment, offset, symbol type, name) persists
// across both tables, matching the reference interpreter's single running
// state; only opcodes >= 0x9 (BIND_OPCODE_DO_BIND and its variants) ever
// record a PLT entry, and only when the preceding SET_TYPE opcode marked the
// symbol a pointer (sym_type == 1).
func (v *MachOImageView) parseDyldInfo(data []byte, tables [][2]uint32, ptrSize int) {
	var segment int
	var offset uint64
	var symType int
	var name string

	for _, t := range tables {
		tblOff, tblSize := int(t[0]), int(t[1])
		if tblSize == 0 || tblOff < 0 || tblOff+tblSize > len(data) {
			continue
		}
		opcodes := data[tblOff : tblOff+tblSize]
		i := 0
		for i < len(opcodes) {
			opcode := opcodes[i]
			i++
			switch {
			case opcode>>4 == 0:
				// DONE / no-op.
			case opcode>>4 == 1:
				// ordinal = low nibble; unused beyond symbol-type tracking.
			case opcode>>4 == 2:
				_, i = readLEB128(opcodes, i)
			case opcode>>4 == 3:
				// ordinal = -(low nibble); unused beyond symbol-type tracking.
			case opcode>>4 == 4:
				start := i
				for i < len(opcodes) && opcodes[i] != 0 {
					i++
				}
				name = string(opcodes[start:i])
				if i < len(opcodes) {
					i++
				}
			case opcode>>4 == 5:
				symType = int(opcode & 0xf)
			case opcode>>4 == 6:
				_, i = readLEB128(opcodes, i)
			case opcode>>4 == 7:
				segment = int(opcode & 0xf)
				offset, i = readLEB128(opcodes, i)
			case opcode>>4 == 8:
				var rel uint64
				rel, i = readLEB128(opcodes, i)
				offset += rel
			case opcode>>4 >= 9:
				if symType == 1 && segment >= 1 && segment <= len(v.segs) {
					addr := uint64(v.segs[segment-1].VAddr) + offset
					v.addPLT(bin.Addr(addr), name)
				}
				offset += uint64(ptrSize)
				switch opcode >> 4 {
				case 10:
					var rel uint64
					rel, i = readLEB128(opcodes, i)
					offset += rel
				case 11:
					offset += uint64(opcode&0xf) * 4
				case 12:
					_, i = readLEB128(opcodes, i)
					_, i = readLEB128(opcodes, i)
				}
			}
		}
	}
}

func machoArch(cputype uint32) Arch {
	switch cputype {
	case 7:
		return ArchX86
	case 0x01000007:
		return ArchX86_64
	case 12:
		return ArchARM
	case 18, 0x01000012:
		return ArchPPC
	default:
		return ArchUnknown
	}
}
