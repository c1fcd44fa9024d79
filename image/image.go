// Package image builds a sparse virtual-address view over a store.ByteStore:
// segments, symbol tables and a PLT/IAT map, translated from the
// container-specific file layout (ELF, PE, Mach-O) or exposed directly for
// headerless/raw input. Every format shares the same read/write/notify
// shape, generalised here instead of re-implemented per container the way
// the original ElfFile/PEFile/MachOFile classes each hand-rolled it.
package image

import (
	"regexp"

	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/store"
	"github.com/pkg/errors"
)

// Perm is a segment's access permission bitmask.
type Perm uint8

// Permission bits, ORed together.
const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

// Arch names the architecture an ImageView was parsed for.
type Arch string

// Architectures the analysis engine can decode; ArchUnknown covers
// recognised-but-unsupported machine types (§3.2 "other-but-unsupported").
const (
	ArchX86     Arch = "x86"
	ArchX86_64  Arch = "x86_64"
	ArchARM     Arch = "arm"
	ArchPPC     Arch = "ppc"
	ArchUnknown Arch = ""
)

// Segment is one contiguous virtual-address range backed, in whole or in
// part, by the underlying file.
type Segment struct {
	VAddr      bin.Addr
	VSize      uint64
	FileOffset int64
	FileSize   uint64
	Perms      Perm
}

// covers reports whether addr falls within the segment's virtual range.
func (s Segment) covers(addr bin.Addr) bool {
	return uint64(addr) >= uint64(s.VAddr) && uint64(addr) < uint64(s.VAddr)+s.VSize
}

// DataCallback is notified with the already-translated virtual address and
// new contents whenever a write lands in a file-backed segment.
type DataCallback func(addr bin.Addr, data []byte)

// ImageView presents a sparse virtual-address space over a ByteStore. All
// four concrete forms (Raw, Elf, Pe, MachO) share this contract; callers
// that only need an address space (the analysis engine, the decoders) never
// need to know which one they were handed.
type ImageView interface {
	// Valid reports whether the underlying bytes were recognised and
	// parsed successfully.
	Valid() bool
	// Arch reports the architecture recorded in the container header.
	Arch() Arch
	// Segments returns the parsed segment table in file order.
	Segments() []Segment
	// Start returns the lowest segment's virtual address.
	Start() bin.Addr
	// End returns Start() plus the span to the highest segment's end.
	End() bin.Addr
	// Entry returns the program entry point, if the container records one.
	Entry() (addr bin.Addr, ok bool)

	Read(addr bin.Addr, length int) []byte
	Write(addr bin.Addr, data []byte) int
	Insert(addr bin.Addr, data []byte) int
	Remove(addr bin.Addr, length int) int
	GetModification(addr bin.Addr, length int) []store.Tag

	SymbolByName(name string) (bin.Addr, bool)
	// SymbolName resolves addr to the image symbol table's name for it.
	SymbolName(addr bin.Addr) (name string, ok bool)
	// InImage reports whether addr lies within [Start, End).
	InImage(addr bin.Addr) bool
	CreateSymbol(addr bin.Addr, name string)
	DeleteSymbol(addr bin.Addr, name string)

	// PLT maps an imported trampoline's slot address to the imported
	// symbol's bare name (without the @PLT/@IAT decoration).
	PLT() map[bin.Addr]string

	// Find returns the first match of pattern at or after start. ok is
	// false when no file-backed segment contains a match.
	Find(pattern string, start bin.Addr) (addr bin.Addr, ok bool, err error)
	IsModified() bool
	Save(path string) error

	// AddCallback registers cb to be notified of writes that land inside a
	// file-backed segment, translated to virtual-address space.
	AddCallback(cb DataCallback)
}

// base implements the address-space translation and symbol-table
// bookkeeping shared by every concrete ImageView. Format-specific
// constructors populate it and embed it; Valid/Arch are the only
// methods they still need to provide themselves.
type base struct {
	bs        *store.ByteStore
	valid     bool
	arch      Arch
	segs      []Segment
	entry     bin.Addr
	hasEntry  bool
	symByName map[string]bin.Addr
	symByAddr map[bin.Addr]string
	plt       map[bin.Addr]string
	pltSuffix string // "@PLT" or "@IAT"
	callbacks []DataCallback
}

func newBase(bs *store.ByteStore, pltSuffix string) base {
	b := base{
		bs:        bs,
		symByName: make(map[string]bin.Addr),
		symByAddr: make(map[bin.Addr]string),
		plt:       make(map[bin.Addr]string),
		pltSuffix: pltSuffix,
	}
	bs.AddCallback(b.onStoreEdit)
	return b
}

// onStoreEdit is registered with the underlying ByteStore and re-emits
// "write" edits in virtual-address space, mirroring notify_data_write.
func (b *base) onStoreEdit(kind string, offset int64, arg interface{}) {
	if kind != "write" {
		return
	}
	contents, ok := arg.([]byte)
	if !ok || len(b.callbacks) == 0 {
		return
	}
	for _, s := range b.segs {
		if s.FileSize == 0 {
			continue
		}
		segEnd := s.FileOffset + int64(s.FileSize)
		writeEnd := offset + int64(len(contents))
		if writeEnd <= s.FileOffset || offset >= segEnd {
			continue
		}
		fromStart := offset - s.FileOffset
		dataOfs := int64(0)
		length := int64(len(contents))
		if fromStart < 0 {
			length += fromStart
			dataOfs -= fromStart
			fromStart = 0
		}
		if fromStart+length > int64(s.FileSize) {
			length = int64(s.FileSize) - fromStart
		}
		if length <= 0 {
			continue
		}
		addr := bin.Addr(uint64(s.VAddr) + uint64(fromStart))
		slice := contents[dataOfs : dataOfs+length]
		for _, cb := range b.callbacks {
			cb(addr, slice)
		}
	}
}

func (b *base) AddCallback(cb DataCallback) {
	if len(b.callbacks) == 0 {
		b.bs.AddCallback(b.onStoreEdit)
	}
	b.callbacks = append(b.callbacks, cb)
}

func (b *base) Segments() []Segment { return b.segs }

// findSegment returns the last segment covering addr with nonzero virtual
// size, matching the original's "last match wins" linear scan.
func (b *base) findSegment(addr bin.Addr) (Segment, bool) {
	var found Segment
	ok := false
	for _, s := range b.segs {
		if s.VSize != 0 && s.covers(addr) {
			found, ok = s, true
		}
	}
	return found, ok
}

func (b *base) Start() bin.Addr {
	var min bin.Addr
	have := false
	for _, s := range b.segs {
		if s.VSize == 0 {
			continue
		}
		if !have || s.VAddr < min {
			min, have = s.VAddr, true
		}
	}
	return min
}

func (b *base) End() bin.Addr {
	var max uint64
	have := false
	for _, s := range b.segs {
		if s.VSize == 0 {
			continue
		}
		end := uint64(s.VAddr) + s.VSize
		if !have || end > max {
			max, have = end, true
		}
	}
	return bin.Addr(max)
}

func (b *base) Entry() (bin.Addr, bool) { return b.entry, b.hasEntry }

func (b *base) InImage(addr bin.Addr) bool {
	return uint64(addr) >= uint64(b.Start()) && uint64(addr) < uint64(b.End())
}

// Read walks the segment table, splicing zero bytes for the BSS tail of any
// segment whose file_size is smaller than its virtual size.
func (b *base) Read(addr bin.Addr, length int) []byte {
	var out []byte
	for length > 0 {
		seg, ok := b.findSegment(addr)
		if !ok {
			break
		}
		progOfs := int64(uint64(addr) - uint64(seg.VAddr))
		memLen := int64(seg.VSize) - progOfs
		fileLen := int64(seg.FileSize) - progOfs
		if memLen > int64(length) {
			memLen = int64(length)
		}
		if fileLen > int64(length) {
			fileLen = int64(length)
		}
		if fileLen <= 0 {
			out = append(out, make([]byte, memLen)...)
			length -= int(memLen)
			addr = bin.Addr(uint64(addr) + uint64(memLen))
			continue
		}
		out = append(out, b.bs.Read(seg.FileOffset+progOfs, int(fileLen))...)
		length -= int(fileLen)
		addr = bin.Addr(uint64(addr) + uint64(fileLen))
	}
	return out
}

func (b *base) GetModification(addr bin.Addr, length int) []store.Tag {
	var out []store.Tag
	for length > 0 {
		seg, ok := b.findSegment(addr)
		if !ok {
			break
		}
		progOfs := int64(uint64(addr) - uint64(seg.VAddr))
		memLen := int64(seg.VSize) - progOfs
		fileLen := int64(seg.FileSize) - progOfs
		if memLen > int64(length) {
			memLen = int64(length)
		}
		if fileLen > int64(length) {
			fileLen = int64(length)
		}
		if fileLen <= 0 {
			tags := make([]store.Tag, memLen)
			out = append(out, tags...)
			length -= int(memLen)
			addr = bin.Addr(uint64(addr) + uint64(memLen))
			continue
		}
		out = append(out, b.bs.GetModification(seg.FileOffset+progOfs, int(fileLen))...)
		length -= int(fileLen)
		addr = bin.Addr(uint64(addr) + uint64(fileLen))
	}
	return out
}

// Write only affects the file-backed portion of a segment; the BSS tail and
// any address outside a segment are rejected by stopping short.
func (b *base) Write(addr bin.Addr, data []byte) int {
	written := 0
	for len(data) > 0 {
		seg, ok := b.findSegment(addr)
		if !ok {
			break
		}
		progOfs := int64(uint64(addr) - uint64(seg.VAddr))
		fileLen := int64(seg.FileSize) - progOfs
		if fileLen > int64(len(data)) {
			fileLen = int64(len(data))
		}
		if fileLen <= 0 {
			break
		}
		n := b.bs.Write(seg.FileOffset+progOfs, data[:fileLen])
		written += n
		data = data[fileLen:]
		addr = bin.Addr(uint64(addr) + uint64(fileLen))
	}
	return written
}

// Insert always rejects: ImageView segments have a fixed virtual layout.
func (b *base) Insert(bin.Addr, []byte) int { return 0 }

// Remove always rejects, for the same reason as Insert.
func (b *base) Remove(bin.Addr, int) int { return 0 }

func (b *base) SymbolByName(name string) (bin.Addr, bool) {
	addr, ok := b.symByName[name]
	return addr, ok
}

func (b *base) SymbolName(addr bin.Addr) (string, bool) {
	name, ok := b.symByAddr[addr]
	return name, ok
}

func (b *base) CreateSymbol(addr bin.Addr, name string) {
	b.symByName[name] = addr
	b.symByAddr[addr] = name
}

func (b *base) DeleteSymbol(addr bin.Addr, name string) {
	delete(b.symByName, name)
	delete(b.symByAddr, addr)
}

// addPLT records the plain name in the PLT map and, with the format's
// trampoline suffix (@PLT or @IAT) appended, in the symbol table.
func (b *base) addPLT(addr bin.Addr, name string) {
	b.plt[addr] = name
	decorated := name + b.pltSuffix
	b.symByName[decorated] = addr
	b.symByAddr[addr] = decorated
}

func (b *base) PLT() map[bin.Addr]string { return b.plt }

func (b *base) IsModified() bool { return b.bs.IsModified() }

func (b *base) Save(path string) error {
	return errors.WithStack(b.bs.Save(path))
}

// Find scans file-backed segments in virtual-address order for the first
// match of pattern at or after start, jumping over gaps the way the
// original's next_valid_addr does.
func (b *base) Find(pattern string, start bin.Addr) (bin.Addr, bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, false, errors.WithStack(err)
	}
	addr := start
	end := b.End()
	for uint64(addr) < uint64(end) {
		data := b.Read(addr, int(uint64(end)-uint64(addr)))
		if loc := re.FindIndex(data); loc != nil {
			return bin.Addr(uint64(addr) + uint64(loc[0])), true, nil
		}
		next, ok := b.nextValidAddr(addr)
		if !ok {
			break
		}
		addr = next
	}
	return 0, false, nil
}

func (b *base) nextValidAddr(ofs bin.Addr) (bin.Addr, bool) {
	var result bin.Addr
	have := false
	for _, s := range b.segs {
		if s.VSize == 0 || uint64(s.VAddr) < uint64(ofs) {
			continue
		}
		if !have || s.VAddr < result {
			result, have = s.VAddr, true
		}
	}
	return result, have
}
