package image

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/store"
)

func TestRawImageViewReadsAcrossSegment(t *testing.T) {
	bs := store.New([]byte{0x01, 0x02, 0x03, 0x04})
	v := NewRawImageView(bs, 0x1000, ArchX86)
	if !v.Valid() {
		t.Fatalf("Valid() = false, want true")
	}
	if v.Start() != 0x1000 || v.End() != 0x1004 {
		t.Errorf("Start/End = %v/%v, want 0x1000/0x1004", v.Start(), v.End())
	}
	got := v.Read(0x1001, 2)
	if !bytes.Equal(got, []byte{0x02, 0x03}) {
		t.Errorf("Read = % x, want 02 03", got)
	}
}

func TestRawImageViewWriteNotifiesInVirtualAddress(t *testing.T) {
	bs := store.New([]byte{0, 0, 0, 0})
	v := NewRawImageView(bs, 0x400000, ArchX86)

	var notified bin.Addr
	var data []byte
	v.AddCallback(func(addr bin.Addr, d []byte) {
		notified = addr
		data = append([]byte(nil), d...)
	})

	n := v.Write(0x400002, []byte{0xaa})
	if n != 1 {
		t.Fatalf("Write() = %d, want 1", n)
	}
	if notified != 0x400002 || !bytes.Equal(data, []byte{0xaa}) {
		t.Errorf("callback got (%v, % x), want (0x400002, aa)", notified, data)
	}
}

func TestElfImageViewInvalidMagicStaysUnparsed(t *testing.T) {
	bs := store.New([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	v := NewElfImageView(bs)
	if v.Valid() {
		t.Errorf("Valid() = true for non-ELF input, want false")
	}
}

func TestPeImageViewInvalidStaysUnparsed(t *testing.T) {
	bs := store.New([]byte("not a PE file"))
	v := NewPeImageView(bs)
	if v.Valid() {
		t.Errorf("Valid() = true for non-PE input, want false")
	}
}

func TestMachOImageViewRecognisesMagicAndEntry(t *testing.T) {
	var buf bytes.Buffer
	order := binary.LittleEndian
	put32 := func(v uint32) { binary.Write(&buf, order, v) }

	put32(machoMagic32LE)
	put32(7)  // cputype: x86
	put32(0)  // cpusubtype
	put32(2)  // filetype: MH_EXECUTE
	put32(1)  // ncmds
	put32(0)  // sizeofcmds (unused by the parser)
	put32(0)  // flags

	// One LC_UNIXTHREAD command carrying an x86 register dump.
	put32(5)  // cmd
	put32(80) // cmdsize: 8 header + 8 flavor/count + 16*4 regs
	put32(1)  // flavor
	put32(16) // count
	regs := []uint32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x8048000, 0, 0, 0, 0, 0} // eip at index 10
	for _, r := range regs {
		put32(r)
	}

	v := NewMachOImageView(store.New(buf.Bytes()))
	if !v.Valid() {
		t.Fatalf("Valid() = false, want true")
	}
	if v.Arch() != ArchX86 {
		t.Errorf("Arch() = %q, want x86", v.Arch())
	}
	entry, ok := v.Entry()
	if !ok || entry != 0x8048000 {
		t.Errorf("Entry() = (%v, %v), want (0x8048000, true)", entry, ok)
	}
}

func TestMachOImageViewInvalidMagicStaysUnparsed(t *testing.T) {
	v := NewMachOImageView(store.New([]byte("garbage!")))
	if v.Valid() {
		t.Errorf("Valid() = true for non-Mach-O input, want false")
	}
}
