package analysis

import (
	"testing"

	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/arch/x86"
	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/image"
	"github.com/mewmew/recon/store"
)

func x86Decoder(mode x86.Mode) arch.Decoder {
	return func(src []byte, addr bin.Addr) arch.Inst { return x86.Decode(mode, src, addr) }
}

// TestConditionalBranchSplitsIntoTwoBlocks is the specification's worked
// scenario 2: jne +2; nop; nop; ret at 0x1000 must produce two blocks, one
// ending in the conditional branch and one holding its fallthrough.
func TestConditionalBranchSplitsIntoTwoBlocks(t *testing.T) {
	bs := store.New([]byte{0x75, 0x02, 0x90, 0x90, 0xc3})
	view := image.NewRawImageView(bs, 0x1000, image.ArchX86)
	a := New(view, x86Decoder(x86.Mode32))

	f := &Function{Entry: 0x1000}
	a.functions[f.Entry] = f
	f.findBasicBlocks(a)

	if len(f.Blocks) != 2 {
		t.Fatalf("len(Blocks) = %d, want 2", len(f.Blocks))
	}
	head, ok := f.Blocks[0x1000]
	if !ok {
		t.Fatalf("no block at 0x1000")
	}
	if !head.HasTruePath || head.TruePath != 0x1004 {
		t.Errorf("TruePath = (%v, %v), want (0x1004, true)", head.TruePath, head.HasTruePath)
	}
	if !head.HasFalsePath || head.FalsePath != 0x1002 {
		t.Errorf("FalsePath = (%v, %v), want (0x1002, true)", head.FalsePath, head.HasFalsePath)
	}
	tail, ok := f.Blocks[0x1002]
	if !ok {
		t.Fatalf("no block at 0x1002")
	}
	if len(tail.Insts) != 3 {
		t.Errorf("len(tail.Insts) = %d, want 3 (nop, nop, ret)", len(tail.Insts))
	}
	if len(tail.Prev) != 1 || tail.Prev[0] != 0x1000 {
		t.Errorf("tail.Prev = %v, want [0x1000]", tail.Prev)
	}
}

// TestNoTwoBlocksShareAnInstructionAddress checks the universal invariant
// from §8: every discovered instruction address belongs to exactly one
// block.
func TestNoTwoBlocksShareAnInstructionAddress(t *testing.T) {
	bs := store.New([]byte{0x75, 0x02, 0x90, 0x90, 0xc3})
	view := image.NewRawImageView(bs, 0x1000, image.ArchX86)
	a := New(view, x86Decoder(x86.Mode32))

	f := &Function{Entry: 0x1000}
	a.functions[f.Entry] = f
	f.findBasicBlocks(a)

	seen := make(map[bin.Addr]bin.Addr)
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			if owner, ok := seen[inst.Addr()]; ok {
				t.Fatalf("instruction at %v claimed by both block %v and block %v", inst.Addr(), owner, block.Entry)
			}
			seen[inst.Addr()] = block.Entry
		}
	}
}

// TestEveryExitAndPrevIsConsistent checks the ownership invariant from §8:
// every exit is a key in Blocks, and every prev entry's block really does
// exit to the block recording it.
func TestEveryExitAndPrevIsConsistent(t *testing.T) {
	bs := store.New([]byte{0x75, 0x02, 0x90, 0x90, 0xc3})
	view := image.NewRawImageView(bs, 0x1000, image.ArchX86)
	a := New(view, x86Decoder(x86.Mode32))

	f := &Function{Entry: 0x1000}
	a.functions[f.Entry] = f
	f.findBasicBlocks(a)

	for _, block := range f.Blocks {
		for _, exit := range block.Exits {
			if _, ok := f.Blocks[exit]; !ok {
				t.Errorf("block %v exits to %v, which is not a known block", block.Entry, exit)
			}
		}
		for _, prev := range block.Prev {
			owner, ok := f.Blocks[prev]
			if !ok {
				t.Fatalf("block %v has prev %v, which is not a known block", block.Entry, prev)
			}
			found := false
			for _, exit := range owner.Exits {
				if exit == block.Entry {
					found = true
				}
			}
			if !found {
				t.Errorf("block %v lists %v as prev but %v does not exit to it", block.Entry, prev, prev)
			}
		}
	}
}

// TestDataWriteReQueuesOverlappingFunctionExactlyOnce is the specification's
// worked scenario 6: writing a byte that overlaps a block at entry+7 must
// re-enqueue the owning function exactly once, and a further overlapping
// write before the queue drains must not duplicate the entry.
func TestDataWriteReQueuesOverlappingFunctionExactlyOnce(t *testing.T) {
	// jmp +5 (eb 05); 5 bytes of padding; ret, so the function has two
	// blocks: one at 0x1000 (the jmp) and one at 0x1007 (the ret).
	bs := store.New([]byte{0xeb, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0xc3})
	view := image.NewRawImageView(bs, 0x1000, image.ArchX86)
	a := New(view, x86Decoder(x86.Mode32))

	f := &Function{Entry: 0x1000}
	a.functions[f.Entry] = f
	f.findBasicBlocks(a)
	if _, ok := f.Blocks[0x1007]; !ok {
		t.Fatalf("expected a block at 0x1007")
	}

	view.Write(0x1007, []byte{0x90}) // nop over the ret
	if len(a.queue) != 1 || a.queue[0] != 0x1000 {
		t.Fatalf("queue = %v, want [0x1000]", a.queue)
	}

	view.Write(0x1007, []byte{0xc3}) // another overlapping write before the queue drains
	if len(a.queue) != 1 {
		t.Fatalf("queue = %v, want still a single 0x1000 entry", a.queue)
	}
}

// TestPLTTrampolineIsRenamedAndMarked is the specification's worked
// scenario 5: a single-instruction function whose only instruction is a
// real indirect PLT thunk (jmp qword [rip+disp], the encoding an ELF/PE
// import stub actually uses) is renamed to the imported symbol and marked
// IsPLT.
//
// This runs through the real findBasicBlocks rather than a hand-built
// block: populate() only ever follows an instruction's resolved Target,
// never MemTarget, so a memory-indirect jmp correctly produces no
// successor edge and findBasicBlocks naturally discovers the single block
// checkPLTTrampoline requires — no bypass needed once the trampoline's
// destination resolves through the instruction's memory operand instead of
// an immediate.
func TestPLTTrampolineIsRenamedAndMarked(t *testing.T) {
	// jmp qword [rip+2] at 0x401030 (ff 25 02 00 00 00, 6 bytes) dereferences
	// 0x401030 + 6 + 2 = 0x401038, the GOT/IAT slot address a relocation walk
	// (§4.2) would have registered in the PLT table.
	code := []byte{0xff, 0x25, 0x02, 0x00, 0x00, 0x00}
	bs := store.New(code)
	view := image.NewRawImageView(bs, 0x401030, image.ArchX86)
	a := New(view, x86Decoder(x86.Mode64))

	target := bin.Addr(0x401038)
	view.PLT()[target] = "printf"

	f := &Function{Entry: 0x401030}
	a.functions[f.Entry] = f

	f.findBasicBlocks(a)

	if len(f.Blocks) != 1 {
		t.Fatalf("len(Blocks) = %d, want 1", len(f.Blocks))
	}
	if !f.IsPLT {
		t.Errorf("IsPLT = false, want true")
	}
	if f.Name != "printf" {
		t.Errorf("Name = %q, want \"printf\"", f.Name)
	}
}
