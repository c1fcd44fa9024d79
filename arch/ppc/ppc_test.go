package ppc

import "testing"

func word(b0, b1, b2, b3 byte) []byte { return []byte{b0, b1, b2, b3} }

func TestDecodeAddi(t *testing.T) {
	// addi r3, r0, 100  ->  primary 14, rT=3, rA=0, SI=100
	w := uint32(14)<<26 | 3<<21 | 0<<16 | 100
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x1000)
	if !in.IsValid() {
		t.Fatalf("IsValid() = false")
	}
	// rA|0 == 0 collapses to the li extended mnemonic.
	if in.Operation != "li" {
		t.Fatalf("Operation = %q, want li", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "r3" || in.Operands[1].Imm != 100 {
		t.Errorf("Operands = %+v, want [r3 100]", in.Operands)
	}
}

func TestDecodeUnconditionalBranchRelative(t *testing.T) {
	// b +0x100 (relative, AA=0, LK=0) at addr 0x2000.
	w := uint32(18)<<26 | uint32(0x100&0xfffffc)
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x2000)
	if in.Operation != "b" {
		t.Fatalf("Operation = %q, want b", in.Operation)
	}
	target, ok := in.Target()
	if !ok || target != 0x2100 {
		t.Errorf("Target() = (%v, %v), want (0x2100, true)", target, ok)
	}
	if !in.IsBlockEnding() {
		t.Errorf("IsBlockEnding() = false, want true")
	}
}

func TestDecodeBranchLinkIsCall(t *testing.T) {
	// bl +0x10 at addr 0x1000 (AA=0, LK=1).
	w := uint32(18)<<26 | uint32(0x10&0xfffffc) | 1
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x1000)
	if in.Operation != "bl" {
		t.Fatalf("Operation = %q, want bl", in.Operation)
	}
	if !in.IsCall() {
		t.Errorf("IsCall() = false, want true")
	}
	target, ok := in.Target()
	if !ok || target != 0x1010 {
		t.Errorf("Target() = (%v, %v), want (0x1010, true)", target, ok)
	}
}

func TestDecodeConditionalBranchExtendedMnemonic(t *testing.T) {
	// bc with BO=0x0c (test CR, no ctr decrement/skip) and BI=0 (cr0 lt
	// bit, false-tested -> "ge"), target relative +8, at primary opcode 16.
	bo := uint32(0x0c)
	bi := uint32(0)
	disp := uint32(8) & 0xfffc
	w := uint32(16)<<26 | bo<<21 | bi<<16 | disp
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x4000)
	if in.Operation != "bge" {
		t.Fatalf("Operation = %q, want bge", in.Operation)
	}
	if !in.IsConditionalBranch() {
		t.Errorf("IsConditionalBranch() = false, want true")
	}
	target, ok := in.Target()
	if !ok || target != 0x4008 {
		t.Errorf("Target() = (%v, %v), want (0x4008, true)", target, ok)
	}
}

func TestDecodeMrExtendedMnemonic(t *testing.T) {
	// or r4, r5, r5 -> mr r4, r5  (group31 ext 444, rA=4,rS=5,rB=5)
	w := uint32(31)<<26 | 5<<21 | 4<<16 | 5<<11 | 444<<1
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x1000)
	if in.Operation != "mr" {
		t.Fatalf("Operation = %q, want mr", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "r4" || in.Operands[1].Reg != "r5" {
		t.Errorf("Operands = %+v, want [r4 r5]", in.Operands)
	}
}

func TestDecodeMfsprLR(t *testing.T) {
	// mfspr r0, lr (spr=8) -> mflr r0 (group31 ext 339, rT=0, spr=8).
	// spr field encoding: ((opcode>>16)&0x1f) | ((opcode>>6)&0x3e0), so
	// spr=8 needs only the low bits set: (opcode>>16)&0x1f == 8.
	w := uint32(31)<<26 | 0<<21 | 8<<16 | 339<<1
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x1000)
	if in.Operation != "mflr" {
		t.Fatalf("Operation = %q, want mflr", in.Operation)
	}
	if len(in.Operands) != 1 || in.Operands[0].Reg != "r0" {
		t.Errorf("Operands = %+v, want [r0]", in.Operands)
	}
}

func TestDecodeBlr(t *testing.T) {
	// bclr with BO=0x14 (always), BI=0 -> blr (group19 ext 16)
	w := uint32(19)<<26 | 0x14<<21 | 0<<16 | 16<<1
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x1000)
	if in.Operation != "blr" {
		t.Fatalf("Operation = %q, want blr", in.Operation)
	}
	if !in.IsBlockEnding() {
		t.Errorf("IsBlockEnding() = false, want true")
	}
}

func TestDecodeTruncatedWord(t *testing.T) {
	in := Decode([]byte{0x4e, 0x80}, 0x1000)
	if in.IsValid() {
		t.Fatalf("IsValid() = true, want false for a truncated word")
	}
	if in.Len() != 2 {
		t.Errorf("Len() = %d, want 2", in.Len())
	}
}

func TestPatchToNop(t *testing.T) {
	w := uint32(14)<<26 | 3<<21 | 100
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x1000)
	patched, ok := in.PatchToNop()
	if !ok {
		t.Fatalf("PatchToNop() ok = false")
	}
	want := []byte{0x60, 0x00, 0x00, 0x00}
	for i := range want {
		if patched[i] != want[i] {
			t.Errorf("patched = % x, want % x", patched, want)
			break
		}
	}
}

func TestPatchToAlwaysBranchAndInvert(t *testing.T) {
	bo := uint32(0x0c)
	bi := uint32(0)
	disp := uint32(8) & 0xfffc
	w := uint32(16)<<26 | bo<<21 | bi<<16 | disp
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x4000)

	always, ok := in.PatchToAlwaysBranch()
	if !ok {
		t.Fatalf("PatchToAlwaysBranch() ok = false")
	}
	alwaysIn := Decode(always, 0x4000)
	if alwaysIn.Operation != "b" {
		t.Errorf("always Operation = %q, want b", alwaysIn.Operation)
	}

	inverted, ok := in.PatchToInvertBranch()
	if !ok {
		t.Fatalf("PatchToInvertBranch() ok = false")
	}
	invIn := Decode(inverted, 0x4000)
	if invIn.Operation != "blt" {
		t.Errorf("inverted Operation = %q, want blt", invIn.Operation)
	}
}

func TestPatchToZeroReturn(t *testing.T) {
	w := uint32(18)<<26 | 1 // bl +0
	src := word(byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
	in := Decode(src, 0x1000)
	patched, ok := in.PatchToZeroReturn()
	if !ok {
		t.Fatalf("PatchToZeroReturn() ok = false")
	}
	zeroed := Decode(patched, 0x1000)
	if zeroed.Operation != "li" || zeroed.Operands[0].Reg != "r3" || zeroed.Operands[1].Imm != 0 {
		t.Errorf("zeroed = %s, want li r3, 0", zeroed.String())
	}
}
