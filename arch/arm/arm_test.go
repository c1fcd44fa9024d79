package arm

import "testing"

func le32Bytes(w uint32) []byte { return []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)} }
func le16Bytes(w uint16) []byte { return []byte{byte(w), byte(w >> 8)} }

func TestDecodeA32UnconditionalBranch(t *testing.T) {
	// b +0x10 at 0x8000.
	in := Decode(le32Bytes(0xea000002), 0x8000)
	if in.Operation != "b" {
		t.Fatalf("Operation = %q, want b", in.Operation)
	}
	if in.Len() != 4 {
		t.Errorf("Len() = %d, want 4", in.Len())
	}
	target, ok := in.Target()
	if !ok || target != 0x8010 {
		t.Errorf("Target() = (%v, %v), want (0x8010, true)", target, ok)
	}
}

func TestDecodeThumbConditionalBranch(t *testing.T) {
	// Thumb mode selected by the odd address; word 0xd1fd -> b.ne backward.
	in := Decode(le16Bytes(0xd1fd), 0x8001)
	if in.Operation != "b.ne" {
		t.Fatalf("Operation = %q, want b.ne", in.Operation)
	}
	if !in.IsConditionalBranch() {
		t.Errorf("IsConditionalBranch() = false, want true")
	}
	target, ok := in.Target()
	if !ok || target != 0x7fff {
		t.Errorf("Target() = (%v, %v), want (0x7fff, true)", target, ok)
	}
}

func TestDecodeBLXBugFixUsesDecodeAddress(t *testing.T) {
	// Unconditional blx (op1 & 0xe0 == 0xa0), imm24=2, H=0, at 0x8000.
	// The fixed decoder must derive the target from the address passed to
	// Decode, not from a name that was never bound in the original source.
	word := uint32(0xf)<<28 | uint32(0b101)<<25 | uint32(2)
	in := Decode(le32Bytes(word), 0x8000)
	if in.Operation != "blx" {
		t.Fatalf("Operation = %q, want blx", in.Operation)
	}
	target, ok := in.Target()
	if !ok || target != 0x8011 {
		t.Errorf("Target() = (%v, %v), want (0x8011, true)", target, ok)
	}
}

func TestDecodeDataProcessingImmediate(t *testing.T) {
	// add r0, r1, #4 (cond=AL, op=1, op1=0b01000 i.e add/no-S, rn=1, rd=0, imm12=4)
	word := uint32(0xe)<<28 | 1<<25 | 0b01000<<20 | 1<<16 | 0<<12 | 4
	in := Decode(le32Bytes(word), 0x1000)
	if in.Operation != "add" {
		t.Fatalf("Operation = %q, want add", in.Operation)
	}
	if len(in.Operands) != 3 || in.Operands[2].Imm != 4 {
		t.Errorf("Operands = %+v, want [.. .. 4]", in.Operands)
	}
}

func TestDecodeBxIsBlockEnding(t *testing.T) {
	// bx lr (cond=AL, op1=0b10010, op2=0b0001, rm=14)
	word := uint32(0xe)<<28 | 0b10010<<20 | 0xf<<16 | 0xf<<12 | 0b0001<<4 | 14
	in := Decode(le32Bytes(word), 0x1000)
	if in.Operation != "bx" {
		t.Fatalf("Operation = %q, want bx", in.Operation)
	}
	if !in.IsBlockEnding() {
		t.Errorf("IsBlockEnding() = false, want true")
	}
	if _, ok := in.Target(); ok {
		t.Errorf("Target() ok = true, want false for an indirect branch")
	}
}

func TestDecodeTruncated(t *testing.T) {
	in := Decode([]byte{0xea, 0x00}, 0x8000)
	if in.IsValid() {
		t.Fatalf("IsValid() = true, want false")
	}
}

func TestPatchToNopA32(t *testing.T) {
	in := Decode(le32Bytes(0xe3a00000), 0x1000) // mov r0, #0
	patched, ok := in.PatchToNop()
	if !ok {
		t.Fatalf("PatchToNop() ok = false")
	}
	want := le32Bytes(0xe1a00000)
	for i := range want {
		if patched[i] != want[i] {
			t.Errorf("patched = % x, want % x", patched, want)
			break
		}
	}
}

func TestPatchToAlwaysBranchAndInvertA32(t *testing.T) {
	// bne +8 (cond=NE=1)
	word := uint32(1)<<28 | 0b101<<25 | uint32(2)&0xffffff
	in := Decode(le32Bytes(word), 0x1000)
	if in.Operation != "b.ne" {
		t.Fatalf("Operation = %q, want b.ne", in.Operation)
	}

	always, ok := in.PatchToAlwaysBranch()
	if !ok {
		t.Fatalf("PatchToAlwaysBranch() ok = false")
	}
	alwaysIn := Decode(always, 0x1000)
	if alwaysIn.Operation != "b" {
		t.Errorf("always Operation = %q, want b", alwaysIn.Operation)
	}

	inverted, ok := in.PatchToInvertBranch()
	if !ok {
		t.Fatalf("PatchToInvertBranch() ok = false")
	}
	invIn := Decode(inverted, 0x1000)
	if invIn.Operation != "b.eq" {
		t.Errorf("inverted Operation = %q, want b.eq", invIn.Operation)
	}
}

func TestPatchToZeroReturnThumbCall(t *testing.T) {
	// bl with a Thumb-32 encoding is 4 bytes in Thumb mode; the zeroing
	// patch must stay within that width.
	in := &Inst{addr: 0x1001, thumb: true, length: 4, kind: "bl", Operation: "bl"}
	patched, ok := in.PatchToZeroReturn()
	if !ok || len(patched) != 4 {
		t.Fatalf("PatchToZeroReturn() = (%v, %v), want 4 bytes, true", patched, ok)
	}
}
