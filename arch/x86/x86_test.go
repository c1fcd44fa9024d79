package x86

import (
	"testing"

	"github.com/mewmew/recon/bin"
)

// TestDecodeRelativeCall64 is the worked example from the specification's
// testable properties: a 64-bit relative CALL.
func TestDecodeRelativeCall64(t *testing.T) {
	src := []byte{0xe8, 0x0b, 0x00, 0x00, 0x00}
	in := Decode(Mode64, src, 0x401000)
	if in.Operation != "calln" {
		t.Fatalf("Operation = %q, want calln", in.Operation)
	}
	if !in.valid {
		t.Fatalf("IsValid() = false, want true")
	}
	if in.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", in.Len())
	}
	if !in.IsCall() {
		t.Errorf("IsCall() = false, want true")
	}
	if !in.IsBlockEnding() {
		t.Errorf("IsBlockEnding() = false, want true")
	}
	target, ok := in.Target()
	if !ok || target != 0x401010 {
		t.Errorf("Target() = (%v, %v), want (0x401010, true)", target, ok)
	}
	if len(in.Operands) != 1 || in.Operands[0].Kind != OperandImm || in.Operands[0].Imm != 0x401010 {
		t.Errorf("Operands = %+v, want single imm 0x401010", in.Operands)
	}
}

// TestDecodeConditionalBranchShort exercises the jne+nop+nop+ret sequence
// used by the specification's block-split scenario.
func TestDecodeConditionalBranchShort(t *testing.T) {
	src := []byte{0x75, 0x02, 0x90, 0x90, 0xc3}
	in := Decode(Mode32, src, 0x1000)
	if in.Operation != "jne" {
		t.Fatalf("Operation = %q, want jne", in.Operation)
	}
	if !in.IsConditionalBranch() {
		t.Errorf("IsConditionalBranch() = false, want true")
	}
	if !in.IsBlockEnding() {
		t.Errorf("IsBlockEnding() = false, want true")
	}
	target, ok := in.Target()
	if !ok || target != 0x1004 {
		t.Errorf("Target() = (%v, %v), want (0x1004, true)", target, ok)
	}
	fallthroughAddr := in.Addr() + bin.Addr(in.Len())
	if fallthroughAddr != 0x1002 {
		t.Errorf("fallthrough = %v, want 0x1002", fallthroughAddr)
	}
}

func TestDecodeTruncated(t *testing.T) {
	src := []byte{0xe8, 0x01} // call rel32 with only 2 bytes available
	in := Decode(Mode32, src, 0x1000)
	if in.IsValid() {
		t.Fatalf("IsValid() = true, want false for truncated instruction")
	}
}

func TestDecodeModRMRegisterAndMemory(t *testing.T) {
	// mov eax, [ebx+0x10]  ->  8b 43 10
	src := []byte{0x8b, 0x43, 0x10}
	in := Decode(Mode32, src, 0x2000)
	if in.Operation != "mov" {
		t.Fatalf("Operation = %q, want mov", in.Operation)
	}
	if in.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", in.Len())
	}
	if len(in.Operands) != 2 {
		t.Fatalf("len(Operands) = %d, want 2", len(in.Operands))
	}
	if in.Operands[0].Kind != OperandReg || in.Operands[0].Reg != "eax" {
		t.Errorf("Operands[0] = %+v, want reg eax", in.Operands[0])
	}
	if in.Operands[1].Kind != OperandMem || in.Operands[1].Base != "ebx" || in.Operands[1].Displacement != 0x10 {
		t.Errorf("Operands[1] = %+v, want mem [ebx+0x10]", in.Operands[1])
	}
}

func TestDecodeREXWidensRegisters(t *testing.T) {
	// mov rax, rbx -> 48 89 d8
	src := []byte{0x48, 0x89, 0xd8}
	in := Decode(Mode64, src, 0x401000)
	if in.Operation != "mov" {
		t.Fatalf("Operation = %q, want mov", in.Operation)
	}
	if in.Operands[0].Reg != "rax" || in.Operands[1].Reg != "rbx" {
		t.Errorf("Operands = %+v, want [rax rbx]", in.Operands)
	}
}

func TestDecodeLockValidation(t *testing.T) {
	// f0 90 -- LOCK prefix on NOP is not a lockable instruction.
	src := []byte{0xf0, 0x90}
	in := Decode(Mode32, src, 0x1000)
	if in.IsValid() {
		t.Errorf("IsValid() = true, want false (LOCK on nop is invalid)")
	}
}

func TestDecodeGroup1Opcode83SignExtends(t *testing.T) {
	// add eax, -1 -> 83 c0 ff
	src := []byte{0x83, 0xc0, 0xff}
	in := Decode(Mode32, src, 0x1000)
	if in.Operation != "add" {
		t.Fatalf("Operation = %q, want add", in.Operation)
	}
	if in.Operands[1].Imm != -1 {
		t.Errorf("Operands[1].Imm = %d, want -1", in.Operands[1].Imm)
	}
}

func TestPatchToNop(t *testing.T) {
	src := []byte{0xe8, 0x0b, 0x00, 0x00, 0x00}
	in := Decode(Mode64, src, 0x401000)
	patched, ok := in.PatchToNop()
	if !ok {
		t.Fatalf("PatchToNop() ok = false")
	}
	if len(patched) != 5 {
		t.Fatalf("len(patched) = %d, want 5", len(patched))
	}
	for i, b := range patched {
		if b != 0x90 {
			t.Errorf("patched[%d] = %#x, want 0x90", i, b)
		}
	}
}

func TestPatchToInvertBranch(t *testing.T) {
	src := []byte{0x75, 0x02} // jne +2
	in := Decode(Mode32, src, 0x1000)
	patched, ok := in.PatchToInvertBranch()
	if !ok {
		t.Fatalf("PatchToInvertBranch() ok = false")
	}
	inverted := Decode(Mode32, patched, 0x1000)
	if inverted.Operation != "je" {
		t.Errorf("inverted Operation = %q, want je", inverted.Operation)
	}
}

func TestPatchToAlwaysBranch(t *testing.T) {
	src := []byte{0x75, 0x02} // jne +2
	in := Decode(Mode32, src, 0x1000)
	patched, ok := in.PatchToAlwaysBranch()
	if !ok {
		t.Fatalf("PatchToAlwaysBranch() ok = false")
	}
	always := Decode(Mode32, patched, 0x1000)
	if always.Operation != "jmpn" {
		t.Errorf("always Operation = %q, want jmpn", always.Operation)
	}
	target, ok := always.Target()
	if !ok || target != 0x1004 {
		t.Errorf("Target() = (%v, %v), want (0x1004, true)", target, ok)
	}
}
