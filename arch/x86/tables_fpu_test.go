package x86

import "testing"

// TestDecodeFPULoadMemory covers the x87 escape's memory-operand form, the
// table a maintainer review flagged as entirely unrouted: fld qword ptr
// [eax] (DD 00).
func TestDecodeFPULoadMemory(t *testing.T) {
	in := Decode(Mode32, []byte{0xdd, 0x00}, 0x1000)
	if in.Operation != "fld" {
		t.Fatalf("Operation = %q, want fld", in.Operation)
	}
	if len(in.Operands) != 1 || in.Operands[0].Kind != OperandMem || in.Operands[0].Base != "eax" {
		t.Fatalf("Operands = %+v, want mem [eax]", in.Operands)
	}
	if in.Operands[0].Size != 8 {
		t.Errorf("Size = %d, want 8", in.Operands[0].Size)
	}
}

// TestDecodeFPUAddStackRegisters covers the st(0)/st(i) register-operand
// arithmetic form: fadd st(0), st(1) (D8 C1).
func TestDecodeFPUAddStackRegisters(t *testing.T) {
	in := Decode(Mode32, []byte{0xd8, 0xc1}, 0x1000)
	if in.Operation != "fadd" {
		t.Fatalf("Operation = %q, want fadd", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "st(0)" || in.Operands[1].Reg != "st(1)" {
		t.Fatalf("Operands = %+v, want st(0), st(1)", in.Operands)
	}
}

// TestDecodeFPUPoppingAdd covers the reversed-operand popping form:
// faddp st(1), st(0) (DE C1).
func TestDecodeFPUPoppingAdd(t *testing.T) {
	in := Decode(Mode32, []byte{0xde, 0xc1}, 0x1000)
	if in.Operation != "faddp" {
		t.Fatalf("Operation = %q, want faddp", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "st(1)" || in.Operands[1].Reg != "st(0)" {
		t.Fatalf("Operands = %+v, want st(1), st(0)", in.Operands)
	}
}

// TestDecodeFPUNoOperandGroup covers the reg-group single-register forms
// reached through the D9 escape's reg=4 slot: fabs (D9 E1).
func TestDecodeFPUNoOperandGroup(t *testing.T) {
	in := Decode(Mode32, []byte{0xd9, 0xe1}, 0x1000)
	if in.Operation != "fabs" {
		t.Fatalf("Operation = %q, want fabs", in.Operation)
	}
	if len(in.Operands) != 0 {
		t.Errorf("Operands = %+v, want none", in.Operands)
	}
}

// TestDecodeFPUFstswAX covers DF's reg=4 special case, the one register-form
// group slot that takes an explicit register operand (fstsw ax).
func TestDecodeFPUFstswAX(t *testing.T) {
	in := Decode(Mode32, []byte{0xdf, 0xe0}, 0x1000)
	if in.Operation != "fstsw" {
		t.Fatalf("Operation = %q, want fstsw", in.Operation)
	}
	if len(in.Operands) != 1 || in.Operands[0].Reg != "ax" {
		t.Fatalf("Operands = %+v, want ax", in.Operands)
	}
}
