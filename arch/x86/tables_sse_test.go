package x86

import "testing"

// TestDecodeSSEXorpsZeroesIdiom covers the stack-protector/register-zeroing
// idiom a maintainer review specifically called out as untested: xorps
// xmm0, xmm0 (0F 57 C0, no mandatory prefix).
func TestDecodeSSEXorpsZeroesIdiom(t *testing.T) {
	in := Decode(Mode64, []byte{0x0f, 0x57, 0xc0}, 0x1000)
	if in.Operation != "xorps" {
		t.Fatalf("Operation = %q, want xorps", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "xmm0" || in.Operands[1].Reg != "xmm0" {
		t.Fatalf("Operands = %+v, want xmm0, xmm0", in.Operands)
	}
}

// TestDecodeSSEMovssRegToReg covers the F3-prefixed scalar single move
// used to shuttle a float ABI argument between XMM registers.
func TestDecodeSSEMovssRegToReg(t *testing.T) {
	in := Decode(Mode64, []byte{0xf3, 0x0f, 0x10, 0xca}, 0x1000)
	if in.Operation != "movss" {
		t.Fatalf("Operation = %q, want movss", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "xmm1" || in.Operands[1].Reg != "xmm2" {
		t.Fatalf("Operands = %+v, want xmm1, xmm2", in.Operands)
	}
}

// TestDecodeSSECvtsi2sd covers the int-to-double ABI conversion form.
func TestDecodeSSECvtsi2sd(t *testing.T) {
	in := Decode(Mode32, []byte{0xf2, 0x0f, 0x2a, 0xc0}, 0x1000)
	if in.Operation != "cvtsi2sd" {
		t.Fatalf("Operation = %q, want cvtsi2sd", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "xmm0" || in.Operands[1].Reg != "eax" {
		t.Fatalf("Operands = %+v, want xmm0, eax", in.Operands)
	}
}

// TestDecodeSSEPxorZeroesXMM covers the 66-prefixed packed-integer
// zeroing idiom memcpy/memset intrinsics compile down to.
func TestDecodeSSEPxorZeroesXMM(t *testing.T) {
	in := Decode(Mode64, []byte{0x66, 0x0f, 0xef, 0xc0}, 0x1000)
	if in.Operation != "pxor" {
		t.Fatalf("Operation = %q, want pxor", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "xmm0" || in.Operands[1].Reg != "xmm0" {
		t.Fatalf("Operands = %+v, want xmm0, xmm0", in.Operands)
	}
}

// TestDecodeSSEMovdqaMemory covers the aligned 128-bit load a memcpy
// intrinsic uses, confirming the memory-operand path (no register form).
func TestDecodeSSEMovdqaMemory(t *testing.T) {
	// movdqa xmm0, [eax]: 66 0f 6f 00
	in := Decode(Mode32, []byte{0x66, 0x0f, 0x6f, 0x00}, 0x1000)
	if in.Operation != "movdqa" {
		t.Fatalf("Operation = %q, want movdqa", in.Operation)
	}
	if len(in.Operands) != 2 || in.Operands[0].Reg != "xmm0" || in.Operands[1].Kind != OperandMem {
		t.Fatalf("Operands = %+v, want xmm0, mem", in.Operands)
	}
	if in.Operands[1].Base != "eax" {
		t.Errorf("Base = %q, want eax", in.Operands[1].Base)
	}
}

// TestDecodeSSERoundsdThreeByteOpcode covers the 0x0F3A three-byte table a
// maintainer review flagged as entirely missing.
func TestDecodeSSERoundsdThreeByteOpcode(t *testing.T) {
	// roundsd xmm0, xmm1, 0: 66 0f 3a 0b c1 00
	in := Decode(Mode64, []byte{0x66, 0x0f, 0x3a, 0x0b, 0xc1, 0x00}, 0x1000)
	if in.Operation != "roundsd" {
		t.Fatalf("Operation = %q, want roundsd", in.Operation)
	}
	if len(in.Operands) != 3 || in.Operands[2].Kind != OperandImm || in.Operands[2].Imm != 0 {
		t.Fatalf("Operands = %+v, want xmm0, xmm1, imm 0", in.Operands)
	}
	if in.Len() != 6 {
		t.Errorf("Len() = %d, want 6", in.Len())
	}
}
