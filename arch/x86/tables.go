package x86

// opcodeEntry names a mnemonic and the decode handler responsible for
// filling in its operands, mirroring the (mnemonic, encoding) pairs of the
// original tool's MainOpcodeMap.
type opcodeEntry struct {
	mnemonic string
	decode   func(d *decodeState, in *Inst, e *opcodeEntry) bool
}

// arithMnemonics is the eight ALU operations sharing the 0x00-0x3D block
// encoding pattern (rm_reg_8/v, reg_rm_8/v, eax_imm_8/v), in opcode-block
// order.
var arithMnemonics = []string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}

// mainTable is the 256-entry primary opcode table: arithmetic, data
// movement, stack, control flow, the group-dispatch opcodes, and the
// 0xD8-0xDF x87 FPU escapes (registered in init below; their decoders
// live in tables_fpu.go). The 0x0F-prefixed two-byte/three-byte SSE
// tables live in tables_sse.go. AVX (VEX-prefixed) encodings and
// privileged/system forms are not modelled. Unfilled slots decode as
// invalid.
var mainTable [256]*opcodeEntry

func reg(e int, mnemonic string, fn func(d *decodeState, in *Inst, e *opcodeEntry) bool) {
	mainTable[e] = &opcodeEntry{mnemonic: mnemonic, decode: fn}
}

func init() {
	for block, mnemonic := range arithMnemonics {
		base := block * 8
		reg(base+0, mnemonic, decodeRmReg8)
		reg(base+1, mnemonic, decodeRmRegV)
		reg(base+2, mnemonic, decodeRegRm8)
		reg(base+3, mnemonic, decodeRegRmV)
		reg(base+4, mnemonic, decodeEaxImm8)
		reg(base+5, mnemonic, decodeEaxImmV)
	}

	for i := 0; i < 8; i++ {
		reg(0x50+i, "push", decodeOpRegV)
		reg(0x58+i, "pop", decodeOpRegV)
		reg(0xb8+i, "mov", decodeOpRegImmV)
		reg(0xb0+i, "mov", decodeOpRegImm8)
		reg(0x40+i, "inc", decodeOpRegVNoRex) // 32-bit-mode only; REX steals this range in 64-bit
		reg(0x48+i, "dec", decodeOpRegVNoRex)
	}

	jccMnemonics := []string{"jo", "jno", "jb", "jae", "je", "jne", "jbe", "ja",
		"js", "jns", "jpe", "jpo", "jl", "jge", "jle", "jg"}
	for i, m := range jccMnemonics {
		reg(0x70+i, m, decodeJccShort)
	}

	reg(0x68, "push", decodeImmV)
	reg(0x6a, "push", decodeImm8Sx)
	reg(0x69, "imul", decodeImulRegRmImmV)
	reg(0x6b, "imul", decodeImulRegRmImm8)

	reg(0x80, "", decodeGroup1_8)
	reg(0x81, "", decodeGroup1_V)
	reg(0x83, "", decodeGroup1_VSx8)

	reg(0x84, "test", decodeRmReg8)
	reg(0x85, "test", decodeRmRegV)
	reg(0x86, "xchg", decodeRmReg8)
	reg(0x87, "xchg", decodeRmRegV)

	reg(0x88, "mov", decodeRmReg8)
	reg(0x89, "mov", decodeRmRegV)
	reg(0x8a, "mov", decodeRegRm8)
	reg(0x8b, "mov", decodeRegRmV)
	reg(0x8d, "lea", decodeLea)

	reg(0x90, "nop", decodeNoOperands)

	reg(0x98, "cwde", decodeNoOperands)
	reg(0x99, "cdq", decodeNoOperands)

	reg(0xa8, "test", decodeEaxImm8)
	reg(0xa9, "test", decodeEaxImmV)

	reg(0xc2, "retn", decodeRetImm16)
	reg(0xc3, "retn", decodeNoOperands)
	reg(0xc6, "", decodeGroup11_8)
	reg(0xc7, "", decodeGroup11_V)
	reg(0xc9, "leave", decodeNoOperands)

	reg(0xe8, "calln", decodeCallRel32)
	reg(0xe9, "jmpn", decodeJmpRel32)
	reg(0xeb, "jmpn", decodeJccShort) // unconditional short jump, reuses rel8 handler

	reg(0xf4, "hlt", decodeNoOperands)
	reg(0xf6, "", decodeGroup3_8)
	reg(0xf7, "", decodeGroup3_V)
	reg(0xfe, "", decodeGroup4)
	reg(0xff, "", decodeGroup5)

	for escape := byte(0xd8); escape <= 0xdf; escape++ {
		reg(int(escape), "", decodeFPU(escape))
	}
}

// sizedImm reads a size-byte little-endian immediate, sign-extending if sx.
func sizedImm(d *decodeState, size int, sx bool) (int64, bool) {
	switch size {
	case 1:
		b, ok := d.u8()
		if !ok {
			return 0, false
		}
		if sx {
			return int64(int8(b)), true
		}
		return int64(b), true
	case 2:
		v, ok := d.u16()
		if !ok {
			return 0, false
		}
		if sx {
			return int64(int16(v)), true
		}
		return int64(v), true
	case 4:
		v, ok := d.u32()
		if !ok {
			return 0, false
		}
		if sx {
			return int64(int32(v)), true
		}
		return int64(v), true
	case 8:
		v, ok := d.u64()
		if !ok {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

// immSizeV returns the size, in bytes, of a "v" (operand-size-dependent)
// immediate: it never widens past 4 bytes, matching real x86-64 encodings
// where 32-bit immediates are sign-extended into 64-bit destinations.
func immSizeV(d *decodeState) int {
	if d.opSz == 2 {
		return 2
	}
	return 4
}

func decodeRmReg8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	rm := rmOperand(d, m, 1)
	r := regOperand(m.reg|int(d.rexR()), 1, d.hasRex)
	in.Operands = []Operand{rm, r}
	return true
}

func decodeRmRegV(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	rm := rmOperand(d, m, d.opSz)
	r := regOperand(m.reg|int(d.rexR()), d.opSz, d.hasRex)
	in.Operands = []Operand{rm, r}
	return true
}

func decodeRegRm8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	r := regOperand(m.reg|int(d.rexR()), 1, d.hasRex)
	rm := rmOperand(d, m, 1)
	in.Operands = []Operand{r, rm}
	return true
}

func decodeRegRmV(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	r := regOperand(m.reg|int(d.rexR()), d.opSz, d.hasRex)
	rm := rmOperand(d, m, d.opSz)
	in.Operands = []Operand{r, rm}
	return true
}

func decodeLea(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok || !m.isMem {
		return false
	}
	in.Operation = e.mnemonic
	r := regOperand(m.reg|int(d.rexR()), d.opSz, d.hasRex)
	rm := memOperand(m, d.opSz, d.segOverride)
	in.Operands = []Operand{r, rm}
	return true
}

func decodeEaxImm8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	imm, ok := sizedImm(d, 1, false)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{
		regOperand(0, 1, d.hasRex),
		{Kind: OperandImm, Imm: imm, Size: 1},
	}
	return true
}

func decodeEaxImmV(d *decodeState, in *Inst, e *opcodeEntry) bool {
	size := immSizeV(d)
	imm, ok := sizedImm(d, size, false)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{
		regOperand(0, d.opSz, d.hasRex),
		{Kind: OperandImm, Imm: imm, Size: size},
	}
	return true
}

func decodeOpRegV(d *decodeState, in *Inst, e *opcodeEntry) bool {
	op := d.src[d.pos-1]
	n := int(op&0x7) | int(d.rexB())
	size := d.opSz
	if d.mode == Mode64 && d.opSz != 2 {
		size = 8 // push/pop default to 64-bit operand size in long mode
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{regOperand(n, size, d.hasRex)}
	return true
}

func decodeOpRegVNoRex(d *decodeState, in *Inst, e *opcodeEntry) bool {
	if d.mode == Mode64 {
		return false // 0x40-0x4F is the REX prefix range in 64-bit mode
	}
	op := d.src[d.pos-1]
	n := int(op & 0x7)
	in.Operation = e.mnemonic
	in.Operands = []Operand{regOperand(n, d.opSz, d.hasRex)}
	return true
}

func decodeOpRegImm8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	op := d.src[d.pos-1]
	n := int(op&0x7) | int(d.rexB())
	imm, ok := sizedImm(d, 1, false)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{regOperand(n, 1, d.hasRex), {Kind: OperandImm, Imm: imm, Size: 1}}
	return true
}

func decodeOpRegImmV(d *decodeState, in *Inst, e *opcodeEntry) bool {
	op := d.src[d.pos-1]
	n := int(op&0x7) | int(d.rexB())
	size := d.opSz
	imm, ok := sizedImm(d, size, false)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{regOperand(n, size, d.hasRex), {Kind: OperandImm, Imm: imm, Size: size}}
	return true
}

func decodeImmV(d *decodeState, in *Inst, e *opcodeEntry) bool {
	size := immSizeV(d)
	imm, ok := sizedImm(d, size, false)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{{Kind: OperandImm, Imm: imm, Size: size}}
	return true
}

func decodeImm8Sx(d *decodeState, in *Inst, e *opcodeEntry) bool {
	imm, ok := sizedImm(d, 1, true)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{{Kind: OperandImm, Imm: imm, Size: d.opSz}}
	return true
}

func decodeImulRegRmImmV(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	size := immSizeV(d)
	imm, ok := sizedImm(d, size, false)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	r := regOperand(m.reg|int(d.rexR()), d.opSz, d.hasRex)
	rm := rmOperand(d, m, d.opSz)
	in.Operands = []Operand{r, rm, {Kind: OperandImm, Imm: imm, Size: size}}
	return true
}

func decodeImulRegRmImm8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	imm, ok := sizedImm(d, 1, true)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	r := regOperand(m.reg|int(d.rexR()), d.opSz, d.hasRex)
	rm := rmOperand(d, m, d.opSz)
	in.Operands = []Operand{r, rm, {Kind: OperandImm, Imm: imm, Size: 1}}
	return true
}

func decodeNoOperands(d *decodeState, in *Inst, e *opcodeEntry) bool {
	in.Operation = e.mnemonic
	return true
}

func decodeRetImm16(d *decodeState, in *Inst, e *opcodeEntry) bool {
	imm, ok := sizedImm(d, 2, false)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{{Kind: OperandImm, Imm: imm, Size: 2}}
	return true
}

// decodeJccShort decodes an 8-bit relative-displacement branch (Jcc short
// and the unconditional JMP rel8 which reuses this handler), resolving the
// absolute target as addr + length + disp.
func decodeJccShort(d *decodeState, in *Inst, e *opcodeEntry) bool {
	disp, ok := sizedImm(d, 1, true)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	target := int64(in.addr) + int64(d.pos) + disp
	in.Operands = []Operand{{Kind: OperandImm, Imm: target, Size: d.addrSz}}
	return true
}

func decodeCallRel32(d *decodeState, in *Inst, e *opcodeEntry) bool {
	disp, ok := sizedImm(d, 4, true)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	target := int64(in.addr) + int64(d.pos) + disp
	in.Operands = []Operand{{Kind: OperandImm, Imm: target, Size: d.addrSz}}
	return true
}

func decodeJmpRel32(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return decodeCallRel32(d, in, e)
}

// group tables: the reg field of ModR/M selects the mnemonic.
var group1 = []string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}
var group3 = []string{"test", "test", "not", "neg", "mul", "imul", "div", "idiv"}
var group5Mnemonics = []string{"inc", "dec", "calln", "callf", "jmpn", "jmpf", "push", ""}

func decodeGroup1_8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return decodeGroup1Common(d, in, 1, false)
}
func decodeGroup1_V(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return decodeGroup1Common(d, in, immSizeV(d), false)
}
func decodeGroup1_VSx8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return decodeGroup1Common(d, in, 1, true)
}

func decodeGroup1Common(d *decodeState, in *Inst, immSize int, sx bool) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	size := d.opSz
	if immSize == 1 && !sx {
		size = 1
	}
	rm := rmOperand(d, m, size)
	imm, ok := sizedImm(d, immSize, sx || immSize == 1)
	if !ok {
		return false
	}
	in.Operation = group1[m.reg]
	in.Operands = []Operand{rm, {Kind: OperandImm, Imm: imm, Size: size}}
	return true
}

func decodeGroup3_8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	rm := rmOperand(d, m, 1)
	mnemonic := group3[m.reg]
	in.Operation = mnemonic
	if mnemonic == "test" {
		imm, ok := sizedImm(d, 1, false)
		if !ok {
			return false
		}
		in.Operands = []Operand{rm, {Kind: OperandImm, Imm: imm, Size: 1}}
		return true
	}
	in.Operands = []Operand{rm}
	return true
}

func decodeGroup3_V(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	rm := rmOperand(d, m, d.opSz)
	mnemonic := group3[m.reg]
	in.Operation = mnemonic
	if mnemonic == "test" {
		size := immSizeV(d)
		imm, ok := sizedImm(d, size, false)
		if !ok {
			return false
		}
		in.Operands = []Operand{rm, {Kind: OperandImm, Imm: imm, Size: size}}
		return true
	}
	in.Operands = []Operand{rm}
	return true
}

func decodeGroup4(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	if m.reg != 0 && m.reg != 1 {
		return false
	}
	in.Operation = []string{"inc", "dec"}[m.reg]
	in.Operands = []Operand{rmOperand(d, m, 1)}
	return true
}

func decodeGroup5(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	mnemonic := group5Mnemonics[m.reg]
	if mnemonic == "" {
		return false
	}
	size := d.opSz
	if mnemonic == "calln" || mnemonic == "jmpn" || mnemonic == "push" {
		if d.mode == Mode64 {
			size = 8
		}
	}
	in.Operation = mnemonic
	in.Operands = []Operand{rmOperand(d, m, size)}
	return true
}

func decodeGroup11_8(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok || m.reg != 0 {
		return false
	}
	rm := rmOperand(d, m, 1)
	imm, ok := sizedImm(d, 1, false)
	if !ok {
		return false
	}
	in.Operation = "mov"
	in.Operands = []Operand{rm, {Kind: OperandImm, Imm: imm, Size: 1}}
	return true
}

func decodeGroup11_V(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok || m.reg != 0 {
		return false
	}
	size := d.opSz
	rm := rmOperand(d, m, size)
	immSize := immSizeV(d)
	imm, ok := sizedImm(d, immSize, true)
	if !ok {
		return false
	}
	in.Operation = "mov"
	in.Operands = []Operand{rm, {Kind: OperandImm, Imm: imm, Size: immSize}}
	return true
}

// decodeTwoByte dispatches the 0x0F-prefixed two-byte opcode table: Jcc
// near (0x80-0x8F), multi-byte NOP (0x1F), IMUL reg,rm (0xAF),
// MOVZX/MOVSX (0xB6/0xB7/0xBE/0xBF), the 0x0F38/0x0F3A three-byte
// extensions (op2 == 0x38/0x3A names no opcode of its own; the real
// opcode is the byte that follows), and the SSE/SSE2 table in
// tables_sse.go.
func decodeTwoByte(d *decodeState, op2 byte) *opcodeEntry {
	switch {
	case op2 >= 0x80 && op2 <= 0x8f:
		jccMnemonics := []string{"jo", "jno", "jb", "jae", "je", "jne", "jbe", "ja",
			"js", "jns", "jpe", "jpo", "jl", "jge", "jle", "jg"}
		return &opcodeEntry{mnemonic: jccMnemonics[op2-0x80], decode: decodeJccNear}
	case op2 == 0x1f:
		return &opcodeEntry{mnemonic: "nop", decode: decodeNopRm}
	case op2 == 0xaf:
		return &opcodeEntry{mnemonic: "imul", decode: decodeRegRmV}
	case op2 == 0xb6:
		return &opcodeEntry{mnemonic: "movzx", decode: decodeMovx(1)}
	case op2 == 0xb7:
		return &opcodeEntry{mnemonic: "movzx", decode: decodeMovx(2)}
	case op2 == 0xbe:
		return &opcodeEntry{mnemonic: "movsx", decode: decodeMovx(1)}
	case op2 == 0xbf:
		return &opcodeEntry{mnemonic: "movsx", decode: decodeMovx(2)}
	case op2 == 0x05:
		return &opcodeEntry{mnemonic: "syscall", decode: decodeNoOperands}
	case op2 == 0x38 || op2 == 0x3a:
		op3, ok := d.u8()
		if !ok {
			return nil
		}
		return decodeThreeByte(d, op2, op3)
	}
	return sseTwoByteEntry(op2)
}

func decodeJccNear(d *decodeState, in *Inst, e *opcodeEntry) bool {
	disp, ok := sizedImm(d, 4, true)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	target := int64(in.addr) + int64(d.pos) + disp
	in.Operands = []Operand{{Kind: OperandImm, Imm: target, Size: d.addrSz}}
	return true
}

func decodeNopRm(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	in.Operation = e.mnemonic
	in.Operands = []Operand{rmOperand(d, m, d.opSz)}
	return true
}

func decodeMovx(srcSize int) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		m, ok := decodeModRM(d)
		if !ok {
			return false
		}
		in.Operation = e.mnemonic
		r := regOperand(m.reg|int(d.rexR()), d.opSz, d.hasRex)
		rm := rmOperand(d, m, srcSize)
		in.Operands = []Operand{r, rm}
		return true
	}
}
