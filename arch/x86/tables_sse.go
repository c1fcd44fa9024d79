package x86

// SSE/SSE2 scalar and packed float/integer opcodes under the 0x0F
// two-byte table, plus the 0x0F38/0x0F3A three-byte extension, per spec
// §4.3.1 steps 2-4. The mandatory-prefix convention (no prefix = ps/mmx
// form, 0x66 = pd/xmm-integer form, 0xF3 = ss form, 0xF2 = sd form) lets
// one decode function cover all four variants of most of these opcodes,
// mirroring how X86.py's own table collapses them by prefix rather than by
// opcode byte.

// sseSuffix picks the packed/scalar single/double mnemonic suffix from the
// instruction's mandatory prefix.
func sseSuffix(d *decodeState) string {
	switch {
	case d.flags&FlagRepe != 0:
		return "ss"
	case d.flags&FlagRepne != 0:
		return "sd"
	case d.flags&FlagOpSize != 0:
		return "pd"
	default:
		return "ps"
	}
}

// decodeSSERegRm decodes reg,rm with both operands 128-bit XMM, the shape
// shared by movups/movaps/the arithmetic opcodes' reg-is-dest-form.
func decodeSSERegRm(mnemonic string) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		m, ok := decodeModRM(d)
		if !ok {
			return false
		}
		in.Operation = mnemonic
		r := regOperandXMM(m.reg | int(d.rexR()))
		rm := rmOperandXMM(d, m, 16)
		in.Operands = []Operand{r, rm}
		return true
	}
}

// decodeSSERmReg decodes rm,reg with both operands 128-bit XMM, the store
// direction of a mov opcode (e.g. 0x11 movups rm,xmm).
func decodeSSERmReg(mnemonic string) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		m, ok := decodeModRM(d)
		if !ok {
			return false
		}
		in.Operation = mnemonic
		r := regOperandXMM(m.reg | int(d.rexR()))
		rm := rmOperandXMM(d, m, 16)
		in.Operands = []Operand{rm, r}
		return true
	}
}

// decodeSSEMov dispatches 0x10/0x11 (movups/movss/movupd/movsd) and
// 0x28/0x29 (movaps/movapd, no scalar form), reg<-rm for the even opcode
// and rm<-reg for the odd one.
func decodeSSEMov(store bool, allowScalar bool) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		suffix := sseSuffix(d)
		base := "movu"
		if !allowScalar {
			base = "mova"
		}
		mnemonic := base + suffix
		if allowScalar && (suffix == "ss" || suffix == "sd") {
			mnemonic = "mov" + suffix
		}
		if store {
			return decodeSSERmReg(mnemonic)(d, in, e)
		}
		return decodeSSERegRm(mnemonic)(d, in, e)
	}
}

// decodeSSEArith dispatches an arithmetic opcode (andp/xorp/addp/mulp/
// subp/divp) across all four ps/pd/ss/sd forms by mandatory prefix.
func decodeSSEArith(base string) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		return decodeSSERegRm(base + sseSuffix(d))(d, in, e)
	}
}

// decodeCvtFloat dispatches 0x5A (cvtps2pd/cvtpd2ps/cvtss2sd/cvtsd2ss):
// the mnemonic names the conversion directly rather than sharing a base.
func decodeCvtFloat(d *decodeState, in *Inst, e *opcodeEntry) bool {
	var mnemonic string
	switch sseSuffix(d) {
	case "ps":
		mnemonic = "cvtps2pd"
	case "pd":
		mnemonic = "cvtpd2ps"
	case "ss":
		mnemonic = "cvtss2sd"
	case "sd":
		mnemonic = "cvtsd2ss"
	}
	return decodeSSERegRm(mnemonic)(d, in, e)
}

// decodeCvtSI2F decodes 0x2A cvtsi2ss/cvtsi2sd: dest is an XMM register,
// source is a GPR or memory operand of the current operand size.
func decodeCvtSI2F(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	suffix := sseSuffix(d)
	if suffix != "ss" && suffix != "sd" {
		return false // cvtpi2ps/cvtpi2pd (MMX source) not modelled
	}
	in.Operation = "cvtsi2" + suffix
	r := regOperandXMM(m.reg | int(d.rexR()))
	rm := rmOperand(d, m, d.opSz)
	in.Operands = []Operand{r, rm}
	return true
}

// decodeCvtF2SI decodes 0x2C/0x2D (cvttss2si/cvttsd2si/cvtss2si/cvtsd2si):
// dest is a GPR, source an XMM register or memory operand.
func decodeCvtF2SI(truncating bool) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		m, ok := decodeModRM(d)
		if !ok {
			return false
		}
		suffix := sseSuffix(d)
		if suffix != "ss" && suffix != "sd" {
			return false
		}
		mnemonic := "cvt"
		if truncating {
			mnemonic += "t"
		}
		mnemonic += suffix + "2si"
		in.Operation = mnemonic
		r := regOperand(m.reg|int(d.rexR()), d.opSz, d.hasRex)
		rm := rmOperandXMM(d, m, 16)
		in.Operands = []Operand{r, rm}
		return true
	}
}

// decodePackedInt decodes a reg,rm integer-SIMD opcode available in both
// the legacy MMX form (no prefix, 64-bit mm registers) and the SSE2 form
// (0x66 prefix, 128-bit xmm registers): pxor/pand/por/pcmpeq*.
func decodePackedInt(mnemonic string) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		m, ok := decodeModRM(d)
		if !ok {
			return false
		}
		in.Operation = mnemonic
		if d.flags&FlagOpSize != 0 {
			r := regOperandXMM(m.reg | int(d.rexR()))
			rm := rmOperandXMM(d, m, 16)
			in.Operands = []Operand{r, rm}
			return true
		}
		r := regOperandMMX(m.reg)
		rm := rmOperandMMX(d, m, 8)
		in.Operands = []Operand{r, rm}
		return true
	}
}

// decodeMovdq decodes 0x6F/0x7F (movq mm,mm/m64 with no prefix; movdqa
// with 0x66; movdqu with 0xF3), store selecting the rm,reg direction used
// by 0x7F.
func decodeMovdq(store bool) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		switch {
		case d.flags&FlagOpSize != 0:
			if store {
				return decodeSSERmReg("movdqa")(d, in, e)
			}
			return decodeSSERegRm("movdqa")(d, in, e)
		case d.flags&FlagRepe != 0:
			if store {
				return decodeSSERmReg("movdqu")(d, in, e)
			}
			return decodeSSERegRm("movdqu")(d, in, e)
		default:
			m, ok := decodeModRM(d)
			if !ok {
				return false
			}
			in.Operation = "movq"
			r := regOperandMMX(m.reg)
			rm := rmOperandMMX(d, m, 8)
			if store {
				in.Operands = []Operand{rm, r}
			} else {
				in.Operands = []Operand{r, rm}
			}
			return true
		}
	}
}

// decodeMovdReg decodes 0x6E (movd/movq gpr/m -> mmx/xmm): the GPR/memory
// operand size is 8 bytes under REX.W (movq), else 4 (movd); destination
// is an XMM register under the 0x66 prefix, else MMX.
func decodeMovdReg(d *decodeState, in *Inst, e *opcodeEntry) bool {
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	size := 4
	mnemonic := "movd"
	if d.rexW() {
		size = 8
		mnemonic = "movq"
	}
	in.Operation = mnemonic
	rm := rmOperand(d, m, size)
	if d.flags&FlagOpSize != 0 {
		in.Operands = []Operand{regOperandXMM(m.reg | int(d.rexR())), rm}
	} else {
		in.Operands = []Operand{regOperandMMX(m.reg), rm}
	}
	return true
}

// decodeMovdRm decodes 0x7E: the reverse of 0x6E (mmx/xmm -> gpr/m) under
// no prefix or the 0x66 prefix; under the 0xF3 prefix it is instead
// movq xmm, xmm/m64 (a register-to-register/memory load, not a store),
// the one case where 0x7E's direction flips back.
func decodeMovdRm(d *decodeState, in *Inst, e *opcodeEntry) bool {
	if d.flags&FlagRepe != 0 {
		return decodeSSERegRm("movq")(d, in, e)
	}
	m, ok := decodeModRM(d)
	if !ok {
		return false
	}
	size := 4
	mnemonic := "movd"
	if d.rexW() {
		size = 8
		mnemonic = "movq"
	}
	in.Operation = mnemonic
	rm := rmOperand(d, m, size)
	if d.flags&FlagOpSize != 0 {
		in.Operands = []Operand{rm, regOperandXMM(m.reg | int(d.rexR()))}
	} else {
		in.Operands = []Operand{rm, regOperandMMX(m.reg)}
	}
	return true
}

// decodeMovqStore decodes 0xD6 (movq rm,xmm under the 0x66 prefix only).
func decodeMovqStore(d *decodeState, in *Inst, e *opcodeEntry) bool {
	if d.flags&FlagOpSize == 0 {
		return false
	}
	return decodeSSERmReg("movq")(d, in, e)
}

// sseTwoByteEntry returns the dispatch entry for an SSE/SSE2 two-byte
// opcode, or nil if op2 names none of the forms this decoder models.
func sseTwoByteEntry(op2 byte) *opcodeEntry {
	switch op2 {
	case 0x10:
		return &opcodeEntry{decode: decodeSSEMov(false, true)}
	case 0x11:
		return &opcodeEntry{decode: decodeSSEMov(true, true)}
	case 0x28:
		return &opcodeEntry{decode: decodeSSEMov(false, false)}
	case 0x29:
		return &opcodeEntry{decode: decodeSSEMov(true, false)}
	case 0x2a:
		return &opcodeEntry{decode: decodeCvtSI2F}
	case 0x2c:
		return &opcodeEntry{decode: decodeCvtF2SI(true)}
	case 0x2d:
		return &opcodeEntry{decode: decodeCvtF2SI(false)}
	case 0x54:
		return &opcodeEntry{decode: decodeSSEArith("andp")}
	case 0x57:
		return &opcodeEntry{decode: decodeSSEArith("xorp")}
	case 0x58:
		return &opcodeEntry{decode: decodeSSEArith("add")}
	case 0x59:
		return &opcodeEntry{decode: decodeSSEArith("mul")}
	case 0x5a:
		return &opcodeEntry{decode: decodeCvtFloat}
	case 0x5c:
		return &opcodeEntry{decode: decodeSSEArith("sub")}
	case 0x5e:
		return &opcodeEntry{decode: decodeSSEArith("div")}
	case 0x6e:
		return &opcodeEntry{decode: decodeMovdReg}
	case 0x6f:
		return &opcodeEntry{decode: decodeMovdq(false)}
	case 0x7e:
		return &opcodeEntry{decode: decodeMovdRm}
	case 0x7f:
		return &opcodeEntry{decode: decodeMovdq(true)}
	case 0xd6:
		return &opcodeEntry{decode: decodeMovqStore}
	case 0x74:
		return &opcodeEntry{decode: decodePackedInt("pcmpeqb")}
	case 0x75:
		return &opcodeEntry{decode: decodePackedInt("pcmpeqw")}
	case 0x76:
		return &opcodeEntry{decode: decodePackedInt("pcmpeqd")}
	case 0xdb:
		return &opcodeEntry{decode: decodePackedInt("pand")}
	case 0xeb:
		return &opcodeEntry{decode: decodePackedInt("por")}
	case 0xef:
		return &opcodeEntry{decode: decodePackedInt("pxor")}
	case 0xfc:
		return &opcodeEntry{decode: decodePackedInt("paddb")}
	case 0xfd:
		return &opcodeEntry{decode: decodePackedInt("paddw")}
	case 0xfe:
		return &opcodeEntry{decode: decodePackedInt("paddd")}
	}
	return nil
}

// decodeThreeByte dispatches the 0x0F38/0x0F3A three-byte opcode maps,
// reading the trailing opcode byte itself (op3) since it is the third
// opcode byte, never a ModR/M). Only the handful of SSSE3/SSE4.1 forms
// common in compiler-generated code (shuffles, alignment, rounding) are
// modelled; anything else in these maps decodes as invalid.
func decodeThreeByte(d *decodeState, escape, op3 byte) *opcodeEntry {
	if escape == 0x38 {
		switch op3 {
		case 0x00:
			return &opcodeEntry{decode: decodePackedInt("pshufb")}
		case 0x17:
			return &opcodeEntry{decode: decodePackedInt("ptest")}
		case 0x29:
			return &opcodeEntry{decode: decodeSSERegRm("pcmpeqq")}
		}
		return nil
	}
	// escape == 0x3a: the trailing operand is always an 8-bit immediate
	// selector following the ModR/M (and any displacement).
	switch op3 {
	case 0x0a:
		return &opcodeEntry{decode: decodeSSEImm8("roundss")}
	case 0x0b:
		return &opcodeEntry{decode: decodeSSEImm8("roundsd")}
	case 0x0e:
		return &opcodeEntry{decode: decodeSSEImm8("pblendw")}
	case 0x0f:
		return &opcodeEntry{decode: decodeSSEImm8("palignr")}
	}
	return nil
}

// decodeSSEImm8 decodes an xmm,rm,imm8 three-byte-opcode instruction: a
// reg,rm XMM pair followed by an 8-bit immediate selector.
func decodeSSEImm8(mnemonic string) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		m, ok := decodeModRM(d)
		if !ok {
			return false
		}
		imm, ok := sizedImm(d, 1, false)
		if !ok {
			return false
		}
		in.Operation = mnemonic
		r := regOperandXMM(m.reg | int(d.rexR()))
		rm := rmOperandXMM(d, m, 16)
		in.Operands = []Operand{r, rm, {Kind: OperandImm, Imm: imm, Size: 1}}
		return true
	}
}
