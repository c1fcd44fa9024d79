package x86

// Register name tables, indexed by encoded register number 0-15 (REX.R/X/B
// extend the 3-bit ModR/M fields to 4 bits in 64-bit mode).

var reg8 = []string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
var reg8Rex = []string{ // used instead of reg8 whenever a REX prefix is present
	"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil",
	"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b",
}
var reg16 = []string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
	"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w"}
var reg32 = []string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
	"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
var reg64 = []string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
var regSeg = []string{"es", "cs", "ss", "ds", "fs", "gs", "?seg6", "?seg7"}
var regMMX = []string{"mm0", "mm1", "mm2", "mm3", "mm4", "mm5", "mm6", "mm7"}
var regXMM = []string{
	"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7",
	"xmm8", "xmm9", "xmm10", "xmm11", "xmm12", "xmm13", "xmm14", "xmm15",
}

// regName returns the register name for n (0-15) at the given operand size
// in bytes (1, 2, 4 or 8), choosing the REX-extended byte register list
// whenever a REX prefix was present (REX presence, not just REX.R/X/B,
// changes AH/CH/DH/BH into SPL/BPL/SIL/DIL).
func regName(n int, size int, hasRex bool) string {
	switch size {
	case 1:
		if hasRex {
			return reg8Rex[n]
		}
		if n < 8 {
			return reg8[n]
		}
		return reg8Rex[n]
	case 2:
		return reg16[n]
	case 4:
		return reg32[n]
	case 8:
		return reg64[n]
	}
	return "?"
}

// modrm holds the decoded fields of a ModR/M (+ optional SIB + optional
// displacement) byte sequence.
type modrm struct {
	mod int
	reg int // 3-bit reg field, REX.R NOT yet applied
	rm  int // 3-bit rm field (or base, if a SIB follows), REX.B NOT yet applied

	isMem bool
	// Memory form, when isMem is true.
	base        string
	index       string
	scale       int
	disp        int64
	ripRelative bool
}

// decodeModRM reads the ModR/M byte (and SIB/displacement if present) from
// d, applying REX.X/B extensions to register numbers used as memory base
// and index.
func decodeModRM(d *decodeState) (modrm, bool) {
	var m modrm
	b, ok := d.u8()
	if !ok {
		return m, false
	}
	m.mod = int(b >> 6)
	m.reg = int((b >> 3) & 0x7)
	m.rm = int(b & 0x7)

	if m.mod == 3 {
		return m, true
	}
	m.isMem = true

	addrSize := d.addrSz
	regs := reg32
	if addrSize == 8 {
		regs = reg64
	} else if addrSize == 2 {
		// 16-bit addressing uses the classic base+index pair form, handled
		// separately below.
	}

	if addrSize == 2 {
		return decodeModRM16(d, m)
	}

	rm := m.rm
	if rm == 4 {
		// SIB byte follows.
		sib, ok := d.u8()
		if !ok {
			return m, false
		}
		scale := 1 << uint((sib>>6)&0x3)
		index := int((sib>>3)&0x7) | int(d.rexX())
		base := int(sib&0x7) | int(d.rexB())
		m.scale = scale
		if index != 4 { // esp/rsp slot in the index field means "no index"
			m.index = regs[index]
		}
		if (sib&0x7) == 5 && m.mod == 0 {
			disp, ok := d.u32()
			if !ok {
				return m, false
			}
			m.disp = int64(int32(disp))
			// base omitted
		} else {
			m.base = regs[base]
		}
	} else {
		base := rm | int(d.rexB())
		if rm == 5 && m.mod == 0 {
			disp, ok := d.u32()
			if !ok {
				return m, false
			}
			m.disp = int64(int32(disp))
			if addrSize == 8 {
				m.ripRelative = true
			}
		} else {
			m.base = regs[base]
		}
	}

	switch m.mod {
	case 1:
		disp, ok := d.u8()
		if !ok {
			return m, false
		}
		m.disp = int64(int8(disp))
	case 2:
		disp, ok := d.u32()
		if !ok {
			return m, false
		}
		m.disp = int64(int32(disp))
	}
	return m, true
}

// decodeModRM16 handles the legacy 16-bit addressing forms, which use a
// fixed base+index pairing table instead of a SIB byte.
func decodeModRM16(d *decodeState, m modrm) (modrm, bool) {
	pairs := [][2]string{
		{"bx", "si"}, {"bx", "di"}, {"bp", "si"}, {"bp", "di"},
		{"si", ""}, {"di", ""}, {"bp", ""}, {"bx", ""},
	}
	if m.rm == 6 && m.mod == 0 {
		disp, ok := d.u16()
		if !ok {
			return m, false
		}
		m.disp = int64(int16(disp))
		return m, true
	}
	p := pairs[m.rm]
	m.base = p[0]
	if p[1] != "" {
		m.index = p[1]
		m.scale = 1
	}
	switch m.mod {
	case 1:
		disp, ok := d.u8()
		if !ok {
			return m, false
		}
		m.disp = int64(int8(disp))
	case 2:
		disp, ok := d.u16()
		if !ok {
			return m, false
		}
		m.disp = int64(int16(disp))
	}
	return m, true
}

// regOperand builds an Operand for the register identified by n (0-15,
// REX.R/B already folded in by the caller) at the given size, honouring
// REX presence for the byte-register list switch.
func regOperand(n int, size int, hasRex bool) Operand {
	return Operand{Kind: OperandReg, Reg: regName(n, size, hasRex), Size: size}
}

// memOperand builds an Operand from a decoded ModR/M memory form.
func memOperand(m modrm, size int, seg string) Operand {
	return Operand{
		Kind:         OperandMem,
		Segment:      seg,
		Base:         m.base,
		Index:        m.index,
		Scale:        m.scale,
		Displacement: m.disp,
		RIPRelative:  m.ripRelative,
		Size:         size,
	}
}

// rmOperand builds either a register or memory Operand from a decoded
// ModR/M, depending on its mod field.
func rmOperand(d *decodeState, m modrm, size int) Operand {
	if !m.isMem {
		return regOperand(m.rm|int(d.rexB()), size, d.hasRex)
	}
	return memOperand(m, size, d.segOverride)
}

// regOperandXMM builds a 128-bit XMM register Operand for encoded number n
// (0-15, REX.R/B already folded in by the caller).
func regOperandXMM(n int) Operand {
	return Operand{Kind: OperandReg, Reg: regXMM[n], Size: 16}
}

// regOperandMMX builds a 64-bit MMX register Operand for encoded number n
// (0-7; MMX has no REX-extended registers).
func regOperandMMX(n int) Operand {
	return Operand{Kind: OperandReg, Reg: regMMX[n&7], Size: 8}
}

// rmOperandXMM builds either an XMM register or memory Operand from a
// decoded ModR/M, the SSE equivalent of rmOperand.
func rmOperandXMM(d *decodeState, m modrm, size int) Operand {
	if !m.isMem {
		return regOperandXMM(m.rm | int(d.rexB()))
	}
	return memOperand(m, size, d.segOverride)
}

// rmOperandMMX builds either an MMX register or memory Operand from a
// decoded ModR/M.
func rmOperandMMX(d *decodeState, m modrm, size int) Operand {
	if !m.isMem {
		return regOperandMMX(m.rm)
	}
	return memOperand(m, size, d.segOverride)
}
