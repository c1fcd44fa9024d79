package ppc

// Field extraction mirrors the original OperandDecode table: each function
// pulls one bitfield out of a 32-bit instruction word and returns it either
// as a register-name Operand or a numeric Operand.

var gpRegs = func() []string {
	r := make([]string, 32)
	for i := range r {
		r[i] = regName("r", i)
	}
	return r
}()

var fpRegs = func() []string {
	r := make([]string, 32)
	for i := range r {
		r[i] = regName("f", i)
	}
	return r
}()

func regName(prefix string, n int) string {
	digits := "0123456789"
	if n < 10 {
		return prefix + string(digits[n])
	}
	return prefix + string(digits[n/10]) + string(digits[n%10])
}

func signExtend16(v uint32) int64 {
	v &= 0xffff
	if v&0x8000 != 0 {
		return int64(v) - 0x10000
	}
	return int64(v)
}

func signExtend24(v uint32) int64 {
	v &= 0xffffff
	if v&0x800000 != 0 {
		return int64(v) - 0x1000000
	}
	return int64(v)
}

func regOp(name string) Operand   { return Operand{Kind: OperandReg, Reg: name} }
func fpRegOp(name string) Operand { return Operand{Kind: OperandFPReg, Reg: name} }
func immOp(v int64) Operand       { return Operand{Kind: OperandImm, Imm: v} }
func crOp(n uint32) Operand       { return Operand{Kind: OperandCR, Reg: regName("cr", int(n))} }

// fieldFunc extracts one operand from an instruction word, matching one key
// of the original OperandDecode dictionary.
type fieldFunc func(word uint32) Operand

var fields = map[string]fieldFunc{
	"SI":   func(w uint32) Operand { return immOp(signExtend16(w)) },
	"UI":   func(w uint32) Operand { return immOp(int64(w & 0xffff)) },
	"DS":   func(w uint32) Operand { return immOp(int64(w & 0xfffc)) },
	"SH":   func(w uint32) Operand { return immOp(int64((w >> 11) & 31)) },
	"sh":   func(w uint32) Operand { return immOp(int64(((w >> 11) & 31) | ((w & 2) << 4))) },
	"NB":   func(w uint32) Operand { return immOp(int64((w >> 11) & 31)) },
	"MB":   func(w uint32) Operand { return immOp(int64((w >> 6) & 31)) },
	"mb":   func(w uint32) Operand { return immOp(int64(((w >> 6) & 31) | (w & 0x20))) },
	"ME":   func(w uint32) Operand { return immOp(int64((w >> 1) & 31)) },
	"me":   func(w uint32) Operand { return immOp(int64(((w >> 6) & 31) | (w & 0x20))) },
	"rA":   func(w uint32) Operand { return regOp(gpRegs[(w>>16)&31]) },
	"rA|0": func(w uint32) Operand {
		n := (w >> 16) & 31
		if n == 0 {
			return immOp(0)
		}
		return regOp(gpRegs[n])
	},
	"rB":   func(w uint32) Operand { return regOp(gpRegs[(w>>11)&31]) },
	"rS":   func(w uint32) Operand { return regOp(gpRegs[(w>>21)&31]) },
	"rT":   func(w uint32) Operand { return regOp(gpRegs[(w>>21)&31]) },
	"frA":  func(w uint32) Operand { return fpRegOp(fpRegs[(w>>16)&31]) },
	"frB":  func(w uint32) Operand { return fpRegOp(fpRegs[(w>>11)&31]) },
	"frC":  func(w uint32) Operand { return fpRegOp(fpRegs[(w>>6)&31]) },
	"frS":  func(w uint32) Operand { return fpRegOp(fpRegs[(w>>21)&31]) },
	"frT":  func(w uint32) Operand { return fpRegOp(fpRegs[(w>>21)&31]) },
	"SR":   func(w uint32) Operand { return immOp(int64((w >> 16) & 15)) },
	"L":    func(w uint32) Operand { return immOp(int64((w >> 21) & 1)) },
	"L2":   func(w uint32) Operand { return immOp(int64((w >> 16) & 1)) },
	"BF":   func(w uint32) Operand { return immOp(int64((w >> 21) & 31)) },
	"BF2":  func(w uint32) Operand { return crOp((w >> 23) & 7) },
	"BFA2": func(w uint32) Operand { return crOp((w >> 18) & 7) },
	"BI":   func(w uint32) Operand { return immOp(int64((w >> 16) & 31)) },
	"BO":   func(w uint32) Operand { return immOp(int64((w >> 21) & 31)) },
	"BH":   func(w uint32) Operand { return immOp(int64((w >> 11) & 3)) },
	"BT":   func(w uint32) Operand { return immOp(int64((w >> 21) & 31)) },
	"BA":   func(w uint32) Operand { return immOp(int64((w >> 16) & 31)) },
	"BB":   func(w uint32) Operand { return immOp(int64((w >> 11) & 31)) },
	"TO":   func(w uint32) Operand { return immOp(int64((w >> 21) & 31)) },
	"LEV":  func(w uint32) Operand { return immOp(int64((w >> 5) & 0x7f)) },
	"spr":  func(w uint32) Operand { return immOp(int64(((w >> 16) & 0x1f) | ((w >> 6) & 0x3e0))) },
	"FXM":  func(w uint32) Operand { return immOp(int64((w >> 12) & 0xff)) },
	"FLM":  func(w uint32) Operand { return immOp(int64((w >> 17) & 0xff)) },
	"U":    func(w uint32) Operand { return immOp(int64((w >> 12) & 0xf)) },
}

func decodeOperands(word uint32, names []string) []Operand {
	ops := make([]Operand, len(names))
	for i, n := range names {
		ops[i] = fields[n](word)
	}
	return ops
}
