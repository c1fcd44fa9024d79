package arm

import "fmt"

// regs mirrors Registers: r0-r12, sp, lr, pc.
var regs = func() []string {
	r := make([]string, 16)
	for i := 0; i < 13; i++ {
		r[i] = fmt.Sprintf("r%d", i)
	}
	r[13], r[14], r[15] = "sp", "lr", "pc"
	return r
}()

type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandReg
	OperandImm
	OperandMem
	OperandShiftedReg
	OperandRegList
	OperandLabel
)

type ShiftKind int

const (
	ShiftNone ShiftKind = iota
	ShiftLSL
	ShiftLSR
	ShiftASR
	ShiftROR
	ShiftRRX
)

func (s ShiftKind) String() string {
	switch s {
	case ShiftLSL:
		return "lsl"
	case ShiftLSR:
		return "lsr"
	case ShiftASR:
		return "asr"
	case ShiftROR:
		return "ror"
	case ShiftRRX:
		return "rrx"
	}
	return ""
}

// MemoryOperand is the structured `[components...]!` form: a base register,
// an optional index (register or immediate, possibly shifted), and a
// writeback flag. Post-indexed addressing is modeled separately since its
// offset prints outside the brackets.
type MemoryOperand struct {
	Base        string
	HasIndexReg bool
	IndexReg    string
	IndexNeg    bool
	Shift       ShiftKind
	ShiftAmt    int64
	HasImm      bool
	Imm         int64
	Writeback   bool

	// ResolvedLiteral is set by the [pc, #imm] literal-pool post-pass; when
	// true the operand renders as a bare resolved address, not a bracketed
	// memory form.
	ResolvedLiteral bool
	LiteralAddr     int64
}

// Operand is a tagged union over the forms ARM operands take: bare
// register, immediate, shifted register (the "shifter operand"), memory
// reference, register list (ldm/stm/push/pop), or a bare mnemonic-level
// label (e.g. a condition-code operand for `it`).
type Operand struct {
	Kind     OperandKind
	Reg      string
	Neg      bool
	Imm      int64
	Shift    ShiftKind
	ShiftAmt int64
	ShiftReg string
	Mem      MemoryOperand
	Regs     []string
	Label    string
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandReg:
		if o.Neg {
			return "-" + o.Reg
		}
		return o.Reg
	case OperandImm:
		return signedHex(o.Imm)
	case OperandShiftedReg:
		base := o.Reg
		if o.Neg {
			base = "-" + base
		}
		if o.Shift == ShiftRRX {
			return base + ", rrx"
		}
		if o.ShiftReg != "" {
			return fmt.Sprintf("%s, %s %s", base, o.Shift, o.ShiftReg)
		}
		if o.Shift != ShiftNone {
			return fmt.Sprintf("%s, %s #%d", base, o.Shift, o.ShiftAmt)
		}
		return base
	case OperandMem:
		return o.Mem.String()
	case OperandRegList:
		s := "{"
		for i, r := range o.Regs {
			if i != 0 {
				s += ", "
			}
			s += r
		}
		return s + "}"
	case OperandLabel:
		return o.Label
	}
	return ""
}

func (m MemoryOperand) String() string {
	if m.ResolvedLiteral {
		return fmt.Sprintf("=0x%x", uint64(m.LiteralAddr))
	}
	s := "[" + m.Base
	if m.HasIndexReg {
		s += ", "
		if m.IndexNeg {
			s += "-"
		}
		s += m.IndexReg
		if m.Shift != ShiftNone && m.Shift != ShiftRRX {
			s += fmt.Sprintf(", %s #%d", m.Shift, m.ShiftAmt)
		} else if m.Shift == ShiftRRX {
			s += ", rrx"
		}
	} else if m.HasImm {
		s += fmt.Sprintf(", %s", signedHex(m.Imm))
	}
	s += "]"
	if m.Writeback {
		s += "!"
	}
	return s
}

func signedHex(v int64) string {
	if v < 0 {
		return fmt.Sprintf("-0x%x", -v)
	}
	return fmt.Sprintf("0x%x", v)
}

func regOp(n uint32) Operand    { return Operand{Kind: OperandReg, Reg: regs[n&0xf]} }
func immOp(v int64) Operand     { return Operand{Kind: OperandImm, Imm: v} }
func labelOp(s string) Operand  { return Operand{Kind: OperandLabel, Label: s} }
func memOp(m MemoryOperand) Operand { return Operand{Kind: OperandMem, Mem: m} }

// regShiftImmed builds the shifter-operand form of a register shifted by an
// immediate, collapsing the no-shift and rrx-by-zero special cases exactly
// as the source tool's reg_shift_immed does.
func regShiftImmed(rm uint32, typecode uint32, shift uint32, neg bool) Operand {
	if typecode == 0 && shift == 0 {
		return Operand{Kind: OperandReg, Reg: regs[rm], Neg: neg}
	}
	if typecode == 3 && shift == 0 {
		return Operand{Kind: OperandShiftedReg, Reg: regs[rm], Neg: neg, Shift: ShiftRRX}
	}
	var sh ShiftKind
	switch typecode {
	case 0:
		sh = ShiftLSL
	case 1:
		sh = ShiftLSR
	case 2:
		sh = ShiftASR
	default:
		sh = ShiftROR
	}
	return Operand{Kind: OperandShiftedReg, Reg: regs[rm], Neg: neg, Shift: sh, ShiftAmt: int64(shift)}
}

// regShiftReg builds the shifter-operand form of a register shifted by the
// low byte of another register.
func regShiftReg(rm uint32, typecode uint32, shiftReg uint32, neg bool) Operand {
	var sh ShiftKind
	switch typecode {
	case 0:
		sh = ShiftLSL
	case 1:
		sh = ShiftLSR
	case 2:
		sh = ShiftASR
	default:
		sh = ShiftROR
	}
	return Operand{Kind: OperandShiftedReg, Reg: regs[rm], Neg: neg, Shift: sh, ShiftReg: regs[shiftReg]}
}
