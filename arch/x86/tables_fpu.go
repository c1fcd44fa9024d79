package x86

// x87 floating-point escape opcodes 0xD8-0xDF, grounded on X86.py's
// FPUMemOpcodeMap/FPURegOpcodeMap/GroupOperations[12:24] reggroup tables:
// ModR/M's mod field selects between the eight memory-operand forms (reg
// field names the operation) and the eight register-operand forms (reg
// field selects an operation acting on st(0)/st(i), or in a handful of
// cases a further reg-group of single-register operations keyed by rm).

// fpuStack names the eight x87 register-stack slots.
var fpuStack = [8]string{"st(0)", "st(1)", "st(2)", "st(3)", "st(4)", "st(5)", "st(6)", "st(7)"}

func fpuStackOperand(n int) Operand {
	return Operand{Kind: OperandReg, Reg: fpuStack[n&7]}
}

// fpuMemOp names one memory-operand form: mnemonic plus operand size in
// bytes (0 for the environment/state-block forms, whose size is
// irrelevant to rendering).
type fpuMemOp struct {
	mnemonic string
	size     int
}

// fpuMemTable[escape-0xd8][reg] is the FPUMemOpcodeMap port.
var fpuMemTable = [8][8]fpuMemOp{
	{{"fadd", 4}, {"fmul", 4}, {"fcom", 4}, {"fcomp", 4}, {"fsub", 4}, {"fsubr", 4}, {"fdiv", 4}, {"fdivr", 4}},             // d8
	{{"fld", 4}, {"", 0}, {"fst", 4}, {"fstp", 4}, {"fldenv", 0}, {"fldcw", 2}, {"fstenv", 0}, {"fstcw", 2}},               // d9
	{{"fiadd", 4}, {"fimul", 4}, {"ficom", 4}, {"ficomp", 4}, {"fisub", 4}, {"fisubr", 4}, {"fidiv", 4}, {"fidivr", 4}},    // da
	{{"fild", 4}, {"fisttp", 4}, {"fist", 4}, {"fistp", 4}, {"", 0}, {"fld", 10}, {"", 0}, {"fstp", 10}},                  // db
	{{"fadd", 8}, {"fmul", 8}, {"fcom", 8}, {"fcomp", 8}, {"fsub", 8}, {"fsubr", 8}, {"fdiv", 8}, {"fdivr", 8}},            // dc
	{{"fld", 8}, {"fisttp", 8}, {"fst", 8}, {"fstp", 8}, {"frstor", 0}, {"", 0}, {"fsave", 0}, {"fstsw", 2}},              // dd
	{{"fiadd", 2}, {"fimul", 2}, {"ficom", 2}, {"ficomp", 2}, {"fisub", 2}, {"fisubr", 2}, {"fidiv", 2}, {"fidivr", 2}},    // de
	{{"fild", 2}, {"fisttp", 2}, {"fist", 2}, {"fistp", 2}, {"fbld", 10}, {"fild", 8}, {"fbstp", 10}, {"fistp", 8}},       // df
}

// fpuRegForm tags how a register-form opcode's operands are built.
type fpuRegForm int

const (
	fpuFormNone       fpuRegForm = iota // no register form at this slot; decodes as invalid
	fpuFormFpureg                       // one explicit operand, st(rm)
	fpuFormSt0Fpureg                    // st(0), st(rm)
	fpuFormFpuregSt0                    // st(rm), st(0) (dc/de's reversed operand order)
	fpuFormGroup                        // rm selects a further no-operand mnemonic from a reg-group
)

type fpuRegOp struct {
	mnemonic string
	form     fpuRegForm
	group    []string // only used when form == fpuFormGroup, indexed by rm
}

// fpuRegTable[escape-0xd8][reg] is the FPURegOpcodeMap port; reggroup_*
// entries carry their GroupOperations[12..] table directly instead of a
// numeric group index, since this port has no shared flat group array.
var fpuRegTable = [8][8]fpuRegOp{
	{ // d8
		{"fadd", fpuFormSt0Fpureg, nil}, {"fmul", fpuFormSt0Fpureg, nil},
		{"fcom", fpuFormSt0Fpureg, nil}, {"fcomp", fpuFormSt0Fpureg, nil},
		{"fsub", fpuFormSt0Fpureg, nil}, {"fsubr", fpuFormSt0Fpureg, nil},
		{"fdiv", fpuFormSt0Fpureg, nil}, {"fdivr", fpuFormSt0Fpureg, nil},
	},
	{ // d9
		{"fld", fpuFormFpureg, nil}, {"fxch", fpuFormSt0Fpureg, nil},
		{"", fpuFormGroup, []string{"fnop", "", "", "", "", "", "", ""}},
		{"", fpuFormNone, nil},
		{"", fpuFormGroup, []string{"fchs", "fabs", "", "", "ftst", "fxam", "", ""}},
		{"", fpuFormGroup, []string{"fld1", "fldl2t", "fldl2e", "fldpi", "fldlg2", "fldln2", "fldz", ""}},
		{"", fpuFormGroup, []string{"f2xm1", "fyl2x", "fptan", "fpatan", "fxtract", "fprem1", "fdecstp", "fincstp"}},
		{"", fpuFormGroup, []string{"fprem", "fyl2xp1", "fsqrt", "fsincos", "frndint", "fscale", "fsin", "fcos"}},
	},
	{ // da
		{"fcmovb", fpuFormSt0Fpureg, nil}, {"fcmove", fpuFormSt0Fpureg, nil},
		{"fcmovbe", fpuFormSt0Fpureg, nil}, {"fcmovu", fpuFormSt0Fpureg, nil},
		{"", fpuFormNone, nil},
		{"", fpuFormGroup, []string{"", "fucompp", "", "", "", "", "", ""}},
		{"", fpuFormNone, nil}, {"", fpuFormNone, nil},
	},
	{ // db
		{"fcmovnb", fpuFormSt0Fpureg, nil}, {"fcmovne", fpuFormSt0Fpureg, nil},
		{"fcmovnbe", fpuFormSt0Fpureg, nil}, {"fcmovnu", fpuFormSt0Fpureg, nil},
		{"", fpuFormGroup, []string{"feni", "fdisi", "fclex", "finit", "fsetpm", "frstpm", "", ""}},
		{"fucomi", fpuFormSt0Fpureg, nil}, {"fcomi", fpuFormSt0Fpureg, nil},
		{"", fpuFormNone, nil},
	},
	{ // dc
		{"fadd", fpuFormFpuregSt0, nil}, {"fmul", fpuFormFpuregSt0, nil},
		{"", fpuFormNone, nil}, {"", fpuFormNone, nil},
		{"fsubr", fpuFormFpuregSt0, nil}, {"fsub", fpuFormFpuregSt0, nil},
		{"fdivr", fpuFormFpuregSt0, nil}, {"fdiv", fpuFormFpuregSt0, nil},
	},
	{ // dd
		{"ffree", fpuFormFpureg, nil}, {"", fpuFormNone, nil},
		{"fst", fpuFormFpureg, nil}, {"fstp", fpuFormFpureg, nil},
		{"fucom", fpuFormSt0Fpureg, nil}, {"fucomp", fpuFormSt0Fpureg, nil},
		{"", fpuFormNone, nil},
		{"", fpuFormGroup, []string{"fstsw", "fstdw", "fstsg", "", "", "", "", ""}},
	},
	{ // de
		{"faddp", fpuFormFpuregSt0, nil}, {"fmulp", fpuFormFpuregSt0, nil},
		{"", fpuFormNone, nil},
		{"", fpuFormGroup, []string{"", "fcompp", "", "", "", "", "", ""}},
		{"fsubrp", fpuFormFpuregSt0, nil}, {"fsubp", fpuFormFpuregSt0, nil},
		{"fdivrp", fpuFormFpuregSt0, nil}, {"fdivp", fpuFormFpuregSt0, nil},
	},
	{ // df
		{"ffreep", fpuFormFpureg, nil}, {"", fpuFormNone, nil},
		{"", fpuFormNone, nil}, {"", fpuFormNone, nil},
		{"", fpuFormGroup, []string{"fstsw", "", "", "", "", "", "", ""}}, // rm=0 -> fstsw ax
		{"fucomip", fpuFormSt0Fpureg, nil}, {"fcomip", fpuFormSt0Fpureg, nil},
		{"", fpuFormNone, nil},
	},
}

// decodeFPU decodes one x87 escape opcode (0xD8-0xDF), whose ModR/M's mod
// field selects between the memory-operand and register-operand forms.
func decodeFPU(escape byte) func(d *decodeState, in *Inst, e *opcodeEntry) bool {
	idx := int(escape - 0xd8)
	return func(d *decodeState, in *Inst, e *opcodeEntry) bool {
		m, ok := decodeModRM(d)
		if !ok {
			return false
		}
		if m.isMem {
			op := fpuMemTable[idx][m.reg]
			if op.mnemonic == "" {
				return false
			}
			in.Operation = op.mnemonic
			in.Operands = []Operand{memOperand(m, op.size, d.segOverride)}
			return true
		}

		op := fpuRegTable[idx][m.reg]
		switch op.form {
		case fpuFormFpureg:
			in.Operation = op.mnemonic
			in.Operands = []Operand{fpuStackOperand(m.rm)}
			return true
		case fpuFormSt0Fpureg:
			in.Operation = op.mnemonic
			in.Operands = []Operand{fpuStackOperand(0), fpuStackOperand(m.rm)}
			return true
		case fpuFormFpuregSt0:
			in.Operation = op.mnemonic
			in.Operands = []Operand{fpuStackOperand(m.rm), fpuStackOperand(0)}
			return true
		case fpuFormGroup:
			mnemonic := op.group[m.rm]
			if mnemonic == "" {
				return false
			}
			in.Operation = mnemonic
			if mnemonic == "fstsw" && idx == 7 { // df/rm=0: fstsw ax, the register-target form
				in.Operands = []Operand{regOperand(0, 2, false)}
			}
			return true
		default:
			return false
		}
	}
}
