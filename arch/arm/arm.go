// Package arm implements a table-driven decoder for ARM A32 and Thumb-16 /
// Thumb-32, grounded on the opcode tables and extended-mnemonic folding of
// the original Arm.py disassembler.
package arm

import (
	"log"
	"os"

	"github.com/mewkiz/pkg/term"
	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/bin"
)

var (
	dbg  = log.New(os.Stderr, term.MagentaBold("arm:")+" ", 0)
	warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)
)

// condSuffix mirrors ConditionalSuffix: index 14 (AL) and 15 (NV, reserved
// in practice unconditional) both render as the empty suffix.
var condSuffix = [16]string{
	".eq", ".ne", ".cs", ".cc", ".mi", ".pl", ".vs", ".vc",
	".hi", ".ls", ".ge", ".lt", ".gt", ".le", "", "",
}

// Inst is a decoded ARM instruction, either A32 (always 4 bytes) or Thumb
// (2 or 4 bytes, selected by the low bit of the decode address).
// The kind field holds the bare control-flow mnemonic used by the
// predicates below. ARM lets the global condition suffix attach to any
// mnemonic (bkpt.ne is a legal, if useless, encoding), so classification
// can't be done by pattern-matching Operation once the suffix is folded in.
type Inst struct {
	addr      bin.Addr
	raw       uint32 // the 16- or 32-bit word as read, not byte-swapped
	length    int
	thumb     bool
	valid     bool
	cond      int    // 0-15 for A32; -1 when not condition-coded (most Thumb)
	kind      string // bare control-flow mnemonic ("b", "bl", "blx", "bx", "bxj", "cbz", "cbnz", "svc", "smc"), set before any suffix is folded into Operation
	Operation string
	Operands  []Operand
}

var _ arch.Inst = (*Inst)(nil)

func (in *Inst) Addr() bin.Addr { return in.addr }
func (in *Inst) Len() int       { return in.length }

func (in *Inst) Bytes() []byte {
	if in.length == 2 {
		return []byte{byte(in.raw), byte(in.raw >> 8)}
	}
	return []byte{byte(in.raw), byte(in.raw >> 8), byte(in.raw >> 16), byte(in.raw >> 24)}
}

func (in *Inst) IsValid() bool { return in.valid }

// isCallOp reports whether kind is a link-setting branch: bl, blx (either
// the immediate A32/Thumb-32 form or the register form).
func isCallOp(kind string) bool {
	return kind == "bl" || kind == "blx"
}

// conditional reports whether this instruction carries a real condition
// code (excludes AL/NV, which render with no suffix and execute
// unconditionally).
func (in *Inst) conditional() bool {
	return in.cond >= 0 && in.cond < 14
}

func (in *Inst) IsConditionalBranch() bool {
	switch in.kind {
	case "cbz", "cbnz":
		return true
	case "b":
		return in.conditional()
	default:
		return false
	}
}

func (in *Inst) IsCall() bool { return isCallOp(in.kind) }

func (in *Inst) IsLocalJump() bool {
	if in.kind == "b" {
		return true
	}
	return in.IsConditionalBranch()
}

func (in *Inst) IsBlockEnding() bool {
	switch in.kind {
	case "b", "bx", "bxj", "svc", "smc":
		return true
	}
	return in.IsConditionalBranch() || in.IsCall()
}

// Target returns the resolved branch target for any instruction whose last
// operand is an already-computed absolute address: b/bl/blx (immediate
// forms) and cbz/cbnz.
func (in *Inst) Target() (bin.Addr, bool) {
	if !in.IsLocalJump() && !in.IsCall() {
		return 0, false
	}
	if len(in.Operands) == 0 {
		return 0, false
	}
	last := in.Operands[len(in.Operands)-1]
	if last.Kind != OperandImm {
		return 0, false
	}
	return bin.Addr(uint64(last.Imm)), true
}

// MemTarget always reports nothing resolved: ARM's PC-relative literal loads
// (ldr rX, [pc, #imm]) address a data slot holding a value, never a callee
// address, and a real bl/blx call target always arrives through Target's
// immediate form. The original ArmInstruction never carries a self.plt
// concept either (only X86Instruction does in Analysis.py), so there is no
// memory-indirect call form here worth resolving.
func (in *Inst) MemTarget() (bin.Addr, bool) { return 0, false }

func (in *Inst) String() string {
	if !in.valid {
		return "??"
	}
	s := in.Operation
	for i, op := range in.Operands {
		if i == 0 {
			s += " "
		} else {
			s += ", "
		}
		s += op.String()
	}
	return s
}

// Decode decodes one ARM instruction at addr. Thumb mode is selected by the
// low bit of addr, matching the original tool's addr&1 convention; that bit
// is a pure mode flag, not part of the real memory address.
func Decode(src []byte, addr bin.Addr) *Inst {
	in := &Inst{addr: addr, cond: -1}

	if uint64(addr)&1 != 0 {
		in.thumb = true
		if len(src) < 2 {
			in.length = len(src)
			return in
		}
		half := uint32(src[0]) | uint32(src[1])<<8
		op := (half >> 11) & 0x1f
		if op == 0b11101 || op == 0b11110 || op == 0b11111 {
			if len(src) < 4 {
				in.length = len(src)
				return in
			}
			in.length = 4
			word := half | uint32(src[2])<<16 | uint32(src[3])<<24
			in.raw = word
			thumb32(in, word, addr)
		} else {
			in.length = 2
			in.raw = half
			thumb16(in, half, addr)
		}
		in.valid = in.Operation != ""
		return in
	}

	if len(src) < 4 {
		in.length = len(src)
		return in
	}
	in.length = 4
	word := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
	in.raw = word

	cc := (word >> 28) & 0xf
	in.cond = int(cc)
	op1 := (word >> 25) & 7
	op := (word >> 4) & 1

	switch {
	case cc == 0xf:
		armUnconditional(in, word, addr)
	case op1&0b110 == 0b000:
		armDataProcessing(in, word, addr)
	case op1&0b110 == 0b010, op1 == 0b011 && op == 0:
		armLoadStore(in, word, addr)
	case op1 == 0b011 && op == 1:
		// media instructions: not implemented, matches arm_media_instr's
		// empty body in the source tool.
	case op1&0b110 == 0b100:
		armBranch(in, word, addr)
	case op1&0b110 == 0b110:
		armSupervisor(in, word)
	}

	resolvePCLiterals(in, addr)

	if in.Operation != "" && cc != 0xf {
		in.Operation += condSuffix[cc]
	}
	in.valid = in.Operation != ""
	return in
}

// resolvePCLiterals rewrites any [pc, #imm] memory operand (with a pure
// immediate offset, not an indexed or pre-resolved form) into a resolved
// literal address, mirroring the disassemble() post-pass.
func resolvePCLiterals(in *Inst, addr bin.Addr) {
	for i := range in.Operands {
		op := &in.Operands[i]
		if op.Kind != OperandMem {
			continue
		}
		m := &op.Mem
		if m.Base == "pc" && !m.HasIndexReg && m.HasImm && !m.Writeback {
			target := (uint64(addr) + 8 + uint64(m.Imm)) & 0xffffffff
			m.ResolvedLiteral = true
			m.LiteralAddr = int64(target)
		}
	}
}
